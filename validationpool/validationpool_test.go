// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package validationpool

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xds-project/xdsd/asyncprovider"
)

func TestSubmitRunsJobsConcurrently(t *testing.T) {
	lifetime := asyncprovider.NewNodeLifetime()
	provider := asyncprovider.NewProvider(lifetime)
	pool := New(provider, 4, 8)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ran int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		pool.Submit(Job{
			Run: func() error {
				mu.Lock()
				ran++
				mu.Unlock()
				return nil
			},
			Done: func(err error) { wg.Done() },
		})
	}
	wg.Wait()
	if ran != 8 {
		t.Fatalf("expected all 8 jobs to run, got %d", ran)
	}

	pool.Close()
	lifetime.Stop()
	provider.Wait()
}

func TestSubmitAndWaitReturnsJobError(t *testing.T) {
	lifetime := asyncprovider.NewNodeLifetime()
	provider := asyncprovider.NewProvider(lifetime)
	pool := New(provider, 2, 4)

	wantErr := errors.New("partial validation failed")
	err := pool.SubmitAndWait(func() error { return wantErr })
	if err != wantErr {
		t.Fatalf("expected SubmitAndWait to return the job's error, got %v", err)
	}

	pool.Close()
	lifetime.Stop()
	provider.Wait()
}

func TestWorkersStopOnLifetimeCancellation(t *testing.T) {
	lifetime := asyncprovider.NewNodeLifetime()
	provider := asyncprovider.NewProvider(lifetime)
	New(provider, 2, 4)

	lifetime.Stop()
	done := make(chan struct{})
	go func() {
		provider.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected workers to exit promptly after lifetime cancellation")
	}
}
