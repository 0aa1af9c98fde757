// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package asyncprovider

import (
	"testing"
	"time"
)

func TestShutdownJoinsAllTasks(t *testing.T) {
	lifetime := NewNodeLifetime()
	p := NewProvider(lifetime)

	cleaned := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		p.Go(func(l *NodeLifetime) {
			<-l.Done()
			cleaned <- struct{}{}
		})
	}

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Shutdown did not return after Stop")
	}

	if len(cleaned) != 2 {
		t.Fatalf("cleaned = %d, want 2", len(cleaned))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	lifetime := NewNodeLifetime()
	lifetime.Stop()
	lifetime.Stop()
	if !lifetime.Cancelled() {
		t.Fatalf("expected lifetime to report cancelled")
	}
}
