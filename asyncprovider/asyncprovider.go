// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package asyncprovider implements the node's background task registry
// and its shutdown cancellation token (spec §5: "A NodeLifetime token is
// passed to every background task; on shutdown the token is triggered and
// tasks run their cleanup before joining").
package asyncprovider

import (
	"sync"
)

// NodeLifetime is the cancellation token threaded through every
// long-running task. Stop closes the Done channel exactly once; joining the
// tasks started on this token is done by Provider.Wait or
// Provider.Shutdown.
type NodeLifetime struct {
	done   chan struct{}
	once   sync.Once
}

// NewNodeLifetime returns an untriggered lifetime token.
func NewNodeLifetime() *NodeLifetime {
	return &NodeLifetime{done: make(chan struct{})}
}

// Done returns a channel that is closed once Stop is called.
func (l *NodeLifetime) Done() <-chan struct{} {
	return l.done
}

// Cancelled reports whether Stop has been called.
func (l *NodeLifetime) Cancelled() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Stop triggers the token. Safe to call more than once or concurrently.
func (l *NodeLifetime) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Provider registers and runs background tasks against a shared
// NodeLifetime: one task per peer, one scheduler task per background
// concern (spec §5). Go starts each task on its own goroutine;
// Provider.Wait joins every started task.
type Provider struct {
	lifetime *NodeLifetime
	wg       sync.WaitGroup
}

// NewProvider returns a Provider whose tasks observe lifetime.
func NewProvider(lifetime *NodeLifetime) *Provider {
	return &Provider{lifetime: lifetime}
}

// Go starts task in its own goroutine, registering it with Wait. task
// should select on p.Lifetime().Done() to know when to stop.
func (p *Provider) Go(task func(lifetime *NodeLifetime)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		task(p.lifetime)
	}()
}

// Lifetime returns the shared cancellation token.
func (p *Provider) Lifetime() *NodeLifetime {
	return p.lifetime
}

// Wait blocks until every task started with Go has returned.
func (p *Provider) Wait() {
	p.wg.Wait()
}

// Shutdown triggers the lifetime token and waits for every registered task
// to return its cleanup.
func (p *Provider) Shutdown() {
	p.lifetime.Stop()
	p.wg.Wait()
}
