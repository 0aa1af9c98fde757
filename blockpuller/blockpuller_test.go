// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockpuller

import (
	"testing"
	"time"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestAssignPicksLowestInFlightPeerCoveringTip(t *testing.T) {
	var requested []string
	cfg := Config{
		RequestBlock: func(addr string, hash chainhash.Hash) error {
			requested = append(requested, addr)
			return nil
		},
	}
	p := New(cfg)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p.now = clock.now

	p.RegisterPeer("low-tip:1", 10)
	p.RegisterPeer("high-tip:1", 100)

	p.Enqueue(hashFromByte(1), 50)

	if len(requested) != 1 || requested[0] != "high-tip:1" {
		t.Fatalf("expected assignment to high-tip:1, got %v", requested)
	}
	if p.InFlight() != 1 {
		t.Fatalf("expected 1 in-flight block, got %d", p.InFlight())
	}
}

func TestUnregisterPeerReassignsInFlightBlocks(t *testing.T) {
	var requests []string
	cfg := Config{
		RequestBlock: func(addr string, hash chainhash.Hash) error {
			requests = append(requests, addr)
			return nil
		},
	}
	p := New(cfg)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p.now = clock.now

	p.RegisterPeer("peerA:1", 100)
	p.Enqueue(hashFromByte(1), 50)
	if len(requests) != 1 || requests[0] != "peerA:1" {
		t.Fatalf("expected initial assignment to peerA, got %v", requests)
	}

	p.RegisterPeer("peerB:1", 100)
	p.UnregisterPeer("peerA:1")

	if len(requests) != 2 || requests[1] != "peerB:1" {
		t.Fatalf("expected reassignment to peerB after disconnect, got %v", requests)
	}
}

func TestCheckStallsReassignsAfterAdaptiveTimeout(t *testing.T) {
	var requests []string
	cfg := Config{
		RequestBlock: func(addr string, hash chainhash.Hash) error {
			requests = append(requests, addr)
			return nil
		},
		BaseTimeout: time.Second,
	}
	p := New(cfg)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p.now = clock.now

	p.RegisterPeer("peerA:1", 100)
	p.RegisterPeer("peerB:1", 100)
	p.Enqueue(hashFromByte(1), 50)
	if len(requests) != 1 {
		t.Fatalf("expected one initial assignment, got %v", requests)
	}
	firstAssignee := requests[0]

	clock.advance(2 * time.Second)
	p.CheckStalls()

	if len(requests) != 2 {
		t.Fatalf("expected a reassignment after the stall timeout, got %v", requests)
	}
	if requests[1] == firstAssignee {
		t.Fatalf("expected the stalled block to move to the other peer, stayed on %s", firstAssignee)
	}
}

func TestGivesUpAfterMaxReassignments(t *testing.T) {
	var unreachable []chainhash.Hash
	freshHeaders := 0
	cfg := Config{
		RequestBlock:        func(addr string, hash chainhash.Hash) error { return nil },
		MarkUnreachable:     func(hash chainhash.Hash) { unreachable = append(unreachable, hash) },
		RequestFreshHeaders: func() { freshHeaders++ },
		BaseTimeout:         time.Second,
		MaxReassignments:    3,
	}
	p := New(cfg)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p.now = clock.now

	p.RegisterPeer("onlypeer:1", 100)
	hash := hashFromByte(9)
	p.Enqueue(hash, 50)

	for i := 0; i < 4; i++ {
		clock.advance(2 * time.Second)
		p.CheckStalls()
	}

	if len(unreachable) != 1 || unreachable[0] != hash {
		t.Fatalf("expected block to be marked unreachable exactly once, got %v", unreachable)
	}
	if freshHeaders != 1 {
		t.Fatalf("expected fresh headers requested once, got %d", freshHeaders)
	}
	if _, ok := p.pending[hash]; ok {
		t.Fatalf("expected the block to be dropped from pending after giving up")
	}
}

func TestOnBlockReceivedFeedsLatencyAndFreesSlot(t *testing.T) {
	cfg := Config{RequestBlock: func(addr string, hash chainhash.Hash) error { return nil }}
	p := New(cfg)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p.now = clock.now

	p.RegisterPeer("peerA:1", 100)
	hash := hashFromByte(3)
	p.Enqueue(hash, 50)

	clock.advance(5 * time.Second)
	p.OnBlockReceived("peerA:1", hash)

	if p.InFlight() != 0 {
		t.Fatalf("expected the slot to free up, got %d in flight", p.InFlight())
	}
	ps := p.peers["peerA:1"]
	if median, ok := ps.latency.Median(); !ok || median != 5*time.Second {
		t.Fatalf("expected a 5s median latency sample, got %v (ok=%v)", median, ok)
	}
}
