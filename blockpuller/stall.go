// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockpuller

import (
	"sort"
	"time"
)

// latencySamples bounds how many recent deliveries feed a peer's moving
// median; older samples are dropped so a peer's timeout adapts to its
// current network conditions rather than its entire history.
const latencySamples = 20

// stallTimeoutFactor multiplies a peer's median delivery latency to get
// its adaptive stall timeout: a peer is considered stalled once a request
// has been outstanding for this many times its own typical delivery time.
const stallTimeoutFactor = 3

// latencyTracker computes a moving median over a peer's most recent block
// delivery latencies (spec §4.6: "adaptive timeout based on a moving
// median of that peer's delivery latency").
type latencyTracker struct {
	samples []time.Duration
	next    int
}

// Add records a new delivery latency, evicting the oldest sample once
// latencySamples have been collected.
func (t *latencyTracker) Add(d time.Duration) {
	if len(t.samples) < latencySamples {
		t.samples = append(t.samples, d)
		return
	}
	t.samples[t.next] = d
	t.next = (t.next + 1) % latencySamples
}

// Median returns the current moving median, or false if no samples have
// been recorded yet.
func (t *latencyTracker) Median() (time.Duration, bool) {
	if len(t.samples) == 0 {
		return 0, false
	}
	sorted := make([]time.Duration, len(t.samples))
	copy(sorted, t.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2], true
}

// Timeout derives a stall timeout from the tracker's median, falling back
// to base when too few samples exist to trust the median.
func (t *latencyTracker) Timeout(base time.Duration) time.Duration {
	median, ok := t.Median()
	if !ok {
		return base
	}
	timeout := median * stallTimeoutFactor
	if timeout < base {
		return base
	}
	return timeout
}

// CheckStalls scans every in-flight assignment and reassigns any whose
// request has outstood its peer's adaptive timeout. It should be called
// periodically by a scheduler task (spec §5: "One scheduler task per
// background concern (puller timeouts, ...)").
func (p *Puller) CheckStalls() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for hash, pb := range p.pending {
		if pb.assignedTo == "" {
			continue
		}
		ps, ok := p.peers[pb.assignedTo]
		if !ok {
			p.reassignLocked(hash)
			continue
		}
		timeout := ps.latency.Timeout(p.cfg.BaseTimeout)
		if now.Sub(pb.requestedAt) > timeout {
			stalledOn := pb.assignedTo
			p.reassignLocked(hash)
			if _, still := p.pending[hash]; !still {
				continue
			}
			// Prefer a covering peer other than the one that stalled; the
			// assignLocked pass below falls back to any covering peer.
			best, bestLoad := "", -1
			for addr, other := range p.peers {
				if addr == stalledOn || other.tipHeight < pb.height {
					continue
				}
				if load := len(other.inFlight); bestLoad == -1 || load < bestLoad {
					best, bestLoad = addr, load
				}
			}
			if bestLoad != -1 {
				p.assignToLocked(pb, best)
			}
		}
	}
	p.assignLocked()
}
