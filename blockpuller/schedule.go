// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockpuller

import "github.com/xds-project/xdsd/chaincfg/chainhash"

// assignLocked hands every unassigned queued block to the peer with the
// lowest in-flight count whose advertised tip covers it (spec §4.6:
// "Assign each missing block to the peer with lowest in-flight count whose
// advertised tip covers it"). Callers must hold p.mu.
func (p *Puller) assignLocked() {
	remaining := p.queue[:0]
	for _, hash := range p.queue {
		pb, ok := p.pending[hash]
		if !ok || pb.assignedTo != "" {
			continue
		}
		addr, ok := p.bestPeerLocked(pb.height)
		if !ok {
			remaining = append(remaining, hash)
			continue
		}
		p.assignToLocked(pb, addr)
	}
	p.queue = remaining
}

// bestPeerLocked returns the address of the peer with the fewest in-flight
// assignments among those whose advertised tip height is at least height.
func (p *Puller) bestPeerLocked(height int64) (string, bool) {
	var best string
	bestLoad := -1
	for addr, ps := range p.peers {
		if ps.tipHeight < height {
			continue
		}
		load := len(ps.inFlight)
		if bestLoad == -1 || load < bestLoad {
			best, bestLoad = addr, load
		}
	}
	return best, bestLoad != -1
}

func (p *Puller) assignToLocked(pb *pendingBlock, addr string) {
	pb.assignedTo = addr
	pb.requestedAt = p.now()
	p.peers[addr].inFlight[pb.hash] = struct{}{}
	if p.cfg.RequestBlock != nil {
		_ = p.cfg.RequestBlock(addr, pb.hash)
	}
}

// reassignLocked clears hash's current assignment and pushes it back onto
// the unassigned queue, or gives up on it once MaxReassignments is
// exceeded (spec §4.6: "On timeout or peer disconnect, reassign the
// block; if three reassignments fail, mark header subtree as
// unreachable and request fresh headers"). Callers must hold p.mu.
func (p *Puller) reassignLocked(hash chainhash.Hash) {
	pb, ok := p.pending[hash]
	if !ok {
		return
	}
	if pb.assignedTo != "" {
		if ps, ok := p.peers[pb.assignedTo]; ok {
			delete(ps.inFlight, hash)
		}
		pb.assignedTo = ""
	}
	pb.reassignCount++
	if pb.reassignCount > p.cfg.MaxReassignments {
		delete(p.pending, hash)
		if p.cfg.MarkUnreachable != nil {
			p.cfg.MarkUnreachable(hash)
		}
		if p.cfg.RequestFreshHeaders != nil {
			p.cfg.RequestFreshHeaders()
		}
		return
	}
	p.queue = append(p.queue, hash)
}
