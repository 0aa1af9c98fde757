// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"sync"
)

// Set tracks connected peers and reserves a subset of its slots for
// peers that support proven headers, so a flood of legacy peers cannot
// starve the node of proven-header-capable connections (spec §4.8:
// "Proven-headers reserved-slots behavior").
type Set struct {
	mu sync.RWMutex

	maxTotal          int
	reservedForProven int

	peers map[string]*Peer
	proven int
}

// NewSet returns a peer set admitting up to maxTotal peers, with
// reservedForProven of those slots open only to proven-header peers:
// non-proven peers are refused once maxTotal - reservedForProven of them
// are connected.
func NewSet(maxTotal, reservedForProven int) *Set {
	if reservedForProven > maxTotal {
		reservedForProven = maxTotal
	}
	return &Set{
		maxTotal:          maxTotal,
		reservedForProven: reservedForProven,
		peers:             make(map[string]*Peer),
	}
}

// CanAdmit reports whether a peer supporting the given proven-header
// capability may currently be added to the set.
func (s *Set) CanAdmit(supportsProven bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canAdmitLocked(supportsProven)
}

func (s *Set) canAdmitLocked(supportsProven bool) bool {
	if len(s.peers) >= s.maxTotal {
		return false
	}
	if supportsProven {
		return true
	}
	nonProven := len(s.peers) - s.proven
	return nonProven < s.nonProvenCapacity()
}

// nonProvenCapacity is how many non-proven peers may be admitted before
// the reserved slots must be protected.
func (s *Set) nonProvenCapacity() int {
	return s.maxTotal - s.reservedForProven
}

// Admit adds p to the set, returning an error if doing so would either
// exceed capacity or consume a slot reserved for proven-header peers.
func (s *Set) Admit(p *Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.peers[p.Addr()]; exists {
		return fmt.Errorf("peer: %s already admitted", p.Addr())
	}

	supportsProven := p.SupportsProvenHeaders()
	if !s.canAdmitLocked(supportsProven) {
		return fmt.Errorf("peer: no slot available for %s (proven=%v)", p.Addr(), supportsProven)
	}

	s.peers[p.Addr()] = p
	if supportsProven {
		s.proven++
	}
	return nil
}

// Remove drops a peer from the set.
func (s *Set) Remove(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[addr]
	if !ok {
		return
	}
	if p.SupportsProvenHeaders() {
		s.proven--
	}
	delete(s.peers, addr)
}

// Len returns the number of admitted peers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// ProvenCount returns the number of admitted peers that support proven
// headers.
func (s *Set) ProvenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proven
}

// Get returns the peer at addr, or nil.
func (s *Set) Get(addr string) *Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peers[addr]
}

// Each calls fn for every admitted peer. fn must not call back into the
// set.
func (s *Set) Each(fn func(*Peer)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.peers {
		fn(p)
	}
}

// Broadcast sends command/payload to every admitted peer, collecting any
// send errors keyed by address.
func (s *Set) Broadcast(command string, payload []byte, hashFn func([]byte) [32]byte) map[string]error {
	s.mu.RLock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.RUnlock()

	errs := make(map[string]error)
	for _, p := range peers {
		if err := p.Send(command, payload, hashFn); err != nil {
			errs[p.Addr()] = err
		}
	}
	return errs
}
