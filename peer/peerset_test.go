// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"

	"github.com/xds-project/xdsd/wire"
)

func newTestPeer(t *testing.T, services uint64) *Peer {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })
	p := New(c1, 0xd9b4bef9, DirectionInbound)
	p.services = services
	return p
}

func TestReservedSlotsRejectNonProvenWhenExhausted(t *testing.T) {
	// 3 total slots, 1 reserved for proven-header peers: only 2
	// non-proven peers may be admitted before the reservation kicks in.
	s := NewSet(3, 1)

	p1 := newTestPeer(t, 0)
	p2 := newTestPeer(t, 0)
	p1.conn = fakeAddrConn{p1.conn, "1.1.1.1:1"}
	p2.conn = fakeAddrConn{p2.conn, "2.2.2.2:2"}

	if err := s.Admit(p1); err != nil {
		t.Fatalf("Admit p1: %v", err)
	}
	if err := s.Admit(p2); err != nil {
		t.Fatalf("Admit p2: %v", err)
	}

	p3 := newTestPeer(t, 0)
	p3.conn = fakeAddrConn{p3.conn, "3.3.3.3:3"}
	if err := s.Admit(p3); err == nil {
		t.Fatalf("expected third non-proven peer to be rejected, reserved slot should be protected")
	}

	p4 := newTestPeer(t, wire.SFNodeProvenHeader)
	p4.conn = fakeAddrConn{p4.conn, "4.4.4.4:4"}
	if err := s.Admit(p4); err != nil {
		t.Fatalf("expected proven-header peer to take the reserved slot: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	if s.ProvenCount() != 1 {
		t.Fatalf("ProvenCount() = %d, want 1", s.ProvenCount())
	}
}

func TestRemoveFreesSlot(t *testing.T) {
	s := NewSet(1, 0)
	p1 := newTestPeer(t, 0)
	p1.conn = fakeAddrConn{p1.conn, "1.1.1.1:1"}
	if err := s.Admit(p1); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	p2 := newTestPeer(t, 0)
	p2.conn = fakeAddrConn{p2.conn, "2.2.2.2:2"}
	if err := s.Admit(p2); err == nil {
		t.Fatalf("expected set to be full")
	}

	s.Remove(p1.Addr())
	if err := s.Admit(p2); err != nil {
		t.Fatalf("expected slot to free up after Remove: %v", err)
	}
}

// fakeAddrConn wraps a net.Conn overriding RemoteAddr so multiple
// in-memory pipes can be distinguished by address in tests.
type fakeAddrConn struct {
	net.Conn
	addr string
}

func (f fakeAddrConn) RemoteAddr() net.Addr { return fakeAddr(f.addr) }

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }
