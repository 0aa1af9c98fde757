// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"
	"time"

	"github.com/xds-project/xdsd/wire"
)

func testHashFunc(b []byte) [32]byte {
	var sum [32]byte
	var acc byte
	for _, v := range b {
		acc += v
	}
	sum[0] = acc
	return sum
}

func TestHandshakeNegotiatesVersion(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	p1 := New(c1, 0xd9b4bef9, DirectionOutbound)
	p2 := New(c2, 0xd9b4bef9, DirectionInbound)

	ours1 := wire.MsgVersion{ProtocolVersion: wire.ProtocolVersion, Services: wire.SFNodeNetwork, UserAgent: "/xdsd:1.0/"}
	ours2 := wire.MsgVersion{ProtocolVersion: wire.ProtocolVersion, Services: wire.SFNodeNetwork | wire.SFNodeProvenHeader, UserAgent: "/xdsd:1.0/"}

	done := make(chan error, 2)
	go func() { done <- p1.Handshake(ours1, testHashFunc) }()
	go func() { done <- p2.Handshake(ours2, testHashFunc) }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("handshake error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("handshake timed out")
		}
	}

	if p1.State() != StateHandShaked || p2.State() != StateHandShaked {
		t.Fatalf("expected both peers handshaked, got %v / %v", p1.State(), p2.State())
	}
	if !p1.SupportsProvenHeaders() {
		t.Fatalf("p1 should see p2's proven-header service bit")
	}
	if p2.SupportsProvenHeaders() {
		t.Fatalf("p2 should not see a proven-header bit from p1")
	}
}

func TestPingBehaviorEchoesPong(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	server := New(c1, 1, DirectionInbound)
	server.AttachBehavior(NewPingBehavior(testHashFunc))

	go server.ReadLoop(testHashFunc)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := wire.WriteMessage(c2, 1, wire.CmdPing, payload, testHashFunc); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	command, resp, err := wire.ReadMessage(c2, 1, testHashFunc)
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if command != wire.CmdPong {
		t.Fatalf("expected pong, got %s", command)
	}
	if string(resp) != string(payload) {
		t.Fatalf("pong payload mismatch: got %v want %v", resp, payload)
	}
}
