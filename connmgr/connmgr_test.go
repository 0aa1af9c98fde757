// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xds-project/xdsd/addrmgr"
)

type fakeSource struct {
	candidates []addrmgr.PeerAddress
	attempts   []string
	connects   []string
}

func (f *fakeSource) Select(n int, now time.Time) []addrmgr.PeerAddress {
	if n > len(f.candidates) {
		n = len(f.candidates)
	}
	return f.candidates[:n]
}

func (f *fakeSource) MarkAttempt(addr string, now time.Time) { f.attempts = append(f.attempts, addr) }
func (f *fakeSource) MarkConnected(addr string, now time.Time) {
	f.connects = append(f.connects, addr)
}

func TestTickDialsUpToNeededConnections(t *testing.T) {
	src := &fakeSource{candidates: []addrmgr.PeerAddress{
		{Addr: "1.1.1.1:38333"},
		{Addr: "2.2.2.2:38333"},
		{Addr: "3.3.3.3:38333"},
	}}
	cm := New(Config{TargetOutbound: 2}, src)

	var dialed []string
	dial := func(ctx context.Context, addr string) error {
		dialed = append(dialed, addr)
		return nil
	}
	cm.tick(context.Background(), dial)

	if len(dialed) != 2 {
		t.Fatalf("dialed %d addrs, want 2", len(dialed))
	}
	if cm.NeededConnections() != 0 {
		t.Fatalf("NeededConnections = %d, want 0 after reaching target", cm.NeededConnections())
	}
}

func TestFailedDialDoesNotCountAsConnected(t *testing.T) {
	src := &fakeSource{candidates: []addrmgr.PeerAddress{{Addr: "1.1.1.1:38333"}}}
	var failed string
	cm := New(Config{TargetOutbound: 1, OnConnectFail: func(addr string, err error) { failed = addr }}, src)

	dial := func(ctx context.Context, addr string) error { return errors.New("refused") }
	cm.tick(context.Background(), dial)

	if failed != "1.1.1.1:38333" {
		t.Fatalf("OnConnectFail not called with expected address")
	}
	if cm.NeededConnections() != 1 {
		t.Fatalf("expected the connection to still be needed after a dial failure")
	}
}
