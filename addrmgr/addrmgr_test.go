// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func TestAddAddressPerSourceCap(t *testing.T) {
	m := New()
	now := time.Now()
	for i := 0; i < MaxAddressesPerSource; i++ {
		addr := fmt.Sprintf("10.%d.%d.%d:38333", i/65536%256, i/256%256, i%256)
		if !m.AddAddress(addr, "peerA", now) {
			t.Fatalf("unexpected cap hit at %d", i)
		}
	}
	if m.AddAddress("11.0.0.1:38333", "peerA", now) {
		t.Fatalf("expected the per-source cap to reject a new address")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	m := New()
	now := time.Now()
	m.AddAddress("1.2.3.4:38333", "seed", now)

	m.MarkAttempt("1.2.3.4:38333", now)
	if m.GetAddress("1.2.3.4:38333").State != StateAttempted {
		t.Fatalf("expected state attempted")
	}
	m.MarkConnected("1.2.3.4:38333", now)
	if m.GetAddress("1.2.3.4:38333").State != StateConnected {
		t.Fatalf("expected state connected")
	}
	m.MarkHandshaked("1.2.3.4:38333", now)
	if m.GetAddress("1.2.3.4:38333").State != StateHandshaked {
		t.Fatalf("expected state handshaked")
	}
}

func TestBannedAddressExcludedFromSelect(t *testing.T) {
	m := New()
	now := time.Now()
	m.AddAddress("1.1.1.1:38333", "seed", now)
	m.AddAddress("2.2.2.2:38333", "seed", now)
	m.Ban("1.1.1.1:38333", now.Add(time.Hour))

	selected := m.Select(10, now)
	for _, p := range selected {
		if p.Addr == "1.1.1.1:38333" {
			t.Fatalf("banned address was selected")
		}
	}
	if len(selected) != 1 {
		t.Fatalf("expected exactly 1 selectable address, got %d", len(selected))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New()
	now := time.Now().Truncate(time.Second)
	m.AddAddress("3.3.3.3:38333", "seed", now)
	m.MarkAttempt("3.3.3.3:38333", now)

	path := filepath.Join(t.TempDir(), "peers.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := New()
	if err := m2.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := m2.GetAddress("3.3.3.3:38333")
	if got == nil || got.AttemptCount != 1 {
		t.Fatalf("round trip lost address state: %+v", got)
	}
}

func TestIsRoutable(t *testing.T) {
	if IsRoutable("127.0.0.1:38333") {
		t.Fatalf("loopback should not be routable")
	}
	if !IsRoutable("8.8.8.8:38333") {
		t.Fatalf("expected public IP to be routable")
	}
}
