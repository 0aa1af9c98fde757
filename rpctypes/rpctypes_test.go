// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpctypes

import "testing"

func TestRegisteredCommandsCarryExpectedFlags(t *testing.T) {
	flags, ok := Lookup("notifyblocks")
	if !ok {
		t.Fatalf("expected notifyblocks to be registered")
	}
	if flags&UFWebsocketOnly == 0 {
		t.Fatalf("expected notifyblocks to be websocket-only")
	}

	flags, ok = Lookup("getblockchaininfo")
	if !ok {
		t.Fatalf("expected getblockchaininfo to be registered")
	}
	if flags&UFWebsocketOnly != 0 {
		t.Fatalf("getblockchaininfo should not be websocket-only")
	}
}

func TestLookupUnknownMethod(t *testing.T) {
	if _, ok := Lookup("not-a-real-method"); ok {
		t.Fatalf("expected an unregistered method to report ok=false")
	}
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustRegister to panic on duplicate method")
		}
	}()
	MustRegister("getblock", 0)
}
