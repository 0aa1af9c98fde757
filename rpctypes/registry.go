// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpctypes

import "fmt"

// UsageFlags marks constraints on where a command may be issued from,
// mirroring the teacher's dcrjson UsageFlag bits without depending on the
// full dcrjson registry (that package's command marshaling/reflection
// machinery has no spec component to exercise — RPC is a stub surface).
type UsageFlags uint32

const (
	// UFWebsocketOnly marks a command only usable over the websocket
	// notification transport, not plain HTTP POST.
	UFWebsocketOnly UsageFlags = 1 << iota
)

var registry = make(map[Method]UsageFlags)

// MustRegister records method's usage flags, panicking on a duplicate
// registration; it is called from this file's init, the same
// registration style the teacher's dcrjson.MustRegister uses.
func MustRegister(method Method, flags UsageFlags) {
	if _, exists := registry[method]; exists {
		panic(fmt.Sprintf("rpctypes: method %q already registered", method))
	}
	registry[method] = flags
}

// Lookup reports whether method is registered and its usage flags.
func Lookup(method Method) (UsageFlags, bool) {
	flags, ok := registry[method]
	return flags, ok
}

func init() {
	MustRegister("getblockchaininfo", 0)
	MustRegister("getblock", 0)
	MustRegister("getrawmempool", 0)
	MustRegister("sendrawtransaction", 0)
	MustRegister("getpeerinfo", 0)
	MustRegister("notifyblocks", UFWebsocketOnly)
	MustRegister("notifynewtransactions", UFWebsocketOnly)
}
