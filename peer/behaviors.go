// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"
	"time"

	"github.com/xds-project/xdsd/addrmgr"
	"github.com/xds-project/xdsd/wire"
)

// AddrBehavior answers getaddr requests from the address book and feeds
// addr announcements from peers back into it (spec §4.8: "Address
// manager behavior").
type AddrBehavior struct {
	Manager  *addrmgr.Manager
	HashFunc wire.HashFunc
	MaxAddrs int
}

// NewAddrBehavior returns an AddrBehavior backed by mgr.
func NewAddrBehavior(mgr *addrmgr.Manager, hashFn wire.HashFunc) *AddrBehavior {
	return &AddrBehavior{Manager: mgr, HashFunc: hashFn, MaxAddrs: 1000}
}

// OnMessage implements Behavior.
func (b *AddrBehavior) OnMessage(p *Peer, command string, payload []byte) error {
	switch command {
	case wire.CmdGetAddr:
		selected := b.Manager.Select(b.MaxAddrs, time.Now())
		addrs := make([]string, len(selected))
		for i, a := range selected {
			addrs[i] = a.Addr
		}
		var buf bytes.Buffer
		if err := encodeAddrList(&buf, addrs); err != nil {
			return err
		}
		return p.Send(wire.CmdAddr, buf.Bytes(), b.HashFunc)
	case wire.CmdAddr:
		addrs, err := decodeAddrList(bytes.NewReader(payload))
		if err != nil {
			return err
		}
		now := time.Now()
		for _, a := range addrs {
			b.Manager.AddAddress(a, p.Addr(), now)
		}
	}
	return nil
}

// OnHandshakeComplete implements Behavior.
func (b *AddrBehavior) OnHandshakeComplete(p *Peer) {
	b.Manager.MarkHandshaked(p.Addr(), time.Now())
}

// OnDisconnect implements Behavior.
func (b *AddrBehavior) OnDisconnect(p *Peer) {
	b.Manager.MarkDisconnected(p.Addr(), time.Now())
}

func encodeAddrList(w *bytes.Buffer, addrs []string) error {
	if err := wire.WriteVarInt(w, uint64(len(addrs))); err != nil {
		return err
	}
	for _, a := range addrs {
		if err := wire.WriteVarString(w, a); err != nil {
			return err
		}
	}
	return nil
}

func decodeAddrList(r *bytes.Reader) ([]string, error) {
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		s, err := wire.ReadVarString(r, 512)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// PingBehavior answers ping requests and times round trips to detect
// stalled peers (spec §4.8 transport keepalive).
type PingBehavior struct {
	HashFunc wire.HashFunc
	Timeout  time.Duration
}

// NewPingBehavior returns a PingBehavior using hashFn for checksums.
func NewPingBehavior(hashFn wire.HashFunc) *PingBehavior {
	return &PingBehavior{HashFunc: hashFn, Timeout: 2 * time.Minute}
}

// OnMessage implements Behavior: it echoes ping payloads back as pong.
func (b *PingBehavior) OnMessage(p *Peer, command string, payload []byte) error {
	if command != wire.CmdPing {
		return nil
	}
	return p.Send(wire.CmdPong, payload, b.HashFunc)
}

// OnHandshakeComplete implements Behavior.
func (b *PingBehavior) OnHandshakeComplete(p *Peer) {}

// OnDisconnect implements Behavior.
func (b *PingBehavior) OnDisconnect(p *Peer) {}
