// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"bytes"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
	"github.com/xds-project/xdsd/wire"
)

// ConsensusSink receives chain-relevant messages relayed from peers. A
// consensus manager implements this to be wired into a ConsensusBehavior
// without peer depending on that package directly.
type ConsensusSink interface {
	OnHeaders(peerAddr string, headers []*wire.BlockHeader)
	OnBlock(peerAddr string, block *wire.MsgBlock)
	OnInv(peerAddr string, invVects []*wire.InvVect)
	GetHeadersRequest(peerAddr string) (locator []chainhash.Hash, stop chainhash.Hash, ok bool)
	IsPoS() bool
}

// ConsensusBehavior forwards header/block/inv traffic to a ConsensusSink
// and issues getheaders requests on its behalf (spec §4.8: "Consensus
// behavior").
type ConsensusBehavior struct {
	Sink     ConsensusSink
	HashFunc wire.HashFunc
}

// NewConsensusBehavior returns a ConsensusBehavior delivering to sink.
func NewConsensusBehavior(sink ConsensusSink, hashFn wire.HashFunc) *ConsensusBehavior {
	return &ConsensusBehavior{Sink: sink, HashFunc: hashFn}
}

// OnMessage implements Behavior.
func (b *ConsensusBehavior) OnMessage(p *Peer, command string, payload []byte) error {
	switch command {
	case wire.CmdHeaders:
		msg := wire.MsgHeaders{IsPoS: b.Sink.IsPoS()}
		if err := msg.Deserialize(bytes.NewReader(payload)); err != nil {
			return err
		}
		b.Sink.OnHeaders(p.Addr(), msg.Headers)
	case wire.CmdBlock:
		var blk wire.MsgBlock
		if err := blk.Deserialize(bytes.NewReader(payload), b.Sink.IsPoS()); err != nil {
			return err
		}
		b.Sink.OnBlock(p.Addr(), &blk)
	case wire.CmdInv:
		var msg wire.MsgInv
		if err := msg.Deserialize(bytes.NewReader(payload)); err != nil {
			return err
		}
		b.Sink.OnInv(p.Addr(), msg.InvList)
	}
	return nil
}

// OnHandshakeComplete implements Behavior: it requests the peer's headers
// from our current locator.
func (b *ConsensusBehavior) OnHandshakeComplete(p *Peer) {
	locator, stop, ok := b.Sink.GetHeadersRequest(p.Addr())
	if !ok {
		return
	}
	msg := wire.MsgGetHeaders{BlockLocatorHashes: locator, HashStop: stop}
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return
	}
	_ = p.Send(wire.CmdGetHeaders, buf.Bytes(), b.HashFunc)
}

// OnDisconnect implements Behavior.
func (b *ConsensusBehavior) OnDisconnect(p *Peer) {}

// MempoolSink receives transaction relay traffic. A mempool implements
// this to be wired into a MempoolBehavior.
type MempoolSink interface {
	OnTx(peerAddr string, tx *wire.MsgTx)
	HasTx(txid chainhash.Hash) bool
	// SeenByPeer/MarkSeenByPeer back the per-peer relay rate limiting
	// spec §4.8's mempool behavior requires ("respects per-peer rate
	// limits"): SeenByPeer reports whether txid was already
	// announced to or requested from peerAddr, and MarkSeenByPeer
	// records it so it isn't redundantly re-announced or re-requested.
	SeenByPeer(peerAddr string, txid chainhash.Hash) bool
	MarkSeenByPeer(peerAddr string, txid chainhash.Hash)
}

// MempoolBehavior relays transaction announcements and requests missing
// ones from peers, declining to re-request what is already known (spec
// §4.8: "Mempool behavior").
type MempoolBehavior struct {
	Sink     MempoolSink
	HashFunc wire.HashFunc
}

// NewMempoolBehavior returns a MempoolBehavior delivering to sink.
func NewMempoolBehavior(sink MempoolSink, hashFn wire.HashFunc) *MempoolBehavior {
	return &MempoolBehavior{Sink: sink, HashFunc: hashFn}
}

// OnMessage implements Behavior.
func (b *MempoolBehavior) OnMessage(p *Peer, command string, payload []byte) error {
	switch command {
	case wire.CmdTx:
		var tx wire.MsgTx
		if err := tx.Deserialize(bytes.NewReader(payload)); err != nil {
			return err
		}
		b.Sink.OnTx(p.Addr(), &tx)
	case wire.CmdInv:
		var msg wire.MsgInv
		if err := msg.Deserialize(bytes.NewReader(payload)); err != nil {
			return err
		}
		var want wire.MsgGetData
		for _, iv := range msg.InvList {
			if iv.Type != wire.InvTypeTx {
				continue
			}
			if b.Sink.HasTx(iv.Hash) || b.Sink.SeenByPeer(p.Addr(), iv.Hash) {
				continue
			}
			b.Sink.MarkSeenByPeer(p.Addr(), iv.Hash)
			want.InvList = append(want.InvList, iv)
		}
		if len(want.InvList) == 0 {
			return nil
		}
		var buf bytes.Buffer
		if err := want.Serialize(&buf); err != nil {
			return err
		}
		return p.Send(wire.CmdGetData, buf.Bytes(), b.HashFunc)
	}
	return nil
}

// OnHandshakeComplete implements Behavior.
func (b *MempoolBehavior) OnHandshakeComplete(p *Peer) {}

// OnDisconnect implements Behavior.
func (b *MempoolBehavior) OnDisconnect(p *Peer) {}
