// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements the per-connection state machine for the P2P
// layer: the framed transport, the version/verack handshake, and the
// behaviors attached to a connected peer (spec §4.8).
package peer

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/xds-project/xdsd/wire"
)

// State is a NetworkPeer's position in its connection lifecycle (spec
// §3).
type State int

// Recognized peer states.
const (
	StateCreated State = iota
	StateConnecting
	StateHandShaked
	StateDisconnecting
	StateOffline
	StateFailed
)

// Direction records whether a connection was dialed or accepted.
type Direction int

// Recognized directions.
const (
	DirectionInbound Direction = iota
	DirectionOutbound
)

// Behavior reacts to messages and lifecycle events on a single Peer. Each
// attached behavior only sees the subset of events relevant to its
// concern (spec §4.8: address manager / consensus / proven-headers /
// mempool behaviors).
type Behavior interface {
	// OnMessage is called for every message received from the peer,
	// behaviors in the order they were attached; returning an error ends
	// the read loop, so later behaviors do not see that message.
	OnMessage(p *Peer, command string, payload []byte) error
	// OnHandshakeComplete is called once version/verack negotiation
	// finishes.
	OnHandshakeComplete(p *Peer)
	// OnDisconnect is called when the peer's connection ends.
	OnDisconnect(p *Peer)
}

// Peer is a single connected or connecting network endpoint: the framed
// transport plus negotiated protocol state and attached behaviors.
type Peer struct {
	conn      net.Conn
	magic     uint32
	direction Direction

	mu               sync.RWMutex
	state            State
	protocolVersion  uint32
	services         uint64
	lastBlockHeight  int32
	userAgent        string
	behaviors        []Behavior

	sendMu sync.Mutex

	quit chan struct{}
}

// New wraps conn as a Peer that will speak the protocol identified by
// magic.
func New(conn net.Conn, magic uint32, direction Direction) *Peer {
	return &Peer{
		conn:      conn,
		magic:     magic,
		direction: direction,
		state:     StateCreated,
		quit:      make(chan struct{}),
	}
}

// Addr returns the remote address of the underlying connection.
func (p *Peer) Addr() string {
	return p.conn.RemoteAddr().String()
}

// Direction reports whether this connection was dialed or accepted.
func (p *Peer) Direction() Direction {
	return p.direction
}

// State returns the peer's current lifecycle state.
func (p *Peer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// AttachBehavior adds b to the list of behaviors notified of this peer's
// events. Must be called before Start.
func (p *Peer) AttachBehavior(b Behavior) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.behaviors = append(p.behaviors, b)
}

// SupportsProvenHeaders reports whether the peer advertised the
// proven-header service bit during handshake (spec §4.8).
func (p *Peer) SupportsProvenHeaders() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.services&wire.SFNodeProvenHeader != 0
}

// LastBlockHeight returns the peer's advertised chain height at
// handshake.
func (p *Peer) LastBlockHeight() int32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastBlockHeight
}

func (p *Peer) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Send frames and writes msg's command/payload to the peer. Safe for
// concurrent use.
func (p *Peer) Send(command string, payload []byte, hashFn wire.HashFunc) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return wire.WriteMessage(p.conn, p.magic, command, payload, hashFn)
}

// Handshake performs the version/verack exchange (spec §4.8). ours is the
// local version announcement; hashFn computes message checksums.
func (p *Peer) Handshake(ours wire.MsgVersion, hashFn wire.HashFunc) error {
	p.setState(StateConnecting)

	var versionBuf bytes.Buffer
	if err := ours.Serialize(&versionBuf); err != nil {
		return fmt.Errorf("peer: encode version: %w", err)
	}
	// Each write runs beside the matching read, so the exchange completes
	// even on a transport that does not buffer writes (such as net.Pipe).
	sendErr := make(chan error, 1)
	go func() {
		sendErr <- wire.WriteMessage(p.conn, p.magic, wire.CmdVersion, versionBuf.Bytes(), hashFn)
	}()

	command, remotePayload, err := wire.ReadMessage(p.conn, p.magic, hashFn)
	if err != nil {
		return fmt.Errorf("peer: read version: %w", err)
	}
	if err := <-sendErr; err != nil {
		return fmt.Errorf("peer: send version: %w", err)
	}
	if command != wire.CmdVersion {
		return fmt.Errorf("peer: expected version, got %s", command)
	}
	var theirs wire.MsgVersion
	if err := theirs.Deserialize(bytes.NewReader(remotePayload)); err != nil {
		return fmt.Errorf("peer: decode version: %w", err)
	}

	p.mu.Lock()
	p.protocolVersion = theirs.ProtocolVersion
	p.services = theirs.Services
	p.lastBlockHeight = theirs.LastBlock
	p.userAgent = theirs.UserAgent
	p.mu.Unlock()

	go func() {
		sendErr <- wire.WriteMessage(p.conn, p.magic, wire.CmdVerAck, nil, hashFn)
	}()
	command, _, err = wire.ReadMessage(p.conn, p.magic, hashFn)
	if err != nil {
		return fmt.Errorf("peer: read verack: %w", err)
	}
	if err := <-sendErr; err != nil {
		return fmt.Errorf("peer: send verack: %w", err)
	}
	if command != wire.CmdVerAck {
		return fmt.Errorf("peer: expected verack, got %s", command)
	}

	p.setState(StateHandShaked)
	p.mu.RLock()
	behaviors := append([]Behavior(nil), p.behaviors...)
	p.mu.RUnlock()
	for _, b := range behaviors {
		b.OnHandshakeComplete(p)
	}
	return nil
}

// ReadLoop blocks reading framed messages until the connection closes or
// quit is triggered, dispatching each to every attached behavior in
// order. The first behavior to return an error ends the loop and
// disconnects the peer.
func (p *Peer) ReadLoop(hashFn wire.HashFunc) error {
	defer p.disconnect()
	for {
		select {
		case <-p.quit:
			return nil
		default:
		}

		command, payload, err := wire.ReadMessage(p.conn, p.magic, hashFn)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		p.mu.RLock()
		behaviors := append([]Behavior(nil), p.behaviors...)
		p.mu.RUnlock()
		for _, b := range behaviors {
			if err := b.OnMessage(p, command, payload); err != nil {
				return err
			}
		}
	}
}

// Disconnect closes the connection and signals ReadLoop to stop.
func (p *Peer) Disconnect() {
	p.setState(StateDisconnecting)
	select {
	case <-p.quit:
	default:
		close(p.quit)
	}
	_ = p.conn.Close()
}

func (p *Peer) disconnect() {
	p.setState(StateOffline)
	p.mu.RLock()
	behaviors := append([]Behavior(nil), p.behaviors...)
	p.mu.RUnlock()
	for _, b := range behaviors {
		b.OnDisconnect(p)
	}
}

// SetDeadline sets the underlying connection's read/write deadline,
// letting a caller bound how long Handshake/ReadLoop may block.
func (p *Peer) SetDeadline(t time.Time) error {
	return p.conn.SetDeadline(t)
}
