// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xds-project/xdsd/consensusmgr"
	"github.com/xds-project/xdsd/eventbus"
	"github.com/xds-project/xdsd/rpctypes"
	"github.com/xds-project/xdsd/wire"
	"github.com/xds-project/xdsd/xdscrypto"
)

// wsNotifier pushes rpctypes notification envelopes to subscribed websocket
// clients as the consensus manager and mempool publish events onto the bus
// (spec §1: "invoke the core through its operations" implies a push
// surface; rpctypes fixes its wire contract, this type is its transport).
// It is a stub surface: every connected client receives every notification,
// there is no notifyblocks/notifynewtransactions-scoped subscription.
type wsNotifier struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSNotifier(bus *eventbus.Bus) *wsNotifier {
	n := &wsNotifier{
		conns: make(map[*websocket.Conn]struct{}),
	}
	bus.Subscribe(eventbus.BlockConnected, n.onBlockConnected)
	bus.Subscribe(eventbus.BlockDisconnected, n.onBlockDisconnected)
	bus.Subscribe(eventbus.TransactionReceived, n.onTransactionReceived)
	return n
}

func (n *wsNotifier) onBlockConnected(payload interface{}) {
	evt := payload.(consensusmgr.BlockConnectedEvent)
	n.broadcast(rpctypes.NewBlockConnectedNtfn(evt.Header.Hash().String(), evt.Header.Height))
}

func (n *wsNotifier) onBlockDisconnected(payload interface{}) {
	evt := payload.(consensusmgr.BlockDisconnectedEvent)
	n.broadcast(rpctypes.NewBlockDisconnectedNtfn(evt.Header.Hash().String(), evt.Header.Height))
}

func (n *wsNotifier) onTransactionReceived(payload interface{}) {
	tx := payload.(*wire.MsgTx)
	n.broadcast(rpctypes.NewTxAcceptedNtfn(tx.TxHash(xdscrypto.Hash256).String(), 0))
}

// broadcast writes ntfn to every connected client, dropping any client whose
// write fails.
func (n *wsNotifier) broadcast(ntfn interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.conns {
		if err := c.WriteJSON(ntfn); err != nil {
			c.Close()
			delete(n.conns, c)
		}
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers it
// for future broadcasts until it disconnects.
func (n *wsNotifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	n.mu.Lock()
	n.conns[conn] = struct{}{}
	n.mu.Unlock()

	go func() {
		defer func() {
			n.mu.Lock()
			delete(n.conns, conn)
			n.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
}
