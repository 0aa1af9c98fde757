// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package eventbus implements the typed, synchronous fanout publisher the
// rest of the node uses to announce chain and peer lifecycle events (spec
// §4.5, §6: "Events published by the core").
package eventbus

import (
	"sync"

	"github.com/google/uuid"
)

// EventType identifies which event a Bus subscriber wants to receive.
type EventType int

// Recognized event types (spec §6).
const (
	BlockConnected EventType = iota
	BlockDisconnected
	TransactionReceived
	PeerConnected
	PeerDisconnected
	PeerMessageSent
	PeerMessageReceived
	PeerSendFailure
	PeerConnectionAttempt
	PeerConnectionAttemptFailed
)

// Handler receives a single published event's payload.
type Handler func(payload interface{})

// SubscriptionID identifies a single Subscribe call so it can later be
// removed with Unsubscribe.
type SubscriptionID uuid.UUID

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is a typed, synchronous fanout event publisher: Publish calls every
// subscribed handler for that event type in subscription order, on the
// publishing goroutine, before returning. Subscribers that need
// asynchronous work must hand off themselves (e.g. via a channel), which
// keeps the delivery-ordering guarantees in spec §5 ("BlockConnected
// events are delivered in chain order") trivially true: publish order is
// delivery order.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]subscription
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[EventType][]subscription)}
}

// Subscribe registers handler for events of the given type and returns a
// SubscriptionID that can later be passed to Unsubscribe.
func (b *Bus) Subscribe(evt EventType, handler Handler) SubscriptionID {
	id := SubscriptionID(uuid.New())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[evt] = append(b.subs[evt], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes the subscription with the given id, if present.
func (b *Bus) Unsubscribe(evt EventType, id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[evt]
	for i, s := range subs {
		if s.id == id {
			b.subs[evt] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber of evt, in subscription order, with
// payload.
func (b *Bus) Publish(evt EventType, payload interface{}) {
	b.mu.RLock()
	// Copy the slice under the lock so a handler calling Subscribe/
	// Unsubscribe from within Publish cannot race the iteration.
	subs := append([]subscription(nil), b.subs[evt]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
}
