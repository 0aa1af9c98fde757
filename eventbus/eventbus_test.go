// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package eventbus

import "testing"

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	b.Subscribe(BlockConnected, func(interface{}) { order = append(order, 1) })
	b.Subscribe(BlockConnected, func(interface{}) { order = append(order, 2) })

	b.Publish(BlockConnected, nil)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected delivery order: %v", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	id := b.Subscribe(BlockConnected, func(interface{}) { calls++ })
	b.Publish(BlockConnected, nil)
	b.Unsubscribe(BlockConnected, id)
	b.Publish(BlockConnected, nil)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestEventTypesAreIsolated(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(BlockConnected, func(interface{}) { calls++ })
	b.Publish(BlockDisconnected, nil)
	if calls != 0 {
		t.Fatalf("handler for BlockConnected fired on BlockDisconnected")
	}
}
