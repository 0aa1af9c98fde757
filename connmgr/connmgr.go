// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package connmgr drives outbound connection attempts: it asks the
// address manager for candidates and retries on a fixed interval, up to
// the node's configured target outbound count (spec §6:
// "Default max outbound 16").
package connmgr

import (
	"context"
	"math/rand"
	"time"

	"github.com/xds-project/xdsd/addrmgr"
)

// AddressSource supplies outbound connection candidates, satisfied by
// *addrmgr.Manager.
type AddressSource interface {
	Select(n int, now time.Time) []addrmgr.PeerAddress
	MarkAttempt(addr string, now time.Time)
	MarkConnected(addr string, now time.Time)
}

// Config configures a ConnManager.
type Config struct {
	TargetOutbound int
	OnConnect      func(addr string)
	OnConnectFail  func(addr string, err error)
	RetryDuration  time.Duration
}

// ConnManager maintains TargetOutbound outbound connections, pulling
// candidates from an AddressSource on every RetryDuration tick. No
// backoff is applied to failed attempts beyond that fixed tick.
type ConnManager struct {
	cfg     Config
	source  AddressSource
	active  map[string]struct{}
	rng     *rand.Rand
}

// New returns a ConnManager that selects candidates from source.
func New(cfg Config, source AddressSource) *ConnManager {
	if cfg.RetryDuration <= 0 {
		cfg.RetryDuration = 5 * time.Second
	}
	return &ConnManager{
		cfg:    cfg,
		source: source,
		active: make(map[string]struct{}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NeededConnections returns how many more outbound connections are needed
// to reach the target.
func (c *ConnManager) NeededConnections() int {
	need := c.cfg.TargetOutbound - len(c.active)
	if need < 0 {
		return 0
	}
	return need
}

// Connected reports that addr successfully connected.
func (c *ConnManager) Connected(addr string) {
	c.active[addr] = struct{}{}
	c.source.MarkConnected(addr, time.Now())
	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect(addr)
	}
}

// Disconnected reports that addr's connection ended.
func (c *ConnManager) Disconnected(addr string) {
	delete(c.active, addr)
}

// Run drives the connect loop until ctx is cancelled: whenever under the
// outbound target, it selects a candidate address and attempts to dial it.
func (c *ConnManager) Run(ctx context.Context, dial func(ctx context.Context, addr string) error) {
	ticker := time.NewTicker(c.cfg.RetryDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx, dial)
		}
	}
}

func (c *ConnManager) tick(ctx context.Context, dial func(ctx context.Context, addr string) error) {
	need := c.NeededConnections()
	if need <= 0 {
		return
	}
	candidates := c.source.Select(need, time.Now())
	for _, p := range candidates {
		if _, ok := c.active[p.Addr]; ok {
			continue
		}
		c.source.MarkAttempt(p.Addr, time.Now())
		if err := dial(ctx, p.Addr); err != nil {
			if c.cfg.OnConnectFail != nil {
				c.cfg.OnConnectFail(p.Addr, err)
			}
			continue
		}
		c.Connected(p.Addr)
	}
}
