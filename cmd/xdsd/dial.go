// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net"
	"time"

	"github.com/decred/go-socks/socks"
)

// dialTimeout is the maximum time allowed for a single outbound connection
// attempt, proxied or direct.
const dialTimeout = 10 * time.Second

// newNetDialer returns the function connmgr.ConnManager.Run uses to open
// outbound connections: a direct dial, or a SOCKS5 dial through cfg.Proxy
// when one is configured. socks.Proxy has no context-aware Dial of its own,
// so a proxied dial is run on a goroutine and raced against ctx.
func newNetDialer(cfg *config) func(ctx context.Context, addr string) (net.Conn, error) {
	if cfg.Proxy == "" {
		dialer := net.Dialer{Timeout: dialTimeout}
		return dialer.DialContext
	}

	proxy := &socks.Proxy{
		Addr:     cfg.Proxy,
		Username: cfg.ProxyUser,
		Password: cfg.ProxyPass,
	}
	return func(ctx context.Context, addr string) (net.Conn, error) {
		type result struct {
			conn net.Conn
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			conn, err := proxy.Dial("tcp", addr)
			ch <- result{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
