// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// rateLimit enforces spec §4.7's "rate-limit" acceptance step for
// transactions paying below FreeFeeRateFloor: a continuously decaying
// byte budget bounds how much sub-floor-fee-rate vsize the pool admits
// per minute, the same shape Bitcoin Core's historical free-transaction
// limiter uses, adapted to this pool's vsize accounting. Callers must
// hold mp.mu.
func (mp *Mempool) rateLimit(vsize int64) error {
	now := mp.now()
	elapsed := now.Sub(mp.lastFreeDecay)
	if elapsed > 0 {
		decay := elapsed.Minutes() * mp.cfg.FreeBytesPerMinute
		mp.freeBytesWindow -= decay
		if mp.freeBytesWindow < 0 {
			mp.freeBytesWindow = 0
		}
		mp.lastFreeDecay = now
	}
	if mp.freeBytesWindow+float64(vsize) > mp.cfg.FreeBytesPerMinute {
		return policyError(ErrRateLimited, "")
	}
	mp.freeBytesWindow += float64(vsize)
	return nil
}
