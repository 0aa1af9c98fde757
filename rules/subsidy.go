// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

// maxHalvings is the number of halving intervals after which the subsidy
// is defined to be zero rather than relying on a right-shift by a count
// large enough to shift every bit out (spec §4.3: "returns 0 once
// h/210_000 >= 64").
const maxHalvings = 64

// CalcBlockSubsidy implements spec §4.3's subsidy formula:
// subsidy(h) = baseSubsidy >> (h / halvingInterval), zero once the
// exponent reaches maxHalvings. The same formula applies to both PoW
// coinbase and PoS coinstake rewards.
func CalcBlockSubsidy(height int64, baseSubsidy, halvingInterval int64) int64 {
	if halvingInterval <= 0 {
		return 0
	}
	halvings := height / halvingInterval
	if halvings >= maxHalvings {
		return 0
	}
	return baseSubsidy >> uint(halvings)
}
