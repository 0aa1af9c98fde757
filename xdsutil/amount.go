// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package xdsutil provides small value types shared across the node that
// do not belong to any single consensus component: coin amounts and the
// absolute minimum transaction fee.
package xdsutil

import (
	"errors"
	"math"
	"strconv"
)

// AmountUnit describes a method of converting an Amount to a floating
// point representation.
type AmountUnit int

// Coin-denominated amount units.
const (
	AmountMegaCoin  AmountUnit = 6
	AmountKiloCoin  AmountUnit = 3
	AmountCoin      AmountUnit = 0
	AmountMilliCoin AmountUnit = -3
	AmountMicroCoin AmountUnit = -6
	AmountSatoshi   AmountUnit = -8
)

// String returns the unit's suffix.
func (u AmountUnit) String() string {
	switch u {
	case AmountMegaCoin:
		return "MCoin"
	case AmountKiloCoin:
		return "kCoin"
	case AmountCoin:
		return "Coin"
	case AmountMilliCoin:
		return "mCoin"
	case AmountMicroCoin:
		return "µCoin"
	case AmountSatoshi:
		return "Satoshi"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " Coin"
	}
}

// Amount represents the base coin monetary unit (colloquially referred to
// as "Satoshi") as an int64.
type Amount int64

// AbsoluteMinTxFee is the absolute minimum fee a transaction must pay to be
// relayed or mined (spec §6: "1,000,000 sat").
const AbsoluteMinTxFee Amount = 1_000_000

// round converts a floating point number, which may or may not be
// representing an amount of coin, to the nearest integer.
func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

// NewAmount creates an Amount from a floating point value representing
// an amount of coin, rejecting NaN and infinite values. Finite values
// outside the int64 range are not rejected.
func NewAmount(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("invalid coin amount")
	}
	return round(f * 1e8), nil
}

// ToUnit converts a monetary amount counted in base coin units to a
// floating point value representing an amount of the given unit.
func (a Amount) ToUnit(u AmountUnit) float64 {
	return float64(a) / math.Pow10(int(u+8))
}

// ToCoin is a convenience for ToUnit(AmountCoin).
func (a Amount) ToCoin() float64 {
	return a.ToUnit(AmountCoin)
}

// MulF64 multiplies an Amount by a floating point value, rounding the
// result to the nearest base unit.
func (a Amount) MulF64(f float64) Amount {
	return round(float64(a) * f)
}
