// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

import "testing"

func TestCalcBlockSubsidy(t *testing.T) {
	const base = 50 * 1e8
	const interval = 210000

	tests := []struct {
		height int64
		want   int64
	}{
		{0, 50 * 1e8},
		{209999, 50 * 1e8},
		{210000, 25 * 1e8},
		{interval * 64, 0},
		{13440000, 0},
	}
	for _, tc := range tests {
		got := CalcBlockSubsidy(tc.height, base, interval)
		if got != tc.want {
			t.Errorf("CalcBlockSubsidy(%d) = %d, want %d", tc.height, got, tc.want)
		}
	}
}
