// Copyright (c) 2017 Takatoshi Nakagawa
// Copyright (c) 2019-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bech32 implements the external bech32_decode/bech32_encode
// contract (spec §1) used by the output-whitelist rule to recognize
// P2WPKH/P2WSH addresses under the "xds" human-readable part.
package bech32

import (
	"fmt"
	"strings"
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var charsetRev = buildReverseCharset()

func buildReverseCharset() [128]int8 {
	var rev [128]int8
	for i := range rev {
		rev[i] = -1
	}
	for i, c := range charset {
		rev[c] = int8(i)
	}
	return rev
}

func polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		b := byte(chk >> 25)
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (b>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func hrpExpand(hrp string) []byte {
	v := make([]byte, 0, len(hrp)*2+1)
	for i := 0; i < len(hrp); i++ {
		v = append(v, hrp[i]>>5)
	}
	v = append(v, 0)
	for i := 0; i < len(hrp); i++ {
		v = append(v, hrp[i]&31)
	}
	return v
}

func createChecksum(hrp string, data []byte) []byte {
	values := append(hrpExpand(hrp), data...)
	values = append(values, 0, 0, 0, 0, 0, 0)
	mod := polymod(values) ^ 1
	checksum := make([]byte, 6)
	for i := 0; i < 6; i++ {
		checksum[i] = byte((mod >> uint(5*(5-i))) & 31)
	}
	return checksum
}

func verifyChecksum(hrp string, data []byte) bool {
	return polymod(append(hrpExpand(hrp), data...)) == 1
}

// Encode encodes hrp and a sequence of 5-bit groups into a bech32 string.
func Encode(hrp string, data []byte) (string, error) {
	combined := append(data, createChecksum(hrp, data)...)
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteByte('1')
	for _, p := range combined {
		if int(p) >= len(charset) {
			return "", fmt.Errorf("invalid 5-bit group value %d", p)
		}
		sb.WriteByte(charset[p])
	}
	return sb.String(), nil
}

// Decode decodes a bech32 string into its human-readable part and data,
// validating the checksum.
func Decode(bech string) (hrp string, data []byte, err error) {
	if len(bech) < 8 || len(bech) > 90 {
		return "", nil, fmt.Errorf("invalid bech32 string length %d", len(bech))
	}
	for _, c := range bech {
		if c < 33 || c > 126 {
			return "", nil, fmt.Errorf("invalid character in bech32 string: %v", c)
		}
	}
	lower := strings.ToLower(bech)
	upper := strings.ToUpper(bech)
	if bech != lower && bech != upper {
		return "", nil, fmt.Errorf("bech32 string has mixed case")
	}
	bech = lower

	sep := strings.LastIndex(bech, "1")
	if sep < 1 || sep+7 > len(bech) {
		return "", nil, fmt.Errorf("invalid separator index %d", sep)
	}

	hrp = bech[:sep]
	dataStr := bech[sep+1:]

	decoded := make([]byte, len(dataStr))
	for i, c := range dataStr {
		if int(c) >= len(charsetRev) || charsetRev[c] == -1 {
			return "", nil, fmt.Errorf("invalid character not part of charset: %v", c)
		}
		decoded[i] = byte(charsetRev[c])
	}

	if !verifyChecksum(hrp, decoded) {
		return "", nil, fmt.Errorf("checksum failed for %s", bech)
	}

	return hrp, decoded[:len(decoded)-6], nil
}

// ConvertBits regroups a sequence of bit-width `fromBits` integers into a
// sequence of bit-width `toBits` integers, used to translate between the
// 8-bit script-hash bytes and bech32's 5-bit alphabet.
func ConvertBits(data []byte, fromBits, toBits uint8, pad bool) ([]byte, error) {
	if fromBits < 1 || fromBits > 8 || toBits < 1 || toBits > 8 {
		return nil, fmt.Errorf("invalid bit groups")
	}

	acc := uint32(0)
	bits := uint8(0)
	maxv := uint32(1<<toBits) - 1
	var ret []byte
	for _, value := range data {
		if int(value>>fromBits) != 0 {
			return nil, fmt.Errorf("invalid data range for bit conversion")
		}
		acc = (acc << fromBits) | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, fmt.Errorf("invalid incomplete group")
	}

	return ret, nil
}
