// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the 256-bit content-addressed hash type used
// throughout the chain: block and transaction identifiers, merkle nodes,
// and stake modifiers are all Hash values.
package chainhash

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a
// hash string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is used in several of the chain messages and common structures. It
// typically represents the double hash256 of data.
//
// Byte order: the internal representation stores the hash as it is produced
// by the hash function (little-endian on the wire). String and big-endian
// comparisons reverse that order, matching the convention of displaying
// hashes as big numbers.
type Hash [HashSize]byte

// String returns the Hash as the hexadecimal string of the byte-reversed
// hash.
func (h Hash) String() string {
	var buf [HashSize]byte
	reverse(&buf, h)
	return hex.EncodeToString(buf[:])
}

// CloneBytes returns a copy of the bytes in h. Changing the returned slice
// does not alter h.
func (h *Hash) CloneBytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// SetBytes sets the bytes that make up the hash to buf. An error is
// returned if the provided slice is not the correct size.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", len(newHash), HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// IsEqual returns true if both hashes are identical, treating nil as equal
// to the zero hash.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// Less reports whether h is numerically less than other, comparing as
// unsigned big-endian integers (spec §3: "compared as unsigned big-endian").
func (h Hash) Less(other Hash) bool {
	for i := HashSize - 1; i >= 0; i-- {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}

func reverse(dst *[HashSize]byte, src Hash) {
	for i, b := range src[:HashSize/2] {
		dst[i], dst[HashSize-1-i] = src[HashSize-1-i], b
	}
}

// NewHash returns a new Hash from a byte slice. An error is returned if the
// slice is not the correct size.
func NewHash(newHash []byte) (*Hash, error) {
	var sh Hash
	if err := sh.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &sh, nil
}

// NewHashFromStr creates a Hash from a hash string. The string should be the
// hexadecimal string of a byte-reversed hash, but any missing characters
// result in zero padding at the end of the hash.
func NewHashFromStr(hash string) (*Hash, error) {
	ret := new(Hash)
	err := Decode(ret, hash)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Decode decodes the byte-reversed hexadecimal string encoding of a Hash to
// a destination.
func Decode(dst *Hash, src string) error {
	if len(src) > MaxHashStringSize {
		return ErrHashStrSize
	}

	var srcBytes []byte
	if len(src)%2 == 0 {
		srcBytes = []byte(src)
	} else {
		srcBytes = make([]byte, 1+len(src))
		srcBytes[0] = '0'
		copy(srcBytes[1:], src)
	}

	var reversedHash Hash
	_, err := hex.Decode(reversedHash[HashSize-hex.DecodedLen(len(srcBytes)):], srcBytes)
	if err != nil {
		return err
	}

	reverse((*[HashSize]byte)(dst), reversedHash)
	return nil
}
