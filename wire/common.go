// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the canonical, deterministic binary codec and
// peer-to-peer message framing described in spec §4.1: fixed-width
// integers, the variable-length integer, length-prefixed arrays, and the
// transaction/block/header serialization that the rest of the node treats
// as the wire form of chain data.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xds-project/xdsd/chaincfg/chainhash"
)

// MaxVarIntPayload is the maximum payload size, in bytes, for a variable
// length integer.
const MaxVarIntPayload = 9

// errNonCanonicalVarInt is returned when a variable length integer is
// encoded in a non-canonical way (e.g. using 8 bytes for a value that fits
// in 1), violating the deterministic round-trip invariant of spec §4.1.
var errNonCanonicalVarInt = fmt.Errorf("non-canonical varint encoding")

// ReadVarInt reads a variable length integer from r and returns it as a
// uint64, rejecting any non-canonical encoding.
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, err
	}

	var rv uint64
	switch prefix[0] {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = binary.LittleEndian.Uint64(buf[:])
		if rv < 0x100000000 {
			return 0, errNonCanonicalVarInt
		}
	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint32(buf[:]))
		if rv < 0x10000 {
			return 0, errNonCanonicalVarInt
		}
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		rv = uint64(binary.LittleEndian.Uint16(buf[:]))
		if rv < 0xfd {
			return 0, errNonCanonicalVarInt
		}
	default:
		rv = uint64(prefix[0])
	}
	return rv, nil
}

// WriteVarInt serializes val to w using the canonical minimal encoding.
func WriteVarInt(w io.Writer, val uint64) error {
	if val < 0xfd {
		_, err := w.Write([]byte{byte(val)})
		return err
	}
	if val <= 0xffff {
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
		_, err := w.Write(buf[:])
		return err
	}
	if val <= 0xffffffff {
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
		_, err := w.Write(buf[:])
		return err
	}
	buf := make([]byte, 9)
	buf[0] = 0xff
	binary.LittleEndian.PutUint64(buf[1:], val)
	_, err := w.Write(buf[:])
	return err
}

// VarIntSerializeSize returns the number of bytes it would take to
// serialize val as a variable length integer.
func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// ReadVarBytes reads a variable length byte array, bounded by maxAllowed,
// returning an error if the encoded length exceeds the bound (guards
// against a hostile peer allocating unbounded memory from a length prefix).
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		return nil, fmt.Errorf("%s exceeds max length %d", fieldName, maxAllowed)
	}
	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes serializes a variable length byte array.
func WriteVarBytes(w io.Writer, bytes []byte) error {
	if err := WriteVarInt(w, uint64(len(bytes))); err != nil {
		return err
	}
	_, err := w.Write(bytes)
	return err
}

// ReadVarString reads a variable length string, bounded by maxAllowed.
func ReadVarString(r io.Reader, maxAllowed uint64) (string, error) {
	b, err := ReadVarBytes(r, maxAllowed, "VarString")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteVarString serializes a variable length string.
func WriteVarString(w io.Writer, s string) error {
	return WriteVarBytes(w, []byte(s))
}

func readHash(r io.Reader, h *chainhash.Hash) error {
	_, err := io.ReadFull(r, h[:])
	return err
}

func writeHash(w io.Writer, h *chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}
