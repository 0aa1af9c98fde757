// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
)

// CommandSize is the fixed size, in bytes, of the ASCII, zero-padded
// command field in a message header (spec §4.1).
const CommandSize = 12

// MessageHeaderSize is the total byte size of a message header: magic (4)
// + command (12) + length (4) + checksum (4).
const MessageHeaderSize = 4 + CommandSize + 4 + 4

// Command strings for the gossip messages named in spec §4.8.
const (
	CmdVersion    = "version"
	CmdVerAck     = "verack"
	CmdGetAddr    = "getaddr"
	CmdAddr       = "addr"
	CmdInv        = "inv"
	CmdGetData    = "getdata"
	CmdNotFound   = "notfound"
	CmdGetHeaders = "getheaders"
	CmdHeaders    = "headers"
	CmdGetBlocks  = "getblocks"
	CmdTx         = "tx"
	CmdBlock      = "block"
	CmdPing       = "ping"
	CmdPong       = "pong"
	CmdReject     = "reject"
)

// MessageHeader is the fixed-size envelope preceding every message payload
// on the wire (spec §4.1): `magic || command || length || checksum`.
type MessageHeader struct {
	Magic    uint32
	Command  string
	Length   uint32
	Checksum [4]byte
}

// HashFunc computes the checksum digest; callers supply hash256 (an
// external crypto contract, spec §1) rather than this package depending on
// a concrete hash implementation.
type HashFunc func([]byte) [32]byte

// WriteMessage serializes command and payload into the full framed message
// and writes it to w, computing the checksum with hashFn.
func WriteMessage(w io.Writer, magic uint32, command string, payload []byte, hashFn HashFunc) error {
	if len(command) > CommandSize {
		return FormatErrorf("command %q too long", command)
	}
	if len(payload) > MaxBlockPayload {
		return FormatErrorf("message payload too large: %d", len(payload))
	}

	var buf bytes.Buffer
	buf.Grow(MessageHeaderSize + len(payload))

	if err := writeUint32(&buf, magic); err != nil {
		return err
	}

	var cmdBytes [CommandSize]byte
	copy(cmdBytes[:], command)
	if _, err := buf.Write(cmdBytes[:]); err != nil {
		return err
	}

	if err := writeUint32(&buf, uint32(len(payload))); err != nil {
		return err
	}

	checksum := hashFn(payload)
	if _, err := buf.Write(checksum[:4]); err != nil {
		return err
	}

	if _, err := buf.Write(payload); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ReadMessageHeader reads and validates a message header from r against the
// expected network magic. A mismatched magic aborts with ErrWrongNetwork
// per spec §4.1.
func ReadMessageHeader(r io.Reader, wantMagic uint32) (*MessageHeader, error) {
	var hdr MessageHeader
	var err error
	hdr.Magic, err = readUint32(r)
	if err != nil {
		return nil, err
	}
	if hdr.Magic != wantMagic {
		return nil, ErrWrongNetwork
	}

	var cmdBytes [CommandSize]byte
	if _, err := io.ReadFull(r, cmdBytes[:]); err != nil {
		return nil, err
	}
	hdr.Command = commandString(cmdBytes)

	hdr.Length, err = readUint32(r)
	if err != nil {
		return nil, err
	}
	if hdr.Length > MaxBlockPayload {
		return nil, FormatErrorf("message payload too large: %d", hdr.Length)
	}

	if _, err := io.ReadFull(r, hdr.Checksum[:]); err != nil {
		return nil, err
	}

	return &hdr, nil
}

// ReadMessage reads a full framed message: header plus payload, verifying
// the checksum with hashFn.
func ReadMessage(r io.Reader, wantMagic uint32, hashFn HashFunc) (command string, payload []byte, err error) {
	hdr, err := ReadMessageHeader(r, wantMagic)
	if err != nil {
		return "", nil, err
	}

	payload = make([]byte, hdr.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", nil, err
	}

	checksum := hashFn(payload)
	if !bytes.Equal(checksum[:4], hdr.Checksum[:]) {
		return "", nil, FormatErrorf("payload checksum mismatch for command %q", hdr.Command)
	}

	return hdr.Command, payload, nil
}

func commandString(raw [CommandSize]byte) string {
	n := bytes.IndexByte(raw[:], 0)
	if n == -1 {
		n = CommandSize
	}
	return string(raw[:n])
}
