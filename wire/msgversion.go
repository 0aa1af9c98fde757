// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// ProtocolVersion is the latest protocol version this implementation
// supports.
const ProtocolVersion uint32 = 80000

// ProvenHeadersVersion is the minimum protocol version a peer must
// negotiate to advertise proven-header support (spec §4.8: "Proven-header
// peers advertise a specific minimum protocol version").
const ProvenHeadersVersion uint32 = 80000

// Service flags advertised in the version message.
const (
	SFNodeNetwork      uint64 = 1 << 0
	SFNodeProvenHeader  uint64 = 1 << 1
)

// MsgVersion implements the version handshake message: protocol version,
// services, time, and feature flags (spec §4.8).
type MsgVersion struct {
	ProtocolVersion uint32
	Services        uint64
	Timestamp       int64
	Nonce           uint64
	UserAgent       string
	LastBlock       int32
}

func (msg *MsgVersion) Deserialize(r io.Reader) error {
	var err error
	msg.ProtocolVersion, err = readUint32(r)
	if err != nil {
		return err
	}
	msg.Services, err = readUint64(r)
	if err != nil {
		return err
	}
	msg.Timestamp, err = readInt64(r)
	if err != nil {
		return err
	}
	msg.Nonce, err = readUint64(r)
	if err != nil {
		return err
	}
	msg.UserAgent, err = ReadVarString(r, 256)
	if err != nil {
		return err
	}
	msg.LastBlock, err = readInt32(r)
	return err
}

func (msg *MsgVersion) Serialize(w io.Writer) error {
	if err := writeUint32(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := writeUint64(w, msg.Services); err != nil {
		return err
	}
	if err := writeInt64(w, msg.Timestamp); err != nil {
		return err
	}
	if err := writeUint64(w, msg.Nonce); err != nil {
		return err
	}
	if err := WriteVarString(w, msg.UserAgent); err != nil {
		return err
	}
	return writeInt32(w, msg.LastBlock)
}

// HasService reports whether the version message advertises the given
// service flag.
func (msg *MsgVersion) HasService(flag uint64) bool {
	return msg.Services&flag == flag
}

// SupportsProvenHeaders reports whether the peer's negotiated protocol
// version and service flags are sufficient for proven-header relay.
func (msg *MsgVersion) SupportsProvenHeaders() bool {
	return msg.ProtocolVersion >= ProvenHeadersVersion && msg.HasService(SFNodeProvenHeader)
}
