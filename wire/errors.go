// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "fmt"

// FormatError signals malformed bytes on the wire or in storage (spec §7
// error taxonomy item 2). It is returned by codec and framing routines
// whenever a byte string cannot be a well-formed encoding of the type being
// decoded.
type FormatError struct {
	Kind string
}

func (e *FormatError) Error() string {
	return e.Kind
}

// FormatErrorf builds a FormatError from a format string.
func FormatErrorf(format string, args ...interface{}) error {
	return &FormatError{Kind: fmt.Sprintf(format, args...)}
}

// WrongNetwork is returned when a message's magic does not match the
// configured network magic (spec §4.1).
var ErrWrongNetwork = &FormatError{Kind: "WrongNetwork"}
