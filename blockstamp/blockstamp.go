// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2025 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstamp

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/fault"
)

// Length - number of bytes in a packed blockstamp
const Length = 8 + blockdigest.Length

// Blockstamp - a chain position as height and block digest
type Blockstamp struct {
	Height uint64
	Digest blockdigest.Digest
}

// Pack - binary representation, big endian height then digest bytes
func (b Blockstamp) Pack() []byte {
	buffer := make([]byte, Length)
	binary.BigEndian.PutUint64(buffer[:8], b.Height)
	copy(buffer[8:], b.Digest[:])
	return buffer
}

// Unpack - decode a packed blockstamp
func (b *Blockstamp) Unpack(buffer []byte) error {
	if Length != len(buffer) {
		return fault.InvalidBlockstamp
	}
	b.Height = binary.BigEndian.Uint64(buffer[:8])
	return blockdigest.DigestFromBytes(&b.Digest, buffer[8:])
}

// String - printable form: HEIGHT-HEXDIGEST
func (b Blockstamp) String() string {
	return fmt.Sprintf("%d-%s", b.Height, b.Digest)
}

// Parse - decode the printable form
func Parse(s string) (Blockstamp, error) {
	b := Blockstamp{}

	parts := strings.SplitN(s, "-", 2)
	if 2 != len(parts) {
		return b, fault.InvalidBlockstamp
	}

	height, err := strconv.ParseUint(parts[0], 10, 64)
	if nil != err {
		return b, fault.InvalidBlockstamp
	}

	if 2*blockdigest.Length != len(parts[1]) {
		return b, fault.InvalidBlockstamp
	}
	n, err := fmt.Sscan(parts[1], &b.Digest)
	if nil != err || 1 != n {
		return b, fault.InvalidBlockstamp
	}

	b.Height = height
	return b, nil
}

// MarshalText - printable form for JSON encoding
func (b Blockstamp) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText - decode the printable form for JSON decoding
func (b *Blockstamp) UnmarshalText(s []byte) error {
	parsed, err := Parse(string(s))
	if nil != err {
		return err
	}
	*b = parsed
	return nil
}
