// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"encoding/binary"
	"fmt"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/fault"
)

// Origin - whether a source was created by a transaction output or a dividend
type Origin byte

// enumerate the possible source origins
const (
	// zero is reserved, never valid on the wire
	nothingOrigin = Origin(iota)

	FromTransaction = Origin(iota) // digest is a transaction id, N is the output index
	FromDividend    = Origin(iota) // digest identifies the member, N is the block height

	// this item must be last
	originLimit = Origin(iota)
)

// SourceIDLength - number of bytes in a packed source id
const SourceIDLength = 1 + DigestLength + 8

// SourceID - unique identifier of a spendable source
type SourceID struct {
	Origin Origin
	Digest Digest
	N      uint64
}

// TransactionSource - the id of output "index" of a packed transaction
func TransactionSource(txId Digest, index uint64) SourceID {
	return SourceID{
		Origin: FromTransaction,
		Digest: txId,
		N:      index,
	}
}

// DividendSource - the id of the dividend credited to a member at a height
//
// the member account is hashed so all source ids share one fixed layout
func DividendSource(member *account.Account, height uint64) SourceID {
	return SourceID{
		Origin: FromDividend,
		Digest: NewDigest(member.Bytes()),
		N:      height,
	}
}

// Pack - binary representation, origin byte, digest, then big endian N
func (id SourceID) Pack() []byte {
	buffer := make([]byte, SourceIDLength)
	buffer[0] = byte(id.Origin)
	copy(buffer[1:1+DigestLength], id.Digest[:])
	binary.BigEndian.PutUint64(buffer[1+DigestLength:], id.N)
	return buffer
}

// SourceIDFromBytes - decode a packed source id
func SourceIDFromBytes(buffer []byte) (SourceID, error) {
	id := SourceID{}
	if SourceIDLength != len(buffer) {
		return id, fault.NotDocumentPack
	}
	origin := Origin(buffer[0])
	if origin <= nothingOrigin || origin >= originLimit {
		return id, fault.NotDocumentPack
	}
	id.Origin = origin
	copy(id.Digest[:], buffer[1:1+DigestLength])
	id.N = binary.BigEndian.Uint64(buffer[1+DigestLength:])
	return id, nil
}

// String - printable form for logs and JSON
func (id SourceID) String() string {
	tag := "?"
	switch id.Origin {
	case FromTransaction:
		tag = "T"
	case FromDividend:
		tag = "D"
	}
	return fmt.Sprintf("%s:%s:%d", tag, id.Digest, id.N)
}

// MarshalText - printable form for JSON encoding
func (id SourceID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
