// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wot - the identity and trust state of all participants
//
// One record per declared identity keyed by its packed account. The
// record keeps the current membership status together with one level
// of previous values so a revert of the immediately preceding block
// can restore the record exactly. Reverts deeper than one block per
// identity are outside the design, the write coordinator only ever
// reverts block by block.
//
// Certification and membership lifetimes are tracked through expiry
// buckets keyed by the height at which they lapse, so the pruning of
// stale trust edges never rescans history.
package wot

import (
	"encoding/binary"

	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/util"
)

// Status - membership state of an identity
type Status byte

// all possible status values
const (
	Nothing            = Status(iota) // reserved, never stored
	Declared           = Status(iota) // identity published, never a member
	Member             = Status(iota) // active member
	Expired            = Status(iota) // resigned from the member set
	Revoked            = Status(iota) // explicitly revoked while a member
	RevokedAfterExpiry = Status(iota) // explicitly revoked after leaving
	ImplicitlyRevoked  = Status(iota) // membership lapsed without renewal

	statusLimit = Status(iota)
)

// String - printable form for logs and diagnostics
func (status Status) String() string {
	switch status {
	case Declared:
		return "declared"
	case Member:
		return "member"
	case Expired:
		return "expired"
	case Revoked:
		return "revoked"
	case RevokedAfterExpiry:
		return "revoked-after-expiry"
	case ImplicitlyRevoked:
		return "implicitly-revoked"
	default:
		return "invalid"
	}
}

// IsActive - only active members may issue blocks or receive dividends
func (status Status) IsActive() bool {
	return Member == status
}

// Record - the stored state of one identity
type Record struct {
	Uid       string
	Status    Status
	Since     blockstamp.Blockstamp // position that caused the current status
	RenewedAt uint64                // chain time of the latest join

	// one level of undo, zeroed after a restore
	PreviousStatus    Status
	PreviousSince     blockstamp.Blockstamp
	PreviousRenewedAt uint64
}

// save the mutable fields before a transition
func (record *Record) transition(status Status, position blockstamp.Blockstamp) {
	record.PreviousStatus = record.Status
	record.PreviousSince = record.Since
	record.PreviousRenewedAt = record.RenewedAt

	record.Status = status
	record.Since = position
}

// undo the latest transition, the saved level is consumed
func (record *Record) restore() error {
	if Nothing == record.PreviousStatus {
		return fault.CorruptedIdentityRecord
	}
	record.Status = record.PreviousStatus
	record.Since = record.PreviousSince
	record.RenewedAt = record.PreviousRenewedAt

	record.PreviousStatus = Nothing
	record.PreviousSince = blockstamp.Blockstamp{}
	record.PreviousRenewedAt = 0
	return nil
}

// Pack - binary representation of a record
func (record *Record) Pack() []byte {
	buffer := make([]byte, 0, 2+2*blockstamp.Length+16+len(record.Uid)+2)

	buffer = append(buffer, byte(record.Status), byte(record.PreviousStatus))
	buffer = append(buffer, record.Since.Pack()...)
	buffer = append(buffer, record.PreviousSince.Pack()...)

	scratch := make([]byte, 16)
	binary.BigEndian.PutUint64(scratch[0:], record.RenewedAt)
	binary.BigEndian.PutUint64(scratch[8:], record.PreviousRenewedAt)
	buffer = append(buffer, scratch...)

	buffer = append(buffer, util.ToVarint64(uint64(len(record.Uid)))...)
	buffer = append(buffer, record.Uid...)
	return buffer
}

// RecordFromBytes - decode a stored record
func RecordFromBytes(buffer []byte) (*Record, error) {
	fixed := 2 + 2*blockstamp.Length + 16
	if len(buffer) < fixed+1 {
		return nil, fault.CorruptedIdentityRecord
	}

	record := &Record{
		Status:         Status(buffer[0]),
		PreviousStatus: Status(buffer[1]),
	}
	if record.Status <= Nothing || record.Status >= statusLimit {
		return nil, fault.CorruptedIdentityRecord
	}
	if record.PreviousStatus >= statusLimit {
		return nil, fault.CorruptedIdentityRecord
	}

	n := 2
	err := record.Since.Unpack(buffer[n : n+blockstamp.Length])
	if nil != err {
		return nil, fault.CorruptedIdentityRecord
	}
	n += blockstamp.Length
	err = record.PreviousSince.Unpack(buffer[n : n+blockstamp.Length])
	if nil != err {
		return nil, fault.CorruptedIdentityRecord
	}
	n += blockstamp.Length

	record.RenewedAt = binary.BigEndian.Uint64(buffer[n:])
	record.PreviousRenewedAt = binary.BigEndian.Uint64(buffer[n+8:])
	n += 16

	length, vn := util.FromVarint64(buffer[n:])
	if 0 == vn || len(buffer) != n+vn+int(length) {
		return nil, fault.CorruptedIdentityRecord
	}
	record.Uid = string(buffer[n+vn:])
	return record, nil
}
