// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package balance - spendable value per output condition
//
// Three pools cooperate:
//
//	Balances  condition → amount and the sources backing it
//	Unspent   source id → amount and owning condition
//	Consumed  height + source id → shadow of a spent source
//
// The balance amount always equals the sum of its listed sources, a
// record violating that is corruption, never user error. Consumed
// shadows are what make revert exact, they hold the spent source
// until the block falls outside the fork window.
package balance

import (
	"bytes"
	"encoding/binary"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// Entry - one balance record
type Entry struct {
	Amount  uint64              `json:"amount"`
	Sources []document.SourceID `json:"sources"`
}

// Pack - binary representation, amount then sources in id byte order
func (entry *Entry) Pack() []byte {
	buffer := make([]byte, 8, 8+len(entry.Sources)*document.SourceIDLength)
	binary.BigEndian.PutUint64(buffer, entry.Amount)
	for _, id := range entry.Sources {
		buffer = append(buffer, id.Pack()...)
	}
	return buffer
}

// EntryFromBytes - decode a stored balance record
func EntryFromBytes(buffer []byte) (*Entry, error) {
	if len(buffer) < 8 || 0 != (len(buffer)-8)%document.SourceIDLength {
		return nil, fault.CorruptedBalanceRecord
	}

	entry := &Entry{
		Amount: binary.BigEndian.Uint64(buffer[:8]),
	}
	for i := 8; i < len(buffer); i += document.SourceIDLength {
		id, err := document.SourceIDFromBytes(buffer[i : i+document.SourceIDLength])
		if nil != err {
			return nil, fault.CorruptedBalanceRecord
		}
		entry.Sources = append(entry.Sources, id)
	}
	return entry, nil
}

// unspent record: amount then owning condition
const unspentLength = 8 + account.PackedLength

func packUnspent(amount uint64, owner *account.Account) []byte {
	buffer := make([]byte, unspentLength)
	binary.BigEndian.PutUint64(buffer[:8], amount)
	copy(buffer[8:], owner.Bytes())
	return buffer
}

func unpackUnspent(buffer []byte) (uint64, *account.Account, error) {
	if unspentLength != len(buffer) {
		return 0, nil, fault.CorruptedBalanceRecord
	}
	owner, err := account.AccountFromBytes(buffer[8:])
	if nil != err {
		return 0, nil, fault.CorruptedBalanceRecord
	}
	return binary.BigEndian.Uint64(buffer[:8]), owner, nil
}

// consumed shadow key: big endian spend height then source id
func consumedKey(height uint64, id document.SourceID) []byte {
	key := make([]byte, 8, 8+document.SourceIDLength)
	binary.BigEndian.PutUint64(key, height)
	return append(key, id.Pack()...)
}

// add a source to a condition's balance
func credit(trx storage.Transaction, owner *account.Account, id document.SourceID, amount uint64) error {
	key := owner.Bytes()

	entry := &Entry{}
	if buffer := trx.Get(storage.Pool.Balances, key); nil != buffer {
		var err error
		entry, err = EntryFromBytes(buffer)
		if nil != err {
			return err
		}
	}

	packedID := id.Pack()
	position := len(entry.Sources)
	for i, existing := range entry.Sources {
		c := bytes.Compare(existing.Pack(), packedID)
		if 0 == c {
			return fault.UnbalancedCondition // source credited twice
		}
		if c > 0 {
			position = i
			break
		}
	}
	entry.Sources = append(entry.Sources, document.SourceID{})
	copy(entry.Sources[position+1:], entry.Sources[position:])
	entry.Sources[position] = id
	entry.Amount += amount

	trx.Put(storage.Pool.Balances, key, entry.Pack())
	return nil
}

// remove a source from a condition's balance
func debit(trx storage.Transaction, owner *account.Account, id document.SourceID, amount uint64) error {
	key := owner.Bytes()

	buffer := trx.Get(storage.Pool.Balances, key)
	if nil == buffer {
		return fault.UnbalancedCondition
	}
	entry, err := EntryFromBytes(buffer)
	if nil != err {
		return err
	}
	if entry.Amount < amount {
		return fault.NegativeBalance
	}

	found := false
	for i, existing := range entry.Sources {
		if existing == id {
			entry.Sources = append(entry.Sources[:i], entry.Sources[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return fault.UnbalancedCondition
	}
	entry.Amount -= amount

	if 0 == entry.Amount && 0 == len(entry.Sources) {
		trx.Delete(storage.Pool.Balances, key)
	} else {
		trx.Put(storage.Pool.Balances, key, entry.Pack())
	}
	return nil
}
