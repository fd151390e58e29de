// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package balance

import (
	"bytes"
	"encoding/binary"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/storage"
)

// Get - the committed balance of a condition
func Get(owner *account.Account) (*Entry, bool) {
	buffer := storage.Pool.Balances.Get(owner.Bytes())
	if nil == buffer {
		return nil, false
	}
	entry, err := EntryFromBytes(buffer)
	if nil != err {
		return nil, false
	}
	return entry, true
}

// TotalBalances - sum of all committed balance amounts
func TotalBalances() (uint64, error) {
	total := uint64(0)
	cursor := storage.Pool.Balances.NewFetchCursor()
	err := cursor.Map(func(key []byte, value []byte) error {
		entry, err := EntryFromBytes(value)
		if nil != err {
			return err
		}
		total += entry.Amount
		return nil
	})
	return total, err
}

// TotalUnspent - sum of all committed unspent source amounts
func TotalUnspent() (uint64, error) {
	total := uint64(0)
	cursor := storage.Pool.Unspent.NewFetchCursor()
	err := cursor.Map(func(key []byte, value []byte) error {
		amount, _, err := unpackUnspent(value)
		if nil != err {
			return err
		}
		total += amount
		return nil
	})
	return total, err
}

// PruneConsumed - drop consumed shadows below a height
//
// their blocks are outside the fork window so the shadows can never
// be needed by a revert again
func PruneConsumed(trx storage.Transaction, height uint64) error {
	cutoff := make([]byte, 8)
	binary.BigEndian.PutUint64(cutoff, height)

	stale := [][]byte(nil)
	cursor := storage.Pool.Consumed.NewFetchCursor()
	err := cursor.Map(func(key []byte, value []byte) error {
		if len(key) >= 8 && bytes.Compare(key[:8], cutoff) < 0 {
			stale = append(stale, append([]byte(nil), key...))
		}
		return nil
	})
	if nil != err {
		return err
	}

	for _, key := range stale {
		trx.Delete(storage.Pool.Consumed, key)
	}
	return nil
}
