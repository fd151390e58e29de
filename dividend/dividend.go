// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package dividend - history of universal dividend issuance
//
// Three key shapes share the Dividends pool:
//
//	'A' + height  → dividend amount created by that block
//	'R' + height  → the members credited, in the order they were paid
//	'M' + account → ascending heights at which the account was paid
//
// The recipient list is what makes revert exact: the member set may
// have changed since the dividend was created, so the list credited
// at apply time is recorded rather than recomputed.
package dividend

import (
	"encoding/binary"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// key tags inside the pool
const (
	amountTag     = 'A'
	recipientsTag = 'R'
	memberTag     = 'M'
)

func heightKey(tag byte, height uint64) []byte {
	key := make([]byte, 9)
	key[0] = tag
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}

func memberKey(owner *account.Account) []byte {
	return append([]byte{memberTag}, owner.Bytes()...)
}

// Apply - record a dividend creation
func Apply(trx storage.Transaction, height uint64, amount uint64, members []*account.Account) error {
	if 0 == amount {
		return nil
	}

	trx.PutN(storage.Pool.Dividends, heightKey(amountTag, height), amount)

	recipients := make([]byte, 0, len(members)*account.PackedLength)
	for _, member := range members {
		recipients = append(recipients, member.Bytes()...)

		key := memberKey(member)
		heights := trx.Get(storage.Pool.Dividends, key)
		extended := make([]byte, len(heights), len(heights)+8)
		copy(extended, heights)
		extended = extended[:len(heights)+8]
		binary.BigEndian.PutUint64(extended[len(heights):], height)
		trx.Put(storage.Pool.Dividends, key, extended)
	}
	trx.Put(storage.Pool.Dividends, heightKey(recipientsTag, height), recipients)
	return nil
}

// Revert - remove a dividend creation record
func Revert(trx storage.Transaction, height uint64, amount uint64, members []*account.Account) error {
	if 0 == amount {
		return nil
	}

	for i := len(members) - 1; i >= 0; i -= 1 {
		key := memberKey(members[i])
		heights := trx.Get(storage.Pool.Dividends, key)
		if len(heights) < 8 || height != binary.BigEndian.Uint64(heights[len(heights)-8:]) {
			return fault.CorruptedDividendRecord
		}
		if 8 == len(heights) {
			trx.Delete(storage.Pool.Dividends, key)
		} else {
			trx.Put(storage.Pool.Dividends, key, append([]byte(nil), heights[:len(heights)-8]...))
		}
	}

	trx.Delete(storage.Pool.Dividends, heightKey(recipientsTag, height))
	trx.Delete(storage.Pool.Dividends, heightKey(amountTag, height))
	return nil
}

// AmountAt - the dividend created at a height, zero when none
func AmountAt(height uint64) (uint64, bool) {
	return storage.Pool.Dividends.GetN(heightKey(amountTag, height))
}

// RecipientsAt - the members credited at a height
//
// reads through the transaction when one is supplied so a reorg sees
// its own pending state
func RecipientsAt(trx storage.Transaction, height uint64) ([]*account.Account, error) {
	key := heightKey(recipientsTag, height)

	buffer := []byte(nil)
	if nil == trx {
		buffer = storage.Pool.Dividends.Get(key)
	} else {
		buffer = trx.Get(storage.Pool.Dividends, key)
	}
	if 0 != len(buffer)%account.PackedLength {
		return nil, fault.CorruptedDividendRecord
	}

	recipients := make([]*account.Account, 0, len(buffer)/account.PackedLength)
	for i := 0; i < len(buffer); i += account.PackedLength {
		member, err := account.AccountFromBytes(buffer[i : i+account.PackedLength])
		if nil != err {
			return nil, fault.CorruptedDividendRecord
		}
		recipients = append(recipients, member)
	}
	return recipients, nil
}

// ReceivedBy - the heights at which an account was paid a dividend
func ReceivedBy(owner *account.Account) ([]uint64, error) {
	buffer := storage.Pool.Dividends.Get(memberKey(owner))
	if 0 != len(buffer)%8 {
		return nil, fault.CorruptedDividendRecord
	}

	heights := make([]uint64, 0, len(buffer)/8)
	for i := 0; i < len(buffer); i += 8 {
		heights = append(heights, binary.BigEndian.Uint64(buffer[i:]))
	}
	return heights, nil
}
