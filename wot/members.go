// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wot

import (
	"bytes"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// the current member set as one point readable record so a write
// transaction always sees its own pending membership changes, the
// pool iterators only see committed records
//
// accounts never start with a zero byte so the key cannot collide
var membersKey = []byte{0x00, 'M', 'E', 'M', 'B', 'E', 'R', 'S'}

// decode the member list record, packed accounts in ascending byte order
func memberList(trx storage.Transaction) ([][]byte, error) {
	buffer := trx.Get(storage.Pool.Identities, membersKey)
	return splitAccounts(buffer)
}

func splitAccounts(buffer []byte) ([][]byte, error) {
	if 0 != len(buffer)%account.PackedLength {
		return nil, fault.CorruptedIdentityRecord
	}
	list := make([][]byte, 0, len(buffer)/account.PackedLength)
	for i := 0; i < len(buffer); i += account.PackedLength {
		list = append(list, buffer[i:i+account.PackedLength])
	}
	return list, nil
}

func joinAccounts(list [][]byte) []byte {
	buffer := make([]byte, 0, len(list)*account.PackedLength)
	for _, item := range list {
		buffer = append(buffer, item...)
	}
	return buffer
}

// insert an account into the member list keeping the order
func addMember(trx storage.Transaction, packedAccount []byte) error {
	list, err := memberList(trx)
	if nil != err {
		return err
	}
	position := len(list)
	for i, item := range list {
		c := bytes.Compare(item, packedAccount)
		if 0 == c {
			return fault.CorruptedIdentityRecord // already a member
		}
		if c > 0 {
			position = i
			break
		}
	}
	list = append(list, nil)
	copy(list[position+1:], list[position:])
	list[position] = packedAccount
	trx.Put(storage.Pool.Identities, membersKey, joinAccounts(list))
	return nil
}

// remove an account from the member list
func removeMember(trx storage.Transaction, packedAccount []byte) error {
	list, err := memberList(trx)
	if nil != err {
		return err
	}
	for i, item := range list {
		if bytes.Equal(item, packedAccount) {
			trx.Put(storage.Pool.Identities, membersKey,
				joinAccounts(append(list[:i], list[i+1:]...)))
			return nil
		}
	}
	return fault.CorruptedIdentityRecord // was not a member
}

// Members - all active member accounts in ascending packed byte order
//
// reads through the transaction so pending changes of the enclosing
// write are visible, pass nil to read committed state
func Members(trx storage.Transaction) ([]*account.Account, error) {
	buffer := []byte(nil)
	if nil == trx {
		buffer = storage.Pool.Identities.Get(membersKey)
	} else {
		buffer = trx.Get(storage.Pool.Identities, membersKey)
	}

	list, err := splitAccounts(buffer)
	if nil != err {
		return nil, err
	}

	members := make([]*account.Account, len(list))
	for i, item := range list {
		members[i], err = account.AccountFromBytes(item)
		if nil != err {
			return nil, fault.CorruptedIdentityRecord
		}
	}
	return members, nil
}

// MembersCount - size of the current member set
func MembersCount(trx storage.Transaction) (uint64, error) {
	buffer := []byte(nil)
	if nil == trx {
		buffer = storage.Pool.Identities.Get(membersKey)
	} else {
		buffer = trx.Get(storage.Pool.Identities, membersKey)
	}
	if 0 != len(buffer)%account.PackedLength {
		return 0, fault.CorruptedIdentityRecord
	}
	return uint64(len(buffer) / account.PackedLength), nil
}
