// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wot

import (
	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/storage"
)

// read paths over committed state, used by the query surface and by
// the rule engine context

// GetRecord - the stored state of an identity
func GetRecord(owner *account.Account) (*Record, bool) {
	buffer := storage.Pool.Identities.Get(owner.Bytes())
	if nil == buffer {
		return nil, false
	}
	record, err := RecordFromBytes(buffer)
	if nil != err {
		return nil, false
	}
	return record, true
}

// GetRecordTrx - the state of an identity inside a transaction
func GetRecordTrx(trx storage.Transaction, owner *account.Account) (*Record, bool) {
	record, err := getRecord(trx, owner.Bytes())
	if nil != err {
		return nil, false
	}
	return record, true
}

// UidFor - the uid bound to a public key
func UidFor(owner *account.Account) (string, bool) {
	record, ok := GetRecord(owner)
	if !ok {
		return "", false
	}
	return record.Uid, true
}

// AccountForUid - reverse lookup from uid to account
func AccountForUid(uid string) (*account.Account, bool) {
	packedAccount := storage.Pool.Uids.Get([]byte(uid))
	if nil == packedAccount {
		return nil, false
	}
	owner, err := account.AccountFromBytes(packedAccount)
	if nil != err {
		return nil, false
	}
	return owner, true
}
