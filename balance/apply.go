// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package balance

import (
	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// Apply - move value for every transaction of a block, then credit
// the dividend to every member
//
// members is the member set as of the previous block, the write
// coordinator reads it before the trust state is advanced
func Apply(trx storage.Transaction, height uint64, block *blockrecord.Block, members []*account.Account) error {

	for _, tx := range block.Documents.Transactions {
		err := applyTransaction(trx, height, tx)
		if nil != err {
			return err
		}
	}

	dividend := block.Header.Dividend
	if 0 == dividend {
		return nil
	}
	for _, member := range members {
		id := document.DividendSource(member, height)
		trx.Put(storage.Pool.Unspent, id.Pack(), packUnspent(dividend, member))
		err := credit(trx, member, id, dividend)
		if nil != err {
			return err
		}
	}
	return nil
}

// Revert - exact inverse of Apply
//
// members must be the same list the apply used, recorded by the
// dividend index at apply time
func Revert(trx storage.Transaction, height uint64, block *blockrecord.Block, members []*account.Account) error {

	dividend := block.Header.Dividend
	if 0 != dividend {
		for i := len(members) - 1; i >= 0; i -= 1 {
			member := members[i]
			id := document.DividendSource(member, height)
			err := debit(trx, member, id, dividend)
			if nil != err {
				return err
			}
			trx.Delete(storage.Pool.Unspent, id.Pack())
		}
	}

	transactions := block.Documents.Transactions
	for i := len(transactions) - 1; i >= 0; i -= 1 {
		err := revertTransaction(trx, height, transactions[i])
		if nil != err {
			return err
		}
	}
	return nil
}

func applyTransaction(trx storage.Transaction, height uint64, tx *document.Transaction) error {

	packed, err := tx.Pack(tx.Owner)
	if nil != err {
		return err
	}
	txId := packed.TxId()

	// consume the inputs
	totalIn := uint64(0)
	for _, id := range tx.Inputs {
		key := id.Pack()
		stored := trx.Get(storage.Pool.Unspent, key)
		if nil == stored {
			return fault.MissingSource
		}
		amount, owner, err := unpackUnspent(stored)
		if nil != err {
			return err
		}
		if !owner.Equal(tx.Owner) {
			return fault.MissingSource // not this condition's source
		}

		err = debit(trx, owner, id, amount)
		if nil != err {
			return err
		}
		trx.Delete(storage.Pool.Unspent, key)
		trx.Put(storage.Pool.Consumed, consumedKey(height, id), stored)
		totalIn += amount
	}

	// create the outputs
	totalOut := uint64(0)
	for i, output := range tx.Outputs {
		id := document.TransactionSource(txId, uint64(i))
		trx.Put(storage.Pool.Unspent, id.Pack(), packUnspent(output.Amount, output.Recipient))
		err = credit(trx, output.Recipient, id, output.Amount)
		if nil != err {
			return err
		}
		totalOut += output.Amount
	}

	if totalIn != totalOut {
		return fault.UnbalancedTransaction
	}
	return nil
}

func revertTransaction(trx storage.Transaction, height uint64, tx *document.Transaction) error {

	packed, err := tx.Pack(tx.Owner)
	if nil != err {
		return err
	}
	txId := packed.TxId()

	// remove the outputs
	for i := len(tx.Outputs) - 1; i >= 0; i -= 1 {
		output := tx.Outputs[i]
		id := document.TransactionSource(txId, uint64(i))
		err = debit(trx, output.Recipient, id, output.Amount)
		if nil != err {
			return err
		}
		trx.Delete(storage.Pool.Unspent, id.Pack())
	}

	// resurrect the inputs from their shadows
	for i := len(tx.Inputs) - 1; i >= 0; i -= 1 {
		id := tx.Inputs[i]
		shadowKey := consumedKey(height, id)
		shadow := trx.Get(storage.Pool.Consumed, shadowKey)
		if nil == shadow {
			return fault.MissingConsumedSource
		}
		amount, owner, err := unpackUnspent(shadow)
		if nil != err {
			return err
		}

		trx.Put(storage.Pool.Unspent, id.Pack(), shadow)
		err = credit(trx, owner, id, amount)
		if nil != err {
			return err
		}
		trx.Delete(storage.Pool.Consumed, shadowKey)
	}
	return nil
}
