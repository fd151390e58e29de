// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

func TestTransactionInUse(t *testing.T) {
	setup(t)
	defer teardown(t)

	trx, err := storage.NewDBTransaction()
	assert.Nil(t, err, "first Begin should not return any error")
	assert.True(t, trx.InUse(), "transaction not marked in use")

	_, err = storage.NewDBTransaction()
	assert.Equal(t, fault.TransactionAlreadyInUse, err, "second Begin should be blocked")

	trx.Abort()
	assert.False(t, trx.InUse(), "transaction still in use after Abort")

	trx, err = storage.NewDBTransaction()
	assert.Nil(t, err, "Begin after Abort should not return any error")
	trx.Abort()
}

func TestTransactionAbortDiscards(t *testing.T) {
	setup(t)
	defer teardown(t)

	p := storage.Pool.TestData
	key := []byte("abandoned")

	trx, err := storage.NewDBTransaction()
	assert.Nil(t, err, "begin")

	trx.Put(p, key, []byte("data"))
	assert.True(t, trx.Has(p, key), "pending update not visible")

	trx.Abort()
	assert.False(t, p.Has(key), "aborted update was stored")
}

func TestTransactionDeleteShadowsStored(t *testing.T) {
	setup(t)
	defer teardown(t)

	p := storage.Pool.TestData
	key := []byte("shadowed")

	trx, err := storage.NewDBTransaction()
	assert.Nil(t, err, "begin")
	trx.Put(p, key, []byte("stored"))
	assert.Nil(t, trx.Commit(), "commit")

	trx, err = storage.NewDBTransaction()
	assert.Nil(t, err, "begin")
	trx.Delete(p, key)

	// the stored record is hidden while the delete is pending
	assert.Nil(t, trx.Get(p, key), "pending delete did not hide record")
	assert.False(t, trx.Has(p, key), "pending delete did not hide record")

	trx.Abort()
	assert.Equal(t, []byte("stored"), p.Get(key), "aborted delete lost record")

	trx, err = storage.NewDBTransaction()
	assert.Nil(t, err, "begin")
	trx.Delete(p, key)
	assert.Nil(t, trx.Commit(), "commit")
	assert.Nil(t, p.Get(key), "deleted record still stored")
}

func TestTransactionNumericRecords(t *testing.T) {
	setup(t)
	defer teardown(t)

	p := storage.Pool.TestData

	trx, err := storage.NewDBTransaction()
	assert.Nil(t, err, "begin")
	trx.PutN(p, []byte("counter"), 987654321)
	trx.Put(p, []byte("framed"), append([]byte{0, 0, 0, 0, 0, 0, 0, 42}, "rest"...))
	assert.Nil(t, trx.Commit(), "commit")

	n, ok := p.GetN([]byte("counter"))
	assert.True(t, ok, "counter not found")
	assert.Equal(t, uint64(987654321), n, "wrong counter value")

	n, rest := p.GetNB([]byte("framed"))
	assert.Equal(t, uint64(42), n, "wrong leading value")
	assert.Equal(t, []byte("rest"), rest, "wrong trailing bytes")

	_, ok = p.GetN([]byte("missing"))
	assert.False(t, ok, "missing key reported found")
}
