// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/logger"

	"github.com/meridian-money/meridiand/fault"
)

// exported storage pools
//
// note all must be exported (i.e. initial capital) or initialisation will panic
//
// pools tagged derived hold records that are recomputed from stored
// blocks during a reindex
type pools struct {
	Blocks     *PoolHandle `prefix:"B"`
	Forks      *PoolHandle `prefix:"F"`
	Balances   *PoolHandle `prefix:"Q" derived:"true"`
	Unspent    *PoolHandle `prefix:"U" derived:"true"`
	Consumed   *PoolHandle `prefix:"C" derived:"true"`
	Identities *PoolHandle `prefix:"I" derived:"true"`
	Uids       *PoolHandle `prefix:"N" derived:"true"`
	CertExpiry *PoolHandle `prefix:"X" derived:"true"`
	Dividends  *PoolHandle `prefix:"D" derived:"true"`
	Metadata   *PoolHandle `prefix:"M" derived:"true"`
	TestData   *PoolHandle `prefix:"Z" derived:"true"`
}

// Pool - the set of exported pools
var Pool pools

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const currentDBVersion = 0x102

// holds the database handle
var poolData struct {
	sync.RWMutex
	db      *leveldb.DB
	batch   *leveldb.Batch
	cache   Cache
	access  Access
	trx     Transaction
	derived []*PoolHandle
}

// pool access modes
const (
	ReadOnly  = true
	ReadWrite = false
)

// Initialise - open up the database connection
//
// this must be called before any pool is accessed
//
// the returned flag is true when the stored records predate the
// current schema: the derived pools were dropped and the caller must
// rebuild them from stored blocks, finishing with ReindexDone
func Initialise(database string, readOnly bool) (bool, error) {
	poolData.Lock()
	defer poolData.Unlock()

	ok := false
	mustReindex := false

	if nil != poolData.db {
		return mustReindex, fault.AlreadyInitialised
	}

	defer func() {
		if !ok {
			dbClose()
		}
	}()

	db, version, err := getDB(database+".leveldb", readOnly)
	if nil != err {
		return mustReindex, err
	}
	poolData.db = db

	// ensure no database downgrade
	if version > currentDBVersion {
		logger.Criticalf("database version: %d > current version: %d", version, currentDBVersion)
		return mustReindex, fault.DatabaseSchemaTooNew
	}

	// prevent readOnly from modifying the database
	if readOnly && version != currentDBVersion {
		logger.Criticalf("database version: %d not current: %d  but read only", version, currentDBVersion)
		return mustReindex, fmt.Errorf("database version: %d not current: %d  but read only", version, currentDBVersion)
	}

	if 0 == version {

		// database was empty so tag as current version
		err = putVersion(poolData.db, currentDBVersion)
		if nil != err {
			return mustReindex, err
		}

	} else if version < currentDBVersion {
		mustReindex = true
	}

	// this will be a struct type
	poolType := reflect.TypeOf(Pool)

	// get write access by using pointer + Elem()
	poolValue := reflect.ValueOf(&Pool).Elem()

	poolData.batch = new(leveldb.Batch)
	poolData.cache = newCache()
	poolData.access = newDA(poolData.db, poolData.batch, poolData.cache)
	poolData.trx = newTransaction([]Access{poolData.access})
	poolData.derived = nil

	// scan each field
	for i := 0; i < poolType.NumField(); i += 1 {

		fieldInfo := poolType.Field(i)

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			return mustReindex, fmt.Errorf("pool: %v has invalid prefix: %q", fieldInfo, prefixTag)
		}

		prefix := prefixTag[0]
		limit := []byte(nil)
		if prefix < 255 {
			limit = []byte{prefix + 1}
		}

		p := &PoolHandle{
			prefix:     prefix,
			limit:      limit,
			dataAccess: poolData.access,
		}

		if "true" == fieldInfo.Tag.Get("derived") {
			poolData.derived = append(poolData.derived, p)
		}

		poolValue.Field(i).Set(reflect.ValueOf(p))
	}

	if mustReindex {
		logger.Criticalf("database version: %d < current version: %d  dropping derived records", version, currentDBVersion)
		err = dropDerived()
		if nil != err {
			return mustReindex, err
		}
	}

	ok = true // prevent db close
	return mustReindex, nil
}

func dbClose() {
	if nil != poolData.db {
		poolData.db.Close()
		poolData.db = nil
	}
}

// Finalise - close the database connection
func Finalise() {
	poolData.Lock()
	dbClose()
	poolData.Unlock()
}

// DropDerived - erase all records from the derived pools
//
// stored blocks are left intact so the records can be rebuilt, after
// rebuilding call ReindexDone to tag the database as current
func DropDerived() error {
	poolData.Lock()
	defer poolData.Unlock()

	if nil == poolData.db {
		return fault.NotInitialised
	}
	return dropDerived()
}

// caller must hold the poolData lock
func dropDerived() error {

	for _, p := range poolData.derived {

		batch := new(leveldb.Batch)
		searchRange := ldb_util.Range{
			Start: []byte{p.prefix},
			Limit: p.limit,
		}

		iter := poolData.db.NewIterator(&searchRange, nil)
		for iter.Next() {
			batch.Delete(iter.Key())
		}
		iter.Release()
		err := iter.Error()
		if nil != err {
			return err
		}

		err = poolData.db.Write(batch, nil)
		if nil != err {
			return err
		}
	}
	return nil
}

// ReindexDone - tag the database as current after the derived pools
// have been rebuilt
func ReindexDone() error {
	poolData.Lock()
	defer poolData.Unlock()

	if nil == poolData.db {
		return fault.NotInitialised
	}
	return putVersion(poolData.db, currentDBVersion)
}

// return:
//
//	database handle
//	version number
func getDB(name string, readOnly bool) (*leveldb.DB, int, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(name, opt)
	if nil != err {
		return nil, 0, err
	}

	versionValue, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return db, 0, nil
	} else if nil != err {
		db.Close()
		return nil, 0, err
	}

	if 4 != len(versionValue) {
		db.Close()
		return nil, 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(versionValue))
	}

	version := int(binary.BigEndian.Uint32(versionValue))
	return db, version, nil
}

func putVersion(db *leveldb.DB, version int) error {
	currentVersion := make([]byte, 4)
	binary.BigEndian.PutUint32(currentVersion, uint32(version))

	return db.Put(versionKey, currentVersion, nil)
}

// NewDBTransaction - begin a batch of pool updates that will commit
// as a single atomic write
func NewDBTransaction() (Transaction, error) {
	poolData.RLock()
	defer poolData.RUnlock()

	if nil == poolData.db {
		return nil, fault.NotInitialised
	}

	err := poolData.trx.Begin()
	if nil != err {
		return nil, err
	}
	return poolData.trx, nil
}
