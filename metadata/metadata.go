// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metadata - the current chain position singleton
//
// One record holds what every read path needs to anchor itself: the
// currency name, the current blockstamp, the chain's median time, the
// monetary mass and the member count. A second record carries the
// fork tree snapshot. Both are written only inside the coordinator's
// transaction, so readers never observe a half advanced chain.
//
// The database schema version itself lives below the pools, see the
// storage package.
package metadata

import (
	"encoding/binary"

	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
	"github.com/meridian-money/meridiand/util"
)

// singleton keys in the Metadata pool
var (
	chainKey    = []byte("chain")
	forkTreeKey = []byte("forktree")
)

// Data - the unpacked singleton
type Data struct {
	Currency     string                `json:"currency"`
	Position     blockstamp.Blockstamp `json:"position"`
	ChainTime    uint64                `json:"chainTime"`
	MonetaryMass uint64                `json:"monetaryMass"`
	MembersCount uint64                `json:"membersCount"`
}

// Pack - binary representation of the singleton
func (data *Data) Pack() []byte {
	buffer := make([]byte, 0, blockstamp.Length+24+len(data.Currency)+2)
	buffer = append(buffer, data.Position.Pack()...)

	scratch := make([]byte, 24)
	binary.BigEndian.PutUint64(scratch[0:], data.ChainTime)
	binary.BigEndian.PutUint64(scratch[8:], data.MonetaryMass)
	binary.BigEndian.PutUint64(scratch[16:], data.MembersCount)
	buffer = append(buffer, scratch...)

	buffer = append(buffer, util.ToVarint64(uint64(len(data.Currency)))...)
	buffer = append(buffer, data.Currency...)
	return buffer
}

// DataFromBytes - decode the singleton
func DataFromBytes(buffer []byte) (*Data, error) {
	fixed := blockstamp.Length + 24
	if len(buffer) < fixed+1 {
		return nil, fault.CorruptedMetadata
	}

	data := &Data{}
	err := data.Position.Unpack(buffer[:blockstamp.Length])
	if nil != err {
		return nil, fault.CorruptedMetadata
	}
	data.ChainTime = binary.BigEndian.Uint64(buffer[blockstamp.Length:])
	data.MonetaryMass = binary.BigEndian.Uint64(buffer[blockstamp.Length+8:])
	data.MembersCount = binary.BigEndian.Uint64(buffer[blockstamp.Length+16:])

	length, vn := util.FromVarint64(buffer[fixed:])
	if 0 == vn || len(buffer) != fixed+vn+int(length) {
		return nil, fault.CorruptedMetadata
	}
	data.Currency = string(buffer[fixed+vn:])
	return data, nil
}

// Get - the committed singleton, false when the chain is empty
func Get() (*Data, bool) {
	return decode(storage.Pool.Metadata.Get(chainKey))
}

// GetTrx - the singleton as seen inside a transaction
func GetTrx(trx storage.Transaction) (*Data, bool) {
	return decode(trx.Get(storage.Pool.Metadata, chainKey))
}

func decode(buffer []byte) (*Data, bool) {
	if nil == buffer {
		return nil, false
	}
	data, err := DataFromBytes(buffer)
	if nil != err {
		return nil, false
	}
	return data, true
}

// Apply - advance the singleton to a just applied block
func Apply(trx storage.Transaction, currencyName string, position blockstamp.Blockstamp, header *blockrecord.Header) {
	data := &Data{
		Currency:     currencyName,
		Position:     position,
		ChainTime:    header.MedianTime,
		MonetaryMass: header.MonetaryMass,
		MembersCount: header.MembersCount,
	}
	trx.Put(storage.Pool.Metadata, chainKey, data.Pack())
}

// Revert - step the singleton back to the previous block
//
// previous is nil when the genesis block itself is being reverted,
// the singleton disappears with it
func Revert(trx storage.Transaction, currencyName string, previousPosition blockstamp.Blockstamp, previous *blockrecord.Header) {
	if nil == previous {
		trx.Delete(storage.Pool.Metadata, chainKey)
		return
	}
	Apply(trx, currencyName, previousPosition, previous)
}

// PutForkTree - store the fork tree snapshot
func PutForkTree(trx storage.Transaction, snapshot []byte) {
	trx.Put(storage.Pool.Metadata, forkTreeKey, snapshot)
}

// GetForkTree - the committed fork tree snapshot
func GetForkTree() ([]byte, bool) {
	snapshot := storage.Pool.Metadata.Get(forkTreeKey)
	if nil == snapshot {
		return nil, false
	}
	return snapshot, true
}
