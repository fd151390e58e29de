// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdb - keyed access to stored block bytes
//
// Canonical blocks live in the Blocks pool keyed by big endian
// height. Blocks belonging to competing forks live in the Forks pool
// keyed by their full blockstamp since several blocks can share a
// height across forks.
//
// Only raw bytes move through here, no index is touched.
package blockdb

import (
	"bytes"
	"encoding/binary"

	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// HeightKey - the main store key for a height
func HeightKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}

// PutMain - store a canonical block at its height
//
// refuses to overwrite a different block already holding the height
func PutMain(trx storage.Transaction, height uint64, packed blockrecord.PackedBlock) error {
	key := HeightKey(height)

	existing := trx.Get(storage.Pool.Blocks, key)
	if nil != existing {
		if bytes.Equal(existing, packed) {
			return nil
		}
		return fault.BlockAlreadyExists
	}

	trx.Put(storage.Pool.Blocks, key, packed)
	return nil
}

// PutFork - store a block belonging to a not yet canonical fork
func PutFork(trx storage.Transaction, position blockstamp.Blockstamp, packed blockrecord.PackedBlock) error {
	key := position.Pack()

	existing := trx.Get(storage.Pool.Forks, key)
	if nil != existing {
		if bytes.Equal(existing, packed) {
			return nil
		}
		return fault.ForkBlockAlreadyExists
	}

	trx.Put(storage.Pool.Forks, key, packed)
	return nil
}

// GetMain - fetch the canonical block bytes at a height
func GetMain(height uint64) (blockrecord.PackedBlock, bool) {
	packed := storage.Pool.Blocks.Get(HeightKey(height))
	if nil == packed {
		return nil, false
	}
	return blockrecord.PackedBlock(packed), true
}

// GetByStamp - fetch fork block bytes by full blockstamp
func GetByStamp(position blockstamp.Blockstamp) (blockrecord.PackedBlock, bool) {
	packed := storage.Pool.Forks.Get(position.Pack())
	if nil == packed {
		return nil, false
	}
	return blockrecord.PackedBlock(packed), true
}

// RemoveMain - delete a canonical block, only used by revert
func RemoveMain(trx storage.Transaction, height uint64) {
	trx.Delete(storage.Pool.Blocks, HeightKey(height))
}

// RemoveFork - delete a fork block
func RemoveFork(trx storage.Transaction, position blockstamp.Blockstamp) {
	trx.Delete(storage.Pool.Forks, position.Pack())
}

// LastMain - the highest canonical block with its height
func LastMain() (uint64, blockrecord.PackedBlock, bool) {
	element, found := storage.Pool.Blocks.LastElement()
	if !found {
		return 0, nil, false
	}
	if 8 != len(element.Key) {
		return 0, nil, false
	}
	height := binary.BigEndian.Uint64(element.Key)
	return height, blockrecord.PackedBlock(element.Value), true
}

// UnpackMain - fetch and decode the canonical block at a height
func UnpackMain(height uint64, testnet bool) (*blockrecord.Block, blockstamp.Blockstamp, error) {
	packed, found := GetMain(height)
	if !found {
		return nil, blockstamp.Blockstamp{}, fault.BlockNotFound
	}
	block, digest, err := packed.Unpack(testnet)
	if nil != err {
		return nil, blockstamp.Blockstamp{}, fault.CorruptedStoredBlock
	}
	return block, block.Header.Blockstamp(digest), nil
}

// PruneForksBelow - delete stored fork blocks under a height
//
// called after the fork tracker drops forks outside the window so
// their bytes do not accumulate
func PruneForksBelow(trx storage.Transaction, height uint64) error {
	cutoff := HeightKey(height)

	stale := [][]byte(nil)
	cursor := storage.Pool.Forks.NewFetchCursor()
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
		trx.Delete(storage.Pool.Forks, key)
	}
	return nil
}
