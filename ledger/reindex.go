// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/fork"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/storage"
)

// RebuildIndexes - recompute every derived record from stored blocks
//
// called when storage detected a stale schema and dropped the derived
// pools. The stored canonical blocks were all accepted once, so they
// are replayed without rule validation, one transaction per block.
// Finishes by tagging the database as current.
func RebuildIndexes() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}

	log := globalData.log
	log.Warn("rebuilding derived records from stored blocks")

	tree := fork.New(globalData.parameters.MaxForks)
	window := globalData.parameters.ForkWindow

	height := uint64(0)
	count := uint64(0)
	previous := blockstamp.Blockstamp{}

	for {
		block, position, err := blockdb.UnpackMain(height, globalData.testnet)
		if nil != err {
			if fault.BlockNotFound == err {
				break
			}
			return err
		}

		trx, err := storage.NewDBTransaction()
		if nil != err {
			return err
		}
		err = applyIndexes(trx, position, block)
		if nil == err {
			err = trx.Commit()
		}
		if nil != err {
			trx.Abort()
			return err
		}

		if 0 == height {
			err = tree.Root(position)
		} else {
			err = tree.RecordLink(fork.Canonical, previous, position.Digest)
		}
		if nil != err {
			return err
		}
		tree.PruneOlderThan(window, position.Height)

		previous = position
		height += 1
		count += 1
		if 0 == count%10000 {
			log.Infof("replayed %d blocks", count)
		}
	}

	globalData.tree = tree

	if count > 0 {
		trx, err := storage.NewDBTransaction()
		if nil != err {
			return err
		}
		metadata.PutForkTree(trx, tree.Snapshot())
		err = trx.Commit()
		if nil != err {
			trx.Abort()
			return err
		}
	}

	log.Warnf("rebuild complete: %d blocks", count)
	return storage.ReindexDone()
}
