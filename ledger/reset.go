// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/fork"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/mode"
	"github.com/meridian-money/meridiand/storage"
)

// ResetToHeight - discard canonical blocks above a height
//
// an operator command for recovering from a locally damaged chain
// head: everything above the target is reverted and deleted outright,
// all competing forks are forgotten. Reverting needs the consumed
// shadows, so the target cannot fall outside the fork window.
//
// only allowed while the node is resynchronising
func ResetToHeight(target uint64) error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}
	if !mode.Is(mode.Resynchronise) {
		return fault.WrongNodeMode
	}

	meta, haveChain := metadata.Get()
	if !haveChain {
		return fault.BlockNotFound
	}
	tip := meta.Position
	if target >= tip.Height {
		return nil
	}
	if tip.Height-target > globalData.parameters.ForkWindow {
		return fault.ResetTooDeep
	}

	log := globalData.log
	log.Warnf("reset: discarding blocks %d…%d", target+1, tip.Height)

	snapshot := globalData.tree.Snapshot()
	trx, err := storage.NewDBTransaction()
	if nil != err {
		return err
	}

	ok := false
	defer func() {
		if !ok {
			trx.Abort()
			restoreTree(snapshot)
		}
	}()

	for height := tip.Height; height > target; height -= 1 {
		block, position, err := blockdb.UnpackMain(height, globalData.testnet)
		if nil != err {
			return err
		}
		previousBlock, previousPosition, err := blockdb.UnpackMain(height-1, globalData.testnet)
		if nil != err {
			return err
		}

		err = revertIndexes(trx, position, block, previousPosition, previousBlock.Header)
		if nil != err {
			return err
		}
		blockdb.RemoveMain(trx, height)
	}

	// forks reference positions that may no longer exist, drop them all
	tree := fork.New(globalData.parameters.MaxForks)
	_, position, err := blockdb.UnpackMain(target, globalData.testnet)
	if nil != err {
		return err
	}
	err = tree.Root(position)
	if nil != err {
		return err
	}
	globalData.tree = tree
	metadata.PutForkTree(trx, tree.Snapshot())

	err = trx.Commit()
	if nil != err {
		return err
	}
	ok = true

	log.Warnf("reset complete: new tip %s", position)
	return nil
}
