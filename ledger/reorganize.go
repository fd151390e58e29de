// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/rules"
	"github.com/meridian-money/meridiand/storage"
	"github.com/meridian-money/meridiand/wot"
)

// reorganize - switch the canonical chain to the winning fork
//
// canonical blocks above the fork base are reverted in descending
// order and demoted to the fork pool, then the winner's blocks are
// validated and applied in ascending order. Everything runs in one
// transaction: either the node lands exactly on the fork's tip or
// nothing moved at all.
//
// a winner that fails validation mid-path is discarded entirely, the
// remainder of a branch whose prefix was never valid cannot become
// valid later
func reorganize(winner uint64) error {
	log := globalData.log

	base, ok := globalData.tree.Base(winner)
	if !ok {
		return fault.ForkNotFound
	}
	path, _ := globalData.tree.Path(winner)
	if 0 == len(path) {
		return fault.ForkNotFound
	}

	meta, haveChain := metadata.Get()
	if !haveChain {
		return fault.NotInitialised
	}

	log.Warnf("reorganising: fork %d base %s tip %s replaces canonical tip %s",
		winner, base, path[len(path)-1], meta.Position)

	snapshot := globalData.tree.Snapshot()
	trx, err := storage.NewDBTransaction()
	if nil != err {
		return err
	}

	ruleFailure := false
	ok = false
	defer func() {
		if !ok {
			trx.Abort()
			restoreTree(snapshot)
			if ruleFailure {
				// the branch can never validate, forget it
				globalData.tree.RemoveFork(winner)
			}
		}
	}()

	// unwind the abandoned canonical suffix, highest block first
	for height := meta.Position.Height; height > base.Height; height -= 1 {
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

		packed, _ := blockdb.GetMain(height)
		blockdb.RemoveMain(trx, height)
		err = blockdb.PutFork(trx, position, packed)
		if nil != err {
			return err
		}
	}

	// replay the winner on top of the shared ancestor
	previousBlock, previousPosition, err := blockdb.UnpackMain(base.Height, globalData.testnet)
	if nil != err {
		return err
	}
	if previousPosition != base {
		return fault.CorruptedForkTree
	}

	var tipPacked blockrecord.PackedBlock
	tip := blockstamp.Blockstamp{}

	for _, position := range path {
		packed, found := blockdb.GetByStamp(position)
		if !found {
			return fault.BlockNotFound
		}
		block, digest, err := packed.Unpack(globalData.testnet)
		if nil != err {
			return fault.CorruptedStoredBlock
		}
		if position.Digest != digest {
			return fault.CorruptedForkTree
		}

		ancestry := &rules.Ancestry{
			Block:  previousBlock,
			Digest: previousPosition.Digest,
		}
		err = globalData.engine.Validate(block, ancestry, trxContext{trx})
		if nil != err {
			log.Warnf("fork block %s rejected: %s", position, err)
			ruleFailure = true
			return err
		}

		err = blockdb.PutMain(trx, position.Height, packed)
		if nil != err {
			return err
		}
		err = applyIndexes(trx, position, block)
		if nil != err {
			return err
		}
		blockdb.RemoveFork(trx, position)

		previousBlock = block
		previousPosition = position
		tip = position
		tipPacked = packed
	}

	err = globalData.tree.Adopt(winner)
	if nil != err {
		return err
	}

	err = pruneOldForks(trx, tip.Height)
	if nil != err {
		return err
	}
	metadata.PutForkTree(trx, globalData.tree.Snapshot())

	err = trx.Commit()
	if nil != err {
		return err
	}
	ok = true

	log.Warnf("reorganised: new tip %s", tip)
	if nil != globalData.announce {
		globalData.announce(tip, tipPacked)
	}
	return nil
}

// rule engine context bound to an open transaction so mid-replay
// identity state is visible
type trxContext struct {
	trx storage.Transaction
}

func (c trxContext) IssuerState(issuer *account.Account) (*wot.Record, bool) {
	return wot.GetRecordTrx(c.trx, issuer)
}
