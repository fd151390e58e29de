// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/meridian-money/meridiand/balance"
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/dividend"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/storage"
	"github.com/meridian-money/meridiand/wot"
)

// the index apply order is fixed: balance and dividend consume the
// member set as of the previous block, so they run before the trust
// state advances; metadata moves last
func applyIndexes(trx storage.Transaction, position blockstamp.Blockstamp, block *blockrecord.Block) error {

	members, err := wot.Members(trx)
	if nil != err {
		return err
	}

	err = balance.Apply(trx, position.Height, block, members)
	if nil != err {
		return err
	}

	err = dividend.Apply(trx, position.Height, block.Header.Dividend, members)
	if nil != err {
		return err
	}

	err = wot.Apply(trx, position, block, globalData.parameters)
	if nil != err {
		return err
	}

	metadata.Apply(trx, globalData.parameters.Currency, position, block.Header)
	return nil
}

// exact reverse of applyIndexes
//
// the dividend recipient list recorded at apply time stands in for
// the member set, the live one may have changed since
//
// previousHeader is nil only when the genesis block is reverted
func revertIndexes(trx storage.Transaction, position blockstamp.Blockstamp, block *blockrecord.Block,
	previousPosition blockstamp.Blockstamp, previousHeader *blockrecord.Header) error {

	metadata.Revert(trx, globalData.parameters.Currency, previousPosition, previousHeader)

	err := wot.Revert(trx, position, block, globalData.parameters)
	if nil != err {
		return err
	}

	recipients, err := dividend.RecipientsAt(trx, position.Height)
	if nil != err {
		return err
	}

	err = dividend.Revert(trx, position.Height, block.Header.Dividend, recipients)
	if nil != err {
		return err
	}

	return balance.Revert(trx, position.Height, block, recipients)
}

// drop everything that has fallen outside the fork window
//
// the tree forgets stale forks, their stored blocks and the consumed
// shadows that could only matter to a revert inside the window
func pruneOldForks(trx storage.Transaction, canonicalHeight uint64) error {
	window := globalData.parameters.ForkWindow

	pruned := globalData.tree.PruneOlderThan(window, canonicalHeight)
	if len(pruned) > 0 {
		globalData.log.Infof("pruned forks: %v", pruned)
	}

	if canonicalHeight <= window {
		return nil
	}
	cutoff := canonicalHeight - window

	err := blockdb.PruneForksBelow(trx, cutoff)
	if nil != err {
		return err
	}
	return balance.PruneConsumed(trx, cutoff)
}
