// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger - the write coordinator
//
// All chain mutation funnels through here: block submission, fork
// adoption, index maintenance and pruning. One write transaction is
// in flight at a time and every mutation of the block pools, the
// derived indexes and the metadata singleton commits or aborts as a
// unit, so a reader that takes the read lock always sees a chain
// whose indexes match it exactly.
package ledger

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/currency"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/fork"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/rules"
	"github.com/meridian-money/meridiand/wot"
)

// AnnounceFunc - called after a commit moved the canonical tip
//
// runs while the write lock is held, must not call back into this
// package
type AnnounceFunc func(position blockstamp.Blockstamp, packed blockrecord.PackedBlock)

var globalData struct {
	sync.RWMutex
	log         *logger.L
	parameters  *currency.Parameters
	engine      *rules.Engine
	tree        *fork.Tree
	testnet     bool
	announce    AnnounceFunc
	initialised bool
}

// Initialise - load the chain state, storage must already be open
func Initialise(parameters *currency.Parameters, testnet bool) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}

	err := parameters.Validate()
	if nil != err {
		return err
	}

	globalData.log = logger.New("ledger")
	globalData.log.Info("starting…")

	globalData.parameters = parameters
	globalData.testnet = testnet
	globalData.engine = rules.StandardEngine()

	meta, haveChain := metadata.Get()
	if !haveChain {
		globalData.tree = fork.New(parameters.MaxForks)
		globalData.log.Info("empty chain")
		globalData.initialised = true
		return nil
	}

	if snapshot, ok := metadata.GetForkTree(); ok {
		tree, err := fork.Restore(snapshot, parameters.MaxForks)
		if nil == err {
			if tip, ok := tree.Tip(fork.Canonical); ok && tip == meta.Position {
				globalData.tree = tree
			}
		}
	}
	if nil == globalData.tree {
		// snapshot missing or stale, walk the stored chain instead
		globalData.log.Warn("rebuilding fork tree from stored blocks")
		globalData.tree, err = rebuildTree(meta)
		if nil != err {
			return err
		}
	}

	globalData.log.Infof("current block: %s", meta.Position)
	globalData.initialised = true
	return nil
}

// Finalise - shut down the coordinator
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}

	globalData.log.Info("finished")
	globalData.log.Flush()

	globalData.tree = nil
	globalData.announce = nil
	globalData.initialised = false
	return nil
}

// SetAnnounce - register the stored block announcement hook
//
// fires for canonical and fork acceptances alike, the hook feeds the
// publisher and wakes orphans waiting on the announced position
func SetAnnounce(announce AnnounceFunc) {
	globalData.Lock()
	globalData.announce = announce
	globalData.Unlock()
}

// reconstruct canonical linkage for the fork window from the main store
func rebuildTree(meta *metadata.Data) (*fork.Tree, error) {
	tree := fork.New(globalData.parameters.MaxForks)

	start := uint64(0)
	if meta.Position.Height > globalData.parameters.ForkWindow {
		start = meta.Position.Height - globalData.parameters.ForkWindow
	}

	_, position, err := blockdb.UnpackMain(start, globalData.testnet)
	if nil != err {
		return nil, err
	}
	err = tree.Root(position)
	if nil != err {
		return nil, err
	}

	for height := start + 1; height <= meta.Position.Height; height += 1 {
		_, next, err := blockdb.UnpackMain(height, globalData.testnet)
		if nil != err {
			return nil, err
		}
		err = tree.RecordLink(fork.Canonical, position, next.Digest)
		if nil != err {
			return nil, err
		}
		position = next
	}

	if position != meta.Position {
		return nil, fault.CorruptedMetadata
	}
	return tree, nil
}

// restore the in-memory tree after an aborted transaction
func restoreTree(snapshot []byte) {
	tree, err := fork.Restore(snapshot, globalData.parameters.MaxForks)
	if nil != err {
		// the snapshot was taken from a live tree moments ago
		logger.Panicf("ledger: fork tree restore failed: %s", err)
	}
	globalData.tree = tree
}

// rule engine context over the storage overlay, point reads see the
// pending transaction
type chainContext struct{}

func (chainContext) IssuerState(issuer *account.Account) (*wot.Record, bool) {
	return wot.GetRecord(issuer)
}
