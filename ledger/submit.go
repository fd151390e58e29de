// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/fork"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/mode"
	"github.com/meridian-money/meridiand/rules"
	"github.com/meridian-money/meridiand/storage"
)

// Disposition - the outcome of a block submission
type Disposition int

// all possible submission outcomes
const (
	Rejected     = Disposition(iota) // a rule or storage fault, see the error
	Accepted     = Disposition(iota) // extended the canonical chain
	AcceptedFork = Disposition(iota) // stored on a fork, indexes untouched
	Buffered     = Disposition(iota) // previous block unknown, hold as orphan
	Reorganized  = Disposition(iota) // a fork overtook the canonical chain
)

// String - printable form for logs
func (disposition Disposition) String() string {
	switch disposition {
	case Rejected:
		return "rejected"
	case Accepted:
		return "accepted"
	case AcceptedFork:
		return "accepted-fork"
	case Buffered:
		return "buffered"
	case Reorganized:
		return "reorganized"
	default:
		return "invalid"
	}
}

// SubmitBlock - offer a candidate block to the chain
//
// claimedPrevious is the position the submitter believes the block
// extends; Buffered means that position is unknown here and the
// caller should retry once the parent arrives
func SubmitBlock(packed blockrecord.PackedBlock, claimedPrevious blockstamp.Blockstamp) (Disposition, error) {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return Rejected, fault.NotInitialised
	}
	if mode.Is(mode.Stopped) {
		return Rejected, fault.WrongNodeMode
	}

	block, digest, err := packed.Unpack(globalData.testnet)
	if nil != err {
		return Rejected, err
	}
	header := block.Header
	position := header.Blockstamp(digest)

	log := globalData.log
	log.Debugf("submit: %s", position)

	if !header.IsGenesis() {
		// the transport claim must agree with the header itself
		if claimedPrevious.Height+1 != header.Number ||
			claimedPrevious.Digest != header.PreviousBlock {
			return Rejected, fault.InvalidBlock
		}
	}

	meta, haveChain := metadata.Get()

	if !haveChain {
		if !header.IsGenesis() {
			return Buffered, nil
		}
		return acceptCanonical(position, block, packed, blockstamp.Blockstamp{})
	}

	if header.IsGenesis() {
		return Rejected, fault.BlockAlreadyExists
	}

	// anything inside the window is detected as a duplicate here,
	// below the window a resubmission is indistinguishable from an
	// orphan and buffers
	if _, known := globalData.tree.ForkContaining(position); known {
		return Rejected, fault.BlockAlreadyExists
	}

	if claimedPrevious == meta.Position {
		return acceptCanonical(position, block, packed, claimedPrevious)
	}

	owner, known := globalData.tree.ForkContaining(claimedPrevious)
	if !known {
		return Buffered, nil
	}

	// continue the owning fork when the block sits on its tip,
	// otherwise the block starts a fork of its own
	forkID := uint64(0)
	if tip, ok := globalData.tree.Tip(owner); ok && fork.Canonical != owner && tip == claimedPrevious {
		forkID = owner
	} else {
		forkID = globalData.tree.AddFork(claimedPrevious)
	}

	err = acceptFork(forkID, claimedPrevious, position, packed)
	if nil != err {
		return Rejected, err
	}
	log.Infof("fork %d: %s", forkID, position)

	// announce fork blocks too, descendants may already be waiting in
	// the orphan buffer and an unheard fork can never grow long enough
	// to win
	if nil != globalData.announce {
		globalData.announce(position, packed)
	}

	winner, contested := globalData.tree.Winner()
	if !contested {
		return AcceptedFork, nil
	}

	err = reorganize(winner)
	if nil != err {
		log.Errorf("reorganisation to fork %d failed: %s", winner, err)
		return AcceptedFork, err
	}
	return Reorganized, nil
}

// validate and apply a block extending the canonical chain, one
// atomic transaction over the block pool and every index
func acceptCanonical(position blockstamp.Blockstamp, block *blockrecord.Block, packed blockrecord.PackedBlock, previous blockstamp.Blockstamp) (Disposition, error) {

	var ancestry *rules.Ancestry
	if !block.Header.IsGenesis() {
		previousBlock, previousPosition, err := blockdb.UnpackMain(block.Header.Number-1, globalData.testnet)
		if nil != err {
			return Rejected, err
		}
		ancestry = &rules.Ancestry{
			Block:  previousBlock,
			Digest: previousPosition.Digest,
		}
	}

	err := globalData.engine.Validate(block, ancestry, chainContext{})
	if nil != err {
		globalData.log.Warnf("block %s rejected: %s", position, err)
		return Rejected, err
	}

	snapshot := globalData.tree.Snapshot()
	trx, err := storage.NewDBTransaction()
	if nil != err {
		return Rejected, err
	}

	ok := false
	defer func() {
		if !ok {
			trx.Abort()
			restoreTree(snapshot)
		}
	}()

	err = blockdb.PutMain(trx, position.Height, packed)
	if nil != err {
		return Rejected, err
	}
	err = applyIndexes(trx, position, block)
	if nil != err {
		return Rejected, err
	}

	if block.Header.IsGenesis() {
		err = globalData.tree.Root(position)
	} else {
		err = globalData.tree.RecordLink(fork.Canonical, previous, position.Digest)
	}
	if nil != err {
		return Rejected, err
	}

	err = pruneOldForks(trx, position.Height)
	if nil != err {
		return Rejected, err
	}
	metadata.PutForkTree(trx, globalData.tree.Snapshot())

	err = trx.Commit()
	if nil != err {
		return Rejected, err
	}
	ok = true

	globalData.log.Infof("accepted: %s", position)
	if nil != globalData.announce {
		globalData.announce(position, packed)
	}
	return Accepted, nil
}

// store a fork block and its linkage, indexes stay untouched
func acceptFork(forkID uint64, previous blockstamp.Blockstamp, position blockstamp.Blockstamp, packed blockrecord.PackedBlock) error {

	snapshot := globalData.tree.Snapshot()

	err := globalData.tree.RecordLink(forkID, previous, position.Digest)
	if nil != err {
		restoreTree(snapshot)
		return err
	}

	trx, err := storage.NewDBTransaction()
	if nil != err {
		restoreTree(snapshot)
		return err
	}

	err = blockdb.PutFork(trx, position, packed)
	if nil == err {
		metadata.PutForkTree(trx, globalData.tree.Snapshot())
		err = trx.Commit()
	}
	if nil != err {
		trx.Abort()
		restoreTree(snapshot)
		return err
	}
	return nil
}
