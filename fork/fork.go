// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fork - bookkeeping for competing chain branches
//
// The tree is an arena of fork ids. Each fork is a flat map from a
// previous position to the digest of the block extending it, plus the
// base position the fork grew from and its current tip. Fork 0 is
// reserved for the canonical chain's own linkage records.
//
// The tree never stores blocks, it references positions; block bytes
// stay in the storage pools. Callers serialize access, the write
// coordinator owns the tree.
package fork

import (
	"sort"

	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
)

// Canonical - the fork id reserved for the canonical chain linkage
const Canonical uint64 = 0

// Tree - all known forks
type Tree struct {
	maxForks int
	nextID   uint64
	nextSeq  uint64
	forks    map[uint64]*forkData
	where    map[blockstamp.Blockstamp]uint64 // block position → owning fork
}

// one branch
type forkData struct {
	id    uint64
	seq   uint64                // creation order, first-seen tie break
	base  blockstamp.Blockstamp // position the branch grew from
	tip   blockstamp.Blockstamp
	links map[blockstamp.Blockstamp]blockdigest.Digest // previous position → next block digest
}

// New - create an empty tree
//
// the canonical fork exists but is not rooted until the genesis
// block is recorded
func New(maxForks int) *Tree {
	t := &Tree{
		maxForks: maxForks,
		nextID:   1,
		nextSeq:  1,
		forks:    make(map[uint64]*forkData),
		where:    make(map[blockstamp.Blockstamp]uint64),
	}
	t.forks[Canonical] = &forkData{
		id:    Canonical,
		links: make(map[blockstamp.Blockstamp]blockdigest.Digest),
	}
	return t
}

// Root - establish the first canonical position
func (t *Tree) Root(position blockstamp.Blockstamp) error {
	canonical := t.forks[Canonical]
	if !canonical.base.Digest.IsEmpty() {
		return fault.AlreadyInitialised
	}
	canonical.base = position
	canonical.tip = position
	t.where[position] = Canonical
	return nil
}

// AddFork - start a new fork growing from base
//
// when the arena is full the fork with the lowest tip is evicted to
// make room, its stored blocks age out of the fork pool separately
func (t *Tree) AddFork(base blockstamp.Blockstamp) uint64 {

	if len(t.forks)-1 >= t.maxForks {
		t.evictStalest()
	}

	id := t.nextID
	t.nextID += 1

	t.forks[id] = &forkData{
		id:    id,
		seq:   t.nextSeq,
		base:  base,
		tip:   base,
		links: make(map[blockstamp.Blockstamp]blockdigest.Digest),
	}
	t.nextSeq += 1
	return id
}

// drop the fork with the lowest tip, on equal heights the latest
// arrival goes first
func (t *Tree) evictStalest() {
	stalest := uint64(0)
	found := false
	for id, f := range t.forks {
		if Canonical == id {
			continue
		}
		if !found {
			stalest = id
			found = true
			continue
		}
		s := t.forks[stalest]
		if f.tip.Height < s.tip.Height ||
			(f.tip.Height == s.tip.Height && f.seq > s.seq) {
			stalest = id
		}
	}
	if found {
		t.RemoveFork(stalest)
	}
}

// RecordLink - record that the block with the given digest extends
// the previous position inside the fork
//
// links chain one high: the new block must sit directly on the
// fork's growth point
func (t *Tree) RecordLink(forkID uint64, previous blockstamp.Blockstamp, next blockdigest.Digest) error {
	f, ok := t.forks[forkID]
	if !ok {
		return fault.ForkNotFound
	}

	if Canonical == forkID && f.base.Digest.IsEmpty() {
		return fault.NotGenesisBlock
	}
	if previous != f.tip {
		return fault.OutOfSequenceBlockNumber
	}

	position := blockstamp.Blockstamp{
		Height: previous.Height + 1,
		Digest: next,
	}
	if _, ok := t.where[position]; ok {
		return fault.ForkBlockAlreadyExists
	}
	f.links[previous] = next
	f.tip = position
	t.where[position] = forkID
	return nil
}

// Tip - the highest position of a fork
func (t *Tree) Tip(forkID uint64) (blockstamp.Blockstamp, bool) {
	f, ok := t.forks[forkID]
	if !ok {
		return blockstamp.Blockstamp{}, false
	}
	return f.tip, true
}

// Base - the position a fork grew from
func (t *Tree) Base(forkID uint64) (blockstamp.Blockstamp, bool) {
	f, ok := t.forks[forkID]
	if !ok {
		return blockstamp.Blockstamp{}, false
	}
	return f.base, true
}

// ForkContaining - the fork holding a block at the given position
func (t *Tree) ForkContaining(position blockstamp.Blockstamp) (uint64, bool) {
	id, ok := t.where[position]
	return id, ok
}

// Path - the member positions of a fork in ascending height order
func (t *Tree) Path(forkID uint64) ([]blockstamp.Blockstamp, bool) {
	f, ok := t.forks[forkID]
	if !ok {
		return nil, false
	}

	path := make([]blockstamp.Blockstamp, 0, len(f.links))
	position := f.base
	for {
		digest, ok := f.links[position]
		if !ok {
			break
		}
		position = blockstamp.Blockstamp{
			Height: position.Height + 1,
			Digest: digest,
		}
		path = append(path, position)
	}
	return path, true
}

// StackableBlocks - positions of known blocks that sit directly on
// top of the current position, in first-seen order
func (t *Tree) StackableBlocks(current blockstamp.Blockstamp) []blockstamp.Blockstamp {

	type candidate struct {
		seq      uint64
		position blockstamp.Blockstamp
	}
	candidates := []candidate(nil)

	for id, f := range t.forks {
		if Canonical == id {
			continue
		}
		if digest, ok := f.links[current]; ok {
			candidates = append(candidates, candidate{
				seq: f.seq,
				position: blockstamp.Blockstamp{
					Height: current.Height + 1,
					Digest: digest,
				},
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].seq < candidates[j].seq
	})

	positions := make([]blockstamp.Blockstamp, len(candidates))
	for i, c := range candidates {
		positions[i] = c.position
	}
	return positions
}

// StackableForks - forks based exactly at the current position, in
// first-seen order
func (t *Tree) StackableForks(current blockstamp.Blockstamp) []uint64 {

	ids := []uint64(nil)
	for id, f := range t.forks {
		if Canonical == id {
			continue
		}
		if current == f.base {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		return t.forks[ids[i]].seq < t.forks[ids[j]].seq
	})
	return ids
}

// Winner - the fork that should replace the canonical chain
//
// a fork wins only when its tip is strictly higher than the
// canonical tip, an equal height branch never triggers a switch; on
// equal winning heights the first seen fork is kept
func (t *Tree) Winner() (uint64, bool) {

	canonicalHeight := t.forks[Canonical].tip.Height

	winner := uint64(0)
	found := false
	for id, f := range t.forks {
		if Canonical == id {
			continue
		}
		if f.tip.Height <= canonicalHeight {
			continue
		}
		if !found {
			winner = id
			found = true
			continue
		}
		w := t.forks[winner]
		if f.tip.Height > w.tip.Height ||
			(f.tip.Height == w.tip.Height && f.seq < w.seq) {
			winner = id
		}
	}
	return winner, found
}

// RemoveFork - forget a fork and all its member positions
func (t *Tree) RemoveFork(forkID uint64) {
	f, ok := t.forks[forkID]
	if !ok || Canonical == forkID {
		return
	}
	position := f.base
	for {
		digest, ok := f.links[position]
		if !ok {
			break
		}
		position = blockstamp.Blockstamp{
			Height: position.Height + 1,
			Digest: digest,
		}
		delete(t.where, position)
	}
	delete(t.forks, forkID)
}

// Adopt - make a fork the canonical chain
//
// canonical positions above the fork's base move onto a fresh fork,
// the adopted members are merged into the canonical linkage and the
// winning fork id disappears
func (t *Tree) Adopt(forkID uint64) error {
	f, ok := t.forks[forkID]
	if !ok || Canonical == forkID {
		return fault.ForkNotFound
	}

	canonical := t.forks[Canonical]
	if owner, ok := t.where[f.base]; !ok || Canonical != owner {
		return fault.CorruptedForkTree
	}

	// demote the abandoned canonical members to a fork of their own
	demoted := t.AddFork(f.base)
	d := t.forks[demoted]
	position := f.base
	for {
		digest, ok := canonical.links[position]
		if !ok {
			break
		}
		d.links[position] = digest
		delete(canonical.links, position)
		position = blockstamp.Blockstamp{
			Height: position.Height + 1,
			Digest: digest,
		}
		d.tip = position
		t.where[position] = demoted
	}
	if 0 == len(d.links) {
		// nothing was demoted, the fork grew from the tip
		t.RemoveFork(demoted)
	}

	// merge the winner into the canonical linkage
	position = f.base
	for {
		digest, ok := f.links[position]
		if !ok {
			break
		}
		canonical.links[position] = digest
		position = blockstamp.Blockstamp{
			Height: position.Height + 1,
			Digest: digest,
		}
		t.where[position] = Canonical
	}
	canonical.tip = f.tip
	delete(t.forks, forkID)
	return nil
}

// PruneOlderThan - drop forks whose tip has fallen more than window
// behind the canonical tip, and trim canonical linkage records that
// old; pruned forks are gone for good
func (t *Tree) PruneOlderThan(window uint64, canonicalHeight uint64) []uint64 {
	if canonicalHeight <= window {
		return nil
	}
	cutoff := canonicalHeight - window

	pruned := []uint64(nil)
	for id, f := range t.forks {
		if Canonical == id {
			continue
		}
		if f.tip.Height < cutoff {
			pruned = append(pruned, id)
		}
	}
	sort.Slice(pruned, func(i, j int) bool {
		return pruned[i] < pruned[j]
	})
	for _, id := range pruned {
		t.RemoveFork(id)
	}

	// trim the canonical linkage below the cutoff
	canonical := t.forks[Canonical]
	position := canonical.base
	for position.Height < cutoff {
		digest, ok := canonical.links[position]
		if !ok {
			break
		}
		delete(canonical.links, position)
		delete(t.where, position)
		position = blockstamp.Blockstamp{
			Height: position.Height + 1,
			Digest: digest,
		}
	}
	canonical.base = position

	return pruned
}

// Count - the number of live forks, canonical linkage excluded
func (t *Tree) Count() int {
	return len(t.forks) - 1
}
