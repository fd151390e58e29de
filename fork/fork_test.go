// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fork_test

import (
	"testing"

	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/fork"
)

// fabricate a digest that is unique per label
func digest(label byte) blockdigest.Digest {
	d := blockdigest.Digest{}
	d[0] = label
	d[31] = ^label
	return d
}

func stamp(height uint64, label byte) blockstamp.Blockstamp {
	return blockstamp.Blockstamp{
		Height: height,
		Digest: digest(label),
	}
}

// grow the canonical chain to the given height, labels 1..height
func grownTree(t *testing.T, height uint64) *fork.Tree {
	tree := fork.New(8)
	err := tree.Root(stamp(0, 0))
	if nil != err {
		t.Fatalf("root error: %s", err)
	}
	for h := uint64(1); h <= height; h += 1 {
		err = tree.RecordLink(fork.Canonical, tipOf(t, tree, fork.Canonical), digest(byte(h)))
		if nil != err {
			t.Fatalf("link %d error: %s", h, err)
		}
	}
	return tree
}

func tipOf(t *testing.T, tree *fork.Tree, id uint64) blockstamp.Blockstamp {
	tip, ok := tree.Tip(id)
	if !ok {
		t.Fatalf("no tip for fork: %d", id)
	}
	return tip
}

func TestCanonicalGrowth(t *testing.T) {
	tree := grownTree(t, 5)

	tip := tipOf(t, tree, fork.Canonical)
	if 5 != tip.Height || digest(5) != tip.Digest {
		t.Fatalf("tip: %s", tip)
	}

	// a link that skips the tip must be refused
	err := tree.RecordLink(fork.Canonical, stamp(3, 3), digest(9))
	if fault.OutOfSequenceBlockNumber != err {
		t.Fatalf("out of sequence link error: %v", err)
	}

	// a position is owned by the canonical fork
	id, ok := tree.ForkContaining(stamp(3, 3))
	if !ok || fork.Canonical != id {
		t.Fatalf("fork containing: %d %v", id, ok)
	}
}

func TestForkLifecycle(t *testing.T) {
	tree := grownTree(t, 5)

	// diverge at height 3
	id := tree.AddFork(stamp(3, 3))
	if fork.Canonical == id {
		t.Fatal("new fork must not reuse the canonical id")
	}
	err := tree.RecordLink(id, stamp(3, 3), digest(0x41))
	if nil != err {
		t.Fatalf("fork link error: %s", err)
	}

	// same block recorded twice is a conflict
	err = tree.RecordLink(id, stamp(3, 3), digest(0x41))
	if fault.OutOfSequenceBlockNumber != err {
		t.Fatalf("duplicate link error: %v", err)
	}

	owner, ok := tree.ForkContaining(stamp(4, 0x41))
	if !ok || id != owner {
		t.Fatalf("fork containing: %d %v", owner, ok)
	}

	// equal length: no winner
	err = tree.RecordLink(id, stamp(4, 0x41), digest(0x42))
	if nil != err {
		t.Fatalf("fork link error: %s", err)
	}
	if winner, ok := tree.Winner(); ok {
		t.Fatalf("equal height fork won: %d", winner)
	}

	// one longer: winner
	err = tree.RecordLink(id, stamp(5, 0x42), digest(0x43))
	if nil != err {
		t.Fatalf("fork link error: %s", err)
	}
	winner, ok := tree.Winner()
	if !ok || id != winner {
		t.Fatalf("winner: %d %v", winner, ok)
	}
}

func TestStackable(t *testing.T) {
	tree := grownTree(t, 4)

	a := tree.AddFork(stamp(2, 2))
	b := tree.AddFork(stamp(2, 2))
	if err := tree.RecordLink(a, stamp(2, 2), digest(0x51)); nil != err {
		t.Fatalf("link error: %s", err)
	}
	if err := tree.RecordLink(b, stamp(2, 2), digest(0x61)); nil != err {
		t.Fatalf("link error: %s", err)
	}

	blocks := tree.StackableBlocks(stamp(2, 2))
	if 2 != len(blocks) {
		t.Fatalf("stackable blocks: %d", len(blocks))
	}
	// first seen fork first
	if digest(0x51) != blocks[0].Digest || digest(0x61) != blocks[1].Digest {
		t.Fatalf("stackable order: %v", blocks)
	}

	forks := tree.StackableForks(stamp(2, 2))
	if 2 != len(forks) || a != forks[0] || b != forks[1] {
		t.Fatalf("stackable forks: %v", forks)
	}
}

func TestAdopt(t *testing.T) {
	tree := grownTree(t, 5)

	id := tree.AddFork(stamp(3, 3))
	for i, label := range []byte{0x71, 0x72, 0x73, 0x74} {
		prev := stamp(3, 3)
		if i > 0 {
			prev = stamp(uint64(3+i), label-1)
		}
		if err := tree.RecordLink(id, prev, digest(label)); nil != err {
			t.Fatalf("link error: %s", err)
		}
	}

	err := tree.Adopt(id)
	if nil != err {
		t.Fatalf("adopt error: %s", err)
	}

	tip := tipOf(t, tree, fork.Canonical)
	if 7 != tip.Height || digest(0x74) != tip.Digest {
		t.Fatalf("tip after adopt: %s", tip)
	}

	// old canonical blocks above the ancestor became a fork
	owner, ok := tree.ForkContaining(stamp(4, 4))
	if !ok || fork.Canonical == owner {
		t.Fatalf("demoted block owner: %d %v", owner, ok)
	}

	// adopted positions are canonical now
	owner, ok = tree.ForkContaining(stamp(6, 0x73))
	if !ok || fork.Canonical != owner {
		t.Fatalf("adopted block owner: %d %v", owner, ok)
	}

	// the winning fork id is gone
	if _, ok = tree.Tip(id); ok {
		t.Fatal("adopted fork id still present")
	}
}

func TestPrune(t *testing.T) {
	tree := grownTree(t, 2)

	stale := tree.AddFork(stamp(1, 1))
	if err := tree.RecordLink(stale, stamp(1, 1), digest(0x81)); nil != err {
		t.Fatalf("link error: %s", err)
	}

	for h := uint64(3); h <= 30; h += 1 {
		err := tree.RecordLink(fork.Canonical, tipOf(t, tree, fork.Canonical), digest(byte(h)))
		if nil != err {
			t.Fatalf("link %d error: %s", h, err)
		}
	}

	pruned := tree.PruneOlderThan(10, 30)
	if 1 != len(pruned) || stale != pruned[0] {
		t.Fatalf("pruned: %v", pruned)
	}
	if 0 != tree.Count() {
		t.Fatalf("fork count after prune: %d", tree.Count())
	}

	// a pruned position is fully forgotten
	if _, ok := tree.ForkContaining(stamp(2, 0x81)); ok {
		t.Fatal("pruned position still known")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	tree := grownTree(t, 5)

	id := tree.AddFork(stamp(3, 3))
	if err := tree.RecordLink(id, stamp(3, 3), digest(0x91)); nil != err {
		t.Fatalf("link error: %s", err)
	}

	snapshot := tree.Snapshot()

	restored, err := fork.Restore(snapshot, 8)
	if nil != err {
		t.Fatalf("restore error: %s", err)
	}

	if string(snapshot) != string(restored.Snapshot()) {
		t.Fatal("snapshot round trip differs")
	}

	tip, ok := restored.Tip(id)
	if !ok || 4 != tip.Height || digest(0x91) != tip.Digest {
		t.Fatalf("restored fork tip: %s %v", tip, ok)
	}

	_, err = fork.Restore(snapshot[:len(snapshot)-1], 8)
	if fault.CorruptedForkTree != err {
		t.Fatalf("truncated restore error: %v", err)
	}
}
