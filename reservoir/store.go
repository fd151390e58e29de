// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
)

// one buffered block
type orphanItem struct {
	position blockstamp.Blockstamp
	packed   blockrecord.PackedBlock
}

// the buffer key is the packed parent position
func parentKey(parent blockstamp.Blockstamp) string {
	return string(parent.Pack())
}

// StoreBlock - buffer a block until its parent arrives
//
// the block is decoded first so the buffer never holds undecodable
// bytes, and duplicates of an already waiting block are ignored
func StoreBlock(packed blockrecord.PackedBlock, claimedPrevious blockstamp.Blockstamp, testnet bool) error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}
	if !globalData.limiter.Allow() {
		return fault.RateLimiting
	}

	block, digest, err := packed.Unpack(testnet)
	if nil != err {
		return err
	}
	position := block.Header.Blockstamp(digest)

	key := parentKey(claimedPrevious)
	waiting := []orphanItem(nil)
	if stored, ok := globalData.orphans.Get(key); ok {
		waiting = stored.([]orphanItem)
		for _, item := range waiting {
			if item.position == position {
				return nil
			}
		}
	}
	waiting = append(waiting, orphanItem{
		position: position,
		packed:   packed,
	})
	globalData.orphans.Set(key, waiting, gocache.DefaultExpiration)
	globalData.wanted[claimedPrevious] = globalData.clock.Now()

	globalData.log.Infof("buffered %s waiting for %s", position, claimedPrevious)
	return nil
}

// take all orphans waiting for a parent, removing them from the buffer
func takeWaiting(parent blockstamp.Blockstamp) []orphanItem {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return nil
	}

	key := parentKey(parent)
	stored, ok := globalData.orphans.Get(key)
	if !ok {
		return nil
	}
	globalData.orphans.Delete(key)
	delete(globalData.wanted, parent)
	return stored.([]orphanItem)
}

// WantedParents - positions orphans are waiting for
//
// a fetch layer polls this to know which blocks to request from peers
func WantedParents() []blockstamp.Blockstamp {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil
	}

	parents := make([]blockstamp.Blockstamp, 0, len(globalData.wanted))
	for parent := range globalData.wanted {
		parents = append(parents, parent)
	}
	return parents
}

// Count - number of parent positions with waiting blocks
func Count() int {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0
	}
	return globalData.orphans.ItemCount()
}

// drop wanted entries whose orphans have aged out of the cache
func sweepWanted() {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return
	}
	for parent := range globalData.wanted {
		if _, ok := globalData.orphans.Get(parentKey(parent)); !ok {
			delete(globalData.wanted, parent)
		}
	}
}

// stale wanted entries older than the cutoff
func staleWanted(cutoff time.Time) []blockstamp.Blockstamp {
	globalData.RLock()
	defer globalData.RUnlock()

	stale := []blockstamp.Blockstamp(nil)
	for parent, since := range globalData.wanted {
		if since.Before(cutoff) {
			stale = append(stale, parent)
		}
	}
	return stale
}
