// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fork

import (
	"encoding/binary"
	"sort"

	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
)

// snapshot layout, all integers big endian
//
//	u64   next fork id
//	u64   next sequence number
//	u64   fork count
//	fork: u64 id, u64 seq, blockstamp base, u64 n, n digests
//
// links are stored as the run of digests from base to tip, the tree
// only ever grows a fork one block past its tip so the run is always
// contiguous

const forkHeaderSize = 8 + 8 + blockstamp.Length + 8

// Snapshot - serialize the tree for the metadata singleton
//
// fork order is by id so equal trees produce equal bytes
func (t *Tree) Snapshot() []byte {

	ids := make([]uint64, 0, len(t.forks))
	for id := range t.forks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	buffer := make([]byte, 24, 1024)
	binary.BigEndian.PutUint64(buffer[0:], t.nextID)
	binary.BigEndian.PutUint64(buffer[8:], t.nextSeq)
	binary.BigEndian.PutUint64(buffer[16:], uint64(len(ids)))

	scratch := make([]byte, 8)
	for _, id := range ids {
		f := t.forks[id]

		binary.BigEndian.PutUint64(scratch, f.id)
		buffer = append(buffer, scratch...)
		binary.BigEndian.PutUint64(scratch, f.seq)
		buffer = append(buffer, scratch...)
		buffer = append(buffer, f.base.Pack()...)

		digests := runOfDigests(f)
		binary.BigEndian.PutUint64(scratch, uint64(len(digests)))
		buffer = append(buffer, scratch...)
		for _, digest := range digests {
			buffer = append(buffer, digest[:]...)
		}
	}
	return buffer
}

// the link digests from base to tip in ascending height order
func runOfDigests(f *forkData) []blockdigest.Digest {
	digests := make([]blockdigest.Digest, 0, len(f.links))
	position := f.base
	for {
		digest, ok := f.links[position]
		if !ok {
			break
		}
		digests = append(digests, digest)
		position = blockstamp.Blockstamp{
			Height: position.Height + 1,
			Digest: digest,
		}
	}
	return digests
}

// Restore - rebuild a tree from a snapshot
func Restore(buffer []byte, maxForks int) (*Tree, error) {

	if len(buffer) < 24 {
		return nil, fault.CorruptedForkTree
	}

	t := &Tree{
		maxForks: maxForks,
		nextID:   binary.BigEndian.Uint64(buffer[0:]),
		nextSeq:  binary.BigEndian.Uint64(buffer[8:]),
		forks:    make(map[uint64]*forkData),
		where:    make(map[blockstamp.Blockstamp]uint64),
	}
	count := binary.BigEndian.Uint64(buffer[16:])
	buffer = buffer[24:]

	for i := uint64(0); i < count; i += 1 {
		if len(buffer) < forkHeaderSize {
			return nil, fault.CorruptedForkTree
		}

		f := &forkData{
			id:    binary.BigEndian.Uint64(buffer[0:]),
			seq:   binary.BigEndian.Uint64(buffer[8:]),
			links: make(map[blockstamp.Blockstamp]blockdigest.Digest),
		}
		err := f.base.Unpack(buffer[16 : 16+blockstamp.Length])
		if nil != err {
			return nil, fault.CorruptedForkTree
		}
		n := binary.BigEndian.Uint64(buffer[16+blockstamp.Length:])
		buffer = buffer[forkHeaderSize:]

		if uint64(len(buffer)) < n*blockdigest.Length {
			return nil, fault.CorruptedForkTree
		}

		f.tip = f.base
		position := f.base
		for j := uint64(0); j < n; j += 1 {
			digest := blockdigest.Digest{}
			copy(digest[:], buffer[:blockdigest.Length])
			buffer = buffer[blockdigest.Length:]

			f.links[position] = digest
			position = blockstamp.Blockstamp{
				Height: position.Height + 1,
				Digest: digest,
			}
			f.tip = position
			t.where[position] = f.id
		}

		if Canonical == f.id && !f.base.Digest.IsEmpty() {
			t.where[f.base] = Canonical
		}
		t.forks[f.id] = f
	}

	if _, ok := t.forks[Canonical]; !ok {
		return nil, fault.CorruptedForkTree
	}
	if 0 != len(buffer) {
		return nil, fault.CorruptedForkTree
	}
	return t, nil
}
