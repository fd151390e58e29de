// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
)

// Block - a header together with the documents it carries
type Block struct {
	Header    *Header       `json:"header"`
	Documents *document.Set `json:"documents"`
}

// Pack - concatenate the packed header and the packed document section
func (block *Block) Pack() (PackedBlock, error) {
	if nil == block.Header || nil == block.Documents {
		return nil, fault.InvalidBlock
	}

	packedHeader := block.Header.Pack()
	packedDocuments, err := block.Documents.Pack()
	if nil != err {
		return nil, err
	}

	packed := make(PackedBlock, 0, len(packedHeader)+len(packedDocuments))
	packed = append(packed, packedHeader[:]...)
	packed = append(packed, packedDocuments...)
	return packed, nil
}

// Unpack - decode a packed block, also returning its digest
//
// trailing bytes after the document section make the block invalid
func (record PackedBlock) Unpack(testnet bool) (*Block, blockdigest.Digest, error) {

	header, digest, data, err := ExtractHeader(record)
	if nil != err {
		return nil, blockdigest.Digest{}, err
	}

	documents, n, err := document.UnpackSet(data, testnet)
	if nil != err {
		return nil, blockdigest.Digest{}, err
	}
	if len(data) != n {
		return nil, blockdigest.Digest{}, fault.InvalidBlock
	}

	block := &Block{
		Header:    header,
		Documents: documents,
	}
	return block, digest, nil
}

// Digest - digest for a packed block, covers header and documents
func (record PackedBlock) Digest() blockdigest.Digest {
	return blockdigest.NewDigest(record)
}
