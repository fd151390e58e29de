// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockrecord

import (
	"encoding/binary"

	"golang.org/x/crypto/ed25519"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
)

// PackedHeader - use fixed size array to simplify validation
type PackedHeader [totalHeaderSize]byte

// PackedBlock - packed header and documents, just a byte slice
type PackedBlock []byte

// currently supported protocol versions
const (
	Version            = 2 // current protocol version
	MinimumVersion     = 1
	GenesisBlockNumber = 0
)

// byte sizes for various fields
const (
	VersionSize       = 2                    // protocol version number
	NumberSize        = 8                    // this block's height
	PreviousBlockSize = blockdigest.Length   // 256-bit Argon2d digest of the previous block
	IssuerSize        = account.PackedLength // key variant byte plus ed25519 public key
	MembersCountSize  = 8                    // active members as of this block
	TimeSize          = 8                    // seconds since 1970-01-01T00:00 UTC
	MedianTimeSize    = 8                    // median of recent block times
	DividendSize      = 8                    // universal dividend amount, zero when none
	MonetaryMassSize  = 8                    // total units issued up to this block
	SignatureSize     = ed25519.SignatureSize
)

// offsets of the fields
const (
	versionOffset        = 0
	numberOffset         = versionOffset + VersionSize
	previousBlockOffset  = numberOffset + NumberSize
	previousIssuerOffset = previousBlockOffset + PreviousBlockSize
	issuerOffset         = previousIssuerOffset + IssuerSize
	membersCountOffset   = issuerOffset + IssuerSize
	timeOffset           = membersCountOffset + MembersCountSize
	medianTimeOffset     = timeOffset + TimeSize
	dividendOffset       = medianTimeOffset + MedianTimeSize
	monetaryMassOffset   = dividendOffset + DividendSize
	signatureOffset      = monetaryMassOffset + MonetaryMassSize

	// to set size of header array
	totalHeaderSize = signatureOffset + SignatureSize // total bytes in the header
)

// Header - the unpacked header structure
type Header struct {
	Version        uint16             `json:"version"`
	Number         uint64             `json:"number,string"`
	PreviousBlock  blockdigest.Digest `json:"previousBlock"`
	PreviousIssuer *account.Account   `json:"previousIssuer"` // nil on the genesis block
	Issuer         *account.Account   `json:"issuer"`
	MembersCount   uint64             `json:"membersCount"`
	Time           uint64             `json:"time,string"`
	MedianTime     uint64             `json:"medianTime,string"`
	Dividend       uint64             `json:"dividend"` // zero when the block creates no dividend
	MonetaryMass   uint64             `json:"monetaryMass"`
	Signature      account.Signature  `json:"signature"`
}

// IsGenesis - true for the founding block of a chain
func (header *Header) IsGenesis() bool {
	return GenesisBlockNumber == header.Number
}

// Blockstamp - the chain position of a block given its digest
func (header *Header) Blockstamp(digest blockdigest.Digest) blockstamp.Blockstamp {
	return blockstamp.Blockstamp{
		Height: header.Number,
		Digest: digest,
	}
}

// ExtractHeader - extract a header from the front of a []byte
//
// the digest is computed over the entire packed block so it also
// covers the document section
func ExtractHeader(block []byte) (*Header, blockdigest.Digest, []byte, error) {
	if len(block) < totalHeaderSize {
		return nil, blockdigest.Digest{}, nil, fault.InvalidBlockHeaderSize
	}
	packedHeader := PackedHeader{}
	copy(packedHeader[:], block[:totalHeaderSize])

	header, err := packedHeader.Unpack()
	if nil != err {
		return nil, blockdigest.Digest{}, nil, err
	}
	digest := blockdigest.NewDigest(block)

	return header, digest, block[totalHeaderSize:], nil
}

// Unpack - turn a byte slice into a record
func (record PackedHeader) Unpack() (*Header, error) {

	header := &Header{}

	header.Version = binary.LittleEndian.Uint16(record[versionOffset:])
	header.Number = binary.LittleEndian.Uint64(record[numberOffset:])

	if header.Version < MinimumVersion {
		return nil, fault.InvalidBlockVersion
	}

	err := blockdigest.DigestFromBytes(&header.PreviousBlock, record[previousBlockOffset:previousIssuerOffset])
	if nil != err {
		return nil, err
	}

	header.PreviousIssuer, err = accountFromFixed(record[previousIssuerOffset:issuerOffset])
	if nil != err {
		return nil, err
	}
	if nil == header.PreviousIssuer && !header.IsGenesis() {
		return nil, fault.InvalidAccount
	}

	header.Issuer, err = accountFromFixed(record[issuerOffset:membersCountOffset])
	if nil != err {
		return nil, err
	}
	if nil == header.Issuer {
		return nil, fault.InvalidAccount
	}

	header.MembersCount = binary.LittleEndian.Uint64(record[membersCountOffset:])
	header.Time = binary.LittleEndian.Uint64(record[timeOffset:])
	header.MedianTime = binary.LittleEndian.Uint64(record[medianTimeOffset:])
	header.Dividend = binary.LittleEndian.Uint64(record[dividendOffset:])
	header.MonetaryMass = binary.LittleEndian.Uint64(record[monetaryMassOffset:])

	header.Signature = make(account.Signature, SignatureSize)
	copy(header.Signature, record[signatureOffset:])

	return header, nil
}

// Pack - turn a record into an array of bytes
func (header *Header) Pack() PackedHeader {
	buffer := PackedHeader{}

	binary.LittleEndian.PutUint16(buffer[versionOffset:], header.Version)
	binary.LittleEndian.PutUint64(buffer[numberOffset:], header.Number)

	// digest is stored in little endian order so can just copy it
	copy(buffer[previousBlockOffset:], header.PreviousBlock[:])

	packAccountFixed(buffer[previousIssuerOffset:issuerOffset], header.PreviousIssuer)
	packAccountFixed(buffer[issuerOffset:membersCountOffset], header.Issuer)

	binary.LittleEndian.PutUint64(buffer[membersCountOffset:], header.MembersCount)
	binary.LittleEndian.PutUint64(buffer[timeOffset:], header.Time)
	binary.LittleEndian.PutUint64(buffer[medianTimeOffset:], header.MedianTime)
	binary.LittleEndian.PutUint64(buffer[dividendOffset:], header.Dividend)
	binary.LittleEndian.PutUint64(buffer[monetaryMassOffset:], header.MonetaryMass)

	copy(buffer[signatureOffset:], header.Signature)

	return buffer
}

// SignatureMessage - the header bytes covered by the issuer signature
//
// everything before the signature field itself
func (header *Header) SignatureMessage() []byte {
	packed := header.Pack()
	return packed[:signatureOffset]
}

// an account in a fixed width field, zero filled when nil
func packAccountFixed(buffer []byte, acc *account.Account) {
	if nil == acc {
		return
	}
	copy(buffer, acc.Bytes())
}

// decode a fixed width account field, all zero bytes decode to nil
func accountFromFixed(buffer []byte) (*account.Account, error) {
	if 0 == buffer[0] {
		for _, b := range buffer[1:] {
			if 0 != b {
				return nil, fault.NotPublicKey
			}
		}
		return nil, nil
	}
	return account.AccountFromBytes(buffer[:account.PackedLength])
}
