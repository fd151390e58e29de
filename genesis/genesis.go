// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package genesis - the founding block of each chain
//
// The founding block carries the founder identities and their join
// documents, nothing else. It is reconstructed deterministically from
// embedded founder seeds so every node derives bit-identical founding
// bytes, including the signatures.
package genesis

import (
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/chain"
	"github.com/meridian-money/meridiand/currency"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
)

// the founder uids, the first founder issues the block
var founderUids = []string{
	"altair",
	"rigel",
	"vega",
}

var blockCache struct {
	sync.Mutex
	blocks map[string]blockrecord.PackedBlock
}

// Block - the packed founding block of a chain
func Block(chainName string) (blockrecord.PackedBlock, error) {
	if !chain.Valid(chainName) {
		return nil, fault.InvalidChainName
	}

	blockCache.Lock()
	defer blockCache.Unlock()

	if nil == blockCache.blocks {
		blockCache.blocks = make(map[string]blockrecord.PackedBlock)
	}
	if packed, ok := blockCache.blocks[chainName]; ok {
		return packed, nil
	}

	parameters, err := currency.Get(chainName)
	if nil != err {
		return nil, err
	}

	packed, err := build(parameters, chain.Meridian != chainName)
	if nil != err {
		return nil, err
	}
	blockCache.blocks[chainName] = packed
	return packed, nil
}

// derive a founder keypair from the currency name and uid
func founderKey(currencyName string, uid string, testnet bool) (*account.PrivateKey, error) {
	seed := sha3.Sum256([]byte(currencyName + ":founder:" + uid))
	return account.PrivateKeyFromSeed(testnet, seed[:])
}

// assemble and sign the founding block
func build(parameters *currency.Parameters, testnet bool) (blockrecord.PackedBlock, error) {

	identities := make([]*document.Identity, 0, len(founderUids))
	memberships := make([]*document.Membership, 0, len(founderUids))

	var issuerKey *account.PrivateKey

	for i, uid := range founderUids {
		key, err := founderKey(parameters.Currency, uid, testnet)
		if nil != err {
			return nil, err
		}
		if 0 == i {
			issuerKey = key
		}
		owner := key.Account()

		identity := &document.Identity{
			Uid:     uid,
			Account: owner,
		}
		message, _ := identity.Pack(owner)
		identity.Signature = key.Sign(message)
		identities = append(identities, identity)

		membership := &document.Membership{
			Account: owner,
			Action:  document.Join,
		}
		message, _ = membership.Pack(owner)
		membership.Signature = key.Sign(message)
		memberships = append(memberships, membership)
	}

	header := &blockrecord.Header{
		Version:      blockrecord.MinimumVersion,
		Number:       blockrecord.GenesisBlockNumber,
		Issuer:       issuerKey.Account(),
		MembersCount: uint64(len(founderUids)),
		Time:         parameters.GenesisTime,
		MedianTime:   parameters.GenesisTime,
		Dividend:     0,
		MonetaryMass: 0,
	}
	header.Signature = issuerKey.Sign(header.SignatureMessage())

	block := &blockrecord.Block{
		Header: header,
		Documents: &document.Set{
			Identities:  identities,
			Memberships: memberships,
		},
	}
	return block.Pack()
}
