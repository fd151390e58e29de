// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/balance"
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/dividend"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/wot"
)

// query surface over the committed state
//
// every reader takes the shared lock so it never observes a
// half-applied block or a reorganisation in flight

// CurrentBlockstamp - the canonical tip
func CurrentBlockstamp() (blockstamp.Blockstamp, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return blockstamp.Blockstamp{}, false
	}
	meta, ok := metadata.Get()
	if !ok {
		return blockstamp.Blockstamp{}, false
	}
	return meta.Position, true
}

// ChainState - the full current metadata record
func ChainState() (*metadata.Data, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, false
	}
	return metadata.Get()
}

// BlockAt - decode the canonical block at a height
func BlockAt(height uint64) (*blockrecord.Block, blockstamp.Blockstamp, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, blockstamp.Blockstamp{}, fault.NotInitialised
	}
	return blockdb.UnpackMain(height, globalData.testnet)
}

// PackedBlockAt - the raw canonical block bytes at a height
func PackedBlockAt(height uint64) (blockrecord.PackedBlock, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, false
	}
	return blockdb.GetMain(height)
}

// BalanceOf - the current balance entry of an account
func BalanceOf(owner *account.Account) (*balance.Entry, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, false
	}
	return balance.Get(owner)
}

// IdentityOf - the current trust record of an account
func IdentityOf(owner *account.Account) (*wot.Record, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, false
	}
	return wot.GetRecord(owner)
}

// AccountForUid - resolve a uid to its bound account
func AccountForUid(uid string) (*account.Account, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, false
	}
	return wot.AccountForUid(uid)
}

// Members - the active member set
func Members() ([]*account.Account, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.NotInitialised
	}
	return wot.Members(nil)
}

// ExpiringCertifications - trust edges lapsing at a height
func ExpiringCertifications(height uint64) ([]wot.CertPair, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.NotInitialised
	}
	return wot.ExpiringCertifications(height)
}

// MonetaryMass - total currency units in circulation at the tip
func MonetaryMass() (uint64, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0, false
	}
	meta, ok := metadata.Get()
	if !ok {
		return 0, false
	}
	return meta.MonetaryMass, true
}

// MembersCount - the member count recorded by the tip block
func MembersCount() (uint64, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0, false
	}
	meta, ok := metadata.Get()
	if !ok {
		return 0, false
	}
	return meta.MembersCount, true
}

// DividendAt - the dividend amount created at a height
func DividendAt(height uint64) (uint64, bool) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0, false
	}
	return dividend.AmountAt(height)
}

// DividendsReceivedBy - the heights at which an account was paid
func DividendsReceivedBy(owner *account.Account) ([]uint64, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return nil, fault.NotInitialised
	}
	return dividend.ReceivedBy(owner)
}

// TotalBalances - sum over the whole balance index
//
// equals the declared monetary mass on a consistent store
func TotalBalances() (uint64, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0, fault.NotInitialised
	}
	return balance.TotalBalances()
}

// TotalUnspent - sum over the whole unspent source index
func TotalUnspent() (uint64, error) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0, fault.NotInitialised
	}
	return balance.TotalUnspent()
}

// ForkCount - how many competing branches are currently tracked
func ForkCount() int {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return 0
	}
	return globalData.tree.Count()
}
