// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger_test

import (
	"errors"
	"os"
	"testing"

	"github.com/bitmark-inc/logger"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/chain"
	"github.com/meridian-money/meridiand/currency"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/ledger"
	"github.com/meridian-money/meridiand/mode"
	"github.com/meridian-money/meridiand/rules"
	"github.com/meridian-money/meridiand/storage"
	"github.com/meridian-money/meridiand/wot"
)

const testingDirName = "testing"

// a three member chain driven with locally held founder keys so every
// test can issue correctly signed blocks
type harness struct {
	parameters *currency.Parameters
	keys       []*account.PrivateKey
	accounts   []*account.Account
	uids       []string
}

func setup(t *testing.T) *harness {
	t.Helper()
	os.RemoveAll(testingDirName)
	_ = os.Mkdir(testingDirName, 0700)

	_ = logger.Initialise(logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	})

	_, err := storage.Initialise(testingDirName+"/test", storage.ReadWrite)
	if nil != err {
		t.Fatalf("storage initialise error: %s", err)
	}

	err = mode.Initialise(chain.Local)
	if nil != err {
		t.Fatalf("mode initialise error: %s", err)
	}

	parameters, err := currency.Get(chain.Local)
	if nil != err {
		t.Fatalf("parameters error: %s", err)
	}

	err = ledger.Initialise(parameters, true)
	if nil != err {
		t.Fatalf("ledger initialise error: %s", err)
	}
	mode.Set(mode.Normal)

	h := &harness{
		parameters: parameters,
		uids:       []string{"ada", "ben", "cyr"},
	}
	for i := range h.uids {
		seed := make([]byte, 32)
		for j := range seed {
			seed[j] = byte(0x30 + i)
		}
		key, err := account.PrivateKeyFromSeed(true, seed)
		if nil != err {
			t.Fatalf("keypair error: %s", err)
		}
		h.keys = append(h.keys, key)
		h.accounts = append(h.accounts, key.Account())
	}
	return h
}

func teardown(t *testing.T) {
	t.Helper()
	_ = ledger.Finalise()
	_ = mode.Finalise()
	storage.Finalise()
	logger.Finalise()
	os.RemoveAll(testingDirName)
}

// the founding block: the three identities and their joins
func (h *harness) genesis(t *testing.T) (blockrecord.PackedBlock, blockstamp.Blockstamp) {
	t.Helper()

	identities := []*document.Identity(nil)
	memberships := []*document.Membership(nil)
	for i, uid := range h.uids {
		identity := &document.Identity{
			Uid:     uid,
			Account: h.accounts[i],
		}
		message, _ := identity.Pack(h.accounts[i])
		identity.Signature = h.keys[i].Sign(message)
		identities = append(identities, identity)

		membership := &document.Membership{
			Account: h.accounts[i],
			Action:  document.Join,
		}
		message, _ = membership.Pack(h.accounts[i])
		membership.Signature = h.keys[i].Sign(message)
		memberships = append(memberships, membership)
	}

	header := &blockrecord.Header{
		Version:      blockrecord.MinimumVersion,
		Number:       blockrecord.GenesisBlockNumber,
		Issuer:       h.accounts[0],
		MembersCount: uint64(len(h.accounts)),
		Time:         h.parameters.GenesisTime,
		MedianTime:   h.parameters.GenesisTime,
	}
	header.Signature = h.keys[0].Sign(header.SignatureMessage())

	block := &blockrecord.Block{
		Header: header,
		Documents: &document.Set{
			Identities:  identities,
			Memberships: memberships,
		},
	}
	packed, err := block.Pack()
	if nil != err {
		t.Fatalf("pack error: %s", err)
	}
	return packed, header.Blockstamp(packed.Digest())
}

// a signed block extending previous, following the dividend recurrence
func (h *harness) nextBlock(t *testing.T, previous *blockrecord.Header, previousPosition blockstamp.Blockstamp, issuer int, medianTime uint64, amount uint64, documents *document.Set) (blockrecord.PackedBlock, blockstamp.Blockstamp) {
	t.Helper()

	if nil == documents {
		documents = &document.Set{}
	}
	header := &blockrecord.Header{
		Version:        blockrecord.MinimumVersion,
		Number:         previousPosition.Height + 1,
		PreviousBlock:  previousPosition.Digest,
		PreviousIssuer: previous.Issuer,
		Issuer:         h.accounts[issuer],
		MembersCount:   previous.MembersCount,
		Time:           medianTime,
		MedianTime:     medianTime,
		Dividend:       amount,
		MonetaryMass:   previous.MonetaryMass + amount*previous.MembersCount,
	}
	header.Signature = h.keys[issuer].Sign(header.SignatureMessage())

	block := &blockrecord.Block{
		Header:    header,
		Documents: documents,
	}
	packed, err := block.Pack()
	if nil != err {
		t.Fatalf("pack error: %s", err)
	}
	return packed, header.Blockstamp(packed.Digest())
}

func submit(t *testing.T, packed blockrecord.PackedBlock, previous blockstamp.Blockstamp, expected ledger.Disposition) {
	t.Helper()
	disposition, err := ledger.SubmitBlock(packed, previous)
	if expected != disposition {
		t.Fatalf("disposition: %s expected: %s error: %v", disposition, expected, err)
	}
	if ledger.Rejected != expected && nil != err {
		t.Fatalf("submit error: %s", err)
	}
}

func headerAt(t *testing.T, height uint64) (*blockrecord.Header, blockstamp.Blockstamp) {
	t.Helper()
	block, position, err := ledger.BlockAt(height)
	if nil != err {
		t.Fatalf("block at %d error: %s", height, err)
	}
	return block.Header, position
}

func TestCanonicalGrowth(t *testing.T) {
	h := setup(t)
	defer teardown(t)

	genesisPacked, genesisPosition := h.genesis(t)
	submit(t, genesisPacked, blockstamp.Blockstamp{}, ledger.Accepted)

	tip, ok := ledger.CurrentBlockstamp()
	if !ok || tip != genesisPosition {
		t.Fatalf("tip: %s expected: %s", tip, genesisPosition)
	}

	gtime := h.parameters.GenesisTime
	genesisHeader, _ := headerAt(t, 0)

	// height 1 creates a dividend for all three members
	b1, p1 := h.nextBlock(t, genesisHeader, genesisPosition, 0, gtime+10, 100, nil)
	submit(t, b1, genesisPosition, ledger.Accepted)

	state, ok := ledger.ChainState()
	if !ok {
		t.Fatal("no chain state")
	}
	if p1 != state.Position || 300 != state.MonetaryMass || 3 != state.MembersCount {
		t.Fatalf("state: %+v", state)
	}
	mass, ok := ledger.MonetaryMass()
	if !ok || state.MonetaryMass != mass {
		t.Fatalf("mass: %d/%v expected: %d", mass, ok, state.MonetaryMass)
	}
	count, ok := ledger.MembersCount()
	if !ok || state.MembersCount != count {
		t.Fatalf("members count: %d/%v expected: %d", count, ok, state.MembersCount)
	}

	for _, owner := range h.accounts {
		entry, ok := ledger.BalanceOf(owner)
		if !ok || 100 != entry.Amount {
			t.Fatalf("balance of %s: %v", owner, entry)
		}
	}
	amount, ok := ledger.DividendAt(1)
	if !ok || 100 != amount {
		t.Fatalf("dividend at 1: %d/%v", amount, ok)
	}

	totalBalances, err := ledger.TotalBalances()
	if nil != err {
		t.Fatalf("total balances error: %s", err)
	}
	totalUnspent, err := ledger.TotalUnspent()
	if nil != err {
		t.Fatalf("total unspent error: %s", err)
	}
	if state.MonetaryMass != totalBalances || state.MonetaryMass != totalUnspent {
		t.Fatalf("totals: %d/%d mass: %d", totalBalances, totalUnspent, state.MonetaryMass)
	}

	members, err := ledger.Members()
	if nil != err || 3 != len(members) {
		t.Fatalf("members: %v error: %v", members, err)
	}
	resolved, ok := ledger.AccountForUid("ben")
	if !ok || !resolved.Equal(h.accounts[1]) {
		t.Fatal("uid lookup failed")
	}
	record, ok := ledger.IdentityOf(h.accounts[1])
	if !ok || "ben" != record.Uid || wot.Member != record.Status {
		t.Fatalf("identity of ben: %+v", record)
	}

	// height 2 spends ada's dividend
	tx := &document.Transaction{
		Owner:  h.accounts[0],
		Inputs: []document.SourceID{document.DividendSource(h.accounts[0], 1)},
		Outputs: []document.Output{
			{Amount: 40, Recipient: h.accounts[1]},
			{Amount: 60, Recipient: h.accounts[0]},
		},
	}
	message, _ := tx.Pack(tx.Owner)
	tx.Signature = h.keys[0].Sign(message)

	header1, _ := headerAt(t, 1)
	b2, p2 := h.nextBlock(t, header1, p1, 1, gtime+20, 0,
		&document.Set{Transactions: []*document.Transaction{tx}})
	submit(t, b2, p1, ledger.Accepted)

	tip, _ = ledger.CurrentBlockstamp()
	if p2 != tip {
		t.Fatalf("tip: %s expected: %s", tip, p2)
	}
	entry, _ := ledger.BalanceOf(h.accounts[0])
	if 60 != entry.Amount {
		t.Fatalf("ada balance: %v", entry)
	}
	entry, _ = ledger.BalanceOf(h.accounts[1])
	if 140 != entry.Amount {
		t.Fatalf("ben balance: %v", entry)
	}

	block, _, err := ledger.BlockAt(2)
	if nil != err || 1 != len(block.Documents.Transactions) {
		t.Fatalf("block at 2: %v error: %v", block, err)
	}
}

func TestSubmitEdgeCases(t *testing.T) {
	h := setup(t)
	defer teardown(t)

	genesisPacked, genesisPosition := h.genesis(t)
	submit(t, genesisPacked, blockstamp.Blockstamp{}, ledger.Accepted)

	// a second founding block can never apply
	_, err := ledger.SubmitBlock(genesisPacked, blockstamp.Blockstamp{})
	if fault.BlockAlreadyExists != err {
		t.Fatalf("error: %v expected: %v", err, fault.BlockAlreadyExists)
	}

	gtime := h.parameters.GenesisTime
	genesisHeader, _ := headerAt(t, 0)

	b1, p1 := h.nextBlock(t, genesisHeader, genesisPosition, 0, gtime+10, 100, nil)
	submit(t, b1, genesisPosition, ledger.Accepted)

	// exact duplicate
	_, err = ledger.SubmitBlock(b1, genesisPosition)
	if fault.BlockAlreadyExists != err {
		t.Fatalf("error: %v expected: %v", err, fault.BlockAlreadyExists)
	}

	// transport claim disagreeing with the header
	header1, _ := headerAt(t, 1)
	b2, _ := h.nextBlock(t, header1, p1, 1, gtime+20, 0, nil)
	_, err = ledger.SubmitBlock(b2, genesisPosition)
	if fault.InvalidBlock != err {
		t.Fatalf("error: %v expected: %v", err, fault.InvalidBlock)
	}

	// a block whose parent was never seen buffers
	orphanParent := blockstamp.Blockstamp{Height: 10}
	orphanParent.Digest[0] = 0x99
	orphan, _ := h.nextBlock(t, &blockrecord.Header{
		Issuer:       h.accounts[0],
		MembersCount: 3,
		MonetaryMass: 300,
	}, orphanParent, 0, gtime+30, 0, nil)
	disposition, err := ledger.SubmitBlock(orphan, orphanParent)
	if ledger.Buffered != disposition || nil != err {
		t.Fatalf("disposition: %s error: %v expected: buffered", disposition, err)
	}

	// monetary mass off by one unit
	bad, _ := h.nextBlock(t, header1, p1, 1, gtime+20, 0, nil)
	badBlock, _, _ := bad.Unpack(true)
	badBlock.Header.MonetaryMass += 1
	badBlock.Header.Signature = h.keys[1].Sign(badBlock.Header.SignatureMessage())
	badPacked, _ := badBlock.Pack()

	disposition, err = ledger.SubmitBlock(badPacked, p1)
	if ledger.Rejected != disposition {
		t.Fatalf("disposition: %s expected: rejected", disposition)
	}
	if !rules.IsViolation(err) || !errors.Is(err, fault.WrongMonetaryMass) {
		t.Fatalf("error: %v expected a monetary mass violation", err)
	}

	// a stranger cannot issue
	strangerKey, err := account.PrivateKeyFromSeed(true, make([]byte, 32))
	if nil != err {
		t.Fatalf("keypair error: %s", err)
	}
	stranger := &harness{
		parameters: h.parameters,
		keys:       []*account.PrivateKey{strangerKey},
		accounts:   []*account.Account{strangerKey.Account()},
	}
	foreign, _ := stranger.nextBlock(t, header1, p1, 0, gtime+20, 0, nil)
	_, err = ledger.SubmitBlock(foreign, p1)
	if !rules.IsViolation(err) || !errors.Is(err, fault.IdentityNotFound) {
		t.Fatalf("error: %v expected an unknown issuer violation", err)
	}

	// nothing above moved the tip
	tip, _ := ledger.CurrentBlockstamp()
	if p1 != tip {
		t.Fatalf("tip: %s expected: %s", tip, p1)
	}
}

func TestReorganize(t *testing.T) {
	h := setup(t)
	defer teardown(t)

	genesisPacked, genesisPosition := h.genesis(t)
	submit(t, genesisPacked, blockstamp.Blockstamp{}, ledger.Accepted)

	gtime := h.parameters.GenesisTime
	genesisHeader, _ := headerAt(t, 0)

	// canonical chain: two blocks, one dividend
	a1, ap1 := h.nextBlock(t, genesisHeader, genesisPosition, 0, gtime+10, 100, nil)
	submit(t, a1, genesisPosition, ledger.Accepted)
	header1, _ := headerAt(t, 1)
	a2, ap2 := h.nextBlock(t, header1, ap1, 1, gtime+20, 0, nil)
	submit(t, a2, ap1, ledger.Accepted)

	// competing branch from the founding block
	b1, bp1 := h.nextBlock(t, genesisHeader, genesisPosition, 2, gtime+30, 100, nil)
	submit(t, b1, genesisPosition, ledger.AcceptedFork)
	if 1 != ledger.ForkCount() {
		t.Fatalf("fork count: %d expected: 1", ledger.ForkCount())
	}

	b1Block, _, err := b1.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	b2, bp2 := h.nextBlock(t, b1Block.Header, bp1, 2, gtime+40, 0, nil)
	submit(t, b2, bp1, ledger.AcceptedFork)

	// same height as the canonical tip never switches
	tip, _ := ledger.CurrentBlockstamp()
	if ap2 != tip {
		t.Fatalf("tip: %s expected: %s", tip, ap2)
	}

	// one more block makes the branch strictly longer
	b2Block, _, err := b2.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	b3, bp3 := h.nextBlock(t, b2Block.Header, bp2, 2, gtime+50, 100, nil)
	submit(t, b3, bp2, ledger.Reorganized)

	tip, _ = ledger.CurrentBlockstamp()
	if bp3 != tip {
		t.Fatalf("tip: %s expected: %s", tip, bp3)
	}

	// the branch is the canonical chain now
	_, position := headerAt(t, 1)
	if bp1 != position {
		t.Fatalf("height 1: %s expected: %s", position, bp1)
	}
	_, position = headerAt(t, 3)
	if bp3 != position {
		t.Fatalf("height 3: %s expected: %s", position, bp3)
	}

	// indexes follow: two dividends of 100 for each member
	state, _ := ledger.ChainState()
	if 600 != state.MonetaryMass {
		t.Fatalf("mass: %d expected: 600", state.MonetaryMass)
	}
	for _, owner := range h.accounts {
		entry, ok := ledger.BalanceOf(owner)
		if !ok || 200 != entry.Amount {
			t.Fatalf("balance of %s: %v", owner, entry)
		}
	}
	amount, ok := ledger.DividendAt(3)
	if !ok || 100 != amount {
		t.Fatalf("dividend at 3: %d/%v", amount, ok)
	}
	totalBalances, err := ledger.TotalBalances()
	if nil != err || 600 != totalBalances {
		t.Fatalf("total balances: %d error: %v", totalBalances, err)
	}

	// the abandoned canonical suffix is now the tracked fork
	if 1 != ledger.ForkCount() {
		t.Fatalf("fork count: %d expected: 1", ledger.ForkCount())
	}
}

// a fork delivered newest first: the children buffer until the fork
// root arrives, then each acceptance announcement frees the next child
// and the strictly longer branch still wins
func TestOutOfOrderForkAdoption(t *testing.T) {
	h := setup(t)
	defer teardown(t)

	genesisPacked, genesisPosition := h.genesis(t)
	submit(t, genesisPacked, blockstamp.Blockstamp{}, ledger.Accepted)

	gtime := h.parameters.GenesisTime
	genesisHeader, _ := headerAt(t, 0)

	a1, ap1 := h.nextBlock(t, genesisHeader, genesisPosition, 0, gtime+10, 0, nil)
	submit(t, a1, genesisPosition, ledger.Accepted)
	header1, _ := headerAt(t, 1)
	a2, _ := h.nextBlock(t, header1, ap1, 1, gtime+20, 0, nil)
	submit(t, a2, ap1, ledger.Accepted)

	// the competing branch, built up front
	b1, bp1 := h.nextBlock(t, genesisHeader, genesisPosition, 2, gtime+30, 100, nil)
	b1Block, _, err := b1.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	b2, bp2 := h.nextBlock(t, b1Block.Header, bp1, 2, gtime+40, 0, nil)
	b2Block, _, err := b2.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	b3, bp3 := h.nextBlock(t, b2Block.Header, bp2, 2, gtime+50, 100, nil)

	// stand-in for the orphan buffer: blocks remembered by the parent
	// they wait for, resubmitted when that position is announced
	type waiting struct {
		packed blockrecord.PackedBlock
		parent blockstamp.Blockstamp
	}
	pending := map[blockstamp.Blockstamp]waiting{
		bp1: {packed: b2, parent: bp1},
		bp2: {packed: b3, parent: bp2},
	}
	announced := []blockstamp.Blockstamp(nil)
	ledger.SetAnnounce(func(position blockstamp.Blockstamp, packed blockrecord.PackedBlock) {
		announced = append(announced, position)
	})

	// children before the parent: both just buffer
	submit(t, b2, bp1, ledger.Buffered)
	submit(t, b3, bp2, ledger.Buffered)

	// the fork root arrives and must be announced even though it does
	// not extend the canonical chain
	submit(t, b1, genesisPosition, ledger.AcceptedFork)

	last := ledger.AcceptedFork
	for 0 != len(announced) {
		position := announced[0]
		announced = announced[1:]
		item, ok := pending[position]
		if !ok {
			continue
		}
		delete(pending, position)
		last, err = ledger.SubmitBlock(item.packed, item.parent)
		if nil != err {
			t.Fatalf("resubmit of %s error: %s", position, err)
		}
	}
	if 0 != len(pending) {
		t.Fatalf("%d buffered blocks were never freed", len(pending))
	}
	if ledger.Reorganized != last {
		t.Fatalf("final disposition: %s expected: %s", last, ledger.Reorganized)
	}

	tip, _ := ledger.CurrentBlockstamp()
	if bp3 != tip {
		t.Fatalf("tip: %s expected: %s", tip, bp3)
	}
	_, position := headerAt(t, 1)
	if bp1 != position {
		t.Fatalf("height 1: %s expected: %s", position, bp1)
	}
}

// a fork that falls outside the window is forgotten for good, its
// block resubmits like an orphan instead of reopening the fork
func TestPrunedForkForgotten(t *testing.T) {
	h := setup(t)
	defer teardown(t)

	genesisPacked, genesisPosition := h.genesis(t)
	submit(t, genesisPacked, blockstamp.Blockstamp{}, ledger.Accepted)

	gtime := h.parameters.GenesisTime
	genesisHeader, _ := headerAt(t, 0)

	// two canonical blocks so a branch from the founding block is a
	// fork and not a canonical extension
	header := genesisHeader
	position := genesisPosition
	grow := func(i uint64) {
		packed, next := h.nextBlock(t, header, position, int(i)%3, gtime+10*i, 0, nil)
		submit(t, packed, position, ledger.Accepted)
		block, _, err := packed.Unpack(true)
		if nil != err {
			t.Fatalf("unpack error: %s", err)
		}
		header = block.Header
		position = next
	}
	grow(1)
	grow(2)

	f1, _ := h.nextBlock(t, genesisHeader, genesisPosition, 2, gtime+5, 100, nil)
	submit(t, f1, genesisPosition, ledger.AcceptedFork)
	if 1 != ledger.ForkCount() {
		t.Fatalf("fork count: %d expected: 1", ledger.ForkCount())
	}

	// push the canonical tip past the fork window
	for i := uint64(3); i <= h.parameters.ForkWindow+2; i += 1 {
		grow(i)
	}
	if 0 != ledger.ForkCount() {
		t.Fatalf("fork count: %d expected: 0", ledger.ForkCount())
	}

	submit(t, f1, genesisPosition, ledger.Buffered)
}

func TestResetToHeight(t *testing.T) {
	h := setup(t)
	defer teardown(t)

	genesisPacked, genesisPosition := h.genesis(t)
	submit(t, genesisPacked, blockstamp.Blockstamp{}, ledger.Accepted)

	gtime := h.parameters.GenesisTime
	genesisHeader, _ := headerAt(t, 0)

	a1, ap1 := h.nextBlock(t, genesisHeader, genesisPosition, 0, gtime+10, 100, nil)
	submit(t, a1, genesisPosition, ledger.Accepted)
	header1, _ := headerAt(t, 1)
	a2, _ := h.nextBlock(t, header1, ap1, 1, gtime+20, 100, nil)
	submit(t, a2, ap1, ledger.Accepted)

	// refused while running normally
	err := ledger.ResetToHeight(1)
	if fault.WrongNodeMode != err {
		t.Fatalf("error: %v expected: %v", err, fault.WrongNodeMode)
	}

	mode.Set(mode.Resynchronise)

	// a target at or above the tip is a no-op
	err = ledger.ResetToHeight(5)
	if nil != err {
		t.Fatalf("reset error: %s", err)
	}

	err = ledger.ResetToHeight(1)
	if nil != err {
		t.Fatalf("reset error: %s", err)
	}

	tip, _ := ledger.CurrentBlockstamp()
	if ap1 != tip {
		t.Fatalf("tip: %s expected: %s", tip, ap1)
	}
	for _, owner := range h.accounts {
		entry, ok := ledger.BalanceOf(owner)
		if !ok || 100 != entry.Amount {
			t.Fatalf("balance of %s: %v", owner, entry)
		}
	}
	if _, ok := ledger.DividendAt(2); ok {
		t.Fatal("dividend at 2 survived the reset")
	}

	// the chain grows again from the reset point
	mode.Set(mode.Normal)
	submit(t, a2, ap1, ledger.Accepted)
	state, _ := ledger.ChainState()
	if 2 != state.Position.Height || 600 != state.MonetaryMass {
		t.Fatalf("state after regrowth: %+v", state)
	}
}
