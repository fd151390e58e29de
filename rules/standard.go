// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rules

import (
	"fmt"

	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/fault"
)

// StandardEngine - the registry carrying the consensus rule set
func StandardEngine() *Engine {
	engine := NewEngine()

	engine.Register(RuleHeightSequence, 1, true, checkHeightSequence)
	engine.Register(RulePreviousHash, 1, true, checkPreviousHash)
	engine.Register(RulePreviousIssuer, 1, true, checkPreviousIssuer)
	engine.Register(RuleVersionMonotonic, 1, true, checkVersionNeverDecreases)
	engine.Register(RuleVersionMonotonic, 2, true, checkVersionStepsByOne)
	engine.Register(RuleMedianTime, 1, true, checkMedianTime)
	engine.Register(RuleIssuerMember, 1, true, checkIssuerMember)
	engine.Register(RuleMonetaryMass, 1, true, checkMonetaryMass)

	return engine
}

// rule 10: heights are strictly sequential
func checkHeightSequence(block *blockrecord.Block, previous *Ancestry, _ Context) error {
	if block.Header.Number != previous.Block.Header.Number+1 {
		return fault.OutOfSequenceBlockNumber
	}
	return nil
}

// rule 20: the previous hash field names the actual previous block
func checkPreviousHash(block *blockrecord.Block, previous *Ancestry, _ Context) error {
	if block.Header.PreviousBlock != previous.Digest {
		return fault.WrongPreviousHash
	}
	return nil
}

// rule 30: the previous issuer field names the actual previous issuer
func checkPreviousIssuer(block *blockrecord.Block, previous *Ancestry, _ Context) error {
	if !block.Header.PreviousIssuer.Equal(previous.Block.Header.Issuer) {
		return fault.WrongPreviousIssuer
	}
	return nil
}

// rule 40 v1: the protocol version never decreases
func checkVersionNeverDecreases(block *blockrecord.Block, previous *Ancestry, _ Context) error {
	if block.Header.Version < previous.Block.Header.Version {
		return fault.VersionDecrease
	}
	return nil
}

// rule 40 v2: additionally the version rises at most one step at a time
func checkVersionStepsByOne(block *blockrecord.Block, previous *Ancestry, context Context) error {
	err := checkVersionNeverDecreases(block, previous, context)
	if nil != err {
		return err
	}
	if block.Header.Version > previous.Block.Header.Version+1 {
		return fault.VersionSkipped
	}
	return nil
}

// rule 50: median time never decreases
func checkMedianTime(block *blockrecord.Block, previous *Ancestry, _ Context) error {
	if block.Header.MedianTime < previous.Block.Header.MedianTime {
		return fault.MedianTimeRegression
	}
	return nil
}

// rule 60: the issuer is an active member as of the previous block
//
// an unknown issuer and a known non-member fail differently, the
// non-member violation carries the current state for diagnostics
func checkIssuerMember(block *blockrecord.Block, previous *Ancestry, context Context) error {
	record, known := context.IssuerState(block.Header.Issuer)
	if !known {
		return &Violation{
			Err:    fault.IdentityNotFound,
			Detail: fmt.Sprintf("issuer: %s", block.Header.Issuer),
		}
	}
	if !record.Status.IsActive() {
		return &Violation{
			Err:    fault.NotAMember,
			Detail: fmt.Sprintf("issuer: %q is %s", record.Uid, record.Status),
		}
	}
	return nil
}

// rule 70: the declared monetary mass follows the recurrence
//
//	mass = previous mass + dividend × previous member count
func checkMonetaryMass(block *blockrecord.Block, previous *Ancestry, _ Context) error {
	expected := previous.Block.Header.MonetaryMass +
		block.Header.Dividend*previous.Block.Header.MembersCount
	if block.Header.MonetaryMass != expected {
		return fault.WrongMonetaryMass
	}
	return nil
}
