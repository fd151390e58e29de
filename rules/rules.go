// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rules - the versioned consensus rule registry
//
// A rule is a number bound to one check function per protocol
// version. Evaluation walks the registry in ascending rule number
// order and stops at the first violation, so a block always fails the
// same way regardless of which caller validates it. The check for a
// block picks the highest version binding that does not exceed the
// block's declared version, a rule with no binding at or below the
// block's version simply does not apply.
//
// The genesis block has no previous block and is exempt from every
// rule that needs one.
package rules

import (
	"fmt"
	"sort"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/blockdigest"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/wot"
)

// the standard rule numbers, gaps left for insertions
const (
	RuleHeightSequence   = 10
	RulePreviousHash     = 20
	RulePreviousIssuer   = 30
	RuleVersionMonotonic = 40
	RuleMedianTime       = 50
	RuleIssuerMember     = 60
	RuleMonetaryMass     = 70
)

// Violation - a named consensus rule failure
//
// recoverable: the block is rejected, chain state is untouched
type Violation struct {
	Rule   uint
	Err    error
	Detail string
}

// Error - the error interface
func (violation *Violation) Error() string {
	if "" == violation.Detail {
		return fmt.Sprintf("rule %d: %s", violation.Rule, violation.Err)
	}
	return fmt.Sprintf("rule %d: %s (%s)", violation.Rule, violation.Err, violation.Detail)
}

// Unwrap - expose the underlying fault for errors.Is
func (violation *Violation) Unwrap() error {
	return violation.Err
}

// IsViolation - determine if an error is a rule violation
func IsViolation(e error) bool {
	_, ok := e.(*Violation)
	return ok
}

// Ancestry - the previous block together with its digest
type Ancestry struct {
	Block  *blockrecord.Block
	Digest blockdigest.Digest
}

// Context - the read only chain state a rule may consult
type Context interface {
	// IssuerState - trust record of an account, false when unknown
	IssuerState(issuer *account.Account) (*wot.Record, bool)
}

// CheckFunc - one versioned check
//
// previous is never nil, rules that do not need it are registered
// accordingly
type CheckFunc func(block *blockrecord.Block, previous *Ancestry, context Context) error

type rule struct {
	needsPrevious bool
	versions      map[uint16]CheckFunc
}

// Engine - an ordered rule registry
type Engine struct {
	numbers []uint // ascending
	rules   map[uint]*rule
}

// NewEngine - an empty registry
func NewEngine() *Engine {
	return &Engine{
		rules: make(map[uint]*rule),
	}
}

// Register - bind a check function to a rule number and version
//
// registering the same number again adds or replaces the version
// binding, the needsPrevious flag of the first registration sticks
func (engine *Engine) Register(number uint, version uint16, needsPrevious bool, check CheckFunc) {
	r, ok := engine.rules[number]
	if !ok {
		r = &rule{
			needsPrevious: needsPrevious,
			versions:      make(map[uint16]CheckFunc),
		}
		engine.rules[number] = r

		engine.numbers = append(engine.numbers, number)
		sort.Slice(engine.numbers, func(i, j int) bool {
			return engine.numbers[i] < engine.numbers[j]
		})
	}
	r.versions[version] = check
}

// the binding for a block version: highest registered version that
// does not exceed it
func (r *rule) dispatch(blockVersion uint16) CheckFunc {
	best := uint16(0)
	var check CheckFunc
	for version, f := range r.versions {
		if version <= blockVersion && version >= best {
			best = version
			check = f
		}
	}
	return check
}

// Validate - run every applicable rule against a block
//
// returns nil on success, a *Violation on the first failed rule, or
// a process fault when the engine cannot evaluate at all
func (engine *Engine) Validate(block *blockrecord.Block, previous *Ancestry, context Context) error {
	if 0 == len(engine.numbers) {
		return fault.NoRegisteredRules
	}

	genesis := block.Header.IsGenesis()
	if !genesis && nil == previous {
		return &Violation{
			Rule: RuleHeightSequence,
			Err:  fault.MissingPreviousBlock,
		}
	}

	for _, number := range engine.numbers {
		r := engine.rules[number]

		if r.needsPrevious && genesis {
			continue
		}

		check := r.dispatch(block.Header.Version)
		if nil == check {
			continue
		}

		err := check(block, previous, context)
		if nil == err {
			continue
		}
		if violation, ok := err.(*Violation); ok {
			violation.Rule = number
			return violation
		}
		return &Violation{
			Rule: number,
			Err:  err,
		}
	}
	return nil
}
