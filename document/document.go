// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"encoding/hex"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/util"
)

// TagType - type code for documents
type TagType uint64

// enumerate the possible document record types
// this is encoded a Varint64 at start of "Packed"
const (
	// null marks beginning of list - not used as a record type
	NullTag = TagType(iota)

	// valid record types
	IdentityTag      = TagType(iota) // bind a uid to a public key
	CertificationTag = TagType(iota) // one identity vouches for another
	MembershipTag    = TagType(iota) // join or leave the member set
	RevocationTag    = TagType(iota) // permanently retire an identity
	TransactionTag   = TagType(iota) // move value between conditions

	// this item must be last
	InvalidTag = TagType(iota)
)

// Packed - packed records are just a byte slice
type Packed []byte

// Document - generic document interface
type Document interface {
	Pack(signer *account.Account) (Packed, error)
}

// byte sizes for various fields
const (
	minUidLength         = 2
	maxUidLength         = 64
	maxSignatureLength   = 1024
	maxInputs            = 1000
	maxOutputs           = 1000
	maxDocumentsPerGroup = 1000
)

// MembershipAction - the direction of a membership document
type MembershipAction uint64

// membership document directions
const (
	Join  = MembershipAction(1) // become or remain a member
	Leave = MembershipAction(2) // resign from the member set
)

// Identity - bind a human readable uid to a public key, self signed
type Identity struct {
	Uid       string            `json:"uid"`       // utf-8
	Account   *account.Account  `json:"account"`   // base58
	Signature account.Signature `json:"signature"` // hex
}

// Certification - the issuer vouches for the target identity
type Certification struct {
	Issuer    *account.Account  `json:"issuer"`    // base58
	Target    *account.Account  `json:"target"`    // base58
	Signature account.Signature `json:"signature"` // hex: corresponds to issuer
}

// Membership - join or leave request for an already declared identity
type Membership struct {
	Account   *account.Account  `json:"account"`   // base58
	Action    MembershipAction  `json:"action"`    // join or leave
	Signature account.Signature `json:"signature"` // hex
}

// Revocation - permanently retire an identity
type Revocation struct {
	Account   *account.Account  `json:"account"`   // base58
	Signature account.Signature `json:"signature"` // hex
}

// Output - value sent to a single signature condition
type Output struct {
	Amount    uint64           `json:"amount"`    // smallest currency unit
	Recipient *account.Account `json:"recipient"` // base58
}

// Transaction - consume sources held by the owner condition and
// create outputs for the recipients
type Transaction struct {
	Owner     *account.Account  `json:"owner"`     // base58: condition being spent
	Inputs    []SourceID        `json:"inputs"`    // sources consumed
	Outputs   []Output          `json:"outputs"`   // values created
	Signature account.Signature `json:"signature"` // hex: corresponds to owner
}

// Set - all documents carried by one block, in application order
type Set struct {
	Identities     []*Identity      `json:"identities"`
	Certifications []*Certification `json:"certifications"`
	Memberships    []*Membership    `json:"memberships"`
	Revocations    []*Revocation    `json:"revocations"`
	Transactions   []*Transaction   `json:"transactions"`
}

// Count - total number of documents in the set
func (set *Set) Count() int {
	return len(set.Identities) + len(set.Certifications) +
		len(set.Memberships) + len(set.Revocations) +
		len(set.Transactions)
}

// Type - returns the record type code
func (record Packed) Type() TagType {
	recordType, n := util.FromVarint64(record)
	if 0 == n {
		return NullTag
	}
	return TagType(recordType)
}

// RecordName - returns the name of a document record as a string
func RecordName(record interface{}) (string, bool) {
	switch record.(type) {
	case *Identity, Identity:
		return "Identity", true

	case *Certification, Certification:
		return "Certification", true

	case *Membership, Membership:
		return "Membership", true

	case *Revocation, Revocation:
		return "Revocation", true

	case *Transaction, Transaction:
		return "Transaction", true

	default:
		return "*unknown*", false
	}
}

// TxId - the digest identifying a packed transaction
//
// inputs of later transactions refer to outputs through this value
func (record Packed) TxId() Digest {
	return NewDigest(record)
}

// MarshalText - convert a packed to its hex JSON form
func (record Packed) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(record))
	b := make([]byte, size)
	hex.Encode(b, record)
	return b, nil
}

// UnmarshalText - convert a packed from its hex JSON form
func (record *Packed) UnmarshalText(s []byte) error {
	size := hex.DecodedLen(len(s))
	*record = make([]byte, size)
	_, err := hex.Decode(*record, s)
	return err
}
