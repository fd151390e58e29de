// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"unicode/utf8"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/util"
)

// Pack Identity
//
// Pack Varint64(tag) followed by fields in order as struct above with
// signature last
//
// NOTE: returns the "unsigned" message on signature failure - for
//       debugging/testing
func (identity *Identity) Pack(signer *account.Account) (Packed, error) {
	if len(identity.Signature) > maxSignatureLength {
		return nil, fault.SignatureTooLong
	}

	if nil == identity.Account || nil == signer {
		return nil, fault.InvalidAccount
	}

	if utf8.RuneCountInString(identity.Uid) < minUidLength {
		return nil, fault.UidTooShort
	}
	if utf8.RuneCountInString(identity.Uid) > maxUidLength {
		return nil, fault.UidTooLong
	}

	// concatenate bytes
	message := util.ToVarint64(uint64(IdentityTag))
	message = appendString(message, identity.Uid)
	message = appendAccount(message, identity.Account)

	// signature
	err := signer.CheckSignature(message, identity.Signature)
	if nil != err {
		return message, err
	}
	// Signature Last
	return appendBytes(message, identity.Signature), nil
}

// Pack Certification
//
// Pack Varint64(tag) followed by fields in order as struct above with
// signature last
//
// NOTE: returns the "unsigned" message on signature failure - for
//       debugging/testing
func (certification *Certification) Pack(signer *account.Account) (Packed, error) {
	if len(certification.Signature) > maxSignatureLength {
		return nil, fault.SignatureTooLong
	}

	if nil == certification.Issuer || nil == certification.Target || nil == signer {
		return nil, fault.InvalidAccount
	}

	// concatenate bytes
	message := util.ToVarint64(uint64(CertificationTag))
	message = appendAccount(message, certification.Issuer)
	message = appendAccount(message, certification.Target)

	// signature
	err := signer.CheckSignature(message, certification.Signature)
	if nil != err {
		return message, err
	}
	// Signature Last
	return appendBytes(message, certification.Signature), nil
}

// Pack Membership
//
// Pack Varint64(tag) followed by fields in order as struct above with
// signature last
//
// NOTE: returns the "unsigned" message on signature failure - for
//       debugging/testing
func (membership *Membership) Pack(signer *account.Account) (Packed, error) {
	if len(membership.Signature) > maxSignatureLength {
		return nil, fault.SignatureTooLong
	}

	if nil == membership.Account || nil == signer {
		return nil, fault.InvalidAccount
	}

	if Join != membership.Action && Leave != membership.Action {
		return nil, fault.InvalidDocument
	}

	// concatenate bytes
	message := util.ToVarint64(uint64(MembershipTag))
	message = appendAccount(message, membership.Account)
	message = appendUint64(message, uint64(membership.Action))

	// signature
	err := signer.CheckSignature(message, membership.Signature)
	if nil != err {
		return message, err
	}
	// Signature Last
	return appendBytes(message, membership.Signature), nil
}

// Pack Revocation
//
// Pack Varint64(tag) followed by fields in order as struct above with
// signature last
//
// NOTE: returns the "unsigned" message on signature failure - for
//       debugging/testing
func (revocation *Revocation) Pack(signer *account.Account) (Packed, error) {
	if len(revocation.Signature) > maxSignatureLength {
		return nil, fault.SignatureTooLong
	}

	if nil == revocation.Account || nil == signer {
		return nil, fault.InvalidAccount
	}

	// concatenate bytes
	message := util.ToVarint64(uint64(RevocationTag))
	message = appendAccount(message, revocation.Account)

	// signature
	err := signer.CheckSignature(message, revocation.Signature)
	if nil != err {
		return message, err
	}
	// Signature Last
	return appendBytes(message, revocation.Signature), nil
}

// Pack Transaction
//
// Pack Varint64(tag) followed by fields in order as struct above with
// signature last, inputs and outputs preceded by their counts
//
// NOTE: returns the "unsigned" message on signature failure - for
//       debugging/testing
func (tx *Transaction) Pack(signer *account.Account) (Packed, error) {
	if len(tx.Signature) > maxSignatureLength {
		return nil, fault.SignatureTooLong
	}

	if nil == tx.Owner || nil == signer {
		return nil, fault.InvalidAccount
	}

	if 0 == len(tx.Inputs) || 0 == len(tx.Outputs) {
		return nil, fault.InvalidDocument
	}
	if len(tx.Inputs) > maxInputs || len(tx.Outputs) > maxOutputs {
		return nil, fault.InvalidCount
	}

	// concatenate bytes
	message := util.ToVarint64(uint64(TransactionTag))
	message = appendAccount(message, tx.Owner)

	message = appendUint64(message, uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		message = append(message, input.Pack()...)
	}

	message = appendUint64(message, uint64(len(tx.Outputs)))
	for _, output := range tx.Outputs {
		if 0 == output.Amount {
			return nil, fault.InvalidDocument
		}
		if nil == output.Recipient {
			return nil, fault.InvalidAccount
		}
		message = appendUint64(message, output.Amount)
		message = appendAccount(message, output.Recipient)
	}

	// signature
	err := signer.CheckSignature(message, tx.Signature)
	if nil != err {
		return message, err
	}
	// Signature Last
	return appendBytes(message, tx.Signature), nil
}

// Pack Set
//
// each document is packed with its own declared signer, slices are
// preceded by their counts, order matches index application order
func (set *Set) Pack() (Packed, error) {

	message := Packed{}

	message = appendUint64(message, uint64(len(set.Identities)))
	for _, identity := range set.Identities {
		p, err := identity.Pack(identity.Account)
		if nil != err {
			return nil, err
		}
		message = append(message, p...)
	}

	message = appendUint64(message, uint64(len(set.Certifications)))
	for _, certification := range set.Certifications {
		p, err := certification.Pack(certification.Issuer)
		if nil != err {
			return nil, err
		}
		message = append(message, p...)
	}

	message = appendUint64(message, uint64(len(set.Memberships)))
	for _, membership := range set.Memberships {
		p, err := membership.Pack(membership.Account)
		if nil != err {
			return nil, err
		}
		message = append(message, p...)
	}

	message = appendUint64(message, uint64(len(set.Revocations)))
	for _, revocation := range set.Revocations {
		p, err := revocation.Pack(revocation.Account)
		if nil != err {
			return nil, err
		}
		message = append(message, p...)
	}

	message = appendUint64(message, uint64(len(set.Transactions)))
	for _, tx := range set.Transactions {
		p, err := tx.Pack(tx.Owner)
		if nil != err {
			return nil, err
		}
		message = append(message, p...)
	}

	return message, nil
}

// append a single field to a buffer
//
// the field is prefixed by Varint64(length)
func appendString(buffer Packed, s string) Packed {
	l := util.ToVarint64(uint64(len(s)))
	buffer = append(buffer, l...)
	return append(buffer, s...)
}

// append an account to a buffer
//
// the field is prefixed by Varint64(length)
func appendAccount(buffer Packed, address *account.Account) Packed {
	data := address.Bytes()
	l := util.ToVarint64(uint64(len(data)))
	buffer = append(buffer, l...)
	buffer = append(buffer, data...)
	return buffer
}

// append a bytes to a buffer
//
// the field is prefixed by Varint64(length)
func appendBytes(buffer Packed, data []byte) Packed {
	l := util.ToVarint64(uint64(len(data)))
	buffer = append(buffer, l...)
	buffer = append(buffer, data...)
	return buffer
}

// append a Varint64 to buffer
func appendUint64(buffer Packed, value uint64) Packed {
	valueBytes := util.ToVarint64(value)
	buffer = append(buffer, valueBytes...)
	return buffer
}
