// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document

import (
	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/util"
)

// Unpack - turn a byte slice into a record
//
// Note: the unpacker will access the underlying array of the packed
//       record so p[x:y].Unpack() can read past p[y] and could continue
//       up to cap(p), elements before p[x] cannot be accessed
//
// must cast result to correct type
//
// e.g.
//   identity, ok := result.(*document.Identity)
// or:
//   switch doc := result.(type) {
//   case *document.Identity:
func (record Packed) Unpack(testnet bool) (d Document, n int, e error) {

	defer func() {
		if r := recover(); nil != r {
			e = fault.NotDocumentPack
		}
	}()

	recordType, n := util.ClippedVarint64(record, 1, 8192)
	if 0 == n {
		return nil, 0, fault.NotDocumentPack
	}

unpack_switch:
	switch TagType(recordType) {

	case IdentityTag:

		// uid
		uidLength, uidOffset := util.ClippedVarint64(record[n:], 1, 8192)
		if 0 == uidOffset {
			break unpack_switch
		}
		n += uidOffset
		if n+uidLength > len(record) {
			break unpack_switch
		}
		uid := string(record[n : n+uidLength])
		n += uidLength

		// account
		acc, accountLength, err := unpackAccount(record[n:], testnet)
		if nil != err {
			return nil, 0, err
		}
		if 0 == accountLength {
			break unpack_switch
		}
		n += accountLength

		// signature is remainder of record
		signature, signatureLength := unpackSignature(record[n:])
		if 0 == signatureLength {
			break unpack_switch
		}
		n += signatureLength

		r := &Identity{
			Uid:       uid,
			Account:   acc,
			Signature: signature,
		}
		return r, n, nil

	case CertificationTag:

		// issuer
		issuer, issuerLength, err := unpackAccount(record[n:], testnet)
		if nil != err {
			return nil, 0, err
		}
		if 0 == issuerLength {
			break unpack_switch
		}
		n += issuerLength

		// target
		target, targetLength, err := unpackAccount(record[n:], testnet)
		if nil != err {
			return nil, 0, err
		}
		if 0 == targetLength {
			break unpack_switch
		}
		n += targetLength

		// signature is remainder of record
		signature, signatureLength := unpackSignature(record[n:])
		if 0 == signatureLength {
			break unpack_switch
		}
		n += signatureLength

		r := &Certification{
			Issuer:    issuer,
			Target:    target,
			Signature: signature,
		}
		return r, n, nil

	case MembershipTag:

		// account
		acc, accountLength, err := unpackAccount(record[n:], testnet)
		if nil != err {
			return nil, 0, err
		}
		if 0 == accountLength {
			break unpack_switch
		}
		n += accountLength

		// action
		action, actionLength := util.FromVarint64(record[n:])
		if 0 == actionLength {
			break unpack_switch
		}
		n += actionLength
		if uint64(Join) != action && uint64(Leave) != action {
			break unpack_switch
		}

		// signature is remainder of record
		signature, signatureLength := unpackSignature(record[n:])
		if 0 == signatureLength {
			break unpack_switch
		}
		n += signatureLength

		r := &Membership{
			Account:   acc,
			Action:    MembershipAction(action),
			Signature: signature,
		}
		return r, n, nil

	case RevocationTag:

		// account
		acc, accountLength, err := unpackAccount(record[n:], testnet)
		if nil != err {
			return nil, 0, err
		}
		if 0 == accountLength {
			break unpack_switch
		}
		n += accountLength

		// signature is remainder of record
		signature, signatureLength := unpackSignature(record[n:])
		if 0 == signatureLength {
			break unpack_switch
		}
		n += signatureLength

		r := &Revocation{
			Account:   acc,
			Signature: signature,
		}
		return r, n, nil

	case TransactionTag:

		// owner
		owner, ownerLength, err := unpackAccount(record[n:], testnet)
		if nil != err {
			return nil, 0, err
		}
		if 0 == ownerLength {
			break unpack_switch
		}
		n += ownerLength

		// inputs
		inputCount, inputCountLength := util.ClippedVarint64(record[n:], 1, maxInputs)
		if 0 == inputCountLength {
			break unpack_switch
		}
		n += inputCountLength

		inputs := make([]SourceID, inputCount)
		for i := 0; i < inputCount; i += 1 {
			if n+SourceIDLength > len(record) {
				break unpack_switch
			}
			id, err := SourceIDFromBytes(record[n : n+SourceIDLength])
			if nil != err {
				return nil, 0, err
			}
			inputs[i] = id
			n += SourceIDLength
		}

		// outputs
		outputCount, outputCountLength := util.ClippedVarint64(record[n:], 1, maxOutputs)
		if 0 == outputCountLength {
			break unpack_switch
		}
		n += outputCountLength

		outputs := make([]Output, outputCount)
		for i := 0; i < outputCount; i += 1 {
			amount, amountLength := util.FromVarint64(record[n:])
			if 0 == amountLength {
				break unpack_switch
			}
			n += amountLength

			recipient, recipientLength, err := unpackAccount(record[n:], testnet)
			if nil != err {
				return nil, 0, err
			}
			if 0 == recipientLength {
				break unpack_switch
			}
			n += recipientLength

			outputs[i].Amount = amount
			outputs[i].Recipient = recipient
		}

		// signature is remainder of record
		signature, signatureLength := unpackSignature(record[n:])
		if 0 == signatureLength {
			break unpack_switch
		}
		n += signatureLength

		r := &Transaction{
			Owner:     owner,
			Inputs:    inputs,
			Outputs:   outputs,
			Signature: signature,
		}
		return r, n, nil

	}
	return nil, 0, fault.NotDocumentPack
}

// UnpackSet - unpack the document section of a block
//
// five counted groups in application order
func UnpackSet(buffer []byte, testnet bool) (set *Set, n int, e error) {

	defer func() {
		if r := recover(); nil != r {
			e = fault.NotDocumentPack
		}
	}()

	set = &Set{}

	for i := 0; i < 5; i += 1 {
		count, countLength := util.ClippedVarint64(buffer[n:], 0, maxDocumentsPerGroup)
		if 0 == countLength {
			return nil, 0, fault.NotDocumentPack
		}
		n += countLength

		for j := 0; j < count; j += 1 {
			d, length, err := Packed(buffer[n:]).Unpack(testnet)
			if nil != err {
				return nil, 0, err
			}
			n += length

			ok := false
			switch i {
			case 0:
				var identity *Identity
				if identity, ok = d.(*Identity); ok {
					set.Identities = append(set.Identities, identity)
				}
			case 1:
				var certification *Certification
				if certification, ok = d.(*Certification); ok {
					set.Certifications = append(set.Certifications, certification)
				}
			case 2:
				var membership *Membership
				if membership, ok = d.(*Membership); ok {
					set.Memberships = append(set.Memberships, membership)
				}
			case 3:
				var revocation *Revocation
				if revocation, ok = d.(*Revocation); ok {
					set.Revocations = append(set.Revocations, revocation)
				}
			case 4:
				var tx *Transaction
				if tx, ok = d.(*Transaction); ok {
					set.Transactions = append(set.Transactions, tx)
				}
			}
			if !ok {
				return nil, 0, fault.NotDocumentPack
			}
		}
	}

	return set, n, nil
}

// unpack a length framed account, also checking its network flag
//
// returns 0 length to signal a framing problem
func unpackAccount(buffer []byte, testnet bool) (*account.Account, int, error) {
	accountLength, accountOffset := util.ClippedVarint64(buffer, 1, 8192)
	if 0 == accountOffset || accountOffset+accountLength > len(buffer) {
		return nil, 0, nil
	}
	acc, err := account.AccountFromBytes(buffer[accountOffset : accountOffset+accountLength])
	if nil != err {
		return nil, 0, err
	}
	if acc.IsTesting() != testnet {
		return nil, 0, fault.WrongNetworkForPublicKey
	}
	return acc, accountOffset + accountLength, nil
}

// unpack a length framed signature
//
// returns 0 length to signal a framing problem
func unpackSignature(buffer []byte) (account.Signature, int) {
	signatureLength, signatureOffset := util.ClippedVarint64(buffer, 1, maxSignatureLength)
	if 0 == signatureOffset || signatureOffset+signatureLength > len(buffer) {
		return nil, 0
	}
	signature := make(account.Signature, signatureLength)
	copy(signature, buffer[signatureOffset:signatureOffset+signatureLength])
	return signature, signatureOffset + signatureLength
}
