// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wot

import (
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/currency"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// fetch a record inside the transaction
func getRecord(trx storage.Transaction, packedAccount []byte) (*Record, error) {
	buffer := trx.Get(storage.Pool.Identities, packedAccount)
	if nil == buffer {
		return nil, fault.IdentityNotFound
	}
	return RecordFromBytes(buffer)
}

func putRecord(trx storage.Transaction, packedAccount []byte, record *Record) {
	trx.Put(storage.Pool.Identities, packedAccount, record.Pack())
}

// Apply - play the trust documents of a block onto the identity state
//
// document groups run in the order they are packed: identities,
// certifications, memberships, revocations; lapsed memberships are
// processed last
func Apply(trx storage.Transaction, position blockstamp.Blockstamp, block *blockrecord.Block, parameters *currency.Parameters) error {

	for _, identity := range block.Documents.Identities {
		err := applyIdentity(trx, position, identity)
		if nil != err {
			return err
		}
	}

	for _, certification := range block.Documents.Certifications {
		err := applyCertification(trx, position, certification, parameters)
		if nil != err {
			return err
		}
	}

	for _, membership := range block.Documents.Memberships {
		err := applyMembership(trx, position, block.Header.MedianTime, membership, parameters)
		if nil != err {
			return err
		}
	}

	for _, revocation := range block.Documents.Revocations {
		err := applyRevocation(trx, position, revocation)
		if nil != err {
			return err
		}
	}

	return applyLapses(trx, position, parameters)
}

// Revert - exact inverse of Apply, groups in reverse order
func Revert(trx storage.Transaction, position blockstamp.Blockstamp, block *blockrecord.Block, parameters *currency.Parameters) error {

	err := revertLapses(trx, position, parameters)
	if nil != err {
		return err
	}

	documents := block.Documents
	for i := len(documents.Revocations) - 1; i >= 0; i -= 1 {
		err = revertRevocation(trx, position, documents.Revocations[i])
		if nil != err {
			return err
		}
	}

	for i := len(documents.Memberships) - 1; i >= 0; i -= 1 {
		err = revertMembership(trx, position, documents.Memberships[i], parameters)
		if nil != err {
			return err
		}
	}

	for i := len(documents.Certifications) - 1; i >= 0; i -= 1 {
		err = revertCertification(trx, position, documents.Certifications[i], parameters)
		if nil != err {
			return err
		}
	}

	for i := len(documents.Identities) - 1; i >= 0; i -= 1 {
		err = revertIdentity(trx, position, documents.Identities[i])
		if nil != err {
			return err
		}
	}
	return nil
}

// identity documents
// ------------------

func applyIdentity(trx storage.Transaction, position blockstamp.Blockstamp, identity *document.Identity) error {
	packedAccount := identity.Account.Bytes()

	if nil != trx.Get(storage.Pool.Identities, packedAccount) {
		return fault.IdentityAlreadyExists
	}
	uidKey := []byte(identity.Uid)
	if nil != trx.Get(storage.Pool.Uids, uidKey) {
		return fault.UidAlreadyExists
	}

	record := &Record{
		Uid:    identity.Uid,
		Status: Declared,
		Since:  position,
	}
	putRecord(trx, packedAccount, record)
	trx.Put(storage.Pool.Uids, uidKey, packedAccount)
	return nil
}

func revertIdentity(trx storage.Transaction, position blockstamp.Blockstamp, identity *document.Identity) error {
	packedAccount := identity.Account.Bytes()

	record, err := getRecord(trx, packedAccount)
	if nil != err {
		return fault.CorruptedIdentityRecord
	}
	if Declared != record.Status || position != record.Since {
		return fault.CorruptedIdentityRecord
	}

	trx.Delete(storage.Pool.Identities, packedAccount)
	trx.Delete(storage.Pool.Uids, []byte(identity.Uid))
	return nil
}

// certification documents
// -----------------------

func applyCertification(trx storage.Transaction, position blockstamp.Blockstamp, certification *document.Certification, parameters *currency.Parameters) error {
	issuer, err := getRecord(trx, certification.Issuer.Bytes())
	if nil != err {
		return err
	}
	if !issuer.Status.IsActive() {
		return fault.NotAMember
	}
	if _, err = getRecord(trx, certification.Target.Bytes()); nil != err {
		return err
	}

	scheduleCertExpiry(trx, position.Height+parameters.CertValidity, certification.Issuer, certification.Target)
	return nil
}

func revertCertification(trx storage.Transaction, position blockstamp.Blockstamp, certification *document.Certification, parameters *currency.Parameters) error {
	return unscheduleCertExpiry(trx, position.Height+parameters.CertValidity, certification.Issuer, certification.Target)
}

// membership documents
// --------------------

func applyMembership(trx storage.Transaction, position blockstamp.Blockstamp, medianTime uint64, membership *document.Membership, parameters *currency.Parameters) error {
	packedAccount := membership.Account.Bytes()

	record, err := getRecord(trx, packedAccount)
	if nil != err {
		return err
	}

	switch membership.Action {

	case document.Join:
		switch record.Status {
		case Revoked, RevokedAfterExpiry:
			return fault.InvalidDocument // a revoked identity never returns
		}
		wasActive := record.Status.IsActive()
		record.transition(Member, position)
		record.RenewedAt = medianTime
		putRecord(trx, packedAccount, record)

		if !wasActive {
			err = addMember(trx, packedAccount)
			if nil != err {
				return err
			}
		}
		scheduleMembershipExpiry(trx, position.Height+parameters.MembershipValidity, packedAccount)
		return nil

	case document.Leave:
		if !record.Status.IsActive() {
			return fault.NotAMember
		}
		record.transition(Expired, position)
		putRecord(trx, packedAccount, record)
		return removeMember(trx, packedAccount)

	default:
		return fault.InvalidDocument
	}
}

func revertMembership(trx storage.Transaction, position blockstamp.Blockstamp, membership *document.Membership, parameters *currency.Parameters) error {
	packedAccount := membership.Account.Bytes()

	record, err := getRecord(trx, packedAccount)
	if nil != err {
		return fault.CorruptedIdentityRecord
	}
	if position != record.Since {
		return fault.CorruptedIdentityRecord
	}

	wasActive := record.Status.IsActive()
	err = record.restore()
	if nil != err {
		return err
	}
	putRecord(trx, packedAccount, record)

	nowActive := record.Status.IsActive()
	if wasActive && !nowActive {
		err = removeMember(trx, packedAccount)
	} else if !wasActive && nowActive {
		err = addMember(trx, packedAccount)
	}
	if nil != err {
		return err
	}

	if document.Join == membership.Action {
		return unscheduleMembershipExpiry(trx, position.Height+parameters.MembershipValidity, packedAccount)
	}
	return nil
}

// revocation documents
// --------------------

func applyRevocation(trx storage.Transaction, position blockstamp.Blockstamp, revocation *document.Revocation) error {
	packedAccount := revocation.Account.Bytes()

	record, err := getRecord(trx, packedAccount)
	if nil != err {
		return err
	}

	status := Revoked
	switch record.Status {
	case Revoked, RevokedAfterExpiry:
		return fault.InvalidDocument // already revoked
	case Expired, ImplicitlyRevoked:
		status = RevokedAfterExpiry
	}

	wasActive := record.Status.IsActive()
	record.transition(status, position)
	putRecord(trx, packedAccount, record)

	if wasActive {
		return removeMember(trx, packedAccount)
	}
	return nil
}

func revertRevocation(trx storage.Transaction, position blockstamp.Blockstamp, revocation *document.Revocation) error {
	packedAccount := revocation.Account.Bytes()

	record, err := getRecord(trx, packedAccount)
	if nil != err {
		return fault.CorruptedIdentityRecord
	}
	switch record.Status {
	case Revoked, RevokedAfterExpiry:
	default:
		return fault.CorruptedIdentityRecord
	}
	if position != record.Since {
		return fault.CorruptedIdentityRecord
	}

	err = record.restore()
	if nil != err {
		return err
	}
	putRecord(trx, packedAccount, record)

	if record.Status.IsActive() {
		return addMember(trx, packedAccount)
	}
	return nil
}

// membership lapses
// -----------------

// members listed in this height's lapse bucket that were never
// renewed become implicitly revoked
func applyLapses(trx storage.Transaction, position blockstamp.Blockstamp, parameters *currency.Parameters) error {
	if position.Height < parameters.MembershipValidity {
		return nil
	}
	joined := position.Height - parameters.MembershipValidity

	bucket, err := membershipBucket(trx, position.Height)
	if nil != err {
		return err
	}

	for _, packedAccount := range bucket {
		record, err := getRecord(trx, packedAccount)
		if nil != err {
			return fault.CorruptedIdentityRecord
		}
		// renewed members appear in a later bucket as well
		if Member != record.Status || joined != record.Since.Height {
			continue
		}
		record.transition(ImplicitlyRevoked, position)
		putRecord(trx, packedAccount, record)
		err = removeMember(trx, packedAccount)
		if nil != err {
			return err
		}
	}
	return nil
}

func revertLapses(trx storage.Transaction, position blockstamp.Blockstamp, parameters *currency.Parameters) error {
	bucket, err := membershipBucket(trx, position.Height)
	if nil != err {
		return err
	}

	for _, packedAccount := range bucket {
		record, err := getRecord(trx, packedAccount)
		if nil != err {
			return fault.CorruptedIdentityRecord
		}
		if ImplicitlyRevoked != record.Status || position != record.Since {
			continue
		}
		err = record.restore()
		if nil != err {
			return err
		}
		putRecord(trx, packedAccount, record)
		err = addMember(trx, packedAccount)
		if nil != err {
			return err
		}
	}
	return nil
}
