// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wot

import (
	"bytes"
	"encoding/binary"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/fault"
	"github.com/meridian-money/meridiand/storage"
)

// expiry buckets share the CertExpiry pool
//
//	'c' + big endian height → certification pairs lapsing there
//	'm' + big endian height → accounts whose membership lapses there
const (
	certBucketTag       = 'c'
	membershipBucketTag = 'm'
)

// CertPair - one trust edge
type CertPair struct {
	Issuer *account.Account `json:"issuer"`
	Target *account.Account `json:"target"`
}

const pairLength = 2 * account.PackedLength

func bucketKey(tag byte, height uint64) []byte {
	key := make([]byte, 9)
	key[0] = tag
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}

func packPair(issuer *account.Account, target *account.Account) []byte {
	buffer := make([]byte, 0, pairLength)
	buffer = append(buffer, issuer.Bytes()...)
	buffer = append(buffer, target.Bytes()...)
	return buffer
}

// add a certification pair to the bucket at its expiry height
func scheduleCertExpiry(trx storage.Transaction, expiryHeight uint64, issuer *account.Account, target *account.Account) {
	key := bucketKey(certBucketTag, expiryHeight)
	bucket := trx.Get(storage.Pool.CertExpiry, key)
	trx.Put(storage.Pool.CertExpiry, key, append(append([]byte(nil), bucket...), packPair(issuer, target)...))
}

// remove one instance of a certification pair from its expiry bucket
func unscheduleCertExpiry(trx storage.Transaction, expiryHeight uint64, issuer *account.Account, target *account.Account) error {
	key := bucketKey(certBucketTag, expiryHeight)
	bucket := trx.Get(storage.Pool.CertExpiry, key)
	if 0 != len(bucket)%pairLength {
		return fault.CorruptedIdentityRecord
	}

	pair := packPair(issuer, target)
	for i := 0; i < len(bucket); i += pairLength {
		if bytes.Equal(bucket[i:i+pairLength], pair) {
			remaining := append(append([]byte(nil), bucket[:i]...), bucket[i+pairLength:]...)
			if 0 == len(remaining) {
				trx.Delete(storage.Pool.CertExpiry, key)
			} else {
				trx.Put(storage.Pool.CertExpiry, key, remaining)
			}
			return nil
		}
	}
	return fault.CorruptedIdentityRecord
}

// ExpiringCertifications - the trust edges lapsing at a height
func ExpiringCertifications(height uint64) ([]CertPair, error) {
	bucket := storage.Pool.CertExpiry.Get(bucketKey(certBucketTag, height))
	if 0 != len(bucket)%pairLength {
		return nil, fault.CorruptedIdentityRecord
	}

	pairs := make([]CertPair, 0, len(bucket)/pairLength)
	for i := 0; i < len(bucket); i += pairLength {
		issuer, err := account.AccountFromBytes(bucket[i : i+account.PackedLength])
		if nil != err {
			return nil, fault.CorruptedIdentityRecord
		}
		target, err := account.AccountFromBytes(bucket[i+account.PackedLength : i+pairLength])
		if nil != err {
			return nil, fault.CorruptedIdentityRecord
		}
		pairs = append(pairs, CertPair{Issuer: issuer, Target: target})
	}
	return pairs, nil
}

// add an account to the membership lapse bucket, stale entries are
// filtered on processing by comparing the recorded join height
func scheduleMembershipExpiry(trx storage.Transaction, expiryHeight uint64, packedAccount []byte) {
	key := bucketKey(membershipBucketTag, expiryHeight)
	bucket := trx.Get(storage.Pool.CertExpiry, key)
	trx.Put(storage.Pool.CertExpiry, key, append(append([]byte(nil), bucket...), packedAccount...))
}

// remove the latest instance of an account from a membership bucket
func unscheduleMembershipExpiry(trx storage.Transaction, expiryHeight uint64, packedAccount []byte) error {
	key := bucketKey(membershipBucketTag, expiryHeight)
	bucket := trx.Get(storage.Pool.CertExpiry, key)
	if 0 != len(bucket)%account.PackedLength {
		return fault.CorruptedIdentityRecord
	}

	for i := len(bucket) - account.PackedLength; i >= 0; i -= account.PackedLength {
		if bytes.Equal(bucket[i:i+account.PackedLength], packedAccount) {
			remaining := append(append([]byte(nil), bucket[:i]...), bucket[i+account.PackedLength:]...)
			if 0 == len(remaining) {
				trx.Delete(storage.Pool.CertExpiry, key)
			} else {
				trx.Put(storage.Pool.CertExpiry, key, remaining)
			}
			return nil
		}
	}
	return fault.CorruptedIdentityRecord
}

// the accounts listed in a membership lapse bucket
func membershipBucket(trx storage.Transaction, height uint64) ([][]byte, error) {
	bucket := trx.Get(storage.Pool.CertExpiry, bucketKey(membershipBucketTag, height))
	return splitAccounts(bucket)
}
