// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2024 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the on-disk data store
//
// maintain separate pools of a number of elements in key->value form
//
// This maintains a LevelDB database split into a series of tables.
// Each table is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available tables.
//
// Notes:
// 1. each separate pool has a single byte prefix (to spread the keys in LevelDB)
// 2. ++          = concatenation of byte data
// 3. height      = block height as big endian uint64 (8 bytes)
// 4. owner       = packed account (key variant byte ++ 32 byte public key)
// 5. source id   = packed funding source (origin byte ++ 32 byte digest ++ big endian uint64)
// 6. amount      = currency units as big endian uint64 (8 bytes)
// 7. *others*    = byte values of various length
//
// Blocks:
//
//   B ++ height                - main chain block store
//                                data: packed header ++ packed documents
//
//   F ++ height ++ digest      - fork pool block store
//                                data: arrival sequence ++ packed header ++ packed documents
//
// Balances:
//
//   Q ++ owner                 - current balance
//                                data: amount
//
//   U ++ source id             - unspent funding source
//                                data: amount ++ owner
//
//   C ++ source id             - consumed funding source, kept so a
//                                revert can restore the spend
//                                data: consuming height ++ amount ++ owner
//
// Web of trust:
//
//   I ++ owner                 - identity record
//                                data: packed identity state with one level of undo
//
//   N ++ uid                   - account registered for a user identifier
//                                data: owner
//
//   X ++ height                - certifications created at height, for expiry scans
//                                data: [ issuer ++ target ]...
//
// Dividends:
//
//   D ++ height                - universal dividend issued at height
//                                data: amount ++ count ++ [ owner ]...
//
// Metadata:
//
//   M ++ name                  - chain metadata singletons
//                                data: byte values of various length
//
// Testing:
//
//   Z ++ key                   - testing data
package storage
