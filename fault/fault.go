// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type (
	// ExistsError - record already exists / conflicting record in place
	ExistsError GenericError
	// InvalidError - bad data supplied by a caller, recoverable
	InvalidError GenericError
	// NotFoundError - requested record is absent
	NotFoundError GenericError
	// ProcessError - operation cannot proceed in the current state
	ProcessError GenericError
	// CorruptionError - stored state violates an invariant, not recoverable
	CorruptionError GenericError
)

// common errors - keep in alphabetic order
var (
	AlreadyInitialised       = ProcessError("already initialised")
	BlockAlreadyExists       = ExistsError("block already exists")
	BlockNotFound            = NotFoundError("block not found")
	CannotDecodeAccount      = InvalidError("cannot decode account")
	CannotDecodePrivateKey   = InvalidError("cannot decode private key")
	ChecksumMismatch         = InvalidError("checksum mismatch")
	DatabaseSchemaTooNew     = ProcessError("database schema is newer than this program")
	ForkBlockAlreadyExists   = ExistsError("fork block already exists")
	ForkNotFound             = NotFoundError("fork not found")
	IdentityAlreadyExists    = ExistsError("identity already exists")
	IdentityNotFound         = NotFoundError("identity not found")
	InvalidAccount           = InvalidError("invalid account")
	InvalidBlock             = InvalidError("invalid block")
	InvalidBlockHeaderSize   = InvalidError("invalid block header size")
	InvalidBlockstamp        = InvalidError("invalid blockstamp")
	InvalidBlockVersion      = InvalidError("invalid block version")
	InvalidChainName         = InvalidError("invalid chain name")
	InvalidCondition         = InvalidError("invalid output condition")
	InvalidCount             = InvalidError("invalid count")
	InvalidCursor            = InvalidError("invalid cursor")
	InvalidDividend          = InvalidError("invalid dividend amount")
	InvalidDocument          = InvalidError("invalid document")
	InvalidKeyLength         = InvalidError("invalid key length")
	InvalidKeyType           = InvalidError("invalid key type")
	InvalidLoggerChannel     = InvalidError("invalid logger channel")
	InvalidParameters        = InvalidError("invalid currency parameters")
	InvalidSignature         = InvalidError("invalid signature")
	InvalidStructPointer     = InvalidError("invalid struct pointer")
	MedianTimeRegression     = InvalidError("median time must not decrease")
	MissingPreviousBlock     = InvalidError("missing previous block")
	MissingSource            = InvalidError("transaction consumes an unknown or spent source")
	NoRegisteredRules        = ProcessError("no rules registered for protocol version")
	NotADigest               = InvalidError("not a digest")
	NotAMember               = InvalidError("issuer is not an active member")
	NotDocumentPack          = InvalidError("not a document pack")
	NotGenesisBlock          = InvalidError("not the genesis block")
	NotInitialised           = ProcessError("not initialised")
	NotPrivateKey            = InvalidError("not a private key")
	NotPublicKey             = InvalidError("not a public key")
	OutOfSequenceBlockNumber = InvalidError("out of sequence block number")
	RateLimiting             = InvalidError("rate limiting")
	ResetTooDeep             = InvalidError("reset target is outside the fork window")
	SignatureTooLong         = InvalidError("signature too long")
	TransactionAlreadyInUse  = ProcessError("transaction already in use")
	TransactionNotInUse      = ProcessError("transaction not in use")
	UidAlreadyExists         = ExistsError("uid already exists")
	UidTooLong               = InvalidError("uid too long")
	UidTooShort              = InvalidError("uid too short")
	UnbalancedTransaction    = InvalidError("transaction inputs do not equal outputs")
	VersionDecrease          = InvalidError("block version must not decrease")
	VersionSkipped           = InvalidError("block version increased by more than one")
	WrongIssuersCount        = InvalidError("wrong issuers count")
	WrongIssuersFrame        = InvalidError("wrong issuers frame")
	WrongMonetaryMass        = InvalidError("wrong monetary mass")
	WrongNetworkForPublicKey = InvalidError("wrong network for public key")
	WrongNodeMode            = ProcessError("operation is not allowed in this mode")
	WrongPreviousHash        = InvalidError("wrong previous block hash")
	WrongPreviousIssuer      = InvalidError("wrong previous block issuer")
)

// corruption errors - any of these indicates an inconsistent store
var (
	CorruptedBalanceRecord  = CorruptionError("balance record cannot be unpacked")
	CorruptedDividendRecord = CorruptionError("dividend record cannot be unpacked")
	CorruptedForkTree       = CorruptionError("fork tree snapshot cannot be unpacked")
	CorruptedIdentityRecord = CorruptionError("identity record cannot be unpacked")
	CorruptedMetadata       = CorruptionError("chain metadata cannot be unpacked")
	CorruptedStoredBlock    = CorruptionError("stored block cannot be unpacked")
	MissingConsumedSource   = CorruptionError("consumed source record is missing")
	NegativeBalance         = CorruptionError("balance would become negative")
	UnbalancedCondition     = CorruptionError("balance does not match its unspent sources")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string     { return string(e) }
func (e InvalidError) Error() string    { return string(e) }
func (e NotFoundError) Error() string   { return string(e) }
func (e ProcessError) Error() string    { return string(e) }
func (e CorruptionError) Error() string { return string(e) }

// IsErrExists - determine if conflict class
func IsErrExists(e error) bool { _, ok := e.(ExistsError); return ok }

// IsErrInvalid - determine if validation class
func IsErrInvalid(e error) bool { _, ok := e.(InvalidError); return ok }

// IsErrNotFound - determine if benign not-found class
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }

// IsErrProcess - determine if state/lifecycle class
func IsErrProcess(e error) bool { _, ok := e.(ProcessError); return ok }

// IsErrCorruption - determine if fatal corruption class
func IsErrCorruption(e error) bool { _, ok := e.(CorruptionError); return ok }
