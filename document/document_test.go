// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package document_test

import (
	"bytes"
	"testing"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/document"
	"github.com/meridian-money/meridiand/fault"
)

// deterministic keypair, one per fill byte
func makeKey(t *testing.T, fill byte) *account.PrivateKey {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = fill
	}
	p, err := account.PrivateKeyFromSeed(true, seed)
	if nil != err {
		t.Fatalf("private key from seed error: %s", err)
	}
	return p
}

// pack a document after signing it with the supplied key
func signAndPack(t *testing.T, d document.Document, key *account.PrivateKey, sign func(account.Signature)) document.Packed {
	t.Helper()

	// first pass returns the unsigned message
	unsigned, err := d.Pack(key.Account())
	if fault.InvalidSignature != err {
		t.Fatalf("unsigned pack error: %v  expected: %v", err, fault.InvalidSignature)
	}
	sign(key.Sign(unsigned))

	packed, err := d.Pack(key.Account())
	if nil != err {
		t.Fatalf("pack error: %s", err)
	}
	return packed
}

func TestIdentityPackUnpack(t *testing.T) {

	key := makeKey(t, 0x11)
	identity := &document.Identity{
		Uid:     "alice",
		Account: key.Account(),
	}

	packed := signAndPack(t, identity, key, func(s account.Signature) { identity.Signature = s })

	if document.IdentityTag != packed.Type() {
		t.Fatalf("tag: %d  expected: %d", packed.Type(), document.IdentityTag)
	}

	unpacked, n, err := packed.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	if len(packed) != n {
		t.Fatalf("unpack used %d bytes  expected: %d", n, len(packed))
	}

	back, ok := unpacked.(*document.Identity)
	if !ok {
		t.Fatalf("unpacked to wrong type: %T", unpacked)
	}
	if back.Uid != identity.Uid {
		t.Fatalf("uid: %q  expected: %q", back.Uid, identity.Uid)
	}
	if !back.Account.Equal(identity.Account) {
		t.Fatal("account mismatch after round trip")
	}

	repacked, err := back.Pack(back.Account)
	if nil != err {
		t.Fatalf("repack error: %s", err)
	}
	if !bytes.Equal(packed, repacked) {
		t.Fatal("bytes differ after round trip")
	}
}

func TestIdentityUidBounds(t *testing.T) {

	key := makeKey(t, 0x11)

	short := &document.Identity{
		Uid:     "a",
		Account: key.Account(),
	}
	_, err := short.Pack(key.Account())
	if fault.UidTooShort != err {
		t.Fatalf("short uid error: %v  expected: %v", err, fault.UidTooShort)
	}

	long := &document.Identity{
		Uid:     string(bytes.Repeat([]byte{'x'}, 65)),
		Account: key.Account(),
	}
	_, err = long.Pack(key.Account())
	if fault.UidTooLong != err {
		t.Fatalf("long uid error: %v  expected: %v", err, fault.UidTooLong)
	}
}

func TestCertificationPackUnpack(t *testing.T) {

	issuerKey := makeKey(t, 0x22)
	targetKey := makeKey(t, 0x33)

	certification := &document.Certification{
		Issuer: issuerKey.Account(),
		Target: targetKey.Account(),
	}

	packed := signAndPack(t, certification, issuerKey, func(s account.Signature) { certification.Signature = s })

	unpacked, n, err := packed.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	if len(packed) != n {
		t.Fatalf("unpack used %d bytes  expected: %d", n, len(packed))
	}

	back, ok := unpacked.(*document.Certification)
	if !ok {
		t.Fatalf("unpacked to wrong type: %T", unpacked)
	}
	if !back.Issuer.Equal(certification.Issuer) || !back.Target.Equal(certification.Target) {
		t.Fatal("account mismatch after round trip")
	}

	// a certification signed by the target must not pack
	bad := &document.Certification{
		Issuer:    certification.Issuer,
		Target:    certification.Target,
		Signature: certification.Signature,
	}
	_, err = bad.Pack(targetKey.Account())
	if fault.InvalidSignature != err {
		t.Fatalf("wrong signer error: %v  expected: %v", err, fault.InvalidSignature)
	}
}

func TestMembershipPackUnpack(t *testing.T) {

	key := makeKey(t, 0x44)

	for _, action := range []document.MembershipAction{document.Join, document.Leave} {
		membership := &document.Membership{
			Account: key.Account(),
			Action:  action,
		}

		packed := signAndPack(t, membership, key, func(s account.Signature) { membership.Signature = s })

		unpacked, _, err := packed.Unpack(true)
		if nil != err {
			t.Fatalf("unpack error: %s", err)
		}
		back, ok := unpacked.(*document.Membership)
		if !ok {
			t.Fatalf("unpacked to wrong type: %T", unpacked)
		}
		if back.Action != action {
			t.Fatalf("action: %d  expected: %d", back.Action, action)
		}
	}

	invalid := &document.Membership{
		Account: key.Account(),
		Action:  document.MembershipAction(9),
	}
	_, err := invalid.Pack(key.Account())
	if fault.InvalidDocument != err {
		t.Fatalf("invalid action error: %v  expected: %v", err, fault.InvalidDocument)
	}
}

func TestRevocationPackUnpack(t *testing.T) {

	key := makeKey(t, 0x55)
	revocation := &document.Revocation{
		Account: key.Account(),
	}

	packed := signAndPack(t, revocation, key, func(s account.Signature) { revocation.Signature = s })

	unpacked, _, err := packed.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	back, ok := unpacked.(*document.Revocation)
	if !ok {
		t.Fatalf("unpacked to wrong type: %T", unpacked)
	}
	if !back.Account.Equal(revocation.Account) {
		t.Fatal("account mismatch after round trip")
	}
}

func TestTransactionPackUnpack(t *testing.T) {

	ownerKey := makeKey(t, 0x66)
	recipientKey := makeKey(t, 0x77)

	txId := document.NewDigest([]byte("an earlier transaction"))
	tx := &document.Transaction{
		Owner: ownerKey.Account(),
		Inputs: []document.SourceID{
			document.TransactionSource(txId, 0),
			document.DividendSource(ownerKey.Account(), 8),
		},
		Outputs: []document.Output{
			{Amount: 900, Recipient: recipientKey.Account()},
			{Amount: 100, Recipient: ownerKey.Account()},
		},
	}

	packed := signAndPack(t, tx, ownerKey, func(s account.Signature) { tx.Signature = s })

	unpacked, n, err := packed.Unpack(true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	if len(packed) != n {
		t.Fatalf("unpack used %d bytes  expected: %d", n, len(packed))
	}

	back, ok := unpacked.(*document.Transaction)
	if !ok {
		t.Fatalf("unpacked to wrong type: %T", unpacked)
	}
	if 2 != len(back.Inputs) || 2 != len(back.Outputs) {
		t.Fatalf("inputs: %d outputs: %d  expected: 2, 2", len(back.Inputs), len(back.Outputs))
	}
	if back.Inputs[0] != tx.Inputs[0] || back.Inputs[1] != tx.Inputs[1] {
		t.Fatal("input mismatch after round trip")
	}
	if back.Outputs[0].Amount != 900 || back.Outputs[1].Amount != 100 {
		t.Fatal("amount mismatch after round trip")
	}
	if !back.Outputs[0].Recipient.Equal(recipientKey.Account()) {
		t.Fatal("recipient mismatch after round trip")
	}

	repacked, err := back.Pack(back.Owner)
	if nil != err {
		t.Fatalf("repack error: %s", err)
	}
	if packed.TxId() != repacked.TxId() {
		t.Fatal("tx id differs after round trip")
	}
}

func TestTransactionPackRejects(t *testing.T) {

	key := makeKey(t, 0x66)
	txId := document.NewDigest([]byte("an earlier transaction"))

	noInputs := &document.Transaction{
		Owner:   key.Account(),
		Outputs: []document.Output{{Amount: 1, Recipient: key.Account()}},
	}
	_, err := noInputs.Pack(key.Account())
	if fault.InvalidDocument != err {
		t.Fatalf("no inputs error: %v  expected: %v", err, fault.InvalidDocument)
	}

	zeroAmount := &document.Transaction{
		Owner:   key.Account(),
		Inputs:  []document.SourceID{document.TransactionSource(txId, 0)},
		Outputs: []document.Output{{Amount: 0, Recipient: key.Account()}},
	}
	_, err = zeroAmount.Pack(key.Account())
	if fault.InvalidDocument != err {
		t.Fatalf("zero amount error: %v  expected: %v", err, fault.InvalidDocument)
	}

	nilRecipient := &document.Transaction{
		Owner:   key.Account(),
		Inputs:  []document.SourceID{document.TransactionSource(txId, 0)},
		Outputs: []document.Output{{Amount: 1}},
	}
	_, err = nilRecipient.Pack(key.Account())
	if fault.InvalidAccount != err {
		t.Fatalf("nil recipient error: %v  expected: %v", err, fault.InvalidAccount)
	}
}

func TestNetworkMismatch(t *testing.T) {

	key := makeKey(t, 0x11)
	identity := &document.Identity{
		Uid:     "alice",
		Account: key.Account(),
	}
	packed := signAndPack(t, identity, key, func(s account.Signature) { identity.Signature = s })

	_, _, err := packed.Unpack(false)
	if fault.WrongNetworkForPublicKey != err {
		t.Fatalf("network mismatch error: %v  expected: %v", err, fault.WrongNetworkForPublicKey)
	}
}

func TestUnpackGarbage(t *testing.T) {

	garbage := [][]byte{
		{},
		{0x00},
		{0xff, 0xff, 0xff},
		{byte(document.InvalidTag)},
	}
	for i, b := range garbage {
		_, _, err := document.Packed(b).Unpack(true)
		if nil == err {
			t.Errorf("%d: unexpected success unpacking %x", i, b)
		}
	}

	// a truncated but well tagged record
	key := makeKey(t, 0x11)
	identity := &document.Identity{
		Uid:     "alice",
		Account: key.Account(),
	}
	packed := signAndPack(t, identity, key, func(s account.Signature) { identity.Signature = s })

	// copy so the unpacker cannot reach the removed bytes through capacity
	truncated := append(document.Packed{}, packed[:len(packed)-3]...)
	_, _, err := truncated.Unpack(true)
	if nil == err {
		t.Error("unexpected success unpacking truncated record")
	}

	// reslice in place: the removed bytes stay in the backing array and
	// must not be readable past the record length
	_, _, err = packed[:len(packed)-3].Unpack(true)
	if nil == err {
		t.Error("unexpected success unpacking resliced record")
	}
}

func TestSourceIDRoundTrip(t *testing.T) {

	key := makeKey(t, 0x22)

	ids := []document.SourceID{
		document.TransactionSource(document.NewDigest([]byte("tx")), 3),
		document.DividendSource(key.Account(), 12),
	}

	for i, id := range ids {
		packed := id.Pack()
		if document.SourceIDLength != len(packed) {
			t.Fatalf("%d: packed length: %d  expected: %d", i, len(packed), document.SourceIDLength)
		}
		back, err := document.SourceIDFromBytes(packed)
		if nil != err {
			t.Fatalf("%d: source id from bytes error: %s", i, err)
		}
		if back != id {
			t.Fatalf("%d: source id: %s  expected: %s", i, back, id)
		}
	}

	// invalid origin byte
	packed := ids[0].Pack()
	packed[0] = 0x7f
	_, err := document.SourceIDFromBytes(packed)
	if nil == err {
		t.Fatal("unexpected success with invalid origin")
	}
}

func TestSetPackUnpack(t *testing.T) {

	aliceKey := makeKey(t, 0x11)
	bobKey := makeKey(t, 0x22)

	alice := &document.Identity{Uid: "alice", Account: aliceKey.Account()}
	signAndPack(t, alice, aliceKey, func(s account.Signature) { alice.Signature = s })

	certification := &document.Certification{Issuer: aliceKey.Account(), Target: bobKey.Account()}
	signAndPack(t, certification, aliceKey, func(s account.Signature) { certification.Signature = s })

	membership := &document.Membership{Account: bobKey.Account(), Action: document.Join}
	signAndPack(t, membership, bobKey, func(s account.Signature) { membership.Signature = s })

	tx := &document.Transaction{
		Owner:   aliceKey.Account(),
		Inputs:  []document.SourceID{document.DividendSource(aliceKey.Account(), 2)},
		Outputs: []document.Output{{Amount: 50, Recipient: bobKey.Account()}},
	}
	signAndPack(t, tx, aliceKey, func(s account.Signature) { tx.Signature = s })

	set := &document.Set{
		Identities:     []*document.Identity{alice},
		Certifications: []*document.Certification{certification},
		Memberships:    []*document.Membership{membership},
		Transactions:   []*document.Transaction{tx},
	}
	if 4 != set.Count() {
		t.Fatalf("count: %d  expected: 4", set.Count())
	}

	packed, err := set.Pack()
	if nil != err {
		t.Fatalf("pack error: %s", err)
	}

	back, n, err := document.UnpackSet(packed, true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	if len(packed) != n {
		t.Fatalf("unpack used %d bytes  expected: %d", n, len(packed))
	}
	if back.Count() != set.Count() {
		t.Fatalf("count: %d  expected: %d", back.Count(), set.Count())
	}
	if 1 != len(back.Identities) || "alice" != back.Identities[0].Uid {
		t.Fatal("identities mismatch after round trip")
	}
	if 1 != len(back.Transactions) || 50 != back.Transactions[0].Outputs[0].Amount {
		t.Fatal("transactions mismatch after round trip")
	}

	repacked, err := back.Pack()
	if nil != err {
		t.Fatalf("repack error: %s", err)
	}
	if !bytes.Equal(packed, repacked) {
		t.Fatal("bytes differ after round trip")
	}
}

func TestEmptySetPackUnpack(t *testing.T) {

	set := &document.Set{}
	packed, err := set.Pack()
	if nil != err {
		t.Fatalf("pack error: %s", err)
	}
	if 5 != len(packed) {
		t.Fatalf("packed length: %d  expected: 5", len(packed))
	}

	back, n, err := document.UnpackSet(packed, true)
	if nil != err {
		t.Fatalf("unpack error: %s", err)
	}
	if len(packed) != n || 0 != back.Count() {
		t.Fatalf("count: %d used: %d  expected: 0, %d", back.Count(), n, len(packed))
	}
}
