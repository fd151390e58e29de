// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account_test

import (
	"testing"

	"github.com/meridian-money/meridiand/account"
)

func TestNewKeypair(t *testing.T) {

	p, err := account.NewKeypair(true)
	if nil != err {
		t.Fatalf("new keypair error: %s", err)
	}
	if !p.IsTesting() {
		t.Fatal("test flag not set")
	}

	message := []byte("sign me")
	if err := p.Account().CheckSignature(message, p.Sign(message)); nil != err {
		t.Fatalf("self check error: %s", err)
	}

	q, err := account.NewKeypair(true)
	if nil != err {
		t.Fatalf("new keypair error: %s", err)
	}
	if p.Account().Equal(q.Account()) {
		t.Fatal("two random keypairs share an account")
	}
}

func TestPrivateKeyFromSeed(t *testing.T) {

	p1, err := account.PrivateKeyFromSeed(false, seed1)
	if nil != err {
		t.Fatalf("private key from seed error: %s", err)
	}
	p2, err := account.PrivateKeyFromSeed(false, seed1)
	if nil != err {
		t.Fatalf("private key from seed error: %s", err)
	}
	if !p1.Account().Equal(p2.Account()) {
		t.Fatal("same seed produced different accounts")
	}
	if p1.IsTesting() {
		t.Fatal("live key marked as testing")
	}

	_, err = account.PrivateKeyFromSeed(false, seed1[:16])
	if nil == err {
		t.Fatal("unexpected success with short seed")
	}
}

func TestPrivateKeyBase58RoundTrip(t *testing.T) {

	p, err := account.PrivateKeyFromSeed(true, seed2)
	if nil != err {
		t.Fatalf("private key from seed error: %s", err)
	}

	s := p.String()
	back, err := account.PrivateKeyFromBase58(s)
	if nil != err {
		t.Fatalf("private key from base58 error: %s", err)
	}
	if !p.Account().Equal(back.Account()) {
		t.Fatal("decoded key has a different account")
	}
	if !back.IsTesting() {
		t.Fatal("test flag lost in encoding")
	}

	// a public key encoding is not accepted as a private key
	_, err = account.PrivateKeyFromBase58(p.Account().String())
	if nil == err {
		t.Fatal("unexpected success decoding an account as a private key")
	}
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {

	p, err := account.PrivateKeyFromSeed(true, seed1)
	if nil != err {
		t.Fatalf("private key from seed error: %s", err)
	}

	back, err := account.PrivateKeyFromBytes(p.Bytes())
	if nil != err {
		t.Fatalf("private key from bytes error: %s", err)
	}
	if !p.Account().Equal(back.Account()) {
		t.Fatal("decoded key has a different account")
	}

	message := []byte("both keys must sign alike")
	if p.Sign(message).String() != back.Sign(message).String() {
		t.Fatal("signatures differ after round trip")
	}
}
