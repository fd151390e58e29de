// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2025 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockdigest_test

import (
	"fmt"
	"testing"

	"github.com/meridian-money/meridiand/blockdigest"
)

func TestScanFmt(t *testing.T) {

	// big endian
	stringDigest := "00000000a1b2c3d4e5f60718293a4b5c6d7e8f90fedcba98765432100f1e2d3c"

	var d blockdigest.Digest
	n, err := fmt.Sscan(stringDigest, &d)
	if nil != err {
		t.Fatalf("hex to digest error: %v", err)
	}

	if 1 != n {
		t.Fatalf("scanned %d items expected to scan 1", n)
	}

	// bytes as little endian format
	expected := blockdigest.Digest{
		0x3c, 0x2d, 0x1e, 0x0f,
		0x10, 0x32, 0x54, 0x76,
		0x98, 0xba, 0xdc, 0xfe,
		0x90, 0x8f, 0x7e, 0x6d,
		0x5c, 0x4b, 0x3a, 0x29,
		0x18, 0x07, 0xf6, 0xe5,
		0xd4, 0xc3, 0xb2, 0xa1,
		0x00, 0x00, 0x00, 0x00,
	}

	if d != expected {
		t.Errorf("digest(LE) = %#v expected %#v", d, expected)
	}

	s := fmt.Sprintf("%s", d)
	if s != stringDigest {
		t.Errorf("string: digest = %s expected %s", s, stringDigest)
	}

	s = fmt.Sprintf("%#v", d)
	if s != "<Argon2d:"+stringDigest+">" {
		t.Errorf("hash-v: digest = %s expected %s", s, stringDigest)
	}

	text, err := d.MarshalText()
	if nil != err {
		t.Fatalf("marshal text error: %v", err)
	}

	var back blockdigest.Digest
	err = back.UnmarshalText(text)
	if nil != err {
		t.Fatalf("unmarshal text error: %v", err)
	}
	if back != d {
		t.Errorf("unmarshal: digest = %#v expected %#v", back, d)
	}
}

func TestDigest(t *testing.T) {
	s := []byte("hello world")
	d := blockdigest.NewDigest(s)

	if d.IsEmpty() {
		t.Fatal("digest of data is empty")
	}

	again := blockdigest.NewDigest(s)
	if d != again {
		t.Errorf("digest not deterministic: %#v and %#v", d, again)
	}

	other := blockdigest.NewDigest([]byte("hello worle"))
	if d == other {
		t.Errorf("distinct records hashed to the same digest: %#v", d)
	}
}

func TestDigestFromBytes(t *testing.T) {

	d := blockdigest.NewDigest([]byte("some block bytes"))

	var back blockdigest.Digest
	err := blockdigest.DigestFromBytes(&back, d[:])
	if nil != err {
		t.Fatalf("digest from bytes error: %v", err)
	}
	if back != d {
		t.Errorf("digest = %#v expected %#v", back, d)
	}

	err = blockdigest.DigestFromBytes(&back, d[:blockdigest.Length-1])
	if nil == err {
		t.Fatal("unexpected success with short buffer")
	}
}
