// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/meridian-money/meridiand/fault"
)

// ensure that the classifiers only match their own class
func TestClasses(t *testing.T) {

	errors := []struct {
		err        error
		exists     bool
		invalid    bool
		notFound   bool
		process    bool
		corruption bool
	}{
		{fault.BlockAlreadyExists, true, false, false, false, false},
		{fault.WrongPreviousIssuer, false, true, false, false, false},
		{fault.BlockNotFound, false, false, true, false, false},
		{fault.AlreadyInitialised, false, false, false, true, false},
		{fault.NegativeBalance, false, false, false, false, true},
	}

	for i, item := range errors {
		if fault.IsErrExists(item.err) != item.exists {
			t.Errorf("%d: exists mismatch for: %q", i, item.err)
		}
		if fault.IsErrInvalid(item.err) != item.invalid {
			t.Errorf("%d: invalid mismatch for: %q", i, item.err)
		}
		if fault.IsErrNotFound(item.err) != item.notFound {
			t.Errorf("%d: not found mismatch for: %q", i, item.err)
		}
		if fault.IsErrProcess(item.err) != item.process {
			t.Errorf("%d: process mismatch for: %q", i, item.err)
		}
		if fault.IsErrCorruption(item.err) != item.corruption {
			t.Errorf("%d: corruption mismatch for: %q", i, item.err)
		}
	}
}

// error text must match the value exactly
func TestMessages(t *testing.T) {
	if "block not found" != fault.BlockNotFound.Error() {
		t.Errorf("unexpected message: %q", fault.BlockNotFound.Error())
	}
	if "balance would become negative" != fault.NegativeBalance.Error() {
		t.Errorf("unexpected message: %q", fault.NegativeBalance.Error())
	}
}
