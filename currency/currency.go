// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package currency - the monetary parameters of a chain
//
// Each chain carries a fixed parameter set: the dividend schedule,
// certification and membership lifetimes, and the bounds the node
// applies to fork retention. Operators can overlay the built-in
// values from a YAML file.
package currency

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meridian-money/meridiand/chain"
	"github.com/meridian-money/meridiand/fault"
)

// Parameters - all currency constants for one chain
type Parameters struct {
	Currency           string `yaml:"currency"`            // currency code embedded in the genesis documents
	UD0                uint64 `yaml:"ud0"`                 // amount of the first universal dividend
	DividendPeriod     uint64 `yaml:"dividend_period"`     // seconds between universal dividends
	CertValidity       uint64 `yaml:"cert_validity"`       // blocks a certification stays active
	MembershipValidity uint64 `yaml:"membership_validity"` // blocks a membership stays active
	ForkWindow         uint64 `yaml:"fork_window"`         // blocks retained for reorganisation
	MaxForks           int    `yaml:"max_forks"`           // concurrent forks tracked
	MedianTimeWindow   uint64 `yaml:"median_time_window"`  // blocks in the median time sample
	GenesisTime        uint64 `yaml:"genesis_time"`        // timestamp of block zero
}

// fixed parameter sets
var (
	meridianParameters = Parameters{
		Currency:           "meridian",
		UD0:                1000,
		DividendPeriod:     86400,
		CertValidity:       52560, // about one year of five minute blocks
		MembershipValidity: 52560,
		ForkWindow:         100,
		MaxForks:           32,
		MedianTimeWindow:   24,
		GenesisTime:        1567296000, // 2019-09-01 00:00:00 UTC
	}

	testingParameters = Parameters{
		Currency:           "meridian-testing",
		UD0:                1000,
		DividendPeriod:     3600,
		CertValidity:       1440,
		MembershipValidity: 1440,
		ForkWindow:         100,
		MaxForks:           32,
		MedianTimeWindow:   24,
		GenesisTime:        1567296000,
	}

	localParameters = Parameters{
		Currency:           "meridian-local",
		UD0:                100,
		DividendPeriod:     60,
		CertValidity:       100,
		MembershipValidity: 100,
		ForkWindow:         20,
		MaxForks:           8,
		MedianTimeWindow:   12,
		GenesisTime:        1567296000,
	}
)

// Get - the built-in parameters for a chain
//
// returns a copy so a caller can overlay a parameters file without
// disturbing the defaults
func Get(chainName string) (*Parameters, error) {
	var parameters Parameters
	switch chainName {
	case chain.Meridian:
		parameters = meridianParameters
	case chain.Testing:
		parameters = testingParameters
	case chain.Local:
		parameters = localParameters
	default:
		return nil, fault.InvalidChainName
	}
	return &parameters, nil
}

// LoadFile - overlay parameters from a YAML file
//
// fields absent from the file keep their current values
func (parameters *Parameters) LoadFile(fileName string) error {
	file, err := os.Open(fileName)
	if nil != err {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	return decoder.Decode(parameters)
}

// Validate - reject parameter sets the node cannot operate with
func (parameters *Parameters) Validate() error {
	if "" == parameters.Currency {
		return fault.InvalidParameters
	}
	if 0 == parameters.ForkWindow || 0 == parameters.MedianTimeWindow {
		return fault.InvalidParameters
	}
	if parameters.MaxForks <= 0 {
		return fault.InvalidParameters
	}
	if 0 == parameters.CertValidity || 0 == parameters.MembershipValidity {
		return fault.InvalidParameters
	}
	return nil
}
