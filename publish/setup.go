// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package publish - broadcast of newly accepted blocks
//
// Every time the write coordinator moves the canonical tip the block
// is pushed out on a ZeroMQ PUB socket so downstream consumers
// (explorers, wallets, mirroring nodes) can follow the chain without
// polling.
package publish

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/meridian-money/meridiand/background"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
)

// Configuration - publishing section of the configuration file
type Configuration struct {
	Broadcast []string `gluamapper:"broadcast" json:"broadcast"`
}

const announceQueueSize = 64

type publishData struct {
	sync.RWMutex

	log *logger.L

	brdc  broadcaster
	queue chan announcement

	background *background.T

	initialised bool
}

type announcement struct {
	position blockstamp.Blockstamp
	packed   blockrecord.PackedBlock
}

var globalData publishData

// Initialise - bind the broadcast addresses and start the sender
//
// an empty address list disables publishing entirely
func Initialise(configuration *Configuration) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}

	globalData.log = logger.New("publish")
	globalData.log.Info("starting…")

	if 0 == len(configuration.Broadcast) {
		globalData.log.Info("no broadcast addresses, publishing disabled")
		globalData.initialised = true
		return nil
	}

	globalData.queue = make(chan announcement, announceQueueSize)

	globalData.brdc.log = logger.New("publish-brdc")
	err := globalData.brdc.initialise(configuration.Broadcast)
	if nil != err {
		return err
	}

	processes := background.Processes{
		&globalData.brdc,
	}
	globalData.background = background.Start(processes, &globalData)

	globalData.initialised = true
	return nil
}

// Finalise - stop the sender and close the socket
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.NotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.log.Flush()

	if nil != globalData.background {
		globalData.background.Stop()
	}
	globalData.brdc.close()

	globalData.queue = nil
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

// Announce - queue a newly accepted block for broadcast
//
// never blocks, the coordinator calls this with its write lock held;
// a full queue drops the oldest style of consumer anyway since PUB
// sockets do not guarantee delivery
func Announce(position blockstamp.Blockstamp, packed blockrecord.PackedBlock) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised || nil == globalData.queue {
		return
	}
	select {
	case globalData.queue <- announcement{position: position, packed: packed}:
	default:
		globalData.log.Warn("announce queue full, dropping")
	}
}
