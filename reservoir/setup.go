// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reservoir - buffering for out of order blocks
//
// A peer can deliver a block before its parent. Such orphans wait
// here keyed by the parent position they need; when the coordinator
// announces a new tip the matching orphans are resubmitted. Entries
// that never see their parent age out.
package reservoir

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/lightningnetwork/lnd/clock"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/meridian-money/meridiand/background"
	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/fault"
)

// SubmitFunc - hands a buffered block back to the write coordinator
//
// called from the drain goroutine, never while a reservoir lock is
// held
type SubmitFunc func(packed blockrecord.PackedBlock, claimedPrevious blockstamp.Blockstamp) error

const (
	expiryTime      = 2 * time.Hour
	sweepInterval   = 5 * time.Minute
	notifyQueueSize = 64

	// orphan ingestion rate, a flood of unconnected blocks is a
	// misbehaving peer not a chain
	storeRate  = rate.Limit(50)
	storeBurst = 200
)

type globalDataType struct {
	sync.RWMutex
	log     *logger.L
	orphans *gocache.Cache
	wanted  map[blockstamp.Blockstamp]time.Time
	limiter *rate.Limiter
	clock   clock.Clock
	submit  SubmitFunc

	notify chan blockstamp.Blockstamp

	drain      drainData
	background *background.T

	initialised bool
}

type drainData struct {
	log *logger.L
}

var globalData globalDataType

// Initialise - create the buffer and start the drain process
//
// a nil clk selects the wall clock, tests inject a mock
func Initialise(submit SubmitFunc, clk clock.Clock) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.AlreadyInitialised
	}
	if nil == submit {
		return fault.InvalidParameters
	}
	if nil == clk {
		clk = clock.NewDefaultClock()
	}

	globalData.log = logger.New("reservoir")
	globalData.log.Info("starting…")

	globalData.orphans = gocache.New(expiryTime, sweepInterval)
	globalData.wanted = make(map[blockstamp.Blockstamp]time.Time)
	globalData.limiter = rate.NewLimiter(storeRate, storeBurst)
	globalData.clock = clk
	globalData.submit = submit
	globalData.notify = make(chan blockstamp.Blockstamp, notifyQueueSize)

	globalData.drain.log = logger.New("reservoir-drain")

	processes := background.Processes{
		&globalData.drain,
	}
	globalData.background = background.Start(processes, &globalData)

	globalData.initialised = true
	return nil
}

// Finalise - stop the drain process and drop all buffered blocks
func Finalise() error {
	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return fault.NotInitialised
	}
	globalData.initialised = false
	globalData.Unlock()

	globalData.background.Stop()

	globalData.Lock()
	globalData.log.Info("finished")
	globalData.log.Flush()
	globalData.orphans.Flush()
	globalData.wanted = nil
	globalData.submit = nil
	globalData.Unlock()
	return nil
}

// Notify - tell the reservoir a position is now part of the chain
//
// safe to call from the coordinator's announce hook: the drain runs
// on its own goroutine so no lock ordering issue arises. A full queue
// drops the notification, the periodic sweep catches up later.
func Notify(position blockstamp.Blockstamp) {
	globalData.RLock()
	defer globalData.RUnlock()

	if !globalData.initialised {
		return
	}
	select {
	case globalData.notify <- position:
	default:
	}
}
