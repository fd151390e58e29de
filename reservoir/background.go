// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reservoir

import (
	"github.com/meridian-money/meridiand/blockstamp"
)

// the drain loop
//
// resubmits waiting blocks once their parent is announced; a block
// accepted by the resubmission announces in turn, so a whole buffered
// chain unwinds one notification at a time
func (data *drainData) Run(args interface{}, shutdown <-chan struct{}) {
	log := data.log
	log.Info("starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case parent := <-globalData.notify:
			data.drain(parent)

		case <-globalData.clock.TickAfter(sweepInterval):
			sweepWanted()
			cutoff := globalData.clock.Now().Add(-expiryTime / 2)
			for _, parent := range staleWanted(cutoff) {
				log.Warnf("still waiting for %s", parent)
			}
		}
	}

	log.Info("finished")
}

// hand every block waiting on this parent back to the coordinator
func (data *drainData) drain(parent blockstamp.Blockstamp) {
	waiting := takeWaiting(parent)
	if 0 == len(waiting) {
		return
	}

	globalData.RLock()
	submit := globalData.submit
	globalData.RUnlock()
	if nil == submit {
		return
	}

	for _, item := range waiting {
		err := submit(item.packed, parent)
		if nil != err {
			data.log.Warnf("resubmit %s failed: %s", item.position, err)
		} else {
			data.log.Infof("resubmitted %s", item.position)
		}
	}
}
