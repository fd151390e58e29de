// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package publish

import (
	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"
)

// topic frames on the PUB socket
const (
	topicBlock = "block"
)

// socket send buffering
const sendHighWaterMark = 1000

type broadcaster struct {
	log    *logger.L
	socket *zmq.Socket
}

// create the PUB socket and bind every listed address
//
// the socket is only ever touched from the Run goroutine after this
func (brdc *broadcaster) initialise(addresses []string) error {
	socket, err := zmq.NewSocket(zmq.PUB)
	if nil != err {
		return err
	}

	_ = socket.SetSndhwm(sendHighWaterMark)
	_ = socket.SetLinger(0)

	for _, address := range addresses {
		err = socket.Bind(address)
		if nil != err {
			brdc.log.Errorf("bind %q error: %s", address, err)
			socket.Close()
			return err
		}
		brdc.log.Infof("publishing on %q", address)
	}

	brdc.socket = socket
	return nil
}

func (brdc *broadcaster) close() {
	if nil != brdc.socket {
		brdc.socket.Close()
		brdc.socket = nil
	}
}

// the send loop
func (brdc *broadcaster) Run(args interface{}, shutdown <-chan struct{}) {
	log := brdc.log
	log.Info("starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case item := <-globalData.queue:
			// frames: topic, packed position, block bytes
			_, err := brdc.socket.SendMessage(topicBlock, item.position.Pack(), []byte(item.packed))
			if nil != err {
				log.Errorf("send %s error: %s", item.position, err)
			} else {
				log.Debugf("sent %s", item.position)
			}
		}
	}

	log.Info("finished")
}
