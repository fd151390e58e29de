// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2024 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background

// the shutdown and completed channels for one background process
type shutdown struct {
	shutdown chan<- struct{}
	finished <-chan struct{}
}

// T - handle for a running set of background processes
type T struct {
	sh []shutdown
}

// Process - any type implementing Run can be started as a background
// process, the Run loop must return when shutdown is closed
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// Start - start up a set of background processes
// all sharing the same args value
func Start(processes Processes, args interface{}) *T {

	register := new(T)
	register.sh = make([]shutdown, len(processes))

	// start each background
	for i, p := range processes {
		shutdownChannel := make(chan struct{})
		finishedChannel := make(chan struct{})
		register.sh[i].shutdown = shutdownChannel
		register.sh[i].finished = finishedChannel
		go func(p Process, shutdown <-chan struct{}, finished chan<- struct{}) {
			p.Run(args, shutdown)
			close(finished)
		}(p, shutdownChannel, finishedChannel)
	}
	return register
}

// Stop - stop a set of background processes
// waits for all of their Run loops to return
func (t *T) Stop() {

	if nil == t {
		return
	}

	// signal all background tasks
	for _, shutdown := range t.sh {
		close(shutdown.shutdown)
	}

	// wait for finished
	for _, shutdown := range t.sh {
		<-shutdown.finished
	}
}
