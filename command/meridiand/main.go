// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// the chain node daemon
//
// wires storage, the write coordinator, the orphan reservoir and the
// block publisher together and then waits for a signal
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/meridian-money/meridiand/blockrecord"
	"github.com/meridian-money/meridiand/blockstamp"
	"github.com/meridian-money/meridiand/configuration"
	"github.com/meridian-money/meridiand/currency"
	"github.com/meridian-money/meridiand/genesis"
	"github.com/meridian-money/meridiand/ledger"
	"github.com/meridian-money/meridiand/mode"
	"github.com/meridian-money/meridiand/publish"
	"github.com/meridian-money/meridiand/reservoir"
	"github.com/meridian-money/meridiand/storage"
	"github.com/meridian-money/meridiand/version"
)

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		fmt.Printf("%s\n", version.Version)
		return
	}

	if len(options["help"]) > 0 || len(arguments) > 0 {
		exitwithstatus.Message("usage: %s [--help] [--quiet] [--version] --config-file=FILE", program)
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: exactly one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	configurationFile := options["config-file"][0]
	theConfiguration, err := configuration.GetConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// start logging
	err = logger.Initialise(logger.Configuration{
		Directory: theConfiguration.Logging.Directory,
		File:      theConfiguration.Logging.File,
		Size:      theConfiguration.Logging.Size,
		Count:     theConfiguration.Logging.Count,
		Console:   theConfiguration.Logging.Console,
		Levels:    theConfiguration.Logging.Levels,
	})
	if nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version.Version)

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if nil != err {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// set the initial system mode - before any background tasks are started
	err = mode.Initialise(theConfiguration.Chain)
	if nil != err {
		log.Criticalf("mode initialise error: %s", err)
		exitwithstatus.Message("mode initialise error: %s", err)
	}
	defer mode.Finalise()

	log.Infof("test mode: %v", mode.IsTesting())
	log.Infof("database: %q", theConfiguration.Database)

	// start the data storage
	log.Info("initialise storage")
	mustReindex, err := storage.Initialise(theConfiguration.Database.Name, storage.ReadWrite)
	if nil != err {
		log.Criticalf("storage initialise error: %s", err)
		exitwithstatus.Message("storage initialise error: %s", err)
	}
	defer storage.Finalise()

	// monetary parameters, optionally overlaid from a file
	parameters, err := currency.Get(theConfiguration.Chain)
	if nil != err {
		log.Criticalf("currency parameters error: %s", err)
		exitwithstatus.Message("currency parameters error: %s", err)
	}
	if "" != theConfiguration.ParametersFile {
		err = parameters.LoadFile(theConfiguration.ParametersFile)
		if nil != err {
			log.Criticalf("parameters file: %q error: %s", theConfiguration.ParametersFile, err)
			exitwithstatus.Message("parameters file: %q error: %s", theConfiguration.ParametersFile, err)
		}
	}

	// start the write coordinator
	log.Info("initialise ledger")
	err = ledger.Initialise(parameters, mode.IsTesting())
	if nil != err {
		log.Criticalf("ledger initialise error: %s", err)
		exitwithstatus.Message("ledger initialise error: %s", err)
	}
	defer ledger.Finalise()

	if mustReindex {
		log.Warn("stale database schema, rebuilding indexes")
		err = ledger.RebuildIndexes()
		if nil != err {
			log.Criticalf("rebuild indexes error: %s", err)
			exitwithstatus.Message("rebuild indexes error: %s", err)
		}
	}

	// start up the publishing background processes
	log.Info("initialise publish")
	err = publish.Initialise(&theConfiguration.Publishing)
	if nil != err {
		log.Criticalf("publish initialise error: %s", err)
		exitwithstatus.Message("publish initialise error: %s", err)
	}
	defer publish.Finalise()

	// the orphan buffer resubmits through the coordinator
	log.Info("initialise reservoir")
	err = reservoir.Initialise(
		func(packed blockrecord.PackedBlock, claimedPrevious blockstamp.Blockstamp) error {
			_, err := ledger.SubmitBlock(packed, claimedPrevious)
			return err
		},
		nil,
	)
	if nil != err {
		log.Criticalf("reservoir initialise error: %s", err)
		exitwithstatus.Message("reservoir initialise error: %s", err)
	}
	defer reservoir.Finalise()

	// every stored block goes to subscribers and frees waiting orphans
	ledger.SetAnnounce(func(position blockstamp.Blockstamp, packed blockrecord.PackedBlock) {
		publish.Announce(position, packed)
		reservoir.Notify(position)
	})

	// a fresh database starts from the founding block
	if _, ok := ledger.CurrentBlockstamp(); !ok {
		log.Info("empty chain, applying the founding block")
		packed, err := genesis.Block(theConfiguration.Chain)
		if nil != err {
			log.Criticalf("founding block error: %s", err)
			exitwithstatus.Message("founding block error: %s", err)
		}
		_, err = ledger.SubmitBlock(packed, blockstamp.Blockstamp{})
		if nil != err {
			log.Criticalf("founding block submit error: %s", err)
			exitwithstatus.Message("founding block submit error: %s", err)
		}
	}

	mode.Set(mode.Normal)

	// note when the configuration changes under a running node
	watcherShutdown := make(chan struct{})
	defer close(watcherShutdown)
	changed, err := configuration.Watch(configurationFile, watcherShutdown)
	if nil != err {
		log.Warnf("configuration watch error: %s", err)
		changed = nil
	}

	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case sig := <-ch:
			log.Infof("received signal: %v", sig)
			if 0 == len(options["quiet"]) {
				fmt.Printf("\nreceived signal: %v\n", sig)
				fmt.Printf("\nshutting down…\n")
			}
			break loop

		case <-changed:
			// only log levels can change under a running node,
			// everything else needs a restart
			newConfiguration, err := configuration.GetConfiguration(configurationFile)
			if nil != err {
				log.Errorf("configuration reload error: %s", err)
				continue loop
			}
			logger.LoadLevels(newConfiguration.Logging.Levels)
			log.Warn("configuration file changed, log levels reloaded, restart to apply other changes")
		}
	}

	log.Info("shutting down…")
	mode.Set(mode.Stopped)
}
