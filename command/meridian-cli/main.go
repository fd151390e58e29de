// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// command line inspection of a node's database
//
// runs against the same configuration file as the daemon and opens
// the database directly, so the daemon must not be running except for
// the read-only commands noted below
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"

	"github.com/meridian-money/meridiand/account"
	"github.com/meridian-money/meridiand/balance"
	"github.com/meridian-money/meridiand/blockdb"
	"github.com/meridian-money/meridiand/chain"
	"github.com/meridian-money/meridiand/configuration"
	"github.com/meridian-money/meridiand/currency"
	"github.com/meridian-money/meridiand/dividend"
	"github.com/meridian-money/meridiand/ledger"
	"github.com/meridian-money/meridiand/metadata"
	"github.com/meridian-money/meridiand/mode"
	"github.com/meridian-money/meridiand/storage"
	"github.com/meridian-money/meridiand/version"
	"github.com/meridian-money/meridiand/wot"
)

func main() {
	defer exitwithstatus.Handler()

	app := cli.NewApp()
	app.Name = "meridian-cli"
	app.Usage = "inspect and repair a meridiand database"
	app.Version = version.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "meridiand configuration `FILE`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "info",
			Usage:  "current chain state and index totals",
			Action: runInfo,
		},
		{
			Name:      "block",
			Usage:     "decode the canonical block at a height",
			ArgsUsage: "HEIGHT",
			Action:    runBlock,
		},
		{
			Name:      "balance",
			Usage:     "balance and unspent sources of an account",
			ArgsUsage: "ACCOUNT",
			Action:    runBalance,
		},
		{
			Name:      "identity",
			Usage:     "trust record of a uid or account",
			ArgsUsage: "UID|ACCOUNT",
			Action:    runIdentity,
		},
		{
			Name:      "certs",
			Usage:     "certifications lapsing at a height",
			ArgsUsage: "HEIGHT",
			Action:    runCerts,
		},
		{
			Name:      "dividend",
			Usage:     "dividend created at a height",
			ArgsUsage: "HEIGHT",
			Action:    runDividend,
		},
		{
			Name:      "received",
			Usage:     "dividend heights credited to an account",
			ArgsUsage: "ACCOUNT",
			Action:    runReceived,
		},
		{
			Name:      "reset",
			Usage:     "discard canonical blocks above a height",
			ArgsUsage: "HEIGHT",
			Action:    runReset,
		},
	}

	err := app.Run(os.Args)
	if nil != err {
		exitwithstatus.Message("error: %s", err)
	}
}

// open the database named by the configuration
func openDatabase(c *cli.Context, readOnly bool) (*configuration.Configuration, error) {
	fileName := c.GlobalString("config")
	if "" == fileName {
		return nil, fmt.Errorf("a configuration file is required, use --config")
	}
	options, err := configuration.GetConfiguration(fileName)
	if nil != err {
		return nil, err
	}
	_, err = storage.Initialise(options.Database.Name, readOnly)
	if nil != err {
		return nil, err
	}
	return options, nil
}

func printJSON(value interface{}) error {
	buffer, err := json.MarshalIndent(value, "", "  ")
	if nil != err {
		return err
	}
	fmt.Printf("%s\n", buffer)
	return nil
}

func heightArgument(c *cli.Context) (uint64, error) {
	if 1 != c.NArg() {
		return 0, fmt.Errorf("exactly one height argument is required")
	}
	height := uint64(0)
	_, err := fmt.Sscanf(c.Args().First(), "%d", &height)
	if nil != err {
		return 0, fmt.Errorf("height: %q is not a number", c.Args().First())
	}
	return height, nil
}

func accountArgument(c *cli.Context) (*account.Account, error) {
	if 1 != c.NArg() {
		return nil, fmt.Errorf("exactly one account argument is required")
	}
	return account.AccountFromBase58(c.Args().First())
}

func runInfo(c *cli.Context) error {
	_, err := openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	meta, ok := metadata.Get()
	if !ok {
		return fmt.Errorf("the chain is empty")
	}

	totalBalances, err := balance.TotalBalances()
	if nil != err {
		return err
	}
	totalUnspent, err := balance.TotalUnspent()
	if nil != err {
		return err
	}
	members, err := wot.MembersCount(nil)
	if nil != err {
		return err
	}

	return printJSON(map[string]interface{}{
		"currency":      meta.Currency,
		"position":      meta.Position,
		"chainTime":     meta.ChainTime,
		"monetaryMass":  meta.MonetaryMass,
		"membersCount":  meta.MembersCount,
		"totalBalances": totalBalances,
		"totalUnspent":  totalUnspent,
		"activeMembers": members,
	})
}

func runBlock(c *cli.Context) error {
	height, err := heightArgument(c)
	if nil != err {
		return err
	}
	options, err := openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	block, position, err := blockdb.UnpackMain(height, isTestnet(options.Chain))
	if nil != err {
		return err
	}
	return printJSON(map[string]interface{}{
		"position": position,
		"block":    block,
	})
}

func runBalance(c *cli.Context) error {
	owner, err := accountArgument(c)
	if nil != err {
		return err
	}
	_, err = openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	entry, ok := balance.Get(owner)
	if !ok {
		return fmt.Errorf("account: %s has no balance", owner)
	}
	return printJSON(entry)
}

func runIdentity(c *cli.Context) error {
	if 1 != c.NArg() {
		return fmt.Errorf("exactly one uid or account argument is required")
	}
	argument := c.Args().First()

	_, err := openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	owner, err := account.AccountFromBase58(argument)
	if nil != err {
		// not an account, try as a uid
		resolved, ok := wot.AccountForUid(argument)
		if !ok {
			return fmt.Errorf("no identity for: %q", argument)
		}
		owner = resolved
	}

	record, ok := wot.GetRecord(owner)
	if !ok {
		return fmt.Errorf("no identity for: %q", argument)
	}
	return printJSON(map[string]interface{}{
		"account": owner,
		"record":  record,
	})
}

func runCerts(c *cli.Context) error {
	height, err := heightArgument(c)
	if nil != err {
		return err
	}
	_, err = openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	pairs, err := wot.ExpiringCertifications(height)
	if nil != err {
		return err
	}
	return printJSON(pairs)
}

func runDividend(c *cli.Context) error {
	height, err := heightArgument(c)
	if nil != err {
		return err
	}
	_, err = openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	amount, ok := dividend.AmountAt(height)
	if !ok {
		return fmt.Errorf("no dividend at height: %d", height)
	}
	recipients, err := dividend.RecipientsAt(nil, height)
	if nil != err {
		return err
	}
	return printJSON(map[string]interface{}{
		"height":     height,
		"amount":     amount,
		"recipients": recipients,
	})
}

func runReceived(c *cli.Context) error {
	owner, err := accountArgument(c)
	if nil != err {
		return err
	}
	_, err = openDatabase(c, storage.ReadOnly)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	heights, err := dividend.ReceivedBy(owner)
	if nil != err {
		return err
	}
	return printJSON(heights)
}

// reset needs the full coordinator so reverts run exactly as they
// would during a reorganisation
func runReset(c *cli.Context) error {
	height, err := heightArgument(c)
	if nil != err {
		return err
	}
	options, err := openDatabase(c, storage.ReadWrite)
	if nil != err {
		return err
	}
	defer storage.Finalise()

	err = logger.Initialise(logger.Configuration{
		Directory: options.Logging.Directory,
		File:      "meridian-cli.log",
		Size:      options.Logging.Size,
		Count:     options.Logging.Count,
		Levels:    options.Logging.Levels,
	})
	if nil != err {
		return err
	}
	defer logger.Finalise()

	err = mode.Initialise(options.Chain)
	if nil != err {
		return err
	}
	defer mode.Finalise()

	parameters, err := currency.Get(options.Chain)
	if nil != err {
		return err
	}
	if "" != options.ParametersFile {
		err = parameters.LoadFile(options.ParametersFile)
		if nil != err {
			return err
		}
	}

	err = ledger.Initialise(parameters, mode.IsTesting())
	if nil != err {
		return err
	}
	defer ledger.Finalise()

	err = ledger.ResetToHeight(height)
	if nil != err {
		return err
	}

	position, _ := ledger.CurrentBlockstamp()
	fmt.Printf("new tip: %s\n", position)
	return nil
}

func isTestnet(chainName string) bool {
	return chain.Meridian != chainName
}
