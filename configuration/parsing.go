// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package configuration - parsing of the daemon configuration file
//
// The configuration file is a Lua program whose final expression is a
// table; this allows computed values and shared fragments without a
// separate templating layer. Relative paths are resolved against the
// data directory.
package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitmark-inc/logger"

	"github.com/meridian-money/meridiand/chain"
	"github.com/meridian-money/meridiand/publish"
)

// basic defaults, relative items resolve against the data directory
const (
	defaultDataDirectory = "" // must be set in the file; "." means beside the file
	defaultPidFile       = "meridiand.pid"

	defaultLevelDBDirectory = "data"

	defaultLogDirectory = "log"
	defaultLogFile      = "meridiand.log"
	defaultLogCount     = 10
	defaultLogSize      = 1024 * 1024
)

var defaultLogLevels = map[string]string{
	"main":            "info",
	"config":          "info",
	logger.DefaultTag: "error",
}

// DatabaseType - where the level DB lives
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// LoggerType - rotating log file settings
type LoggerType struct {
	Directory string            `gluamapper:"directory" json:"directory"`
	File      string            `gluamapper:"file" json:"file"`
	Size      int               `gluamapper:"size" json:"size"`
	Count     int               `gluamapper:"count" json:"count"`
	Console   bool              `gluamapper:"console" json:"console"`
	Levels    map[string]string `gluamapper:"levels" json:"levels"`
}

// Configuration - the full daemon configuration
type Configuration struct {
	Chain          string                `gluamapper:"chain" json:"chain"`
	DataDirectory  string                `gluamapper:"data_directory" json:"data_directory"`
	PidFile        string                `gluamapper:"pidfile" json:"pidfile"`
	ParametersFile string                `gluamapper:"parameters_file" json:"parameters_file"`
	Database       DatabaseType          `gluamapper:"database" json:"database"`
	Publishing     publish.Configuration `gluamapper:"publishing" json:"publishing"`
	Logging        LoggerType            `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read, decode and verify the configuration
func GetConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{
		Chain:         chain.Meridian,
		DataDirectory: defaultDataDirectory,
		PidFile:       defaultPidFile,

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
		},

		Logging: LoggerType{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	err = ParseConfigurationFile(configurationFileName, options)
	if nil != err {
		return nil, err
	}

	options.Chain = strings.ToLower(options.Chain)
	if !chain.Valid(options.Chain) {
		return nil, fmt.Errorf("chain: %q is not supported", options.Chain)
	}

	// one database per chain unless explicitly named
	// storage appends the ".leveldb" extension itself
	if "" == options.Database.Name {
		options.Database.Name = options.Chain
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist, it is created prior to running
	fileInfo, err := os.Stat(options.DataDirectory)
	if nil != err {
		return nil, err
	}
	if !fileInfo.IsDir() {
		return nil, fmt.Errorf("path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.PidFile,
		&options.Database.Directory,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = ensureAbsolute(options.DataDirectory, *f)
	}
	if "" != options.ParametersFile {
		options.ParametersFile = ensureAbsolute(options.DataDirectory, options.ParametersFile)
	}

	// fail if any of these are not simple file names i.e. must not
	// contain a path separator, then add the correct directory prefix
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Logging.File, &options.Logging.Directory},
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f[0]) {
		case "", ".":
			*f[0] = ensureAbsolute(*f[1], *f[0])
		default:
			return nil, fmt.Errorf("files: %q is not a plain name", *f[0])
		}
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{&options.Database.Directory, &options.Logging.Directory} {
		*d = ensureAbsolute(options.DataDirectory, *d)
		err = os.MkdirAll(*d, 0700)
		if nil != err {
			return nil, err
		}
	}

	return options, nil
}

// ensure the path is absolute
func ensureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}
