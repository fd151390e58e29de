// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 Meridian Money Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch - report modifications of the configuration file
//
// sends one struct{} per change until the shutdown channel closes;
// the caller decides what a change means, typically a restart notice.
// The parent directory is watched rather than the file itself so
// editors that replace the file atomically are still seen.
func Watch(fileName string, shutdown <-chan struct{}) (<-chan struct{}, error) {

	fileName, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}

	err = watcher.Add(filepath.Dir(fileName))
	if nil != err {
		watcher.Close()
		return nil, err
	}

	changed := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-shutdown:
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != fileName {
					continue
				}
				if 0 == event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				select {
				case changed <- struct{}{}:
				default:
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return changed, nil
}
