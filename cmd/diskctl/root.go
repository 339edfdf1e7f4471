// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command diskctl exercises the cache and inode packages against a real
// disk image file: create an inode, stat it, read and write byte ranges,
// and flush dirty sectors back to the image. It exists so the storage
// core has a real caller outside of its test suite; it is not a general
// filesystem utility (there is no directory layer, and the free-sector
// map is rebuilt fresh, not persisted, on every invocation).
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jacobsa/diskfs/cache"
)

var (
	imagePath     string
	imageSectors  int
	cacheCapacity int
	debug         bool
	logFile       string
	metricsAddr   string

	bindErr error

	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "diskctl",
	Short: "Inspect and manipulate a diskfs sector image",
	Long: `diskctl wires the sector buffer cache and the extensible inode
module together against a single backing file, so create/read/write/stat/
flush can be driven from the command line instead of only from tests.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if imagePath == "" {
			return fmt.Errorf("diskctl: --image is required")
		}
		logger = newLogger()
		maybeServeMetrics(metricsAddr, logger)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&imagePath, "image", "", "path to the backing disk image file")
	flags.IntVar(&imageSectors, "sectors", 4096, "number of sectors the image addresses")
	flags.IntVar(&cacheCapacity, "cache-capacity", cache.DefaultCapacity, "number of buffer cache slots")
	flags.BoolVar(&debug, "debug", false, "enable verbose debug logging")
	flags.StringVar(&logFile, "log-file", "", "rotate operational logs through this file instead of stderr")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")

	bindErr = viper.BindPFlags(flags)
	viper.SetEnvPrefix("DISKCTL")
	viper.AutomaticEnv()

	rootCmd.AddCommand(createCmd, statCmd, readCmd, writeCmd, flushCmd)
}

// newLogger follows the teacher's debug-logger idiom: a discarding logger
// unless --debug is set, optionally rotated through lumberjack when
// --log-file names a path.
func newLogger() *log.Logger {
	var w io.Writer = os.Stderr
	if !debug {
		w = io.Discard
	}
	if debug && logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	return log.New(w, "diskctl: ", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
}

func Execute() error {
	return rootCmd.Execute()
}
