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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobsa/diskfs/device"
)

var (
	writeSector int
	writeOffset int64
	writeData   string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write bytes into an inode at a given offset",
	Long: `Write bytes into an inode at a given offset. The data comes from
--data if set, otherwise from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sector := device.Sector(writeSector)

		src := []byte(writeData)
		if writeData == "" {
			var err error
			src, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("diskctl: write: reading stdin: %w", err)
			}
		}

		s, err := openSession(sector)
		if err != nil {
			return err
		}

		h := s.reg.Open(s.dev, sector)
		defer s.reg.Close(h)

		n, err := h.WriteAt(src, writeOffset)
		if err != nil {
			return fmt.Errorf("diskctl: write: %w", err)
		}

		if err := s.close(); err != nil {
			return err
		}

		fmt.Printf("wrote %d bytes at offset %d\n", n, writeOffset)
		return nil
	},
}

func init() {
	flags := writeCmd.Flags()
	flags.IntVar(&writeSector, "sector", 0, "sector id of the inode to write to")
	flags.Int64Var(&writeOffset, "offset", 0, "byte offset to start writing at")
	flags.StringVar(&writeData, "data", "", "literal bytes to write; reads stdin if unset")
	writeCmd.MarkFlagRequired("sector")
}
