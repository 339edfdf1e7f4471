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
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobsa/diskfs/device"
)

var (
	readSector int
	readOffset int64
	readLength int
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read a byte range from an inode and write it to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		sector := device.Sector(readSector)

		s, err := openSession(sector)
		if err != nil {
			return err
		}

		h := s.reg.Open(s.dev, sector)
		defer s.reg.Close(h)

		buf := make([]byte, readLength)
		n, err := h.ReadAt(buf, readOffset)
		if err != nil {
			return fmt.Errorf("diskctl: read: %w", err)
		}

		if _, err := os.Stdout.Write(buf[:n]); err != nil {
			return fmt.Errorf("diskctl: read: writing stdout: %w", err)
		}

		return s.close()
	},
}

func init() {
	flags := readCmd.Flags()
	flags.IntVar(&readSector, "sector", 0, "sector id of the inode to read from")
	flags.Int64Var(&readOffset, "offset", 0, "byte offset to start reading at")
	flags.IntVar(&readLength, "length", 0, "number of bytes to read")
	readCmd.MarkFlagRequired("sector")
	readCmd.MarkFlagRequired("length")
}
