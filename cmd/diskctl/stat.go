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

	"github.com/spf13/cobra"

	"github.com/jacobsa/diskfs/device"
)

var statSector uint32

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Print an inode's current length and sector footprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		sector := device.Sector(statSector)

		s, err := openSession(sector)
		if err != nil {
			return err
		}

		h := s.reg.Open(s.dev, sector)
		defer s.reg.Close(h)

		length, err := h.Length()
		if err != nil {
			return fmt.Errorf("diskctl: stat: %w", err)
		}

		if err := s.close(); err != nil {
			return err
		}

		fmt.Printf("sector: %v\nlength: %d bytes\n", sector, length)
		return nil
	},
}

func init() {
	flags := statCmd.Flags()
	flags.Uint32Var(&statSector, "sector", 0, "sector id of the inode to stat")
	statCmd.MarkFlagRequired("sector")
}
