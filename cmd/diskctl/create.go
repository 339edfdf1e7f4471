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

var (
	createSector uint32
	createLength int64
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new inode at a caller-chosen sector",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(device.Nil)
		if err != nil {
			return err
		}

		sector := device.Sector(createSector)
		s.fm.MarkAllocated(sector)

		ok, err := s.reg.Create(s.dev, sector, createLength)
		if err != nil {
			return fmt.Errorf("diskctl: create: %w", err)
		}
		if !ok {
			return fmt.Errorf("diskctl: create: failed without error detail")
		}

		if err := s.close(); err != nil {
			return err
		}

		fmt.Printf("created inode at %v, length %d\n", sector, createLength)
		return nil
	},
}

func init() {
	flags := createCmd.Flags()
	flags.Uint32Var(&createSector, "sector", 0, "sector id to create the inode at")
	flags.Int64Var(&createLength, "length", 0, "initial length in bytes")
	createCmd.MarkFlagRequired("sector")
}
