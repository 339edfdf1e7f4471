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

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Flush any dirty cache slots back to the image (a no-op by itself)",
	Long: `Every other subcommand already flushes on exit, since each
invocation is a separate process with its own cache. flush exists mainly
to make that guarantee explicit and testable on its own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(device.Nil)
		if err != nil {
			return err
		}
		if err := s.close(); err != nil {
			return fmt.Errorf("diskctl: flush: %w", err)
		}
		fmt.Println("flushed")
		return nil
	},
}
