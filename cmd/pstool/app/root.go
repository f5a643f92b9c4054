/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package app

import (
	"errors"
	"runtime"

	"github.com/spf13/cobra"
)

// RootCmd is the entrance to pstool CLI
var RootCmd = &cobra.Command{
	Use:   "pstool",
	Short: "Inspect processes and tune their processor affinity",
	Long: `
	pstool lists processes, threads and loaded modules of the local machine
	and lets you query and change the processor affinity of processes and threads.
	Affinity profiles declared in the configuration file pin matching processes
	to processor sets.
	`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if runtime.GOOS != "windows" {
			return errors.New("pstool can only be run on Windows operating systems")
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
