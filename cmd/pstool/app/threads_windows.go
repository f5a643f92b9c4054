//go:build windows
// +build windows

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
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/pstool/cmd/pstool/common"
	"github.com/rabbitstack/pstool/pkg/config"
	"github.com/rabbitstack/pstool/pkg/cpuset"
	"github.com/rabbitstack/pstool/pkg/ps"
	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:   "threads PID|NAME",
	Short: "List threads of the process",
	Args:  cobra.ExactArgs(1),
	RunE:  listThreads,
}

var threadsConfig = config.NewWithOpts()

func init() {
	threadsConfig.MustViperize(threadsCmd)

	RootCmd.AddCommand(threadsCmd)
}

func listThreads(cmd *cobra.Command, args []string) error {
	if err := common.Init(threadsConfig); err != nil {
		return err
	}
	proc, err := openProcess(args[0], threadsConfig.Access|ps.QueryLimitedInformation)
	if err != nil {
		return err
	}
	defer proc.Close()

	threads, err := proc.Threads()
	if err != nil {
		return err
	}

	t := newTable(cmd.OutOrStdout(), table.Row{"TID", "Cycles", "Ideal processor", "Affinity"})
	for thread := range threads.All() {
		tid, _ := thread.ID()
		row := table.Row{tid, "", "", ""}
		if cycles, err := thread.CycleTime(); err == nil {
			row[1] = humanize.Comma(int64(cycles))
		}
		if ideal, err := thread.IdealProcessor(); err == nil {
			row[2] = ideal
		}
		if mask, err := thread.AffinityMask(); err == nil {
			row[3] = cpuset.FromMask(mask).String()
		}
		t.AppendRow(row)
		_ = thread.Close()
	}
	if err := threads.Err(); err != nil {
		return err
	}
	t.Render()
	return nil
}
