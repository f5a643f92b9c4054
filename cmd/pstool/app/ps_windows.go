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
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/pstool/cmd/pstool/common"
	"github.com/rabbitstack/pstool/pkg/config"
	"github.com/rabbitstack/pstool/pkg/cpuset"
	"github.com/rabbitstack/pstool/pkg/ps"
	"github.com/rabbitstack/pstool/pkg/util/wildcard"
	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List running processes",
	RunE:  listProcesses,
}

var (
	psConfig = config.NewWithOpts()
	psName   string
	psPath   bool
)

func init() {
	psConfig.MustViperize(psCmd)
	psCmd.Flags().StringVarP(&psName, "name", "n", "", "Shows only processes whose image name matches the pattern. Supports * and ? wildcards")
	psCmd.Flags().BoolVar(&psPath, "path", false, "Shows the full path of the process image")

	RootCmd.AddCommand(psCmd)
}

func listProcesses(cmd *cobra.Command, args []string) error {
	if err := common.Init(psConfig); err != nil {
		return err
	}
	procs, err := ps.AllWithAccess(psConfig.Access | ps.QueryLimitedInformation)
	if err != nil {
		return err
	}

	header := table.Row{"PID", "Name", "Affinity"}
	if psPath {
		header = append(header, "Path")
	}
	t := newTable(cmd.OutOrStdout(), header)

	for proc := range procs.All() {
		name, err := proc.Name()
		if err != nil || (psName != "" && !wildcard.MatchFold(psName, name)) {
			_ = proc.Close()
			continue
		}
		pid, _ := proc.ID()
		var affinity string
		if mask, err := proc.AffinityMask(); err == nil {
			affinity = cpuset.FromMask(mask).String()
		}
		row := table.Row{pid, name, affinity}
		if psPath {
			path, _ := proc.Path()
			row = append(row, path)
		}
		t.AppendRow(row)
		_ = proc.Close()
	}
	if err := procs.Err(); err != nil {
		return err
	}

	t.SortBy([]table.SortBy{{Name: "PID", Mode: table.AscNumeric}})
	t.AppendFooter(table.Row{"", "Total", t.Length()})
	t.Render()
	return nil
}
