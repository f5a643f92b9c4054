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
	"github.com/rabbitstack/pstool/pkg/ps"
	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules PID|NAME",
	Short: "List modules loaded by the process",
	Args:  cobra.ExactArgs(1),
	RunE:  listModules,
}

var (
	modulesConfig  = config.NewWithOpts()
	modulesHandles bool
)

func init() {
	modulesConfig.MustViperize(modulesCmd)
	modulesCmd.Flags().BoolVar(&modulesHandles, "handles", false, "Lists module handles from the loader instead of the module table snapshot")

	RootCmd.AddCommand(modulesCmd)
}

func listModules(cmd *cobra.Command, args []string) error {
	if err := common.Init(modulesConfig); err != nil {
		return err
	}
	access := modulesConfig.Access | ps.QueryLimitedInformation
	if modulesHandles {
		access |= ps.QueryInformation | ps.VMRead
	}
	proc, err := openProcess(args[0], access)
	if err != nil {
		return err
	}
	defer proc.Close()

	if modulesHandles {
		return listModuleHandles(cmd, proc)
	}

	entries, err := proc.ModuleEntries()
	if err != nil {
		return err
	}
	t := newTable(cmd.OutOrStdout(), table.Row{"Name", "Base", "Size", "Load count", "Path"})
	for e := range entries.All() {
		t.AppendRow(table.Row{e.Name, hex(e.BaseAddress), humanize.IBytes(uint64(e.BaseSize)), e.ProcessLoadCount, e.Path})
	}
	if err := entries.Err(); err != nil {
		return err
	}
	t.Render()
	return nil
}

func listModuleHandles(cmd *cobra.Command, proc *ps.Process) error {
	mods, err := proc.Modules()
	if err != nil {
		return err
	}
	t := newTable(cmd.OutOrStdout(), table.Row{"Name", "Base", "Size", "Entry point", "Path"})
	for _, mod := range mods {
		name, _ := mod.Name()
		path, _ := mod.Path()
		row := table.Row{name, hex(uintptr(mod.Handle())), "", "", path}
		if info, err := mod.Info(); err == nil {
			row[2] = humanize.IBytes(uint64(info.Size))
			row[3] = hex(info.EntryPoint)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}
