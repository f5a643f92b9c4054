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
	"fmt"
	"strconv"

	"github.com/rabbitstack/pstool/cmd/pstool/common"
	"github.com/rabbitstack/pstool/pkg/config"
	"github.com/rabbitstack/pstool/pkg/cpuset"
	"github.com/rabbitstack/pstool/pkg/ps"
	"github.com/spf13/cobra"
)

var affinityCmd = &cobra.Command{
	Use:   "affinity",
	Short: "Query or change the processor affinity of processes and threads",
}

var affinityGetCmd = &cobra.Command{
	Use:   "get PID|NAME|TID",
	Short: "Show the processor affinity",
	Args:  cobra.ExactArgs(1),
	RunE:  getAffinity,
}

var affinitySetCmd = &cobra.Command{
	Use:   "set PID|NAME|TID CPUS",
	Short: "Pin to the processor list, e.g. 0-3,6",
	Args:  cobra.ExactArgs(2),
	RunE:  setAffinity,
}

var (
	affinityConfig = config.NewWithOpts()
	affinityThread bool
)

func init() {
	affinityConfig.MustViperize(affinityCmd)
	affinityCmd.PersistentFlags().BoolVarP(&affinityThread, "thread", "t", false, "Treats the argument as the thread identifier")

	affinityCmd.AddCommand(affinityGetCmd)
	affinityCmd.AddCommand(affinitySetCmd)

	RootCmd.AddCommand(affinityCmd)
}

func getAffinity(cmd *cobra.Command, args []string) error {
	if err := common.Init(affinityConfig); err != nil {
		return err
	}
	if affinityThread {
		thread, err := openThread(args[0])
		if err != nil {
			return err
		}
		defer thread.Close()
		mask, err := thread.AffinityMask()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", cpuset.FromMask(mask), hex(mask))
		return err
	}

	proc, err := openProcess(args[0], affinityConfig.Access|ps.QueryLimitedInformation)
	if err != nil {
		return err
	}
	defer proc.Close()
	mask, err := proc.AffinityMask()
	if err != nil {
		return err
	}
	sys, err := proc.SystemAffinityMask()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), system %s\n", cpuset.FromMask(mask), hex(mask), cpuset.FromMask(sys))
	return err
}

func setAffinity(cmd *cobra.Command, args []string) error {
	if err := common.Init(affinityConfig); err != nil {
		return err
	}
	set, err := cpuset.Parse(args[1])
	if err != nil {
		return err
	}

	var prev uintptr
	if affinityThread {
		thread, err := openThread(args[0])
		if err != nil {
			return err
		}
		defer thread.Close()
		prev, err = thread.SetAffinityMask(set.Mask())
		if err != nil {
			return err
		}
	} else {
		proc, err := openProcess(args[0], affinityConfig.Access|ps.QueryLimitedInformation|ps.SetInformation)
		if err != nil {
			return err
		}
		defer proc.Close()
		prev, err = proc.SetAffinityMask(set.Mask())
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", cpuset.FromMask(prev), set)
	return err
}

func openThread(arg string) (*ps.Thread, error) {
	tid, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid thread identifier %q", arg)
	}
	return ps.OpenThread(uint32(tid))
}
