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
	"github.com/spf13/cobra"
)

var idealCmd = &cobra.Command{
	Use:   "ideal TID [PROCESSOR]",
	Short: "Query or set the ideal processor of the thread",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  idealProcessor,
}

var idealConfig = config.NewWithOpts()

func init() {
	idealConfig.MustViperize(idealCmd)

	RootCmd.AddCommand(idealCmd)
}

func idealProcessor(cmd *cobra.Command, args []string) error {
	if err := common.Init(idealConfig); err != nil {
		return err
	}
	thread, err := openThread(args[0])
	if err != nil {
		return err
	}
	defer thread.Close()

	if len(args) == 1 {
		ideal, err := thread.IdealProcessor()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), ideal)
		return err
	}

	processor, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid processor number %q", args[1])
	}
	prev, err := thread.SetIdealProcessor(uint32(processor))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d -> %d\n", prev, processor)
	return err
}
