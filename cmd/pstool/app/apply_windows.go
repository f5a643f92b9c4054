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
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/pstool/cmd/pstool/common"
	"github.com/rabbitstack/pstool/pkg/config"
	"github.com/rabbitstack/pstool/pkg/cpuset"
	"github.com/rabbitstack/pstool/pkg/tuner"
	"github.com/rabbitstack/pstool/pkg/util/spinner"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Pin processes to processors according to the configured profiles",
	RunE:  applyProfiles,
}

var (
	applyConfig = config.NewWithOpts(config.WithTuner())
	applyWait   bool
)

func init() {
	applyConfig.MustViperize(applyCmd)
	applyCmd.Flags().BoolVarP(&applyWait, "wait", "w", false, "Waits until a process matching each profile is running before applying profiles")

	RootCmd.AddCommand(applyCmd)
}

func applyProfiles(cmd *cobra.Command, args []string) error {
	if err := common.Init(applyConfig); err != nil {
		return err
	}
	if len(applyConfig.Tuner.Profiles) == 0 {
		return fmt.Errorf("no profiles defined in %s", applyConfig.File())
	}

	src := tuner.NewProcessSource()
	src.Access |= applyConfig.Access
	t, err := tuner.New(applyConfig.Tuner, src)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	if applyWait {
		for _, p := range applyConfig.Tuner.Profiles {
			s := spinner.Show(cmd.ErrOrStderr(), "Waiting for "+p.Image)
			target, err := t.WaitFor(ctx, p.Image)
			if err != nil {
				spinner.Stop(s, "")
				return err
			}
			pid, _ := target.ID()
			_ = target.Close()
			spinner.Stop(s, fmt.Sprintf("%s is running (%d)", p.Image, pid))
		}
	}

	results, err := t.Apply(ctx)
	if err != nil {
		return err
	}

	tbl := newTable(cmd.OutOrStdout(), table.Row{"Profile", "PID", "Image", "Previous", "Applied", "Error"})
	var failed int
	for _, r := range results {
		row := table.Row{r.Profile, r.PID, r.Image, cpuset.FromMask(r.Previous), cpuset.FromMask(r.Applied), ""}
		if r.Err != nil {
			failed++
			row[3], row[4], row[5] = "", "", r.Err.Error()
		}
		tbl.AppendRow(row)
	}
	tbl.Render()

	if failed > 0 {
		return errors.New("some processes couldn't be pinned")
	}
	return nil
}
