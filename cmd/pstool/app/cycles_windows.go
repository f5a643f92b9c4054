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
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rabbitstack/pstool/cmd/pstool/common"
	"github.com/rabbitstack/pstool/pkg/config"
	"github.com/rabbitstack/pstool/pkg/ps"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles PID|NAME",
	Short: "Sample CPU cycles consumed by the process threads",
	Args:  cobra.ExactArgs(1),
	RunE:  sampleCycles,
}

var (
	cyclesConfig   = config.NewWithOpts()
	cyclesInterval time.Duration
	cyclesSamples  int
)

func init() {
	cyclesConfig.MustViperize(cyclesCmd)
	cyclesCmd.Flags().DurationVarP(&cyclesInterval, "interval", "i", time.Second, "Specifies the time between two samples")
	cyclesCmd.Flags().IntVarP(&cyclesSamples, "samples", "s", 5, "Specifies the number of samples. Zero samples until interrupted")

	RootCmd.AddCommand(cyclesCmd)
}

func sampleCycles(cmd *cobra.Command, args []string) error {
	if err := common.Init(cyclesConfig); err != nil {
		return err
	}
	proc, err := openProcess(args[0], cyclesConfig.Access|ps.QueryLimitedInformation)
	if err != nil {
		return err
	}
	defer proc.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(cyclesInterval), 1)
	prev := make(map[uint32]uint64)
	for n := 0; cyclesSamples == 0 || n <= cyclesSamples; n++ {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !proc.IsRunning() {
			return nil
		}
		curr, err := threadCycles(proc)
		if err != nil {
			return err
		}
		// the first sample only sets the baseline
		if n > 0 {
			renderCycles(cmd, prev, curr)
		}
		prev = curr
	}
	return nil
}

func threadCycles(proc *ps.Process) (map[uint32]uint64, error) {
	threads, err := proc.Threads()
	if err != nil {
		return nil, err
	}
	cycles := make(map[uint32]uint64)
	for thread := range threads.All() {
		tid, err := thread.ID()
		if err == nil {
			if c, err := thread.CycleTime(); err == nil {
				cycles[tid] = c
			}
		}
		_ = thread.Close()
	}
	return cycles, threads.Err()
}

func renderCycles(cmd *cobra.Command, prev, curr map[uint32]uint64) {
	t := newTable(cmd.OutOrStdout(), table.Row{"TID", "Cycles", "Delta"})
	var total uint64
	for tid, c := range curr {
		delta := cycleDelta(prev, tid, c)
		total += delta
		t.AppendRow(table.Row{tid, humanize.Comma(int64(c)), delta})
	}
	t.SortBy([]table.SortBy{{Name: "Delta", Mode: table.DscNumeric}})
	t.AppendFooter(table.Row{time.Now().Format(time.TimeOnly), "Total", humanize.Comma(int64(total))})
	t.Render()
}

// cycleDelta returns the cycles the thread consumed since the previous sample.
// A counter lower than the previous one means the identifier was reused by a
// new thread, whose whole counter is the delta.
func cycleDelta(prev map[uint32]uint64, tid uint32, cycles uint64) uint64 {
	if p, ok := prev[tid]; ok && cycles >= p {
		return cycles - p
	}
	return cycles
}
