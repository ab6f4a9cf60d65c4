/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timepool/poolclock/pool"
	"github.com/timepool/poolclock/source"
	"github.com/timepool/poolclock/stats"
)

var (
	simulateDebugTimeFlag string
	simulateLeapFlag      int
	simulateTicksFlag     int
	simulateStepFlag      time.Duration
	simulateSmearingFlag  int
	simulateSteppingFlag  int
)

func init() {
	RootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simulateDebugTimeFlag, "debug-time", "2016-12-31T23:59:55Z", "simulated start time, RFC3339")
	simulateCmd.Flags().IntVar(&simulateLeapFlag, "leap", 1, "leap second to simulate: -1, 0 or 1")
	simulateCmd.Flags().IntVar(&simulateTicksFlag, "ticks", 20, "number of readings to print")
	simulateCmd.Flags().DurationVar(&simulateStepFlag, "step", 500*time.Millisecond, "simulated time between readings")
	simulateCmd.Flags().IntVar(&simulateSteppingFlag, "stepping", 3, "number of sources stepping through the leap second")
	simulateCmd.Flags().IntVar(&simulateSmearingFlag, "smearing", 1, "number of sources smearing the leap second")
}

// simulationSources returns fakes a few ms apart so aggregation has work to do
func simulationSources(clock clockwork.Clock, stepping, smearing int) []source.TimeSource {
	var res []source.TimeSource
	for i := 0; i < stepping+smearing; i++ {
		offset := time.Duration(i%3-1) * time.Millisecond
		if i < stepping {
			res = append(res, source.NewFake(fmt.Sprintf("stepping-%d", i), clock, offset))
			continue
		}
		f := source.NewFake(fmt.Sprintf("smearing-%d", i-stepping), clock, offset)
		f.SetSmearing(true)
		res = append(res, f)
	}
	return res
}

func highlight(info pool.TimeInfo) string {
	switch {
	case info.LeapExcess > 0:
		i := strings.LastIndex(info.Text, ":60.")
		return info.Text[:i+1] + color.RedString(info.Text[i+1:])
	case info.LeapSecond != 0:
		return color.YellowString(info.Text)
	}
	return info.Text
}

func simulate() error {
	base, err := time.Parse(time.RFC3339Nano, simulateDebugTimeFlag)
	if err != nil {
		return fmt.Errorf("parsing debug time: %w", err)
	}
	if simulateLeapFlag < -1 || simulateLeapFlag > 1 {
		return fmt.Errorf("leap must be -1, 0 or 1")
	}
	clock := clockwork.NewFakeClock()
	p, err := pool.New(pool.DefaultConfig(), simulationSources(clock, simulateSteppingFlag, simulateSmearingFlag), clock, stats.NewStats())
	if err != nil {
		return err
	}
	defer p.Close()
	p.SetDebugTime(base, simulateLeapFlag)
	for i := 0; i < simulateTicksFlag; i++ {
		info := p.TimeInfo()
		fmt.Printf("%s leap=%+d excess=%d\n", highlight(info), info.LeapSecond, info.LeapExcess)
		clock.Advance(simulateStepFlag)
	}
	return nil
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Print what the pool publishes around a simulated leap second",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := simulate(); err != nil {
			log.Fatal(err)
		}
	},
}
