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
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timepool/poolclock/stats"
)

var sourcesMonitorFlag string

func init() {
	RootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().StringVarP(&sourcesMonitorFlag, "monitor", "m", "", "fetch sources from the monitoring server of a running poolclock, like http://localhost:4270")
}

func localSources(cmd *cobra.Command) (stats.SourceStats, error) {
	cfg, err := prepareConfig(cmd)
	if err != nil {
		return nil, err
	}
	p, err := newPoller(cfg, stats.NewStats())
	if err != nil {
		return nil, err
	}
	defer p.Close()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout+time.Second)
	defer cancel()
	if err := p.Refresh(ctx); err != nil {
		return nil, err
	}
	return p.Sources(), nil
}

func printSources(sources stats.SourceStats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"source", "acquired", "leap", "smearing", "stratum", "offset", "rtt", "polls", "failures", "backoff", "error",
	})
	for _, s := range sources {
		acquired := color.RedString("no")
		if s.Acquired {
			acquired = color.GreenString("yes")
		}
		leap := fmt.Sprintf("%+d", s.PendingLeap)
		if s.PendingLeap != 0 {
			leap = color.YellowString(leap)
		}
		table.Append([]string{
			s.Name,
			acquired,
			leap,
			fmt.Sprintf("%v", s.Smearing),
			fmt.Sprintf("%d", s.Stratum),
			time.Duration(s.Offset).String(),
			time.Duration(s.RTT).String(),
			fmt.Sprintf("%d", s.Polls),
			fmt.Sprintf("%d", s.Failures),
			fmt.Sprintf("%d", s.Backoff),
			s.Error,
		})
	}
	table.Render()
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Print the status of every time source",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		var (
			sources stats.SourceStats
			err     error
		)
		if sourcesMonitorFlag != "" {
			sources, err = stats.FetchSourceStats(sourcesMonitorFlag)
			sort.Sort(sources)
		} else {
			sources, err = localSources(cmd)
		}
		if err != nil {
			log.Fatal(err)
		}
		printSources(sources)
	},
}
