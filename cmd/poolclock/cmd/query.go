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
	"time"

	"github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timepool/poolclock/source"
	"github.com/timepool/poolclock/stats"
)

var (
	queryRetriesFlag  uint64
	queryDeadlineFlag time.Duration
)

func init() {
	RootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Uint64VarP(&queryRetriesFlag, "retries", "r", 3, "how many times to retry when every server failed")
	queryCmd.Flags().DurationVarP(&queryDeadlineFlag, "timeout", "t", time.Minute, "overall deadline")
}

func printSample(s *source.Sample) {
	fmt.Printf("Source: %s\n", s.Source)
	fmt.Printf("Time: %s\n", s.Text)
	fmt.Printf("Pending leap second: %+d\n", s.PendingLeap)
	fmt.Printf("Stratum: %d\n", s.Stratum)
	fmt.Printf("Reference ID: 0x%08X\n", s.ReferenceID)
	fmt.Printf("Offset: %v\n", s.Offset)
	fmt.Printf("RTT: %v\n", s.RTT)
}

func query(cmd *cobra.Command) error {
	cfg, err := prepareConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPoller(cfg, stats.NewStats())
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), queryDeadlineFlag)
	defer cancel()

	b := retry.NewFibonacci(200 * time.Millisecond)
	b = retry.WithMaxRetries(queryRetriesFlag, b)
	b = retry.WithCappedDuration(5*time.Second, b)

	var res *source.Sample
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		s, err := p.NTPData(ctx, time.Now())
		if err != nil {
			log.Debugf("query failed: %v", err)
			return retry.RetryableError(err)
		}
		res = s
		return nil
	})
	if err != nil {
		return err
	}
	printSample(res)
	return nil
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query all servers at once and print the first answer",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := query(cmd); err != nil {
			log.Fatal(err)
		}
	},
}
