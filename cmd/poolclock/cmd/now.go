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
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timepool/poolclock/pool"
	"github.com/timepool/poolclock/stats"
)

var (
	nowJSONFlag    bool
	nowTimeoutFlag time.Duration
	nowPauseFlag   time.Duration
)

func init() {
	RootCmd.AddCommand(nowCmd)
	nowCmd.Flags().BoolVarP(&nowJSONFlag, "json", "j", false, "print the full time info as JSON")
	nowCmd.Flags().DurationVarP(&nowTimeoutFlag, "timeout", "t", 30*time.Second, "how long to wait for the first source")
	nowCmd.Flags().DurationVar(&nowPauseFlag, "pause", time.Second, "pause between two polling rounds")
}

// waitAcquired polls the sources until one of them has time, pausing between rounds
func waitAcquired(ctx context.Context, p *pool.Poller, clock clockwork.Clock, pause time.Duration) error {
	for !p.TimeAcquired() {
		if !p.CanPoll() {
			return fmt.Errorf("no source can be polled")
		}
		if err := p.Refresh(ctx); err != nil {
			return fmt.Errorf("waiting for time: %w", err)
		}
		if p.TimeAcquired() {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for time: %w", ctx.Err())
		case <-clock.After(pause):
		}
	}
	return nil
}

func now(cmd *cobra.Command) error {
	cfg, err := prepareConfig(cmd)
	if err != nil {
		return err
	}
	p, err := newPoller(cfg, stats.NewStats())
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), nowTimeoutFlag)
	defer cancel()
	if err := waitAcquired(ctx, p, clockwork.NewRealClock(), nowPauseFlag); err != nil {
		return err
	}
	info := p.TimeInfo()
	if !nowJSONFlag {
		fmt.Println(info.Text)
		return nil
	}
	out, err := json.Marshal(info)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Print the current pool time once",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := now(cmd); err != nil {
			log.Fatal(err)
		}
	},
}
