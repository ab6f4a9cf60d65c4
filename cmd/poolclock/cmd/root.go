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
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timepool/poolclock/pool"
)

// RootCmd is a main entry point. It's exported so poolclock could be easily extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "poolclock",
	Short: "Leap second aware time from a pool of NTP servers",
}

var (
	verbose            bool
	configFlag         string
	serversFlag        []string
	intervalFlag       time.Duration
	queryTimeoutFlag   time.Duration
	monitoringPortFlag int
	systemFlag         bool
)

// flags PrepareConfig lets override the config file
var overridable = []string{"interval", "querytimeout", "monitoringport", "system"}

func init() {
	defaults := pool.DefaultConfig()
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to the config")
	RootCmd.PersistentFlags().StringSliceVarP(&serversFlag, "servers", "S", nil, fmt.Sprintf("NTP servers to poll, overrides %s and the config", pool.ServersEnv))
	RootCmd.PersistentFlags().DurationVar(&intervalFlag, "interval", defaults.Interval, "how often to poll every server")
	RootCmd.PersistentFlags().DurationVar(&queryTimeoutFlag, "querytimeout", defaults.QueryTimeout, "timeout of a single NTP query")
	RootCmd.PersistentFlags().IntVar(&monitoringPortFlag, "monitoringport", defaults.MonitoringPort, "port to start monitoring http server on, 0 disables it")
	RootCmd.PersistentFlags().BoolVar(&systemFlag, "system", defaults.System, "use the host clock as an additional source")
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
func ConfigureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func prepareConfig(cmd *cobra.Command) (*pool.Config, error) {
	setFlags := make(map[string]bool)
	for _, name := range overridable {
		setFlags[name] = cmd.Flags().Changed(name)
	}
	return pool.PrepareConfig(configFlag, serversFlag, intervalFlag, queryTimeoutFlag, monitoringPortFlag, systemFlag, setFlags)
}

// newPoller builds a poller over the live sources of cfg
func newPoller(cfg *pool.Config, st pool.StatsServer) (*pool.Poller, error) {
	clock := clockwork.NewRealClock()
	return pool.New(cfg, pool.SourcesFromConfig(cfg, clock), clock, st)
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
