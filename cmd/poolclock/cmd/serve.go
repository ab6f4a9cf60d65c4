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
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/timepool/poolclock/server"
	"github.com/timepool/poolclock/stats"
)

var (
	serveListenFlag     string
	serveDebugAPIFlag   bool
	serveOriginsFlag    []string
	serveStatsEveryFlag time.Duration
	servePromPortFlag   int
)

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListenFlag, "listen", "l", "", "address of the time API, overrides the config")
	serveCmd.Flags().BoolVar(&serveDebugAPIFlag, "debugapi", false, "enable the debug time API")
	serveCmd.Flags().StringSliceVar(&serveOriginsFlag, "origins", nil, "CORS origins allowed to query the API, all if empty")
	serveCmd.Flags().DurationVar(&serveStatsEveryFlag, "statsinterval", time.Minute, "how often to collect process stats")
	serveCmd.Flags().IntVar(&servePromPortFlag, "promport", 0, "port of the Prometheus exporter, 0 disables it")
}

func serve(cmd *cobra.Command) error {
	cfg, err := prepareConfig(cmd)
	if err != nil {
		return err
	}
	if serveListenFlag != "" {
		cfg.ListenAddress = serveListenFlag
	}
	if serveDebugAPIFlag {
		cfg.DebugAPI = true
	}

	st := stats.NewJSONStats()
	if cfg.MonitoringPort > 0 {
		go st.Start(cfg.MonitoringPort, serveStatsEveryFlag)
		if servePromPortFlag > 0 {
			e := stats.NewPrometheusExporter(servePromPortFlag, fmt.Sprintf("http://localhost:%d", cfg.MonitoringPort), serveStatsEveryFlag)
			go e.Start()
		}
	}

	p, err := newPoller(cfg, st)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := p.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("poller stopped: %v", err)
		}
	}()

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warningf("failed to notify systemd: %v", err)
	} else if ok {
		log.Debug("notified systemd")
	}
	return server.New(p, cfg.DebugAPI, serveOriginsFlag).Start(ctx, cfg.ListenAddress)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the pool and serve its time over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		if err := serve(cmd); err != nil {
			log.Fatal(err)
		}
	},
}
