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

package pool

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// ServersEnv is the environment variable with a comma separated list of NTP servers
const ServersEnv = "POOLCLOCK_NTP_SERVERS"

// DefaultServers is the pool used when nothing else is configured
var DefaultServers = []string{
	"0.debian.pool.ntp.org",
	"1.debian.pool.ntp.org",
	"2.debian.pool.ntp.org",
	"3.debian.pool.ntp.org",
	"time.cloudflare.com",
	"mail.geiger-online.ch",
	"ns1.customer-resolver.net",
	"pool.ntp.org",
}

// BackoffConfig describes how long a failing source is skipped
type BackoffConfig struct {
	Mode     string
	Step     int
	MaxValue int
	// MaxAcquired caps the backoff of sources which still have a cached estimate, 0 means no cap
	MaxAcquired int
}

// Validate BackoffConfig is sane
func (c *BackoffConfig) Validate() error {
	if c.Mode != BackoffNone && c.Mode != BackoffFixed && c.Mode != BackoffLinear && c.Mode != BackoffExponential {
		return fmt.Errorf("mode must be either %q, %q, %q or %q", BackoffNone, BackoffFixed, BackoffLinear, BackoffExponential)
	}
	if c.MaxAcquired < 0 {
		return fmt.Errorf("maxacquired must be 0 or positive")
	}
	if c.Mode != BackoffNone {
		if c.Step <= 0 {
			return fmt.Errorf("step must be positive")
		}
		if c.Mode != BackoffFixed && c.MaxValue <= 0 {
			return fmt.Errorf("maxvalue must be positive")
		}
	}
	return nil
}

// Config specifies poolclock run options
type Config struct {
	Servers        []string
	Interval       time.Duration
	QueryTimeout   time.Duration
	Backoff        BackoffConfig
	System         bool
	LeapFile       string
	MonitoringPort int
	ListenAddress  string
	DebugAPI       bool
}

// DefaultConfig returns Config initialized with default values
func DefaultConfig() *Config {
	return &Config{
		Servers:        append([]string{}, DefaultServers...),
		Interval:       time.Minute,
		QueryTimeout:   5 * time.Second,
		Backoff:        BackoffConfig{Mode: BackoffExponential, Step: 2, MaxValue: 60, MaxAcquired: 2},
		MonitoringPort: 4270,
		ListenAddress:  ":8080",
	}
}

// Validate config is sane
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero")
	}
	if c.QueryTimeout <= 0 || c.QueryTimeout >= c.Interval {
		return fmt.Errorf("querytimeout must be greater than zero but less than interval")
	}
	if len(c.Servers) == 0 && !c.System {
		return fmt.Errorf("at least one server must be specified")
	}
	seen := map[string]bool{}
	for _, s := range c.Servers {
		if s == "" {
			return fmt.Errorf("empty server name")
		}
		if seen[s] {
			return fmt.Errorf("duplicate server %q", s)
		}
		seen[s] = true
	}
	if c.MonitoringPort < 0 {
		return fmt.Errorf("monitoringport must be 0 or positive")
	}
	if err := c.Backoff.Validate(); err != nil {
		return fmt.Errorf("invalid backoff config: %w", err)
	}
	return nil
}

// ReadConfig reads config from the file
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(cData, &c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ServersFromEnv parses the server list from ServersEnv
func ServersFromEnv() []string {
	var res []string
	for _, s := range strings.Split(os.Getenv(ServersEnv), ",") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}

// PrepareConfig prepares final version of config based on defaults, environment, CLI flags and on-disk config, and validates resulting config
func PrepareConfig(cfgPath string, servers []string, interval time.Duration, queryTimeout time.Duration, monitoringPort int, system bool, setFlags map[string]bool) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	warn := func(name string) {
		log.Warningf("overriding %s from CLI flag", name)
	}
	if cfgPath != "" {
		cfg, err = ReadConfig(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("reading config from %q: %w", cfgPath, err)
		}
	}
	if len(servers) > 0 {
		warn("servers")
		cfg.Servers = servers
	} else if env := ServersFromEnv(); len(env) > 0 {
		log.Warningf("overriding servers from %s", ServersEnv)
		cfg.Servers = env
	}
	if setFlags["interval"] {
		warn("interval")
		cfg.Interval = interval
	}
	if setFlags["querytimeout"] {
		warn("querytimeout")
		cfg.QueryTimeout = queryTimeout
	}
	if setFlags["monitoringport"] {
		warn("monitoringport")
		cfg.MonitoringPort = monitoringPort
	}
	if setFlags["system"] {
		warn("system")
		cfg.System = system
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}
