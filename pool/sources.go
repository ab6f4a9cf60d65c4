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
	"github.com/jonboulle/clockwork"

	"github.com/timepool/poolclock/ntp"
	"github.com/timepool/poolclock/source"
	"github.com/timepool/poolclock/sysclock"
)

// SourcesFromConfig creates the live time sources described by cfg: one per
// NTP server, plus the host clock when enabled
func SourcesFromConfig(cfg *Config, clock clockwork.Clock) []source.TimeSource {
	res := make([]source.TimeSource, 0, len(cfg.Servers)+1)
	for _, server := range cfg.Servers {
		res = append(res, ntp.New(server, cfg.QueryTimeout, clock))
	}
	if cfg.System {
		res = append(res, sysclock.New(clock, cfg.LeapFile))
	}
	return res
}
