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

/*
Package stats collects and serves poolclock metrics: counters, per source
status and process statistics, as JSON and for Prometheus.
*/
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SourceStat is the monitoring view of one time source
type SourceStat struct {
	Name        string  `json:"name"`
	Acquired    bool    `json:"acquired"`
	CanPoll     bool    `json:"can_poll"`
	PendingLeap int     `json:"pending_leap"`
	Smearing    bool    `json:"smearing"`
	Backoff     int     `json:"backoff"`
	Polls       int64   `json:"polls"`
	Failures    int64   `json:"failures"`
	Offset      float64 `json:"offset"`
	RTT         float64 `json:"rtt"`
	Stratum     uint8   `json:"stratum"`
	Error       string  `json:"error"`
}

// SourceStats is a list of SourceStat
type SourceStats []*SourceStat

func (s SourceStats) Len() int           { return len(s) }
func (s SourceStats) Less(i, j int) bool { return s[i].Name < s[j].Name }
func (s SourceStats) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Index returns the index of the e if it's already in s. Otherwise -1
func (s SourceStats) Index(e *SourceStat) int {
	for i, a := range s {
		if a.Name == e.Name {
			return i
		}
	}
	return -1
}

// Counters is various counters exported by poolclock
type Counters map[string]int64

func fetch(url string, v any) error {
	c := http.Client{
		Timeout: time.Second * 2,
	}

	resp, err := c.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: %s", url, resp.Status)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// FetchSourceStats returns populated SourceStats fetched from the url
func FetchSourceStats(url string) (SourceStats, error) {
	var s SourceStats
	err := fetch(url, &s)
	return s, err
}

// FetchCounters returns counters map fetched from the url
func FetchCounters(url string) (Counters, error) {
	counters := make(Counters)
	err := fetch(fmt.Sprintf("%s/counters", url), &counters)
	return counters, err
}
