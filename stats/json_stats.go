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

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	contentType     = "Content-Type"
	applicationJSON = "application/json"
	sysPrefix       = "poolclock."
)

// JSONStats is what we want to report as stats via http
type JSONStats struct {
	Stats
	sys SysStats
}

// NewJSONStats returns a new JSONStats
func NewJSONStats() *JSONStats {
	return &JSONStats{Stats: *NewStats()}
}

// CollectSysStats stores process statistics as counters
func (s *JSONStats) CollectSysStats(interval time.Duration) error {
	sys, err := s.sys.CollectRuntimeStats(interval)
	if err != nil {
		return err
	}
	for k, v := range sys {
		s.SetCounter(sysPrefix+k, int64(v))
	}
	return nil
}

// Handler returns the http handler serving the stats
func (s *JSONStats) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRootRequest)
	mux.HandleFunc("/counters", s.handleCountersRequest)
	return mux
}

// Start runs http server and collects system stats every interval
func (s *JSONStats) Start(monitoringport int, interval time.Duration) {
	go func() {
		for range time.Tick(interval) {
			if err := s.CollectSysStats(interval); err != nil {
				log.Warningf("failed to get system metrics %s", err)
			}
		}
	}()

	addr := fmt.Sprintf(":%d", monitoringport)
	log.Infof("Starting http json server on %s", addr)
	if err := http.ListenAndServe(addr, s.Handler()); err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(contentType, applicationJSON)
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// handleRootRequest serves the per source stats
func (s *JSONStats) handleRootRequest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.GetSourceStats())
}

// handleCountersRequest serves the counters
func (s *JSONStats) handleCountersRequest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.GetCounters())
}
