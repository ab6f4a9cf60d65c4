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
	"sort"
	"sync"
)

// Stats holds counters and source stats
type Stats struct {
	mux      sync.Mutex
	counters map[string]int64
	sources  SourceStats
}

// NewStats created new instance of Stats
func NewStats() *Stats {
	return &Stats{
		counters: map[string]int64{},
		sources:  SourceStats{},
	}
}

// UpdateCounterBy will increment counter
func (s *Stats) UpdateCounterBy(key string, count int64) {
	s.mux.Lock()
	s.counters[key] += count
	s.mux.Unlock()
}

// SetCounter will set a counter to the provided value.
func (s *Stats) SetCounter(key string, val int64) {
	s.mux.Lock()
	s.counters[key] = val
	s.mux.Unlock()
}

// GetCounters returns an map of counters
func (s *Stats) GetCounters() map[string]int64 {
	ret := make(map[string]int64)
	s.mux.Lock()
	for key, val := range s.counters {
		ret[key] = val
	}
	s.mux.Unlock()
	return ret
}

// GetSourceStats returns stats of all sources, sorted by name
func (s *Stats) GetSourceStats() SourceStats {
	s.mux.Lock()
	ret := make(SourceStats, len(s.sources))
	copy(ret, s.sources)
	s.mux.Unlock()
	sort.Sort(ret)
	return ret
}

// SetSourceStats sets stats for particular source
func (s *Stats) SetSourceStats(stat *SourceStat) {
	s.mux.Lock()
	if i := s.sources.Index(stat); i != -1 {
		s.sources[i] = stat
	} else {
		s.sources = append(s.sources, stat)
	}
	s.mux.Unlock()
}

// Reset all the values of counters
func (s *Stats) Reset() {
	s.mux.Lock()
	for k := range s.counters {
		s.counters[k] = 0
	}
	s.mux.Unlock()
}
