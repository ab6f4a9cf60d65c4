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
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// SysStats reports resource usage of the poolclock process
type SysStats struct {
	proc *process.Process
	prev *runtime.MemStats
}

// setRate stores the growth of a monotonic counter over interval, as a sum and a per second rate
func setRate(name string, counts map[string]uint64, cur, prev uint64, interval time.Duration) {
	secs := uint64(interval.Seconds())
	if prev > cur || secs == 0 {
		return
	}
	diff := cur - prev
	counts[fmt.Sprintf("%s.sum.%d", name, secs)] = diff
	counts[fmt.Sprintf("%s.rate.%d", name, secs)] = diff / secs
}

func (s *SysStats) process(counts map[string]uint64, interval time.Duration) error {
	if s.proc == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return fmt.Errorf("looking up own process: %w", err)
		}
		s.proc = p
	}
	counts["process.uptime"] = uint64(time.Since(procStartTime).Seconds())
	// each reading is best effort, some are not available on every platform
	if pct, err := s.proc.Percent(0); err == nil {
		counts[fmt.Sprintf("process.cpu_pct.avg.%d", int(interval.Seconds()))] = uint64(pct * 100)
	}
	if mem, err := s.proc.MemoryInfo(); err == nil {
		counts["process.rss"] = mem.RSS
		counts["process.vms"] = mem.VMS
	}
	if fds, err := s.proc.NumFDs(); err == nil {
		counts["process.num_fds"] = uint64(fds)
	}
	if threads, err := s.proc.NumThreads(); err == nil {
		counts["process.num_threads"] = uint64(threads)
	}
	return nil
}

func (s *SysStats) runtime(counts map[string]uint64, interval time.Duration) {
	m := &runtime.MemStats{}
	runtime.ReadMemStats(m)
	counts["runtime.cpu.goroutines"] = uint64(runtime.NumGoroutine())
	counts["runtime.mem.alloc"] = m.Alloc
	counts["runtime.mem.sys"] = m.Sys
	counts["runtime.mem.heap.alloc"] = m.HeapAlloc
	counts["runtime.mem.heap.inuse"] = m.HeapInuse
	counts["runtime.mem.heap.objects"] = m.HeapObjects
	counts["runtime.mem.gc.count"] = uint64(m.NumGC)
	counts["runtime.mem.gc.pause_total"] = m.PauseTotalNs
	if s.prev != nil {
		setRate("runtime.mem.mallocs", counts, m.Mallocs, s.prev.Mallocs, interval)
		setRate("runtime.gc.count", counts, uint64(m.NumGC), uint64(s.prev.NumGC), interval)
	}
	s.prev = m
}

// CollectRuntimeStats returns process and Go runtime counters. Rates cover
// the time since the previous call, which is expected to be interval ago.
func (s *SysStats) CollectRuntimeStats(interval time.Duration) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	if err := s.process(counts, interval); err != nil {
		return nil, err
	}
	s.runtime(counts, interval)
	return counts, nil
}
