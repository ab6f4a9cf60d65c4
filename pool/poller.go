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
Package pool combines several time sources into one current time.

Every source keeps its latest reading cached. TimeInfo reads all of them,
removes outliers, reconciles stepping and smearing sources around leap seconds
and makes sure the published time never goes back. Run keeps the caches fresh
by querying every source periodically.

A Poller is not safe for concurrent TimeInfo, SetDebugTime, ClearDebugTime or
Sources calls: callers serialize them.
*/
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/timepool/poolclock/source"
	"github.com/timepool/poolclock/stats"
)

// StatsServer is a stats server interface
type StatsServer interface {
	SetCounter(key string, val int64)
	UpdateCounterBy(key string, count int64)
	SetSourceStats(stat *stats.SourceStat)
}

// TimeInfo is the published time of the pool
type TimeInfo struct {
	// Time is ms since Unix epoch. During an inserted leap second it stays at the last ms before it
	Time int64 `json:"time"`
	// LeapSecond is the pending leap second: +1 insertion, -1 deletion
	LeapSecond int `json:"leapSecond"`
	// LeapExcess is how far into an inserted leap second we are, in ms
	LeapExcess int64 `json:"leapExcess"`
	Text       string `json:"text"`
}

type polledSource struct {
	source.TimeSource
	backoff *backoff

	mu       sync.Mutex
	polls    int64
	failures int64
	lastErr  error
	last     *source.Sample
}

// skip reports whether the source sits out this round, consuming one backoff step
func (ps *polledSource) skip() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.backoff.active() {
		return false
	}
	ps.backoff.tick()
	return true
}

func (ps *polledSource) record(s *source.Sample, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.polls++
	if err != nil {
		ps.failures++
		ps.lastErr = err
		if b := ps.backoff.bump(ps.Acquired()); b > 0 {
			log.Warningf("%s failed: %v, backing off for %d rounds", ps.Name(), err, b)
		} else {
			log.Warningf("%s failed: %v", ps.Name(), err)
		}
		return
	}
	ps.backoff.reset()
	ps.lastErr = nil
	ps.last = s
}

func (ps *polledSource) stat() *stats.SourceStat {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	st := &stats.SourceStat{
		Name:        ps.Name(),
		Acquired:    ps.Acquired(),
		CanPoll:     ps.CanPoll(),
		PendingLeap: ps.PendingLeapSecond(),
		Backoff:     ps.backoff.value,
		Polls:       ps.polls,
		Failures:    ps.failures,
	}
	if ps.lastErr != nil {
		st.Error = ps.lastErr.Error()
	}
	if ps.last != nil {
		st.Offset = float64(ps.last.Offset)
		st.RTT = float64(ps.last.RTT)
		st.Stratum = ps.last.Stratum
	}
	return st
}

// Poller is a pool of time sources
type Poller struct {
	cfg     *Config
	clock   clockwork.Clock
	stats   StatsServer
	sources []*polledSource

	state State
}

// New creates a Poller over sources. Source names must be unique
func New(cfg *Config, sources []source.TimeSource, clock clockwork.Clock, st StatsServer) (*Poller, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one time source is required")
	}
	if dup := lo.FindDuplicatesBy(sources, func(s source.TimeSource) string { return s.Name() }); len(dup) > 0 {
		return nil, fmt.Errorf("duplicate time source %q", dup[0].Name())
	}
	p := &Poller{
		cfg:   cfg,
		clock: clock,
		stats: st,
	}
	for _, s := range sources {
		p.sources = append(p.sources, &polledSource{TimeSource: s, backoff: newBackoff(cfg.Backoff)})
	}
	return p, nil
}

func (p *Poller) timeSources() []source.TimeSource {
	return lo.Map(p.sources, func(ps *polledSource, _ int) source.TimeSource { return ps.TimeSource })
}

// State returns a copy of the pool state
func (p *Poller) State() State {
	return p.state
}

// TimeInfo returns the current time of the pool. It never blocks on the network
func (p *Poller) TimeInfo() TimeInfo {
	now := p.clock.Now()
	samples := latestSamples(p.timeSources())
	p.stats.SetCounter("pool.samples.available", int64(len(samples)))
	if len(samples) == 0 {
		p.stats.UpdateCounterBy("pool.timeinfo.stale", 1)
		t, excess := p.state.LastPublishedTime, p.state.LastPublishedLeapExcess
		return TimeInfo{
			Time:       t,
			LeapSecond: p.state.LastPublishedLeapSecond,
			LeapExcess: excess,
			Text:       source.FormatMillis(t, excess),
		}
	}
	for _, s := range samples {
		log.Debugf("sample %s", s)
	}

	times, view, err := p.state.reconcile(samples, now)
	if err != nil {
		log.Warning(err)
		p.stats.UpdateCounterBy("pool.leap.malformed", 1)
	}
	agg, err := combine(times)
	if err != nil {
		// reconcile always keeps at least one instant
		log.Errorf("aggregating samples: %v", err)
	}
	p.stats.SetCounter("pool.samples.used", int64(agg.Used))
	p.stats.SetCounter("pool.samples.discarded", int64(agg.Discarded))
	p.stats.SetCounter("pool.leap.active", lo.Ternary[int64](view.active, 1, 0))

	t, leapSecond, excess := view.publish(agg.Time)
	t, leapSecond, excess, held := p.state.guard(t, leapSecond, excess)
	if held {
		log.Debugf("holding published time at %s", source.FormatMillis(t, excess))
		p.stats.UpdateCounterBy("pool.guard.held", 1)
	}
	return TimeInfo{
		Time:       t,
		LeapSecond: leapSecond,
		LeapExcess: excess,
		Text:       source.FormatMillis(t, excess),
	}
}

// NTPData queries all sources at once and returns the first answer
func (p *Poller) NTPData(ctx context.Context, requestTime time.Time) (*source.Sample, error) {
	s, err := race(ctx, p.timeSources(), requestTime)
	if err != nil {
		p.stats.UpdateCounterBy("pool.ntpdata.failed", 1)
		return nil, err
	}
	return s, nil
}

// TimeAcquired reports whether any source has time
func (p *Poller) TimeAcquired() bool {
	return lo.SomeBy(p.sources, func(ps *polledSource) bool { return ps.Acquired() })
}

// CanPoll reports whether any source can still be queried
func (p *Poller) CanPoll() bool {
	return lo.SomeBy(p.sources, func(ps *polledSource) bool { return ps.CanPoll() })
}

// SetDebugTime makes all sources simulate time starting at base with the given pending leap second
func (p *Poller) SetDebugTime(base time.Time, leap int) {
	log.Infof("debug time %s, leap second %+d", base.UTC().Format(time.RFC3339Nano), leap)
	for _, ps := range p.sources {
		ps.SetDebugTime(base, leap)
	}
	p.state = State{}
}

// ClearDebugTime returns all sources to real time
func (p *Poller) ClearDebugTime() {
	log.Info("debug time cleared")
	for _, ps := range p.sources {
		ps.ClearDebugTime()
	}
	p.state = State{}
}

// Close releases all sources
func (p *Poller) Close() error {
	var errs []error
	for _, ps := range p.sources {
		if err := ps.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", ps.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Sources returns the status of every source, in pool order
func (p *Poller) Sources() stats.SourceStats {
	res := make(stats.SourceStats, 0, len(p.sources))
	for _, ps := range p.sources {
		st := ps.stat()
		if p.state.Leap != nil {
			st.Smearing = p.state.Leap.Smearing[st.Name]
		}
		res = append(res, st)
	}
	return res
}

// Refresh queries every pollable source once, concurrently, each bounded by the query timeout
func (p *Poller) Refresh(ctx context.Context) error {
	requestTime := p.clock.Now()
	eg := new(errgroup.Group)
	for _, ps := range p.sources {
		if !ps.CanPoll() {
			continue
		}
		if ps.skip() {
			log.Debugf("%s is in backoff, skipping", ps.Name())
			p.stats.UpdateCounterBy("pool.polls.skipped", 1)
			continue
		}
		eg.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
			defer cancel()
			s, err := ps.Sample(qctx, requestTime)
			ps.record(s, err)
			p.stats.UpdateCounterBy("pool.polls", 1)
			if err != nil {
				p.stats.UpdateCounterBy("pool.polls.failed", 1)
			}
			p.stats.SetSourceStats(ps.stat())
			return nil
		})
	}
	_ = eg.Wait()
	acquired := lo.CountBy(p.sources, func(ps *polledSource) bool { return ps.Acquired() })
	p.stats.SetCounter("pool.sources.acquired", int64(acquired))
	return ctx.Err()
}

// Run refreshes the sources every interval until ctx is done
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		if err := p.Refresh(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}
