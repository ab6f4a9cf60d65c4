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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/timepool/poolclock/source"
	"github.com/timepool/poolclock/stats"
)

var debugBase = time.Date(2091, 12, 31, 23, 59, 50, 0, time.UTC)

type testPool struct {
	clock  *clockwork.FakeClock
	fakes  []*source.Fake
	stats  *stats.Stats
	poller *Poller
}

// newTestPool creates three stepping sources and one smearing source
func newTestPool(t *testing.T) *testPool {
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	fakes := []*source.Fake{
		source.NewFake("a", clock, 0),
		source.NewFake("b", clock, 3*time.Millisecond),
		source.NewFake("c", clock, -2*time.Millisecond),
		source.NewFake("smear", clock, time.Millisecond),
	}
	fakes[3].SetSmearing(true)
	st := stats.NewStats()
	sources := make([]source.TimeSource, 0, len(fakes))
	for _, f := range fakes {
		sources = append(sources, f)
	}
	p, err := New(DefaultConfig(), sources, clock, st)
	require.NoError(t, err)
	return &testPool{clock: clock, fakes: fakes, stats: st, poller: p}
}

// secondsTrace runs debug time from debugBase until the published time
// reaches 00:00:02, returning the distinct seconds fields shown
func secondsTrace(t *testing.T, tp *testPool, leap int) []string {
	tp.poller.SetDebugTime(debugBase, leap)
	end := ms("2092-01-01T00:00:02Z")
	res := []string{}
	var last TimeInfo
	for i := 0; i < 1000; i++ {
		info := tp.poller.TimeInfo()
		require.True(t, info.Time > last.Time || (info.Time == last.Time && info.LeapExcess >= last.LeapExcess),
			"%s after %s", info.Text, last.Text)
		last = info
		sec := info.Text[17:19]
		if len(res) == 0 || res[len(res)-1] != sec {
			res = append(res, sec)
		}
		if info.Time >= end {
			return res
		}
		tp.clock.Advance(100 * time.Millisecond)
	}
	t.Fatal("published time did not reach the end of the trace")
	return nil
}

func TestLeapSecondInsertion(t *testing.T) {
	tp := newTestPool(t)
	require.Equal(t,
		[]string{"50", "51", "52", "53", "54", "55", "56", "57", "58", "59", "60", "00", "01", "02"},
		secondsTrace(t, tp, 1))
	require.Equal(t, []string{"smear"}, tp.poller.State().Leap.SmearingSources())
}

func TestLeapSecondDeletion(t *testing.T) {
	tp := newTestPool(t)
	require.Equal(t,
		[]string{"50", "51", "52", "53", "54", "55", "56", "57", "58", "00", "01", "02"},
		secondsTrace(t, tp, -1))
}

func TestNoLeapSecond(t *testing.T) {
	tp := newTestPool(t)
	require.Equal(t,
		[]string{"50", "51", "52", "53", "54", "55", "56", "57", "58", "59", "00", "01", "02"},
		secondsTrace(t, tp, 0))
	require.Nil(t, tp.poller.State().Leap)
}

func TestLeapSecondFlags(t *testing.T) {
	tp := newTestPool(t)
	tp.poller.SetDebugTime(debugBase, 1)
	info := tp.poller.TimeInfo()
	require.Equal(t, 1, info.LeapSecond)
	require.Zero(t, info.LeapExcess)
	require.Equal(t, "2091-12-31T23:59:50.000Z", info.Text)

	tp.clock.Advance(10500 * time.Millisecond)
	info = tp.poller.TimeInfo()
	require.Equal(t, 1, info.LeapSecond)
	require.Equal(t, ms("2091-12-31T23:59:59.999Z"), info.Time)
	require.Equal(t, int64(501), info.LeapExcess)
	require.Equal(t, "2091-12-31T23:59:60.500Z", info.Text)

	tp.clock.Advance(time.Second)
	info = tp.poller.TimeInfo()
	require.Zero(t, info.LeapSecond)
	require.Zero(t, info.LeapExcess)
	require.Equal(t, "2092-01-01T00:00:00.500Z", info.Text)

	sources := tp.poller.Sources()
	require.Len(t, sources, 4)
	require.False(t, sources[0].Smearing)
	require.True(t, sources[3].Smearing)
}

func TestDebugDeterminism(t *testing.T) {
	run := func() []TimeInfo {
		tp := newTestPool(t)
		tp.poller.SetDebugTime(debugBase, 1)
		var res []TimeInfo
		for i := 0; i < 150; i++ {
			res = append(res, tp.poller.TimeInfo())
			tp.clock.Advance(100 * time.Millisecond)
		}
		return res
	}
	require.Equal(t, run(), run())
}

func TestClearDebugTimeResetsState(t *testing.T) {
	tp := newTestPool(t)
	tp.poller.SetDebugTime(debugBase, 1)
	tp.poller.TimeInfo()
	require.NotNil(t, tp.poller.State().Leap)

	tp.poller.ClearDebugTime()
	require.Equal(t, State{}, tp.poller.State())
	info := tp.poller.TimeInfo()
	require.InDelta(t, tp.clock.Now().UnixMilli(), info.Time, 3)
	require.Zero(t, info.LeapSecond)
}

func TestPartialFailure(t *testing.T) {
	tp := newTestPool(t)
	tp.fakes[1].SetAbsent(true)
	tp.fakes[2].SetAbsent(true)
	info := tp.poller.TimeInfo()
	// a and smear are 1ms apart, half a millisecond rounds up
	require.Equal(t, tp.clock.Now().UnixMilli()+1, info.Time)
	require.Equal(t, int64(2), tp.stats.GetCounters()["pool.samples.available"])
	require.True(t, tp.poller.TimeAcquired())
}

func TestAllAbsentReemits(t *testing.T) {
	tp := newTestPool(t)
	first := tp.poller.TimeInfo()
	for _, f := range tp.fakes {
		f.SetAbsent(true)
	}
	tp.clock.Advance(time.Minute)
	again := tp.poller.TimeInfo()
	require.Equal(t, first, again)
	require.Equal(t, int64(1), tp.stats.GetCounters()["pool.timeinfo.stale"])
	require.False(t, tp.poller.TimeAcquired())
}

func TestOutlierExcluded(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	sources := []source.TimeSource{
		source.NewFake("a", clock, 0),
		source.NewFake("b", clock, 10*time.Millisecond),
		source.NewFake("c", clock, -10*time.Millisecond),
		source.NewFake("d", clock, 5*time.Millisecond),
		source.NewFake("broken", clock, 500*time.Millisecond),
	}
	st := stats.NewStats()
	p, err := New(DefaultConfig(), sources, clock, st)
	require.NoError(t, err)
	info := p.TimeInfo()
	require.Equal(t, int64(1700000000001), info.Time)
	require.Equal(t, int64(1), st.GetCounters()["pool.samples.discarded"])
	require.Equal(t, int64(4), st.GetCounters()["pool.samples.used"])
}

func TestMonotonicity(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := source.NewMockTimeSource(ctrl)
	m.EXPECT().Name().Return("m").AnyTimes()
	gomock.InOrder(
		m.EXPECT().Latest().Return(sample("m", 5000, 0, 0), true),
		m.EXPECT().Latest().Return(sample("m", 4000, 0, 0), true),
		m.EXPECT().Latest().Return(sample("m", 6000, 0, 0), true),
	)
	st := stats.NewStats()
	p, err := New(DefaultConfig(), []source.TimeSource{m}, clockwork.NewFakeClock(), st)
	require.NoError(t, err)

	require.Equal(t, int64(5000), p.TimeInfo().Time)
	require.Equal(t, int64(5000), p.TimeInfo().Time, "no going back")
	require.Equal(t, int64(1), st.GetCounters()["pool.guard.held"])
	require.Equal(t, int64(6000), p.TimeInfo().Time)
}

func TestHeldTimeKeepsLeapFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := source.NewMockTimeSource(ctrl)
	m.EXPECT().Name().Return("m").AnyTimes()
	gomock.InOrder(
		m.EXPECT().Latest().Return(sample("m", insBoundary-100, 1, 0), true),
		m.EXPECT().Latest().Return(sample("m", insBoundary+500, 0, 0), true),
		// a late reading from inside the leap second
		m.EXPECT().Latest().Return(sample("m", insBoundary, 1, 300), true),
		m.EXPECT().Latest().Return(nil, false),
	)
	st := stats.NewStats()
	p, err := New(DefaultConfig(), []source.TimeSource{m}, clockwork.NewFakeClock(), st)
	require.NoError(t, err)

	info := p.TimeInfo()
	require.Equal(t, insBoundary-100, info.Time)
	require.Equal(t, 1, info.LeapSecond)

	after := p.TimeInfo()
	require.Equal(t, insBoundary+500, after.Time)
	require.Zero(t, after.LeapSecond)

	info = p.TimeInfo()
	require.Equal(t, after, info, "held value is re-emitted as published")
	require.Equal(t, int64(1), st.GetCounters()["pool.guard.held"])

	info = p.TimeInfo()
	require.Equal(t, after, info, "nothing available, last value re-emitted")
}

func TestMalformedLeapState(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := source.NewMockTimeSource(ctrl)
	m.EXPECT().Name().Return("m").AnyTimes()
	m.EXPECT().Latest().Return(sample("m", 5000, 3, 0), true)
	st := stats.NewStats()
	p, err := New(DefaultConfig(), []source.TimeSource{m}, clockwork.NewFakeClock(), st)
	require.NoError(t, err)

	info := p.TimeInfo()
	require.Equal(t, int64(5000), info.Time)
	require.Zero(t, info.LeapSecond)
	require.Equal(t, int64(1), st.GetCounters()["pool.leap.malformed"])
}

func TestNewValidation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, err := New(DefaultConfig(), nil, clock, stats.NewStats())
	require.Error(t, err)

	_, err = New(DefaultConfig(), []source.TimeSource{
		source.NewFake("a", clock, 0),
		source.NewFake("a", clock, 0),
	}, clock, stats.NewStats())
	require.Error(t, err)
}

func TestNTPData(t *testing.T) {
	tp := newTestPool(t)
	tp.fakes[0].SetFailure(errors.New("down"))
	s, err := tp.poller.NTPData(context.Background(), tp.clock.Now())
	require.NoError(t, err)
	require.NotEqual(t, "a", s.Source)

	for _, f := range tp.fakes {
		f.SetFailure(errors.New("down"))
	}
	_, err = tp.poller.NTPData(context.Background(), tp.clock.Now())
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	require.Equal(t, int64(1), tp.stats.GetCounters()["pool.ntpdata.failed"])
}

func TestCanPollAndClose(t *testing.T) {
	tp := newTestPool(t)
	require.True(t, tp.poller.CanPoll())
	require.NoError(t, tp.poller.Close())
	require.False(t, tp.poller.CanPoll())
	require.False(t, tp.poller.TimeAcquired())
}

func TestRefreshBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	good := source.NewFake("good", clock, 0)
	bad := source.NewFake("bad", clock, 0)
	bad.SetFailure(errors.New("timeout"))
	cfg := DefaultConfig()
	cfg.Backoff = BackoffConfig{Mode: BackoffFixed, Step: 2}
	st := stats.NewStats()
	p, err := New(cfg, []source.TimeSource{good, bad}, clock, st)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Refresh(ctx))
	sources := p.Sources()
	require.Equal(t, int64(1), sources[1].Polls)
	require.Equal(t, int64(1), sources[1].Failures)
	require.Equal(t, 2, sources[1].Backoff)
	require.Equal(t, "timeout", sources[1].Error)

	// two rounds skipped
	require.NoError(t, p.Refresh(ctx))
	require.NoError(t, p.Refresh(ctx))
	require.Equal(t, int64(1), p.Sources()[1].Polls)
	require.Equal(t, int64(2), st.GetCounters()["pool.polls.skipped"])

	bad.SetFailure(nil)
	require.NoError(t, p.Refresh(ctx))
	sources = p.Sources()
	require.Equal(t, int64(2), sources[1].Polls)
	require.Equal(t, 0, sources[1].Backoff)
	require.Empty(t, sources[1].Error)
	require.Equal(t, int64(4), sources[0].Polls)

	counters := st.GetCounters()
	require.Equal(t, int64(6), counters["pool.polls"])
	require.Equal(t, int64(1), counters["pool.polls.failed"])
	require.Equal(t, int64(2), counters["pool.sources.acquired"])
	require.Len(t, st.GetSourceStats(), 2)
}

func TestRun(t *testing.T) {
	tp := newTestPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- tp.poller.Run(ctx)
	}()

	polls := func() int64 { return tp.stats.GetCounters()["pool.polls"] }
	require.Eventually(t, func() bool { return polls() == 4 }, 5*time.Second, 10*time.Millisecond)
	tp.clock.Advance(DefaultConfig().Interval)
	require.Eventually(t, func() bool { return polls() == 8 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
