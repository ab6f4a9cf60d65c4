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

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/timepool/poolclock/source"
)

func TestLatestSamplesSkipsAbsent(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := source.NewMockTimeSource(ctrl)
	b := source.NewMockTimeSource(ctrl)
	c := source.NewMockTimeSource(ctrl)
	a.EXPECT().Latest().Return(sample("a", 1000, 0, 0), true)
	b.EXPECT().Latest().Return(nil, false)
	c.EXPECT().Latest().Return(sample("c", 1002, 0, 0), true)

	got := latestSamples([]source.TimeSource{a, b, c})
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Source)
	require.Equal(t, "c", got[1].Source)
}

func TestRaceFirstSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	slow := source.NewMockTimeSource(ctrl)
	fast := source.NewMockTimeSource(ctrl)
	failing := source.NewMockTimeSource(ctrl)
	requestTime := time.Unix(1700000000, 0)

	cancelled := make(chan struct{})
	slow.EXPECT().Sample(gomock.Any(), requestTime).DoAndReturn(func(ctx context.Context, _ time.Time) (*source.Sample, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	})
	fast.EXPECT().Sample(gomock.Any(), requestTime).Return(sample("fast", 1700000000005, 0, 0), nil)
	failing.EXPECT().Sample(gomock.Any(), requestTime).Return(nil, errors.New("unreachable")).AnyTimes()

	got, err := race(context.Background(), []source.TimeSource{slow, failing, fast}, requestTime)
	require.NoError(t, err)
	require.Equal(t, "fast", got.Source)

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("slow query was not cancelled")
	}
}

func TestRaceAllFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := source.NewMockTimeSource(ctrl)
	b := source.NewMockTimeSource(ctrl)
	errA := errors.New("a is down")
	errB := errors.New("b is down")
	a.EXPECT().Sample(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, time.Time) (*source.Sample, error) {
		// finishes last, still reported
		time.Sleep(20 * time.Millisecond)
		return nil, errA
	})
	b.EXPECT().Sample(gomock.Any(), gomock.Any()).Return(nil, errB)

	_, err := race(context.Background(), []source.TimeSource{a, b}, time.Now())
	require.ErrorIs(t, err, ErrAllSourcesFailed)
	require.ErrorIs(t, err, errA)
	require.NotErrorIs(t, err, errB)
}

func TestRaceNoSources(t *testing.T) {
	_, err := race(context.Background(), nil, time.Now())
	require.ErrorIs(t, err, ErrAllSourcesFailed)
}

func TestRaceNilSample(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := source.NewMockTimeSource(ctrl)
	a.EXPECT().Sample(gomock.Any(), gomock.Any()).Return(nil, nil)
	_, err := race(context.Background(), []source.TimeSource{a}, time.Now())
	require.ErrorIs(t, err, source.ErrNotAcquired)
}
