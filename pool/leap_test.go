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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timepool/poolclock/source"
)

var (
	insBoundary = ms("2016-12-31T23:59:59.999Z")
	delBoundary = ms("2016-12-31T23:59:58.999Z")
	processNow  = time.Unix(5000, 0)
)

func ms(s string) int64 {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}

func sample(name string, t int64, leap int, excess int64) *source.Sample {
	return source.NewSample(name, t, leap, excess)
}

func TestReconcileNoLeap(t *testing.T) {
	s := &State{}
	times, view, err := s.reconcile([]*source.Sample{
		sample("a", 1000, 0, 0),
		sample("b", 1010, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.Equal(t, []int64{1000, 1010}, times)
	require.Nil(t, view.event)
	require.Nil(t, s.Leap)
	tm, leap, excess := view.publish(1005)
	require.Equal(t, int64(1005), tm)
	require.Zero(t, leap)
	require.Zero(t, excess)
}

func TestReconcileInsertion(t *testing.T) {
	s := &State{}
	times, view, err := s.reconcile([]*source.Sample{
		// smearing: no flag, before the boundary
		sample("smear", insBoundary-400, 0, 0),
		// stepping, inside the leap second
		sample("a", insBoundary, 1, 300),
		// stepping, already past it
		sample("b", insBoundary+310, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.True(t, view.active)
	require.Equal(t, []int64{insBoundary + 300, insBoundary + 1310}, times)
	require.Equal(t, map[string]bool{"smear": true, "a": false}, s.Leap.Smearing)
	require.Equal(t, processNow, s.LeapVicinityMarker)
	require.Equal(t, []string{"smear"}, s.Leap.SmearingSources())

	tm, leap, excess := view.publish(insBoundary + 305)
	require.Equal(t, insBoundary, tm)
	require.Equal(t, 1, leap)
	require.Equal(t, int64(305), excess)
	require.Equal(t, "2016-12-31T23:59:60.304Z", source.FormatMillis(tm, excess))

	tm, leap, excess = view.publish(insBoundary + 1500)
	require.Equal(t, insBoundary+500, tm)
	require.Zero(t, leap)
	require.Zero(t, excess)

	tm, leap, _ = view.publish(insBoundary - 10)
	require.Equal(t, insBoundary-10, tm)
	require.Equal(t, 1, leap)
}

func TestReconcileDeletion(t *testing.T) {
	s := &State{}
	times, view, err := s.reconcile([]*source.Sample{
		sample("a", delBoundary-100, -1, 0),
		sample("b", delBoundary+200+1000, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.True(t, view.active)
	require.Equal(t, []int64{delBoundary - 100, delBoundary + 200}, times)

	tm, leap, _ := view.publish(delBoundary + 50)
	require.Equal(t, delBoundary+1050, tm)
	require.Zero(t, leap)
	require.Equal(t, "2017-01-01T00:00:00.049Z", source.FormatMillis(tm, 0))

	tm, leap, _ = view.publish(delBoundary - 50)
	require.Equal(t, delBoundary-50, tm)
	require.Equal(t, -1, leap)
}

func TestReconcileClassificationFreezes(t *testing.T) {
	s := &State{}
	_, _, err := s.reconcile([]*source.Sample{
		sample("a", insBoundary-1000, 1, 0),
		sample("b", insBoundary-1000, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.True(t, s.Leap.Smearing["b"])

	// past the boundary b raising the flag changes nothing
	_, _, err = s.reconcile([]*source.Sample{
		sample("a", insBoundary+1500, 0, 0),
		sample("b", insBoundary+1500, 1, 0),
	}, processNow.Add(time.Second))
	require.NoError(t, err)
	require.True(t, s.Leap.Smearing["b"])
	require.False(t, s.Leap.Smearing["a"])
}

func TestReconcileNewBoundaryResets(t *testing.T) {
	s := &State{}
	_, _, err := s.reconcile([]*source.Sample{sample("a", insBoundary-1000, 1, 0), sample("b", insBoundary-1000, 0, 0)}, processNow)
	require.NoError(t, err)
	require.Len(t, s.Leap.Smearing, 2)

	next := ms("2017-06-30T23:59:59.999Z")
	_, _, err = s.reconcile([]*source.Sample{sample("a", next-5000, 1, 0)}, processNow)
	require.NoError(t, err)
	require.Equal(t, next, s.Leap.Boundary)
	require.Equal(t, map[string]bool{"a": false}, s.Leap.Smearing)
}

func TestReconcileFarFromBoundary(t *testing.T) {
	s := &State{}
	// announced two weeks ahead
	times, view, err := s.reconcile([]*source.Sample{
		sample("a", insBoundary-14*source.DayMillis, 1, 0),
		sample("b", insBoundary-14*source.DayMillis+4, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.False(t, view.active)
	require.Len(t, times, 2, "nobody is excluded yet")
	require.True(t, s.LeapVicinityMarker.IsZero())
	_, leap, _ := view.publish(123)
	require.Equal(t, 1, leap, "pending leap second is still reported")
}

func TestReconcileWindowExpires(t *testing.T) {
	s := &State{}
	_, view, err := s.reconcile([]*source.Sample{sample("a", insBoundary-100, 1, 0)}, processNow)
	require.NoError(t, err)
	require.True(t, view.active)

	// a day later the flag is gone and the samples are far from the boundary
	later := processNow.Add(25 * time.Hour)
	times, view, err := s.reconcile([]*source.Sample{sample("a", insBoundary+25*3600*1000, 0, 0)}, later)
	require.NoError(t, err)
	require.False(t, view.active)
	require.Nil(t, view.event)
	require.Nil(t, s.Leap)
	require.Equal(t, []int64{insBoundary + 25*3600*1000}, times)
}

func TestReconcileAllSmearing(t *testing.T) {
	s := &State{Leap: newLeapEvent(insBoundary, 1), LeapVicinityMarker: processNow}
	s.Leap.Smearing["a"] = true
	s.Leap.Smearing["b"] = true
	times, view, err := s.reconcile([]*source.Sample{
		sample("a", insBoundary+10, 0, 0),
		sample("b", insBoundary+20, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.False(t, view.active)
	require.Nil(t, view.event)
	require.Equal(t, []int64{insBoundary + 10, insBoundary + 20}, times)
}

func TestReconcileMalformed(t *testing.T) {
	s := &State{}
	times, view, err := s.reconcile([]*source.Sample{
		sample("a", insBoundary, 2, 0),
		sample("b", insBoundary+5, 0, 0),
	}, processNow)
	require.Error(t, err)
	require.Nil(t, view.event)
	require.Nil(t, s.Leap)
	require.Equal(t, []int64{insBoundary, insBoundary + 5}, times)

	_, _, err = s.reconcile([]*source.Sample{sample("a", -5, 1, 0)}, processNow)
	require.Error(t, err)
}

func TestReconcileFlagMissingBeforeBoundary(t *testing.T) {
	s := &State{}
	early := insBoundary - 14*source.DayMillis
	_, _, err := s.reconcile([]*source.Sample{
		sample("a", early, 1, 0),
		sample("b", early+3, 0, 0),
	}, processNow)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"a": false, "b": true}, s.Leap.Smearing)

	// a is missing for one call: the event and the classification stay
	times, view, err := s.reconcile([]*source.Sample{sample("b", early+1003, 0, 0)}, processNow.Add(time.Second))
	require.NoError(t, err)
	require.Nil(t, view.event)
	require.Equal(t, []int64{early + 1003}, times)
	require.NotNil(t, s.Leap)
	require.Equal(t, insBoundary, s.Leap.Boundary)
	require.Equal(t, map[string]bool{"a": false, "b": true}, s.Leap.Smearing)
}

func TestReconcileBadFlagNextToValidOne(t *testing.T) {
	s := &State{}
	times, view, err := s.reconcile([]*source.Sample{
		sample("a", insBoundary-100, 7, 0),
		sample("b", insBoundary-90, 1, 0),
		sample("c", insBoundary-80, 0, 0),
	}, processNow)
	require.ErrorIs(t, err, errMalformedLeap)
	require.Contains(t, err.Error(), "a (+7)")
	require.True(t, view.active, "the valid flag still drives reconciliation")
	require.Equal(t, 1, s.Leap.Sign)
	require.Equal(t, insBoundary, s.Leap.Boundary)
	require.True(t, s.Leap.Smearing["c"])
	require.Equal(t, []int64{insBoundary - 100, insBoundary - 90}, times)
	_, leap, _ := view.publish(insBoundary - 95)
	require.Equal(t, 1, leap)
}
