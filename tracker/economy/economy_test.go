// Copyright (c) 2020-2026 Pelagic Networks, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package economy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
)

func testPolicy() policy.Policy {
	return policy.Static(policy.Policy{
		BonusPointsPerAnnounce: 2,
		SeedTimePerAnnounce:    30 * time.Minute,
		MinSeedTime:            48 * time.Hour,
	}).Snapshot()
}

func TestEvaluateFirstAnnounceEstablishesBaseline(t *testing.T) {
	require := require.New(t)

	cur := swarmstore.RecordFixture()
	cur.Uploaded = 123456
	cur.Downloaded = 654321

	out := Evaluate(testPolicy(), nil, cur, SeedState{})
	require.Equal(Deltas{}, out.Deltas)
	require.Zero(out.BonusPoints)
}

func TestEvaluateDeltas(t *testing.T) {
	require := require.New(t)

	prev := swarmstore.RecordFixture()
	prev.Uploaded = 1000
	prev.Downloaded = 2000

	cur := *prev
	cur.Uploaded = 1500
	cur.Downloaded = 2200

	out := Evaluate(testPolicy(), prev, &cur, SeedState{})
	require.Equal(Deltas{Uploaded: 500, Downloaded: 200}, out.Deltas)
}

func TestEvaluateClampsNegativeDeltas(t *testing.T) {
	require := require.New(t)

	prev := swarmstore.RecordFixture()
	prev.Uploaded = 1000
	prev.Downloaded = 2000

	// Client restarted and reset its counters.
	cur := *prev
	cur.Uploaded = 10
	cur.Downloaded = 2500

	out := Evaluate(testPolicy(), prev, &cur, SeedState{})
	require.Equal(Deltas{Uploaded: 0, Downloaded: 500}, out.Deltas)
}

func TestEvaluateSeedingAwardsBonusOncePerAnnounce(t *testing.T) {
	require := require.New(t)

	prev := swarmstore.SeederRecordFixture()
	cur := *prev

	out := Evaluate(testPolicy(), prev, &cur, SeedState{Snatched: true})
	require.Equal(float64(2), out.BonusPoints)
	require.Equal(30*time.Minute, out.SeedTime)
}

func TestEvaluateLeecherEarnsNoBonus(t *testing.T) {
	require := require.New(t)

	cur := swarmstore.RecordFixture()
	out := Evaluate(testPolicy(), nil, cur, SeedState{})
	require.Zero(out.BonusPoints)
	require.Zero(out.SeedTime)
}

func TestEvaluateSnatch(t *testing.T) {
	require := require.New(t)

	prev := swarmstore.RecordFixture()
	prev.Left = 500

	cur := *prev
	cur.Left = 0
	cur.Event = core.EventCompleted

	out := Evaluate(testPolicy(), prev, &cur, SeedState{})
	require.True(out.Snatched)

	// A snatch is only recorded once per (user, torrent).
	out = Evaluate(testPolicy(), prev, &cur, SeedState{Snatched: true})
	require.False(out.Snatched)
}

func TestEvaluateSnatchWithoutCompletedEvent(t *testing.T) {
	require := require.New(t)

	prev := swarmstore.RecordFixture()
	prev.Left = 500

	cur := *prev
	cur.Left = 0

	out := Evaluate(testPolicy(), prev, &cur, SeedState{})
	require.True(out.Snatched)
}

func TestEvaluateHitAndRunFlag(t *testing.T) {
	require := require.New(t)

	prev := swarmstore.SeederRecordFixture()
	cur := *prev
	cur.Event = core.EventStopped

	state := SeedState{Snatched: true, SeedTime: time.Hour}
	out := Evaluate(testPolicy(), prev, &cur, state)
	require.True(out.FlagHitAndRun)

	// Enough accumulated seed time avoids the flag.
	state.SeedTime = 72 * time.Hour
	out = Evaluate(testPolicy(), prev, &cur, state)
	require.False(out.FlagHitAndRun)

	// Never snatched means stopping is not a hit-and-run.
	out = Evaluate(testPolicy(), prev, &cur, SeedState{})
	require.False(out.FlagHitAndRun)

	// Already flagged states are not flagged twice.
	out = Evaluate(testPolicy(), prev, &cur, SeedState{Snatched: true, Flagged: true})
	require.False(out.FlagHitAndRun)
}

func TestRatio(t *testing.T) {
	require := require.New(t)

	r, ok := Ratio(500, 1000)
	require.True(ok)
	require.Equal(0.5, r)

	_, ok = Ratio(500, 0)
	require.False(ok)
}
