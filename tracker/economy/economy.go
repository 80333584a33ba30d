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

// Package economy converts per-announce progress into user-level accounting:
// cumulative upload / download credit, bonus point accrual, and hit-and-run
// bookkeeping. Evaluation is pure; persisting the outcome is the registry's
// job, so the whole announce application can run in one transaction.
package economy

import (
	"time"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
)

// Deltas are the byte counts credited to the user for one announce. They are
// the clamped difference between the new and previous announce record: a
// client counter that went backwards is treated as a client restart and
// credits nothing.
type Deltas struct {
	Uploaded   int64
	Downloaded int64
}

// SeedState is the persisted per-(user, torrent) hit-and-run state read
// before evaluation.
type SeedState struct {
	Snatched   bool
	SnatchedAt time.Time
	SeedTime   time.Duration
	Flagged    bool
}

// Outcome is everything one accepted announce changes in the economy.
type Outcome struct {
	Deltas Deltas

	// BonusPoints credited for this announce. Non-zero only while seeding.
	BonusPoints float64

	// SeedTime credited toward the minimum seed requirement.
	SeedTime time.Duration

	// Snatched marks the first completed download of this torrent by this
	// user. Increments the torrent's lifetime snatch counter, which is
	// monotonic and never decremented by a later stopped or started event.
	Snatched bool

	// FlagHitAndRun marks the transition into hit-and-run state: the user
	// snatched the torrent and stopped seeding before accumulating the
	// minimum seed time. Once flagged, the state persists until cleared
	// administratively.
	FlagHitAndRun bool
}

// Evaluate computes the economy outcome of an accepted announce. prev is nil
// on the first announce of a (torrent, peer) pair, in which case deltas are
// zero: the first announce establishes a baseline and does not award credit
// for counters the client accumulated elsewhere.
func Evaluate(p policy.Policy, prev, cur *swarmstore.Record, state SeedState) Outcome {
	var out Outcome

	if prev != nil {
		out.Deltas.Uploaded = clamp(cur.Uploaded - prev.Uploaded)
		out.Deltas.Downloaded = clamp(cur.Downloaded - prev.Downloaded)
	}

	seeding := cur.Seeding() && cur.Active()
	if seeding {
		// Credit is flat per announce rather than derived from elapsed time
		// between announces. Announce cadence bounds the accrual rate.
		out.BonusPoints = p.BonusPointsPerAnnounce
		out.SeedTime = p.SeedTimePerAnnounce
	}

	completed := cur.Event == core.EventCompleted ||
		(prev != nil && prev.Left > 0 && cur.Left == 0)
	if completed && !state.Snatched {
		out.Snatched = true
	}

	if cur.Event == core.EventStopped &&
		(state.Snatched || out.Snatched) &&
		!state.Flagged &&
		state.SeedTime+out.SeedTime < p.MinSeedTime {
		out.FlagHitAndRun = true
	}

	return out
}

// Ratio returns uploaded/downloaded. ok is false when downloaded is zero, in
// which case the ratio is unbounded rather than a division error.
func Ratio(uploaded, downloaded int64) (r float64, ok bool) {
	if downloaded == 0 {
		return 0, false
	}
	return float64(uploaded) / float64(downloaded), true
}

func clamp(delta int64) int64 {
	if delta < 0 {
		return 0
	}
	return delta
}
