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
package admission

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/utils/dedup"
)

const (
	_activityCleanupInterval = time.Hour

	// Retention bound for all per-user activity. Policy windows are clamped
	// to this, so anything older is never consulted.
	_activityRetention = 48 * time.Hour
)

// ActivityStore tracks recent announce behavior per user, feeding the
// rate, abuse, and ghost-leech gates. Only accepted announces are
// observed, so rejected requests cannot poison the signal.
type ActivityStore struct {
	clk     clock.Clock
	cleanup *dedup.IntervalTrap

	mu    sync.Mutex
	users map[int64]*userActivity
}

type peerKey struct {
	torrentID int64
	peerID    core.PeerID
}

type userActivity struct {
	lastAnnounce time.Time
	ips          map[string]time.Time
	peers        map[peerKey][]time.Time
	torrents     map[int64]*torrentActivity
}

type torrentActivity struct {
	leechAnnounces []time.Time
	lastTransfer   time.Time
}

type activityCleanupTask struct {
	store *ActivityStore
}

func (t *activityCleanupTask) Run() {
	t.store.runCleanup()
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(clk clock.Clock) *ActivityStore {
	s := &ActivityStore{
		clk:   clk,
		users: make(map[int64]*userActivity),
	}
	s.cleanup = dedup.NewIntervalTrap(_activityCleanupInterval, clk, &activityCleanupTask{s})
	return s
}

// Observe records an accepted announce. transfer marks whether the
// announce carried a positive upload or download delta, which resets the
// ghost-leech clock for the torrent.
func (s *ActivityStore) Observe(
	userID, torrentID int64, peerID core.PeerID, ip string, left int64, transfer bool) {

	s.cleanup.Trap()

	now := s.clk.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.getOrInitUser(userID)
	u.lastAnnounce = now
	u.ips[ip] = now

	k := peerKey{torrentID, peerID}
	u.peers[k] = append(u.peers[k], now)

	t, ok := u.torrents[torrentID]
	if !ok {
		t = &torrentActivity{}
		u.torrents[torrentID] = t
	}
	if left > 0 {
		t.leechAnnounces = append(t.leechAnnounces, now)
	} else {
		t.leechAnnounces = nil
	}
	if transfer {
		t.lastTransfer = now
	}
}

// LastAnnounce returns the time of the user's most recent accepted
// announce across all torrents.
func (s *ActivityStore) LastAnnounce(userID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.lastAnnounce.IsZero() {
		return time.Time{}, false
	}
	return u.lastAnnounce, true
}

// DistinctIPs returns the number of distinct addresses the user announced
// from within window, and whether ip is among them.
func (s *ActivityStore) DistinctIPs(
	userID int64, ip string, window time.Duration) (n int, seen bool) {

	cutoff := s.clk.Now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, false
	}
	for addr, last := range u.ips {
		if last.Before(cutoff) {
			continue
		}
		n++
		if addr == ip {
			seen = true
		}
	}
	return n, seen
}

// AnnounceCount returns how many announces the (user, torrent, peer)
// identity made within window.
func (s *ActivityStore) AnnounceCount(
	userID, torrentID int64, peerID core.PeerID, window time.Duration) int {

	cutoff := s.clk.Now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0
	}
	var n int
	for _, at := range u.peers[peerKey{torrentID, peerID}] {
		if !at.Before(cutoff) {
			n++
		}
	}
	return n
}

// LeechActivity returns how many consecutive leeching announces the user
// made for the torrent within window, and whether any data transfer was
// observed in that window.
func (s *ActivityStore) LeechActivity(
	userID, torrentID int64, window time.Duration) (announces int, transferred bool) {

	cutoff := s.clk.Now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, false
	}
	t, ok := u.torrents[torrentID]
	if !ok {
		return 0, false
	}
	for _, at := range t.leechAnnounces {
		if !at.Before(cutoff) {
			announces++
		}
	}
	return announces, !t.lastTransfer.Before(cutoff) && !t.lastTransfer.IsZero()
}

func (s *ActivityStore) getOrInitUser(userID int64) *userActivity {
	u, ok := s.users[userID]
	if !ok {
		u = &userActivity{
			ips:      make(map[string]time.Time),
			peers:    make(map[peerKey][]time.Time),
			torrents: make(map[int64]*torrentActivity),
		}
		s.users[userID] = u
	}
	return u
}

func (s *ActivityStore) runCleanup() {
	cutoff := s.clk.Now().Add(-_activityRetention)

	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, u := range s.users {
		for addr, last := range u.ips {
			if last.Before(cutoff) {
				delete(u.ips, addr)
			}
		}
		for k, times := range u.peers {
			kept := times[:0]
			for _, at := range times {
				if !at.Before(cutoff) {
					kept = append(kept, at)
				}
			}
			if len(kept) == 0 {
				delete(u.peers, k)
			} else {
				u.peers[k] = kept
			}
		}
		for torrentID, t := range u.torrents {
			kept := t.leechAnnounces[:0]
			for _, at := range t.leechAnnounces {
				if !at.Before(cutoff) {
					kept = append(kept, at)
				}
			}
			t.leechAnnounces = kept
			if len(kept) == 0 && t.lastTransfer.Before(cutoff) {
				delete(u.torrents, torrentID)
			}
		}
		if u.lastAnnounce.Before(cutoff) &&
			len(u.ips) == 0 && len(u.peers) == 0 && len(u.torrents) == 0 {
			delete(s.users, userID)
		}
	}
}
