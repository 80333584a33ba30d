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
package swarmstore

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/utils/dedup"
)

const _swarmCleanupInterval = time.Hour

// LocalStore is an in-memory Store implementation. Each swarm holds its own
// mutex, so announces for different torrents never contend, while upserts for
// the same (torrent, peer) pair serialize on the swarm lock.
type LocalStore struct {
	config  LocalConfig
	clk     clock.Clock
	cleanup *dedup.IntervalTrap

	mu     sync.RWMutex
	swarms map[core.InfoHash]*swarm
}

type swarm struct {
	mu            sync.Mutex
	peers         map[core.PeerID]*localEntry
	lastExpiresAt time.Time
	deleted       bool
}

type localEntry struct {
	record    *Record
	expiresAt time.Time
}

type swarmCleanupTask struct {
	store *LocalStore
}

func (t *swarmCleanupTask) Run() {
	t.store.runCleanup()
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(config LocalConfig, clk clock.Clock) *LocalStore {
	config.applyDefaults()
	s := &LocalStore{
		config: config,
		clk:    clk,
		swarms: make(map[core.InfoHash]*swarm),
	}
	s.cleanup = dedup.NewIntervalTrap(_swarmCleanupInterval, clk, &swarmCleanupTask{s})
	return s
}

// Upsert implements Store.
func (s *LocalStore) Upsert(h core.InfoHash, r *Record) (*Record, error) {
	s.cleanup.Trap()

	g := s.getOrInitLockedSwarm(h)
	defer g.mu.Unlock()

	var prev *Record
	if e, ok := g.peers[r.PeerID]; ok && !s.clk.Now().After(e.expiresAt) {
		prev = e.record
	}

	expiresAt := s.clk.Now().Add(s.config.TTL)
	g.peers[r.PeerID] = &localEntry{record: r, expiresAt: expiresAt}

	// Allows runCleanup to quickly determine when the last entry expires.
	g.lastExpiresAt = expiresAt

	return prev, nil
}

// Restore implements Store.
func (s *LocalStore) Restore(h core.InfoHash, peerID core.PeerID, prev *Record) error {
	g := s.getOrInitLockedSwarm(h)
	defer g.mu.Unlock()

	if prev == nil {
		delete(g.peers, peerID)
		return nil
	}
	g.peers[peerID] = &localEntry{record: prev, expiresAt: s.clk.Now().Add(s.config.TTL)}
	return nil
}

// GetPeer implements Store.
func (s *LocalStore) GetPeer(h core.InfoHash, peerID core.PeerID) (*Record, error) {
	s.mu.RLock()
	g, ok := s.swarms[h]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.peers[peerID]
	if !ok || s.clk.Now().After(e.expiresAt) {
		return nil, nil
	}
	return e.record, nil
}

// GetPeers implements Store.
func (s *LocalStore) GetPeers(h core.InfoHash, exclude core.PeerID, n int) ([]*Record, error) {
	if n <= 0 {
		// Simpler for below logic to assume positive n.
		return nil, nil
	}

	s.mu.RLock()
	g, ok := s.swarms[h]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := s.clk.Now()
	var result []*Record

	// We rely on random map iteration to pick n random peers.
	for id, e := range g.peers {
		if now.After(e.expiresAt) {
			// Clean up any expired peers we run into.
			delete(g.peers, id)
			continue
		}
		if id == exclude || !e.record.Active() {
			continue
		}
		result = append(result, e.record)
		if len(result) == n {
			break
		}
	}
	return result, nil
}

// Counts implements Store.
func (s *LocalStore) Counts(h core.InfoHash) (Counts, error) {
	s.mu.RLock()
	g, ok := s.swarms[h]
	s.mu.RUnlock()
	if !ok {
		return Counts{}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := s.clk.Now()
	var c Counts
	for id, e := range g.peers {
		if now.After(e.expiresAt) {
			delete(g.peers, id)
			continue
		}
		if !e.record.Active() {
			continue
		}
		if e.record.Seeding() {
			c.Complete++
		} else {
			c.Incomplete++
		}
	}
	return c, nil
}

// Close implements Store.
func (s *LocalStore) Close() {}

func (s *LocalStore) getOrInitLockedSwarm(h core.InfoHash) *swarm {
	// We must take care to handle a race condition against runCleanup. A
	// goroutine may load a swarm reference which runCleanup deletes from the
	// map before the goroutine acquires the swarm lock. In that case the
	// reference is dead and must be reloaded. Since the cleanup interval is
	// quite large, it is extremely unlikely this for-loop executes more than
	// twice.
	for {
		s.mu.Lock()
		g, ok := s.swarms[h]
		if !ok {
			g = &swarm{
				peers:         make(map[core.PeerID]*localEntry),
				lastExpiresAt: s.clk.Now().Add(s.config.TTL),
			}
			s.swarms[h] = g
		}
		s.mu.Unlock()

		g.mu.Lock()
		if g.deleted {
			g.mu.Unlock()
			continue
		}
		return g
	}
}

func (s *LocalStore) runCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, g := range s.swarms {
		g.mu.Lock()
		if s.clk.Now().After(g.lastExpiresAt) {
			delete(s.swarms, h)
			g.deleted = true
		}
		g.mu.Unlock()
	}
}
