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
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/pelagic-io/mantaray/core"
)

// Record is the live announce state of one (torrent, peer id) pair. At most
// one Record exists per pair; re-announcing updates it in place.
type Record struct {
	PeerID       core.PeerID        `json:"peer_id"`
	IP           string             `json:"ip"`
	Port         int                `json:"port"`
	Uploaded     int64              `json:"uploaded"`
	Downloaded   int64              `json:"downloaded"`
	Left         int64              `json:"left"`
	Event        core.AnnounceEvent `json:"event"`
	LastAnnounce time.Time          `json:"last_announce"`
}

// Seeding returns whether the record classifies the peer as a seeder.
func (r *Record) Seeding() bool {
	return r.Left == 0
}

// Active returns whether the peer is still part of the swarm.
func (r *Record) Active() bool {
	return r.Event != core.EventStopped
}

// PeerInfo converts r into handout metadata.
func (r *Record) PeerInfo() *core.PeerInfo {
	return core.NewPeerInfo(r.PeerID, r.IP, r.Port, r.Seeding())
}

// Counts are the aggregate swarm counts for one torrent, computed on demand
// by scanning live records rather than kept as incremental counters.
type Counts struct {
	Complete   int
	Incomplete int
}

// Store provides storage for announce records.
//
// Upserts for the same (hash, peer id) pair are serialized: the previous
// record returned by Upsert is always the value the new record replaced, so
// stat deltas computed against it are never double-applied.
type Store interface {

	// Upsert writes r for h and returns the record it replaced, or nil if
	// this is the first announce for (h, r.PeerID).
	Upsert(h core.InfoHash, r *Record) (prev *Record, err error)

	// Restore reinstates prev as the record for (h, peerID), deleting the
	// record if prev is nil. Used to roll back an Upsert whose downstream
	// stat application failed.
	Restore(h core.InfoHash, peerID core.PeerID, prev *Record) error

	// GetPeer returns the record for (h, peerID), or nil if none exists.
	GetPeer(h core.InfoHash, peerID core.PeerID) (*Record, error)

	// GetPeers returns at most n active records for h, excluding the peer
	// identified by exclude and any peer whose latest event is stopped.
	// Selection order is unspecified.
	GetPeers(h core.InfoHash, exclude core.PeerID, n int) ([]*Record, error)

	// Counts scans the live records for h and returns seeder / leecher
	// counts. Stopped peers are not counted.
	Counts(h core.InfoHash) (Counts, error)

	// Close frees any resources held by the store.
	Close()
}

// NewStore creates the configured Store backend.
func NewStore(config Config, clk clock.Clock) (Store, error) {
	switch config.Backend {
	case "", "local":
		return NewLocalStore(config.Local, clk), nil
	case "redis":
		return NewRedisStore(config.Redis, clk)
	default:
		return nil, fmt.Errorf("unknown swarmstore backend %q", config.Backend)
	}
}
