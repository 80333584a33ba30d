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
package registry

import (
	"time"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/economy"
)

// UserStatus is the account status of a user.
type UserStatus string

// The full set of user statuses. Only active users may announce.
const (
	UserActive   UserStatus = "active"
	UserBanned   UserStatus = "banned"
	UserDisabled UserStatus = "disabled"
)

// User is a tracker account. Uploaded and downloaded are cumulative byte
// counts which never decrease outside administrative override.
type User struct {
	ID          int64        `db:"id"`
	Passkey     core.Passkey `db:"passkey"`
	Status      UserStatus   `db:"status"`
	Uploaded    int64        `db:"uploaded"`
	Downloaded  int64        `db:"downloaded"`
	BonusPoints float64      `db:"bonus_points"`
	HitAndRuns  int          `db:"hit_and_runs"`
	CreatedAt   time.Time    `db:"created_at"`
}

// Active returns whether u may announce.
func (u *User) Active() bool {
	return u.Status == UserActive
}

// Ratio returns u's share ratio. ok is false when u has downloaded nothing,
// in which case the ratio is unbounded.
func (u *User) Ratio() (r float64, ok bool) {
	return economy.Ratio(u.Uploaded, u.Downloaded)
}

// Torrent is an announce-eligible content entry. InfoHash is stored
// hex-encoded. Snatches counts completed downloads over the torrent's
// lifetime and is monotonic.
type Torrent struct {
	ID        int64     `db:"id"`
	InfoHash  string    `db:"info_hash"`
	Approved  bool      `db:"approved"`
	Size      int64     `db:"size"`
	Snatches  int64     `db:"snatches"`
	CreatedAt time.Time `db:"created_at"`
}

// PeerBan is a policy rule blocking announces by any non-empty combination
// of user id, passkey, peer id, or ip. A nil ExpiresAt means the ban never
// expires.
type PeerBan struct {
	ID        int64      `db:"id"`
	UserID    *int64     `db:"user_id"`
	Passkey   *string    `db:"passkey"`
	PeerID    *string    `db:"peer_id"`
	IP        *string    `db:"ip"`
	Reason    string     `db:"reason"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// ActiveAt returns whether the ban blocks requests at time t.
func (b *PeerBan) ActiveAt(t time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(t)
}

type hitAndRunRow struct {
	UserID     int64      `db:"user_id"`
	TorrentID  int64      `db:"torrent_id"`
	SnatchedAt *time.Time `db:"snatched_at"`
	SeedTime   int64      `db:"seed_time"` // seconds
	Flagged    bool       `db:"flagged"`
}

func (r *hitAndRunRow) seedState() economy.SeedState {
	s := economy.SeedState{
		SeedTime: time.Duration(r.SeedTime) * time.Second,
		Flagged:  r.Flagged,
	}
	if r.SnatchedAt != nil {
		s.Snatched = true
		s.SnatchedAt = *r.SnatchedAt
	}
	return s
}
