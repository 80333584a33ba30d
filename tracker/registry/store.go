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

// Package registry provides lookups and updates for users, torrents, peer
// bans, and per-(user, torrent) hit-and-run state, backed by the locally
// embedded SQLite database.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/jmoiron/sqlx"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/economy"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store provides the read/write surface the tracker engine needs. All other
// mutation of users and torrents (account management, torrent approval) is
// owned by external tooling which shares the database.
type Store interface {

	// GetUserByPasskey returns the user owning k, or ErrNotFound.
	GetUserByPasskey(k core.Passkey) (*User, error)

	// GetTorrentByInfoHash returns the torrent identified by h, or
	// ErrNotFound.
	GetTorrentByInfoHash(h core.InfoHash) (*Torrent, error)

	// ActiveBans returns all unexpired bans matching any of the given
	// identifiers. Multiple bans may match one request; any match blocks.
	ActiveBans(userID int64, k core.Passkey, peerID core.PeerID, ip string) ([]*PeerBan, error)

	// GetSeedState returns the hit-and-run state for (userID, torrentID).
	// A missing row yields the zero state.
	GetSeedState(userID, torrentID int64) (economy.SeedState, error)

	// ApplyAnnounce persists an economy outcome in a single transaction and
	// returns the updated user.
	ApplyAnnounce(userID, torrentID int64, out economy.Outcome) (*User, error)
}

// SQLStore is a Store backed by SQLite.
type SQLStore struct {
	db  *sqlx.DB
	clk clock.Clock
}

// New creates a new SQLStore.
func New(db *sqlx.DB, clk clock.Clock) *SQLStore {
	return &SQLStore{db: db, clk: clk}
}

// GetUserByPasskey implements Store.
func (s *SQLStore) GetUserByPasskey(k core.Passkey) (*User, error) {
	u := new(User)
	err := s.db.Get(u, `SELECT * FROM user WHERE passkey = ?`, k.String())
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("select user: %s", err)
	}
	return u, nil
}

// GetTorrentByInfoHash implements Store.
func (s *SQLStore) GetTorrentByInfoHash(h core.InfoHash) (*Torrent, error) {
	t := new(Torrent)
	err := s.db.Get(t, `SELECT * FROM torrent WHERE info_hash = ?`, h.Hex())
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("select torrent: %s", err)
	}
	return t, nil
}

// ActiveBans implements Store.
func (s *SQLStore) ActiveBans(
	userID int64, k core.Passkey, peerID core.PeerID, ip string) ([]*PeerBan, error) {

	var bans []*PeerBan
	err := s.db.Select(&bans, `
		SELECT * FROM peer_ban
		WHERE (expires_at IS NULL OR expires_at > ?)
		AND (user_id = ? OR passkey = ? OR peer_id = ? OR ip = ?)`,
		s.clk.Now(), userID, k.String(), peerID.String(), ip)
	if err != nil {
		return nil, fmt.Errorf("select bans: %s", err)
	}
	return bans, nil
}

// GetSeedState implements Store.
func (s *SQLStore) GetSeedState(userID, torrentID int64) (economy.SeedState, error) {
	row := new(hitAndRunRow)
	err := s.db.Get(row, `
		SELECT * FROM hit_and_run WHERE user_id = ? AND torrent_id = ?`,
		userID, torrentID)
	if err == sql.ErrNoRows {
		return economy.SeedState{}, nil
	} else if err != nil {
		return economy.SeedState{}, fmt.Errorf("select hit_and_run: %s", err)
	}
	return row.seedState(), nil
}

// ApplyAnnounce implements Store.
func (s *SQLStore) ApplyAnnounce(
	userID, torrentID int64, out economy.Outcome) (*User, error) {

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %s", err)
	}
	u, err := s.applyAnnounce(tx, userID, torrentID, out)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %s", err)
	}
	return u, nil
}

func (s *SQLStore) applyAnnounce(
	tx *sqlx.Tx, userID, torrentID int64, out economy.Outcome) (*User, error) {

	if _, err := tx.Exec(`
		UPDATE user SET
			uploaded = uploaded + ?,
			downloaded = downloaded + ?,
			bonus_points = bonus_points + ?
		WHERE id = ?`,
		out.Deltas.Uploaded, out.Deltas.Downloaded, out.BonusPoints, userID); err != nil {
		return nil, fmt.Errorf("update user: %s", err)
	}

	// The snatch and flag counters guard on the current hit_and_run row
	// rather than trusting the outcome, which was evaluated against a seed
	// state read outside this transaction. A duplicate announce racing past
	// that read still increments each counter at most once.
	if out.Snatched {
		if _, err := tx.Exec(`
			UPDATE torrent SET snatches = snatches + 1
			WHERE id = ? AND NOT EXISTS (
				SELECT 1 FROM hit_and_run
				WHERE user_id = ? AND torrent_id = ? AND snatched_at IS NOT NULL)`,
			torrentID, userID, torrentID); err != nil {
			return nil, fmt.Errorf("update snatches: %s", err)
		}
	}

	if out.FlagHitAndRun {
		if _, err := tx.Exec(`
			UPDATE user SET hit_and_runs = hit_and_runs + 1
			WHERE id = ? AND NOT EXISTS (
				SELECT 1 FROM hit_and_run
				WHERE user_id = ? AND torrent_id = ? AND flagged)`,
			userID, userID, torrentID); err != nil {
			return nil, fmt.Errorf("update hit_and_runs: %s", err)
		}
	}

	var snatchedAt *time.Time
	if out.Snatched {
		now := s.clk.Now()
		snatchedAt = &now
	}
	if _, err := tx.Exec(`
		INSERT INTO hit_and_run (user_id, torrent_id, snatched_at, seed_time, flagged)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, torrent_id) DO UPDATE SET
			snatched_at = COALESCE(hit_and_run.snatched_at, excluded.snatched_at),
			seed_time = hit_and_run.seed_time + excluded.seed_time,
			flagged = MAX(hit_and_run.flagged, excluded.flagged)`,
		userID, torrentID, snatchedAt, int64(out.SeedTime.Seconds()), out.FlagHitAndRun); err != nil {
		return nil, fmt.Errorf("upsert hit_and_run: %s", err)
	}

	u := new(User)
	if err := tx.Get(u, `SELECT * FROM user WHERE id = ?`, userID); err != nil {
		return nil, fmt.Errorf("select user: %s", err)
	}
	return u, nil
}

// CreateUser inserts u and populates its id. Used by provisioning tooling
// and test fixtures.
func (s *SQLStore) CreateUser(u *User) error {
	if u.Status == "" {
		u.Status = UserActive
	}
	res, err := s.db.Exec(`
		INSERT INTO user (passkey, status, uploaded, downloaded, bonus_points, hit_and_runs)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Passkey.String(), u.Status, u.Uploaded, u.Downloaded, u.BonusPoints, u.HitAndRuns)
	if err != nil {
		return fmt.Errorf("insert user: %s", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

// CreateTorrent inserts t and populates its id.
func (s *SQLStore) CreateTorrent(t *Torrent) error {
	res, err := s.db.Exec(`
		INSERT INTO torrent (info_hash, approved, size, snatches)
		VALUES (?, ?, ?, ?)`,
		t.InfoHash, t.Approved, t.Size, t.Snatches)
	if err != nil {
		return fmt.Errorf("insert torrent: %s", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

// CreateBan inserts b and populates its id.
func (s *SQLStore) CreateBan(b *PeerBan) error {
	res, err := s.db.Exec(`
		INSERT INTO peer_ban (user_id, passkey, peer_id, ip, reason, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Passkey, b.PeerID, b.IP, b.Reason, b.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert ban: %s", err)
	}
	b.ID, err = res.LastInsertId()
	return err
}
