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
	"github.com/andres-erbsen/clock"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/localdb"
)

// Fixture returns a SQLStore backed by a temporary database.
func Fixture(clk clock.Clock) (*SQLStore, func()) {
	db, cleanup := localdb.Fixture()
	return New(db, clk), cleanup
}

// UserFixture creates and persists a fresh active user.
func UserFixture(s *SQLStore) *User {
	u := &User{Passkey: core.PasskeyFixture()}
	if err := s.CreateUser(u); err != nil {
		panic(err)
	}
	return u
}

// TorrentFixture creates and persists a fresh approved torrent.
func TorrentFixture(s *SQLStore, h core.InfoHash, size int64) *Torrent {
	t := &Torrent{InfoHash: h.Hex(), Approved: true, Size: size}
	if err := s.CreateTorrent(t); err != nil {
		panic(err)
	}
	return t
}
