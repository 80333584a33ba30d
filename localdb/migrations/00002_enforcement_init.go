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
package migrations

import (
	"database/sql"

	"github.com/pressly/goose"
)

func init() {
	goose.AddMigration(up00002, down00002)
}

func up00002(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS peer_ban (
			id         integer   PRIMARY KEY AUTOINCREMENT,
			user_id    integer,
			passkey    text,
			peer_id    text,
			ip         text,
			reason     text      NOT NULL,
			expires_at timestamp,
			created_at timestamp DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS hit_and_run (
			user_id     integer   NOT NULL,
			torrent_id  integer   NOT NULL,
			snatched_at timestamp,
			seed_time   integer   NOT NULL DEFAULT 0,
			flagged     integer   NOT NULL DEFAULT 0,
			PRIMARY KEY(user_id, torrent_id)
		);
	`)
	return err
}

func down00002(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP TABLE peer_ban;
		DROP TABLE hit_and_run;
	`)
	return err
}
