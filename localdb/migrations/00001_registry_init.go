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
	goose.AddMigration(up00001, down00001)
}

func up00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS user (
			id           integer   PRIMARY KEY AUTOINCREMENT,
			passkey      text      NOT NULL UNIQUE,
			status       text      NOT NULL DEFAULT 'active',
			uploaded     integer   NOT NULL DEFAULT 0,
			downloaded   integer   NOT NULL DEFAULT 0,
			bonus_points real      NOT NULL DEFAULT 0,
			hit_and_runs integer   NOT NULL DEFAULT 0,
			created_at   timestamp DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS torrent (
			id         integer   PRIMARY KEY AUTOINCREMENT,
			info_hash  text      NOT NULL UNIQUE,
			approved   integer   NOT NULL DEFAULT 0,
			size       integer   NOT NULL,
			snatches   integer   NOT NULL DEFAULT 0,
			created_at timestamp DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func down00001(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP TABLE user;
		DROP TABLE torrent;
	`)
	return err
}
