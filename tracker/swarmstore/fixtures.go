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
	"time"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/utils/randutil"
)

// RecordFixture returns a random leecher record.
func RecordFixture() *Record {
	return &Record{
		PeerID:       core.PeerIDFixture(),
		IP:           randutil.IP(),
		Port:         randutil.Port(),
		Left:         1,
		LastAnnounce: time.Now(),
	}
}

// SeederRecordFixture returns a random seeder record.
func SeederRecordFixture() *Record {
	r := RecordFixture()
	r.Left = 0
	return r
}

// StoppedRecordFixture returns a random record whose latest event is stopped.
func StoppedRecordFixture() *Record {
	r := RecordFixture()
	r.Event = core.EventStopped
	return r
}
