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
	"testing"

	"github.com/alicebob/miniredis"
	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"

	"github.com/pelagic-io/mantaray/core"
)

func redisStoreFixture(t *testing.T) (*RedisStore, func()) {
	r, err := miniredis.Run()
	require.NoError(t, err)

	s, err := NewRedisStore(RedisConfig{Addr: r.Addr()}, clock.New())
	require.NoError(t, err)

	return s, func() {
		s.Close()
		r.Close()
	}
}

func TestRedisStoreUpsertReturnsPrev(t *testing.T) {
	require := require.New(t)

	s, cleanup := redisStoreFixture(t)
	defer cleanup()

	h := core.InfoHashFixture()
	r1 := RecordFixture()

	prev, err := s.Upsert(h, r1)
	require.NoError(err)
	require.Nil(prev)

	r2 := *r1
	r2.Downloaded += 1000

	prev, err = s.Upsert(h, &r2)
	require.NoError(err)
	require.NotNil(prev)
	require.Equal(r1.Uploaded, prev.Uploaded)
	require.Equal(r1.Downloaded, prev.Downloaded)
}

func TestRedisStoreGetPeers(t *testing.T) {
	require := require.New(t)

	s, cleanup := redisStoreFixture(t)
	defer cleanup()

	h := core.InfoHashFixture()
	requester := RecordFixture()
	other := RecordFixture()
	stopped := StoppedRecordFixture()

	for _, r := range []*Record{requester, other, stopped} {
		_, err := s.Upsert(h, r)
		require.NoError(err)
	}

	peers, err := s.GetPeers(h, requester.PeerID, 50)
	require.NoError(err)
	require.Len(peers, 1)
	require.Equal(other.PeerID, peers[0].PeerID)
}

func TestRedisStoreCounts(t *testing.T) {
	require := require.New(t)

	s, cleanup := redisStoreFixture(t)
	defer cleanup()

	h := core.InfoHashFixture()

	for i := 0; i < 2; i++ {
		_, err := s.Upsert(h, SeederRecordFixture())
		require.NoError(err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.Upsert(h, RecordFixture())
		require.NoError(err)
	}

	counts, err := s.Counts(h)
	require.NoError(err)
	require.Equal(Counts{Complete: 2, Incomplete: 3}, counts)
}

func TestRedisStoreRestore(t *testing.T) {
	require := require.New(t)

	s, cleanup := redisStoreFixture(t)
	defer cleanup()

	h := core.InfoHashFixture()
	r1 := RecordFixture()

	_, err := s.Upsert(h, r1)
	require.NoError(err)

	require.NoError(s.Restore(h, r1.PeerID, nil))

	cur, err := s.GetPeer(h, r1.PeerID)
	require.NoError(err)
	require.Nil(cur)
}
