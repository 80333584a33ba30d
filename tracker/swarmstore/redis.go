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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andres-erbsen/clock"
	"github.com/gomodule/redigo/redis"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/utils/log"
	"github.com/pelagic-io/mantaray/utils/syncutil"
)

func swarmKey(h core.InfoHash) string {
	return fmt.Sprintf("swarm:%s", h.String())
}

func recordLockKey(h core.InfoHash, peerID core.PeerID) []byte {
	b := make([]byte, 0, 40)
	b = append(b, h.Bytes()...)
	return append(b, peerID.Bytes()...)
}

// RedisStore is a Store backed by Redis. Records for one torrent live in a
// single hash keyed by peer id. Per-record upserts serialize on an in-process
// sharded lock, which is sufficient for a single tracker instance; multiple
// instances must shard swarms across processes.
type RedisStore struct {
	config RedisConfig
	pool   *redis.Pool
	clk    clock.Clock
	locks  *syncutil.KeyedLocks
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(config RedisConfig, clk clock.Clock) (*RedisStore, error) {
	config.applyDefaults()

	if config.Addr == "" {
		return nil, errors.New("invalid config: missing addr")
	}

	s := &RedisStore{
		config: config,
		pool: &redis.Pool{
			Dial: func() (redis.Conn, error) {
				return redis.Dial(
					"tcp",
					config.Addr,
					redis.DialConnectTimeout(config.DialTimeout),
					redis.DialReadTimeout(config.ReadTimeout),
					redis.DialWriteTimeout(config.WriteTimeout))
			},
			MaxIdle:     config.MaxIdleConns,
			MaxActive:   config.MaxActiveConns,
			IdleTimeout: config.IdleConnTimeout,
			Wait:        true,
		},
		clk:   clk,
		locks: syncutil.NewKeyedLocks(config.LockShards),
	}

	// Ensure we can connect to Redis.
	c, err := s.pool.Dial()
	if err != nil {
		return nil, fmt.Errorf("dial redis: %s", err)
	}
	c.Close()

	return s, nil
}

// Close implements Store.
func (s *RedisStore) Close() {
	s.pool.Close()
}

// Upsert implements Store.
func (s *RedisStore) Upsert(h core.InfoHash, r *Record) (*Record, error) {
	lk := recordLockKey(h, r.PeerID)
	s.locks.Lock(lk)
	defer s.locks.Unlock(lk)

	c := s.pool.Get()
	defer c.Close()

	k := swarmKey(h)

	prev, err := s.getField(c, k, r.PeerID)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %s", err)
	}
	if err := c.Send("HSET", k, r.PeerID.String(), b); err != nil {
		return nil, fmt.Errorf("send HSET: %s", err)
	}
	if err := c.Send("EXPIRE", k, int64(s.config.TTL.Seconds())); err != nil {
		return nil, fmt.Errorf("send EXPIRE: %s", err)
	}
	if err := c.Flush(); err != nil {
		return nil, fmt.Errorf("flush: %s", err)
	}
	if _, err := c.Receive(); err != nil {
		return nil, fmt.Errorf("HSET: %s", err)
	}
	if _, err := c.Receive(); err != nil {
		return nil, fmt.Errorf("EXPIRE: %s", err)
	}
	return prev, nil
}

// Restore implements Store.
func (s *RedisStore) Restore(h core.InfoHash, peerID core.PeerID, prev *Record) error {
	lk := recordLockKey(h, peerID)
	s.locks.Lock(lk)
	defer s.locks.Unlock(lk)

	c := s.pool.Get()
	defer c.Close()

	k := swarmKey(h)

	if prev == nil {
		if _, err := c.Do("HDEL", k, peerID.String()); err != nil {
			return fmt.Errorf("HDEL: %s", err)
		}
		return nil
	}
	b, err := json.Marshal(prev)
	if err != nil {
		return fmt.Errorf("marshal record: %s", err)
	}
	if _, err := c.Do("HSET", k, peerID.String(), b); err != nil {
		return fmt.Errorf("HSET: %s", err)
	}
	return nil
}

// GetPeer implements Store.
func (s *RedisStore) GetPeer(h core.InfoHash, peerID core.PeerID) (*Record, error) {
	c := s.pool.Get()
	defer c.Close()

	return s.getField(c, swarmKey(h), peerID)
}

// GetPeers implements Store.
func (s *RedisStore) GetPeers(h core.InfoHash, exclude core.PeerID, n int) ([]*Record, error) {
	if n <= 0 {
		return nil, nil
	}
	records, err := s.scan(h, false)
	if err != nil {
		return nil, err
	}
	var result []*Record
	for _, r := range records {
		if r.PeerID == exclude || !r.Active() {
			continue
		}
		result = append(result, r)
		if len(result) == n {
			break
		}
	}
	return result, nil
}

// Counts implements Store.
func (s *RedisStore) Counts(h core.InfoHash) (Counts, error) {
	// Scanning prunes stale fields, bounding hash growth for long-lived
	// swarms whose whole-key TTL keeps getting refreshed.
	records, err := s.scan(h, true)
	if err != nil {
		return Counts{}, err
	}
	var counts Counts
	for _, r := range records {
		if !r.Active() {
			continue
		}
		if r.Seeding() {
			counts.Complete++
		} else {
			counts.Incomplete++
		}
	}
	return counts, nil
}

func (s *RedisStore) getField(c redis.Conn, k string, peerID core.PeerID) (*Record, error) {
	b, err := redis.Bytes(c.Do("HGET", k, peerID.String()))
	if err == redis.ErrNil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("HGET: %s", err)
	}
	r := new(Record)
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %s", err)
	}
	if s.stale(r) {
		return nil, nil
	}
	return r, nil
}

func (s *RedisStore) scan(h core.InfoHash, prune bool) ([]*Record, error) {
	c := s.pool.Get()
	defer c.Close()

	k := swarmKey(h)
	fields, err := redis.StringMap(c.Do("HGETALL", k))
	if err == redis.ErrNil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("HGETALL: %s", err)
	}

	var records []*Record
	for id, v := range fields {
		r := new(Record)
		if err := json.Unmarshal([]byte(v), r); err != nil {
			log.With("hash", h, "peer_id", id).Errorf("Error unmarshalling record: %s", err)
			continue
		}
		if s.stale(r) {
			if prune {
				if _, err := c.Do("HDEL", k, id); err != nil {
					log.With("hash", h, "peer_id", id).Errorf("Error pruning record: %s", err)
				}
			}
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *RedisStore) stale(r *Record) bool {
	return s.clk.Now().After(r.LastAnnounce.Add(s.config.TTL))
}
