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
package syncutil

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// KeyedLocks provides a fixed pool of mutexes addressed by arbitrary byte
// keys. Two distinct keys may hash to the same mutex, which is safe but
// serializes them unnecessarily; callers pick a shard count large enough to
// make collisions rare.
type KeyedLocks struct {
	shards []sync.Mutex
}

// NewKeyedLocks creates a KeyedLocks with n shards.
func NewKeyedLocks(n int) *KeyedLocks {
	if n <= 0 {
		n = 1024
	}
	return &KeyedLocks{shards: make([]sync.Mutex, n)}
}

// Lock locks the mutex which owns key.
func (l *KeyedLocks) Lock(key []byte) {
	l.shard(key).Lock()
}

// Unlock unlocks the mutex which owns key.
func (l *KeyedLocks) Unlock(key []byte) {
	l.shard(key).Unlock()
}

func (l *KeyedLocks) shard(key []byte) *sync.Mutex {
	return &l.shards[murmur3.Sum32(key)%uint32(len(l.shards))]
}
