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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedLocksSerializesSameKey(t *testing.T) {
	require := require.New(t)

	l := NewKeyedLocks(8)
	key := []byte("some key")

	var n int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock(key)
			n++
			l.Unlock(key)
		}()
	}
	wg.Wait()

	require.Equal(100, n)
}

func TestKeyedLocksZeroShardsDefaults(t *testing.T) {
	l := NewKeyedLocks(0)
	l.Lock([]byte("x"))
	l.Unlock([]byte("x"))
}
