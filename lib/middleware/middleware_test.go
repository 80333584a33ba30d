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
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

func TestHitCounter(t *testing.T) {
	require := require.New(t)

	stats := tally.NewTestScope("testing", nil)

	r := chi.NewRouter()
	r.Use(HitCounter(stats))
	r.Get("/announce", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/torrents/{hash}", func(w http.ResponseWriter, r *http.Request) {})

	s := httptest.NewServer(r)
	defer s.Close()

	_, err := http.Get(s.URL + "/announce")
	require.NoError(err)
	_, err = http.Get(s.URL + "/torrents/abc123")
	require.NoError(err)

	counters := stats.Snapshot().Counters()
	require.Equal(int64(1), counters["testing.announce.GET.count+"].Value())
	require.Equal(int64(1), counters["testing.torrents.GET.count+"].Value())
}

func TestLatencyTimer(t *testing.T) {
	require := require.New(t)

	stats := tally.NewTestScope("testing", nil)

	r := chi.NewRouter()
	r.Use(LatencyTimer(stats))
	r.Get("/announce", func(w http.ResponseWriter, r *http.Request) {})

	s := httptest.NewServer(r)
	defer s.Close()

	_, err := http.Get(s.URL + "/announce")
	require.NoError(err)

	timers := stats.Snapshot().Timers()
	require.Contains(timers, "testing.announce.GET.latency+")
}
