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

// Package trackerserver serves the announce and scrape endpoints.
package trackerserver

import (
	"net/http"
	_ "net/http/pprof" // Registers /debug/pprof endpoints in http.DefaultServeMux.

	"github.com/go-chi/chi"
	"github.com/uber-go/tally"

	"github.com/pelagic-io/mantaray/lib/middleware"
	"github.com/pelagic-io/mantaray/tracker/admission"
	"github.com/pelagic-io/mantaray/tracker/announce"
	"github.com/pelagic-io/mantaray/tracker/bencodex"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/registry"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
	"github.com/pelagic-io/mantaray/utils/log"
)

// Server serves the tracker protocol.
type Server struct {
	config   Config
	stats    tally.Scope
	policy   *policy.Provider
	swarms   swarmstore.Store
	registry registry.Store
	pipeline *admission.Pipeline
	activity *admission.ActivityStore
}

// New creates a new Server.
func New(
	config Config,
	stats tally.Scope,
	policy *policy.Provider,
	swarms swarmstore.Store,
	reg registry.Store,
	activity *admission.ActivityStore) *Server {

	config = config.applyDefaults()

	stats = stats.Tagged(map[string]string{
		"module": "trackerserver",
	})

	return &Server{
		config:   config,
		stats:    stats,
		policy:   policy,
		swarms:   swarms,
		registry: reg,
		pipeline: admission.NewPipeline(activity),
		activity: activity,
	}
}

// Handler returns the HTTP handler for s.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.HitCounter(s.stats))
	r.Use(middleware.LatencyTimer(s.stats))

	r.Get("/announce", s.bencoded(s.announceHandler))
	r.Get("/scrape", s.bencoded(s.scrapeHandler))
	r.Get("/health", s.healthHandler)

	// Serves /debug/pprof endpoints.
	r.Mount("/", http.DefaultServeMux)

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK ;-)\n"))
}

// bencoded adapts an error-returning handler to the tracker wire protocol.
// Policy rejections and malformed requests are reported in-band as bencoded
// "failure reason" responses with HTTP 200, which is what clients retry
// sanely on. Anything else is an internal error: it is logged with full
// detail and reported to the client as an opaque failure.
func (s *Server) bencoded(h func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		switch e := err.(type) {
		case *admission.Rejection:
			s.stats.SubScope("rejections").Counter(e.Gate).Inc(1)
			bencodex.WriteFailure(w, e.Reason)
		case *announce.RequestError:
			s.stats.SubScope("rejections").Counter("bad_request").Inc(1)
			bencodex.WriteFailure(w, e.Error())
		default:
			s.stats.Counter("internal_errors").Inc(1)
			log.With("path", r.URL.Path).Errorf("Error serving request: %s", err)
			bencodex.WriteFailure(w, "tracker error")
		}
	}
}
