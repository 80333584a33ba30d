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
package trackerserver

import (
	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"

	"github.com/pelagic-io/mantaray/tracker/admission"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/registry"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
)

type serverMocks struct {
	server   *Server
	registry *registry.SQLStore
	swarms   swarmstore.Store
	cleanup  func()
}

func newServerMocks(p policy.Policy) *serverMocks {
	clk := clock.New()
	reg, cleanup := registry.Fixture(clk)
	swarms := swarmstore.NewLocalStore(swarmstore.LocalConfig{}, clk)
	activity := admission.NewActivityStore(clk)
	server := New(
		Config{},
		tally.NoopScope,
		policy.Static(p),
		swarms,
		reg,
		activity)
	return &serverMocks{
		server:   server,
		registry: reg,
		swarms:   swarms,
		cleanup: func() {
			swarms.Close()
			cleanup()
		},
	}
}
