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
package policy

import (
	"fmt"
	"sync/atomic"

	"github.com/pelagic-io/mantaray/utils/configutil"
	"github.com/pelagic-io/mantaray/utils/log"
)

// Provider publishes Policy snapshots. The tracker engine reads a snapshot at
// the start of every announce and never mutates it; operators swap policy at
// runtime via Reload.
type Provider struct {
	path string
	v    atomic.Value
}

// NewProvider creates a Provider which loads policy from the YAML file at
// path. The file supports configutil extends chains.
func NewProvider(path string) (*Provider, error) {
	p := &Provider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Static creates a Provider with a fixed in-memory policy. Useful for tests.
func Static(policy Policy) *Provider {
	p := &Provider{}
	p.v.Store(policy.compile())
	return p
}

// Snapshot returns the current policy snapshot.
func (p *Provider) Snapshot() Policy {
	return p.v.Load().(Policy)
}

// Reload re-reads the policy file and atomically publishes the new snapshot.
// In-flight requests keep the snapshot they started with.
func (p *Provider) Reload() error {
	if p.path == "" {
		return fmt.Errorf("no policy file configured")
	}
	var policy Policy
	if err := configutil.Load(p.path, &policy); err != nil {
		return fmt.Errorf("load policy: %s", err)
	}
	p.v.Store(policy.compile())
	log.With("path", p.path).Info("Loaded tracker policy")
	return nil
}
