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

// Package admission evaluates announce requests against the tracker's
// enforcement policy. Gates run in a fixed order and the first failing
// gate short-circuits evaluation, so a rejected request never mutates
// swarm or user state.
package admission

import (
	"fmt"

	"github.com/pelagic-io/mantaray/tracker/announce"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/registry"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
)

// Rejection is a policy decision against a request. It is client-facing:
// Reason is bencoded into the failure response verbatim.
type Rejection struct {
	Gate   string
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(gate, format string, args ...interface{}) error {
	return &Rejection{Gate: gate, Reason: fmt.Sprintf(format, args...)}
}

// Context carries everything a gate may consult. User, Torrent, Prev, and
// Bans are pre-resolved by the caller; nil values mean the lookup found
// nothing.
type Context struct {
	Request *announce.Request
	Policy  policy.Policy

	User    *registry.User
	Torrent *registry.Torrent

	// Prev is the peer's existing announce record, if any. It is a
	// heuristic snapshot: the authoritative previous record is established
	// later, under the upsert lock.
	Prev *swarmstore.Record

	Bans []*registry.PeerBan
}

// Gate is a single admission check.
type Gate interface {
	Name() string
	Check(ctx *Context) error
}

// Pipeline runs the full ordered gate sequence.
type Pipeline struct {
	gates []Gate
}

// NewPipeline creates the standard pipeline. Gates which need announce
// history share the given ActivityStore.
func NewPipeline(activity *ActivityStore) *Pipeline {
	return &Pipeline{gates: []Gate{
		&requiredParamsGate{},
		&activeUserGate{},
		&approvedTorrentGate{},
		&minRatioGate{},
		&clientPrefixGate{},
		&clientFingerprintGate{},
		&cheatSignatureGate{},
		&ipAbuseGate{activity},
		&announceRateGate{activity},
		&userCooldownGate{activity},
		&invalidStatsGate{},
		&peerBanGate{},
		&ghostLeechGate{activity},
	}}
}

// Admit runs every gate in order. A *Rejection return is a policy
// decision; any other error is internal.
func (p *Pipeline) Admit(ctx *Context) error {
	for _, g := range p.gates {
		if err := g.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}
