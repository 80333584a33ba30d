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
	"fmt"
	"net/http"
	"time"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/admission"
	"github.com/pelagic-io/mantaray/tracker/announce"
	"github.com/pelagic-io/mantaray/tracker/bencodex"
	"github.com/pelagic-io/mantaray/tracker/economy"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/registry"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
	"github.com/pelagic-io/mantaray/utils/log"
)

const (
	_seederHandoutGauge    = "seeders_handed_out"
	_seederHandoutPctGauge = "seeders_handed_out_pct"
)

func (s *Server) announceHandler(w http.ResponseWriter, r *http.Request) error {
	req, err := announce.ParseRequest(r)
	if err != nil {
		return err
	}

	// One policy snapshot per request. A concurrent reload never yields a
	// half-old, half-new gate sequence.
	p := s.policy.Snapshot()

	ctx, err := s.resolveContext(req, p)
	if err != nil {
		return err
	}
	if err := s.pipeline.Admit(ctx); err != nil {
		return err
	}
	user, torrent := ctx.User, ctx.Torrent

	record := &swarmstore.Record{
		PeerID:       req.PeerID,
		IP:           req.IP,
		Port:         req.Port,
		Uploaded:     req.Uploaded,
		Downloaded:   req.Downloaded,
		Left:         req.Left,
		Event:        req.Event,
		LastAnnounce: time.Now(),
	}
	// The previous record returned here, not the admission snapshot, is
	// authoritative for stat deltas.
	prev, err := s.swarms.Upsert(req.InfoHash, record)
	if err != nil {
		return fmt.Errorf("upsert swarm record: %s", err)
	}

	state, err := s.registry.GetSeedState(user.ID, torrent.ID)
	if err != nil {
		return fmt.Errorf("get seed state: %s", err)
	}
	out := economy.Evaluate(p, prev, record, state)

	user, err = s.registry.ApplyAnnounce(user.ID, torrent.ID, out)
	if err != nil {
		// The swarm record and the user aggregates must move together.
		// Reinstate the previous record so the missed delta is recovered
		// on the client's next announce.
		if rerr := s.swarms.Restore(req.InfoHash, req.PeerID, prev); rerr != nil {
			log.With(
				"hash", req.InfoHash,
				"peer_id", req.PeerID).Errorf("Error restoring swarm record: %s", rerr)
		}
		return fmt.Errorf("apply announce: %s", err)
	}

	transfer := out.Deltas.Uploaded > 0 || out.Deltas.Downloaded > 0
	s.activity.Observe(user.ID, torrent.ID, req.PeerID, req.IP, req.Left, transfer)

	// Hit-and-run enforcement is a soft block: the announce above is
	// recorded so stats stay honest, but flagged accounts get no new
	// leeching sessions until they make good.
	if req.Left > 0 && p.HitAndRunThreshold > 0 && user.HitAndRuns >= p.HitAndRunThreshold {
		w.Header().Set("Content-Type", "text/plain")
		return bencodex.WriteFailure(w, fmt.Sprintf(
			"account has %d hit and runs, seed your snatches to continue", user.HitAndRuns))
	}

	resp, err := s.buildAnnounceResponse(req, p)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain")
	return bencodex.WriteAnnounce(w, resp)
}

// resolveContext pre-resolves everything the admission gates consult.
// Missing users and torrents resolve to nil so the gates can produce the
// proper rejection.
func (s *Server) resolveContext(
	req *announce.Request, p policy.Policy) (*admission.Context, error) {

	ctx := &admission.Context{Request: req, Policy: p}

	user, err := s.registry.GetUserByPasskey(req.Passkey)
	if err != nil && err != registry.ErrNotFound {
		return nil, fmt.Errorf("lookup user: %s", err)
	}
	ctx.User = user

	torrent, err := s.registry.GetTorrentByInfoHash(req.InfoHash)
	if err != nil && err != registry.ErrNotFound {
		return nil, fmt.Errorf("lookup torrent: %s", err)
	}
	ctx.Torrent = torrent

	if user != nil && p.PeerBanCheckEnabled {
		bans, err := s.registry.ActiveBans(user.ID, req.Passkey, req.PeerID, req.IP)
		if err != nil {
			return nil, fmt.Errorf("lookup bans: %s", err)
		}
		ctx.Bans = bans
	}

	prev, err := s.swarms.GetPeer(req.InfoHash, req.PeerID)
	if err != nil {
		return nil, fmt.Errorf("lookup swarm record: %s", err)
	}
	ctx.Prev = prev

	return ctx, nil
}

func (s *Server) buildAnnounceResponse(
	req *announce.Request, p policy.Policy) (*bencodex.AnnounceResponse, error) {

	resp := &bencodex.AnnounceResponse{
		Interval:    p.AnnounceInterval,
		MinInterval: p.MinAnnounceInterval,
		Compact:     req.Compact,
	}

	counts, err := s.swarms.Counts(req.InfoHash)
	if err != nil {
		return nil, fmt.Errorf("swarm counts: %s", err)
	}
	resp.Complete = counts.Complete
	resp.Incomplete = counts.Incomplete

	// A stopping peer is leaving the swarm and has no use for a handout.
	if req.Event == core.EventStopped {
		return resp, nil
	}

	limit := p.PeerHandoutLimit
	if req.NumWant >= 0 && req.NumWant < limit {
		limit = req.NumWant
	}
	if limit > s.config.PeerHandoutCap {
		limit = s.config.PeerHandoutCap
	}
	if limit == 0 {
		return resp, nil
	}
	records, err := s.swarms.GetPeers(req.InfoHash, req.PeerID, limit)
	if err != nil {
		return nil, fmt.Errorf("get peers: %s", err)
	}

	var seeders int
	for _, rec := range records {
		if rec.Seeding() {
			seeders++
		}
		resp.Peers = append(resp.Peers, rec.PeerInfo())
	}
	s.stats.Gauge(_seederHandoutGauge).Update(float64(seeders))
	if len(records) > 0 {
		s.stats.Gauge(_seederHandoutPctGauge).Update(float64(seeders) / float64(len(records)))
	}

	return resp, nil
}
