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

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/admission"
	"github.com/pelagic-io/mantaray/tracker/announce"
	"github.com/pelagic-io/mantaray/tracker/bencodex"
	"github.com/pelagic-io/mantaray/tracker/registry"
)

func (s *Server) scrapeHandler(w http.ResponseWriter, r *http.Request) error {
	req, err := announce.ParseScrapeRequest(r)
	if err != nil {
		return err
	}

	user, err := s.registry.GetUserByPasskey(req.Passkey)
	if err == registry.ErrNotFound {
		return &admission.Rejection{Gate: "active_user", Reason: "unknown passkey"}
	} else if err != nil {
		return fmt.Errorf("lookup user: %s", err)
	}
	if !user.Active() {
		return &admission.Rejection{
			Gate: "active_user", Reason: fmt.Sprintf("account is %s", user.Status)}
	}

	resp := &bencodex.ScrapeResponse{Files: make(map[core.InfoHash]bencodex.ScrapeFile)}
	for _, h := range req.InfoHashes {
		torrent, err := s.registry.GetTorrentByInfoHash(h)
		if err == registry.ErrNotFound {
			// Unknown and unapproved hashes are omitted, not errors.
			continue
		} else if err != nil {
			return fmt.Errorf("lookup torrent: %s", err)
		}
		if !torrent.Approved {
			continue
		}
		counts, err := s.swarms.Counts(h)
		if err != nil {
			return fmt.Errorf("swarm counts: %s", err)
		}
		resp.Files[h] = bencodex.ScrapeFile{
			Complete:   counts.Complete,
			Downloaded: torrent.Snatches,
			Incomplete: counts.Incomplete,
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	return bencodex.WriteScrape(w, resp)
}
