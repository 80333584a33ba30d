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

// Package announce decodes announce and scrape requests off the wire.
//
// info_hash and peer_id arrive as percent-encoded raw byte strings, not
// text. Go's query unescaping yields the original bytes, which are handled
// as bytes throughout.
package announce

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pelagic-io/mantaray/core"
)

// RequestError describes a missing or malformed request parameter. It is
// client-facing and safe to echo in a failure response.
type RequestError struct {
	Param  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

func missing(param string) error {
	return &RequestError{Param: param, Reason: "missing required parameter"}
}

// Request is a decoded announce request.
type Request struct {
	Passkey    core.Passkey
	InfoHash   core.InfoHash
	PeerID     core.PeerID
	IP         string
	Port       int
	Uploaded   int64
	Downloaded int64
	Left       int64
	Event      core.AnnounceEvent
	Compact    bool

	// NumWant is the handout size the client asked for, or -1 when the
	// request carried no numwant parameter. Zero is an explicit request
	// for no peers.
	NumWant int
}

// ScrapeRequest is a decoded scrape request. InfoHashes preserves request
// order and may contain duplicates.
type ScrapeRequest struct {
	Passkey    core.Passkey
	InfoHashes []core.InfoHash
}

// ParseRequest decodes r into an announce Request. Any returned error is a
// *RequestError.
func ParseRequest(r *http.Request) (*Request, error) {
	q := r.URL.Query()

	passkey, err := parsePasskey(q.Get("passkey"))
	if err != nil {
		return nil, err
	}

	raw := q.Get("info_hash")
	if raw == "" {
		return nil, missing("info_hash")
	}
	h, err := core.NewInfoHashFromBytes([]byte(raw))
	if err != nil {
		return nil, &RequestError{Param: "info_hash", Reason: err.Error()}
	}

	raw = q.Get("peer_id")
	if raw == "" {
		return nil, missing("peer_id")
	}
	peerID, err := core.NewPeerIDFromBytes([]byte(raw))
	if err != nil {
		return nil, &RequestError{Param: "peer_id", Reason: err.Error()}
	}

	if q.Get("port") == "" {
		return nil, missing("port")
	}
	port, err := strconv.Atoi(q.Get("port"))
	if err != nil || port < 1 || port > 65535 {
		return nil, &RequestError{Param: "port", Reason: "must be in [1, 65535]"}
	}

	uploaded, err := parseCounter(q.Get("uploaded"))
	if err != nil {
		return nil, &RequestError{Param: "uploaded", Reason: err.Error()}
	}
	downloaded, err := parseCounter(q.Get("downloaded"))
	if err != nil {
		return nil, &RequestError{Param: "downloaded", Reason: err.Error()}
	}
	left, err := parseCounter(q.Get("left"))
	if err != nil {
		return nil, &RequestError{Param: "left", Reason: err.Error()}
	}

	event, err := core.ParseEvent(q.Get("event"))
	if err != nil {
		return nil, &RequestError{Param: "event", Reason: err.Error()}
	}

	compact := true
	if v := q.Get("compact"); v != "" {
		compact = v != "0"
	}

	numwant := -1
	if v := q.Get("numwant"); v != "" {
		numwant, err = strconv.Atoi(v)
		if err != nil || numwant < 0 {
			return nil, &RequestError{Param: "numwant", Reason: "must be a non-negative integer"}
		}
	}

	return &Request{
		Passkey:    passkey,
		InfoHash:   h,
		PeerID:     peerID,
		IP:         requestIP(r),
		Port:       port,
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Left:       left,
		Event:      event,
		Compact:    compact,
		NumWant:    numwant,
	}, nil
}

// ParseScrapeRequest decodes r into a ScrapeRequest. Any returned error is
// a *RequestError.
func ParseScrapeRequest(r *http.Request) (*ScrapeRequest, error) {
	q := r.URL.Query()

	passkey, err := parsePasskey(q.Get("passkey"))
	if err != nil {
		return nil, err
	}

	raws := q["info_hash"]
	if len(raws) == 0 {
		return nil, missing("info_hash")
	}
	hashes := make([]core.InfoHash, 0, len(raws))
	for _, raw := range raws {
		h, err := core.NewInfoHashFromBytes([]byte(raw))
		if err != nil {
			return nil, &RequestError{Param: "info_hash", Reason: err.Error()}
		}
		hashes = append(hashes, h)
	}

	return &ScrapeRequest{Passkey: passkey, InfoHashes: hashes}, nil
}

func parsePasskey(s string) (core.Passkey, error) {
	if s == "" {
		return "", missing("passkey")
	}
	passkey, err := core.ParsePasskey(s)
	if err != nil {
		return "", &RequestError{Param: "passkey", Reason: err.Error()}
	}
	return passkey, nil
}

func parseCounter(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

// requestIP resolves the client address, preferring the first entry of
// X-Forwarded-For when the tracker sits behind a proxy.
func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
