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

// Package bencodex encodes tracker responses in the bencoded wire format,
// including the compact binary peer-list encodings.
package bencodex

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	bencode "github.com/jackpal/bencode-go"

	"github.com/pelagic-io/mantaray/core"
)

const (
	compactV4Len = 6
	compactV6Len = 18
)

// AnnounceResponse is the data of a successful announce response.
type AnnounceResponse struct {
	Interval    time.Duration
	MinInterval time.Duration
	Complete    int
	Incomplete  int
	Compact     bool
	Peers       []*core.PeerInfo
}

// ScrapeFile holds the per-torrent counters of a scrape response.
type ScrapeFile struct {
	Complete   int
	Downloaded int64
	Incomplete int
}

// ScrapeResponse maps info hashes to their swarm counters. Hashes unknown
// to the tracker are simply absent.
type ScrapeResponse struct {
	Files map[core.InfoHash]ScrapeFile
}

// WriteFailure writes a bencoded failure response. Trackers report policy
// failures in-band with a "failure reason" dictionary, not an HTTP error
// status.
func WriteFailure(w io.Writer, reason string) error {
	return bencode.Marshal(w, map[string]interface{}{
		"failure reason": reason,
	})
}

// WriteAnnounce writes a bencoded announce response.
func WriteAnnounce(w io.Writer, resp *AnnounceResponse) error {
	d := map[string]interface{}{
		"interval":   int64(resp.Interval.Seconds()),
		"complete":   resp.Complete,
		"incomplete": resp.Incomplete,
	}
	if resp.MinInterval > 0 {
		d["min interval"] = int64(resp.MinInterval.Seconds())
	}

	var v4, v6 []*core.PeerInfo
	for _, p := range resp.Peers {
		if p.IPv6() {
			v6 = append(v6, p)
		} else {
			v4 = append(v4, p)
		}
	}

	if resp.Compact {
		d["peers"] = string(compactPeers(v4, false))
		if len(v6) > 0 {
			d["peers6"] = string(compactPeers(v6, true))
		}
	} else {
		peers := make([]interface{}, 0, len(resp.Peers))
		for _, p := range resp.Peers {
			peers = append(peers, map[string]interface{}{
				"peer id": p.PeerID.RawString(),
				"ip":      p.IP,
				"port":    p.Port,
			})
		}
		d["peers"] = peers
	}

	if err := bencode.Marshal(w, d); err != nil {
		return fmt.Errorf("bencode announce: %s", err)
	}
	return nil
}

// WriteScrape writes a bencoded scrape response.
func WriteScrape(w io.Writer, resp *ScrapeResponse) error {
	files := map[string]interface{}{}
	for h, f := range resp.Files {
		files[h.RawString()] = map[string]interface{}{
			"complete":   f.Complete,
			"downloaded": f.Downloaded,
			"incomplete": f.Incomplete,
		}
	}
	if err := bencode.Marshal(w, map[string]interface{}{"files": files}); err != nil {
		return fmt.Errorf("bencode scrape: %s", err)
	}
	return nil
}

// compactPeers encodes peers as fixed-width address+port records. IPv4
// records are 6 bytes, IPv6 records 18 bytes, ports big-endian. Addresses
// which fail to parse encode as zero bytes so one bad record cannot abort
// the whole response.
func compactPeers(peers []*core.PeerInfo, v6 bool) []byte {
	size := compactV4Len
	if v6 {
		size = compactV6Len
	}
	b := make([]byte, 0, len(peers)*size)
	for _, p := range peers {
		rec := make([]byte, size)
		if ip := net.ParseIP(p.IP); ip != nil {
			if v6 {
				if ip16 := ip.To16(); ip16 != nil {
					copy(rec, ip16)
				}
			} else {
				if ip4 := ip.To4(); ip4 != nil {
					copy(rec, ip4)
				}
			}
		}
		binary.BigEndian.PutUint16(rec[size-2:], uint16(p.Port))
		b = append(b, rec...)
	}
	return b
}
