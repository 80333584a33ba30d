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
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	bencode "github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/require"

	"github.com/pelagic-io/mantaray/core"
	"github.com/pelagic-io/mantaray/tracker/economy"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/registry"
)

func hitAndRunOutcome() economy.Outcome {
	return economy.Outcome{Snatched: true, FlagHitAndRun: true}
}

type announceParams struct {
	passkey    core.Passkey
	hash       core.InfoHash
	peerID     core.PeerID
	port       int
	uploaded   int64
	downloaded int64
	left       int64
	event      string
	numwant    string
}

func (p announceParams) encode() string {
	v := url.Values{}
	v.Set("passkey", p.passkey.String())
	v.Set("info_hash", p.hash.RawString())
	v.Set("peer_id", p.peerID.RawString())
	v.Set("port", strconv.Itoa(p.port))
	v.Set("uploaded", strconv.FormatInt(p.uploaded, 10))
	v.Set("downloaded", strconv.FormatInt(p.downloaded, 10))
	v.Set("left", strconv.FormatInt(p.left, 10))
	if p.event != "" {
		v.Set("event", p.event)
	}
	if p.numwant != "" {
		v.Set("numwant", p.numwant)
	}
	return v.Encode()
}

func announceGet(t *testing.T, addr string, p announceParams) map[string]interface{} {
	t.Helper()

	resp, err := http.Get(addr + "/announce?" + p.encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v, err := bencode.Decode(resp.Body)
	require.NoError(t, err)
	d, ok := v.(map[string]interface{})
	require.True(t, ok)
	return d
}

func TestAnnounceFirstAnnounceEstablishesBaseline(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	d := announceGet(t, srv.URL, announceParams{
		passkey:  u.Passkey,
		hash:     h,
		peerID:   core.PeerIDFixture(),
		port:     6881,
		uploaded: 100000,
		left:     500,
	})
	require.Equal(int64(1800), d["interval"])
	require.Equal(int64(0), d["complete"])
	require.Equal(int64(1), d["incomplete"])

	// Pre-existing client counters award no credit.
	updated, err := mocks.registry.GetUserByPasskey(u.Passkey)
	require.NoError(err)
	require.Zero(updated.Uploaded)
}

func TestAnnounceCreditsDeltasAndBonus(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{BonusPointsPerAnnounce: 2})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)
	peerID := core.PeerIDFixture()

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	params := announceParams{
		passkey: u.Passkey,
		hash:    h,
		peerID:  peerID,
		port:    6881,
		left:    500,
	}
	announceGet(t, srv.URL, params)

	// The peer finishes and reclassifies as a seeder.
	params.uploaded = 500
	params.left = 0
	params.event = "completed"
	d := announceGet(t, srv.URL, params)
	require.Equal(int64(1), d["complete"])
	require.Equal(int64(0), d["incomplete"])

	updated, err := mocks.registry.GetUserByPasskey(u.Passkey)
	require.NoError(err)
	require.Equal(int64(500), updated.Uploaded)
	require.Equal(float64(2), updated.BonusPoints)

	scraped, err := mocks.registry.GetTorrentByInfoHash(h)
	require.NoError(err)
	require.Equal(int64(1), scraped.Snatches)
}

func TestAnnounceHandoutExcludesRequesterAndStopped(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	seeder := registry.UserFixture(mocks.registry)
	seederID := core.PeerIDFixture()
	announceGet(t, srv.URL, announceParams{
		passkey: seeder.Passkey, hash: h, peerID: seederID, port: 7000})

	quitter := registry.UserFixture(mocks.registry)
	announceGet(t, srv.URL, announceParams{
		passkey: quitter.Passkey, hash: h, peerID: core.PeerIDFixture(),
		port: 7001, left: 100, event: "stopped"})

	leecher := registry.UserFixture(mocks.registry)
	d := announceGet(t, srv.URL, announceParams{
		passkey: leecher.Passkey, hash: h, peerID: core.PeerIDFixture(),
		port: 7002, left: 100})

	// Only the seeder is handed out: not the stopped peer, not the
	// requester itself.
	peers := []byte(d["peers"].(string))
	require.Len(peers, 6)
	require.Equal(byte(7000>>8), peers[4])
	require.Equal(byte(7000&0xff), peers[5])
}

func TestAnnounceNumwantZeroHandsOutNoPeers(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	seeder := registry.UserFixture(mocks.registry)
	announceGet(t, srv.URL, announceParams{
		passkey: seeder.Passkey, hash: h, peerID: core.PeerIDFixture(), port: 7000})

	// An explicit numwant=0 is a stats-only announce: counts come back,
	// peers do not.
	leecher := registry.UserFixture(mocks.registry)
	d := announceGet(t, srv.URL, announceParams{
		passkey: leecher.Passkey, hash: h, peerID: core.PeerIDFixture(),
		port: 7001, left: 100, numwant: "0"})
	require.Equal(int64(1), d["complete"])
	require.Equal("", d["peers"])
}

func TestAnnounceRejectionMutatesNothing(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	h := core.InfoHashFixture() // never registered

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	d := announceGet(t, srv.URL, announceParams{
		passkey: u.Passkey, hash: h, peerID: core.PeerIDFixture(),
		port: 6881, uploaded: 500, left: 100})
	require.Equal("unregistered torrent", d["failure reason"])

	counts, err := mocks.swarms.Counts(h)
	require.NoError(err)
	require.Zero(counts.Complete)
	require.Zero(counts.Incomplete)

	updated, err := mocks.registry.GetUserByPasskey(u.Passkey)
	require.NoError(err)
	require.Zero(updated.Uploaded)
}

func TestAnnounceUnknownPasskeyFails(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	d := announceGet(t, srv.URL, announceParams{
		passkey: core.PasskeyFixture(), hash: h, peerID: core.PeerIDFixture(), port: 6881})
	require.Equal("unknown passkey", d["failure reason"])
}

func TestAnnounceBanExpiryReadmits(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{PeerBanCheckEnabled: true})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	expired := time.Now().Add(-time.Hour)
	require.NoError(mocks.registry.CreateBan(&registry.PeerBan{
		UserID: &u.ID, Reason: "cooling off", ExpiresAt: &expired}))

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	d := announceGet(t, srv.URL, announceParams{
		passkey: u.Passkey, hash: h, peerID: core.PeerIDFixture(), port: 6881, left: 100})
	_, failed := d["failure reason"]
	require.False(failed)
}

func TestAnnounceActiveBanRejects(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{PeerBanCheckEnabled: true})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	require.NoError(mocks.registry.CreateBan(&registry.PeerBan{
		UserID: &u.ID, Reason: "cheating"}))

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	d := announceGet(t, srv.URL, announceParams{
		passkey: u.Passkey, hash: h, peerID: core.PeerIDFixture(), port: 6881, left: 100})
	require.Equal("banned: cheating", d["failure reason"])
}

func TestAnnounceHitAndRunSoftBlock(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{HitAndRunThreshold: 3})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)

	// Push the stored count to the threshold, one flag per torrent.
	for i := 0; i < 3; i++ {
		abandoned := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
		_, err := mocks.registry.ApplyAnnounce(u.ID, abandoned.ID, hitAndRunOutcome())
		require.NoError(err)
	}

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	// Leeching announces are refused but still recorded.
	d := announceGet(t, srv.URL, announceParams{
		passkey: u.Passkey, hash: h, peerID: core.PeerIDFixture(), port: 6881, left: 100})
	require.Contains(d["failure reason"], "hit and runs")

	counts, err := mocks.swarms.Counts(h)
	require.NoError(err)
	require.Equal(1, counts.Incomplete)

	// Seeding is still welcome.
	d = announceGet(t, srv.URL, announceParams{
		passkey: u.Passkey, hash: h, peerID: core.PeerIDFixture(), port: 6882})
	_, failed := d["failure reason"]
	require.False(failed)
}

func TestScrape(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	u := registry.UserFixture(mocks.registry)
	torrent := registry.TorrentFixture(mocks.registry, core.InfoHashFixture(), 1<<30)
	h, err := core.NewInfoHashFromHex(torrent.InfoHash)
	require.NoError(err)
	unknown := core.InfoHashFixture()

	pending := core.InfoHashFixture()
	require.NoError(mocks.registry.CreateTorrent(&registry.Torrent{
		InfoHash: pending.Hex(), Approved: false, Size: 1 << 30}))

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	announceGet(t, srv.URL, announceParams{
		passkey: u.Passkey, hash: h, peerID: core.PeerIDFixture(), port: 6881})

	resp, err := http.Get(srv.URL + "/scrape?passkey=" + u.Passkey.String() +
		"&info_hash=" + url.QueryEscape(h.RawString()) +
		"&info_hash=" + url.QueryEscape(unknown.RawString()) +
		"&info_hash=" + url.QueryEscape(pending.RawString()))
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	v, err := bencode.Decode(resp.Body)
	require.NoError(err)
	files := v.(map[string]interface{})["files"].(map[string]interface{})

	// Unknown and unapproved hashes are omitted, not errors.
	require.Len(files, 1)
	require.NotContains(files, pending.RawString())
	f := files[h.RawString()].(map[string]interface{})
	require.Equal(int64(1), f["complete"])
	require.Equal(int64(0), f["incomplete"])
	require.Equal(int64(0), f["downloaded"])
}

func TestHealth(t *testing.T) {
	require := require.New(t)

	mocks := newServerMocks(policy.Policy{})
	defer mocks.cleanup()

	srv := httptest.NewServer(mocks.server.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
}
