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
package admission

import (
	"github.com/pelagic-io/mantaray/core"
)

// requiredParamsGate re-validates that the decoded request carries all
// required identity fields. The parser enforces this on the wire; the
// gate guards programmatic callers.
type requiredParamsGate struct{}

func (g *requiredParamsGate) Name() string { return "required_params" }

func (g *requiredParamsGate) Check(ctx *Context) error {
	r := ctx.Request
	if r.Passkey == "" || r.InfoHash == (core.InfoHash{}) ||
		r.PeerID == (core.PeerID{}) || r.Port == 0 {
		return reject(g.Name(), "missing required parameter")
	}
	return nil
}

type activeUserGate struct{}

func (g *activeUserGate) Name() string { return "active_user" }

func (g *activeUserGate) Check(ctx *Context) error {
	if ctx.User == nil {
		return reject(g.Name(), "unknown passkey")
	}
	if !ctx.User.Active() {
		return reject(g.Name(), "account is %s", ctx.User.Status)
	}
	return nil
}

type approvedTorrentGate struct{}

func (g *approvedTorrentGate) Name() string { return "approved_torrent" }

func (g *approvedTorrentGate) Check(ctx *Context) error {
	if ctx.Torrent == nil {
		return reject(g.Name(), "unregistered torrent")
	}
	if !ctx.Torrent.Approved {
		return reject(g.Name(), "torrent pending approval")
	}
	return nil
}

// minRatioGate enforces the minimum share ratio. Users who have not
// downloaded anything have an undefined ratio and always pass.
type minRatioGate struct{}

func (g *minRatioGate) Name() string { return "min_ratio" }

func (g *minRatioGate) Check(ctx *Context) error {
	if ctx.Policy.MinRatio == 0 {
		return nil
	}
	r, ok := ctx.User.Ratio()
	if !ok {
		return nil
	}
	if r < ctx.Policy.MinRatio {
		return reject(g.Name(),
			"ratio %.2f below required minimum %.2f", r, ctx.Policy.MinRatio)
	}
	return nil
}

type clientPrefixGate struct{}

func (g *clientPrefixGate) Name() string { return "client_prefix" }

func (g *clientPrefixGate) Check(ctx *Context) error {
	prefix := ctx.Request.PeerID.ClientPrefix()
	if ctx.Policy.ClientBlacklisted(prefix) {
		return reject(g.Name(), "client %q is banned", prefix)
	}
	if !ctx.Policy.ClientWhitelisted(prefix) {
		return reject(g.Name(), "client %q is not approved", prefix)
	}
	return nil
}

type clientFingerprintGate struct{}

func (g *clientFingerprintGate) Name() string { return "client_fingerprint" }

func (g *clientFingerprintGate) Check(ctx *Context) error {
	fp := ctx.Request.PeerID.Fingerprint()
	if ctx.Policy.FingerprintDenied(fp) {
		return reject(g.Name(), "client version is banned")
	}
	if !ctx.Policy.FingerprintAllowed(fp) {
		return reject(g.Name(), "client version is not approved")
	}
	return nil
}

type cheatSignatureGate struct{}

func (g *cheatSignatureGate) Name() string { return "cheat_signature" }

func (g *cheatSignatureGate) Check(ctx *Context) error {
	if !ctx.Policy.CheatCheckEnabled {
		return nil
	}
	if ctx.Policy.MatchesCheatSignature(ctx.Request.PeerID.RawString()) {
		return reject(g.Name(), "client matches a known cheating signature")
	}
	return nil
}

// ipAbuseGate rejects users announcing from too many distinct addresses
// within the configured window.
type ipAbuseGate struct {
	activity *ActivityStore
}

func (g *ipAbuseGate) Name() string { return "ip_abuse" }

func (g *ipAbuseGate) Check(ctx *Context) error {
	if !ctx.Policy.IPAbuseCheckEnabled {
		return nil
	}
	n, seen := g.activity.DistinctIPs(
		ctx.User.ID, ctx.Request.IP, ctx.Policy.IPAbuseWindow)
	if !seen && n >= ctx.Policy.IPAbuseMaxIPs {
		return reject(g.Name(), "too many addresses in use for this account")
	}
	return nil
}

type announceRateGate struct {
	activity *ActivityStore
}

func (g *announceRateGate) Name() string { return "announce_rate" }

func (g *announceRateGate) Check(ctx *Context) error {
	if !ctx.Policy.AnnounceRateCheckEnabled {
		return nil
	}
	n := g.activity.AnnounceCount(
		ctx.User.ID, ctx.Torrent.ID, ctx.Request.PeerID, ctx.Policy.AnnounceRateWindow)
	if n >= ctx.Policy.AnnounceRateMax {
		return reject(g.Name(), "announcing too frequently")
	}
	return nil
}

type userCooldownGate struct {
	activity *ActivityStore
}

func (g *userCooldownGate) Name() string { return "user_cooldown" }

func (g *userCooldownGate) Check(ctx *Context) error {
	if !ctx.Policy.UserCooldownEnabled {
		return nil
	}
	last, ok := g.activity.LastAnnounce(ctx.User.ID)
	if !ok {
		return nil
	}
	if g.activity.clk.Now().Sub(last) < ctx.Policy.UserCooldown {
		return reject(g.Name(), "announcing too soon, slow down")
	}
	return nil
}

// invalidStatsGate rejects announces whose counters are inconsistent with
// the torrent size or jump implausibly far from the previous record.
type invalidStatsGate struct{}

func (g *invalidStatsGate) Name() string { return "invalid_stats" }

func (g *invalidStatsGate) Check(ctx *Context) error {
	if !ctx.Policy.InvalidStatsCheckEnabled {
		return nil
	}
	r := ctx.Request
	size := ctx.Torrent.Size
	if size > 0 && r.Left > size {
		return reject(g.Name(), "reported remaining bytes exceed torrent size")
	}
	if ctx.Prev == nil || size == 0 {
		return nil
	}
	maxJump := ctx.Policy.MaxStatsJumpMultiplier * size
	if r.Uploaded-ctx.Prev.Uploaded > maxJump {
		return reject(g.Name(), "implausible uploaded counter jump")
	}
	if r.Downloaded-ctx.Prev.Downloaded > maxJump {
		return reject(g.Name(), "implausible downloaded counter jump")
	}
	return nil
}

type peerBanGate struct{}

func (g *peerBanGate) Name() string { return "peer_ban" }

func (g *peerBanGate) Check(ctx *Context) error {
	if !ctx.Policy.PeerBanCheckEnabled {
		return nil
	}
	if len(ctx.Bans) > 0 {
		return reject(g.Name(), "banned: %s", ctx.Bans[0].Reason)
	}
	return nil
}

// ghostLeechGate rejects leechers who keep announcing without ever moving
// data, which usually means a client faking participation to farm
// activity credit.
type ghostLeechGate struct {
	activity *ActivityStore
}

func (g *ghostLeechGate) Name() string { return "ghost_leech" }

func (g *ghostLeechGate) Check(ctx *Context) error {
	if !ctx.Policy.GhostLeechCheckEnabled || ctx.Request.Left == 0 {
		return nil
	}
	announces, transferred := g.activity.LeechActivity(
		ctx.User.ID, ctx.Torrent.ID, ctx.Policy.GhostLeechWindow)
	if announces >= ctx.Policy.GhostLeechMinAnnounces && !transferred {
		return reject(g.Name(), "no data transfer observed, check your client")
	}
	return nil
}
