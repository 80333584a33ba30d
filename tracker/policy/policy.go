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
	"strings"
	"time"

	"github.com/pelagic-io/mantaray/utils/stringset"
)

// Policy defines the tracker-wide enforcement policy. A Policy value is an
// immutable snapshot: request handling reads one snapshot for its entire
// lifetime and never observes a partial reload.
type Policy struct {
	AnnounceInterval    time.Duration `yaml:"announce_interval"`
	MinAnnounceInterval time.Duration `yaml:"min_announce_interval"`

	// Limits the number of peers returned on each announce.
	PeerHandoutLimit int `yaml:"peer_handout_limit"`

	// Minimum share ratio required to keep announcing. Zero disables ratio
	// enforcement.
	MinRatio float64 `yaml:"min_ratio"`

	// Azureus-style client prefixes (first 4 bytes of the peer id). A
	// non-empty whitelist admits only listed clients.
	ClientWhitelist []string `yaml:"client_whitelist"`
	ClientBlacklist []string `yaml:"client_blacklist"`

	// Client fingerprints (first 8 bytes of the peer id).
	FingerprintAllowlist []string `yaml:"fingerprint_allowlist"`
	FingerprintDenylist  []string `yaml:"fingerprint_denylist"`

	CheatCheckEnabled bool     `yaml:"cheat_check_enabled"`
	CheatSignatures   []string `yaml:"cheat_signatures"`

	IPAbuseCheckEnabled bool          `yaml:"ip_abuse_check_enabled"`
	IPAbuseWindow       time.Duration `yaml:"ip_abuse_window"`
	IPAbuseMaxIPs       int           `yaml:"ip_abuse_max_ips"`

	AnnounceRateCheckEnabled bool          `yaml:"announce_rate_check_enabled"`
	AnnounceRateWindow       time.Duration `yaml:"announce_rate_window"`
	AnnounceRateMax          int           `yaml:"announce_rate_max"`

	UserCooldownEnabled bool          `yaml:"user_cooldown_enabled"`
	UserCooldown        time.Duration `yaml:"user_cooldown"`

	InvalidStatsCheckEnabled bool `yaml:"invalid_stats_check_enabled"`

	// Uploaded / downloaded jumps beyond this multiple of the torrent size
	// in a single announce are treated as forged stats.
	MaxStatsJumpMultiplier int64 `yaml:"max_stats_jump_multiplier"`

	PeerBanCheckEnabled bool `yaml:"peer_ban_check_enabled"`

	GhostLeechCheckEnabled bool          `yaml:"ghost_leech_check_enabled"`
	GhostLeechWindow       time.Duration `yaml:"ghost_leech_window"`
	GhostLeechMinAnnounces int           `yaml:"ghost_leech_min_announces"`

	// Bonus points credited per seeding announce. Credit is flat per
	// announce, not derived from elapsed wall-clock time, so the accrual
	// cadence is bounded by how often peers announce.
	BonusPointsPerAnnounce float64 `yaml:"bonus_points_per_announce"`

	// Seed time credited per seeding announce.
	SeedTimePerAnnounce time.Duration `yaml:"seed_time_per_announce"`

	MinSeedTime        time.Duration `yaml:"min_seed_time"`
	HitAndRunThreshold int           `yaml:"hit_and_run_threshold"`

	clientWhitelist      stringset.Set
	clientBlacklist      stringset.Set
	fingerprintAllowlist stringset.Set
	fingerprintDenylist  stringset.Set
}

func (p Policy) applyDefaults() Policy {
	if p.AnnounceInterval == 0 {
		p.AnnounceInterval = 30 * time.Minute
	}
	if p.MinAnnounceInterval == 0 {
		p.MinAnnounceInterval = 15 * time.Minute
	}
	if p.PeerHandoutLimit == 0 {
		p.PeerHandoutLimit = 50
	}
	if p.IPAbuseWindow == 0 {
		p.IPAbuseWindow = time.Hour
	}
	if p.IPAbuseMaxIPs == 0 {
		p.IPAbuseMaxIPs = 8
	}
	if p.AnnounceRateWindow == 0 {
		p.AnnounceRateWindow = 10 * time.Minute
	}
	if p.AnnounceRateMax == 0 {
		p.AnnounceRateMax = 10
	}
	if p.UserCooldown == 0 {
		p.UserCooldown = 2 * time.Second
	}
	if p.MaxStatsJumpMultiplier == 0 {
		p.MaxStatsJumpMultiplier = 10
	}
	if p.GhostLeechWindow == 0 {
		p.GhostLeechWindow = 24 * time.Hour
	}
	if p.GhostLeechMinAnnounces == 0 {
		p.GhostLeechMinAnnounces = 10
	}
	if p.BonusPointsPerAnnounce == 0 {
		p.BonusPointsPerAnnounce = 0.5
	}
	if p.SeedTimePerAnnounce == 0 {
		p.SeedTimePerAnnounce = p.AnnounceInterval
	}
	if p.MinSeedTime == 0 {
		p.MinSeedTime = 48 * time.Hour
	}
	if p.HitAndRunThreshold == 0 {
		p.HitAndRunThreshold = 3
	}
	return p
}

// compile precomputes set views of the list-valued fields. Must be called
// once after the Policy is populated and before it is published.
func (p Policy) compile() Policy {
	p = p.applyDefaults()
	p.clientWhitelist = stringset.FromSlice(p.ClientWhitelist)
	p.clientBlacklist = stringset.FromSlice(p.ClientBlacklist)
	p.fingerprintAllowlist = stringset.FromSlice(p.FingerprintAllowlist)
	p.fingerprintDenylist = stringset.FromSlice(p.FingerprintDenylist)
	return p
}

// ClientWhitelisted returns whether prefix passes the client whitelist. An
// empty whitelist admits everything.
func (p Policy) ClientWhitelisted(prefix string) bool {
	if len(p.clientWhitelist) == 0 {
		return true
	}
	return p.clientWhitelist.Has(prefix)
}

// ClientBlacklisted returns whether prefix is blacklisted.
func (p Policy) ClientBlacklisted(prefix string) bool {
	return p.clientBlacklist.Has(prefix)
}

// FingerprintAllowed returns whether fp passes the fingerprint allowlist. An
// empty allowlist admits everything.
func (p Policy) FingerprintAllowed(fp string) bool {
	if len(p.fingerprintAllowlist) == 0 {
		return true
	}
	return p.fingerprintAllowlist.Has(fp)
}

// FingerprintDenied returns whether fp is on the fingerprint denylist.
func (p Policy) FingerprintDenied(fp string) bool {
	return p.fingerprintDenylist.Has(fp)
}

// MatchesCheatSignature returns whether the raw peer id matches a known
// cheating client signature.
func (p Policy) MatchesCheatSignature(rawPeerID string) bool {
	for _, sig := range p.CheatSignatures {
		if sig != "" && strings.Contains(rawPeerID, sig) {
			return true
		}
	}
	return false
}
