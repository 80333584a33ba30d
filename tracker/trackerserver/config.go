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

// Config defines configuration for the tracker server.
type Config struct {

	// Hard upper bound on peers returned per announce, regardless of the
	// client's numwant or the policy handout limit.
	PeerHandoutCap int `yaml:"peer_handout_cap"`
}

func (c Config) applyDefaults() Config {
	if c.PeerHandoutCap == 0 {
		c.PeerHandoutCap = 200
	}
	return c
}
