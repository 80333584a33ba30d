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
package core

import (
	"github.com/pelagic-io/mantaray/utils/randutil"
)

// InfoHashFixture returns a randomly generated InfoHash.
func InfoHashFixture() InfoHash {
	h, err := NewInfoHashFromBytes(randutil.Text(20))
	if err != nil {
		panic(err)
	}
	return h
}

// PeerIDFixture returns a randomly generated PeerID.
func PeerIDFixture() PeerID {
	p, err := RandomPeerID()
	if err != nil {
		panic(err)
	}
	return p
}

// ClientPeerIDFixture returns a PeerID carrying the given Azureus-style
// client prefix, e.g. "-qB45".
func ClientPeerIDFixture(prefix string) PeerID {
	p := PeerIDFixture()
	copy(p[:], prefix)
	return p
}

// PasskeyFixture returns a randomly generated Passkey.
func PasskeyFixture() Passkey {
	return NewPasskey()
}

// PeerInfoFixture returns a randomly generated PeerInfo.
func PeerInfoFixture() *PeerInfo {
	return NewPeerInfo(PeerIDFixture(), randutil.IP(), randutil.Port(), false)
}

// SeederInfoFixture returns a randomly generated PeerInfo announcing as
// complete.
func SeederInfoFixture() *PeerInfo {
	return NewPeerInfo(PeerIDFixture(), randutil.IP(), randutil.Port(), true)
}
