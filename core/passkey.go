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
	"fmt"
	"strings"

	"github.com/satori/go.uuid"
)

// PasskeyLength is the length of a passkey in characters.
const PasskeyLength = 32

// Passkey is a per-user capability token embedded in announce and scrape
// URLs. It stands in for session login and must be treated as a secret.
type Passkey string

// NewPasskey generates a fresh random passkey.
func NewPasskey() Passkey {
	u := uuid.NewV4()
	return Passkey(strings.Replace(u.String(), "-", "", -1))
}

// ParsePasskey validates that s is a well-formed passkey.
func ParsePasskey(s string) (Passkey, error) {
	if len(s) != PasskeyLength {
		return "", fmt.Errorf("invalid passkey: expected %d characters, got %d", PasskeyLength, len(s))
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", fmt.Errorf("invalid passkey: non-alphanumeric character")
		}
	}
	return Passkey(s), nil
}

func (k Passkey) String() string {
	return string(k)
}
