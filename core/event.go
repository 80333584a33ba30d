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

import "fmt"

// AnnounceEvent is the optional event field of an announce request.
type AnnounceEvent string

// The full set of announce events. An empty event denotes a regular
// keepalive announce.
const (
	EventNone      AnnounceEvent = ""
	EventStarted   AnnounceEvent = "started"
	EventStopped   AnnounceEvent = "stopped"
	EventCompleted AnnounceEvent = "completed"
)

// ParseEvent parses the event query parameter of an announce request.
func ParseEvent(s string) (AnnounceEvent, error) {
	switch e := AnnounceEvent(s); e {
	case EventNone, EventStarted, EventStopped, EventCompleted:
		return e, nil
	default:
		return EventNone, fmt.Errorf("invalid event: %q", s)
	}
}

func (e AnnounceEvent) String() string {
	return string(e)
}
