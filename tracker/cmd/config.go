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
package cmd

import (
	"go.uber.org/zap"

	"github.com/pelagic-io/mantaray/localdb"
	"github.com/pelagic-io/mantaray/metrics"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
	"github.com/pelagic-io/mantaray/tracker/trackerserver"
)

// Config defines tracker configuration.
type Config struct {
	ZapLogging    zap.Config           `yaml:"zap"`
	Metrics       metrics.Config       `yaml:"metrics"`
	Database      localdb.Config       `yaml:"database"`
	SwarmStore    swarmstore.Config    `yaml:"swarmstore"`
	TrackerServer trackerserver.Config `yaml:"trackerserver"`

	// Policy lives in its own file so operators can edit and SIGHUP-reload
	// it without restarting the tracker.
	PolicyFile string `yaml:"policy_file"`
}
