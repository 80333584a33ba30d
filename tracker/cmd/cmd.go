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
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/andres-erbsen/clock"
	"github.com/spf13/cobra"

	"github.com/pelagic-io/mantaray/localdb"
	"github.com/pelagic-io/mantaray/metrics"
	"github.com/pelagic-io/mantaray/tracker/admission"
	"github.com/pelagic-io/mantaray/tracker/policy"
	"github.com/pelagic-io/mantaray/tracker/registry"
	"github.com/pelagic-io/mantaray/tracker/swarmstore"
	"github.com/pelagic-io/mantaray/tracker/trackerserver"
	"github.com/pelagic-io/mantaray/utils/configutil"
	"github.com/pelagic-io/mantaray/utils/log"
)

var (
	port       int
	configFile string
	cluster    string

	rootCmd = &cobra.Command{
		Short: "mantaray-tracker serves the announce and scrape protocol for a private swarm.",
		Run: func(rootCmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(
		&port, "port", "", 8080, "port to listen on")
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "", "", "configuration file path")
	rootCmd.PersistentFlags().StringVarP(
		&cluster, "cluster", "", "", "cluster name (e.g. prod01-zone1)")
}

// Execute runs the tracker command.
func Execute() {
	rootCmd.Execute()
}

func run() {
	var config Config
	if err := configutil.Load(configFile, &config); err != nil {
		panic(err)
	}
	log.ConfigureLogger(config.ZapLogging)

	stats, closer, err := metrics.New(config.Metrics, cluster)
	if err != nil {
		log.Fatalf("Failed to init metrics: %s", err)
	}
	defer closer.Close()

	go metrics.EmitVersion(stats)

	db, err := localdb.New(config.Database)
	if err != nil {
		log.Fatalf("Error connecting to local database: %s", err)
	}
	defer db.Close()

	reg := registry.New(db, clock.New())

	swarms, err := swarmstore.NewStore(config.SwarmStore, clock.New())
	if err != nil {
		log.Fatalf("Error creating swarm store: %s", err)
	}
	defer swarms.Close()

	provider, err := policy.NewProvider(config.PolicyFile)
	if err != nil {
		log.Fatalf("Error loading tracker policy: %s", err)
	}
	go reloadPolicyOnSignal(provider)

	activity := admission.NewActivityStore(clock.New())

	server := trackerserver.New(
		config.TrackerServer, stats, provider, swarms, reg, activity)

	addr := fmt.Sprintf(":%d", port)
	log.Infof("Listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, server.Handler()))
}

// reloadPolicyOnSignal re-reads the policy file on SIGHUP. In-flight
// requests keep the snapshot they started with.
func reloadPolicyOnSignal(provider *policy.Provider) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	for range c {
		if err := provider.Reload(); err != nil {
			log.Errorf("Error reloading policy: %s", err)
			continue
		}
	}
}
