// Copyright 2026 Blink Labs Software
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

package gobject

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gobject/chainindex"
	"github.com/blinklabs-io/gobject/database"
	"github.com/blinklabs-io/gobject/event"
	"github.com/blinklabs-io/gobject/governance"
	"github.com/blinklabs-io/gobject/roster"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	roster        *roster.Roster
	chainClient   *chainindex.Client
	manager       *governance.Manager
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	started       chan struct{}
	shutdownOnce  sync.Once
	startOnce     sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
		started:  make(chan struct{}),
	}
	if err := n.configPopulateParams(); err != nil {
		eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := n.configValidate(); err != nil {
		eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts all components and blocks until the node is stopped or the
// context is cancelled
func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(
		database.WithLogger(n.config.logger),
		database.WithDataDir(n.config.dataDir),
	)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Load roster
	n.roster = roster.New(
		roster.WithLogger(n.config.logger),
		roster.WithEventBus(n.eventBus),
	)
	if n.config.rosterFile != "" {
		if err := n.roster.LoadFile(n.config.rosterFile); err != nil {
			return err
		}
	}
	// Configure chain index
	chain := n.config.chainIndex
	if chain == nil {
		client, err := chainindex.NewClient(
			chainindex.ChainIndexConfig{
				Logger:       n.config.logger,
				EventBus:     n.eventBus,
				PromRegistry: n.config.promRegistry,
				Host:         n.config.rpcHost,
				User:         n.config.rpcUser,
				Pass:         n.config.rpcPass,
				TLS:          n.config.rpcTls,
				PollInterval: n.config.chainPollInterval,
			},
		)
		if err != nil {
			return err
		}
		n.chainClient = client
		chain = client
	}
	// Load governance manager
	manager, err := governance.NewManager(
		governance.ManagerConfig{
			PromRegistry:        n.config.promRegistry,
			Logger:              n.config.logger,
			Roster:              n.roster,
			Chain:               chain,
			Relay:               governance.NewEventRelay(n.eventBus),
			Store:               n.db,
			Params:              n.config.params,
			MaintenanceInterval: n.config.maintenanceInterval,
			ValidationWorkers:   n.config.validationWorkers,
			RateChecks:          n.config.rateChecks,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load governance manager: %w", err)
	}
	n.manager = manager
	if err := n.manager.Load(ctx); err != nil {
		return fmt.Errorf("failed to load governance objects: %w", err)
	}
	// Subscribe to roster and chain events
	n.eventBus.SubscribeFunc(
		event.RosterChangeEventType,
		n.handleRosterChangeEvent,
	)
	n.eventBus.SubscribeFunc(
		event.ChainTipEventType,
		n.handleChainTipEvent,
	)
	n.eventBus.SubscribeFunc(
		governance.ObjectRelayEventType,
		n.handleRelayEvent,
	)
	n.eventBus.SubscribeFunc(
		governance.VoteRelayEventType,
		n.handleRelayEvent,
	)
	if err := n.manager.Start(ctx); err != nil {
		return err
	}
	if n.chainClient != nil {
		if err := n.chainClient.Start(ctx); err != nil {
			return err
		}
	}
	n.config.logger.Info(
		fmt.Sprintf(
			"governance node started on network %s with %d voters",
			n.config.params.Name,
			n.roster.Len(),
		),
		"component", "node",
	)
	n.startOnce.Do(func() { close(n.started) })

	// Wait for shutdown signal
	select {
	case <-n.done:
	case <-ctx.Done():
	}
	return nil
}

// Started returns a channel that is closed once Run has started all
// components
func (n *Node) Started() <-chan struct{} {
	return n.started
}

// Manager returns the governance manager. It is nil until Run has started
func (n *Node) Manager() *governance.Manager {
	return n.manager
}

// Roster returns the voter roster. It is nil until Run has started
func (n *Node) Roster() *roster.Roster {
	return n.roster
}

// EventBus returns the node event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// ReloadRoster reloads the masternode list from the configured roster file
func (n *Node) ReloadRoster() error {
	if n.roster == nil {
		return errors.New("node not started")
	}
	if n.config.rosterFile == "" {
		return errors.New("no roster file configured")
	}
	return n.roster.LoadFile(n.config.rosterFile)
}

func (n *Node) handleRosterChangeEvent(evt event.Event) {
	e, ok := evt.Data.(event.RosterChangeEvent)
	if !ok {
		return
	}
	if e.Reindexed {
		n.manager.RebuildIndexes()
	}
	if e.Removed > 0 {
		if err := n.manager.ClearMasternodeVotes(); err != nil {
			n.config.logger.Error(
				"failed to clear votes of removed voters",
				"component", "node",
				"error", err,
			)
		}
	}
	// Quorum thresholds follow the enabled voter count
	n.manager.TriggerMaintenance()
}

func (n *Node) handleChainTipEvent(evt event.Event) {
	e, ok := evt.Data.(event.ChainTipEvent)
	if !ok {
		return
	}
	n.config.logger.Debug(
		fmt.Sprintf("new chain tip at height %d", e.Height),
		"component", "node",
	)
	// Postponed objects may have gained confirmations
	n.manager.TriggerMaintenance()
}

func (n *Node) handleRelayEvent(evt event.Event) {
	e, ok := evt.Data.(governance.RelayEvent)
	if !ok {
		return
	}
	n.config.logger.Debug(
		fmt.Sprintf("relaying inventory %s", e.Hash),
		"component", "node",
		"type", string(evt.Type),
	)
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	if n.chainClient != nil {
		n.chainClient.Close()
	}
	if n.manager != nil {
		n.manager.Stop()
		// Persist anything changed since the last maintenance pass
		if maintainErr := n.manager.Maintain(ctx); maintainErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("final maintenance: %w", maintainErr),
			)
		}
	}

	// Phase 2: Stop event delivery
	n.eventBus.Stop()

	// Phase 3: Close database
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Flush traces
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown func: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	close(n.done)
	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	return err
}
