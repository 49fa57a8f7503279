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

package gavel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/rpc"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	ledgerState   *ledger.LedgerState
	rpc           *rpc.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// EventBus returns the bus that governance events are published on
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// LedgerState returns the ledger once Run has started it
func (n *Node) LedgerState() *ledger.LedgerState {
	return n.ledgerState
}

func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbNeedsRecovery := false
	dbConfig := &database.Config{
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		n.config.logger.Error(
			"failed to create database",
			"error", err,
		)
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error", err,
			"blob_ahead", dbErr.BlobAhead(),
		)
		dbNeedsRecovery = true
	}
	// Load state
	state, err := ledger.NewLedgerState(
		ledger.LedgerStateConfig{
			Database:     n.db,
			EventBus:     n.eventBus,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
			Genesis:      n.config.genesisMembers,
			QueueSize:    n.config.queueSize,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load state database: %w", err)
	}
	n.ledgerState = state
	stopEventLog := ledger.LogEvents(n.eventBus, n.config.logger)
	n.shutdownFuncs = append(
		n.shutdownFuncs,
		func(context.Context) error {
			stopEventLog()
			return nil
		},
	)
	// Run DB recovery if needed
	if dbNeedsRecovery {
		if err := n.ledgerState.RecoverCommitTimestampConflict(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Start ledger
	if err := n.ledgerState.Start(); err != nil {
		return fmt.Errorf("failed to start ledger: %w", err)
	}
	// Configure RPC
	n.rpc = rpc.NewServer(
		rpc.ServerConfig{
			Logger:          n.config.logger,
			Governance:      n.ledgerState,
			Host:            n.config.rpcHost,
			Port:            n.config.rpcPort,
			TlsCertFilePath: n.config.tlsCertFilePath,
			TlsKeyFilePath:  n.config.tlsKeyFilePath,
		},
	)
	if n.config.rpcListener != nil {
		err = n.rpc.Serve(n.config.rpcListener)
	} else {
		err = n.rpc.Start()
	}
	if err != nil {
		return fmt.Errorf("failed to start RPC server: %w", err)
	}

	// Wait for shutdown signal
	<-n.done
	return nil
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

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.rpc != nil {
		if stopErr := n.rpc.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("rpc shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: flushing state")

	if n.ledgerState != nil {
		if closeErr := n.ledgerState.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("ledger state close: %w", closeErr),
			)
		}
	}

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
