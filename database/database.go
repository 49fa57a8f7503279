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

package database

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/gavel/database/plugin"
	"github.com/blinklabs-io/gavel/database/plugin/blob"
	// Register the built-in blob plugin
	_ "github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	"github.com/blinklabs-io/gavel/database/plugin/metadata"
	// Register the built-in metadata plugin
	_ "github.com/blinklabs-io/gavel/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// Config holds the settings for opening a Database. An empty DataDir keeps
// all data in memory.
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	BlobPlugin     string
	MetadataPlugin string
}

// Database pairs a blob store and a metadata store that are committed
// together
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// New opens the configured stores. If the stores disagree on their last
// commit, the database is returned along with a CommitTimestampError.
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	blobPlugin := config.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	metadataPlugin := config.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	runtimeOpts := plugin.RuntimeOptions{
		Logger:       logger,
		PromRegistry: config.PromRegistry,
		DataDir:      config.DataDir,
	}
	metadataDb, err := metadata.New(metadataPlugin, runtimeOpts)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(blobPlugin, runtimeOpts)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  config.DataDir,
	}
	if err := db.checkCommitTimestamp(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	return errors.Join(
		d.metadata.Close(),
		d.blob.Close(),
	)
}

// withTxn runs fn in txn, or in a new transaction committed on success if
// txn is nil
func (d *Database) withTxn(txn *Txn, readWrite bool, fn func(*Txn) error) error {
	if txn != nil {
		return fn(txn)
	}
	return d.Transaction(readWrite).Do(fn)
}
