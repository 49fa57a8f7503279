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

package badger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/gavel/database/types"
)

// badgerTxn wraps a badger transaction and implements types.Txn
type badgerTxn struct {
	store    *BlobStoreBadger
	tx       *badger.Txn
	finished bool
}

func (t *badgerTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Commit()
}

func (t *badgerTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.tx.Discard()
	return nil
}

// BlobStoreBadger stores raw key/value data in badger. Data is kept in
// memory only when no data directory is configured.
type BlobStoreBadger struct {
	promRegistry   prometheus.Registerer
	db             *badger.DB
	logger         *slog.Logger
	gcStopCh       chan struct{}
	dataDir        string
	gcWg           sync.WaitGroup
	gcInterval     time.Duration
	blockCacheSize uint64
	indexCacheSize uint64
	syncWrites     bool
}

// New opens a badger blob store
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	d := &BlobStoreBadger{
		gcInterval:     DefaultGcInterval,
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	var badgerOpts badger.Options
	if d.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
		// Value log GC is not supported for in-memory stores
		d.gcInterval = 0
	} else {
		if _, err := os.Stat(d.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(d.dataDir, "blob")).
			WithBlockCacheSize(int64(d.blockCacheSize)). //nolint:gosec
			WithIndexCacheSize(int64(d.indexCacheSize)). //nolint:gosec
			WithCompression(options.Snappy).
			WithSyncWrites(d.syncWrites)
	}
	badgerOpts = badgerOpts.
		WithLogger(NewBadgerLogger(d.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	d.db = db
	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	if d.gcInterval > 0 {
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.blobGc(d.gcStopCh)
	}
	return d, nil
}

func (d *BlobStoreBadger) blobGc(stop <-chan struct{}) {
	defer d.gcWg.Done()
	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Keep collecting while there is something to rewrite
			for {
				err := d.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						"blob DB: GC failure",
						"component", "database",
						"error", err,
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreBadger) Start() error {
	// The database is opened by New()
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreBadger) Stop() error {
	return d.Close()
}

// Close stops background GC and closes the database
func (d *BlobStoreBadger) Close() error {
	if d.gcStopCh != nil {
		close(d.gcStopCh)
		d.gcStopCh = nil
		d.gcWg.Wait()
	}
	return d.db.Close()
}

// DB returns the database handle
func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

// DataDir returns the configured data directory
func (d *BlobStoreBadger) DataDir() string {
	return d.dataDir
}

// NewTransaction creates a new badger transaction
func (d *BlobStoreBadger) NewTransaction(readWrite bool) types.Txn {
	return &badgerTxn{
		store: d,
		tx:    d.db.NewTransaction(readWrite),
	}
}

func (d *BlobStoreBadger) validateTxn(txn types.Txn) (*badgerTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	tmpTxn, ok := txn.(*badgerTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if tmpTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if tmpTxn.finished {
		return nil, types.ErrTxnFinished
	}
	return tmpTxn, nil
}

// Get retrieves a value within a transaction
func (d *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	tmpTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	item, err := tmpTxn.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key/value pair within a transaction
func (d *BlobStoreBadger) Set(txn types.Txn, key []byte, val []byte) error {
	tmpTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return tmpTxn.tx.Set(key, val)
}

// Delete removes a key within a transaction
func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	tmpTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return tmpTxn.tx.Delete(key)
}

// Iterate calls fn for each key with the given prefix, in key order
func (d *BlobStoreBadger) Iterate(
	txn types.Txn,
	prefix []byte,
	fn types.BlobIterFunc,
) error {
	tmpTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	iter := tmpTxn.tx.NewIterator(badger.IteratorOptions{
		Prefix:         prefix,
		PrefetchValues: true,
		PrefetchSize:   100,
	})
	defer iter.Close()
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), val); err != nil {
			return err
		}
	}
	return nil
}
