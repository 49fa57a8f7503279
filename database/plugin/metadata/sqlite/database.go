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

package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
)

const vacuumInterval = 24 * time.Hour

var journalModeRegexp = regexp.MustCompile(`^(?i)(delete|truncate|persist|memory|wal|off)$`)

// memoryDbCounter gives each in-memory store its own shared-cache database
var memoryDbCounter atomic.Uint64

// sqliteTxn wraps a GORM transaction and implements types.Txn
type sqliteTxn struct {
	store    *MetadataStoreSqlite
	db       *gorm.DB
	finished bool
}

func (t *sqliteTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

// MetadataStoreSqlite stores governance state in SQLite
type MetadataStoreSqlite struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	timerVacuum  *time.Timer
	dataDir      string
	vacuumWG     sync.WaitGroup
	journalMode  string
	busyTimeout  int
	timerMutex   sync.Mutex
	vacuum       bool
	closed       bool
}

// NewWithOptions creates a SQLite metadata store. An in-memory database is
// used if no data directory is configured.
func NewWithOptions(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	d := &MetadataStoreSqlite{
		busyTimeout: DefaultBusyTimeout,
		journalMode: DefaultJournalMode,
		vacuum:      true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if !journalModeRegexp.MatchString(d.journalMode) {
		return nil, fmt.Errorf("invalid journal mode: %s", d.journalMode)
	}
	var dsn string
	if d.dataDir == "" {
		dsn = fmt.Sprintf(
			"file:gavel-metadata-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		)
	} else {
		if _, err := os.Stat(d.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(d.dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)",
			filepath.Join(d.dataDir, "metadata.sqlite"),
			d.journalMode,
			d.busyTimeout,
		)
	}
	metadataDb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	d.db = metadataDb
	if err := d.init(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *MetadataStoreSqlite) init() error {
	// Configure tracing for GORM
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	if d.promRegistry != nil {
		d.registerMetrics()
	}
	// Create table schemas
	for _, model := range models.MigrateModels {
		d.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := d.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	d.scheduleVacuum()
	return nil
}

// scheduleVacuum schedules a daily vacuum of on-disk databases
func (d *MetadataStoreSqlite) scheduleVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed || d.dataDir == "" || !d.vacuum {
		return
	}
	d.timerVacuum = time.AfterFunc(vacuumInterval, func() {
		defer d.scheduleVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
				"error", err,
			)
		}
	})
}

func (d *MetadataStoreSqlite) runVacuum() error {
	d.timerMutex.Lock()
	if d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()
	d.logger.Debug(
		"running vacuum on sqlite metadata database",
		"component", "database",
	)
	return d.db.Exec("VACUUM").Error
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Start() error {
	// The database is opened by NewWithOptions()
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Stop() error {
	return d.Close()
}

// Close stops background maintenance and closes the database connection
func (d *MetadataStoreSqlite) Close() error {
	d.timerMutex.Lock()
	if d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	d.timerMutex.Unlock()
	d.vacuumWG.Wait()
	db, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the underlying GORM database handle
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}

// Transaction begins a new database transaction
func (d *MetadataStoreSqlite) Transaction() types.Txn {
	return &sqliteTxn{
		store: d,
		db:    d.db.Begin(),
	}
}

// resolveDB returns the GORM handle to use for an operation: the
// transaction if one is given, otherwise the database itself
func (d *MetadataStoreSqlite) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.db, nil
	}
	tmpTxn, ok := txn.(*sqliteTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if tmpTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if tmpTxn.finished {
		return nil, types.ErrTxnFinished
	}
	if tmpTxn.db.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tmpTxn.db.Error)
	}
	return tmpTxn.db, nil
}
