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
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/database/types"
)

// Txn coordinates a blob transaction and a metadata transaction so that
// both commit together
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:          db,
		readWrite:   readWrite,
		blobTxn:     db.Blob().NewTransaction(readWrite),
		metadataTxn: db.Metadata().Transaction(),
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the underlying metadata transaction handle
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// Do executes the specified function in the context of the transaction. Any errors returned will result
// in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit writes a shared commit timestamp to both stores and commits them,
// blob first
func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	// Read-only transactions only need their resources released
	if !t.readWrite {
		return t.rollback()
	}
	commitTimestamp := time.Now().UnixMilli()
	if err := t.db.updateCommitTimestamp(t, commitTimestamp); err != nil {
		_ = t.rollback()
		return fmt.Errorf("failed to update commit timestamp: %w", err)
	}
	t.finished = true
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		return fmt.Errorf("blob commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		t.db.logger.Error(
			"partial commit: blob committed, metadata failed",
			"component", "database",
			"error", err,
		)
		return fmt.Errorf(
			"partial commit: metadata commit failed after blob commit: %w",
			err,
		)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	var errs []error
	if err := t.blobTxn.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("blob rollback: %w", err))
	}
	if err := t.metadataTxn.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
	}
	return errors.Join(errs...)
}

// Release rolls back the transaction if it is still open, logging any
// failure. It is meant for deferred cleanup.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
