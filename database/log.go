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
	"encoding/json"
	"fmt"
	"time"

	"github.com/blinklabs-io/gavel/database/types"
)

// LogEntry records one applied governance transaction
type LogEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Op        string          `json:"op"`
	Params    json.RawMessage `json:"params,omitempty"`
	Seq       uint64          `json:"seq"`
	Member    uint64          `json:"member"`
}

// AppendLog assigns the next sequence number to the entry and stores it
func (d *Database) AppendLog(entry *LogEntry, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		seq, err := d.getCounter(types.LogSequenceBlobKey, txn)
		if err != nil {
			return err
		}
		entry.Seq = seq
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode log entry: %w", err)
		}
		if err := d.blob.Set(txn.Blob(), types.LogBlobKey(seq), data); err != nil {
			return fmt.Errorf("store log entry %d: %w", seq, err)
		}
		return d.blob.Set(
			txn.Blob(),
			[]byte(types.LogSequenceBlobKey),
			types.Uint64ToBytes(seq+1),
		)
	})
}

// LogLength returns the number of stored log entries
func (d *Database) LogLength(txn *Txn) (uint64, error) {
	return d.getCounter(types.LogSequenceBlobKey, txn)
}

// LastLogEntry returns the most recent log entry, or nil if the log is empty
func (d *Database) LastLogEntry(txn *Txn) (*LogEntry, error) {
	var ret *LogEntry
	err := d.withTxn(txn, false, func(txn *Txn) error {
		length, err := d.getCounter(types.LogSequenceBlobKey, txn)
		if err != nil || length == 0 {
			return err
		}
		data, err := d.blob.Get(txn.Blob(), types.LogBlobKey(length-1))
		if err != nil {
			return err
		}
		ret = &LogEntry{}
		return json.Unmarshal(data, ret)
	})
	if err != nil {
		return nil, fmt.Errorf("get last log entry: %w", err)
	}
	return ret, nil
}

// LogEntries returns the stored log entries in sequence order
func (d *Database) LogEntries(txn *Txn) ([]LogEntry, error) {
	var ret []LogEntry
	err := d.withTxn(txn, false, func(txn *Txn) error {
		return d.blob.Iterate(
			txn.Blob(),
			[]byte(types.LogBlobKeyPrefix),
			func(key, val []byte) error {
				var entry LogEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return fmt.Errorf("decode log entry %x: %w", key, err)
				}
				ret = append(ret, entry)
				return nil
			},
		)
	})
	if err != nil {
		return nil, fmt.Errorf("get log entries: %w", err)
	}
	return ret, nil
}
