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
	"bytes"
	"fmt"

	"github.com/blinklabs-io/gavel/database/types"
)

// TablePut writes an entry into a named key/value table
func (d *Database) TablePut(table string, key string, value string, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.blob.Set(txn.Blob(), types.TableBlobKey(table, key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", table, key, err)
	}
	return nil
}

// TableGet reads an entry from a named table. A missing entry returns
// types.ErrBlobKeyNotFound.
func (d *Database) TableGet(table string, key string, txn *Txn) (string, error) {
	var ret string
	err := d.withTxn(txn, false, func(txn *Txn) error {
		val, err := d.blob.Get(txn.Blob(), types.TableBlobKey(table, key))
		if err != nil {
			return err
		}
		ret = string(val)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("get %s/%s: %w", table, key, err)
	}
	return ret, nil
}

// TableEntries returns all entries of a named table
func (d *Database) TableEntries(table string, txn *Txn) (map[string]string, error) {
	ret := make(map[string]string)
	prefix := types.TablePrefix(table)
	err := d.withTxn(txn, false, func(txn *Txn) error {
		return d.blob.Iterate(txn.Blob(), prefix, func(key, val []byte) error {
			ret[string(bytes.TrimPrefix(key, prefix))] = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list table %s: %w", table, err)
	}
	return ret, nil
}
