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

	"github.com/blinklabs-io/gavel/database/types"
)

// GetCommitTimestamp returns the commit timestamp recorded by the last
// database transaction, or 0 for a fresh store
func (d *BlobStoreBadger) GetCommitTimestamp() (int64, error) {
	txn := d.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := d.Get(txn, []byte(types.CommitTimestampBlobKey))
	if errors.Is(err, types.ErrBlobKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(types.BytesToUint64(val)), nil //nolint:gosec
}

func (d *BlobStoreBadger) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	return d.Set(
		txn,
		[]byte(types.CommitTimestampBlobKey),
		types.Uint64ToBytes(uint64(timestamp)), //nolint:gosec
	)
}
