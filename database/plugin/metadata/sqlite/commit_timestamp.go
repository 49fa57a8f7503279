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

	"gorm.io/gorm"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
)

const commitTimestampRowID = 1

// GetCommitTimestamp returns the commit timestamp recorded by the last
// database transaction, or 0 for a fresh store
func (d *MetadataStoreSqlite) GetCommitTimestamp() (int64, error) {
	var row models.CommitTimestamp
	err := d.DB().Take(&row, commitTimestampRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Timestamp, nil
}

func (d *MetadataStoreSqlite) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	// Save inserts the row or updates it in place
	return db.Save(
		&models.CommitTimestamp{
			ID:        commitTimestampRowID,
			Timestamp: timestamp,
		},
	).Error
}
