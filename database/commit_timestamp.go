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
	"fmt"
)

// CommitTimestampError is returned when the blob and metadata stores were
// not committed together, as happens after a crash between the two commits
type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: metadata store at %d, blob store at %d",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

// BlobAhead reports whether the blob store holds the newer commit
func (e CommitTimestampError) BlobAhead() bool {
	return e.BlobTimestamp > e.MetadataTimestamp
}

// CommitTimestamps returns the timestamp of the last commit seen by each
// store
func (d *Database) CommitTimestamps() (metadataTimestamp int64, blobTimestamp int64, err error) {
	metadataTimestamp, err = d.metadata.GetCommitTimestamp()
	if err != nil {
		return 0, 0, fmt.Errorf("metadata commit timestamp: %w", err)
	}
	blobTimestamp, err = d.blob.GetCommitTimestamp()
	if err != nil {
		return 0, 0, fmt.Errorf("blob commit timestamp: %w", err)
	}
	return metadataTimestamp, blobTimestamp, nil
}

func (d *Database) checkCommitTimestamp() error {
	metadataTimestamp, blobTimestamp, err := d.CommitTimestamps()
	if err != nil {
		return err
	}
	if metadataTimestamp == blobTimestamp {
		return nil
	}
	return CommitTimestampError{
		MetadataTimestamp: metadataTimestamp,
		BlobTimestamp:     blobTimestamp,
	}
}

// updateCommitTimestamp records the timestamp in both stores as part of txn
func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	if err := d.metadata.SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return fmt.Errorf("metadata commit timestamp: %w", err)
	}
	if err := d.blob.SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return fmt.Errorf("blob commit timestamp: %w", err)
	}
	return nil
}
