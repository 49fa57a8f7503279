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

package types

import (
	"encoding/binary"
	"slices"
)

const (
	TableBlobKeyPrefix     = "table/"
	LogBlobKeyPrefix       = "log/"
	ProposalCounterBlobKey = "proposal_next_id"
	LogSequenceBlobKey     = "log_sequence"
	CommitTimestampBlobKey = "commit_timestamp"
)

func Uint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

func BytesToUint64(input []byte) uint64 {
	if len(input) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(input)
}

// TablePrefix returns the key prefix shared by all entries of a table
func TablePrefix(table string) []byte {
	return slices.Concat(
		[]byte(TableBlobKeyPrefix),
		[]byte(table),
		[]byte("/"),
	)
}

// TableBlobKey returns the key of a table entry
func TableBlobKey(table string, key string) []byte {
	return slices.Concat(TablePrefix(table), []byte(key))
}

// LogBlobKey returns the key of a transaction log entry. Sequence numbers
// are big-endian so entries sort in log order.
func LogBlobKey(seq uint64) []byte {
	return slices.Concat([]byte(LogBlobKeyPrefix), Uint64ToBytes(seq))
}
