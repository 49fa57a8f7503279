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

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/governance"
)

// RecoverCommitTimestampConflict realigns the blob and metadata stores after
// a commit was interrupted between the two. The blob store commits first, so
// when it is ahead the last log entry was stored without its governance
// changes. That entry is applied again to the metadata store, along with the
// action effects it triggered, in the transaction that realigns the commit
// timestamps. It must be called before Start.
func (ls *LedgerState) RecoverCommitTimestampConflict() error {
	if ls.started.Load() {
		return errors.New("ledger already started")
	}
	metadataTimestamp, blobTimestamp, err := ls.db.CommitTimestamps()
	if err != nil {
		return err
	}
	conflict := database.CommitTimestampError{
		MetadataTimestamp: metadataTimestamp,
		BlobTimestamp:     blobTimestamp,
	}
	txn := ls.db.Transaction(true)
	defer txn.Release()
	var entry *database.LogEntry
	if conflict.BlobAhead() {
		entry, err = ls.db.LastLogEntry(txn)
		if err != nil {
			return err
		}
	}
	if entry != nil {
		if err := ls.replayEntry(*entry, txn); err != nil {
			return fmt.Errorf(
				"failed to replay log entry %d (%s): %w",
				entry.Seq,
				entry.Op,
				err,
			)
		}
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to realign commit timestamps: %w", err)
	}
	args := []any{
		"component", "ledger",
		"metadata_timestamp", metadataTimestamp,
		"blob_timestamp", blobTimestamp,
	}
	if entry != nil {
		args = append(args, "replayed_seq", entry.Seq, "replayed_op", entry.Op)
	}
	ls.config.Logger.Warn("realigned database commit timestamps", args...)
	return nil
}

// replayEntry applies a logged transaction to the state held by the
// metadata store. The log entry itself and the blob side of its effects are
// already stored.
func (ls *LedgerState) replayEntry(entry database.LogEntry, txn *database.Txn) error {
	prev, err := loadStoredState(ls.db, txn)
	if err != nil {
		return err
	}
	// The interrupted commit may have advanced the stored counter already
	counter, err := ls.db.GetProposalCounter(txn)
	if err != nil {
		return err
	}
	next := prev.Clone()
	if entry.Op == opGenesis {
		next, err = ls.genesisState(prev)
	} else {
		svc := governance.NewService(next, newTxnHooks(ls.db, txn))
		err = applyEntry(svc, entry)
	}
	if err != nil {
		return err
	}
	next.Proposals.SetNextID(governance.ProposalID(counter))
	return saveChanges(ls.db, prev, next, txn)
}

// applyEntry runs the governance operation recorded in a log entry
func applyEntry(svc *governance.Service, entry database.LogEntry) error {
	member := governance.MemberID(entry.Member)
	switch entry.Op {
	case opPropose:
		var params proposeParams
		if err := json.Unmarshal(entry.Params, &params); err != nil {
			return err
		}
		_, err := svc.ProposeParams(member, string(params.Kind), params.Params)
		return err
	case opVote:
		var params voteParams
		if err := json.Unmarshal(entry.Params, &params); err != nil {
			return err
		}
		_, err := svc.Vote(params.ProposalID, member, params.Accept)
		return err
	case opAck:
		return svc.Ack(member)
	case opRemoval:
		var params removalParams
		if err := json.Unmarshal(entry.Params, &params); err != nil {
			return err
		}
		return svc.Remove(params.ProposalID, member)
	default:
		return fmt.Errorf("unknown log operation %q", entry.Op)
	}
}
