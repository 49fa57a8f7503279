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

package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/ledger"
)

var genesisCerts = [][]byte{
	[]byte("member-1-cert"),
	[]byte("member-2-cert"),
}

func openDatabase(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	return db
}

func startLedger(
	t *testing.T,
	db *database.Database,
	bus *event.EventBus,
) *ledger.LedgerState {
	t.Helper()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:     db,
		EventBus:     bus,
		PromRegistry: prometheus.NewRegistry(),
		Genesis:      genesisCerts,
	})
	require.NoError(t, err)
	require.NoError(t, ls.Start())
	return ls
}

func nextEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return event.Event{}
}

func TestLedgerReferenceScenario(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	db := openDatabase(t, "")
	defer db.Close()
	ls := startLedger(t, db, nil)
	defer ls.Close()
	ctx := context.Background()

	members, err := ls.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, member := range members {
		assert.Equal(t, governance.MemberStatusActive, member.Status)
	}

	res, err := ls.Propose(ctx, 1, governance.AcceptNode{NodeID: 0})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(0), res.ID)
	assert.False(t, res.Completed)

	vres, err := ls.Vote(ctx, 0, 1, true)
	require.NoError(t, err)
	assert.True(t, vres.Recorded)
	assert.False(t, vres.Completed)

	vres, err = ls.Vote(ctx, 0, 2, true)
	require.NoError(t, err)
	assert.True(t, vres.Completed)
	require.NotNil(t, vres.Result)
	assert.False(t, vres.Result.Failed())

	nodes, err := db.GetNodes(nil)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Trusted)

	// Admit a third member, who is Accepted until acknowledging
	res, err = ls.Propose(ctx, 1, governance.AddMember{Certificate: []byte("member-3-cert")})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(1), res.ID)
	vres, err = ls.Vote(ctx, res.ID, 2, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	assert.Equal(t, governance.MemberID(3), vres.Result.MemberID)

	_, err = ls.Propose(ctx, 3, governance.AcceptNode{NodeID: 7})
	require.ErrorIs(t, err, governance.ErrInsufficientRights)

	require.NoError(t, ls.Ack(ctx, 3))
	res, err = ls.Propose(ctx, 3, governance.AcceptNode{NodeID: 7})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(2), res.ID)
	assert.False(t, res.Completed)

	proposals, err := ls.Proposals()
	require.NoError(t, err)
	require.Len(t, proposals, 3)
	assert.Equal(t, governance.ProposalStateOpen, proposals[2].State())

	// Rejected transactions are not logged
	entries, err := ls.Log()
	require.NoError(t, err)
	ops := make([]string, 0, len(entries))
	for idx, entry := range entries {
		assert.Equal(t, uint64(idx), entry.Seq)
		ops = append(ops, entry.Op)
	}
	assert.Equal(
		t,
		[]string{"genesis", "propose", "vote", "vote", "propose", "vote", "ack", "propose"},
		ops,
	)
}

func TestLedgerRejectionsLeaveStateUnchanged(t *testing.T) {
	db := openDatabase(t, "")
	defer db.Close()
	ls := startLedger(t, db, nil)
	defer ls.Close()
	ctx := context.Background()

	res, err := ls.Propose(ctx, 1, governance.RawTablePut{Table: "settings", Key: "k", Value: "v"})
	require.NoError(t, err)

	_, err = ls.Vote(ctx, 99, 2, true)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	err = ls.Remove(ctx, res.ID, 2)
	require.ErrorIs(t, err, governance.ErrNotProposer)
	err = ls.Ack(ctx, 42)
	require.ErrorIs(t, err, governance.ErrUnknownMember)
	_, err = ls.Propose(ctx, 1, nil)
	require.ErrorIs(t, err, governance.ErrUnknownAction)

	proposal, err := ls.Proposal(res.ID)
	require.NoError(t, err)
	assert.Equal(t, map[governance.MemberID]bool{1: true}, proposal.Votes)
	logLength, err := db.LogLength(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), logLength)

	require.NoError(t, ls.Remove(ctx, res.ID, 1))
	_, err = ls.Vote(ctx, res.ID, 2, true)
	require.ErrorIs(t, err, governance.ErrProposalClosed)
	_, err = db.TableGet("settings", "k", nil)
	require.Error(t, err)
}

func TestLedgerRestart(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()

	db := openDatabase(t, dataDir)
	ls := startLedger(t, db, nil)
	res, err := ls.Propose(ctx, 1, governance.RawTablePut{Table: "settings", Key: "mode", Value: "strict"})
	require.NoError(t, err)
	vres, err := ls.Vote(ctx, res.ID, 2, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	removed, err := ls.Propose(ctx, 2, governance.AddUser{Certificate: []byte("user-cert")})
	require.NoError(t, err)
	require.NoError(t, ls.Remove(ctx, removed.ID, 2))
	open, err := ls.Propose(ctx, 2, governance.RevokeMember{MemberID: 1})
	require.NoError(t, err)
	vres, err = ls.Vote(ctx, open.ID, 1, false)
	require.NoError(t, err)
	assert.False(t, vres.Completed)
	before, err := ls.Proposals()
	require.NoError(t, err)
	require.NoError(t, ls.Close())
	require.NoError(t, db.Close())

	db = openDatabase(t, dataDir)
	defer db.Close()
	ls = startLedger(t, db, nil)
	defer ls.Close()

	after, err := ls.Proposals()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	members, err := ls.Members()
	require.NoError(t, err)
	// Genesis is only applied to an empty database
	assert.Len(t, members, 2)
	val, err := db.TableGet("settings", "mode", nil)
	require.NoError(t, err)
	assert.Equal(t, "strict", val)

	// Ids keep increasing after a restart
	next, err := ls.Propose(ctx, 1, governance.AcceptNode{NodeID: 3})
	require.NoError(t, err)
	assert.Equal(t, open.ID+1, next.ID)
}

func TestLedgerEvents(t *testing.T) {
	db := openDatabase(t, "")
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, createdCh := bus.Subscribe(ledger.ProposalCreatedEventType)
	_, voteCh := bus.Subscribe(ledger.ProposalVoteEventType)
	_, completedCh := bus.Subscribe(ledger.ProposalCompletedEventType)
	_, failedCh := bus.Subscribe(ledger.ActionFailedEventType)
	_, removedCh := bus.Subscribe(ledger.ProposalRemovedEventType)
	_, memberCh := bus.Subscribe(ledger.MemberStatusEventType)
	ls := startLedger(t, db, bus)
	defer ls.Close()
	ctx := context.Background()

	res, err := ls.Propose(ctx, 1, governance.AcceptNode{NodeID: 5})
	require.NoError(t, err)
	created := nextEvent(t, createdCh).Data.(ledger.ProposalCreatedEvent)
	assert.Equal(t, res.ID, created.ProposalID)
	assert.Equal(t, governance.ActionKindAcceptNode, created.ActionKind)

	_, err = ls.Vote(ctx, res.ID, 2, true)
	require.NoError(t, err)
	vote := nextEvent(t, voteCh).Data.(ledger.ProposalVoteEvent)
	assert.Equal(t, governance.MemberID(2), vote.Voter)
	completed := nextEvent(t, completedCh).Data.(ledger.ProposalCompletedEvent)
	assert.Equal(t, res.ID, completed.ProposalID)
	assert.False(t, completed.Result.Failed())

	// Trusting the same node again fails but still completes
	res, err = ls.Propose(ctx, 2, governance.AcceptNode{NodeID: 5})
	require.NoError(t, err)
	nextEvent(t, createdCh)
	vres, err := ls.Vote(ctx, res.ID, 1, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	require.True(t, vres.Result.Failed())
	nextEvent(t, voteCh)
	completed = nextEvent(t, completedCh).Data.(ledger.ProposalCompletedEvent)
	assert.True(t, completed.Result.Failed())
	failed := nextEvent(t, failedCh).Data.(ledger.ActionFailedEvent)
	assert.Equal(t, res.ID, failed.ProposalID)
	assert.Equal(t, governance.ActionKindAcceptNode, failed.Failure.Kind)

	res, err = ls.Propose(ctx, 1, governance.AddMember{Certificate: []byte("member-3-cert")})
	require.NoError(t, err)
	nextEvent(t, createdCh)
	_, err = ls.Vote(ctx, res.ID, 2, true)
	require.NoError(t, err)
	nextEvent(t, voteCh)
	nextEvent(t, completedCh)
	member := nextEvent(t, memberCh).Data.(ledger.MemberStatusEvent)
	assert.Equal(t, governance.MemberID(3), member.MemberID)
	assert.True(t, member.New)
	assert.Equal(t, governance.MemberStatusAccepted, member.Status)

	require.NoError(t, ls.Ack(ctx, 3))
	member = nextEvent(t, memberCh).Data.(ledger.MemberStatusEvent)
	assert.False(t, member.New)
	assert.Equal(t, governance.MemberStatusAccepted, member.PreviousStatus)
	assert.Equal(t, governance.MemberStatusActive, member.Status)

	res, err = ls.Propose(ctx, 3, governance.AcceptNode{NodeID: 6})
	require.NoError(t, err)
	nextEvent(t, createdCh)
	require.NoError(t, ls.Remove(ctx, res.ID, 3))
	removed := nextEvent(t, removedCh).Data.(ledger.ProposalRemovedEvent)
	assert.Equal(t, res.ID, removed.ProposalID)
	assert.Equal(t, governance.MemberID(3), removed.Requester)
}

func TestLedgerClosed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	db := openDatabase(t, "")
	defer db.Close()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database: db,
		Genesis:  genesisCerts,
	})
	require.NoError(t, err)
	_, err = ls.Propose(context.Background(), 1, governance.AcceptNode{NodeID: 1})
	require.ErrorIs(t, err, ledger.ErrLedgerNotStarted)
	_, err = ls.Members()
	require.ErrorIs(t, err, ledger.ErrLedgerNotStarted)

	require.NoError(t, ls.Start())
	require.NoError(t, ls.Close())
	require.NoError(t, ls.Close())
	_, err = ls.Propose(context.Background(), 1, governance.AcceptNode{NodeID: 1})
	require.ErrorIs(t, err, ledger.ErrLedgerClosed)
	// Committed state stays readable
	members, err := ls.Members()
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestLedgerCancelledContext(t *testing.T) {
	db := openDatabase(t, "")
	defer db.Close()
	ls := startLedger(t, db, nil)
	defer ls.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ls.Vote(ctx, 0, 1, true)
	require.Error(t, err)
	// The request may have been queued before the cancellation was noticed
	if !errors.Is(err, context.Canceled) {
		require.ErrorIs(t, err, governance.ErrProposalNotFound)
	}
}

func TestNewLedgerStateRequiresDatabase(t *testing.T) {
	_, err := ledger.NewLedgerState(ledger.LedgerStateConfig{})
	require.Error(t, err)
}

func TestLedgerProposeParams(t *testing.T) {
	db := openDatabase(t, "")
	defer db.Close()
	ls := startLedger(t, db, nil)
	defer ls.Close()
	ctx := context.Background()

	_, err := ls.ProposeParams(ctx, 9, "bogus", []byte(`{`))
	require.ErrorIs(t, err, governance.ErrInsufficientRights)
	_, err = ls.ProposeParams(ctx, 1, "bogus", []byte(`{}`))
	require.ErrorIs(t, err, governance.ErrUnknownAction)

	res, err := ls.ProposeParams(ctx, 1, "accept_node", []byte(`{ "node_id" : 12 }`))
	require.NoError(t, err)
	proposal, err := ls.Proposal(res.ID)
	require.NoError(t, err)
	assert.Equal(t, governance.AcceptNode{NodeID: 12}, proposal.Action)
	entries, err := ls.Log()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.JSONEq(t, `{"kind":"accept_node","params":{"node_id":12}}`, string(last.Params))
}

func TestLedgerRevocationCompletesWaitingProposals(t *testing.T) {
	db := openDatabase(t, "")
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	_, completedCh := bus.Subscribe(ledger.ProposalCompletedEventType)
	ls := startLedger(t, db, bus)
	defer ls.Close()
	ctx := context.Background()

	for _, cert := range []string{"member-3-cert", "member-4-cert"} {
		res, err := ls.Propose(ctx, 1, governance.AddMember{Certificate: []byte(cert)})
		require.NoError(t, err)
		vres, err := ls.Vote(ctx, res.ID, 2, true)
		require.NoError(t, err)
		require.True(t, vres.Completed)
		require.NoError(t, ls.Ack(ctx, vres.Result.MemberID))
		nextEvent(t, completedCh)
	}

	waiting, err := ls.Propose(ctx, 1, governance.AcceptNode{NodeID: 3})
	require.NoError(t, err)
	_, err = ls.Vote(ctx, waiting.ID, 2, true)
	require.NoError(t, err)
	revoke, err := ls.Propose(ctx, 3, governance.RevokeMember{MemberID: 4})
	require.NoError(t, err)
	_, err = ls.Vote(ctx, revoke.ID, 1, true)
	require.NoError(t, err)
	vres, err := ls.Vote(ctx, revoke.ID, 2, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)

	completed := nextEvent(t, completedCh).Data.(ledger.ProposalCompletedEvent)
	assert.Equal(t, revoke.ID, completed.ProposalID)
	completed = nextEvent(t, completedCh).Data.(ledger.ProposalCompletedEvent)
	assert.Equal(t, waiting.ID, completed.ProposalID)
	assert.Equal(t, governance.ActionKindAcceptNode, completed.Result.Kind)
	proposal, err := ls.Proposal(waiting.ID)
	require.NoError(t, err)
	assert.True(t, proposal.Completed)
}

// interruptCommit stores a log entry and the blob writes of its transaction
// without the matching metadata commit, as a crash between the two commits
// would leave them
func interruptCommit(
	t *testing.T,
	dataDir string,
	entry database.LogEntry,
	blobWrites func(*database.Database, *database.Txn),
) {
	t.Helper()
	db := openDatabase(t, dataDir)
	metadataTs, _, err := db.CommitTimestamps()
	require.NoError(t, err)
	txn := db.Transaction(true)
	require.NoError(t, db.AppendLog(&entry, txn))
	if blobWrites != nil {
		blobWrites(db, txn)
	}
	require.NoError(t, db.Blob().SetCommitTimestamp(metadataTs+1, txn.Blob()))
	require.NoError(t, txn.Blob().Commit())
	require.NoError(t, txn.Metadata().Rollback())
	require.NoError(t, db.Close())
}

func TestLedgerRecoverBlobAhead(t *testing.T) {
	testDefs := []struct {
		name       string
		entry      database.LogEntry
		blobWrites func(*testing.T, *database.Database, *database.Txn)
		check      func(*testing.T, *database.Database, *ledger.LedgerState)
	}{
		{
			name: "vote",
			entry: database.LogEntry{
				Op:     "vote",
				Member: 2,
				Params: []byte(`{"proposal_id":0,"accept":true}`),
			},
			blobWrites: func(t *testing.T, db *database.Database, txn *database.Txn) {
				require.NoError(t, db.TablePut("settings", "mode", "strict", txn))
			},
			check: func(t *testing.T, db *database.Database, ls *ledger.LedgerState) {
				proposal, err := ls.Proposal(0)
				require.NoError(t, err)
				assert.True(t, proposal.Completed)
				assert.True(t, proposal.Votes[2])
				val, err := db.TableGet("settings", "mode", nil)
				require.NoError(t, err)
				assert.Equal(t, "strict", val)
			},
		},
		{
			name: "propose",
			entry: database.LogEntry{
				Op:     "propose",
				Member: 1,
				Params: []byte(`{"kind":"accept_node","params":{"node_id":8}}`),
			},
			blobWrites: func(t *testing.T, db *database.Database, txn *database.Txn) {
				require.NoError(t, db.SetProposalCounter(2, txn))
			},
			check: func(t *testing.T, db *database.Database, ls *ledger.LedgerState) {
				proposal, err := ls.Proposal(1)
				require.NoError(t, err)
				assert.Equal(t, governance.AcceptNode{NodeID: 8}, proposal.Action)
				assert.True(t, proposal.Open)
				res, err := ls.Propose(context.Background(), 2, governance.AcceptNode{NodeID: 9})
				require.NoError(t, err)
				assert.Equal(t, governance.ProposalID(2), res.ID)
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			dataDir := t.TempDir()
			db := openDatabase(t, dataDir)
			ls := startLedger(t, db, nil)
			_, err := ls.Propose(
				context.Background(),
				1,
				governance.RawTablePut{Table: "settings", Key: "mode", Value: "strict"},
			)
			require.NoError(t, err)
			require.NoError(t, ls.Close())
			require.NoError(t, db.Close())

			testDef.entry.Timestamp = time.Now()
			interruptCommit(
				t,
				dataDir,
				testDef.entry,
				func(db *database.Database, txn *database.Txn) {
					testDef.blobWrites(t, db, txn)
				},
			)

			db, err = database.New(&database.Config{DataDir: dataDir})
			require.NotNil(t, db)
			var tsErr database.CommitTimestampError
			require.ErrorAs(t, err, &tsErr)
			require.True(t, tsErr.BlobAhead())
			ls, err = ledger.NewLedgerState(ledger.LedgerStateConfig{
				Database: db,
				Genesis:  genesisCerts,
			})
			require.NoError(t, err)
			require.NoError(t, ls.RecoverCommitTimestampConflict())
			require.NoError(t, ls.Start())
			testDef.check(t, db, ls)
			// Genesis, the first proposal and the replayed entry
			entries, err := ls.Log()
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(entries), 3)
			assert.Equal(t, testDef.entry.Op, entries[2].Op)
			require.NoError(t, ls.Close())
			require.NoError(t, db.Close())

			db, err = database.New(&database.Config{DataDir: dataDir})
			require.NoError(t, err)
			require.NoError(t, db.Close())
		})
	}
}
