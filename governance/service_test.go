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

package governance_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/gavel/governance"
)

type testNodes struct {
	accepted map[uint64]int
	err      error
}

func (n *testNodes) AcceptNode(nodeID uint64) error {
	if n.err != nil {
		return n.err
	}
	if n.accepted == nil {
		n.accepted = make(map[uint64]int)
	}
	n.accepted[nodeID]++
	return nil
}

type testUsers struct {
	certs [][]byte
}

func (u *testUsers) AddUser(certificate []byte) (uint64, error) {
	u.certs = append(u.certs, certificate)
	return uint64(len(u.certs)), nil
}

type testTables struct {
	entries map[string]string
}

func (t *testTables) PutTableEntry(table string, key string, value string) error {
	if t.entries == nil {
		t.entries = make(map[string]string)
	}
	t.entries[table+"/"+key] = value
	return nil
}

// newTestState returns a state with the given members, assigned ids from 1
func newTestState(t *testing.T, statuses ...governance.MemberStatus) *governance.State {
	t.Helper()
	st := governance.NewState()
	for idx, status := range statuses {
		err := st.Members.Restore(governance.Member{
			ID:          governance.MemberID(idx + 1),
			Certificate: []byte{byte(idx + 1)},
			Status:      status,
		})
		require.NoError(t, err)
	}
	return st
}

func requireCode(t *testing.T, err error, code governance.Code) {
	t.Helper()
	require.Error(t, err)
	gotCode, ok := governance.CodeOf(err)
	require.True(t, ok, "error has no governance code: %v", err)
	require.Equal(t, code, gotCode, "unexpected error: %v", err)
}

func TestReferenceScenario(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusAccepted,
	)
	nodes := &testNodes{}
	svc := governance.NewService(st, governance.Hooks{Nodes: nodes})

	res, err := svc.Propose(1, governance.AcceptNode{NodeID: 0})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(0), res.ID)
	assert.False(t, res.Completed)
	assert.Nil(t, res.Result)

	// Redundant vote from the proposer
	vres, err := svc.Vote(0, 1, true)
	require.NoError(t, err)
	assert.True(t, vres.Recorded)
	assert.False(t, vres.Completed)
	assert.Empty(t, nodes.accepted)

	vres, err = svc.Vote(0, 2, true)
	require.NoError(t, err)
	assert.True(t, vres.Recorded)
	assert.True(t, vres.Completed)
	require.NotNil(t, vres.Result)
	assert.False(t, vres.Result.Failed())
	assert.Equal(t, 1, nodes.accepted[0])

	_, err = svc.Propose(3, governance.AcceptNode{NodeID: 0})
	requireCode(t, err, governance.CodeInsufficientRights)

	require.NoError(t, svc.Ack(3))
	res, err = svc.Propose(3, governance.AcceptNode{NodeID: 0})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(1), res.ID)
	assert.False(t, res.Completed)
}

func TestProposeCompletesWithSingleActiveMember(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive)
	tables := &testTables{}
	svc := governance.NewService(st, governance.Hooks{Tables: tables})
	res, err := svc.Propose(
		1,
		governance.RawTablePut{Table: "settings", Key: "k", Value: "v"},
	)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	require.NotNil(t, res.Result)
	assert.Equal(t, governance.ActionKindRawTablePut, res.Result.Kind)
	assert.Equal(t, "v", tables.entries["settings/k"])
	proposal, err := svc.Proposal(res.ID)
	require.NoError(t, err)
	assert.True(t, proposal.Completed)
	assert.False(t, proposal.Open)
	assert.Equal(t, governance.ProposalStateCompleted, proposal.State())
}

func TestProposalIDsMonotonic(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	svc := governance.NewService(st, governance.Hooks{Nodes: &testNodes{}})
	for i := range 5 {
		res, err := svc.Propose(1, governance.AcceptNode{NodeID: uint64(i)})
		require.NoError(t, err)
		require.Equal(t, governance.ProposalID(i), res.ID)
		if i%2 == 0 {
			require.NoError(t, svc.Remove(res.ID, 1))
		}
	}
	res, err := svc.Propose(2, governance.AcceptNode{NodeID: 99})
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalID(5), res.ID)
	list := svc.Display()
	require.Len(t, list, 6)
	for i, proposal := range list {
		assert.Equal(t, governance.ProposalID(i), proposal.ID)
		assert.True(t, proposal.Votes[proposal.Proposer])
	}
}

func TestNonActiveMembersHaveNoRights(t *testing.T) {
	for _, status := range []governance.MemberStatus{
		governance.MemberStatusProposed,
		governance.MemberStatusAccepted,
		governance.MemberStatusRevoked,
	} {
		t.Run(status.String(), func(t *testing.T) {
			st := newTestState(
				t,
				governance.MemberStatusActive,
				governance.MemberStatusActive,
				governance.MemberStatusActive,
				status,
			)
			svc := governance.NewService(st, governance.Hooks{})
			res, err := svc.Propose(1, governance.AcceptNode{NodeID: 7})
			require.NoError(t, err)
			before := st.Clone()

			_, err = svc.Propose(4, governance.AcceptNode{NodeID: 7})
			requireCode(t, err, governance.CodeInsufficientRights)
			_, err = svc.ProposeParams(4, "bogus", []byte(`{`))
			requireCode(t, err, governance.CodeInsufficientRights)
			_, err = svc.Vote(res.ID, 4, true)
			requireCode(t, err, governance.CodeInsufficientRights)
			assert.Empty(t, governance.ChangedProposals(before, st))
			assert.Empty(t, governance.ChangedMembers(before, st))
			assert.Equal(t, before.Proposals.NextID(), st.Proposals.NextID())
		})
	}
	t.Run("unknown", func(t *testing.T) {
		st := newTestState(t, governance.MemberStatusActive)
		svc := governance.NewService(st, governance.Hooks{})
		_, err := svc.Propose(42, governance.AcceptNode{NodeID: 7})
		require.ErrorIs(t, err, governance.ErrInsufficientRights)
		_, err = svc.ProposeParams(42, "accept_node", []byte(`{}`))
		require.ErrorIs(t, err, governance.ErrInsufficientRights)
	})
}

func TestProposeParams(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive)
	svc := governance.NewService(st, governance.Hooks{})
	_, err := svc.ProposeParams(1, "bogus", []byte(`{}`))
	require.ErrorIs(t, err, governance.ErrUnknownAction)
	assert.Equal(t, governance.ProposalID(0), st.Proposals.NextID())

	res, err := svc.ProposeParams(1, "accept_node", []byte(`{"node_id":7}`))
	require.NoError(t, err)
	proposal, err := svc.Proposal(res.ID)
	require.NoError(t, err)
	assert.Equal(t, governance.AcceptNode{NodeID: 7}, proposal.Action)
}

func TestQuorumUsesCurrentActiveMembers(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	svc := governance.NewService(st, governance.Hooks{Nodes: &testNodes{}})
	res, err := svc.Propose(1, governance.AcceptNode{NodeID: 1})
	require.NoError(t, err)
	vres, err := svc.Vote(res.ID, 2, true)
	require.NoError(t, err)
	// 2 of 4 is not a strict majority
	assert.False(t, vres.Completed)
	vres, err = svc.Vote(res.ID, 3, false)
	require.NoError(t, err)
	assert.False(t, vres.Completed)
	// Member 2 changes its mind, then back again
	_, err = svc.Vote(res.ID, 2, false)
	require.NoError(t, err)
	vres, err = svc.Vote(res.ID, 3, true)
	require.NoError(t, err)
	assert.False(t, vres.Completed)
	vres, err = svc.Vote(res.ID, 2, true)
	require.NoError(t, err)
	assert.True(t, vres.Completed)
}

func TestRevokedVotesDoNotCount(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	svc := governance.NewService(st, governance.Hooks{Nodes: &testNodes{}})
	res, err := svc.Propose(1, governance.AcceptNode{NodeID: 1})
	require.NoError(t, err)
	_, err = svc.Vote(res.ID, 2, true)
	require.NoError(t, err)
	require.NoError(t, st.Members.SetStatus(2, governance.MemberStatusRevoked))
	// Members 1 and 3 of 4 active: not a majority
	vres, err := svc.Vote(res.ID, 3, true)
	require.NoError(t, err)
	assert.False(t, vres.Completed)
	vres, err = svc.Vote(res.ID, 4, true)
	require.NoError(t, err)
	assert.True(t, vres.Completed)
}

func TestRevocationCompletesWaitingProposals(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	nodes := &testNodes{}
	svc := governance.NewService(st, governance.Hooks{Nodes: nodes})
	waiting, err := svc.Propose(1, governance.AcceptNode{NodeID: 1})
	require.NoError(t, err)
	_, err = svc.Vote(waiting.ID, 2, true)
	require.NoError(t, err)
	// Only supported by member 4
	other, err := svc.Propose(4, governance.AcceptNode{NodeID: 2})
	require.NoError(t, err)

	revoke, err := svc.Propose(3, governance.RevokeMember{MemberID: 4})
	require.NoError(t, err)
	_, err = svc.Vote(revoke.ID, 1, true)
	require.NoError(t, err)
	vres, err := svc.Vote(revoke.ID, 2, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	require.False(t, vres.Result.Failed())

	// 2 of the 3 remaining Active members accepted the first proposal
	require.Len(t, vres.Cascaded, 1)
	assert.Equal(t, waiting.ID, vres.Cascaded[0].ID)
	require.NotNil(t, vres.Cascaded[0].Result)
	assert.Equal(t, governance.ActionKindAcceptNode, vres.Cascaded[0].Result.Kind)
	assert.Equal(t, 1, nodes.accepted[1])
	proposal, err := svc.Proposal(waiting.ID)
	require.NoError(t, err)
	assert.True(t, proposal.Completed)
	assert.False(t, proposal.Open)
	proposal, err = svc.Proposal(other.ID)
	require.NoError(t, err)
	assert.True(t, proposal.Open)
	assert.Zero(t, nodes.accepted[2])
}

func TestRevocationCascades(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	nodes := &testNodes{}
	svc := governance.NewService(st, governance.Hooks{Nodes: nodes})
	propose := func(action governance.Action, voters ...governance.MemberID) governance.ProposalID {
		t.Helper()
		res, err := svc.Propose(1, action)
		require.NoError(t, err)
		for _, voter := range voters {
			vres, err := svc.Vote(res.ID, voter, true)
			require.NoError(t, err)
			require.False(t, vres.Completed)
		}
		return res.ID
	}
	// Needs at most 3 Active members
	node := propose(governance.AcceptNode{NodeID: 9}, 2)
	// Each needs at most 5 Active members
	revokeFive := propose(governance.RevokeMember{MemberID: 5}, 2, 3)
	revokeFour := propose(governance.RevokeMember{MemberID: 4}, 2, 3)

	trigger := propose(governance.RevokeMember{MemberID: 6}, 2, 3)
	vres, err := svc.Vote(trigger, 4, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)

	require.Len(t, vres.Cascaded, 3)
	assert.Equal(t, revokeFive, vres.Cascaded[0].ID)
	assert.Equal(t, revokeFour, vres.Cascaded[1].ID)
	assert.Equal(t, node, vres.Cascaded[2].ID)
	assert.Equal(t, 3, st.Members.ActiveCount())
	assert.Equal(t, 1, nodes.accepted[9])
}

func TestVoteErrorOrder(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusAccepted,
	)
	svc := governance.NewService(st, governance.Hooks{Nodes: &testNodes{}})

	// Rights are checked before the proposal is looked up
	_, err := svc.Vote(10, 3, true)
	requireCode(t, err, governance.CodeInsufficientRights)
	_, err = svc.Vote(10, 99, true)
	requireCode(t, err, governance.CodeInsufficientRights)

	removed, err := svc.Propose(1, governance.AcceptNode{NodeID: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(removed.ID, 1))
	_, err = svc.Vote(removed.ID, 3, true)
	requireCode(t, err, governance.CodeInsufficientRights)

	// Completed proposals are closed too, but report AlreadyCompleted
	done, err := svc.Propose(1, governance.AcceptNode{NodeID: 2})
	require.NoError(t, err)
	vres, err := svc.Vote(done.ID, 2, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	_, err = svc.Vote(done.ID, 1, true)
	requireCode(t, err, governance.CodeAlreadyCompleted)
	_, err = svc.Vote(removed.ID, 2, true)
	requireCode(t, err, governance.CodeProposalClosed)
}

func TestVoteErrors(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	nodes := &testNodes{}
	svc := governance.NewService(st, governance.Hooks{Nodes: nodes})

	_, err := svc.Vote(10, 1, true)
	requireCode(t, err, governance.CodeProposalNotFound)

	removed, err := svc.Propose(1, governance.AcceptNode{NodeID: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(removed.ID, 1))
	_, err = svc.Vote(removed.ID, 2, true)
	requireCode(t, err, governance.CodeProposalClosed)

	completed, err := svc.Propose(1, governance.AcceptNode{NodeID: 2})
	require.NoError(t, err)
	vres, err := svc.Vote(completed.ID, 2, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	_, err = svc.Vote(completed.ID, 3, true)
	requireCode(t, err, governance.CodeAlreadyCompleted)
	_, err = svc.Vote(completed.ID, 2, false)
	require.ErrorIs(t, err, governance.ErrAlreadyCompleted)
	// The action ran exactly once
	assert.Equal(t, 1, nodes.accepted[2])
	assert.Zero(t, nodes.accepted[1])
}

func TestRemoval(t *testing.T) {
	st := newTestState(
		t,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
		governance.MemberStatusActive,
	)
	svc := governance.NewService(st, governance.Hooks{Nodes: &testNodes{}})
	res, err := svc.Propose(1, governance.AcceptNode{NodeID: 1})
	require.NoError(t, err)

	err = svc.Remove(res.ID, 2)
	requireCode(t, err, governance.CodeNotProposer)
	err = svc.Remove(res.ID+1, 1)
	requireCode(t, err, governance.CodeProposalNotFound)

	require.NoError(t, svc.Remove(res.ID, 1))
	proposal, err := svc.Proposal(res.ID)
	require.NoError(t, err)
	assert.Equal(t, governance.ProposalStateRemoved, proposal.State())
	err = svc.Remove(res.ID, 1)
	requireCode(t, err, governance.CodeProposalClosed)

	completed, err := svc.Propose(1, governance.AcceptNode{NodeID: 2})
	require.NoError(t, err)
	_, err = svc.Vote(completed.ID, 3, true)
	require.NoError(t, err)
	err = svc.Remove(completed.ID, 1)
	requireCode(t, err, governance.CodeAlreadyCompleted)
}

func TestActionFailureKeepsCompletion(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive)
	nodes := &testNodes{err: errors.New("node is unreachable")}
	svc := governance.NewService(st, governance.Hooks{Nodes: nodes})
	res, err := svc.Propose(1, governance.AcceptNode{NodeID: 3})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	require.NotNil(t, res.Result)
	require.True(t, res.Result.Failed())
	assert.Equal(t, governance.ActionKindAcceptNode, res.Result.Failure.Kind)
	require.ErrorIs(t, res.Result.Failure, governance.ErrActionFailure)
	require.ErrorIs(t, res.Result.Failure, nodes.err)
	proposal, err := svc.Proposal(res.ID)
	require.NoError(t, err)
	assert.True(t, proposal.Completed)
}

func TestMissingHookFails(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive)
	svc := governance.NewService(st, governance.Hooks{})
	res, err := svc.Propose(1, governance.AddUser{Certificate: []byte("cert")})
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.True(t, res.Result.Failed())
	code, ok := governance.CodeOf(res.Result.Failure)
	require.True(t, ok)
	assert.Equal(t, governance.CodeActionFailure, code)
}

func TestMemberLifecycleActions(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive)
	users := &testUsers{}
	svc := governance.NewService(st, governance.Hooks{Users: users})

	res, err := svc.Propose(1, governance.AddMember{Certificate: []byte("new-member")})
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.False(t, res.Result.Failed())
	newID := res.Result.MemberID
	assert.Equal(t, governance.MemberID(2), newID)
	member, err := st.Members.Get(newID)
	require.NoError(t, err)
	assert.Equal(t, governance.MemberStatusAccepted, member.Status)
	assert.Equal(t, []byte("new-member"), member.Certificate)

	require.NoError(t, svc.Ack(newID))
	err = svc.Ack(newID)
	requireCode(t, err, governance.CodeInvalidStateTransition)
	err = svc.Ack(99)
	requireCode(t, err, governance.CodeUnknownMember)

	// Two active members now, so the new member has to agree
	res, err = svc.Propose(newID, governance.AddUser{Certificate: []byte("user")})
	require.NoError(t, err)
	require.False(t, res.Completed)
	vres, err := svc.Vote(res.ID, 1, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	assert.Equal(t, uint64(1), vres.Result.UserID)
	assert.Len(t, users.certs, 1)

	res, err = svc.Propose(1, governance.RevokeMember{MemberID: newID})
	require.NoError(t, err)
	vres, err = svc.Vote(res.ID, newID, true)
	require.NoError(t, err)
	require.True(t, vres.Completed)
	require.False(t, vres.Result.Failed())
	status, err := st.Members.StatusOf(newID)
	require.NoError(t, err)
	assert.Equal(t, governance.MemberStatusRevoked, status)

	// Revoking again is an invalid transition reported as an action failure
	res, err = svc.Propose(1, governance.RevokeMember{MemberID: newID})
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.True(t, res.Result.Failed())
	require.ErrorIs(t, res.Result.Failure, governance.ErrInvalidStateTransition)
}

func TestProposeInvalidAction(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive)
	svc := governance.NewService(st, governance.Hooks{})
	_, err := svc.Propose(1, nil)
	requireCode(t, err, governance.CodeUnknownAction)
	_, err = svc.Propose(1, governance.RawTablePut{Table: "Bad Table", Key: "k"})
	requireCode(t, err, governance.CodeUnknownAction)
	assert.Equal(t, governance.ProposalID(0), st.Proposals.NextID())
}

func TestSnapshotsAreCopies(t *testing.T) {
	st := newTestState(t, governance.MemberStatusActive, governance.MemberStatusActive)
	svc := governance.NewService(st, governance.Hooks{})
	res, err := svc.Propose(1, governance.AddUser{Certificate: []byte("abc")})
	require.NoError(t, err)
	list := svc.Display()
	list[0].Votes[2] = true
	list[0].Action.(governance.AddUser).Certificate[0] = 'x'
	proposal, err := svc.Proposal(res.ID)
	require.NoError(t, err)
	assert.NotContains(t, proposal.Votes, governance.MemberID(2))
	assert.Equal(t, []byte("abc"), proposal.Action.(governance.AddUser).Certificate)
}
