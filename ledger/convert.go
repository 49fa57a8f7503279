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
	"fmt"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/governance"
)

func memberToModel(member governance.Member) *models.Member {
	return &models.Member{
		ID:          uint64(member.ID),
		Certificate: member.Certificate,
		Status:      uint8(member.Status),
	}
}

func memberFromModel(member models.Member) governance.Member {
	return governance.Member{
		ID:          governance.MemberID(member.ID),
		Certificate: member.Certificate,
		Status:      governance.MemberStatus(member.Status),
	}
}

func proposalToModel(proposal governance.Proposal) (*models.Proposal, error) {
	params, err := governance.EncodeActionParams(proposal.Action)
	if err != nil {
		return nil, fmt.Errorf("encode proposal %d action: %w", proposal.ID, err)
	}
	ret := &models.Proposal{
		ID:           uint64(proposal.ID),
		ProposerID:   uint64(proposal.Proposer),
		ActionKind:   string(proposal.Action.Kind()),
		ActionParams: params,
		Completed:    proposal.Completed,
		Open:         proposal.Open,
	}
	for _, voter := range proposal.Voters() {
		ret.Votes = append(
			ret.Votes,
			models.ProposalVote{
				ProposalID: uint64(proposal.ID),
				MemberID:   uint64(voter),
				Accept:     proposal.Votes[voter],
			},
		)
	}
	return ret, nil
}

func proposalFromModel(proposal models.Proposal) (governance.Proposal, error) {
	action, err := governance.ParseAction(proposal.ActionKind, proposal.ActionParams)
	if err != nil {
		return governance.Proposal{}, fmt.Errorf("decode proposal %d action: %w", proposal.ID, err)
	}
	ret := governance.Proposal{
		ID:        governance.ProposalID(proposal.ID),
		Proposer:  governance.MemberID(proposal.ProposerID),
		Action:    action,
		Votes:     make(map[governance.MemberID]bool, len(proposal.Votes)),
		Completed: proposal.Completed,
		Open:      proposal.Open,
	}
	for _, vote := range proposal.Votes {
		ret.Votes[governance.MemberID(vote.MemberID)] = vote.Accept
	}
	return ret, nil
}

// loadState rebuilds the governance state from the database
func loadState(db *database.Database, txn *database.Txn) (*governance.State, error) {
	st, err := loadStoredState(db, txn)
	if err != nil {
		return nil, err
	}
	// The counter may be ahead of the highest stored id
	nextID, err := db.GetProposalCounter(txn)
	if err != nil {
		return nil, err
	}
	st.Proposals.SetNextID(governance.ProposalID(nextID))
	return st, nil
}

// loadStoredState rebuilds the members and proposals held by the metadata
// store, ignoring the proposal counter
func loadStoredState(db *database.Database, txn *database.Txn) (*governance.State, error) {
	st := governance.NewState()
	members, err := db.GetMembers(txn)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		if err := st.Members.Restore(memberFromModel(member)); err != nil {
			return nil, err
		}
	}
	proposals, err := db.GetProposals(txn)
	if err != nil {
		return nil, err
	}
	for _, tmpProposal := range proposals {
		proposal, err := proposalFromModel(tmpProposal)
		if err != nil {
			return nil, err
		}
		if err := st.Proposals.Restore(proposal); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// saveChanges persists the members and proposals that differ between prev
// and next, along with the proposal id counter
func saveChanges(
	db *database.Database,
	prev *governance.State,
	next *governance.State,
	txn *database.Txn,
) error {
	for _, member := range governance.ChangedMembers(prev, next) {
		if err := db.SetMember(memberToModel(member), txn); err != nil {
			return err
		}
	}
	for _, proposal := range governance.ChangedProposals(prev, next) {
		tmpProposal, err := proposalToModel(proposal)
		if err != nil {
			return err
		}
		if err := db.SetProposal(tmpProposal, txn); err != nil {
			return err
		}
	}
	if next.Proposals.NextID() != prev.Proposals.NextID() {
		if err := db.SetProposalCounter(uint64(next.Proposals.NextID()), txn); err != nil {
			return err
		}
	}
	return nil
}
