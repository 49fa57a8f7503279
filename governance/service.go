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

package governance

import (
	"errors"
)

// ProposeResult is returned by Service.Propose
type ProposeResult struct {
	// Result is set when the proposal completed on creation
	Result    *ActionResult
	Cascaded  []Completion
	ID        ProposalID
	Completed bool
}

// VoteResult is returned by Service.Vote
type VoteResult struct {
	// Result is set when the vote completed the proposal
	Result    *ActionResult
	Cascaded  []Completion
	Recorded  bool
	Completed bool
}

// Service applies governance operations to a State. Each call is a single
// transaction: it either fails without changing the state or applies all of
// its effects.
type Service struct {
	state  *State
	rights RightsChecker
	voting *VotingEngine
}

// NewService returns a Service operating on st. Action effects that leave
// the governance state go through hooks.
func NewService(st *State, hooks Hooks) *Service {
	return &Service{
		state:  st,
		rights: NewRightsChecker(st.Members),
		voting: NewVotingEngine(st, NewActionExecutor(hooks)),
	}
}

// State returns the state the service operates on
func (s *Service) State() *State {
	return s.state
}

// Propose creates a proposal for the action on behalf of an Active member
// and evaluates quorum on it straight away
func (s *Service) Propose(proposer MemberID, action Action) (ProposeResult, error) {
	if !s.rights.CanPropose(proposer) {
		return ProposeResult{}, newError(
			CodeInsufficientRights,
			"member %d may not propose",
			proposer,
		)
	}
	if action == nil {
		return ProposeResult{}, newError(CodeUnknownAction, "missing action")
	}
	if err := action.Validate(); err != nil {
		var govErr *Error
		if errors.As(err, &govErr) {
			return ProposeResult{}, err
		}
		return ProposeResult{}, newError(
			CodeUnknownAction,
			"%s: %s",
			action.Kind(),
			err,
		)
	}
	proposal := s.state.Proposals.Create(proposer, action)
	outcome, err := s.voting.Evaluate(proposal.ID)
	if err != nil {
		return ProposeResult{}, err
	}
	return ProposeResult{
		ID:        proposal.ID,
		Completed: outcome.Completed,
		Result:    outcome.Result,
		Cascaded:  outcome.Cascaded,
	}, nil
}

// ProposeParams resolves the action from its tag and JSON parameters and
// proposes it. Rights are checked before the parameters are looked at.
func (s *Service) ProposeParams(proposer MemberID, kind string, params []byte) (ProposeResult, error) {
	if !s.rights.CanPropose(proposer) {
		return ProposeResult{}, newError(
			CodeInsufficientRights,
			"member %d may not propose",
			proposer,
		)
	}
	action, err := ParseAction(kind, params)
	if err != nil {
		return ProposeResult{}, err
	}
	return s.Propose(proposer, action)
}

// Vote records a vote from an Active member
func (s *Service) Vote(id ProposalID, voter MemberID, accept bool) (VoteResult, error) {
	outcome, err := s.voting.CastVote(id, voter, accept)
	if err != nil {
		return VoteResult{}, err
	}
	return VoteResult(outcome), nil
}

// Ack moves an Accepted member to Active
func (s *Service) Ack(id MemberID) error {
	return s.state.Members.Ack(id)
}

// Remove withdraws an open proposal on behalf of its proposer
func (s *Service) Remove(id ProposalID, requester MemberID) error {
	return s.state.Proposals.Remove(id, requester)
}

// Proposal returns a snapshot of a single proposal
func (s *Service) Proposal(id ProposalID) (Proposal, error) {
	return s.state.Proposals.Get(id)
}

// Display returns snapshots of all proposals in id order
func (s *Service) Display() []Proposal {
	return s.state.Proposals.List()
}

// Members returns all members in id order
func (s *Service) Members() []Member {
	return s.state.Members.List()
}
