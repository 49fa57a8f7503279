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
	"maps"
	"slices"
)

// VoteOutcome is the result of casting a vote or evaluating quorum
type VoteOutcome struct {
	// Result is set when this call moved the proposal to completed
	Result *ActionResult
	// Cascaded lists other open proposals that reached quorum because the
	// completed action revoked a member
	Cascaded  []Completion
	Recorded  bool
	Completed bool
}

// Completion is a proposal completed as a side effect of another proposal
type Completion struct {
	Result *ActionResult
	ID     ProposalID
}

// VotingEngine records votes and completes proposals that reach quorum
type VotingEngine struct {
	state    *State
	rights   RightsChecker
	executor *ActionExecutor
}

func NewVotingEngine(st *State, executor *ActionExecutor) *VotingEngine {
	return &VotingEngine{
		state:    st,
		rights:   NewRightsChecker(st.Members),
		executor: executor,
	}
}

// CastVote records the vote of an Active member on an open proposal and
// re-evaluates quorum. A repeated identical vote is recorded without side
// effects.
func (v *VotingEngine) CastVote(
	id ProposalID,
	voter MemberID,
	accept bool,
) (VoteOutcome, error) {
	if !v.rights.CanVote(voter) {
		return VoteOutcome{}, newError(
			CodeInsufficientRights,
			"member %d may not vote",
			voter,
		)
	}
	proposal, err := v.state.Proposals.get(id)
	if err != nil {
		return VoteOutcome{}, err
	}
	// Completion also closes a proposal, so check it first
	if proposal.Completed {
		return VoteOutcome{}, newError(CodeAlreadyCompleted, "proposal %d", id)
	}
	if !proposal.Open {
		return VoteOutcome{}, newError(CodeProposalClosed, "proposal %d", id)
	}
	proposal.Votes[voter] = accept
	ret := v.evaluate(proposal)
	ret.Recorded = true
	return ret, nil
}

// Evaluate checks quorum for an open proposal, completing it and running its
// action if the threshold is met
func (v *VotingEngine) Evaluate(id ProposalID) (VoteOutcome, error) {
	proposal, err := v.state.Proposals.get(id)
	if err != nil {
		return VoteOutcome{}, err
	}
	if proposal.Completed {
		return VoteOutcome{Completed: true}, nil
	}
	if !proposal.Open {
		return VoteOutcome{}, newError(CodeProposalClosed, "proposal %d", id)
	}
	return v.evaluate(proposal), nil
}

// Affirmative returns the number of accepting votes on the proposal cast by
// members that are currently Active
func (v *VotingEngine) Affirmative(proposal Proposal) int {
	var ret int
	for voter, accept := range proposal.Votes {
		if accept && v.rights.CanVote(voter) {
			ret++
		}
	}
	return ret
}

// HasQuorum returns true if affirmative votes from Active members form a
// strict majority of the current Active population
func (v *VotingEngine) HasQuorum(proposal Proposal) bool {
	return 2*v.Affirmative(proposal) > v.state.Members.ActiveCount()
}

func (v *VotingEngine) evaluate(proposal *Proposal) VoteOutcome {
	if !v.HasQuorum(*proposal) {
		return VoteOutcome{}
	}
	ret := VoteOutcome{
		Completed: true,
		Result:    v.complete(proposal),
	}
	if shrinksActive(ret.Result) {
		ret.Cascaded = v.settle()
	}
	return ret
}

func (v *VotingEngine) complete(proposal *Proposal) *ActionResult {
	proposal.Completed = true
	proposal.Open = false
	if v.executor == nil {
		return nil
	}
	result := v.executor.Execute(v.state, proposal.clone())
	return &result
}

// settle completes, in id order, every open proposal that has quorum over
// the current Active population. A completion that revokes another member
// starts a new pass.
func (v *VotingEngine) settle() []Completion {
	var ret []Completion
	for again := true; again; {
		again = false
		for _, id := range slices.Sorted(maps.Keys(v.state.Proposals.proposals)) {
			proposal := v.state.Proposals.proposals[id]
			if !proposal.Open || !v.HasQuorum(*proposal) {
				continue
			}
			result := v.complete(proposal)
			ret = append(ret, Completion{ID: id, Result: result})
			if shrinksActive(result) {
				again = true
			}
		}
	}
	return ret
}

// Only a successful revocation can lower the quorum of other proposals. An
// ack adds an Active member that has not voted on anything yet.
func shrinksActive(result *ActionResult) bool {
	return result != nil &&
		result.Kind == ActionKindRevokeMember &&
		!result.Failed()
}
