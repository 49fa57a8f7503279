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

// Package rpc exposes the governance operations over connect RPC. Messages
// are plain Go structs carried with a JSON codec.
package rpc

import (
	"encoding/json"

	"github.com/blinklabs-io/gavel/governance"
)

const GovernanceServiceName = "gavel.v1.GovernanceService"

const (
	ProposeProcedure         = "/" + GovernanceServiceName + "/Propose"
	VoteProcedure            = "/" + GovernanceServiceName + "/Vote"
	AckProcedure             = "/" + GovernanceServiceName + "/Ack"
	RemovalProcedure         = "/" + GovernanceServiceName + "/Removal"
	ProposalDisplayProcedure = "/" + GovernanceServiceName + "/ProposalDisplay"
	ProposalGetProcedure     = "/" + GovernanceServiceName + "/ProposalGet"
	MemberDisplayProcedure   = "/" + GovernanceServiceName + "/MemberDisplay"
)

type ProposeRequest struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
	Member uint64          `json:"member"`
}

type ProposeResponse struct {
	Result    *ActionResult `json:"result,omitempty"`
	ID        uint64        `json:"id"`
	Completed bool          `json:"completed"`
}

type VoteRequest struct {
	Member     uint64 `json:"member"`
	ProposalID uint64 `json:"proposal_id"`
	Accept     bool   `json:"accept"`
}

type VoteResponse struct {
	Result    *ActionResult `json:"result,omitempty"`
	Recorded  bool          `json:"recorded"`
	Completed bool          `json:"completed"`
}

type AckRequest struct {
	Member uint64 `json:"member"`
}

type AckResponse struct {
	Result bool `json:"result"`
}

type RemovalRequest struct {
	Member     uint64 `json:"member"`
	ProposalID uint64 `json:"proposal_id"`
}

type RemovalResponse struct {
	Result bool `json:"result"`
}

type ProposalDisplayRequest struct{}

type ProposalDisplayResponse struct {
	Proposals []Proposal `json:"proposals"`
}

type ProposalGetRequest struct {
	ProposalID uint64 `json:"proposal_id"`
}

type ProposalGetResponse struct {
	Proposal Proposal `json:"proposal"`
}

type MemberDisplayRequest struct{}

type MemberDisplayResponse struct {
	Members []Member `json:"members"`
}

// ActionResult is the outcome of the action of a completed proposal. Failure
// is set when the action could not be applied.
type ActionResult struct {
	Kind     string `json:"kind"`
	Failure  string `json:"failure,omitempty"`
	MemberID uint64 `json:"member_id,omitempty"`
	UserID   uint64 `json:"user_id,omitempty"`
}

type Vote struct {
	Member uint64 `json:"member"`
	Accept bool   `json:"accept"`
}

type Proposal struct {
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params"`
	State     string          `json:"state"`
	Votes     []Vote          `json:"votes"`
	ID        uint64          `json:"id"`
	Proposer  uint64          `json:"proposer"`
	Completed bool            `json:"completed"`
	Open      bool            `json:"open"`
}

type Member struct {
	Status      string `json:"status"`
	Certificate []byte `json:"certificate"`
	ID          uint64 `json:"id"`
}

func actionResultFromGovernance(result *governance.ActionResult) *ActionResult {
	if result == nil {
		return nil
	}
	ret := &ActionResult{
		Kind:     string(result.Kind),
		MemberID: uint64(result.MemberID),
		UserID:   result.UserID,
	}
	if result.Failure != nil {
		ret.Failure = result.Failure.Error()
	}
	return ret
}

func proposalFromGovernance(proposal governance.Proposal) (Proposal, error) {
	params, err := governance.EncodeActionParams(proposal.Action)
	if err != nil {
		return Proposal{}, err
	}
	ret := Proposal{
		ID:        uint64(proposal.ID),
		Proposer:  uint64(proposal.Proposer),
		Action:    string(proposal.Action.Kind()),
		Params:    params,
		State:     string(proposal.State()),
		Votes:     make([]Vote, 0, len(proposal.Votes)),
		Completed: proposal.Completed,
		Open:      proposal.Open,
	}
	for _, voter := range proposal.Voters() {
		ret.Votes = append(
			ret.Votes,
			Vote{Member: uint64(voter), Accept: proposal.Votes[voter]},
		)
	}
	return ret, nil
}

func memberFromGovernance(member governance.Member) Member {
	return Member{
		ID:          uint64(member.ID),
		Certificate: member.Certificate,
		Status:      member.Status.String(),
	}
}
