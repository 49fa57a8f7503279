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
	"context"
	"encoding/json"

	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governance"
)

type proposeParams struct {
	Kind   governance.ActionKind `json:"kind"`
	Params json.RawMessage       `json:"params"`
}

type voteParams struct {
	ProposalID governance.ProposalID `json:"proposal_id"`
	Accept     bool                  `json:"accept"`
}

type removalParams struct {
	ProposalID governance.ProposalID `json:"proposal_id"`
}

// Propose creates a proposal on behalf of proposer. The proposal may
// complete immediately if the proposer alone forms a quorum.
func (ls *LedgerState) Propose(
	ctx context.Context,
	proposer governance.MemberID,
	action governance.Action,
) (governance.ProposeResult, error) {
	return ls.propose(
		ctx,
		proposer,
		func(svc *governance.Service) (governance.ProposeResult, error) {
			return svc.Propose(proposer, action)
		},
	)
}

// ProposeParams is Propose for an action given as a tag and JSON
// parameters. The parameters are only parsed once the proposer's rights
// have been checked.
func (ls *LedgerState) ProposeParams(
	ctx context.Context,
	proposer governance.MemberID,
	kind string,
	params []byte,
) (governance.ProposeResult, error) {
	return ls.propose(
		ctx,
		proposer,
		func(svc *governance.Service) (governance.ProposeResult, error) {
			return svc.ProposeParams(proposer, kind, params)
		},
	)
}

func (ls *LedgerState) propose(
	ctx context.Context,
	proposer governance.MemberID,
	create func(*governance.Service) (governance.ProposeResult, error),
) (governance.ProposeResult, error) {
	// Filled in from the created proposal, before the log entry is written
	params := &proposeParams{}
	result, err := ls.submit(&request{
		ctx:    ctx,
		op:     opPropose,
		member: proposer,
		params: params,
		apply: func(svc *governance.Service) (any, []event.Event, error) {
			result, err := create(svc)
			if err != nil {
				return nil, nil, err
			}
			proposal, err := svc.Proposal(result.ID)
			if err != nil {
				return nil, nil, err
			}
			params.Kind = proposal.Action.Kind()
			params.Params, err = governance.EncodeActionParams(proposal.Action)
			if err != nil {
				return nil, nil, err
			}
			events := []event.Event{
				event.NewEvent(
					ProposalCreatedEventType,
					ProposalCreatedEvent{
						ProposalID: result.ID,
						Proposer:   proposer,
						ActionKind: params.Kind,
					},
				),
			}
			events = append(events, completionEvents(result.ID, result.Result)...)
			for _, c := range result.Cascaded {
				events = append(events, completionEvents(c.ID, c.Result)...)
			}
			return result, events, nil
		},
	})
	if err != nil {
		return governance.ProposeResult{}, err
	}
	return result.(governance.ProposeResult), nil
}

// Vote records a vote on an open proposal
func (ls *LedgerState) Vote(
	ctx context.Context,
	id governance.ProposalID,
	voter governance.MemberID,
	accept bool,
) (governance.VoteResult, error) {
	result, err := ls.submit(&request{
		ctx:    ctx,
		op:     opVote,
		member: voter,
		params: voteParams{ProposalID: id, Accept: accept},
		apply: func(svc *governance.Service) (any, []event.Event, error) {
			result, err := svc.Vote(id, voter, accept)
			if err != nil {
				return nil, nil, err
			}
			var events []event.Event
			if result.Recorded {
				events = append(
					events,
					event.NewEvent(
						ProposalVoteEventType,
						ProposalVoteEvent{ProposalID: id, Voter: voter, Accept: accept},
					),
				)
			}
			events = append(events, completionEvents(id, result.Result)...)
			for _, c := range result.Cascaded {
				events = append(events, completionEvents(c.ID, c.Result)...)
			}
			return result, events, nil
		},
	})
	if err != nil {
		return governance.VoteResult{}, err
	}
	return result.(governance.VoteResult), nil
}

// Ack activates an accepted member
func (ls *LedgerState) Ack(ctx context.Context, member governance.MemberID) error {
	_, err := ls.submit(&request{
		ctx:    ctx,
		op:     opAck,
		member: member,
		apply: func(svc *governance.Service) (any, []event.Event, error) {
			// The status change is reported by the member diff
			return nil, nil, svc.Ack(member)
		},
	})
	return err
}

// Remove withdraws an open proposal on behalf of its proposer
func (ls *LedgerState) Remove(
	ctx context.Context,
	id governance.ProposalID,
	requester governance.MemberID,
) error {
	_, err := ls.submit(&request{
		ctx:    ctx,
		op:     opRemoval,
		member: requester,
		params: removalParams{ProposalID: id},
		apply: func(svc *governance.Service) (any, []event.Event, error) {
			if err := svc.Remove(id, requester); err != nil {
				return nil, nil, err
			}
			return nil, []event.Event{
				event.NewEvent(
					ProposalRemovedEventType,
					ProposalRemovedEvent{ProposalID: id, Requester: requester},
				),
			}, nil
		},
	})
	return err
}
