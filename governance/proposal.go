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
	"bytes"
	"fmt"
	"maps"
	"slices"
)

// ProposalID identifies a proposal. Ids are allocated from zero and never
// reused.
type ProposalID uint64

// ProposalState is the derived lifecycle state of a proposal
type ProposalState string

const (
	ProposalStateOpen      ProposalState = "open"
	ProposalStateCompleted ProposalState = "completed"
	ProposalStateRemoved   ProposalState = "removed"
)

// Proposal is a governance request and the votes cast on it
type Proposal struct {
	Action    Action
	Votes     map[MemberID]bool
	ID        ProposalID
	Proposer  MemberID
	Completed bool
	Open      bool
}

// State returns the lifecycle state of the proposal
func (p Proposal) State() ProposalState {
	switch {
	case p.Completed:
		return ProposalStateCompleted
	case !p.Open:
		return ProposalStateRemoved
	default:
		return ProposalStateOpen
	}
}

// Voters returns the ids of members who voted, in id order
func (p Proposal) Voters() []MemberID {
	return slices.Sorted(maps.Keys(p.Votes))
}

func (p Proposal) clone() Proposal {
	p.Votes = maps.Clone(p.Votes)
	if p.Votes == nil {
		p.Votes = make(map[MemberID]bool)
	}
	p.Action = cloneAction(p.Action)
	return p
}

func cloneAction(action Action) Action {
	switch a := action.(type) {
	case AddUser:
		a.Certificate = bytes.Clone(a.Certificate)
		return a
	case AddMember:
		a.Certificate = bytes.Clone(a.Certificate)
		return a
	default:
		return action
	}
}

// ProposalStore owns proposal records and the proposal id counter
type ProposalStore struct {
	proposals map[ProposalID]*Proposal
	nextID    ProposalID
}

func NewProposalStore() *ProposalStore {
	return &ProposalStore{
		proposals: make(map[ProposalID]*Proposal),
	}
}

// Create records a new open proposal carrying the proposer's implicit
// affirmative vote. It does not evaluate quorum.
func (s *ProposalStore) Create(proposer MemberID, action Action) *Proposal {
	id := s.nextID
	s.nextID++
	proposal := &Proposal{
		ID:       id,
		Proposer: proposer,
		Action:   cloneAction(action),
		Votes: map[MemberID]bool{
			proposer: true,
		},
		Open: true,
	}
	s.proposals[id] = proposal
	return proposal
}

// Restore inserts a previously persisted proposal and advances the id
// counter past it
func (s *ProposalStore) Restore(proposal Proposal) error {
	if proposal.Action == nil {
		return fmt.Errorf("proposal %d: missing action", proposal.ID)
	}
	if _, ok := s.proposals[proposal.ID]; ok {
		return fmt.Errorf("proposal %d already exists", proposal.ID)
	}
	tmpProposal := proposal.clone()
	s.proposals[proposal.ID] = &tmpProposal
	if proposal.ID >= s.nextID {
		s.nextID = proposal.ID + 1
	}
	return nil
}

// Get returns a snapshot of the proposal with the given id
func (s *ProposalStore) Get(id ProposalID) (Proposal, error) {
	proposal, err := s.get(id)
	if err != nil {
		return Proposal{}, err
	}
	return proposal.clone(), nil
}

func (s *ProposalStore) get(id ProposalID) (*Proposal, error) {
	proposal, ok := s.proposals[id]
	if !ok {
		return nil, newError(CodeProposalNotFound, "proposal %d", id)
	}
	return proposal, nil
}

// Remove withdraws an open proposal on behalf of its proposer. The id stays
// retired.
func (s *ProposalStore) Remove(id ProposalID, requester MemberID) error {
	proposal, err := s.get(id)
	if err != nil {
		return err
	}
	if proposal.Completed {
		return newError(CodeAlreadyCompleted, "proposal %d", id)
	}
	if !proposal.Open {
		return newError(CodeProposalClosed, "proposal %d", id)
	}
	if proposal.Proposer != requester {
		return newError(
			CodeNotProposer,
			"member %d did not propose proposal %d",
			requester,
			id,
		)
	}
	proposal.Open = false
	return nil
}

// List returns snapshots of all proposals in id order
func (s *ProposalStore) List() []Proposal {
	ret := make([]Proposal, 0, len(s.proposals))
	for _, id := range slices.Sorted(maps.Keys(s.proposals)) {
		ret = append(ret, s.proposals[id].clone())
	}
	return ret
}

// NextID returns the id the next created proposal will receive
func (s *ProposalStore) NextID() ProposalID {
	return s.nextID
}

// SetNextID moves the id counter forward. It never moves backwards.
func (s *ProposalStore) SetNextID(id ProposalID) {
	if id > s.nextID {
		s.nextID = id
	}
}

func (s *ProposalStore) clone() *ProposalStore {
	ret := &ProposalStore{
		proposals: make(map[ProposalID]*Proposal, len(s.proposals)),
		nextID:    s.nextID,
	}
	for id, proposal := range s.proposals {
		tmpProposal := proposal.clone()
		ret.proposals[id] = &tmpProposal
	}
	return ret
}
