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
	"maps"
	"reflect"
)

// State is the complete governance state: the member registry and the
// proposal store. A State has a single writer; concurrent use must be
// serialized by the owner.
type State struct {
	Members   *MemberRegistry
	Proposals *ProposalStore
}

func NewState() *State {
	return &State{
		Members:   NewMemberRegistry(),
		Proposals: NewProposalStore(),
	}
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	return &State{
		Members:   s.Members.clone(),
		Proposals: s.Proposals.clone(),
	}
}

// ChangedMembers returns the members of next that are new or differ from
// prev, in id order
func ChangedMembers(prev *State, next *State) []Member {
	var ret []Member
	for _, member := range next.Members.List() {
		old, ok := prev.Members.members[member.ID]
		if ok && old.Status == member.Status &&
			bytes.Equal(old.Certificate, member.Certificate) {
			continue
		}
		ret = append(ret, member)
	}
	return ret
}

// ChangedProposals returns the proposals of next that are new or differ
// from prev, in id order
func ChangedProposals(prev *State, next *State) []Proposal {
	var ret []Proposal
	for _, proposal := range next.Proposals.List() {
		old, ok := prev.Proposals.proposals[proposal.ID]
		if ok && old.Completed == proposal.Completed &&
			old.Open == proposal.Open &&
			maps.Equal(old.Votes, proposal.Votes) &&
			reflect.DeepEqual(old.Action, proposal.Action) {
			continue
		}
		ret = append(ret, proposal)
	}
	return ret
}
