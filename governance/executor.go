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
	"fmt"
)

// NodeRegistry is the external node registry consulted by AcceptNode
type NodeRegistry interface {
	AcceptNode(nodeID uint64) error
}

// UserRegistry is the external user registry consulted by AddUser
type UserRegistry interface {
	AddUser(certificate []byte) (uint64, error)
}

// TableWriter is the external key/value table store consulted by RawTablePut
type TableWriter interface {
	PutTableEntry(table string, key string, value string) error
}

// Hooks bundles the external collaborators that action handlers call into.
// A nil hook makes the corresponding action fail when executed.
type Hooks struct {
	Nodes  NodeRegistry
	Users  UserRegistry
	Tables TableWriter
}

// ActionResult is the outcome of executing a completed proposal's action
type ActionResult struct {
	Failure  *ActionFailure
	Kind     ActionKind
	MemberID MemberID // set by AddMember
	UserID   uint64   // set by AddUser
}

// Failed returns true if the action could not be applied
func (r ActionResult) Failed() bool {
	return r.Failure != nil
}

// ActionExecutor applies the effect of completed proposals
type ActionExecutor struct {
	hooks Hooks
}

func NewActionExecutor(hooks Hooks) *ActionExecutor {
	return &ActionExecutor{hooks: hooks}
}

// Execute applies the action of a completed proposal. Failures are returned
// in the result and never change the completion of the proposal.
func (e *ActionExecutor) Execute(st *State, proposal Proposal) ActionResult {
	result := ActionResult{}
	if proposal.Action == nil {
		result.Failure = &ActionFailure{Cause: errors.New("proposal has no action")}
		return result
	}
	result.Kind = proposal.Action.Kind()
	var err error
	switch action := proposal.Action.(type) {
	case AcceptNode:
		if e.hooks.Nodes == nil {
			err = errors.New("no node registry available")
			break
		}
		err = e.hooks.Nodes.AcceptNode(action.NodeID)
	case AddUser:
		if e.hooks.Users == nil {
			err = errors.New("no user registry available")
			break
		}
		result.UserID, err = e.hooks.Users.AddUser(action.Certificate)
	case RawTablePut:
		if e.hooks.Tables == nil {
			err = errors.New("no table store available")
			break
		}
		err = e.hooks.Tables.PutTableEntry(action.Table, action.Key, action.Value)
	case AddMember:
		memberID := st.Members.Add(action.Certificate)
		if err = st.Members.SetStatus(memberID, MemberStatusAccepted); err == nil {
			result.MemberID = memberID
		}
	case RevokeMember:
		err = st.Members.SetStatus(action.MemberID, MemberStatusRevoked)
	default:
		err = fmt.Errorf("no handler for action %q", result.Kind)
	}
	if err != nil {
		result.Failure = &ActionFailure{
			Kind:  result.Kind,
			Cause: err,
		}
	}
	return result
}
