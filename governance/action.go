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
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"
)

// ActionKind is the tag identifying an action variant
type ActionKind string

const (
	ActionKindAcceptNode   ActionKind = "accept_node"
	ActionKindAddUser      ActionKind = "add_user"
	ActionKindRawTablePut  ActionKind = "raw_table_put"
	ActionKindAddMember    ActionKind = "add_member"
	ActionKindRevokeMember ActionKind = "revoke_member"
)

// ActionKinds lists every supported action kind
var ActionKinds = []ActionKind{
	ActionKindAcceptNode,
	ActionKindAddUser,
	ActionKindRawTablePut,
	ActionKindAddMember,
	ActionKindRevokeMember,
}

var tableNameRegexp = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)

// Action is the effect a proposal applies when it completes. The set of
// implementations is closed.
type Action interface {
	Kind() ActionKind
	Validate() error
	isAction()
}

// AcceptNode marks a node as trusted
type AcceptNode struct {
	NodeID uint64 `json:"node_id"`
}

func (AcceptNode) Kind() ActionKind { return ActionKindAcceptNode }
func (AcceptNode) Validate() error  { return nil }
func (AcceptNode) isAction()        {}

// AddUser registers a user certificate
type AddUser struct {
	Certificate []byte `json:"certificate"`
}

func (AddUser) Kind() ActionKind { return ActionKindAddUser }

func (a AddUser) Validate() error {
	if len(a.Certificate) == 0 {
		return newError(CodeUnknownAction, "%s: empty certificate", a.Kind())
	}
	return nil
}

func (AddUser) isAction() {}

// RawTablePut writes a single entry into a named key/value table
type RawTablePut struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (RawTablePut) Kind() ActionKind { return ActionKindRawTablePut }

func (a RawTablePut) Validate() error {
	if !tableNameRegexp.MatchString(a.Table) {
		return newError(CodeUnknownAction, "%s: invalid table name %q", a.Kind(), a.Table)
	}
	if a.Key == "" {
		return newError(CodeUnknownAction, "%s: empty key", a.Kind())
	}
	return nil
}

func (RawTablePut) isAction() {}

// AddMember admits a new member, who becomes Accepted once the proposal
// completes and Active after acknowledging
type AddMember struct {
	Certificate []byte `json:"certificate"`
}

func (AddMember) Kind() ActionKind { return ActionKindAddMember }

func (a AddMember) Validate() error {
	if len(a.Certificate) == 0 {
		return newError(CodeUnknownAction, "%s: empty certificate", a.Kind())
	}
	return nil
}

func (AddMember) isAction() {}

// RevokeMember revokes an accepted or active member
type RevokeMember struct {
	MemberID MemberID `json:"member_id"`
}

func (RevokeMember) Kind() ActionKind { return ActionKindRevokeMember }

func (a RevokeMember) Validate() error {
	if a.MemberID == 0 {
		return newError(CodeUnknownAction, "%s: missing member id", a.Kind())
	}
	return nil
}

func (RevokeMember) isAction() {}

// EncodeActionParams returns the JSON parameters of an action, suitable for
// ParseAction
func EncodeActionParams(action Action) ([]byte, error) {
	return json.Marshal(action)
}

// ParseAction resolves an action tag and its JSON parameters into a typed
// action. Unknown tags and malformed parameters fail with UnknownAction.
func ParseAction(kind string, params []byte) (Action, error) {
	if len(params) == 0 {
		params = []byte("{}")
	}
	if !gjson.ValidBytes(params) {
		return nil, newError(CodeUnknownAction, "%s: params are not valid JSON", kind)
	}
	parsed := gjson.ParseBytes(params)
	if !parsed.IsObject() {
		return nil, newError(CodeUnknownAction, "%s: params must be an object", kind)
	}
	var action Action
	switch ActionKind(kind) {
	case ActionKindAcceptNode:
		nodeID, err := uintParam(parsed, kind, "node_id")
		if err != nil {
			return nil, err
		}
		action = AcceptNode{NodeID: nodeID}
	case ActionKindAddUser:
		cert, err := bytesParam(parsed, kind, "certificate")
		if err != nil {
			return nil, err
		}
		action = AddUser{Certificate: cert}
	case ActionKindAddMember:
		cert, err := bytesParam(parsed, kind, "certificate")
		if err != nil {
			return nil, err
		}
		action = AddMember{Certificate: cert}
	case ActionKindRevokeMember:
		memberID, err := uintParam(parsed, kind, "member_id")
		if err != nil {
			return nil, err
		}
		action = RevokeMember{MemberID: MemberID(memberID)}
	case ActionKindRawTablePut:
		tmpAction := RawTablePut{}
		for _, field := range []struct {
			name string
			dest *string
		}{
			{"table", &tmpAction.Table},
			{"key", &tmpAction.Key},
			{"value", &tmpAction.Value},
		} {
			val := parsed.Get(field.name)
			if val.Type != gjson.String {
				return nil, newError(CodeUnknownAction, "%s: %s must be a string", kind, field.name)
			}
			*field.dest = val.String()
		}
		action = tmpAction
	default:
		return nil, newError(CodeUnknownAction, "unknown action %q", kind)
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	return action, nil
}

func uintParam(parsed gjson.Result, kind string, name string) (uint64, error) {
	val := parsed.Get(name)
	if val.Type != gjson.Number {
		return 0, newError(CodeUnknownAction, "%s: %s must be a non-negative integer", kind, name)
	}
	// Parse the literal so out-of-range values are rejected, not truncated
	ret, err := strconv.ParseUint(val.Raw, 10, 64)
	if err != nil {
		return 0, newError(CodeUnknownAction, "%s: %s must be a non-negative 64-bit integer", kind, name)
	}
	return ret, nil
}

func bytesParam(parsed gjson.Result, kind string, name string) ([]byte, error) {
	val := parsed.Get(name)
	if val.Type != gjson.String {
		return nil, newError(CodeUnknownAction, "%s: %s must be a base64 string", kind, name)
	}
	ret, err := base64.StdEncoding.DecodeString(val.String())
	if err != nil {
		return nil, newError(CodeUnknownAction, "%s: %s: %s", kind, name, err)
	}
	return ret, nil
}
