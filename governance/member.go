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
	"strings"
)

// MemberID identifies a governance member. Zero is never assigned.
type MemberID uint64

// MemberStatus is the lifecycle status of a member
type MemberStatus uint8

const (
	MemberStatusProposed MemberStatus = iota
	MemberStatusAccepted
	MemberStatusActive
	MemberStatusRevoked
)

var memberStatusNames = map[MemberStatus]string{
	MemberStatusProposed: "proposed",
	MemberStatusAccepted: "accepted",
	MemberStatusActive:   "active",
	MemberStatusRevoked:  "revoked",
}

// memberTransitions lists the allowed status transitions
var memberTransitions = map[MemberStatus][]MemberStatus{
	MemberStatusProposed: {MemberStatusAccepted},
	MemberStatusAccepted: {MemberStatusActive, MemberStatusRevoked},
	MemberStatusActive:   {MemberStatusRevoked},
}

func (s MemberStatus) String() string {
	if name, ok := memberStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Valid returns true if the status is one of the known statuses
func (s MemberStatus) Valid() bool {
	_, ok := memberStatusNames[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s MemberStatus) CanTransitionTo(next MemberStatus) bool {
	return slices.Contains(memberTransitions[s], next)
}

// ParseMemberStatus returns the status with the given name
func ParseMemberStatus(name string) (MemberStatus, error) {
	for status, statusName := range memberStatusNames {
		if strings.EqualFold(statusName, name) {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown member status: %q", name)
}

// Member is a governance participant identified by its certificate
type Member struct {
	ID          MemberID
	Certificate []byte
	Status      MemberStatus
}

func (m Member) clone() Member {
	m.Certificate = bytes.Clone(m.Certificate)
	return m
}

// MemberRegistry tracks members and their status
type MemberRegistry struct {
	members map[MemberID]*Member
	nextID  MemberID
}

func NewMemberRegistry() *MemberRegistry {
	return &MemberRegistry{
		members: make(map[MemberID]*Member),
		nextID:  1,
	}
}

// Add registers a new member with status Proposed and returns its id
func (r *MemberRegistry) Add(certificate []byte) MemberID {
	id := r.nextID
	r.nextID++
	r.members[id] = &Member{
		ID:          id,
		Certificate: bytes.Clone(certificate),
		Status:      MemberStatusProposed,
	}
	return id
}

// Restore inserts a previously persisted member as-is. It is used when
// loading state and when bootstrapping genesis members.
func (r *MemberRegistry) Restore(member Member) error {
	if member.ID == 0 {
		return fmt.Errorf("invalid member id: %d", member.ID)
	}
	if !member.Status.Valid() {
		return fmt.Errorf("member %d: invalid status %d", member.ID, member.Status)
	}
	if _, ok := r.members[member.ID]; ok {
		return fmt.Errorf("member %d already exists", member.ID)
	}
	tmpMember := member.clone()
	r.members[member.ID] = &tmpMember
	if member.ID >= r.nextID {
		r.nextID = member.ID + 1
	}
	return nil
}

// Get returns a copy of the member with the given id
func (r *MemberRegistry) Get(id MemberID) (Member, error) {
	member, ok := r.members[id]
	if !ok {
		return Member{}, newError(CodeUnknownMember, "member %d", id)
	}
	return member.clone(), nil
}

// StatusOf returns the status of the member with the given id
func (r *MemberRegistry) StatusOf(id MemberID) (MemberStatus, error) {
	member, ok := r.members[id]
	if !ok {
		return 0, newError(CodeUnknownMember, "member %d", id)
	}
	return member.Status, nil
}

// SetStatus moves a member to a new status. Only transitions in the
// transition table are allowed.
func (r *MemberRegistry) SetStatus(id MemberID, status MemberStatus) error {
	member, ok := r.members[id]
	if !ok {
		return newError(CodeUnknownMember, "member %d", id)
	}
	if !member.Status.CanTransitionTo(status) {
		return newError(
			CodeInvalidStateTransition,
			"member %d: %s -> %s",
			id,
			member.Status,
			status,
		)
	}
	member.Status = status
	return nil
}

// Ack activates an accepted member
func (r *MemberRegistry) Ack(id MemberID) error {
	member, ok := r.members[id]
	if !ok {
		return newError(CodeUnknownMember, "member %d", id)
	}
	if member.Status != MemberStatusAccepted {
		return newError(
			CodeInvalidStateTransition,
			"member %d is %s, not %s",
			id,
			member.Status,
			MemberStatusAccepted,
		)
	}
	member.Status = MemberStatusActive
	return nil
}

// ActiveCount returns the number of members currently Active
func (r *MemberRegistry) ActiveCount() int {
	count := 0
	for _, member := range r.members {
		if member.Status == MemberStatusActive {
			count++
		}
	}
	return count
}

// List returns copies of all members in id order
func (r *MemberRegistry) List() []Member {
	ret := make([]Member, 0, len(r.members))
	for _, id := range slices.Sorted(maps.Keys(r.members)) {
		ret = append(ret, r.members[id].clone())
	}
	return ret
}

// Len returns the number of registered members
func (r *MemberRegistry) Len() int {
	return len(r.members)
}

func (r *MemberRegistry) clone() *MemberRegistry {
	ret := &MemberRegistry{
		members: make(map[MemberID]*Member, len(r.members)),
		nextID:  r.nextID,
	}
	for id, member := range r.members {
		tmpMember := member.clone()
		ret.members[id] = &tmpMember
	}
	return ret
}
