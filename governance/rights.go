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

// RightsChecker answers whether a member may take part in governance
type RightsChecker struct {
	members *MemberRegistry
}

func NewRightsChecker(members *MemberRegistry) RightsChecker {
	return RightsChecker{members: members}
}

// CanPropose returns true if the member is Active
func (c RightsChecker) CanPropose(id MemberID) bool {
	return c.isActive(id)
}

// CanVote returns true if the member is Active
func (c RightsChecker) CanVote(id MemberID) bool {
	return c.isActive(id)
}

func (c RightsChecker) isActive(id MemberID) bool {
	if c.members == nil {
		return false
	}
	status, err := c.members.StatusOf(id)
	if err != nil {
		return false
	}
	return status == MemberStatusActive
}
