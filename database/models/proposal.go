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

package models

import "errors"

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal is a persisted governance proposal. ActionParams holds the JSON
// parameters of the action identified by ActionKind.
type Proposal struct {
	ID           uint64         `gorm:"primarykey;autoIncrement:false"`
	ProposerID   uint64         `gorm:"index;not null"`
	ActionKind   string         `gorm:"size:32;not null"`
	ActionParams []byte         `gorm:"not null"`
	Votes        []ProposalVote `gorm:"foreignKey:ProposalID;constraint:OnDelete:CASCADE"`
	Completed    bool           `gorm:"index;not null"`
	Open         bool           `gorm:"index;not null"`
}

func (Proposal) TableName() string {
	return "proposal"
}

// ProposalVote is the latest vote of a member on a proposal
type ProposalVote struct {
	ID         uint   `gorm:"primarykey"`
	ProposalID uint64 `gorm:"uniqueIndex:idx_proposal_vote_member,priority:1;not null"`
	MemberID   uint64 `gorm:"uniqueIndex:idx_proposal_vote_member,priority:2;not null"`
	Accept     bool   `gorm:"not null"`
}

func (ProposalVote) TableName() string {
	return "proposal_vote"
}
