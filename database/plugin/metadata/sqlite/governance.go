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

package sqlite

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
)

// GetMembers returns all members in id order
func (d *MetadataStoreSqlite) GetMembers(txn types.Txn) ([]models.Member, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Member
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetMember inserts or updates a member
func (d *MetadataStoreSqlite) SetMember(
	member *models.Member,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"certificate", "status"}),
	}).Create(member)
	return result.Error
}

// GetProposals returns all proposals with their votes, in id order
func (d *MetadataStoreSqlite) GetProposals(
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	result := db.Preload("Votes", func(db *gorm.DB) *gorm.DB {
		return db.Order("member_id")
	}).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetProposal returns a single proposal with its votes
func (d *MetadataStoreSqlite) GetProposal(
	id uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Proposal{}
	result := db.Preload("Votes", func(db *gorm.DB) *gorm.DB {
		return db.Order("member_id")
	}).First(ret, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetProposal inserts or updates a proposal and upserts its votes
func (d *MetadataStoreSqlite) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"completed", "open"},
		),
	}).Create(proposal)
	if result.Error != nil {
		return result.Error
	}
	if len(proposal.Votes) == 0 {
		return nil
	}
	for i := range proposal.Votes {
		proposal.Votes[i].ProposalID = proposal.ID
	}
	result = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "member_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"accept"}),
	}).Create(&proposal.Votes)
	return result.Error
}
