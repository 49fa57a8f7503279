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

package database

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
)

// GetMembers returns all persisted members in id order
func (d *Database) GetMembers(txn *Txn) ([]models.Member, error) {
	var ret []models.Member
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetMembers(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	return ret, nil
}

// SetMember inserts or updates a member
func (d *Database) SetMember(member *models.Member, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetMember(member, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set member %d: %w", member.ID, err)
	}
	return nil
}

// GetProposals returns all persisted proposals with their votes, in id
// order
func (d *Database) GetProposals(txn *Txn) ([]models.Proposal, error) {
	var ret []models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposals(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get proposals: %w", err)
	}
	return ret, nil
}

// GetProposal returns a single persisted proposal
func (d *Database) GetProposal(id uint64, txn *Txn) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposal(id, txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get proposal %d: %w", id, err)
	}
	return ret, nil
}

// SetProposal inserts or updates a proposal and its votes
func (d *Database) SetProposal(proposal *models.Proposal, txn *Txn) error {
	err := d.withTxn(txn, true, func(txn *Txn) error {
		return d.metadata.SetProposal(proposal, txn.Metadata())
	})
	if err != nil {
		return fmt.Errorf("set proposal %d: %w", proposal.ID, err)
	}
	return nil
}

// GetProposalCounter returns the persisted next proposal id
func (d *Database) GetProposalCounter(txn *Txn) (uint64, error) {
	return d.getCounter(types.ProposalCounterBlobKey, txn)
}

// SetProposalCounter persists the next proposal id
func (d *Database) SetProposalCounter(next uint64, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		return d.blob.Set(
			txn.Blob(),
			[]byte(types.ProposalCounterBlobKey),
			types.Uint64ToBytes(next),
		)
	})
}

func (d *Database) getCounter(key string, txn *Txn) (uint64, error) {
	var ret uint64
	err := d.withTxn(txn, false, func(txn *Txn) error {
		val, err := d.blob.Get(txn.Blob(), []byte(key))
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return nil
			}
			return err
		}
		ret = types.BytesToUint64(val)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return ret, nil
}
