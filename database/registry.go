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
)

// TrustNode marks a node as trusted, creating it if it is not yet known. It
// fails with models.ErrNodeAlreadyTrusted if the node is already trusted.
func (d *Database) TrustNode(nodeID uint64, txn *Txn) error {
	return d.withTxn(txn, true, func(txn *Txn) error {
		node, err := d.metadata.GetNode(nodeID, txn.Metadata())
		if err != nil && !errors.Is(err, models.ErrNodeNotFound) {
			return fmt.Errorf("get node %d: %w", nodeID, err)
		}
		if node != nil && node.Trusted {
			return fmt.Errorf("node %d: %w", nodeID, models.ErrNodeAlreadyTrusted)
		}
		return d.metadata.SetNode(
			&models.Node{ID: nodeID, Trusted: true},
			txn.Metadata(),
		)
	})
}

// GetNodes returns all known nodes in id order
func (d *Database) GetNodes(txn *Txn) ([]models.Node, error) {
	var ret []models.Node
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetNodes(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get nodes: %w", err)
	}
	return ret, nil
}

// AddUser registers a user certificate and returns the new user id
func (d *Database) AddUser(certificate []byte, txn *Txn) (uint64, error) {
	var ret uint64
	err := d.withTxn(txn, true, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.AddUser(certificate, txn.Metadata())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("add user: %w", err)
	}
	return ret, nil
}

// GetUsers returns all registered users in id order
func (d *Database) GetUsers(txn *Txn) ([]models.User, error) {
	var ret []models.User
	err := d.withTxn(txn, false, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetUsers(txn.Metadata())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return ret, nil
}
