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

func (d *MetadataStoreSqlite) GetNode(
	id uint64,
	txn types.Txn,
) (*models.Node, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Node{}
	if result := db.First(ret, "id = ?", id); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrNodeNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) GetNodes(txn types.Txn) ([]models.Node, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Node
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) SetNode(node *models.Node, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"trusted"}),
	}).Create(node)
	return result.Error
}

func (d *MetadataStoreSqlite) GetUserByCertificate(
	certificate []byte,
	txn types.Txn,
) (*models.User, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.User{}
	if result := db.First(ret, "certificate = ?", certificate); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, result.Error
	}
	return ret, nil
}

func (d *MetadataStoreSqlite) GetUsers(txn types.Txn) ([]models.User, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.User
	if result := db.Order("id").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// AddUser registers a user certificate and returns the new user id
func (d *MetadataStoreSqlite) AddUser(
	certificate []byte,
	txn types.Txn,
) (uint64, error) {
	if _, err := d.GetUserByCertificate(certificate, txn); err == nil {
		return 0, models.ErrUserAlreadyExists
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return 0, err
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	tmpUser := &models.User{Certificate: certificate}
	if result := db.Create(tmpUser); result.Error != nil {
		return 0, result.Error
	}
	return tmpUser.ID, nil
}
