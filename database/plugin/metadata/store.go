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

package metadata

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/plugin"
	"github.com/blinklabs-io/gavel/database/types"
)

type MetadataStore interface {
	plugin.Plugin

	// Database
	Close() error
	DB() *gorm.DB
	Transaction() types.Txn
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(timestamp int64, txn types.Txn) error

	// Governance state
	GetMembers(txn types.Txn) ([]models.Member, error)
	SetMember(member *models.Member, txn types.Txn) error
	GetProposals(txn types.Txn) ([]models.Proposal, error)
	GetProposal(id uint64, txn types.Txn) (*models.Proposal, error)
	SetProposal(proposal *models.Proposal, txn types.Txn) error

	// Action targets
	GetNode(id uint64, txn types.Txn) (*models.Node, error)
	GetNodes(txn types.Txn) ([]models.Node, error)
	SetNode(node *models.Node, txn types.Txn) error
	GetUserByCertificate(certificate []byte, txn types.Txn) (*models.User, error)
	GetUsers(txn types.Txn) ([]models.User, error)
	AddUser(certificate []byte, txn types.Txn) (uint64, error)
}

// New returns the started metadata plugin selected by name
func New(pluginName string, opts plugin.RuntimeOptions) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName, opts)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		_ = p.Stop()
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
