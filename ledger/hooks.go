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

package ledger

import (
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/governance"
)

// txnHooks applies action effects through an open database transaction so
// that they commit together with the proposal that triggered them
type txnHooks struct {
	db  *database.Database
	txn *database.Txn
}

func newTxnHooks(db *database.Database, txn *database.Txn) governance.Hooks {
	h := &txnHooks{db: db, txn: txn}
	return governance.Hooks{
		Nodes:  h,
		Users:  h,
		Tables: h,
	}
}

func (h *txnHooks) AcceptNode(nodeID uint64) error {
	return h.db.TrustNode(nodeID, h.txn)
}

func (h *txnHooks) AddUser(certificate []byte) (uint64, error) {
	return h.db.AddUser(certificate, h.txn)
}

func (h *txnHooks) PutTableEntry(table string, key string, value string) error {
	return h.db.TablePut(table, key, value, h.txn)
}
