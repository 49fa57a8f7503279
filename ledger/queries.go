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

func (ls *LedgerState) currentState() (*governance.State, error) {
	ls.RLock()
	defer ls.RUnlock()
	if ls.state == nil {
		return nil, ErrLedgerNotStarted
	}
	return ls.state, nil
}

// Proposals returns snapshots of all committed proposals in id order
func (ls *LedgerState) Proposals() ([]governance.Proposal, error) {
	st, err := ls.currentState()
	if err != nil {
		return nil, err
	}
	return st.Proposals.List(), nil
}

// Proposal returns a snapshot of a single committed proposal
func (ls *LedgerState) Proposal(id governance.ProposalID) (governance.Proposal, error) {
	st, err := ls.currentState()
	if err != nil {
		return governance.Proposal{}, err
	}
	return st.Proposals.Get(id)
}

// Members returns all committed members in id order
func (ls *LedgerState) Members() ([]governance.Member, error) {
	st, err := ls.currentState()
	if err != nil {
		return nil, err
	}
	return st.Members.List(), nil
}

// Log returns the applied transactions in sequence order
func (ls *LedgerState) Log() ([]database.LogEntry, error) {
	return ls.db.LogEntries(nil)
}
