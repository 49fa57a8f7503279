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

// Package governance implements the member governance state machine: the
// member registry, the rights checks gating who may propose or vote, the
// proposal store, the voting engine and the executor applying the effect of
// completed proposals.
//
// Everything in this package is synchronous and operates on an explicit
// *State value owned by the caller. Callers are expected to serialize
// operations; the ledger package does so by applying one transaction at a
// time against a clone of the committed state.
//
// # Proposal lifecycle
//
// A proposal is created open with an implicit affirmative vote from its
// proposer. It completes when the affirmative votes of Active members are a
// strict majority of the Active population, at which point its action is
// executed exactly once. An open proposal may instead be removed by its
// proposer. Completed and removed proposals are terminal.
package governance
