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
	"log/slog"

	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governance"
)

const (
	ProposalCreatedEventType   event.EventType = "governance.proposal.created"
	ProposalVoteEventType      event.EventType = "governance.proposal.vote"
	ProposalCompletedEventType event.EventType = "governance.proposal.completed"
	ProposalRemovedEventType   event.EventType = "governance.proposal.removed"
	ActionFailedEventType      event.EventType = "governance.action.failed"
	MemberStatusEventType      event.EventType = "governance.member.status"
)

// EventTypes lists every event type published by the ledger
var EventTypes = []event.EventType{
	ProposalCreatedEventType,
	ProposalVoteEventType,
	ProposalCompletedEventType,
	ProposalRemovedEventType,
	ActionFailedEventType,
	MemberStatusEventType,
}

// ProposalCreatedEvent is emitted when a new proposal is recorded
type ProposalCreatedEvent struct {
	ActionKind governance.ActionKind
	ProposalID governance.ProposalID
	Proposer   governance.MemberID
}

// ProposalVoteEvent is emitted for every recorded vote
type ProposalVoteEvent struct {
	ProposalID governance.ProposalID
	Voter      governance.MemberID
	Accept     bool
}

// ProposalCompletedEvent is emitted once when a proposal reaches quorum.
// Result carries the outcome of the executed action.
type ProposalCompletedEvent struct {
	Result     governance.ActionResult
	ProposalID governance.ProposalID
}

// ProposalRemovedEvent is emitted when a proposer withdraws a proposal
type ProposalRemovedEvent struct {
	ProposalID governance.ProposalID
	Requester  governance.MemberID
}

// ActionFailedEvent is emitted when the action of a completed proposal
// could not be applied
type ActionFailedEvent struct {
	Failure    *governance.ActionFailure
	ProposalID governance.ProposalID
}

// MemberStatusEvent is emitted when a member is added or changes status.
// New is set for members that did not exist before the transaction.
type MemberStatusEvent struct {
	MemberID       governance.MemberID
	Status         governance.MemberStatus
	PreviousStatus governance.MemberStatus
	New            bool
}

// LogEvents subscribes to all ledger events and writes them to logger.
// Failed actions are logged as warnings, everything else at debug level.
// The returned function ends the subscriptions.
func LogEvents(bus *event.EventBus, logger *slog.Logger) func() {
	subIds := make(map[event.EventType]event.EventSubscriberId, len(EventTypes))
	for _, eventType := range EventTypes {
		subIds[eventType] = bus.SubscribeFunc(
			eventType,
			func(evt event.Event) {
				logEvent(logger, evt)
			},
		)
	}
	return func() {
		for eventType, subId := range subIds {
			bus.Unsubscribe(eventType, subId)
		}
	}
}

func logEvent(logger *slog.Logger, evt event.Event) {
	if data, ok := evt.Data.(ActionFailedEvent); ok && data.Failure != nil {
		logger.Warn(
			"governance action failed",
			"component", "ledger",
			"proposal_id", data.ProposalID,
			"kind", data.Failure.Kind,
			"error", data.Failure.Cause,
		)
		return
	}
	logger.Debug(
		"governance event",
		"component", "ledger",
		"type", string(evt.Type),
		"data", evt.Data,
	)
}
