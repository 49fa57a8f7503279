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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governance"
)

// DefaultQueueSize is the number of transactions that may wait for the
// ledger worker before submitters block
const DefaultQueueSize = 16

const (
	opGenesis = "genesis"
	opPropose = "propose"
	opVote    = "vote"
	opAck     = "ack"
	opRemoval = "removal"
)

var (
	ErrLedgerClosed     = errors.New("ledger is closed")
	ErrLedgerNotStarted = errors.New("ledger is not started")
)

type LedgerStateConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// Certificates of the members bootstrapped as Active when the database
	// holds no members
	Genesis   [][]byte
	QueueSize int
}

// LedgerState is the single writer of the governance state. Transactions
// are queued and applied one at a time, and each one is persisted before
// it becomes visible to readers.
type LedgerState struct {
	sync.RWMutex
	config    LedgerStateConfig
	db        *database.Database
	state     *governance.State
	metrics   stateMetrics
	tracer    trace.Tracer
	requests  chan *request
	done      chan struct{}
	stopped   chan struct{}
	started   atomic.Bool
	closeOnce sync.Once
}

type request struct {
	ctx    context.Context
	params any
	apply  func(*governance.Service) (any, []event.Event, error)
	respCh chan response
	op     string
	member governance.MemberID
}

type response struct {
	result any
	err    error
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	ls := &LedgerState{
		config:   cfg,
		db:       cfg.Database,
		tracer:   otel.Tracer("github.com/blinklabs-io/gavel/ledger"),
		requests: make(chan *request, cfg.QueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	ls.metrics.init(cfg.PromRegistry)
	return ls, nil
}

// Start loads the governance state from the database, bootstrapping the
// genesis members if there are none yet, and starts the ledger worker
func (ls *LedgerState) Start() error {
	if ls.started.Load() {
		return errors.New("ledger already started")
	}
	select {
	case <-ls.done:
		return ErrLedgerClosed
	default:
	}
	txn := ls.db.Transaction(false)
	st, err := loadState(ls.db, txn)
	txn.Release()
	if err != nil {
		return fmt.Errorf("failed to load governance state: %w", err)
	}
	if st.Members.Len() == 0 && len(ls.config.Genesis) > 0 {
		st, err = ls.bootstrapGenesis(st)
		if err != nil {
			return fmt.Errorf("failed to bootstrap genesis members: %w", err)
		}
	}
	ls.Lock()
	ls.state = st
	ls.Unlock()
	ls.updateStateMetrics(st)
	logLength, err := ls.db.LogLength(nil)
	if err != nil {
		return err
	}
	ls.metrics.logSequence.Set(float64(logLength))
	ls.config.Logger.Info(
		"loaded governance state",
		"component", "ledger",
		"members", st.Members.Len(),
		"active_members", st.Members.ActiveCount(),
		"next_proposal_id", st.Proposals.NextID(),
		"log_length", logLength,
	)
	ls.started.Store(true)
	go ls.worker()
	return nil
}

func (ls *LedgerState) bootstrapGenesis(
	prev *governance.State,
) (*governance.State, error) {
	next, err := ls.genesisState(prev)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(map[string]int{"members": len(ls.config.Genesis)})
	if err != nil {
		return nil, err
	}
	err = ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := saveChanges(ls.db, prev, next, txn); err != nil {
			return err
		}
		return ls.db.AppendLog(
			&database.LogEntry{
				Timestamp: time.Now(),
				Op:        opGenesis,
				Params:    params,
			},
			txn,
		)
	})
	if err != nil {
		return nil, err
	}
	ls.config.Logger.Info(
		"bootstrapped genesis members",
		"component", "ledger",
		"count", len(ls.config.Genesis),
	)
	return next, nil
}

// genesisState returns a copy of prev with the genesis members added as
// Active members
func (ls *LedgerState) genesisState(
	prev *governance.State,
) (*governance.State, error) {
	next := prev.Clone()
	for idx, cert := range ls.config.Genesis {
		err := next.Members.Restore(governance.Member{
			ID:          governance.MemberID(idx + 1),
			Certificate: cert,
			Status:      governance.MemberStatusActive,
		})
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Close stops the ledger worker and waits for it to exit. Transactions that
// have not been applied yet fail with ErrLedgerClosed.
func (ls *LedgerState) Close() error {
	ls.closeOnce.Do(func() {
		close(ls.done)
		if !ls.started.Load() {
			close(ls.stopped)
		}
	})
	<-ls.stopped
	return nil
}

func (ls *LedgerState) worker() {
	defer close(ls.stopped)
	for {
		select {
		case <-ls.done:
			ls.drainRequests()
			return
		case req := <-ls.requests:
			req.respCh <- ls.processRequest(req)
		}
	}
}

func (ls *LedgerState) drainRequests() {
	for {
		select {
		case req := <-ls.requests:
			req.respCh <- response{err: ErrLedgerClosed}
		default:
			return
		}
	}
}

// submit queues a transaction and waits for its outcome. Cancelling ctx
// abandons the wait, but a transaction already queued may still be applied.
func (ls *LedgerState) submit(req *request) (any, error) {
	if !ls.started.Load() {
		return nil, ErrLedgerNotStarted
	}
	if req.ctx == nil {
		req.ctx = context.Background()
	}
	req.respCh = make(chan response, 1)
	select {
	case <-ls.done:
		return nil, ErrLedgerClosed
	default:
	}
	select {
	case ls.requests <- req:
	case <-req.ctx.Done():
		return nil, req.ctx.Err()
	case <-ls.done:
		return nil, ErrLedgerClosed
	}
	select {
	case resp := <-req.respCh:
		return resp.result, resp.err
	case <-req.ctx.Done():
		return nil, req.ctx.Err()
	case <-ls.stopped:
		// The worker replies before it exits
		select {
		case resp := <-req.respCh:
			return resp.result, resp.err
		default:
			return nil, ErrLedgerClosed
		}
	}
}

func (ls *LedgerState) processRequest(req *request) response {
	start := time.Now()
	_, span := ls.tracer.Start(
		context.WithoutCancel(req.ctx),
		"ledger."+req.op,
		trace.WithAttributes(
			attribute.String("gavel.op", req.op),
			attribute.Int64("gavel.member", int64(req.member)), //nolint:gosec // member ids fit
		),
	)
	defer span.End()
	// Only the worker replaces the state, so it can read it without locking
	prev := ls.state
	next := prev.Clone()
	txn := ls.db.Transaction(true)
	defer txn.Release()
	svc := governance.NewService(next, newTxnHooks(ls.db, txn))
	result, events, err := req.apply(svc)
	if err != nil {
		ls.reject(req, span, err)
		return response{err: err}
	}
	params, err := json.Marshal(req.params)
	if err != nil {
		err = fmt.Errorf("encode %s params: %w", req.op, err)
		ls.reject(req, span, err)
		return response{err: err}
	}
	entry := &database.LogEntry{
		Timestamp: start,
		Op:        req.op,
		Member:    uint64(req.member),
		Params:    params,
	}
	if err := saveChanges(ls.db, prev, next, txn); err != nil {
		err = fmt.Errorf("persist %s: %w", req.op, err)
		ls.reject(req, span, err)
		return response{err: err}
	}
	if err := ls.db.AppendLog(entry, txn); err != nil {
		err = fmt.Errorf("append %s to log: %w", req.op, err)
		ls.reject(req, span, err)
		return response{err: err}
	}
	if err := txn.Commit(); err != nil {
		err = fmt.Errorf("commit %s: %w", req.op, err)
		ls.reject(req, span, err)
		return response{err: err}
	}
	events = append(events, memberStatusEvents(prev, next)...)
	ls.Lock()
	ls.state = next
	ls.Unlock()
	span.SetAttributes(attribute.Int64("gavel.seq", int64(entry.Seq))) //nolint:gosec // sequence fits
	ls.metrics.txnsApplied.WithLabelValues(req.op).Inc()
	ls.metrics.txnDuration.Observe(time.Since(start).Seconds())
	ls.metrics.logSequence.Set(float64(entry.Seq + 1))
	ls.updateStateMetrics(next)
	ls.config.Logger.Debug(
		"applied transaction",
		"component", "ledger",
		"op", req.op,
		"member", req.member,
		"seq", entry.Seq,
	)
	ls.publish(events)
	return response{result: result}
}

func (ls *LedgerState) reject(req *request, span trace.Span, err error) {
	code := "internal"
	if govCode, ok := governance.CodeOf(err); ok {
		code = string(govCode)
	} else {
		span.RecordError(err)
		ls.config.Logger.Error(
			"failed to apply transaction",
			"component", "ledger",
			"op", req.op,
			"member", req.member,
			"error", err,
		)
	}
	span.SetStatus(codes.Error, code)
	ls.metrics.txnsRejected.WithLabelValues(req.op, code).Inc()
}

func (ls *LedgerState) publish(events []event.Event) {
	for _, evt := range events {
		switch data := evt.Data.(type) {
		case ProposalCreatedEvent:
			ls.metrics.proposalsCreated.Inc()
		case ProposalVoteEvent:
			ls.metrics.votesCast.WithLabelValues(fmt.Sprintf("%t", data.Accept)).Inc()
		case ProposalCompletedEvent:
			ls.metrics.proposalsCompleted.Inc()
		case ProposalRemovedEvent:
			ls.metrics.proposalsRemoved.Inc()
		case ActionFailedEvent:
			ls.metrics.actionFailures.WithLabelValues(string(data.Failure.Kind)).Inc()
			ls.config.Logger.Warn(
				"proposal completed but its action failed",
				"component", "ledger",
				"proposal", data.ProposalID,
				"kind", data.Failure.Kind,
				"error", data.Failure.Cause,
			)
		}
		if ls.config.EventBus != nil {
			ls.config.EventBus.Publish(evt)
		}
	}
}

func (ls *LedgerState) updateStateMetrics(st *governance.State) {
	ls.metrics.activeMembers.Set(float64(st.Members.ActiveCount()))
	open := 0
	for _, proposal := range st.Proposals.List() {
		if proposal.State() == governance.ProposalStateOpen {
			open++
		}
	}
	ls.metrics.openProposals.Set(float64(open))
}

func memberStatusEvents(prev *governance.State, next *governance.State) []event.Event {
	var ret []event.Event
	for _, member := range governance.ChangedMembers(prev, next) {
		evt := MemberStatusEvent{
			MemberID: member.ID,
			Status:   member.Status,
		}
		if old, err := prev.Members.Get(member.ID); err != nil {
			evt.New = true
		} else {
			evt.PreviousStatus = old.Status
		}
		ret = append(ret, event.NewEvent(MemberStatusEventType, evt))
	}
	return ret
}

func completionEvents(
	id governance.ProposalID,
	result *governance.ActionResult,
) []event.Event {
	if result == nil {
		return nil
	}
	ret := []event.Event{
		event.NewEvent(
			ProposalCompletedEventType,
			ProposalCompletedEvent{ProposalID: id, Result: *result},
		),
	}
	if result.Failed() {
		ret = append(
			ret,
			event.NewEvent(
				ActionFailedEventType,
				ActionFailedEvent{ProposalID: id, Failure: result.Failure},
			),
		)
	}
	return ret
}
