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

package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventQueueSize is the buffer size of each subscriber channel
const EventQueueSize = 64

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type subscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// deliver queues the event without blocking the publisher. It returns false
// if the subscriber is closed or its queue is full.
func (s *subscriber) deliver(evt Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// EventBus fans out events to subscribers by event type. Publishing never
// blocks: events for a subscriber whose queue is full are dropped and
// counted.
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]*subscriber
	metrics     *eventMetrics
	logger      *slog.Logger
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]*subscriber),
		logger:      logger.With("component", "event"),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := &subscriber{
		ch: make(chan Event, EventQueueSize),
	}
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId, sub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via
// a callback function. The callback runs on its own goroutine until the
// subscription ends.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			e.runHandler(handlerFunc, evt)
		}
	}()
	return subId
}

// runHandler calls the handler, logging and swallowing any panic so the
// subscription keeps running
func (e *EventBus) runHandler(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				"event handler panic",
				"type", evt.Type,
				"panic", r,
			)
		}
	}()
	handlerFunc(evt)
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	sub, ok := e.subscribers[eventType][subId]
	if ok {
		delete(e.subscribers[eventType], subId)
		if len(e.subscribers[eventType]) == 0 {
			delete(e.subscribers, eventType)
		}
		if e.metrics != nil {
			e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
		}
	}
	e.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish sends an event to all subscribers of its type
func (e *EventBus) Publish(evt Event) {
	e.mu.RLock()
	subs := make([]*subscriber, 0, len(e.subscribers[evt.Type]))
	for _, sub := range e.subscribers[evt.Type] {
		subs = append(subs, sub)
	}
	e.mu.RUnlock()
	for _, sub := range subs {
		if sub.deliver(evt) {
			continue
		}
		e.logger.Debug(
			"dropped event for subscriber",
			"type", evt.Type,
		)
		if e.metrics != nil {
			e.metrics.dropped.WithLabelValues(string(evt.Type)).Inc()
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Stop closes all subscriber channels, which ends SubscribeFunc goroutines.
// The bus can be subscribed to again afterward.
func (e *EventBus) Stop() {
	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]*subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subs {
		for _, sub := range evtTypeSubs {
			sub.close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
