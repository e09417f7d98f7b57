package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// PublishedEvent is an event captured by MockEventPublisher
type PublishedEvent struct {
	RoutingKey string
	Payload    map[string]interface{}
}

// MockEventPublisher records published events for testing
type MockEventPublisher struct {
	events []PublishedEvent
	fail   bool
	mu     sync.RWMutex
}

// NewMockEventPublisher creates a new mock event publisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// SetAsMockForTesting sets this mock as the global event publisher for testing
func (m *MockEventPublisher) SetAsMockForTesting() {
	SetEventPublisher(m)
}

// FailPublishing makes every subsequent Publish call return an error
func (m *MockEventPublisher) FailPublishing() {
	m.mu.Lock()
	m.fail = true
	m.mu.Unlock()
}

// Publish records the event, round-tripping the payload through JSON
func (m *MockEventPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New("mock broker unavailable")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return err
	}

	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, Payload: decoded})
	return nil
}

func (m *MockEventPublisher) Close() error { return nil }

// Events returns a copy of all recorded events
func (m *MockEventPublisher) Events() []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]PublishedEvent, len(m.events))
	copy(events, m.events)
	return events
}

// EventsWithKey returns the recorded events with the given routing key
func (m *MockEventPublisher) EventsWithKey(routingKey string) []PublishedEvent {
	var matched []PublishedEvent
	for _, e := range m.Events() {
		if e.RoutingKey == routingKey {
			matched = append(matched, e)
		}
	}
	return matched
}
