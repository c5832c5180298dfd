package nats

import (
	"context"
	"sync"
)

// MockPublisher is an in-memory Publisher for tests.
type MockPublisher struct {
	mu           sync.RWMutex
	events       []*WalletEvent
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{events: make([]*WalletEvent, 0)}
}

// PublishEvent records the event and returns any configured error.
func (m *MockPublisher) PublishEvent(ctx context.Context, event *WalletEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}
	m.events = append(m.events, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Events returns a copy of all published events.
func (m *MockPublisher) Events() []*WalletEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*WalletEvent, len(m.events))
	copy(events, m.events)
	return events
}

// EventsForAddress returns events published for a specific wallet.
func (m *MockPublisher) EventsForAddress(address string) []*WalletEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*WalletEvent, 0)
	for _, e := range m.events {
		if e.Address == address {
			events = append(events, e)
		}
	}
	return events
}

// SetPublishError configures the mock to fail PublishEvent.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
