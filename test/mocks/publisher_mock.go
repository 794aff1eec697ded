package mocks

import (
	"context"
	"sync"

	"github.com/familycare/visit-service/internal/core/ports"
)

// MockVisitEventPublisher implements ports.VisitEventPublisher so the outbox
// relay can be tested without RabbitMQ.
type MockVisitEventPublisher struct {
	mu sync.RWMutex

	PublishedEvents []ports.VisitEvent

	// Error injection
	PublishError error

	PublishCallCount int
}

var _ ports.VisitEventPublisher = (*MockVisitEventPublisher)(nil)

func NewMockVisitEventPublisher() *MockVisitEventPublisher {
	return &MockVisitEventPublisher{PublishedEvents: make([]ports.VisitEvent, 0)}
}

func (m *MockVisitEventPublisher) PublishVisitEvent(ctx context.Context, evt ports.VisitEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPublishedEvents returns a copy of the published events.
func (m *MockVisitEventPublisher) GetPublishedEvents() []ports.VisitEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]ports.VisitEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

func (m *MockVisitEventPublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}
