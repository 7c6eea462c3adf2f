package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Broadcaster is a testify mock of the delivery fan-out surface.
type Broadcaster struct {
	mock.Mock
}

func (m *Broadcaster) ToConversation(conversationID string, event string, data any) {
	m.Called(conversationID, event, data)
}

func (m *Broadcaster) ToUser(waID string, event string, data any) {
	m.Called(waID, event, data)
}

func (m *Broadcaster) ToAll(event string, data any) {
	m.Called(event, data)
}

// Publisher is a testify mock of the broker publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *Publisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
