package feed

import (
	"context"
)

// Source is the boundary to the external feed client: an already-decoded
// event stream plus non-fatal errors. Connection/session management
// (reconnect, resubscribe, heartbeats) lives behind Run.
type Source interface {
	Run(ctx context.Context, onStatus func(connected bool))
	Events() <-chan Event
	Errors() <-chan error
	Close()
}

// ---------- Test/mock source (handy for dispatcher tests & demos) ----------

type MockSource struct {
	events chan Event
	errors chan error
	ctx    context.Context
	cancel context.CancelFunc
}

func NewMockSource() *MockSource {
	return &MockSource{
		events: make(chan Event, 64),
		errors: make(chan error, 16),
	}
}

func (m *MockSource) Run(ctx context.Context, onStatus func(connected bool)) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	onStatus(true)
	<-m.ctx.Done()
}

func (m *MockSource) Events() <-chan Event { return m.events }
func (m *MockSource) Errors() <-chan error { return m.errors }

func (m *MockSource) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	close(m.events)
	close(m.errors)
}

// Helpers for tests
func (m *MockSource) SendEvent(ev Event) { m.events <- ev }
func (m *MockSource) SendError(err error) { m.errors <- err }
