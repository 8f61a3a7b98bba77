package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/hosted"
	"github.com/phrazzld/eventhost/internal/service/auth"
)

// mockAuthenticator implements Authenticator
type mockAuthenticator struct {
	AuthenticateFn func(ctx context.Context, password string) error
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, password string) error {
	return m.AuthenticateFn(ctx, password)
}

// mockJWTService implements auth.JWTService
type mockJWTService struct {
	Token     string
	ExpiresAt time.Time
	Err       error
	Subject   string
}

func (m *mockJWTService) GenerateToken(_ context.Context, subject string) (string, time.Time, error) {
	m.Subject = subject
	return m.Token, m.ExpiresAt, m.Err
}

func (m *mockJWTService) ValidateToken(context.Context, string) (*auth.Claims, error) {
	return nil, errors.New("not implemented")
}

// mockEmitter implements events.EventEmitter
type mockEmitter struct {
	mu      sync.Mutex
	Emitted []*events.Event
	Err     error
}

func (m *mockEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Emitted = append(m.Emitted, event)
	return nil
}

// mockStats implements StatsProvider
type mockStats struct {
	Value events.Stats
}

func (m *mockStats) Stats() events.Stats { return m.Value }

// mockReader implements EventReader
type mockReader struct {
	GetEventFn func(ctx context.Context, id uuid.UUID) (*events.Record, error)
}

func (m *mockReader) GetEvent(ctx context.Context, id uuid.UUID) (*events.Record, error) {
	return m.GetEventFn(ctx, id)
}

// mockRunner implements RunnerInspector
type mockRunner struct {
	state hosted.State
	err   error
	done  chan struct{}
}

func (m *mockRunner) Name() string        { return "event_bus" }
func (m *mockRunner) State() hosted.State { return m.state }
func (m *mockRunner) Err() error          { return m.err }

func (m *mockRunner) Done() <-chan struct{} {
	if m.done == nil {
		return make(chan struct{})
	}
	return m.done
}
