package onboarding

import (
	"context"
	"sync"

	"crm-copy/portal-backend/pkg/workflows"
)

// ConnectionState is the state of the simulated CRM connection screen
type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connected    ConnectionState = "connected"
)

var connectionMachine = workflows.NewStateMachine(map[string][]string{
	string(Disconnected): {string(Connected)},
})

// ConnectionScreen flips a local connected flag; nothing leaves the process.
type ConnectionScreen struct {
	mu          sync.Mutex
	state       ConnectionState
	navigator   Navigator
	destination string
}

// NewConnectionScreen returns a disconnected screen that continues to the onboarding form
func NewConnectionScreen(navigator Navigator, cfg Config) *ConnectionScreen {
	return &ConnectionScreen{
		state:       Disconnected,
		navigator:   navigator,
		destination: cfg.OnboardingPath,
	}
}

// Connect moves the screen to Connected. It reports whether the state changed;
// calling it again once connected is a no-op.
func (s *ConnectionScreen) Connect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := connectionMachine.Transition(string(s.state), string(Connected))
	if err != nil {
		return false
	}
	s.state = ConnectionState(next)
	return true
}

// Continue requests navigation to the onboarding form. It is not gated on the
// connection state.
func (s *ConnectionScreen) Continue(ctx context.Context) {
	s.navigator.Navigate(ctx, s.destination)
}

// State returns the current connection state
func (s *ConnectionScreen) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether the success view should be rendered
func (s *ConnectionScreen) IsConnected() bool {
	return s.State() == Connected
}
