package crm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"crm-copy/portal-backend/internal/settings"
	"crm-copy/portal-backend/pkg/workflows"
)

var (
	ErrUnknownState   = errors.New("unknown authorization state")
	ErrStateExpired   = errors.New("authorization state expired")
	ErrExchangeFailed = errors.New("authorization code exchange failed")
	ErrSuperseded     = errors.New("authorization superseded by a newer attempt")
)

// State is the per-user position in the authorization handshake
type State string

const (
	StateDisconnected State = "disconnected"
	StatePending      State = "pending"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

var handshakeMachine = workflows.NewStateMachine(map[string][]string{
	string(StateDisconnected): {string(StatePending)},
	string(StatePending):      {string(StatePending), string(StateConnected), string(StateFailed)},
	string(StateFailed):       {string(StatePending)},
	string(StateConnected):    {string(StatePending)},
})

// ConnectionRecorder persists the outcome of a handshake
type ConnectionRecorder interface {
	SetConnectionStatus(ctx context.Context, userID string, connected bool, accountEmail string) (*settings.ConnectionStatus, error)
}

// ProviderConfig describes the CRM authorization endpoint
type ProviderConfig struct {
	ClientID    string
	AuthURL     string
	RedirectURI string
	Scopes      []string
	PendingTTL  time.Duration
}

// Authorization is returned to the client to start the provider redirect
type Authorization struct {
	State     string    `json:"state"`
	AuthURL   string    `json:"auth_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type pendingAuthorization struct {
	state        string
	userID       string
	codeVerifier string
	expiresAt    time.Time
	attempt      uint64
}

// Service runs the authorization-code handshake with the CRM provider
type Service struct {
	mu        sync.Mutex
	pending   map[string]*pendingAuthorization
	states    map[string]State
	attempts  map[string]uint64
	provider  ProviderConfig
	exchanger Exchanger
	recorder  ConnectionRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new handshake service
func NewService(provider ProviderConfig, exchanger Exchanger, recorder ConnectionRecorder, logger *zap.Logger) *Service {
	return &Service{
		pending:   make(map[string]*pendingAuthorization),
		states:    make(map[string]State),
		attempts:  make(map[string]uint64),
		provider:  provider,
		exchanger: exchanger,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// Begin starts a handshake for userID and returns the provider URL to redirect to
func (s *Service) Begin(ctx context.Context, userID string) (*Authorization, error) {
	stateValue, err := generateToken(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier, err := generateToken(48)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	authURL, err := url.Parse(s.provider.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("invalid provider auth url: %w", err)
	}
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", s.provider.ClientID)
	query.Set("redirect_uri", s.provider.RedirectURI)
	query.Set("scope", strings.Join(s.provider.Scopes, " "))
	query.Set("state", stateValue)
	query.Set("code_challenge", ComputeS256Challenge(verifier))
	query.Set("code_challenge_method", "S256")
	authURL.RawQuery = query.Encode()

	expiresAt := s.now().UTC().Add(s.provider.PendingTTL)

	s.mu.Lock()
	if err := s.transitionLocked(userID, StatePending); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	// A user has at most one authorization in flight; older states stop working.
	for key, p := range s.pending {
		if p.userID == userID {
			delete(s.pending, key)
		}
	}
	s.attempts[userID]++
	s.pending[stateValue] = &pendingAuthorization{
		state:        stateValue,
		userID:       userID,
		codeVerifier: verifier,
		expiresAt:    expiresAt,
		attempt:      s.attempts[userID],
	}
	s.mu.Unlock()

	s.logger.Info("CRM authorization started", zap.String("user_id", userID))

	return &Authorization{
		State:     stateValue,
		AuthURL:   authURL.String(),
		ExpiresAt: expiresAt,
	}, nil
}

// Complete exchanges the code returned by the provider. A state value is usable once.
func (s *Service) Complete(ctx context.Context, stateValue, code string) (*settings.ConnectionStatus, error) {
	p, err := s.takePending(stateValue)
	if err != nil {
		return nil, err
	}

	token, err := s.exchanger.Exchange(ctx, code, p.codeVerifier)
	if err != nil {
		s.logger.Warn("CRM code exchange failed", zap.Error(err), zap.String("user_id", p.userID))
		s.settle(p, StateFailed)
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	// Nothing is persisted for an attempt the user has already restarted.
	if !s.isCurrent(p) {
		return nil, ErrSuperseded
	}

	status, err := s.recorder.SetConnectionStatus(ctx, p.userID, true, token.AccountEmail)
	if err != nil {
		s.settle(p, StateFailed)
		return nil, fmt.Errorf("failed to record connection: %w", err)
	}

	s.settle(p, StateConnected)
	s.logger.Info("CRM connected", zap.String("user_id", p.userID))
	return status, nil
}

// Abort marks the handshake failed when the provider reports an error
func (s *Service) Abort(stateValue, reason string) error {
	p, err := s.takePending(stateValue)
	if err != nil {
		return err
	}
	s.settle(p, StateFailed)
	s.logger.Info("CRM authorization denied", zap.String("user_id", p.userID), zap.String("reason", reason))
	return nil
}

// Status returns the handshake state of a user
func (s *Service) Status(userID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[userID]; ok {
		return state
	}
	return StateDisconnected
}

// Sweep drops expired pending authorizations and fails their handshakes
func (s *Service) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, key)
			_ = s.transitionLocked(p.userID, StateFailed)
			removed++
		}
	}
	return removed
}

func (s *Service) takePending(stateValue string) (*pendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[stateValue]
	if !ok {
		return nil, ErrUnknownState
	}
	delete(s.pending, stateValue)

	if s.now().After(p.expiresAt) {
		_ = s.transitionLocked(p.userID, StateFailed)
		return nil, ErrStateExpired
	}
	return p, nil
}

func (s *Service) isCurrent(p *pendingAuthorization) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[p.userID] == p.attempt
}

// settle moves the handshake of p's user to the given state unless a newer attempt started
func (s *Service) settle(p *pendingAuthorization, to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts[p.userID] != p.attempt {
		return
	}
	if err := s.transitionLocked(p.userID, to); err != nil {
		s.logger.Warn("Ignored handshake transition", zap.Error(err), zap.String("user_id", p.userID))
	}
}

func (s *Service) transitionLocked(userID string, to State) error {
	from, ok := s.states[userID]
	if !ok {
		from = StateDisconnected
	}
	next, err := handshakeMachine.Transition(string(from), string(to))
	if err != nil {
		return err
	}
	s.states[userID] = State(next)
	return nil
}
