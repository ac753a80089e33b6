package onboarding

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/settings"
)

// MockSaver is a mock implementation of the SettingsSaver interface
type MockSaver struct {
	mock.Mock
}

func (m *MockSaver) Save(ctx context.Context, companyName string, tone settings.BrandTone) error {
	args := m.Called(ctx, companyName, tone)
	return args.Error(0)
}

type spyNavigator struct {
	mu           sync.Mutex
	destinations []string
}

func (n *spyNavigator) Navigate(_ context.Context, destination string) {
	n.mu.Lock()
	n.destinations = append(n.destinations, destination)
	n.mu.Unlock()
}

func (n *spyNavigator) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.destinations...)
}

type spyNotifier struct {
	mu     sync.Mutex
	toasts []notifications.Toast
}

func (n *spyNotifier) Notify(_ context.Context, severity notifications.Severity, message string) {
	n.mu.Lock()
	n.toasts = append(n.toasts, notifications.Toast{Severity: severity, Message: message})
	n.mu.Unlock()
}

func (n *spyNotifier) count(severity notifications.Severity) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, t := range n.toasts {
		if t.Severity == severity {
			count++
		}
	}
	return count
}
