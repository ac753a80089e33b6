package onboarding

import (
	"context"

	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/settings"
)

// Navigator moves the client to another screen
type Navigator interface {
	Navigate(ctx context.Context, destination string)
}

// Notifier shows a toast to the user; it never fails
type Notifier interface {
	Notify(ctx context.Context, severity notifications.Severity, message string)
}

// SettingsSaver persists the brand settings chosen on the form
type SettingsSaver interface {
	Save(ctx context.Context, companyName string, tone settings.BrandTone) error
}

// Config holds the fixed destinations and literals of the onboarding screens
type Config struct {
	DashboardPath       string
	OnboardingPath      string
	FallbackCompanyName string
}

// DefaultConfig returns the destinations used by the web client
func DefaultConfig() Config {
	return Config{
		DashboardPath:       "/dashboard",
		OnboardingPath:      "/onboarding",
		FallbackCompanyName: "My Company",
	}
}
