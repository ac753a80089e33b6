package onboarding

import (
	"context"
	"strings"
	"sync"

	"crm-copy/portal-backend/internal/notifications"
	"crm-copy/portal-backend/internal/settings"
)

// SubmitResult is the outcome of a form submission
type SubmitResult string

const (
	// SubmitSaved means the settings were stored and navigation was requested
	SubmitSaved SubmitResult = "saved"
	// SubmitFailed means the save failed and the generic error toast was shown
	SubmitFailed SubmitResult = "failed"
	// SubmitRejected means another submission was still in flight
	SubmitRejected SubmitResult = "rejected"
)

// FormState is a point-in-time copy of the form for rendering
type FormState struct {
	CompanyName string             `json:"company_name"`
	BrandTone   settings.BrandTone `json:"brand_tone"`
	IsSaving    bool               `json:"is_saving"`
}

// Form is the brand-tone onboarding form.
//
// The mutex is never held across the save call, so IsSaving stays observable
// while a submission is in flight.
type Form struct {
	mu          sync.Mutex
	companyName string
	brandTone   settings.BrandTone
	isSaving    bool

	cfg       Config
	saver     SettingsSaver
	notifier  Notifier
	navigator Navigator
}

// NewForm returns an empty form with the professional tone selected
func NewForm(saver SettingsSaver, notifier Notifier, navigator Navigator, cfg Config) *Form {
	return &Form{
		brandTone: settings.BrandToneProfessional,
		cfg:       cfg,
		saver:     saver,
		notifier:  notifier,
		navigator: navigator,
	}
}

// SetCompanyName replaces the company name as typed; trimming happens on submit
func (f *Form) SetCompanyName(name string) {
	f.mu.Lock()
	f.companyName = name
	f.mu.Unlock()
}

// SetBrandTone selects a tone. Unknown tones are rejected and leave the selection unchanged.
func (f *Form) SetBrandTone(tone settings.BrandTone) error {
	if !tone.Valid() {
		return settings.ErrInvalidBrandTone
	}
	f.mu.Lock()
	f.brandTone = tone
	f.mu.Unlock()
	return nil
}

// Snapshot returns the current form state
func (f *Form) Snapshot() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		CompanyName: f.companyName,
		BrandTone:   f.brandTone,
		IsSaving:    f.isSaving,
	}
}

// IsSaving reports whether a submission is in flight
func (f *Form) IsSaving() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isSaving
}

// Submit saves the form. Save errors are turned into the generic error toast
// and never returned; only a successful save navigates to the dashboard.
func (f *Form) Submit(ctx context.Context) SubmitResult {
	f.mu.Lock()
	if f.isSaving {
		f.mu.Unlock()
		return SubmitRejected
	}
	f.isSaving = true
	name := f.effectiveCompanyName()
	tone := f.brandTone
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.isSaving = false
		f.mu.Unlock()
	}()

	if err := f.saver.Save(ctx, name, tone); err != nil {
		f.notifier.Notify(ctx, notifications.SeverityError, notifications.MessageGenericError)
		return SubmitFailed
	}

	f.notifier.Notify(ctx, notifications.SeveritySuccess, notifications.MessageSettingsSaved)
	f.navigator.Navigate(ctx, f.cfg.DashboardPath)
	return SubmitSaved
}

// effectiveCompanyName must be called with f.mu held
func (f *Form) effectiveCompanyName() string {
	if name := strings.TrimSpace(f.companyName); name != "" {
		return name
	}
	return f.cfg.FallbackCompanyName
}
