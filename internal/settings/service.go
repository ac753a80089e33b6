package settings

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Service provides business logic for user settings
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new settings service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// GetSettings returns the stored settings merged over the defaults
func (s *Service) GetSettings(ctx context.Context, userID string) (*UserSettings, error) {
	stored, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// SaveSettings applies a partial update over the current settings and stores the result
func (s *Service) SaveSettings(ctx context.Context, userID string, req *UpdateSettingsRequest) (*UserSettings, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := *current
	if req.CompanyName != nil {
		next.CompanyName = *req.CompanyName
	}
	if req.BrandTone != nil {
		next.BrandTone = *req.BrandTone
	}
	if req.Timezone != nil {
		next.Timezone = *req.Timezone
	}
	if req.Language != nil {
		next.Language = *req.Language
	}
	if req.EmailSignature != nil {
		next.EmailSignature = *req.EmailSignature
	}

	now := s.now().UTC()
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now

	if err := s.repo.UpsertSettings(ctx, &next); err != nil {
		return nil, err
	}

	s.logger.Info("Settings saved",
		zap.String("user_id", userID),
		zap.String("brand_tone", string(next.BrandTone)),
	)

	return &next, nil
}

// ResetSettings replaces the user's settings with the defaults
func (s *Service) ResetSettings(ctx context.Context, userID string) (*UserSettings, error) {
	now := s.now().UTC()
	defaults := DefaultSettings(userID)
	defaults.CreatedAt = now
	defaults.UpdatedAt = now

	current, err := s.repo.GetSettings(ctx, userID)
	switch {
	case err == nil:
		defaults.CreatedAt = current.CreatedAt
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if err := s.repo.UpsertSettings(ctx, defaults); err != nil {
		return nil, err
	}

	s.logger.Info("Settings reset to defaults", zap.String("user_id", userID))

	return defaults, nil
}

// SaveBrand stores the company name and tone chosen during onboarding
func (s *Service) SaveBrand(ctx context.Context, userID, companyName string, tone BrandTone) error {
	_, err := s.SaveSettings(ctx, userID, &UpdateSettingsRequest{
		CompanyName: &companyName,
		BrandTone:   &tone,
	})
	return err
}

// GetConnectionStatus returns the CRM connection of a user, disconnected when unknown
func (s *Service) GetConnectionStatus(ctx context.Context, userID string) (*ConnectionStatus, error) {
	status, err := s.repo.GetConnectionStatus(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &ConnectionStatus{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return status, nil
}

// SetConnectionStatus records a connection change; ConnectedAt is stamped on connect
func (s *Service) SetConnectionStatus(ctx context.Context, userID string, connected bool, accountEmail string) (*ConnectionStatus, error) {
	now := s.now().UTC()
	status := &ConnectionStatus{
		UserID:       userID,
		Connected:    connected,
		AccountEmail: accountEmail,
		UpdatedAt:    now,
	}
	if connected {
		status.ConnectedAt = &now
	} else {
		status.AccountEmail = ""
	}

	if err := s.repo.UpsertConnectionStatus(ctx, status); err != nil {
		return nil, err
	}

	s.logger.Info("Connection status updated",
		zap.String("user_id", userID),
		zap.Bool("connected", connected),
	)

	return status, nil
}
