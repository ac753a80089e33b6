package settings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetSettings(ctx context.Context, userID string) (*UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UserSettings), args.Error(1)
}

func (m *MockRepository) UpsertSettings(ctx context.Context, s *UserSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockRepository) GetConnectionStatus(ctx context.Context, userID string) (*ConnectionStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConnectionStatus), args.Error(1)
}

func (m *MockRepository) UpsertConnectionStatus(ctx context.Context, status *ConnectionStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestBrandToneValid(t *testing.T) {
	for _, tone := range BrandTones {
		assert.True(t, tone.Valid(), tone)
	}
	assert.False(t, BrandTone("sarcastic").Valid())
	assert.False(t, BrandTone("").Valid())
}

func TestGetSettingsFallsBackToDefaults(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("GetSettings", ctx, "user-1").Return(nil, ErrNotFound)

	s, err := newTestService(repo).GetSettings(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", s.CompanyName)
	assert.Equal(t, BrandToneProfessional, s.BrandTone)
	assert.Equal(t, "UTC", s.Timezone)
	repo.AssertExpectations(t)
}

func TestSaveSettingsMergesPartialUpdate(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.On("GetSettings", ctx, "user-1").Return(&UserSettings{
		UserID:         "user-1",
		CompanyName:    "Old Co",
		BrandTone:      BrandToneProfessional,
		Timezone:       "Europe/Paris",
		Language:       "fr",
		EmailSignature: "-- Old Co",
		CreatedAt:      created,
	}, nil)
	repo.On("UpsertSettings", ctx, mock.AnythingOfType("*settings.UserSettings")).Return(nil)

	tone := BrandToneFriendly
	name := "New Co"
	s, err := newTestService(repo).SaveSettings(ctx, "user-1", &UpdateSettingsRequest{
		CompanyName: &name,
		BrandTone:   &tone,
	})

	require.NoError(t, err)
	assert.Equal(t, "New Co", s.CompanyName)
	assert.Equal(t, BrandToneFriendly, s.BrandTone)
	assert.Equal(t, "Europe/Paris", s.Timezone)
	assert.Equal(t, "fr", s.Language)
	assert.Equal(t, "-- Old Co", s.EmailSignature)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), s.UpdatedAt)
	repo.AssertExpectations(t)
}

func TestSaveSettingsRejectsInvalidTone(t *testing.T) {
	repo := new(MockRepository)
	tone := BrandTone("shouty")

	_, err := newTestService(repo).SaveSettings(context.Background(), "user-1", &UpdateSettingsRequest{BrandTone: &tone})

	assert.ErrorIs(t, err, ErrInvalidBrandTone)
	repo.AssertNotCalled(t, "UpsertSettings", mock.Anything, mock.Anything)
}

func TestSaveSettingsEnforcesFieldLimits(t *testing.T) {
	tests := []struct {
		name string
		req  UpdateSettingsRequest
	}{
		{"company name", UpdateSettingsRequest{CompanyName: ptr(strings.Repeat("a", 201))}},
		{"timezone", UpdateSettingsRequest{Timezone: ptr(strings.Repeat("a", 51))}},
		{"language", UpdateSettingsRequest{Language: ptr("en-GB-oxendict")}},
		{"email signature", UpdateSettingsRequest{EmailSignature: ptr(strings.Repeat("a", 2001))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)

			_, err := newTestService(repo).SaveSettings(context.Background(), "user-1", &tt.req)

			assert.ErrorIs(t, err, ErrInvalidSettings)
			repo.AssertNotCalled(t, "UpsertSettings", mock.Anything, mock.Anything)
		})
	}
}

func TestSaveSettingsLimitsCountCharacters(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("GetSettings", ctx, "user-1").Return(nil, ErrNotFound)
	repo.On("UpsertSettings", ctx, mock.Anything).Return(nil)

	name := strings.Repeat("é", 200)
	s, err := newTestService(repo).SaveSettings(ctx, "user-1", &UpdateSettingsRequest{CompanyName: &name})

	require.NoError(t, err)
	assert.Equal(t, name, s.CompanyName)
}

func TestResetSettingsKeepsCreatedAt(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo.On("GetSettings", ctx, "user-1").Return(&UserSettings{
		UserID:      "user-1",
		CompanyName: "Old Co",
		BrandTone:   BrandToneFriendly,
		Language:    "fr",
		CreatedAt:   created,
	}, nil)
	repo.On("UpsertSettings", ctx, mock.MatchedBy(func(s *UserSettings) bool {
		return s.CompanyName == "Acme Corporation" && s.BrandTone == BrandToneProfessional && s.Language == "en"
	})).Return(nil)

	s, err := newTestService(repo).ResetSettings(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, created, s.CreatedAt)
	assert.Equal(t, "UTC", s.Timezone)
	assert.Empty(t, s.EmailSignature)
	repo.AssertExpectations(t)
}

func TestResetSettingsRepositoryError(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("GetSettings", ctx, "user-1").Return(nil, errors.New("connection refused"))

	_, err := newTestService(repo).ResetSettings(ctx, "user-1")

	assert.EqualError(t, err, "connection refused")
	repo.AssertNotCalled(t, "UpsertSettings", mock.Anything, mock.Anything)
}

func ptr(s string) *string { return &s }

func TestSaveBrandPropagatesRepositoryFailure(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("GetSettings", ctx, "user-1").Return(nil, ErrNotFound)
	repo.On("UpsertSettings", ctx, mock.Anything).Return(errors.New("connection refused"))

	err := newTestService(repo).SaveBrand(ctx, "user-1", "Acme Co", BrandTonePersuasive)

	assert.EqualError(t, err, "connection refused")
}

func TestConnectionStatus(t *testing.T) {
	repo := new(MockRepository)
	ctx := context.Background()
	repo.On("GetConnectionStatus", ctx, "user-1").Return(nil, ErrNotFound)
	repo.On("UpsertConnectionStatus", ctx, mock.MatchedBy(func(s *ConnectionStatus) bool {
		return s.Connected && s.AccountEmail == "owner@acme.test" && s.ConnectedAt != nil
	})).Return(nil)

	svc := newTestService(repo)

	status, err := svc.GetConnectionStatus(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, status.Connected)

	status, err = svc.SetConnectionStatus(ctx, "user-1", true, "owner@acme.test")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	repo.AssertExpectations(t)
}
