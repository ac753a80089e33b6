package settings

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
)

var (
	// ErrNotFound is returned by repositories when no row exists for the user
	ErrNotFound = errors.New("settings not found")
	// ErrInvalidBrandTone is returned for tones outside the supported set
	ErrInvalidBrandTone = errors.New("invalid brand tone")
	// ErrInvalidSettings is returned when an update breaks a field limit
	ErrInvalidSettings = errors.New("invalid settings")
)

// BrandTone is the voice used when generating copy
type BrandTone string

const (
	BrandToneProfessional BrandTone = "professional"
	BrandToneFriendly     BrandTone = "friendly"
	BrandTonePersuasive   BrandTone = "persuasive"
)

// BrandTones lists the supported tones in display order
var BrandTones = []BrandTone{BrandToneProfessional, BrandToneFriendly, BrandTonePersuasive}

// Valid reports whether t is one of the supported tones
func (t BrandTone) Valid() bool {
	switch t {
	case BrandToneProfessional, BrandToneFriendly, BrandTonePersuasive:
		return true
	}
	return false
}

// UserSettings holds the brand and profile preferences of a user
type UserSettings struct {
	UserID         string    `json:"user_id" db:"user_id"`
	CompanyName    string    `json:"company_name" db:"company_name"`
	BrandTone      BrandTone `json:"brand_tone" db:"brand_tone"`
	Timezone       string    `json:"timezone" db:"timezone"`
	Language       string    `json:"language" db:"language"`
	EmailSignature string    `json:"email_signature" db:"email_signature"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateSettingsRequest carries a partial settings update; nil fields are left untouched.
// Limits count characters, not bytes.
type UpdateSettingsRequest struct {
	CompanyName    *string    `json:"company_name" binding:"omitempty,max=200"`
	BrandTone      *BrandTone `json:"brand_tone" binding:"omitempty,max=50"`
	Timezone       *string    `json:"timezone" binding:"omitempty,max=50"`
	Language       *string    `json:"language" binding:"omitempty,max=10"`
	EmailSignature *string    `json:"email_signature" binding:"omitempty,max=2000"`
}

// Validate checks the field limits and the brand tone
func (r *UpdateSettingsRequest) Validate() error {
	if err := binding.Validator.ValidateStruct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if r.BrandTone != nil && !r.BrandTone.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidBrandTone, *r.BrandTone)
	}
	return nil
}

// ConnectionStatus records whether the user linked a CRM account
type ConnectionStatus struct {
	UserID       string     `json:"user_id" db:"user_id"`
	Connected    bool       `json:"connected" db:"connected"`
	AccountEmail string     `json:"account_email,omitempty" db:"account_email"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty" db:"connected_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// DefaultSettings returns the values used before the user saved anything
func DefaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:      userID,
		CompanyName: "Acme Corporation",
		BrandTone:   BrandToneProfessional,
		Timezone:    "UTC",
		Language:    "en",
	}
}
