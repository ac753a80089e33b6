package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Severity is the visual weight of a toast
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// User-facing messages shown as toasts
const (
	MessageCRMConnected  = "CRM connected successfully."
	MessageSettingsSaved = "Settings saved."
	MessageGenericError  = "Something went wrong. Please try again."
)

// Toast is a single user-facing notification
type Toast struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// SentNotification is the persisted record of a toast sent to a user
type SentNotification struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string         `json:"user_id" gorm:"not null;index"`
	Severity  string         `json:"severity" gorm:"not null"`
	Message   string         `json:"message" gorm:"not null"`
	Delivered bool           `json:"delivered" gorm:"default:false"`
	Metadata  datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// WebSocketMessage represents WebSocket message format
type WebSocketMessage struct {
	Type      string    `json:"type"`
	Data      Toast     `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target,omitempty"`
}

// WebSocket message types
const (
	WSMessageTypeToast  = "toast"
	WSMessageTypeStatus = "status"
)
