package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ErrUserNotConnected is returned by a Pusher when the user has no open socket
var ErrUserNotConnected = errors.New("user not connected")

// Pusher delivers a message to the live connections of a user
type Pusher interface {
	SendToUser(userID string, message WebSocketMessage) error
}

// Service records toasts and pushes them to connected clients
type Service struct {
	store        Store
	pusher       Pusher
	historyLimit int
	logger       *zap.Logger
}

// NewService creates a new notification service
func NewService(store Store, pusher Pusher, historyLimit int, logger *zap.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{
		store:        store,
		pusher:       pusher,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Notify records and pushes a toast. It is fire-and-forget: failures are only logged.
func (s *Service) Notify(ctx context.Context, userID string, severity Severity, message string) {
	toast := Toast{Severity: severity, Message: message}
	record := &SentNotification{
		ID:        uuid.New(),
		UserID:    userID,
		Severity:  string(severity),
		Message:   message,
		Metadata:  metadataJSON(map[string]interface{}{"source": "onboarding"}),
		CreatedAt: time.Now(),
	}

	stored := true
	if err := s.store.Create(ctx, record); err != nil {
		stored = false
		s.logger.Warn("Failed to record notification", zap.Error(err), zap.String("user_id", userID))
	}

	err := s.pusher.SendToUser(userID, WebSocketMessage{
		Type:      WSMessageTypeToast,
		Data:      toast,
		Timestamp: time.Now(),
	})
	switch {
	case errors.Is(err, ErrUserNotConnected):
		s.logger.Debug("No live connection for toast", zap.String("user_id", userID))
		return
	case err != nil:
		s.logger.Warn("Failed to push notification", zap.Error(err), zap.String("user_id", userID))
		return
	}

	if stored {
		if err := s.store.MarkDelivered(ctx, record); err != nil {
			s.logger.Warn("Failed to mark notification delivered", zap.Error(err))
		}
	}
}

// History returns the most recent toasts of a user
func (s *Service) History(ctx context.Context, userID string) ([]SentNotification, error) {
	return s.store.ListForUser(ctx, userID, s.historyLimit)
}

func metadataJSON(metadata map[string]interface{}) datatypes.JSON {
	data, err := json.Marshal(metadata)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}
