package notifications

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store persists sent notifications
type Store interface {
	Create(ctx context.Context, n *SentNotification) error
	MarkDelivered(ctx context.Context, n *SentNotification) error
	ListForUser(ctx context.Context, userID string, limit int) ([]SentNotification, error)
}

// GormStore implements Store on top of gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the notification table and returns a store
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&SentNotification{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, n *SentNotification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

func (s *GormStore) MarkDelivered(ctx context.Context, n *SentNotification) error {
	err := s.db.WithContext(ctx).
		Model(&SentNotification{}).
		Where("id = ?", n.ID).
		Update("delivered", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	n.Delivered = true
	return nil
}

func (s *GormStore) ListForUser(ctx context.Context, userID string, limit int) ([]SentNotification, error) {
	var sent []SentNotification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sent).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return sent, nil
}
