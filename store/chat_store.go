package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/mindease/models"
)

// TranscriptStore keeps each user's support chat.
type TranscriptStore interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	// Recent returns the newest n messages in chronological order.
	Recent(ctx context.Context, userID uint, n int) ([]models.ChatMessage, error)
	// History returns up to limit messages, oldest first. limit <= 0 means all.
	History(ctx context.Context, userID uint, limit int) ([]models.ChatMessage, error)
	// LastMessageAt returns the time of the user's latest message, or nil.
	LastMessageAt(ctx context.Context, userID uint) (*time.Time, error)
	// PruneBefore deletes every message created before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormTranscriptStore implements TranscriptStore.
type GormTranscriptStore struct {
	db *gorm.DB
}

func NewTranscriptStore(db *gorm.DB) *GormTranscriptStore {
	return &GormTranscriptStore{db: db}
}

func (s *GormTranscriptStore) Append(ctx context.Context, msg *models.ChatMessage) error {
	if !msg.CreatedAt.IsZero() {
		msg.CreatedAt = msg.CreatedAt.UTC()
	}
	return wrap("append chat message", s.db.WithContext(ctx).Create(msg).Error)
}

func (s *GormTranscriptStore) Recent(ctx context.Context, userID uint, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return []models.ChatMessage{}, nil
	}

	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(n).
		Find(&msgs).Error
	if err != nil {
		return nil, wrap("recent chat messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *GormTranscriptStore) History(ctx context.Context, userID uint, limit int) ([]models.ChatMessage, error) {
	if limit > 0 {
		return s.Recent(ctx, userID, limit)
	}

	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, wrap("chat history", err)
	}
	return msgs, nil
}

func (s *GormTranscriptStore) LastMessageAt(ctx context.Context, userID uint) (*time.Time, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(1).
		Find(&msgs).Error
	if err != nil {
		return nil, wrap("last chat message", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	t := msgs[0].CreatedAt
	return &t, nil
}

func (s *GormTranscriptStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.ChatMessage{})
	if res.Error != nil {
		return 0, wrap("prune chat messages", res.Error)
	}
	return res.RowsAffected, nil
}
