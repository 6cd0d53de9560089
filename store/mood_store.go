package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/mindease/models"
)

// MoodStore is the append-only check-in log. Entries are never updated;
// a correction is recorded as a new entry.
type MoodStore interface {
	Append(ctx context.Context, entry *models.MoodEntry) error
	// ListSince returns the user's entries dated at or after since (all when nil),
	// ordered by date ascending with ties broken by insertion order.
	ListSince(ctx context.Context, userID uint, since *time.Time) ([]models.MoodEntry, error)
	// Recent returns the newest n entries in chronological order.
	Recent(ctx context.Context, userID uint, n int) ([]models.MoodEntry, error)
	// LatestID returns the id of the user's most recently appended entry, 0 when none.
	LatestID(ctx context.Context, userID uint) (uint, error)
}

// GormMoodStore implements MoodStore.
type GormMoodStore struct {
	db *gorm.DB
}

func NewMoodStore(db *gorm.DB) *GormMoodStore {
	return &GormMoodStore{db: db}
}

// Append stores entry. Dates are kept in UTC so range filters compare
// consistently on every driver.
func (s *GormMoodStore) Append(ctx context.Context, entry *models.MoodEntry) error {
	entry.Date = entry.Date.UTC()
	return wrap("append mood entry", s.db.WithContext(ctx).Create(entry).Error)
}

func (s *GormMoodStore) ListSince(ctx context.Context, userID uint, since *time.Time) ([]models.MoodEntry, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if since != nil {
		query = query.Where("date >= ?", since.UTC())
	}

	var entries []models.MoodEntry
	if err := query.Order("date ASC").Order("id ASC").Find(&entries).Error; err != nil {
		return nil, wrap("list mood entries", err)
	}
	return entries, nil
}

func (s *GormMoodStore) Recent(ctx context.Context, userID uint, n int) ([]models.MoodEntry, error) {
	if n <= 0 {
		return []models.MoodEntry{}, nil
	}

	var entries []models.MoodEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").Order("id DESC").
		Limit(n).
		Find(&entries).Error
	if err != nil {
		return nil, wrap("recent mood entries", err)
	}
	reverseEntries(entries)
	return entries, nil
}

func (s *GormMoodStore) LatestID(ctx context.Context, userID uint) (uint, error) {
	var id uint
	err := s.db.WithContext(ctx).
		Model(&models.MoodEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	if err != nil {
		return 0, wrap("latest mood entry id", err)
	}
	return id, nil
}

func reverseEntries(entries []models.MoodEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
