package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Check-in limits enforced at the ingestion boundary.
const (
	MinScore         = 1
	MaxScore         = 10
	MaxActivities    = 20
	MaxActivityRunes = 64
	MaxNoteRunes     = 2000
)

// MoodEntry is one immutable mood check-in. Corrections are recorded as new entries.
type MoodEntry struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	UserID     uint                        `gorm:"index:idx_mood_user_date;not null" json:"user_id"`
	Date       time.Time                   `gorm:"index:idx_mood_user_date;not null" json:"date"`
	Score      int                         `gorm:"not null" json:"score"`
	Activities datatypes.JSONSlice[string] `json:"activities"`
	Note       string                      `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time                   `json:"created_at"`
}

// ValidationError reports a malformed check-in rejected before it reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewMoodEntry validates raw check-in input and returns a normalized entry.
// A zero date means "now". Activity tags are trimmed and de-duplicated in order.
func NewMoodEntry(userID uint, score int, activities []string, note string, date, now time.Time) (*MoodEntry, error) {
	if score < MinScore || score > MaxScore {
		return nil, &ValidationError{Field: "score", Message: fmt.Sprintf("must be between %d and %d", MinScore, MaxScore)}
	}
	if len(activities) > MaxActivities {
		return nil, &ValidationError{Field: "activities", Message: fmt.Sprintf("at most %d activities", MaxActivities)}
	}

	tags := make([]string, 0, len(activities))
	seen := make(map[string]struct{}, len(activities))
	for _, a := range activities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if len([]rune(a)) > MaxActivityRunes {
			return nil, &ValidationError{Field: "activities", Message: fmt.Sprintf("activity longer than %d characters", MaxActivityRunes)}
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		tags = append(tags, a)
	}

	note = strings.TrimSpace(note)
	if len([]rune(note)) > MaxNoteRunes {
		return nil, &ValidationError{Field: "note", Message: fmt.Sprintf("longer than %d characters", MaxNoteRunes)}
	}

	if date.IsZero() {
		date = now
	} else if date.After(now.Add(time.Minute)) {
		return nil, &ValidationError{Field: "date", Message: "cannot be in the future"}
	}

	return &MoodEntry{
		UserID:     userID,
		Date:       date,
		Score:      score,
		Activities: datatypes.JSONSlice[string](tags),
		Note:       note,
	}, nil
}
