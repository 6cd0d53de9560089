package controllers

import (
	"testing"
	"time"

	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/recommend"
)

func TestPeriodStart(t *testing.T) {
	// Wednesday
	now := time.Date(2024, 6, 12, 15, 4, 0, 0, time.UTC)
	today := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in         string
		wantPeriod string
		want       *time.Time
	}{
		{"", "day", &today},
		{"day", "day", &today},
		{"year", "day", &today},
		{"week", "week", ptr(time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC))},
		{"month", "month", ptr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))},
		{"all", "all", nil},
	}
	for _, tt := range tests {
		period, since := periodStart(tt.in, now)
		if period != tt.wantPeriod {
			t.Errorf("periodStart(%q) period = %q, want %q", tt.in, period, tt.wantPeriod)
		}
		switch {
		case tt.want == nil && since != nil:
			t.Errorf("periodStart(%q) since = %v, want nil", tt.in, since)
		case tt.want != nil && (since == nil || !since.Equal(*tt.want)):
			t.Errorf("periodStart(%q) since = %v, want %v", tt.in, since, tt.want)
		}
	}
}

func TestCachedRecommendationsValidity(t *testing.T) {
	entries := []models.MoodEntry{{ID: 3}, {ID: 7}, {ID: 5}}
	if got := newestEntryID(entries); got != 7 {
		t.Fatalf("newestEntryID = %d, want 7", got)
	}
	if got := newestEntryID(nil); got != 0 {
		t.Errorf("newestEntryID(nil) = %d, want 0", got)
	}

	items := []recommend.Recommendation{recommend.Fallback()}
	cached := cachedRecommendations{LatestEntryID: newestEntryID(entries), Items: items}
	if !cached.validFor(7) {
		t.Error("cache built from the latest entry should be served")
	}
	// written by a request that read entries before a concurrent check-in
	if cached.validFor(8) {
		t.Error("cache older than the latest entry must not be served")
	}
	if (cachedRecommendations{}).validFor(0) {
		t.Error("empty cache must not be served")
	}
}

func ptr(t time.Time) *time.Time { return &t }
