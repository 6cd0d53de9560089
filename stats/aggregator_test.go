package stats

import (
	"reflect"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/cppla/mindease/models"
)

var refNow = time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

func entry(daysAgo int, score int, activities ...string) models.MoodEntry {
	return models.MoodEntry{
		Date:       refNow.AddDate(0, 0, -daysAgo),
		Score:      score,
		Activities: datatypes.JSONSlice[string](activities),
	}
}

func TestCalculateEmpty(t *testing.T) {
	got := Calculate(nil, refNow)
	want := UserStats{MostCommonActivity: "None"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Calculate(nil) = %+v, want %+v", got, want)
	}
	if got := Calculate([]models.MoodEntry{}, refNow); !reflect.DeepEqual(got, want) {
		t.Errorf("Calculate([]) = %+v, want %+v", got, want)
	}
}

func TestCalculateWeeklyScenario(t *testing.T) {
	entries := []models.MoodEntry{
		entry(8, 4),
		entry(6, 6, "Exercise"),
		entry(1, 8, "Exercise"),
	}

	got := Calculate(entries, refNow)

	if got.WeeklyMoodAverage != 7.0 {
		t.Errorf("WeeklyMoodAverage = %v, want 7.0", got.WeeklyMoodAverage)
	}
	if got.WeeklyMoodChange != 3.0 {
		t.Errorf("WeeklyMoodChange = %v, want 3.0", got.WeeklyMoodChange)
	}
	if got.MostCommonActivity != "Exercise" || got.ActivityCount != 2 {
		t.Errorf("MostCommonActivity = %q x%d, want Exercise x2", got.MostCommonActivity, got.ActivityCount)
	}
	if got.TotalEntries != 3 {
		t.Errorf("TotalEntries = %d, want 3", got.TotalEntries)
	}
	if !got.HighestMoodDay.Equal(entries[2].Date) {
		t.Errorf("HighestMoodDay = %v, want %v", got.HighestMoodDay, entries[2].Date)
	}
	if !got.LowestMoodDay.Equal(entries[0].Date) {
		t.Errorf("LowestMoodDay = %v, want %v", got.LowestMoodDay, entries[0].Date)
	}
}

func TestCalculateChangeWithoutBaseline(t *testing.T) {
	got := Calculate([]models.MoodEntry{entry(1, 9), entry(2, 2)}, refNow)
	if got.WeeklyMoodChange != 0 {
		t.Errorf("WeeklyMoodChange = %v, want 0 when previous week is empty", got.WeeklyMoodChange)
	}
	if got.WeeklyMoodAverage != 5.5 {
		t.Errorf("WeeklyMoodAverage = %v, want 5.5", got.WeeklyMoodAverage)
	}
}

func TestCalculateOnlyPreviousWeek(t *testing.T) {
	got := Calculate([]models.MoodEntry{entry(10, 6)}, refNow)
	if got.WeeklyMoodAverage != 0 {
		t.Errorf("WeeklyMoodAverage = %v, want 0", got.WeeklyMoodAverage)
	}
	if got.WeeklyMoodChange != -6 {
		t.Errorf("WeeklyMoodChange = %v, want -6", got.WeeklyMoodChange)
	}
}

func TestCalculateRoundsToOneDecimal(t *testing.T) {
	got := Calculate([]models.MoodEntry{entry(0, 7), entry(1, 8), entry(2, 8)}, refNow)
	if got.WeeklyMoodAverage != 7.7 {
		t.Errorf("WeeklyMoodAverage = %v, want 7.7", got.WeeklyMoodAverage)
	}
}

func TestCalculateWindowBoundaries(t *testing.T) {
	exactlyWeekAgo := models.MoodEntry{Date: refNow.Add(-week), Score: 10}
	exactlyTwoWeeksAgo := models.MoodEntry{Date: refNow.Add(-2 * week), Score: 2}
	older := models.MoodEntry{Date: refNow.Add(-2*week - time.Second), Score: 9}

	got := Calculate([]models.MoodEntry{exactlyWeekAgo, exactlyTwoWeeksAgo, older}, refNow)
	if got.WeeklyMoodAverage != 10 {
		t.Errorf("WeeklyMoodAverage = %v, want 10 (now-7d is in the current window)", got.WeeklyMoodAverage)
	}
	if got.WeeklyMoodChange != 8 {
		t.Errorf("WeeklyMoodChange = %v, want 8 (now-14d is in the previous window)", got.WeeklyMoodChange)
	}
}

func TestCalculateOrderInvariant(t *testing.T) {
	a := []models.MoodEntry{
		entry(0, 3, "Reading"),
		entry(3, 9, "Music"),
		entry(5, 6, "Exercise"),
		entry(9, 2),
		entry(12, 7, "Music"),
	}
	b := []models.MoodEntry{a[3], a[1], a[4], a[0], a[2]}

	ga, gb := Calculate(a, refNow), Calculate(b, refNow)
	if !reflect.DeepEqual(ga, gb) {
		t.Errorf("results differ by input order:\n%+v\n%+v", ga, gb)
	}
}

func TestCalculateIdempotent(t *testing.T) {
	entries := []models.MoodEntry{entry(0, 5, "Rest"), entry(1, 6, "Rest"), entry(8, 1)}
	first := Calculate(entries, refNow)
	second := Calculate(entries, refNow)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second call differs:\n%+v\n%+v", first, second)
	}
}

func TestCalculateDoesNotMutateInput(t *testing.T) {
	entries := []models.MoodEntry{entry(0, 5), entry(3, 6), entry(1, 7)}
	before := make([]models.MoodEntry, len(entries))
	copy(before, entries)

	Calculate(entries, refNow)

	if !reflect.DeepEqual(entries, before) {
		t.Error("Calculate reordered or modified the caller's slice")
	}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.MoodEntry
		want    int
	}{
		{"three consecutive days", []models.MoodEntry{entry(0, 5), entry(1, 5), entry(2, 5)}, 3},
		{"gap yesterday", []models.MoodEntry{entry(0, 5), entry(2, 5)}, 1},
		{"nothing today", []models.MoodEntry{entry(1, 5), entry(2, 5)}, 0},
		{"duplicates same day", []models.MoodEntry{entry(0, 5), entry(0, 6), entry(1, 7)}, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Calculate(tc.entries, refNow).Streak; got != tc.want {
				t.Errorf("Streak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestStreakUsesCalendarDays(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 5, 0, 0, time.UTC)
	lateYesterday := models.MoodEntry{Date: time.Date(2024, 6, 14, 23, 55, 0, 0, time.UTC), Score: 5}
	earlyToday := models.MoodEntry{Date: time.Date(2024, 6, 15, 0, 1, 0, 0, time.UTC), Score: 5}

	if got := Calculate([]models.MoodEntry{lateYesterday, earlyToday}, now).Streak; got != 2 {
		t.Errorf("Streak = %d, want 2", got)
	}
}

func TestStreakFollowsNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2024, 6, 15, 8, 0, 0, 0, loc)
	// 2024-06-14 23:30 UTC is 2024-06-15 08:30 in UTC+9, i.e. "today" locally.
	e := models.MoodEntry{Date: time.Date(2024, 6, 14, 23, 30, 0, 0, time.UTC), Score: 4}

	if got := Calculate([]models.MoodEntry{e}, now).Streak; got != 1 {
		t.Errorf("Streak = %d, want 1", got)
	}
}

func TestStreakCappedAt100(t *testing.T) {
	var entries []models.MoodEntry
	for i := 0; i < 150; i++ {
		entries = append(entries, entry(i, 5))
	}
	if got := Calculate(entries, refNow).Streak; got != 100 {
		t.Errorf("Streak = %d, want 100", got)
	}
}

func TestMostCommonActivityTieBreak(t *testing.T) {
	entries := []models.MoodEntry{
		entry(1, 5, "Music"),
		entry(4, 5, "Reading"),
		entry(3, 5, "Music", "Reading"),
	}
	// Oldest first: Reading(4d), Music+Reading(3d), Music(1d) -> Reading seen first.
	got := Calculate(entries, refNow)
	if got.MostCommonActivity != "Reading" || got.ActivityCount != 2 {
		t.Errorf("MostCommonActivity = %q x%d, want Reading x2", got.MostCommonActivity, got.ActivityCount)
	}
}

func TestMostCommonActivityCoversWholeHistory(t *testing.T) {
	entries := []models.MoodEntry{
		entry(40, 5, "Cooking"),
		entry(35, 5, "Cooking"),
		entry(1, 5, "Exercise"),
	}
	got := Calculate(entries, refNow)
	if got.MostCommonActivity != "Cooking" || got.ActivityCount != 2 {
		t.Errorf("MostCommonActivity = %q x%d, want Cooking x2", got.MostCommonActivity, got.ActivityCount)
	}
}

func TestMostCommonActivityNone(t *testing.T) {
	got := Calculate([]models.MoodEntry{entry(0, 5), entry(1, 6, "")}, refNow)
	if got.MostCommonActivity != NoActivity || got.ActivityCount != 0 {
		t.Errorf("MostCommonActivity = %q x%d, want None x0", got.MostCommonActivity, got.ActivityCount)
	}
}

func TestHighestLowestTieBreak(t *testing.T) {
	entries := []models.MoodEntry{
		entry(1, 9),
		entry(5, 9),
		entry(2, 1),
		entry(6, 1),
	}
	got := Calculate(entries, refNow)
	// Ties resolve to the most recent matching entry.
	if !got.HighestMoodDay.Equal(entries[0].Date) {
		t.Errorf("HighestMoodDay = %v, want %v", got.HighestMoodDay, entries[0].Date)
	}
	if !got.LowestMoodDay.Equal(entries[2].Date) {
		t.Errorf("LowestMoodDay = %v, want %v", got.LowestMoodDay, entries[2].Date)
	}

	// input order does not matter
	got = Calculate([]models.MoodEntry{entries[1], entries[3], entries[0], entries[2]}, refNow)
	if !got.HighestMoodDay.Equal(entries[0].Date) || !got.LowestMoodDay.Equal(entries[2].Date) {
		t.Errorf("reordered input: highest %v lowest %v", got.HighestMoodDay, got.LowestMoodDay)
	}
}
