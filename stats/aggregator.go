// Package stats derives per-user mood statistics from check-in history.
//
// Calculate is a pure function: callers pass the full entry snapshot and the
// reference time, so results are reproducible and never read the system clock.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/cppla/mindease/models"
)

// NoActivity is reported as MostCommonActivity when no entry carries a tag.
const NoActivity = "None"

const (
	week          = 7 * 24 * time.Hour
	maxStreakDays = 100
)

// UserStats is the derived, never-persisted summary of one user's entries.
type UserStats struct {
	WeeklyMoodAverage  float64    `json:"weeklyMoodAverage"`
	WeeklyMoodChange   float64    `json:"weeklyMoodChange"`
	MostCommonActivity string     `json:"mostCommonActivity"`
	ActivityCount      int        `json:"activityCount"`
	Streak             int        `json:"streak"`
	TotalEntries       int        `json:"totalEntries"`
	LowestMoodDay      *time.Time `json:"lowestMoodDay"`
	HighestMoodDay     *time.Time `json:"highestMoodDay"`
}

// Empty returns the statistics of a user without entries.
func Empty() UserStats {
	return UserStats{MostCommonActivity: NoActivity}
}

// Calculate computes UserStats for entries as seen at now.
//
// The current window holds entries dated at or after now-7d, the previous
// window those in [now-14d, now-7d). The activity ranking covers the whole
// history while averages only cover the two windows. The streak counts
// consecutive calendar days (in now's location) ending today, capped at 100.
// Highest and lowest mood days are the first maximum/minimum after a stable
// sort by score over the newest-first sequence, so ties go to the latest entry.
func Calculate(entries []models.MoodEntry, now time.Time) UserStats {
	if len(entries) == 0 {
		return Empty()
	}

	ordered := make([]models.MoodEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	out := UserStats{TotalEntries: len(ordered)}

	current, hasCurrent, previous, hasPrevious := weeklyAverages(ordered, now)
	if hasCurrent {
		out.WeeklyMoodAverage = round1(current)
	}
	if hasPrevious {
		out.WeeklyMoodChange = round1(current - previous)
	}

	out.MostCommonActivity, out.ActivityCount = mostCommonActivity(ordered)
	out.Streak = streak(ordered, now)

	lowest, highest := ordered[0], ordered[0]
	for _, e := range ordered[1:] {
		if e.Score <= lowest.Score {
			lowest = e
		}
		if e.Score >= highest.Score {
			highest = e
		}
	}
	lowDay, highDay := lowest.Date, highest.Date
	out.LowestMoodDay = &lowDay
	out.HighestMoodDay = &highDay

	return out
}

func weeklyAverages(entries []models.MoodEntry, now time.Time) (current float64, hasCurrent bool, previous float64, hasPrevious bool) {
	weekAgo := now.Add(-week)
	twoWeeksAgo := now.Add(-2 * week)

	var curSum, curN, prevSum, prevN int
	for _, e := range entries {
		switch {
		case !e.Date.Before(weekAgo):
			curSum += e.Score
			curN++
		case !e.Date.Before(twoWeeksAgo):
			prevSum += e.Score
			prevN++
		}
	}
	if curN > 0 {
		current = float64(curSum) / float64(curN)
	}
	if prevN > 0 {
		previous = float64(prevSum) / float64(prevN)
	}
	return current, curN > 0, previous, prevN > 0
}

// mostCommonActivity expects entries sorted oldest first; ties go to the tag seen first.
func mostCommonActivity(entries []models.MoodEntry) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		for _, tag := range e.Activities {
			if tag == "" {
				continue
			}
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	best, bestCount := NoActivity, 0
	for _, tag := range order {
		if counts[tag] > bestCount {
			best, bestCount = tag, counts[tag]
		}
	}
	return best, bestCount
}

func streak(entries []models.MoodEntry, now time.Time) int {
	loc := now.Location()
	days := make(map[civilDay]struct{}, len(entries))
	for _, e := range entries {
		days[dayOf(e.Date.In(loc))] = struct{}{}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	n := 0
	for i := 0; i < maxStreakDays; i++ {
		if _, ok := days[dayOf(today.AddDate(0, 0, -i))]; !ok {
			break
		}
		n++
	}
	return n
}

type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) civilDay {
	y, m, d := t.Date()
	return civilDay{y, m, d}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
