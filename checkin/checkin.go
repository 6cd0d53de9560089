// Package checkin decides when the app should reach out to a user first.
package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/mindease/llm"
	"github.com/cppla/mindease/models"
)

// Trigger names why a check-in is suggested.
type Trigger string

const (
	TriggerNone       Trigger = ""
	TriggerLowMood    Trigger = "low_mood"
	TriggerInactivity Trigger = "inactivity"
)

const (
	LowMoodThreshold = 4
	lowMoodWindow    = 3
	lowMoodMinimum   = 2
	InactivityPeriod = 3 * 24 * time.Hour
)

// FallbackMessage is used when no personalised message can be generated.
const FallbackMessage = "Hi there! Just checking in. How are you feeling today? I'm here if you want to talk."

// Assessment is the outcome of Evaluate.
type Assessment struct {
	Trigger      Trigger    `json:"trigger"`
	LastActivity *time.Time `json:"lastActivity"`
}

// Triggered reports whether a check-in should be shown.
func (a Assessment) Triggered() bool { return a.Trigger != TriggerNone }

// Evaluate inspects a user's entries and last chat time as seen at now.
// A low-mood streak (the last three entries, at least two present, all scoring
// LowMoodThreshold or less) wins over inactivity (no entry and no chat during
// InactivityPeriod).
func Evaluate(entries []models.MoodEntry, lastChatAt *time.Time, now time.Time) Assessment {
	ordered := make([]models.MoodEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var last *time.Time
	if n := len(ordered); n > 0 {
		d := ordered[n-1].Date
		last = &d
	}
	if lastChatAt != nil && (last == nil || lastChatAt.After(*last)) {
		c := *lastChatAt
		last = &c
	}

	out := Assessment{LastActivity: last}
	switch {
	case lowMoodStreak(ordered):
		out.Trigger = TriggerLowMood
	case last == nil || last.Before(now.Add(-InactivityPeriod)):
		out.Trigger = TriggerInactivity
	}
	return out
}

func lowMoodStreak(ordered []models.MoodEntry) bool {
	recent := ordered
	if len(recent) > lowMoodWindow {
		recent = recent[len(recent)-lowMoodWindow:]
	}
	if len(recent) < lowMoodMinimum {
		return false
	}
	for _, e := range recent {
		if e.Score > LowMoodThreshold {
			return false
		}
	}
	return true
}

// Messenger writes the short message shown with a check-in.
type Messenger struct {
	completer llm.Completer
	logger    *zap.Logger
}

func NewMessenger(completer llm.Completer, logger *zap.Logger) *Messenger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Messenger{completer: completer, logger: logger}
}

const messengerPrompt = `You are an empathetic mental health companion reaching out to a user proactively.
Write one short, warm message (at most two sentences) inviting them to share how they feel.
Do not diagnose. Do not mention that you are an AI model.`

// Message returns a personalised message for a triggered assessment.
func (m *Messenger) Message(ctx context.Context, a Assessment, recent []models.MoodEntry) string {
	var reason string
	switch a.Trigger {
	case TriggerLowMood:
		reason = "The user has logged several low mood scores in a row."
	case TriggerInactivity:
		reason = "The user has not checked in or chatted for a few days."
	default:
		return ""
	}

	scores := make([]int, 0, len(recent))
	for _, e := range recent {
		scores = append(scores, e.Score)
	}
	scoresJSON, _ := json.Marshal(scores)

	text, err := m.completer.Complete(ctx, messengerPrompt, fmt.Sprintf("%s Recent mood scores (1-10): %s", reason, scoresJSON))
	if err != nil {
		m.logger.Warn("check-in message failed", zap.String("trigger", string(a.Trigger)), zap.Error(err))
		return FallbackMessage
	}
	return text
}
