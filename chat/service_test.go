package chat

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cppla/mindease/config"
	"github.com/cppla/mindease/llm"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/store"
)

type call struct {
	system, user string
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []call
	reply func(system, user string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{system, user})
	f.mu.Unlock()
	return f.reply(system, user)
}

func newTestService(t *testing.T, c llm.Completer) (*Service, *store.GormTranscriptStore) {
	t.Helper()
	cfg := config.AppConfig{DBDriver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "chat.db"), LogLevel: "silent"}
	db, err := config.OpenDatabase(cfg, &models.ChatMessage{})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	ts := store.NewTranscriptStore(db)
	svc := NewService(ts, c, nil)

	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, ts
}

func TestSendFirstInteraction(t *testing.T) {
	fc := &fakeCompleter{reply: func(system, user string) (string, error) {
		if strings.HasPrefix(system, "Summarize") {
			return "user said hi", nil
		}
		return "Hello, how are you feeling today?", nil
	}}
	svc, _ := newTestService(t, fc)

	msg, err := svc.Send(context.Background(), 1, "  hi  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Role != models.RoleAssistant || msg.Content != "Hello, how are you feeling today?" {
		t.Errorf("reply = %+v", msg)
	}

	// the user's own message is already in the window when summarizing
	if len(fc.calls) != 2 {
		t.Fatalf("completer calls = %d, want 2", len(fc.calls))
	}
	if fc.calls[0].user != "user: hi" {
		t.Errorf("summary input = %q", fc.calls[0].user)
	}
	if !strings.Contains(fc.calls[1].system, "Previous conversation summary: user said hi") {
		t.Errorf("system prompt = %q", fc.calls[1].system)
	}
	if fc.calls[1].user != "hi" {
		t.Errorf("user prompt = %q", fc.calls[1].user)
	}

	history, err := svc.History(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Role != models.RoleUser || history[1].Role != models.RoleAssistant {
		t.Errorf("history = %+v", history)
	}
}

func TestSendSummarizesLastTenMessages(t *testing.T) {
	fc := &fakeCompleter{reply: func(system, user string) (string, error) { return "ok", nil }}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := svc.Send(ctx, 1, "message"); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	fc.calls = nil
	if _, err := svc.Send(ctx, 1, "latest"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	lines := strings.Split(fc.calls[0].user, "\n")
	if len(lines) != SummaryWindow {
		t.Errorf("summary lines = %d, want %d", len(lines), SummaryWindow)
	}
	if lines[len(lines)-1] != "user: latest" {
		t.Errorf("last summary line = %q", lines[len(lines)-1])
	}
}

func TestSendFallsBackWhenCompleterFails(t *testing.T) {
	fc := &fakeCompleter{reply: func(system, user string) (string, error) {
		return "", llm.ErrNotConfigured
	}}
	svc, _ := newTestService(t, fc)

	msg, err := svc.Send(context.Background(), 1, "are you there?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if msg.Content != FallbackReply {
		t.Errorf("reply = %q, want fallback", msg.Content)
	}

	history, _ := svc.History(context.Background(), 1, 0)
	if len(history) != 2 || history[1].Content != FallbackReply {
		t.Errorf("fallback reply not persisted: %+v", history)
	}
}

func TestSendRejectsInvalidContent(t *testing.T) {
	fc := &fakeCompleter{reply: func(system, user string) (string, error) { return "ok", nil }}
	svc, _ := newTestService(t, fc)

	for _, content := range []string{"", "   ", strings.Repeat("a", models.MaxChatContentRunes+1)} {
		_, err := svc.Send(context.Background(), 1, content)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("content len %d: err = %v, want ValidationError", len(content), err)
		}
	}
	if len(fc.calls) != 0 {
		t.Errorf("completer called %d times", len(fc.calls))
	}
}

type failingStore struct {
	store.TranscriptStore
}

func (failingStore) Append(ctx context.Context, msg *models.ChatMessage) error {
	return &store.Error{Op: "append chat message", Err: driver.ErrBadConn}
}

func TestSendReturnsStoreErrors(t *testing.T) {
	fc := &fakeCompleter{reply: func(system, user string) (string, error) { return "ok", nil }}
	svc := NewService(failingStore{}, fc, nil)

	_, err := svc.Send(context.Background(), 1, "hello")
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestMoodSummary(t *testing.T) {
	fc := &fakeCompleter{reply: func(system, user string) (string, error) {
		if strings.Contains(system, "mood-related") {
			return "feeling stressed about work", nil
		}
		return "reply", nil
	}}
	svc, _ := newTestService(t, fc)
	ctx := context.Background()

	if got := svc.MoodSummary(ctx, 1); got != "" {
		t.Errorf("empty transcript summary = %q", got)
	}
	if _, err := svc.Send(ctx, 1, "work is a lot"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := svc.MoodSummary(ctx, 1); got != "feeling stressed about work" {
		t.Errorf("summary = %q", got)
	}

	last, err := svc.LastActivity(ctx, 1)
	if err != nil || last == nil {
		t.Fatalf("LastActivity = %v, %v", last, err)
	}
}
