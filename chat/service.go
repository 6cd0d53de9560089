// Package chat runs the supportive conversation: it keeps the transcript and
// asks the text-generation service for replies.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/mindease/llm"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/store"
)

const (
	// SummaryWindow is how many recent messages feed the conversation summary.
	SummaryWindow = 10

	// FallbackReply is stored and returned when no reply could be generated.
	FallbackReply = "I apologize, but I'm having trouble processing your message right now. Please try again in a moment."

	firstInteraction = "This is the first interaction with the user."
)

const systemTemplate = `You are an empathetic and supportive mental health AI assistant. Your role is to:
1. Provide emotional support and understanding
2. Help users process their thoughts and feelings
3. Suggest healthy coping mechanisms
4. Recognize crisis situations and recommend professional help when needed
5. Maintain a warm, non-judgmental tone
6. Keep responses concise and focused

Important: You are not a replacement for professional mental health care. If users express serious concerns, always encourage them to seek professional help.

Previous conversation summary: %s`

const (
	chatSummaryPrompt = "Summarize the following conversation concisely, focusing on key emotional themes and important points:"
	moodSummaryPrompt = "Summarize the following conversation concisely, focusing on key emotional themes and mood-related insights:"
)

type Service struct {
	transcripts store.TranscriptStore
	completer   llm.Completer
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(transcripts store.TranscriptStore, completer llm.Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		transcripts: transcripts,
		completer:   completer,
		logger:      logger,
		now:         time.Now,
	}
}

// Send stores the user's message, generates a reply and stores it too.
// Generation failures are answered with FallbackReply; store failures are returned.
func (s *Service) Send(ctx context.Context, userID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &models.ValidationError{Field: "content", Message: "must not be empty"}
	}
	if len([]rune(content)) > models.MaxChatContentRunes {
		return nil, &models.ValidationError{Field: "content", Message: fmt.Sprintf("longer than %d characters", models.MaxChatContentRunes)}
	}

	userMsg := &models.ChatMessage{UserID: userID, Role: models.RoleUser, Content: content, CreatedAt: s.now()}
	if err := s.transcripts.Append(ctx, userMsg); err != nil {
		return nil, err
	}

	recent, err := s.transcripts.Recent(ctx, userID, SummaryWindow)
	if err != nil {
		return nil, err
	}

	reply, err := s.reply(ctx, recent, content)
	if err != nil {
		s.logger.Warn("chat reply failed", zap.Uint("user_id", userID), zap.Error(err))
		reply = FallbackReply
	}

	assistantMsg := &models.ChatMessage{UserID: userID, Role: models.RoleAssistant, Content: reply, CreatedAt: s.now()}
	if err := s.transcripts.Append(ctx, assistantMsg); err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

func (s *Service) reply(ctx context.Context, recent []models.ChatMessage, content string) (string, error) {
	summary := firstInteraction
	if len(recent) > 0 {
		var err error
		summary, err = s.summarize(ctx, chatSummaryPrompt, recent)
		if err != nil {
			return "", fmt.Errorf("summarize: %w", err)
		}
	}

	return s.completer.Complete(ctx, fmt.Sprintf(systemTemplate, summary), content)
}

// History returns up to limit messages, oldest first.
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]models.ChatMessage, error) {
	return s.transcripts.History(ctx, userID, limit)
}

// MoodSummary condenses the recent conversation for recommendation prompts.
// It returns "" when there is no conversation or it could not be summarized.
func (s *Service) MoodSummary(ctx context.Context, userID uint) string {
	recent, err := s.transcripts.Recent(ctx, userID, SummaryWindow)
	if err != nil {
		s.logger.Warn("loading chat for summary", zap.Uint("user_id", userID), zap.Error(err))
		return ""
	}
	if len(recent) == 0 {
		return ""
	}
	summary, err := s.summarize(ctx, moodSummaryPrompt, recent)
	if err != nil {
		s.logger.Warn("summarizing chat", zap.Uint("user_id", userID), zap.Error(err))
		return ""
	}
	return summary
}

// LastActivity returns when the user last wrote in the chat, or nil.
func (s *Service) LastActivity(ctx context.Context, userID uint) (*time.Time, error) {
	return s.transcripts.LastMessageAt(ctx, userID)
}

func (s *Service) summarize(ctx context.Context, instruction string, msgs []models.ChatMessage) (string, error) {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return s.completer.Complete(ctx, instruction, strings.Join(lines, "\n"))
}
