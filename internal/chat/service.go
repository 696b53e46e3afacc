// Package chat implements the conversation logic for the Ellie backend:
// persisting turns, assembling bounded history with the persona directive,
// and exchanging messages with the upstream model.
package chat

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/elliebot/internal/ai"
	"github.com/edgard/elliebot/internal/database"
)

// Persona is the fixed system-role text prepended to assembled conversations.
const Persona = "You are Ellie ❤️, a sweet, nerdy, funny, AI girlfriend. " +
	"Be funny, supportive and smart. Keep responses concise unless the user wants depth."

// chatDirective is the system text sent on the chat path. The chat exchange
// carries only this directive and the current message; prior history and the
// profile note are not included. See BuildConversation for the assembled form.
const chatDirective = "You are Ellie ❤️, supportive, girlfriend, nerdy, loves video games" +
	"and loves comic books. Keep responses concise unless the user asks for more."

// Service coordinates the store and the upstream model client.
type Service struct {
	store        database.Store
	ai           ai.Client
	logger       *slog.Logger
	historyLimit int
}

// NewService creates a chat service. historyLimit bounds how many prior
// turns history assembly returns by default.
func NewService(store database.Store, aiClient ai.Client, logger *slog.Logger, historyLimit int) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:        store,
		ai:           aiClient,
		logger:       logger.With("component", "chat"),
		historyLimit: historyLimit,
	}
}

// HistoryLimit returns the default bound on assembled history length.
func (s *Service) HistoryLimit() int {
	return s.historyLimit
}

// Converse persists the inbound user turn, sends the fixed directive plus
// the message upstream, persists the reply, and returns it.
//
// Failure behavior: a missing credential surfaces ai.ErrNotConfigured before
// the store is touched; an upstream failure surfaces ai.ErrUpstream with no
// assistant turn persisted; the inbound user turn stays persisted regardless
// of upstream outcome.
func (s *Service) Converse(ctx context.Context, userID, message string) (string, error) {
	if !s.ai.Configured() {
		return "", ai.ErrNotConfigured
	}

	if err := s.store.AppendMessage(ctx, userID, ai.RoleUser, message, nowUnix()); err != nil {
		return "", err
	}

	exchange := []ai.Message{
		{Role: ai.RoleSystem, Content: chatDirective},
		{Role: ai.RoleUser, Content: message},
	}

	reply, err := s.ai.GenerateReply(ctx, exchange)
	if err != nil {
		return "", err
	}

	if err := s.store.AppendMessage(ctx, userID, ai.RoleAssistant, reply, nowUnix()); err != nil {
		return "", err
	}

	s.logger.DebugContext(ctx, "Conversation turn completed", "user_id", userID)
	return reply, nil
}

// SaveProfile stores or replaces a user's display name and preferences.
func (s *Service) SaveProfile(ctx context.Context, userID string, name, preferences *string) error {
	profile := &database.Profile{UserID: userID}
	if name != nil {
		profile.Name = sql.NullString{String: *name, Valid: true}
	}
	if preferences != nil {
		profile.Preferences = sql.NullString{String: *preferences, Valid: true}
	}
	return s.store.UpsertProfile(ctx, profile)
}

// Reset deletes all stored history for a user.
func (s *Service) Reset(ctx context.Context, userID string) error {
	return s.store.DeleteMessages(ctx, userID)
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
