package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/elliebot/internal/ai"
	"github.com/edgard/elliebot/internal/database"
)

// HistoryEntry is one user-visible turn of stored history.
type HistoryEntry struct {
	Sender string `json:"sender"` // "ai" | "user"
	Text   string `json:"text"`
}

// BuildConversation assembles an ordered conversation for a user: exactly
// one leading system entry (the persona, with the profile note appended
// when one exists) followed by up to limit prior turns, oldest first.
//
// It is a pure read of store state. Storage failures degrade gracefully:
// a failed profile read yields a bare persona, a failed history read yields
// the system entry alone.
func (s *Service) BuildConversation(ctx context.Context, userID string, limit int) []ai.Message {
	system := Persona

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load profile, assembling without note",
			"user_id", userID, "error", err)
		profile = nil
	}
	if note := profileNote(profile); note != "" {
		system += " " + note
	}

	conversation := []ai.Message{{Role: ai.RoleSystem, Content: system}}
	if limit <= 0 {
		return conversation
	}

	turns, err := s.store.RecentMessages(ctx, userID, limit)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load history, assembling without it",
			"user_id", userID, "error", err)
		return conversation
	}

	for _, turn := range turns {
		conversation = append(conversation, ai.Message{Role: turn.Role, Content: turn.Content})
	}
	return conversation
}

// History returns the stored turns for a user as sender/text pairs,
// excluding the system entry. Assistant turns map to sender "ai",
// everything else to "user".
func (s *Service) History(ctx context.Context, userID string, limit int) []HistoryEntry {
	conversation := s.BuildConversation(ctx, userID, limit)

	entries := make([]HistoryEntry, 0, len(conversation))
	for _, m := range conversation {
		if m.Role == ai.RoleSystem {
			continue
		}
		sender := "user"
		if m.Role == ai.RoleAssistant {
			sender = "ai"
		}
		entries = append(entries, HistoryEntry{Sender: sender, Text: m.Content})
	}
	return entries
}

// profileNote derives the short profile summary appended to the persona.
// Returns "" when the user has neither a name nor preferences saved.
func profileNote(profile *database.Profile) string {
	if profile == nil {
		return ""
	}

	var parts []string
	if profile.Name.Valid && profile.Name.String != "" {
		parts = append(parts, fmt.Sprintf("User's name is %s.", profile.Name.String))
	}
	if profile.Preferences.Valid && profile.Preferences.String != "" {
		parts = append(parts, fmt.Sprintf("Preferences: %s.", profile.Preferences.String))
	}
	return strings.Join(parts, " ")
}
