package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/edgard/elliebot/internal/ai"
	"github.com/edgard/elliebot/internal/database"
)

// stubStore is an in-memory database.Store with per-method error injection.
type stubStore struct {
	messages []database.Message
	profile  *database.Profile
	nextID   uint

	appendErr  error
	recentErr  error
	profileErr error
	upsertErr  error
	deleteErr  error
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) AppendMessage(_ context.Context, userID, role, content string, ts float64) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.nextID++
	s.messages = append(s.messages, database.Message{
		ID: s.nextID, UserID: userID, Role: role, Content: content, TS: ts,
	})
	return nil
}

func (s *stubStore) RecentMessages(_ context.Context, userID string, limit int) ([]database.Message, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	if limit <= 0 {
		return []database.Message{}, nil
	}
	var all []database.Message
	for _, m := range s.messages {
		if m.UserID == userID {
			all = append(all, m)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *stubStore) UpsertProfile(_ context.Context, profile *database.Profile) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.profile = profile
	return nil
}

func (s *stubStore) GetProfile(_ context.Context, userID string) (*database.Profile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	if s.profile == nil || s.profile.UserID != userID {
		return nil, nil
	}
	return s.profile, nil
}

func (s *stubStore) DeleteMessages(_ context.Context, userID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	var kept []database.Message
	for _, m := range s.messages {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return nil
}

func (s *stubStore) Maintain(context.Context) error { return nil }

// stubAI is a canned ai.Client recording what it was asked to send.
type stubAI struct {
	configured bool
	reply      string
	err        error
	got        []ai.Message
	calls      int
}

func (a *stubAI) Configured() bool { return a.configured }

func (a *stubAI) GenerateReply(_ context.Context, messages []ai.Message) (string, error) {
	a.calls++
	a.got = messages
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

func TestConverse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("happy path persists both turns", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{}
		upstream := &stubAI{configured: true, reply: "hello"}
		svc := NewService(store, upstream, nil, 20)

		reply, err := svc.Converse(ctx, "u1", "hi")
		if err != nil {
			t.Fatalf("Converse: %v", err)
		}
		if reply != "hello" {
			t.Errorf("reply = %q, want hello", reply)
		}

		if len(store.messages) != 2 {
			t.Fatalf("stored %d turns, want 2", len(store.messages))
		}
		if store.messages[0].Role != ai.RoleUser || store.messages[0].Content != "hi" {
			t.Errorf("first turn = %+v, want user 'hi'", store.messages[0])
		}
		if store.messages[1].Role != ai.RoleAssistant || store.messages[1].Content != "hello" {
			t.Errorf("second turn = %+v, want assistant 'hello'", store.messages[1])
		}
	})

	t.Run("sends fixed two-entry exchange without history", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{}
		// Seed prior history that must NOT be forwarded upstream.
		_ = store.AppendMessage(ctx, "u1", ai.RoleUser, "earlier", 1)
		_ = store.AppendMessage(ctx, "u1", ai.RoleAssistant, "before", 2)

		upstream := &stubAI{configured: true, reply: "ok"}
		svc := NewService(store, upstream, nil, 20)

		if _, err := svc.Converse(ctx, "u1", "latest"); err != nil {
			t.Fatalf("Converse: %v", err)
		}

		if len(upstream.got) != 2 {
			t.Fatalf("sent %d entries upstream, want exactly 2", len(upstream.got))
		}
		if upstream.got[0].Role != ai.RoleSystem {
			t.Errorf("first entry role = %q, want system", upstream.got[0].Role)
		}
		if upstream.got[1].Role != ai.RoleUser || upstream.got[1].Content != "latest" {
			t.Errorf("second entry = %+v, want user 'latest'", upstream.got[1])
		}
	})

	t.Run("not configured fails before touching store", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{}
		upstream := &stubAI{configured: false}
		svc := NewService(store, upstream, nil, 20)

		_, err := svc.Converse(ctx, "u1", "hi")
		if !errors.Is(err, ai.ErrNotConfigured) {
			t.Fatalf("got %v, want ErrNotConfigured", err)
		}
		if len(store.messages) != 0 {
			t.Errorf("stored %d turns, want 0 when not configured", len(store.messages))
		}
		if upstream.calls != 0 {
			t.Errorf("upstream called %d times, want 0", upstream.calls)
		}
	})

	t.Run("upstream failure keeps user turn, no assistant turn", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{}
		upstream := &stubAI{configured: true, err: ai.ErrUpstream}
		svc := NewService(store, upstream, nil, 20)

		_, err := svc.Converse(ctx, "u1", "hi")
		if !errors.Is(err, ai.ErrUpstream) {
			t.Fatalf("got %v, want ErrUpstream", err)
		}
		if len(store.messages) != 1 {
			t.Fatalf("stored %d turns, want 1 (the user turn)", len(store.messages))
		}
		if store.messages[0].Role != ai.RoleUser {
			t.Errorf("stored turn role = %q, want user", store.messages[0].Role)
		}
	})

	t.Run("storage write failure propagates", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{appendErr: database.ErrWrite}
		upstream := &stubAI{configured: true, reply: "never"}
		svc := NewService(store, upstream, nil, 20)

		_, err := svc.Converse(ctx, "u1", "hi")
		if !errors.Is(err, database.ErrWrite) {
			t.Fatalf("got %v, want ErrWrite", err)
		}
		if upstream.calls != 0 {
			t.Errorf("upstream called %d times after failed write, want 0", upstream.calls)
		}
	})
}

func TestSaveProfileAndReset(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &stubStore{}
	svc := NewService(store, &stubAI{configured: true}, nil, 20)

	name := "Sam"
	if err := svc.SaveProfile(ctx, "u1", &name, nil); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if store.profile == nil || store.profile.Name.String != "Sam" {
		t.Errorf("profile = %+v, want name Sam", store.profile)
	}
	if store.profile.Preferences.Valid {
		t.Errorf("preferences = %+v, want NULL", store.profile.Preferences)
	}

	_ = store.AppendMessage(ctx, "u1", ai.RoleUser, "hi", 1)
	if err := svc.Reset(ctx, "u1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(store.messages) != 0 {
		t.Errorf("stored %d turns after reset, want 0", len(store.messages))
	}
}
