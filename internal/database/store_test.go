package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

// newTestStore opens a fresh SQLite database in a temp directory and
// returns a Store backed by it.
func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func TestAppendAndRecentMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		appended  int
		limit     int
		wantCount int
	}{
		{name: "fewer messages than limit", appended: 3, limit: 10, wantCount: 3},
		{name: "more messages than limit", appended: 10, limit: 4, wantCount: 4},
		{name: "limit equals count", appended: 5, limit: 5, wantCount: 5},
		{name: "zero limit", appended: 3, limit: 0, wantCount: 0},
		{name: "negative limit", appended: 3, limit: -1, wantCount: 0},
		{name: "no messages", appended: 0, limit: 10, wantCount: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newTestStore(t)
			ctx := context.Background()

			for i := 0; i < tc.appended; i++ {
				content := fmt.Sprintf("msg-%d", i)
				if err := store.AppendMessage(ctx, "u1", "user", content, float64(1000+i)); err != nil {
					t.Fatalf("AppendMessage(%d): %v", i, err)
				}
			}

			got, err := store.RecentMessages(ctx, "u1", tc.limit)
			if err != nil {
				t.Fatalf("RecentMessages: %v", err)
			}
			if len(got) != tc.wantCount {
				t.Fatalf("got %d messages, want %d", len(got), tc.wantCount)
			}

			// The result must be the LAST wantCount messages, oldest first.
			for i, msg := range got {
				want := fmt.Sprintf("msg-%d", tc.appended-tc.wantCount+i)
				if msg.Content != want {
					t.Errorf("message[%d].Content = %q, want %q", i, msg.Content, want)
				}
			}
		})
	}
}

func TestRecentMessagesScopedByUser(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "u1", "user", "hello from u1", 1); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := store.AppendMessage(ctx, "u2", "user", "hello from u2", 2); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	got, err := store.RecentMessages(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 1 || got[0].Content != "hello from u1" {
		t.Fatalf("got %v, want only u1's message", got)
	}
}

func TestAppendMessageValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "", "user", "hi", 1); !errors.Is(err, ErrWrite) {
		t.Errorf("empty user_id: got %v, want ErrWrite", err)
	}
	if err := store.AppendMessage(ctx, "u1", "", "hi", 1); !errors.Is(err, ErrWrite) {
		t.Errorf("empty role: got %v, want ErrWrite", err)
	}
}

func TestUpsertProfileIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	profile := &Profile{
		UserID:      "u1",
		Name:        sql.NullString{String: "Sam", Valid: true},
		Preferences: sql.NullString{String: "sci-fi", Valid: true},
	}

	if err := store.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("first UpsertProfile: %v", err)
	}
	first, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile after first upsert: %v", err)
	}

	if err := store.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("second UpsertProfile: %v", err)
	}
	second, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile after second upsert: %v", err)
	}

	if *first != *second {
		t.Errorf("profile changed under identical upserts: %+v vs %+v", *first, *second)
	}
	if second.Name.String != "Sam" || second.Preferences.String != "sci-fi" {
		t.Errorf("stored profile = %+v, want name Sam, preferences sci-fi", *second)
	}
}

func TestUpsertProfileReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertProfile(ctx, &Profile{
		UserID: "u1",
		Name:   sql.NullString{String: "Sam", Valid: true},
	}); err != nil {
		t.Fatalf("UpsertProfile: %v", err)
	}

	// A second save replaces name and preferences, including clearing name.
	if err := store.UpsertProfile(ctx, &Profile{
		UserID:      "u1",
		Preferences: sql.NullString{String: "comics", Valid: true},
	}); err != nil {
		t.Fatalf("UpsertProfile replace: %v", err)
	}

	got, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Name.Valid {
		t.Errorf("name = %q, want NULL after replace", got.Name.String)
	}
	if got.Preferences.String != "comics" {
		t.Errorf("preferences = %q, want comics", got.Preferences.String)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	got, err := store.GetProfile(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for absent profile", got)
	}
}

func TestDeleteMessages(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.AppendMessage(ctx, "u1", "user", "hi", float64(i)); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	if err := store.DeleteMessages(ctx, "u1"); err != nil {
		t.Fatalf("DeleteMessages: %v", err)
	}

	got, err := store.RecentMessages(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d messages after delete, want 0", len(got))
	}

	// Deleting again is a no-op, not an error.
	if err := store.DeleteMessages(ctx, "u1"); err != nil {
		t.Errorf("second DeleteMessages: %v", err)
	}
}

func TestMaintain(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.Maintain(context.Background()); err != nil {
		t.Fatalf("Maintain: %v", err)
	}
}
