package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// AppendMessage inserts one conversation turn for a user.
	AppendMessage(ctx context.Context, userID, role, content string, ts float64) error

	// RecentMessages retrieves up to 'limit' most recent messages for a user,
	// ordered oldest to newest. Returns an empty slice when none exist.
	RecentMessages(ctx context.Context, userID string, limit int) ([]Message, error)

	// UpsertProfile inserts a profile row or replaces name/preferences
	// if one already exists for the user ID.
	UpsertProfile(ctx context.Context, profile *Profile) error

	// GetProfile retrieves a profile by user ID. Returns nil, nil if not found.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// DeleteMessages removes all messages for a user. No-op if none exist.
	DeleteMessages(ctx context.Context, userID string) error

	// Maintain performs database maintenance tasks like VACUUM.
	Maintain(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppendMessage inserts one conversation turn for a user.
func (s *sqlxStore) AppendMessage(ctx context.Context, userID, role, content string, ts float64) error {
	if userID == "" {
		return fmt.Errorf("%w: message must have a non-empty user_id", ErrWrite)
	}
	if role == "" {
		return fmt.Errorf("%w: message must have a non-empty role", ErrWrite)
	}

	msg := Message{UserID: userID, Role: role, Content: content, TS: ts}
	query := `INSERT INTO messages (user_id, role, content, ts) VALUES (:user_id, :role, :content, :ts)`

	result, err := s.db.NamedExecContext(ctx, query, &msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "user_id", userID, "role", role, "error", err)
		return fmt.Errorf("%w: failed to save message for user %s: %v", ErrWrite, userID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when saving message",
			"user_id", userID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Message saved successfully", "user_id", userID, "role", role)
	return nil
}

// RecentMessages retrieves the most recent 'limit' messages for a user,
// returned in chronological order (oldest first). A non-positive limit
// yields an empty result.
func (s *sqlxStore) RecentMessages(ctx context.Context, userID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []Message
	query := `
        SELECT id, user_id, role, content, ts
        FROM messages
        WHERE user_id = ?
        ORDER BY id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &messages, query, userID, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "user_id", userID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for user %s: %w", userID, err)
	}

	// Query returns newest-first; reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	s.logger.DebugContext(ctx, "Fetched recent messages", "user_id", userID, "count", len(messages))
	return messages, nil
}

// UpsertProfile inserts or replaces a user's profile row.
func (s *sqlxStore) UpsertProfile(ctx context.Context, profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("%w: cannot save nil profile", ErrWrite)
	}
	if profile.UserID == "" {
		return fmt.Errorf("%w: profile must have a non-empty user_id", ErrWrite)
	}

	query := `
        INSERT INTO profiles (user_id, name, preferences)
        VALUES (:user_id, :name, :preferences)
        ON CONFLICT(user_id) DO UPDATE SET
            name = excluded.name,
            preferences = excluded.preferences;
    `

	if _, err := s.db.NamedExecContext(ctx, query, profile); err != nil {
		s.logger.ErrorContext(ctx, "Error saving profile", "user_id", profile.UserID, "error", err)
		return fmt.Errorf("%w: failed to save profile for user %s: %v", ErrWrite, profile.UserID, err)
	}

	s.logger.DebugContext(ctx, "Profile saved successfully", "user_id", profile.UserID)
	return nil
}

// GetProfile retrieves a profile by user ID. Absence is not an error:
// it returns nil, nil when no row exists.
func (s *sqlxStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile Profile
	query := `SELECT user_id, name, preferences FROM profiles WHERE user_id = ?`

	err := s.db.GetContext(ctx, &profile, query, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No profile found", "user_id", userID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}

	return &profile, nil
}

// DeleteMessages removes all messages for a user.
func (s *sqlxStore) DeleteMessages(ctx context.Context, userID string) error {
	query := `DELETE FROM messages WHERE user_id = ?`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting messages", "user_id", userID, "error", err)
		return fmt.Errorf("%w: failed to delete messages for user %s: %v", ErrWrite, userID, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted messages", "user_id", userID, "count", count)
	return nil
}

// Maintain executes a VACUUM command on the SQLite database.
func (s *sqlxStore) Maintain(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
