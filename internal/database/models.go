package database

import "database/sql"

// Message represents one conversation turn stored for a user. Rows are
// insert-only; the autoincrement ID preserves chronological order, so
// ordering by ID equals ordering by time.
type Message struct {
	ID      uint    `db:"id"`
	UserID  string  `db:"user_id"`
	Role    string  `db:"role"` // 'user' | 'assistant' | 'system'
	Content string  `db:"content"`
	TS      float64 `db:"ts"` // seconds since epoch
}

// Profile holds a user's saved display name and freeform preference notes.
// At most one row exists per user ID; saves are insert-or-replace.
type Profile struct {
	UserID      string         `db:"user_id"`
	Name        sql.NullString `db:"name"`
	Preferences sql.NullString `db:"preferences"`
}
