package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/docify-community/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.MessageLog and store.UserDirectory for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ store.MessageLog    = (*SQLiteStore)(nil)
	_ store.UserDirectory = (*SQLiteStore)(nil)
)

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserDirectory implementation ====

// LookupSender retrieves the display fields of a user.
func (s *SQLiteStore) LookupSender(ctx context.Context, id string) (*store.Sender, error) {
	query := `
		SELECT id, username, display_name, photo_url
		FROM users
		WHERE id = ?
	`
	var sender store.Sender
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sender.ID,
		&sender.Username,
		&sender.DisplayName,
		&sender.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lookup %q: %w", id, store.ErrUserNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &sender, nil
}

// UpsertSender creates a user or replaces its display fields.
func (s *SQLiteStore) UpsertSender(ctx context.Context, sender *store.Sender) error {
	query := `
		INSERT INTO users (id, username, display_name, photo_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username     = excluded.username,
			display_name = excluded.display_name,
			photo_url    = excluded.photo_url,
			updated_at   = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, sender.ID, sender.Username, sender.DisplayName, sender.AvatarURL); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// ==== MessageLog implementation ====

// Append persists a message and sets its ID.
func (s *SQLiteStore) Append(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO community_messages (sender_id, text, created_at)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.SenderID, msg.Text, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// Recent retrieves the newest messages, returned in ascending id order.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		return []*store.Message{}, nil
	}

	query := `
		SELECT id, sender_id, text, created_at
		FROM community_messages
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
