package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
	"github.com/anthropics/feishu-promo-bot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// stateRepo implements the bot state repository
type stateRepo struct {
	db *sql.DB
}

// NewStateRepo opens (creating if needed) the bot state database.
func NewStateRepo(dbPath string) (repo.StateRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Recipients keep their insertion order through the rowid.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS recipients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recipient TEXT UNIQUE NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create recipients table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS scheduled_messages (
			id TEXT PRIMARY KEY,
			recipient TEXT NOT NULL,
			body TEXT NOT NULL,
			due_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scheduled_messages table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_scheduled_due_at ON scheduled_messages(due_at)`)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	return &stateRepo{db: db}, nil
}

// LoadRecipients returns all saved recipients in insertion order
func (r *stateRepo) LoadRecipients(ctx context.Context) ([]domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recipient FROM recipients ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, domain.Recipient(id))
	}
	return recipients, rows.Err()
}

// SaveRecipient persists a recipient
func (r *stateRepo) SaveRecipient(ctx context.Context, id domain.Recipient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO recipients (recipient, created_at) VALUES (?, ?)
	`, string(id), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}
	return nil
}

// DeleteRecipient removes a recipient
func (r *stateRepo) DeleteRecipient(ctx context.Context, id domain.Recipient) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recipients WHERE recipient = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}
	return nil
}

// LoadPending returns all scheduled entries not yet delivered
func (r *stateRepo) LoadPending(ctx context.Context) ([]*domain.ScheduledEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recipient, body, due_at, created_at
		FROM scheduled_messages
		ORDER BY due_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduled messages: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ScheduledEntry
	for rows.Next() {
		var entry domain.ScheduledEntry
		var recipient string
		var dueAt, createdAt int64
		if err := rows.Scan(&entry.ID, &recipient, &entry.Text, &dueAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan scheduled message: %w", err)
		}
		entry.Recipient = domain.Recipient(recipient)
		entry.DueAt = time.Unix(dueAt, 0)
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// SaveEntry persists a scheduled entry
func (r *stateRepo) SaveEntry(ctx context.Context, entry *domain.ScheduledEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scheduled_messages (id, recipient, body, due_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		entry.ID,
		string(entry.Recipient),
		entry.Text,
		entry.DueAt.Unix(),
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save scheduled message: %w", err)
	}
	return nil
}

// DeleteEntry removes a delivered entry
func (r *stateRepo) DeleteEntry(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled message: %w", err)
	}
	return nil
}

// LoadSettings returns all persisted settings
func (r *stateRepo) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// SaveSetting persists one setting (create or update)
func (r *stateRepo) SaveSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *stateRepo) Close() error {
	return r.db.Close()
}
