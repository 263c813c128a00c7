package repo

import (
	"context"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
)

// Setting keys persisted alongside recipients and scheduled entries.
const (
	SettingDisplayName = "display_name"
	SettingAPIKey      = "api_key"
)

// StateRepo is the persistence interface for bot state (SQLite).
// The in-memory registry and queue stay authoritative; the store is
// loaded once at startup and written through on every mutation.
type StateRepo interface {
	// LoadRecipients returns all saved recipients in insertion order
	LoadRecipients(ctx context.Context) ([]domain.Recipient, error)

	// SaveRecipient persists a newly saved recipient
	SaveRecipient(ctx context.Context, id domain.Recipient) error

	// DeleteRecipient removes a recipient from storage
	DeleteRecipient(ctx context.Context, id domain.Recipient) error

	// LoadPending returns all scheduled entries not yet delivered
	LoadPending(ctx context.Context) ([]*domain.ScheduledEntry, error)

	// SaveEntry persists a scheduled entry
	SaveEntry(ctx context.Context, entry *domain.ScheduledEntry) error

	// DeleteEntry removes a delivered entry from storage
	DeleteEntry(ctx context.Context, id string) error

	// LoadSettings returns all persisted settings
	LoadSettings(ctx context.Context) (map[string]string, error)

	// SaveSetting persists one setting (create or update)
	SaveSetting(ctx context.Context, key, value string) error

	// Close closes the underlying database
	Close() error
}
