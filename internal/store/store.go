package store

import "basewatch/internal/types"

// Store persists the alert definitions and the notification history as one
// unit, so a crash can never leave one collection newer than the other.
type Store interface {
	// Load returns the persisted collections. A store that has never been
	// written loads as empty without error.
	Load() ([]types.Alert, []types.Notification, error)
	// Save atomically replaces both collections.
	Save(alerts []types.Alert, notifications []types.Notification) error
}
