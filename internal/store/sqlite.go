package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"basewatch/internal/types"
)

// SQLiteStore persists both collections in a single database file. Save
// replaces the previous state inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createAlerts := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		symbol TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		threshold REAL NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL,
		triggered_count INTEGER NOT NULL,
		last_triggered TEXT,
		created_at TEXT NOT NULL
	);`
	if _, err := db.Exec(createAlerts); err != nil {
		return nil, fmt.Errorf("failed to create alerts table: %w", err)
	}

	createNotifications := `
	CREATE TABLE IF NOT EXISTS notifications (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		alert_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		read INTEGER NOT NULL
	);`
	if _, err := db.Exec(createNotifications); err != nil {
		return nil, fmt.Errorf("failed to create notifications table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load() ([]types.Alert, []types.Notification, error) {
	alerts, err := s.loadAlerts()
	if err != nil {
		return nil, nil, err
	}
	notifications, err := s.loadNotifications()
	if err != nil {
		return nil, nil, err
	}
	return alerts, notifications, nil
}

func (s *SQLiteStore) loadAlerts() ([]types.Alert, error) {
	rows, err := s.db.Query(`
	SELECT id, type, symbol, wallet_address, threshold, description,
	       is_active, triggered_count, last_triggered, created_at
	FROM alerts;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var a types.Alert
		var lastTriggered sql.NullString
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Type, &a.Symbol, &a.WalletAddress, &a.Threshold,
			&a.Description, &a.IsActive, &a.TriggeredCount, &lastTriggered, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse alert created_at: %w", err)
		}
		if lastTriggered.Valid {
			t, err := time.Parse(time.RFC3339Nano, lastTriggered.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse alert last_triggered: %w", err)
			}
			a.LastTriggered = &t
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) loadNotifications() ([]types.Notification, error) {
	rows, err := s.db.Query(`
	SELECT id, alert_id, type, title, message, data, timestamp, read
	FROM notifications ORDER BY position;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []types.Notification
	for rows.Next() {
		var n types.Notification
		var data, timestamp string
		if err := rows.Scan(&n.ID, &n.AlertID, &n.Type, &n.Title, &n.Message,
			&data, &timestamp, &n.Read); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		if data != "" {
			n.Data = []byte(data)
		}
		if n.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("failed to parse notification timestamp: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *SQLiteStore) Save(alerts []types.Alert, notifications []types.Notification) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM alerts;`); err != nil {
		return fmt.Errorf("failed to clear alerts: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notifications;`); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}

	for _, a := range alerts {
		var lastTriggered interface{}
		if a.LastTriggered != nil {
			lastTriggered = a.LastTriggered.Format(time.RFC3339Nano)
		}
		_, err := tx.Exec(`
		INSERT INTO alerts (id, type, symbol, wallet_address, threshold, description,
		                    is_active, triggered_count, last_triggered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			a.ID, a.Type, a.Symbol, a.WalletAddress, a.Threshold, a.Description,
			a.IsActive, a.TriggeredCount, lastTriggered, a.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
		}
	}

	for i, n := range notifications {
		_, err := tx.Exec(`
		INSERT INTO notifications (position, id, alert_id, type, title, message, data, timestamp, read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			i, n.ID, n.AlertID, n.Type, n.Title, n.Message, string(n.Data),
			n.Timestamp.Format(time.RFC3339Nano), n.Read)
		if err != nil {
			return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}
