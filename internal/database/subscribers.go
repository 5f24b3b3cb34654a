package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/market-notifier/internal/models"
)

// CreateSubscriber inserts a new subscriber
func (db *DB) CreateSubscriber(ctx context.Context, s *models.Subscriber) error {
	if s.Preference == "" {
		s.Preference = models.PreferenceAll
	}
	query := `
		INSERT INTO subscribers (name, email, notification_preference)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query, s.Name, s.Email, string(s.Preference)).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}
	return nil
}

// GetSubscriber retrieves a subscriber by ID
func (db *DB) GetSubscriber(ctx context.Context, id int) (*models.Subscriber, error) {
	query := `
		SELECT id, name, email, notification_preference
		FROM subscribers
		WHERE id = $1
	`
	s, err := scanSubscriber(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscriber %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}
	return s, nil
}

// ListSubscribers retrieves every subscriber ordered by ID
func (db *DB) ListSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	query := `
		SELECT id, name, email, notification_preference
		FROM subscribers
		ORDER BY id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []*models.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subscribers = append(subscribers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscribers: %w", err)
	}
	return subscribers, nil
}

// UpdateSubscriberPreference changes a subscriber's notification preference.
// It returns false when the subscriber does not exist.
func (db *DB) UpdateSubscriberPreference(ctx context.Context, id int, pref models.Preference) (bool, error) {
	query := `UPDATE subscribers SET notification_preference = $2 WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id, string(pref))
	if err != nil {
		return false, fmt.Errorf("failed to update notification preference: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

func scanSubscriber(row rowScanner) (*models.Subscriber, error) {
	var s models.Subscriber
	var pref string
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &pref); err != nil {
		return nil, err
	}

	p, err := models.ParsePreference(pref)
	if err != nil {
		return nil, err
	}
	s.Preference = p
	return &s, nil
}
