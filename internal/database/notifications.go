package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/market-notifier/internal/models"
)

// SaveNotification inserts a notification and returns its new id
func (db *DB) SaveNotification(ctx context.Context, n *models.Notification) (int, error) {
	query := `
		INSERT INTO notifications (
			subscriber_id, symbol, title, message, type, priority, timestamp, read
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var symbol interface{}
	if n.Symbol != "" {
		symbol = n.Symbol
	}

	var id int
	err := db.conn.QueryRowContext(ctx, query,
		n.SubscriberID, symbol, n.Title, n.Body, string(n.Type), string(n.Priority), n.Timestamp.UTC(), n.Read,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save notification: %w", err)
	}
	return id, nil
}

// GetNotification retrieves a notification by ID
func (db *DB) GetNotification(ctx context.Context, id int) (*models.Notification, error) {
	query := `
		SELECT id, subscriber_id, symbol, title, message, type, priority, timestamp, read
		FROM notifications
		WHERE id = $1
	`
	n, err := scanNotification(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("notification %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// NotificationsByRecipient retrieves all notifications for a subscriber, newest first
func (db *DB) NotificationsByRecipient(ctx context.Context, subscriberID int) ([]*models.Notification, error) {
	query := `
		SELECT id, subscriber_id, symbol, title, message, type, priority, timestamp, read
		FROM notifications
		WHERE subscriber_id = $1
		ORDER BY timestamp DESC, id DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationRead flags a notification as read. Marking an already read
// notification succeeds again; false means the id does not exist.
func (db *DB) MarkNotificationRead(ctx context.Context, id int) (bool, error) {
	query := `UPDATE notifications SET read = true WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var symbol sql.NullString
	var notificationType, priority string

	err := row.Scan(
		&n.ID, &n.SubscriberID, &symbol, &n.Title, &n.Body, &notificationType, &priority, &n.Timestamp, &n.Read,
	)
	if err != nil {
		return nil, err
	}

	if symbol.Valid {
		n.Symbol = symbol.String
	}
	if n.Type, err = models.ParseNotificationType(notificationType); err != nil {
		return nil, err
	}
	if n.Priority, err = models.ParsePriority(priority); err != nil {
		return nil, err
	}
	return &n, nil
}
