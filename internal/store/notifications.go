package store

import (
	"context"
	"fmt"

	"github.com/erazemk/inventar/internal/model"
)

// ListNotifications returns stored notifications, newest first.
func ListNotifications(ctx context.Context, db DBTX) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, type, subject_id, item_id, item_name, title, message, read, created_at
		 FROM notifications ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var (
			n   model.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &typ, &n.SubjectID, &n.ItemID, &n.ItemName, &n.Title, &n.Message,
			&n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.Type = model.NotificationType(typ)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// InsertNotification stores a notification unless one with the same type and
// subject already exists. It reports whether a row was added.
func InsertNotification(ctx context.Context, db DBTX, n *model.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = NewID()
	}
	result, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notifications
		     (id, type, subject_id, item_id, item_name, title, message, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Type), n.SubjectID, n.ItemID, n.ItemName, n.Title, n.Message, n.Read, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting notification: %w", err)
	}
	return affected(result)
}

// DeleteNotification removes the notification for a type and subject.
func DeleteNotification(ctx context.Context, db DBTX, typ model.NotificationType, subjectID string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM notifications WHERE type = ? AND subject_id = ?`, string(typ), subjectID,
	)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	return nil
}

// MarkNotificationRead flags one notification as read.
func MarkNotificationRead(ctx context.Context, db DBTX, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return affected(result)
}

// MarkAllNotificationsRead flags every notification as read.
func MarkAllNotificationsRead(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}

// CountUnreadNotifications returns the number of unread notifications.
func CountUnreadNotifications(ctx context.Context, db DBTX) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE read = 0`,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}
