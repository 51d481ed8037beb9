package repository

import (
	"context"
	"database/sql"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// NotificationRepo persists the in-app notification log.  Rows here
// are observational; workflow state never depends on them, and the
// dispatcher treats every write as best-effort.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// InsertUser appends a user-targeted notification.
func (r *NotificationRepo) InsertUser(ctx context.Context, n *model.UserNotification) error {
	var related any
	if n.RelatedID != nil {
		related = *n.RelatedID
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_notifications (user_id, title, message, type, related_id, related_type)
		 VALUES (?,?,?,?,?,?)`,
		n.UserID, n.Title, n.Message, n.Type, related, n.RelatedType)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// InsertSystem appends a role-targeted broadcast notification.
func (r *NotificationRepo) InsertSystem(ctx context.Context, n *model.SystemNotification) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO system_notifications (title, message, type, target_role)
		 VALUES (?,?,?,?)`,
		n.Title, n.Message, n.Type, n.TargetRole)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByUser returns the user's most recent notifications, newest
// first, capped at limit.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.UserNotification, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT id, user_id, title, message, type, related_id, related_type, is_read, created_at
		FROM user_notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.UserNotification, 0)
	for rows.Next() {
		var (
			n       model.UserNotification
			related sql.NullInt64
			rtype   sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
			&related, &rtype, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if related.Valid {
			rid := uint64(related.Int64)
			n.RelatedID = &rid
		}
		n.RelatedType = rtype.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns the user's unread notification count.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_notifications WHERE user_id = ? AND is_read = 0",
		userID).Scan(&n)
	return n, err
}

// MarkRead flags one notification as read.  The user id is part of the
// predicate so users can only touch their own rows.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_notifications SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	return err
}

// MarkAllRead flags every notification of the user as read.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_notifications SET is_read = 1 WHERE user_id = ?", userID)
	return err
}

// ListSystemByRole returns recent broadcasts for a role, newest first.
func (r *NotificationRepo) ListSystemByRole(ctx context.Context, role string, limit int) ([]model.SystemNotification, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT id, title, message, type, target_role, created_at
		FROM system_notifications WHERE target_role = ?
		ORDER BY created_at DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SystemNotification, 0)
	for rows.Next() {
		var n model.SystemNotification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.TargetRole, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
