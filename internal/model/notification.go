package model

import "time"

// UserNotification is an in-app message addressed to a single user.
// Notifications are purely observational; they never drive reservation
// state.
type UserNotification struct {
	ID          uint64    // user_notifications.id
	UserID      uint64    // user_notifications.user_id
	Title       string    // user_notifications.title
	Message     string    // user_notifications.message
	Type        string    // user_notifications.type (info|success|warning|danger)
	RelatedID   *uint64   // user_notifications.related_id (nullable)
	RelatedType string    // user_notifications.related_type (e.g. "reservation")
	IsRead      bool      // user_notifications.is_read
	CreatedAt   time.Time // user_notifications.created_at
}

// SystemNotification is a broadcast addressed to every account holding
// a role (`admin` or `user`) rather than to one user.
type SystemNotification struct {
	ID         uint64    // system_notifications.id
	Title      string    // system_notifications.title
	Message    string    // system_notifications.message
	Type       string    // system_notifications.type
	TargetRole string    // system_notifications.target_role
	CreatedAt  time.Time // system_notifications.created_at
}
