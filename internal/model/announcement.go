package model

import "time"

// Announcement is a site-wide notice maintained by admins.  Only
// active announcements are shown to users.
type Announcement struct {
	ID        uint64    // announcements.id
	Title     string    // announcements.title
	Content   string    // announcements.content
	Type      string    // announcements.type (info|warning|danger)
	IsActive  bool      // announcements.is_active
	CreatedAt time.Time // announcements.created_at
	UpdatedAt time.Time // announcements.updated_at
}
