package repository

import (
	"context"
	"database/sql"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// AnnouncementRepo manages site-wide notices.
type AnnouncementRepo struct{ DB *sql.DB }

func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo { return &AnnouncementRepo{DB: db} }

const announcementCols = "id, title, content, type, is_active, created_at, updated_at"

func scanAnnouncement(row interface{ Scan(...any) error }) (model.Announcement, error) {
	var a model.Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Type, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// List returns announcements, newest first.  When activeOnly is set
// only active ones are returned (the user-facing view).
func (r *AnnouncementRepo) List(ctx context.Context, activeOnly bool) ([]model.Announcement, error) {
	q := "SELECT " + announcementCols + " FROM announcements"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Announcement, 0)
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts an announcement and populates its generated id.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	if a.Type == "" {
		a.Type = "info"
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO announcements (title, content, type, is_active) VALUES (?,?,?,?)",
		a.Title, a.Content, a.Type, a.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// Update rewrites an announcement.
func (r *AnnouncementRepo) Update(ctx context.Context, a *model.Announcement) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE announcements SET title=?, content=?, type=?, is_active=?, updated_at=NOW() WHERE id=?",
		a.Title, a.Content, a.Type, a.IsActive, a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM announcements WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
