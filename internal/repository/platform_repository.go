package repository

import (
	"context"
	"database/sql"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// PlatformRepo manages the test platforms installed inside chambers.
type PlatformRepo struct{ DB *sql.DB }

func NewPlatformRepo(db *sql.DB) *PlatformRepo { return &PlatformRepo{DB: db} }

const platformCols = `id, chamber_id, client_uuid, mb, cpu, os, max_link_speed, project,
	test_item, status, created_at, updated_at`

func scanPlatform(row interface{ Scan(...any) error }) (model.Platform, error) {
	var p model.Platform
	err := row.Scan(&p.ID, &p.ChamberID, &p.ClientUUID, &p.MB, &p.CPU, &p.OS,
		&p.MaxLinkSpeed, &p.Project, &p.TestItem, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListByChamber returns a chamber's platforms, newest first.
func (r *PlatformRepo) ListByChamber(ctx context.Context, chamberID uint64) ([]model.Platform, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+platformCols+" FROM platforms WHERE chamber_id = ? ORDER BY created_at DESC",
		chamberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Platform, 0)
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a platform and populates its generated id.
func (r *PlatformRepo) Create(ctx context.Context, p *model.Platform) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO platforms (chamber_id, client_uuid, mb, cpu, os, max_link_speed, project, test_item, status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ChamberID, p.ClientUUID, p.MB, p.CPU, p.OS, p.MaxLinkSpeed, p.Project, p.TestItem, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update rewrites a platform row.
func (r *PlatformRepo) Update(ctx context.Context, p *model.Platform) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE platforms SET client_uuid=?, mb=?, cpu=?, os=?, max_link_speed=?,
			project=?, test_item=?, status=?, updated_at=NOW() WHERE id=?`,
		p.ClientUUID, p.MB, p.CPU, p.OS, p.MaxLinkSpeed, p.Project, p.TestItem, p.Status, p.ID)
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

// Delete removes a platform.
func (r *PlatformRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM platforms WHERE id = ?", id)
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
