package repository

import (
	"context"
	"database/sql"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// ChamberRepo provides CRUD operations for chambers and their test
// platforms.
type ChamberRepo struct{ DB *sql.DB }

func NewChamberRepo(db *sql.DB) *ChamberRepo { return &ChamberRepo{DB: db} }

const chamberCols = `id, name, temperature_range, capacity, location, test_item, project,
	status, created_at, updated_at`

func scanChamber(row interface{ Scan(...any) error }) (model.Chamber, error) {
	var (
		c                            model.Chamber
		location, testItem, project sql.NullString
	)
	err := row.Scan(&c.ID, &c.Name, &c.TemperatureRange, &c.Capacity, &location, &testItem, &project,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Location = location.String
	c.TestItem = testItem.String
	c.Project = project.String
	return c, nil
}

// Create inserts a chamber and populates its generated id.
func (r *ChamberRepo) Create(ctx context.Context, c *model.Chamber) error {
	if c.Status == "" {
		c.Status = model.ChamberAvailable
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO chambers (name, temperature_range, capacity, location, test_item, project, status)
		 VALUES (?,?,?,?,?,?,?)`,
		c.Name, c.TemperatureRange, c.Capacity, c.Location, c.TestItem, c.Project, c.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a chamber by id.
func (r *ChamberRepo) GetByID(ctx context.Context, id uint64) (model.Chamber, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+chamberCols+" FROM chambers WHERE id = ?", id)
	return scanChamber(row)
}

// List returns all chambers ordered by name.
func (r *ChamberRepo) List(ctx context.Context) ([]model.Chamber, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+chamberCols+" FROM chambers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Chamber, 0)
	for rows.Next() {
		c, err := scanChamber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites the descriptive fields of a chamber.
func (r *ChamberRepo) Update(ctx context.Context, c *model.Chamber) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE chambers SET name=?, temperature_range=?, capacity=?, location=?,
			test_item=?, project=?, status=?, updated_at=NOW() WHERE id=?`,
		c.Name, c.TemperatureRange, c.Capacity, c.Location, c.TestItem, c.Project, c.Status, c.ID)
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

// UpdateStatus sets only the stored status field (reclaim sets it back
// to available, maintenance workflows flip it to maintenance).
func (r *ChamberRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE chambers SET status=?, updated_at=NOW() WHERE id=?", status, id)
	return err
}

// UpdateTestItem assigns the chamber's current test item.
func (r *ChamberRepo) UpdateTestItem(ctx context.Context, id uint64, testItem string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE chambers SET test_item=?, updated_at=NOW() WHERE id=?", testItem, id)
	return err
}

// Delete removes a chamber.  Platform rows go with it via the FK
// cascade; reservation history is kept.
func (r *ChamberRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM chambers WHERE id = ?", id)
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

// Count returns the total number of chambers.
func (r *ChamberRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM chambers").Scan(&n)
	return n, err
}
