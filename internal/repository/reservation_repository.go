package repository

import (
	"context"
	"database/sql"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Dates
// are stored in DATE columns and compared with closed-interval
// semantics: two reservations on the same chamber conflict when
// existing.start <= new.end AND existing.end >= new.start.  All
// methods that participate in the submit/cascade transactions take an
// explicit *sql.Tx; the caller owns commit and rollback.
type ReservationRepo struct{ DB *sql.DB }

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

const reservationCols = `id, user_id, chamber_id, project_name, project_leader, department,
	test_item, temperature_range, sample_count, special_requirements, fw_version,
	start_date, end_date, status, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (model.Reservation, error) {
	var (
		res           model.Reservation
		special, fwv  sql.NullString
	)
	err := row.Scan(
		&res.ID, &res.UserID, &res.ChamberID, &res.ProjectName, &res.ProjectLeader, &res.Department,
		&res.TestItem, &res.TemperatureRange, &res.SampleCount, &special, &fwv,
		&res.StartDate, &res.EndDate, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return res, err
	}
	res.SpecialRequirements = special.String
	res.FWVersion = fwv.String
	return res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and queries the row back to populate generated id and
// timestamps.  Status must already be assigned by the workflow engine.
// The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(user_id, chamber_id, project_name, project_leader, department, test_item,
		 temperature_range, sample_count, special_requirements, fw_version,
		 start_date, end_date, status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	result, err := tx.ExecContext(ctx, q,
		res.UserID, res.ChamberID, res.ProjectName, res.ProjectLeader, res.Department, res.TestItem,
		res.TemperatureRange, res.SampleCount, res.SpecialRequirements, res.FWVersion,
		res.StartDate, res.EndDate, res.Status)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	row := tx.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id = ?", uint64(id))
	created, err := scanReservation(row)
	if err != nil {
		return err
	}
	*res = created
	return nil
}

// OverlappingTx returns every non-cancelled reservation on the chamber
// whose closed date interval intersects [start, end].  Rows are locked
// with FOR UPDATE so that two concurrent submissions for the same
// chamber serialize on the existing rows: the second transaction waits
// and then observes the first one's insert as a conflict.
func (r *ReservationRepo) OverlappingTx(ctx context.Context, tx *sql.Tx, chamberID uint64, start, end string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE chamber_id = ? AND status != 'cancelled'
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, chamberID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// Overlapping is the read-only projection of OverlappingTx used by the
// availability query.  It applies the identical interval predicate so
// a slot reported available is never one submit would reject.
func (r *ReservationRepo) Overlapping(ctx context.Context, chamberID uint64, start, end string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE chamber_id = ? AND status != 'cancelled'
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`
	rows, err := r.DB.QueryContext(ctx, q, chamberID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// GetByID fetches a single reservation.  sql.ErrNoRows is returned
// when the id is absent.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations WHERE id = ?", id)
	return scanReservation(row)
}

// UpdateStatusTx sets the lifecycle state and bumps updated_at within
// an existing transaction.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = NOW() WHERE id = ?", status, id)
	return err
}

// UpdateStatus is the standalone-statement variant of UpdateStatusTx,
// for flows that do not touch any other row.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = NOW() WHERE id = ?", status, id)
	return err
}

// ListByUser returns all reservations belonging to a user, newest
// first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ActiveByUserTx returns the user's pending and approved reservations
// with their rows locked.  The delete-user cascade cancels exactly
// this set inside the same transaction.
func (r *ReservationRepo) ActiveByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE user_id = ? AND status IN ('pending','approved')
		FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListByChamberMonth returns approved reservations on a chamber whose
// start date falls inside the given `YYYY-MM` month, ordered by start
// date.  Used by the schedule view.
func (r *ReservationRepo) ListByChamberMonth(ctx context.Context, chamberID uint64, month string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE chamber_id = ? AND status = 'approved'
		  AND DATE_FORMAT(start_date, '%Y-%m') = ?
		ORDER BY start_date`
	rows, err := r.DB.QueryContext(ctx, q, chamberID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ApprovedCovering returns approved reservations on the chamber whose
// date range covers the given day (YYYY-MM-DD).  Chamber reclaim and
// the derived status computation both consume it.
func (r *ReservationRepo) ApprovedCovering(ctx context.Context, chamberID uint64, day string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE chamber_id = ? AND status = 'approved'
		  AND start_date <= ? AND end_date >= ?`
	rows, err := r.DB.QueryContext(ctx, q, chamberID, day, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ApprovedByChambers returns every approved reservation grouped by
// chamber id in a single query, for list views that derive each
// chamber's effective status.
func (r *ReservationRepo) ApprovedByChambers(ctx context.Context) (map[uint64][]model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
		WHERE status = 'approved' ORDER BY chamber_id, start_date`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byChamber := make(map[uint64][]model.Reservation)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		byChamber[res.ChamberID] = append(byChamber[res.ChamberID], res)
	}
	return byChamber, rows.Err()
}

// AdminReservation pairs a reservation with the submitting username
// and chamber name for admin list views.
type AdminReservation struct {
	model.Reservation
	Username    string `json:"username"`
	ChamberName string `json:"chamber_name"`
}

// ListAll returns every reservation joined with user and chamber
// names, newest first.  When status is non-empty only matching rows
// are returned.
func (r *ReservationRepo) ListAll(ctx context.Context, status string) ([]AdminReservation, error) {
	q := `SELECT r.id, r.user_id, r.chamber_id, r.project_name, r.project_leader, r.department,
			r.test_item, r.temperature_range, r.sample_count, r.special_requirements, r.fw_version,
			r.start_date, r.end_date, r.status, r.created_at, r.updated_at,
			u.username, c.name
		FROM reservations r
		JOIN users u ON u.id = r.user_id
		JOIN chambers c ON c.id = r.chamber_id`
	args := []any{}
	if status != "" {
		q += " WHERE r.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY r.created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AdminReservation, 0)
	for rows.Next() {
		var (
			ar           AdminReservation
			special, fwv sql.NullString
		)
		if err := rows.Scan(
			&ar.ID, &ar.UserID, &ar.ChamberID, &ar.ProjectName, &ar.ProjectLeader, &ar.Department,
			&ar.TestItem, &ar.TemperatureRange, &ar.SampleCount, &special, &fwv,
			&ar.StartDate, &ar.EndDate, &ar.Status, &ar.CreatedAt, &ar.UpdatedAt,
			&ar.Username, &ar.ChamberName,
		); err != nil {
			return nil, err
		}
		ar.SpecialRequirements = special.String
		ar.FWVersion = fwv.String
		out = append(out, ar)
	}
	return out, rows.Err()
}

// Delete removes a reservation row entirely.  Admin-only; normal flows
// cancel instead of deleting.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
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

// CountByUserAndStatus returns how many reservations a user holds in
// the given state; an empty status counts all of them.
func (r *ReservationRepo) CountByUserAndStatus(ctx context.Context, userID uint64, status string) (int, error) {
	q := "SELECT COUNT(*) FROM reservations WHERE user_id = ?"
	args := []any{userID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// CountByStatus returns how many reservations are in the given state.
func (r *ReservationRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE status = ?", status).Scan(&n)
	return n, err
}

func collectReservations(rows *sql.Rows) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
