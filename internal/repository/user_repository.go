package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/utils"
)

// UserRepo provides CRUD operations for accounts.  Registration writes
// rows in the `pending` state; admin approval flips them to `active`.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id, username, email, password_hash, role, status, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u     model.User
		email sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	if email.Valid {
		e := email.String
		u.Email = &e
	}
	return u, nil
}

// Create inserts a user and returns its ID.  The password is hashed
// with bcrypt at the given cost.  A nil or blank email is stored as
// NULL so the unique constraint only applies to accounts that provided
// one.
func (r *UserRepo) Create(ctx context.Context, username string, email *string, password, role, status string, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var emailVal any
	if email != nil && strings.TrimSpace(*email) != "" {
		emailVal = strings.ToLower(strings.TrimSpace(*email))
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role, status) VALUES (?,?,?,?,?)",
		username, emailVal, hash, role, status)
	if err != nil {
		// 1062 is MySQL's duplicate-entry error code.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by login name.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1",
		strings.TrimSpace(username))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByIDTx is GetByID scoped to an existing transaction.  The cascade
// delete uses it to re-check the target's role inside the same unit.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// List returns all users ordered by creation time descending.  When
// status is non-empty only matching accounts are returned.
func (r *UserRepo) List(ctx context.Context, status string) ([]model.User, error) {
	q := "SELECT " + userCols + " FROM users"
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListAdminIDs returns the ids of all admin accounts.  The dispatcher
// fans pending-approval notifications out to each of them.
func (r *UserRepo) ListAdminIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id FROM users WHERE role=?", model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateStatus sets the approval state of an account.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=?, updated_at=NOW() WHERE id=?", status, id)
	return err
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", hash, id)
	return err
}

// DeleteTx removes a user row within an existing transaction.  It is
// only called by the workflow engine's cascade after the user's active
// reservations have been cancelled in the same transaction.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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

// CountByStatus returns how many accounts are in the given state.
func (r *UserRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE status=?", status).Scan(&n)
	return n, err
}

// EnsureAdmin creates the seeded admin account when no admin exists.
// The seeded account is active immediately so the portal is never
// locked out.  Returns true when a row was created.
func (r *UserRepo) EnsureAdmin(ctx context.Context, username, password string, cost int) (bool, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role=?", model.RoleAdmin).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err := r.Create(ctx, username, nil, password, model.RoleAdmin, model.UserStatusActive, cost)
	if err != nil {
		return false, err
	}
	return true, nil
}
