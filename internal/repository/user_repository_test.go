package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// bcrypt's minimum cost keeps the hashing in these tests fast.
const testCost = 4

func TestCreateMapsDuplicateKeyToSentinel(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'alice' for key 'users.username'"))

	_, err := repo.Create(context.Background(), "alice", nil, "secret", model.RoleUser, model.UserStatusPending, testCost)
	assert.True(t, errors.Is(err, ErrUsernameExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStoresBlankEmailAsNull(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("alice", nil, sqlmock.AnyArg(), model.RoleUser, model.UserStatusPending).
		WillReturnResult(sqlmock.NewResult(5, 1))

	blank := "   "
	id, err := repo.Create(context.Background(), "alice", &blank, "secret", model.RoleUser, model.UserStatusPending, testCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsernameScansNullEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "status", "created_at", "updated_at"}).
		AddRow(1, "alice", nil, "$2a$04$hash", model.RoleUser, model.UserStatusActive, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE username=?")).
		WithArgs("alice").
		WillReturnRows(rows)

	u, err := repo.GetByUsername(context.Background(), " alice ")
	require.NoError(t, err)
	assert.Nil(t, u.Email)
	assert.Equal(t, model.UserStatusActive, u.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminSkipsWhenAdminExists(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role=?")).
		WithArgs(model.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	created, err := repo.EnsureAdmin(context.Background(), "admin", "admin123", testCost)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminSeedsActiveAccount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role=?")).
		WithArgs(model.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("admin", nil, sqlmock.AnyArg(), model.RoleAdmin, model.UserStatusActive).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := repo.EnsureAdmin(context.Background(), "admin", "admin123", testCost)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
