package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

var reservationRowCols = []string{
	"id", "user_id", "chamber_id", "project_name", "project_leader", "department",
	"test_item", "temperature_range", "sample_count", "special_requirements", "fw_version",
	"start_date", "end_date", "status", "created_at", "updated_at",
}

func reservationRow(id uint64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(reservationRowCols).AddRow(
		id, 1, 10, "thermal soak", "alice", "validation",
		"board rev B", "-40~125C", 4, nil, nil,
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		status, now, now,
	)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestOverlappingTxQueryShape(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	// end date binds before start date: start_date <= ? AND end_date >= ?
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(uint64(10), "2025-06-20", "2025-06-15").
		WillReturnRows(reservationRow(7, model.ReservationApproved))

	tx, err := db.Begin()
	require.NoError(t, err)
	got, err := repo.OverlappingTx(context.Background(), tx, 10, "2025-06-15", "2025-06-20")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(7), got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverlappingExcludesNothingWhenEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("status != 'cancelled'")).
		WithArgs(uint64(10), "2025-06-20", "2025-06-16").
		WillReturnRows(sqlmock.NewRows(reservationRowCols))

	got, err := repo.Overlapping(context.Background(), 10, "2025-06-16", "2025-06-20")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxReadsGeneratedRowBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
		WithArgs(uint64(42)).
		WillReturnRows(reservationRow(42, model.ReservationPending))

	tx, err := db.Begin()
	require.NoError(t, err)
	res := model.Reservation{
		UserID:      1,
		ChamberID:   10,
		ProjectName: "thermal soak",
		Status:      model.ReservationPending,
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, &res))
	assert.Equal(t, uint64(42), res.ID)
	assert.False(t, res.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?, updated_at = NOW() WHERE id = ?")).
		WithArgs(model.ReservationCancelled, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), 7, model.ReservationCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByChamberMonthFiltersApproved(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("DATE_FORMAT(start_date, '%Y-%m') = ?")).
		WithArgs(uint64(10), "2025-06").
		WillReturnRows(reservationRow(7, model.ReservationApproved))

	got, err := repo.ListByChamberMonth(context.Background(), 10, "2025-06")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ReservationApproved, got[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReportsMissingRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = ?")).
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveByUserTxLocksPendingAndApproved(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`status IN \('pending','approved'\)[\s\S]*FOR UPDATE`).
		WithArgs(uint64(1)).
		WillReturnRows(reservationRow(7, model.ReservationPending))

	tx, err := db.Begin()
	require.NoError(t, err)
	got, err := repo.ActiveByUserTx(context.Background(), tx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
