package workflow

import (
	"context"
	"time"

	"github.com/chamberlab/chamber-reservation/internal/model"
)

// Store is the persistence collaborator the engine runs against.  The
// production implementation is repository.Gateway; tests inject an
// in-memory fake.  Concurrency safety of the conflict check is the
// Store's contract: Tx.Overlapping must lock the rows it returns so
// that two overlapping submissions for the same chamber serialize and
// the second observes the first one's write.
type Store interface {
	// InTx runs fn inside one transaction.  A non-nil error from fn
	// rolls the whole unit back and is returned unchanged.
	InTx(ctx context.Context, fn func(Tx) error) error

	ReservationByID(ctx context.Context, id uint64) (model.Reservation, error)
	UserByID(ctx context.Context, id uint64) (model.User, error)
	ChamberByID(ctx context.Context, id uint64) (model.Chamber, error)

	// OverlappingReservations is the read-only availability projection.
	// It must apply the identical closed-interval predicate as
	// Tx.Overlapping.
	OverlappingReservations(ctx context.Context, chamberID uint64, start, end time.Time) ([]model.Reservation, error)

	// ApprovedInMonth returns approved reservations on a chamber whose
	// start date falls in the given YYYY-MM month.
	ApprovedInMonth(ctx context.Context, chamberID uint64, month string) ([]model.Reservation, error)
}

// Tx is the transactional view of the Store.
type Tx interface {
	// Overlapping returns non-cancelled reservations on the chamber
	// intersecting the closed interval [start, end], with their rows
	// locked until the transaction ends.
	Overlapping(ctx context.Context, chamberID uint64, start, end time.Time) ([]model.Reservation, error)
	CreateReservation(ctx context.Context, res *model.Reservation) error
	UpdateReservationStatus(ctx context.Context, id uint64, status string) error
	ActiveReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	UserByID(ctx context.Context, id uint64) (model.User, error)
	// DeleteUser removes the user row and its refresh tokens.
	DeleteUser(ctx context.Context, id uint64) error
}
