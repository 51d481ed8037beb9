package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/workflow"
)

const dayFormat = "2006-01-02"

// Gateway bundles the repositories into the persistence surface the
// workflow engine runs against.  It owns transaction demarcation:
// callers get a workflow.Tx view scoped to one BEGIN/COMMIT.
type Gateway struct {
	DB           *sql.DB
	Users        *UserRepo
	Reservations *ReservationRepo
	Chambers     *ChamberRepo
	Tokens       *TokenRepo
}

// NewGateway wires a Gateway over one database handle.
func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{
		DB:           db,
		Users:        NewUserRepo(db),
		Reservations: NewReservationRepo(db),
		Chambers:     NewChamberRepo(db),
		Tokens:       NewTokenRepo(db),
	}
}

// InTx opens a transaction, hands fn the transactional view and
// commits when fn returns nil.  Any error from fn or from commit rolls
// the unit back and is returned unchanged.
func (g *Gateway) InTx(ctx context.Context, fn func(workflow.Tx) error) error {
	tx, err := g.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&gatewayTx{g: g, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (g *Gateway) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	return g.Reservations.GetByID(ctx, id)
}

func (g *Gateway) UserByID(ctx context.Context, id uint64) (model.User, error) {
	return g.Users.GetByID(ctx, id)
}

func (g *Gateway) ChamberByID(ctx context.Context, id uint64) (model.Chamber, error) {
	return g.Chambers.GetByID(ctx, id)
}

func (g *Gateway) OverlappingReservations(ctx context.Context, chamberID uint64, start, end time.Time) ([]model.Reservation, error) {
	return g.Reservations.Overlapping(ctx, chamberID, start.Format(dayFormat), end.Format(dayFormat))
}

func (g *Gateway) ApprovedInMonth(ctx context.Context, chamberID uint64, month string) ([]model.Reservation, error) {
	return g.Reservations.ListByChamberMonth(ctx, chamberID, month)
}

// gatewayTx adapts one *sql.Tx to the workflow.Tx contract.
type gatewayTx struct {
	g  *Gateway
	tx *sql.Tx
}

func (t *gatewayTx) Overlapping(ctx context.Context, chamberID uint64, start, end time.Time) ([]model.Reservation, error) {
	return t.g.Reservations.OverlappingTx(ctx, t.tx, chamberID, start.Format(dayFormat), end.Format(dayFormat))
}

func (t *gatewayTx) CreateReservation(ctx context.Context, res *model.Reservation) error {
	return t.g.Reservations.CreateTx(ctx, t.tx, res)
}

func (t *gatewayTx) UpdateReservationStatus(ctx context.Context, id uint64, status string) error {
	return t.g.Reservations.UpdateStatusTx(ctx, t.tx, id, status)
}

func (t *gatewayTx) ActiveReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return t.g.Reservations.ActiveByUserTx(ctx, t.tx, userID)
}

func (t *gatewayTx) UserByID(ctx context.Context, id uint64) (model.User, error) {
	return t.g.Users.GetByIDTx(ctx, t.tx, id)
}

func (t *gatewayTx) DeleteUser(ctx context.Context, id uint64) error {
	if err := t.g.Tokens.DeleteForUserTx(ctx, t.tx, id); err != nil {
		return err
	}
	return t.g.Users.DeleteTx(ctx, t.tx, id)
}
