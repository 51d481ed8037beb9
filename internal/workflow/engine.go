package workflow

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/notifier"
)

// Actor identifies who is performing a workflow operation.
type Actor struct {
	UserID uint64
	Admin  bool
}

// SubmitRequest carries everything a reservation submission needs.
// Dates are day granular; time-of-day on StartDate/EndDate is ignored.
type SubmitRequest struct {
	ChamberID           uint64
	ProjectName         string
	ProjectLeader       string
	Department          string
	TestItem            string
	TemperatureRange    string
	SampleCount         uint32
	SpecialRequirements string
	FWVersion           string
	StartDate           time.Time
	EndDate             time.Time
}

// Engine is the reservation workflow engine.  It validates requests,
// detects date-overlap conflicts, assigns initial status and records
// admin-driven transitions.  All persistence goes through the injected
// Store; all side effects through the Dispatcher, strictly after the
// primary state change has committed.
type Engine struct {
	store      Store
	dispatcher notifier.Dispatcher
	now        func() time.Time
}

// NewEngine returns an Engine.  dispatcher may be nil, in which case
// side effects are dropped (used by read-only tooling).
func NewEngine(store Store, dispatcher notifier.Dispatcher) *Engine {
	return &Engine{store: store, dispatcher: dispatcher, now: time.Now}
}

const dayFormat = "2006-01-02"

// dateOnly truncates a timestamp to midnight in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// overlaps applies the closed-interval predicate shared by submit and
// the availability projections: [aStart,aEnd] and [bStart,bEnd]
// intersect when aStart <= bEnd AND aEnd >= bStart.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Submit validates a booking request, checks for conflicts inside one
// transaction and persists the reservation.  Admin submitters get
// status approved immediately; everyone else starts pending.  The
// submitter is notified after commit, and admins are alerted when the
// new reservation awaits review.
func (e *Engine) Submit(ctx context.Context, actor Actor, req SubmitRequest) (model.Reservation, error) {
	if err := validateSubmit(req, dateOnly(e.now())); err != nil {
		return model.Reservation{}, err
	}

	user, err := e.store.UserByID(ctx, actor.UserID)
	if err != nil {
		return model.Reservation{}, notFoundOr(err, "user", actor.UserID)
	}
	chamber, err := e.store.ChamberByID(ctx, req.ChamberID)
	if err != nil {
		return model.Reservation{}, notFoundOr(err, "chamber", req.ChamberID)
	}

	status := model.ReservationPending
	if actor.Admin {
		status = model.ReservationApproved
	}
	res := model.Reservation{
		UserID:              actor.UserID,
		ChamberID:           req.ChamberID,
		ProjectName:         req.ProjectName,
		ProjectLeader:       req.ProjectLeader,
		Department:          req.Department,
		TestItem:            req.TestItem,
		TemperatureRange:    req.TemperatureRange,
		SampleCount:         req.SampleCount,
		SpecialRequirements: req.SpecialRequirements,
		FWVersion:           req.FWVersion,
		StartDate:           dateOnly(req.StartDate),
		EndDate:             dateOnly(req.EndDate),
		Status:              status,
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		conflicts, err := tx.Overlapping(ctx, req.ChamberID, res.StartDate, res.EndDate)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}
		return tx.CreateReservation(ctx, &res)
	})
	if err != nil {
		return model.Reservation{}, wrapStore(err)
	}

	e.notify(ctx, notifier.Event{
		Kind:          notifier.EventReservationSubmitted,
		UserID:        user.ID,
		Username:      user.Username,
		ChamberID:     chamber.ID,
		ChamberName:   chamber.Name,
		ReservationID: res.ID,
		ProjectName:   res.ProjectName,
		StartDate:     res.StartDate.Format(dayFormat),
		EndDate:       res.EndDate.Format(dayFormat),
		Status:        res.Status,
	})
	return res, nil
}

func validateSubmit(req SubmitRequest, today time.Time) error {
	required := []struct{ field, value string }{
		{"project_name", req.ProjectName},
		{"project_leader", req.ProjectLeader},
		{"department", req.Department},
		{"test_item", req.TestItem},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "required"}
		}
	}
	if req.ChamberID == 0 {
		return &ValidationError{Field: "chamber_id", Reason: "required"}
	}
	if req.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "required"}
	}
	if req.EndDate.IsZero() {
		return &ValidationError{Field: "end_date", Reason: "required"}
	}
	start, end := dateOnly(req.StartDate), dateOnly(req.EndDate)
	if end.Before(start) {
		return &ValidationError{Field: "end_date", Reason: "must not be before start date"}
	}
	if start.Before(today) {
		return &ValidationError{Field: "start_date", Reason: "must not be in the past"}
	}
	return nil
}

// TransitionStatus records an admin decision or an owner cancellation.
// approved and rejected are admin-only; the owning non-admin user may
// only cancel their own reservation.  Transitions out of a terminal
// state (rejected, cancelled) are refused; re-approving an approved
// reservation is accepted as an idempotent re-affirmation.  Cancelling
// never re-checks conflicts: freed capacity needs no validation.
func (e *Engine) TransitionStatus(ctx context.Context, reservationID uint64, newStatus string, actor Actor, reason string) (model.Reservation, error) {
	switch newStatus {
	case model.ReservationApproved, model.ReservationRejected, model.ReservationCancelled:
	default:
		return model.Reservation{}, &ValidationError{Field: "status", Reason: "must be approved, rejected or cancelled"}
	}

	res, err := e.store.ReservationByID(ctx, reservationID)
	if err != nil {
		return model.Reservation{}, notFoundOr(err, "reservation", reservationID)
	}

	if newStatus == model.ReservationCancelled {
		if !actor.Admin && actor.UserID != res.UserID {
			return model.Reservation{}, &AuthorizationError{Reason: "only the owner or an admin may cancel a reservation"}
		}
	} else if !actor.Admin {
		return model.Reservation{}, &AuthorizationError{Reason: "only admins may approve or reject reservations"}
	}

	if model.IsTerminalReservationStatus(res.Status) {
		return model.Reservation{}, &ValidationError{Field: "status", Reason: "reservation is already " + res.Status}
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		return tx.UpdateReservationStatus(ctx, reservationID, newStatus)
	})
	if err != nil {
		return model.Reservation{}, wrapStore(err)
	}
	prev := res.Status
	res.Status = newStatus
	res.UpdatedAt = e.now()

	chamber, cerr := e.store.ChamberByID(ctx, res.ChamberID)
	if cerr != nil {
		chamber = model.Chamber{ID: res.ChamberID}
	}
	ev := notifier.Event{
		UserID:        res.UserID,
		ChamberID:     res.ChamberID,
		ChamberName:   chamber.Name,
		ReservationID: res.ID,
		ProjectName:   res.ProjectName,
		StartDate:     res.StartDate.Format(dayFormat),
		EndDate:       res.EndDate.Format(dayFormat),
		Status:        newStatus,
		Reason:        reason,
	}
	switch newStatus {
	case model.ReservationApproved:
		ev.Kind = notifier.EventReservationApproved
	case model.ReservationRejected:
		ev.Kind = notifier.EventReservationRejected
	case model.ReservationCancelled:
		ev.Kind = notifier.EventReservationCancelled
	}
	e.notify(ctx, ev)

	// An owner cancelling an active reservation frees capacity the
	// admins were tracking; let them know.
	if newStatus == model.ReservationCancelled && !actor.Admin && prev != model.ReservationCancelled {
		if u, uerr := e.store.UserByID(ctx, res.UserID); uerr == nil {
			e.notify(ctx, notifier.Event{
				Kind:       notifier.EventBroadcast,
				TargetRole: model.RoleAdmin,
				Status:     "warning",
				Title:      "Reservation cancelled by user",
				Message:    "User " + u.Username + " cancelled their reservation of chamber " + chamber.Name + " for project \"" + res.ProjectName + "\".",
			})
		}
	}
	return res, nil
}

// CancelByOwner cancels a reservation on behalf of its owning user.
func (e *Engine) CancelByOwner(ctx context.Context, reservationID, userID uint64) (model.Reservation, error) {
	return e.TransitionStatus(ctx, reservationID, model.ReservationCancelled, Actor{UserID: userID}, "")
}

// IsAvailable reports whether [start, end] is free on the chamber and
// returns the conflicting reservations when it is not.  It uses the
// identical interval semantics as Submit so a slot reported available
// is never one Submit would reject.
func (e *Engine) IsAvailable(ctx context.Context, chamberID uint64, start, end time.Time) (bool, []model.Reservation, error) {
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return false, nil, &ValidationError{Field: "end_date", Reason: "must not be before start date"}
	}
	if _, err := e.store.ChamberByID(ctx, chamberID); err != nil {
		return false, nil, notFoundOr(err, "chamber", chamberID)
	}
	conflicts, err := e.store.OverlappingReservations(ctx, chamberID, start, end)
	if err != nil {
		return false, nil, wrapStore(err)
	}
	return len(conflicts) == 0, conflicts, nil
}

// ScheduleFor returns the chamber's approved reservations for a
// YYYY-MM month, ordered by start date.
func (e *Engine) ScheduleFor(ctx context.Context, chamberID uint64, month string) ([]model.Reservation, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, &ValidationError{Field: "month", Reason: "must be formatted YYYY-MM"}
	}
	if _, err := e.store.ChamberByID(ctx, chamberID); err != nil {
		return nil, notFoundOr(err, "chamber", chamberID)
	}
	out, err := e.store.ApprovedInMonth(ctx, chamberID, month)
	if err != nil {
		return nil, wrapStore(err)
	}
	return out, nil
}

// CascadeOnUserDeletion cancels all of the user's pending and approved
// reservations and deletes the user row as one atomic unit.  Admin
// accounts are rejected at the boundary, before the unit starts, and
// again inside the transaction in case the role changed in between.
// Each cancellation triggers a best-effort notification after commit;
// notification failure never rolls the unit back.
func (e *Engine) CascadeOnUserDeletion(ctx context.Context, userID uint64) (int, error) {
	user, err := e.store.UserByID(ctx, userID)
	if err != nil {
		return 0, notFoundOr(err, "user", userID)
	}
	if user.Role == model.RoleAdmin {
		return 0, &AuthorizationError{Reason: "admin accounts cannot be deleted"}
	}

	var cancelled []model.Reservation
	err = e.store.InTx(ctx, func(tx Tx) error {
		u, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.Role == model.RoleAdmin {
			return &AuthorizationError{Reason: "admin accounts cannot be deleted"}
		}
		active, err := tx.ActiveReservationsByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, r := range active {
			if err := tx.UpdateReservationStatus(ctx, r.ID, model.ReservationCancelled); err != nil {
				return err
			}
		}
		if err := tx.DeleteUser(ctx, userID); err != nil {
			return err
		}
		cancelled = active
		return nil
	})
	if err != nil {
		return 0, wrapStore(err)
	}

	for _, r := range cancelled {
		chamberName := ""
		if c, cerr := e.store.ChamberByID(ctx, r.ChamberID); cerr == nil {
			chamberName = c.Name
		}
		e.notify(ctx, notifier.Event{
			Kind:          notifier.EventReservationCancelled,
			UserID:        user.ID,
			Username:      user.Username,
			ChamberID:     r.ChamberID,
			ChamberName:   chamberName,
			ReservationID: r.ID,
			ProjectName:   r.ProjectName,
			StartDate:     r.StartDate.Format(dayFormat),
			EndDate:       r.EndDate.Format(dayFormat),
			Status:        model.ReservationCancelled,
			Reason:        "account removed by administrator",
		})
	}
	return len(cancelled), nil
}

func (e *Engine) notify(ctx context.Context, ev notifier.Event) {
	if e.dispatcher == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now().UTC()
	}
	e.dispatcher.Notify(ctx, ev)
}

// notFoundOr maps sql.ErrNoRows onto a NotFoundError and wraps
// anything else as a persistence failure.
func notFoundOr(err error, entity string, id uint64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return wrapStore(err)
}
