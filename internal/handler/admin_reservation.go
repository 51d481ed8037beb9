package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/middleware"
	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/repository"
	"github.com/chamberlab/chamber-reservation/internal/workflow"
)

// AdminReservationHandler exposes the review queue to admins.
type AdminReservationHandler struct {
	Engine       *workflow.Engine
	Reservations *repository.ReservationRepo
}

func NewAdminReservationHandler(engine *workflow.Engine, r *repository.ReservationRepo) *AdminReservationHandler {
	return &AdminReservationHandler{Engine: engine, Reservations: r}
}

type adminReservationView struct {
	reservationView
	Username    string `json:"username"`
	ChamberName string `json:"chamber_name"`
}

// List returns all reservations joined with submitter and chamber
// names, optionally filtered by ?status=.
func (h *AdminReservationHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", model.ReservationPending, model.ReservationApproved, model.ReservationRejected, model.ReservationCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, err := h.Reservations.ListAll(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminReservationView, 0, len(rows))
	for _, r := range rows {
		out = append(out, adminReservationView{
			reservationView: newReservationView(r.Reservation),
			Username:        r.Username,
			ChamberName:     r.ChamberName,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type statusReq struct {
	Status string `json:"status"` // approved | rejected | cancelled
	Reason string `json:"reason"`
}

// UpdateStatus records an approval decision.  The transition rules
// (terminal states, idempotent re-approve) live in the engine.
func (h *AdminReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	actor := workflow.Actor{UserID: middleware.UserID(c), Admin: true}
	res, werr := h.Engine.TransitionStatus(c.Request().Context(), id, req.Status, actor, req.Reason)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(http.StatusOK, newReservationView(res))
}

type batchStatusReq struct {
	IDs    []uint64 `json:"ids"`
	Status string   `json:"status"` // approved | rejected
	Reason string   `json:"reason"`
}

// BatchUpdateStatus applies one decision to several reservations at
// once.  Each transition runs independently; the response reports which
// ids succeeded and which were refused, so one terminal-state row does
// not abort the rest of the batch.
func (h *AdminReservationHandler) BatchUpdateStatus(c echo.Context) error {
	var req batchStatusReq
	if err := c.Bind(&req); err != nil || len(req.IDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ids required"})
	}
	if req.Status != model.ReservationApproved && req.Status != model.ReservationRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be approved or rejected"})
	}

	actor := workflow.Actor{UserID: middleware.UserID(c), Admin: true}
	updated := make([]uint64, 0, len(req.IDs))
	failed := make([]echo.Map, 0)
	for _, id := range req.IDs {
		if _, err := h.Engine.TransitionStatus(c.Request().Context(), id, req.Status, actor, req.Reason); err != nil {
			failed = append(failed, echo.Map{"id": id, "error": err.Error()})
			continue
		}
		updated = append(updated, id)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  req.Status,
		"updated": updated,
		"failed":  failed,
	})
}

// Delete removes a reservation row outright.  Used for cleaning up
// stale history; cancelling is the normal path.
func (h *AdminReservationHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Reservations.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
