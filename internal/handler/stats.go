package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/repository"
)

// StatsHandler feeds the admin dashboard counters.
type StatsHandler struct {
	Users        *repository.UserRepo
	Chambers     *repository.ChamberRepo
	Reservations *repository.ReservationRepo
}

func NewStatsHandler(u *repository.UserRepo, ch *repository.ChamberRepo, r *repository.ReservationRepo) *StatsHandler {
	return &StatsHandler{Users: u, Chambers: ch, Reservations: r}
}

// Dashboard returns headline counts: pending work items first, then
// totals.
func (h *StatsHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	pendingUsers, err := h.Users.CountByStatus(ctx, model.UserStatusPending)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	pendingReservations, err := h.Reservations.CountByStatus(ctx, model.ReservationPending)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	approvedReservations, err := h.Reservations.CountByStatus(ctx, model.ReservationApproved)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	activeUsers, err := h.Users.CountByStatus(ctx, model.UserStatusActive)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	chambers, err := h.Chambers.Count(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"pending_users":         pendingUsers,
		"pending_reservations":  pendingReservations,
		"approved_reservations": approvedReservations,
		"active_users":          activeUsers,
		"chambers":              chambers,
	})
}
