package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/middleware"
	"github.com/chamberlab/chamber-reservation/internal/repository"
	"github.com/chamberlab/chamber-reservation/internal/workflow"
)

// ReservationHandler exposes the user-facing reservation endpoints.
type ReservationHandler struct {
	Engine       *workflow.Engine
	Reservations *repository.ReservationRepo
}

func NewReservationHandler(engine *workflow.Engine, r *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{Engine: engine, Reservations: r}
}

type submitReq struct {
	ChamberID           uint64 `json:"chamber_id"`
	ProjectName         string `json:"project_name"`
	ProjectLeader       string `json:"project_leader"`
	Department          string `json:"department"`
	TestItem            string `json:"test_item"`
	TemperatureRange    string `json:"temperature_range"`
	SampleCount         uint32 `json:"sample_count"`
	SpecialRequirements string `json:"special_requirements"`
	FWVersion           string `json:"fw_version"`
	StartDate           string `json:"start_date"` // YYYY-MM-DD
	EndDate             string `json:"end_date"`   // YYYY-MM-DD
}

// Create submits a reservation request.  Admin submissions are
// approved immediately; user submissions start pending.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := parseDay(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be formatted YYYY-MM-DD"})
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be formatted YYYY-MM-DD"})
	}

	actor := workflow.Actor{UserID: middleware.UserID(c), Admin: middleware.IsAdmin(c)}
	res, werr := h.Engine.Submit(c.Request().Context(), actor, workflow.SubmitRequest{
		ChamberID:           req.ChamberID,
		ProjectName:         req.ProjectName,
		ProjectLeader:       req.ProjectLeader,
		Department:          req.Department,
		TestItem:            req.TestItem,
		TemperatureRange:    req.TemperatureRange,
		SampleCount:         req.SampleCount,
		SpecialRequirements: req.SpecialRequirements,
		FWVersion:           req.FWVersion,
		StartDate:           start,
		EndDate:             end,
	})
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(http.StatusCreated, newReservationView(res))
}

// ListMine returns the caller's reservations, newest first.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rs, err := h.Reservations.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, reservationViews(rs))
}

// Cancel cancels one of the caller's reservations.  Admins may cancel
// anyone's.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	actor := workflow.Actor{UserID: middleware.UserID(c), Admin: middleware.IsAdmin(c)}
	res, werr := h.Engine.TransitionStatus(c.Request().Context(), id, "cancelled", actor, "")
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(http.StatusOK, newReservationView(res))
}

// Availability reports whether a chamber is free over ?start=&end= and
// lists the conflicting reservations when it is not.
func (h *ReservationHandler) Availability(c echo.Context) error {
	chamberID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	start, err := parseDay(c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be formatted YYYY-MM-DD"})
	}
	end, err := parseDay(c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be formatted YYYY-MM-DD"})
	}

	free, conflicts, werr := h.Engine.IsAvailable(c.Request().Context(), chamberID, start, end)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available": free,
		"conflicts": reservationViews(conflicts),
	})
}

// Schedule returns the chamber's approved reservations for ?month=YYYY-MM,
// the data behind the calendar view.
func (h *ReservationHandler) Schedule(c echo.Context) error {
	chamberID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	rs, werr := h.Engine.ScheduleFor(c.Request().Context(), chamberID, c.QueryParam("month"))
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(http.StatusOK, reservationViews(rs))
}
