// Package handler contains the Echo HTTP handlers for the chamber
// reservation portal.  Handlers stay thin: they bind and validate
// transport-level input, delegate to the workflow engine or the
// repositories, and translate engine errors onto HTTP status codes.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/workflow"
)

const dbTimeout = 5 * time.Second

// reqCtx bounds every database call issued on behalf of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// workflowError maps the engine's typed errors onto HTTP responses.
// Conflicts include the blocking reservations so clients can offer
// alternative dates.
func workflowError(c echo.Context, err error) error {
	var (
		ve *workflow.ValidationError
		ce *workflow.ConflictError
		ne *workflow.NotFoundError
		ae *workflow.AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "requested dates conflict with existing reservations",
			"conflicts": reservationViews(ce.Conflicts),
		})
	case errors.As(err, &ne):
		return c.JSON(http.StatusNotFound, echo.Map{"error": ne.Error()})
	case errors.As(err, &ae):
		return c.JSON(http.StatusForbidden, echo.Map{"error": ae.Error()})
	default:
		c.Logger().Errorf("workflow: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// reservationView is the wire shape of a reservation.  Dates render as
// YYYY-MM-DD to match what clients submit.
type reservationView struct {
	ID                  uint64    `json:"id"`
	UserID              uint64    `json:"user_id"`
	ChamberID           uint64    `json:"chamber_id"`
	ProjectName         string    `json:"project_name"`
	ProjectLeader       string    `json:"project_leader"`
	Department          string    `json:"department"`
	TestItem            string    `json:"test_item"`
	TemperatureRange    string    `json:"temperature_range,omitempty"`
	SampleCount         uint32    `json:"sample_count"`
	SpecialRequirements string    `json:"special_requirements,omitempty"`
	FWVersion           string    `json:"fw_version,omitempty"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func newReservationView(r model.Reservation) reservationView {
	return reservationView{
		ID:                  r.ID,
		UserID:              r.UserID,
		ChamberID:           r.ChamberID,
		ProjectName:         r.ProjectName,
		ProjectLeader:       r.ProjectLeader,
		Department:          r.Department,
		TestItem:            r.TestItem,
		TemperatureRange:    r.TemperatureRange,
		SampleCount:         r.SampleCount,
		SpecialRequirements: r.SpecialRequirements,
		FWVersion:           r.FWVersion,
		StartDate:           r.StartDate.Format("2006-01-02"),
		EndDate:             r.EndDate.Format("2006-01-02"),
		Status:              r.Status,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func reservationViews(rs []model.Reservation) []reservationView {
	out := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, newReservationView(r))
	}
	return out
}

// parseDay parses a YYYY-MM-DD query or body value in server-local
// time, matching how reservation dates are interpreted everywhere.
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
