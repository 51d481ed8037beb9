package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/middleware"
	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/notifier"
	"github.com/chamberlab/chamber-reservation/internal/repository"
)

// QueueHandler manages deferred booking requests: users file them when
// no slot fits, admins work through them by urgency.
type QueueHandler struct {
	Queue      *repository.QueueRepo
	Dispatcher notifier.Dispatcher
}

func NewQueueHandler(q *repository.QueueRepo, d notifier.Dispatcher) *QueueHandler {
	return &QueueHandler{Queue: q, Dispatcher: d}
}

type queueSubmitReq struct {
	ChamberID        *uint64 `json:"chamber_id"`
	ApplicantName    string  `json:"applicant_name"`
	ProjectName      string  `json:"project_name"`
	TestItem         string  `json:"test_item"`
	FWVersion        string  `json:"fw_version"`
	TemperatureRange string  `json:"temperature_range"`
	PlateCount       uint32  `json:"plate_count"`
	UrgencyLevel     string  `json:"urgency_level"`
	Description      string  `json:"description"`
	QueueDate        string  `json:"queue_date"` // YYYY-MM-DD expected start
}

// Create files a queue request and alerts the admins.
func (h *QueueHandler) Create(c echo.Context) error {
	var req queueSubmitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ApplicantName = strings.TrimSpace(req.ApplicantName)
	req.ProjectName = strings.TrimSpace(req.ProjectName)
	if req.ApplicantName == "" || req.ProjectName == "" || req.TestItem == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "applicant_name, project_name and test_item required"})
	}
	switch req.UrgencyLevel {
	case model.UrgencyUrgent, model.UrgencyHigh, model.UrgencyNormal, model.UrgencyLow:
	case "":
		req.UrgencyLevel = model.UrgencyNormal
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown urgency level"})
	}
	queueDate, err := parseDay(req.QueueDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "queue_date must be formatted YYYY-MM-DD"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	qr := model.QueueRequest{
		UserID:           middleware.UserID(c),
		ChamberID:        req.ChamberID,
		ApplicantName:    req.ApplicantName,
		ProjectName:      req.ProjectName,
		TestItem:         req.TestItem,
		FWVersion:        req.FWVersion,
		TemperatureRange: req.TemperatureRange,
		PlateCount:       req.PlateCount,
		UrgencyLevel:     req.UrgencyLevel,
		Description:      req.Description,
		QueueDate:        queueDate,
	}
	if err := h.Queue.Create(ctx, &qr); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}

	if h.Dispatcher != nil {
		h.Dispatcher.Notify(ctx, notifier.Event{
			Kind:           notifier.EventQueueSubmitted,
			UserID:         qr.UserID,
			Username:       req.ApplicantName,
			ProjectName:    qr.ProjectName,
			QueueRequestID: qr.ID,
		})
	}
	return c.JSON(http.StatusCreated, qr)
}

// List returns the queue ordered by urgency then submission time.
func (h *QueueHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Queue.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	// Non-admin callers only see their own requests.
	if !middleware.IsAdmin(c) {
		uid := middleware.UserID(c)
		mine := items[:0]
		for _, it := range items {
			if it.UserID == uid {
				mine = append(mine, it)
			}
		}
		items = mine
	}
	return c.JSON(http.StatusOK, items)
}

type queueProcessReq struct {
	Status    string `json:"status"` // approved | rejected
	QueueDate string `json:"queue_date,omitempty"`
	Reason    string `json:"reason"`
}

// Process records an admin decision on a queue request and notifies
// the applicant.
func (h *QueueHandler) Process(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req queueProcessReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != "approved" && req.Status != "rejected" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be approved or rejected"})
	}
	if req.QueueDate != "" {
		if _, err := parseDay(req.QueueDate); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "queue_date must be formatted YYYY-MM-DD"})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	item, err := h.Queue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "queue request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if item.Status != "pending" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "queue request already " + item.Status})
	}

	if err := h.Queue.Process(ctx, id, req.Status, middleware.UserID(c), req.QueueDate); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if h.Dispatcher != nil {
		h.Dispatcher.Notify(ctx, notifier.Event{
			Kind:           notifier.EventQueueProcessed,
			UserID:         item.UserID,
			Username:       item.Username,
			ProjectName:    item.ProjectName,
			QueueRequestID: id,
			Status:         req.Status,
			Reason:         req.Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// Delete removes a queue request.  Admins can delete any; users only
// their own pending requests.
func (h *QueueHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	item, err := h.Queue.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "queue request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !middleware.IsAdmin(c) {
		if item.UserID != middleware.UserID(c) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		if item.Status != "pending" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "only pending requests can be withdrawn"})
		}
	}

	if err := h.Queue.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "queue request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
