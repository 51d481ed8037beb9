package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/notifier"
	"github.com/chamberlab/chamber-reservation/internal/repository"
	"github.com/chamberlab/chamber-reservation/internal/workflow"
)

// ChamberHandler serves the chamber catalogue and the admin operations
// on it.
type ChamberHandler struct {
	Chambers     *repository.ChamberRepo
	Platforms    *repository.PlatformRepo
	Reservations *repository.ReservationRepo
	Dispatcher   notifier.Dispatcher
}

func NewChamberHandler(ch *repository.ChamberRepo, p *repository.PlatformRepo, r *repository.ReservationRepo, d notifier.Dispatcher) *ChamberHandler {
	return &ChamberHandler{Chambers: ch, Platforms: p, Reservations: r, Dispatcher: d}
}

type chamberView struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	TemperatureRange string    `json:"temperature_range"`
	Capacity         uint32    `json:"capacity"`
	Location         string    `json:"location"`
	TestItem         string    `json:"test_item,omitempty"`
	Project          string    `json:"project,omitempty"`
	Status           string    `json:"status"`
	ExpiringSoon     bool      `json:"expiring_soon"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// List returns every chamber with its derived status.  A chamber shows
// in_use while an approved reservation covers today, maintenance when
// flagged by an admin, available otherwise.
func (h *ChamberHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	chambers, err := h.Chambers.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	approved, err := h.Reservations.ApprovedByChambers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := time.Now()
	out := make([]chamberView, 0, len(chambers))
	for _, ch := range chambers {
		active := approved[ch.ID]
		out = append(out, chamberView{
			ID:               ch.ID,
			Name:             ch.Name,
			TemperatureRange: ch.TemperatureRange,
			Capacity:         ch.Capacity,
			Location:         ch.Location,
			TestItem:         ch.TestItem,
			Project:          ch.Project,
			Status:           workflow.DerivedChamberStatus(ch, active, now),
			ExpiringSoon:     workflow.ExpiringSoon(active, now, 3),
			UpdatedAt:        ch.UpdatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one chamber with its installed platforms.
func (h *ChamberHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ch, err := h.Chambers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chamber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	platforms, err := h.Platforms.ListByChamber(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"chamber": ch, "platforms": platforms})
}

type chamberReq struct {
	Name             string `json:"name"`
	TemperatureRange string `json:"temperature_range"`
	Capacity         uint32 `json:"capacity"`
	Location         string `json:"location"`
	TestItem         string `json:"test_item"`
	Project          string `json:"project"`
	Status           string `json:"status"`
}

// Create adds a chamber to the catalogue (admin).
func (h *ChamberHandler) Create(c echo.Context) error {
	var req chamberReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Status == "" {
		req.Status = model.ChamberAvailable
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch := model.Chamber{
		Name:             req.Name,
		TemperatureRange: req.TemperatureRange,
		Capacity:         req.Capacity,
		Location:         req.Location,
		TestItem:         req.TestItem,
		Project:          req.Project,
		Status:           req.Status,
	}
	if err := h.Chambers.Create(ctx, &ch); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, ch)
}

// Update edits a chamber's static attributes (admin).
func (h *ChamberHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req chamberReq
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch := model.Chamber{
		ID:               id,
		Name:             req.Name,
		TemperatureRange: req.TemperatureRange,
		Capacity:         req.Capacity,
		Location:         req.Location,
		TestItem:         req.TestItem,
		Project:          req.Project,
		Status:           req.Status,
	}
	if err := h.Chambers.Update(ctx, &ch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chamber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, ch)
}

// Delete removes a chamber (admin).
func (h *ChamberHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Chambers.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chamber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type reclaimReq struct {
	Reason string `json:"reason"`
}

// Reclaim force-frees a chamber: every approved reservation covering
// today is cancelled and each owner is notified.  Used when equipment
// is needed urgently or a test has wrapped up early.
func (h *ChamberHandler) Reclaim(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req reclaimReq
	_ = c.Bind(&req)

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch, err := h.Chambers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chamber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	today := time.Now().Format("2006-01-02")
	covering, err := h.Reservations.ApprovedCovering(ctx, id, today)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	cancelled := 0
	for _, r := range covering {
		if err := h.Reservations.UpdateStatus(ctx, r.ID, model.ReservationCancelled); err != nil {
			c.Logger().Errorf("reclaim: cancel reservation %d: %v", r.ID, err)
			continue
		}
		cancelled++
		if h.Dispatcher != nil {
			h.Dispatcher.Notify(ctx, notifier.Event{
				Kind:          notifier.EventChamberReclaimed,
				UserID:        r.UserID,
				ChamberID:     ch.ID,
				ChamberName:   ch.Name,
				ReservationID: r.ID,
				ProjectName:   r.ProjectName,
				Reason:        req.Reason,
			})
		}
	}

	if err := h.Chambers.UpdateTestItem(ctx, id, ""); err != nil {
		c.Logger().Errorf("reclaim: clear test item: %v", err)
	}
	if err := h.Chambers.UpdateStatus(ctx, id, model.ChamberAvailable); err != nil {
		c.Logger().Errorf("reclaim: reset status: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"chamber_id": id, "cancelled_reservations": cancelled})
}

// SetMaintenance toggles the stored maintenance flag (admin).  Putting
// a chamber back in service restores the derived status.
func (h *ChamberHandler) SetMaintenance(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Maintenance bool `json:"maintenance"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	status := model.ChamberAvailable
	if req.Maintenance {
		status = model.ChamberMaintenance
	}
	if err := h.Chambers.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chamber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"chamber_id": id, "status": status})
}

// ----- platforms -----

type platformReq struct {
	ClientUUID   string `json:"client_uuid"`
	MB           string `json:"mb"`
	CPU          string `json:"cpu"`
	OS           string `json:"os"`
	MaxLinkSpeed string `json:"max_link_speed"`
	Project      string `json:"project"`
	TestItem     string `json:"test_item"`
	Status       string `json:"status"`
}

func (req platformReq) toModel() model.Platform {
	return model.Platform{
		ClientUUID:   req.ClientUUID,
		MB:           req.MB,
		CPU:          req.CPU,
		OS:           req.OS,
		MaxLinkSpeed: req.MaxLinkSpeed,
		Project:      req.Project,
		TestItem:     req.TestItem,
		Status:       req.Status,
	}
}

// CreatePlatform registers a test platform inside a chamber (admin).
func (h *ChamberHandler) CreatePlatform(c echo.Context) error {
	chamberID, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req platformReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := req.toModel()
	p.ChamberID = chamberID

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Platforms.Create(ctx, &p); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePlatform edits a platform record (admin).
func (h *ChamberHandler) UpdatePlatform(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req platformReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	p := req.toModel()
	p.ID = id

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Platforms.Update(ctx, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "platform not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// DeletePlatform removes a platform record (admin).
func (h *ChamberHandler) DeletePlatform(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Platforms.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "platform not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
