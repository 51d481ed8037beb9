package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/middleware"
	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/repository"
)

// AnnouncementHandler serves site-wide notices.
type AnnouncementHandler struct {
	Announcements *repository.AnnouncementRepo
}

func NewAnnouncementHandler(a *repository.AnnouncementRepo) *AnnouncementHandler {
	return &AnnouncementHandler{Announcements: a}
}

// List returns announcements.  Users see only active ones; admins see
// everything.
func (h *AnnouncementHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Announcements.List(ctx, !middleware.IsAdmin(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, items)
}

type announcementReq struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	IsActive *bool  `json:"is_active"`
}

// Create publishes an announcement (admin).
func (h *AnnouncementHandler) Create(c echo.Context) error {
	var req announcementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and content required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a := model.Announcement{Title: req.Title, Content: req.Content, Type: req.Type, IsActive: true}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if err := h.Announcements.Create(ctx, &a); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, a)
}

// Update edits an announcement (admin).
func (h *AnnouncementHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req announcementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a := model.Announcement{ID: id, Title: req.Title, Content: req.Content, Type: req.Type, IsActive: true}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if err := h.Announcements.Update(ctx, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "announcement not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, a)
}

// Delete removes an announcement (admin).
func (h *AnnouncementHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Announcements.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "announcement not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
