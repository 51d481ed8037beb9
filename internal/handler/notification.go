package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chamberlab/chamber-reservation/internal/middleware"
	"github.com/chamberlab/chamber-reservation/internal/model"
	"github.com/chamberlab/chamber-reservation/internal/notifier"
	"github.com/chamberlab/chamber-reservation/internal/repository"
)

// NotificationHandler serves the in-app notification feed.  The list
// endpoint sits behind the Redis response cache because web clients
// poll it every few seconds.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
	Dispatcher    notifier.Dispatcher
}

func NewNotificationHandler(n *repository.NotificationRepo, d notifier.Dispatcher) *NotificationHandler {
	return &NotificationHandler{Notifications: n, Dispatcher: d}
}

// List returns the caller's recent notifications plus the unread
// count.  ?limit= caps the page size (default 10, max 50).
func (h *NotificationHandler) List(c echo.Context) error {
	limit := 10
	if s := c.QueryParam("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 50 {
		limit = 50
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid := middleware.UserID(c)
	items, err := h.Notifications.ListByUser(ctx, uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	unread, err := h.Notifications.CountUnread(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"notifications": items,
		"unread":        unread,
	})
}

// MarkRead flags one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, middleware.UserID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead flags every notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Notifications.MarkAllRead(ctx, middleware.UserID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type broadcastReq struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`        // info | success | warning | danger
	TargetRole string `json:"target_role"` // user | admin
}

// Broadcast publishes a role-wide system notification (admin).
func (h *NotificationHandler) Broadcast(c echo.Context) error {
	var req broadcastReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and message required"})
	}
	if req.TargetRole == "" {
		req.TargetRole = model.RoleUser
	}
	if req.TargetRole != model.RoleUser && req.TargetRole != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown target role"})
	}
	if req.Type == "" {
		req.Type = "info"
	}

	if h.Dispatcher != nil {
		h.Dispatcher.Notify(c.Request().Context(), notifier.Event{
			Kind:       notifier.EventBroadcast,
			TargetRole: req.TargetRole,
			Status:     req.Type,
			Title:      req.Title,
			Message:    req.Message,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{"target_role": req.TargetRole, "title": req.Title})
}

// ListSystem returns role-wide broadcasts addressed to the caller's
// role.
func (h *NotificationHandler) ListSystem(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Notifications.ListSystemByRole(ctx, middleware.Role(c), 20)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, items)
}
