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

// AdminUserHandler covers account approval and removal.
type AdminUserHandler struct {
	Users      *repository.UserRepo
	Tokens     *repository.TokenRepo
	Engine     *workflow.Engine
	Dispatcher notifier.Dispatcher
	BcryptCost int
}

func NewAdminUserHandler(u *repository.UserRepo, t *repository.TokenRepo, engine *workflow.Engine, d notifier.Dispatcher, bcryptCost int) *AdminUserHandler {
	return &AdminUserHandler{Users: u, Tokens: t, Engine: engine, Dispatcher: d, BcryptCost: bcryptCost}
}

type adminUserView struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns accounts, optionally filtered by ?status=pending etc.
func (h *AdminUserHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	switch status {
	case "", model.UserStatusPending, model.UserStatusActive, model.UserStatusRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserView, 0, len(users))
	for _, u := range users {
		v := adminUserView{ID: u.ID, Username: u.Username, Role: u.Role, Status: u.Status, CreatedAt: u.CreatedAt}
		if u.Email != nil {
			v.Email = *u.Email
		}
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, out)
}

type userStatusReq struct {
	Status string `json:"status"` // active | rejected
	Reason string `json:"reason"`
}

// UpdateStatus approves or rejects a pending registration and notifies
// the applicant.
func (h *AdminUserHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req userStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Status != model.UserStatusActive && req.Status != model.UserStatusRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or rejected"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role == model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin accounts cannot be modified here"})
	}

	if err := h.Users.UpdateStatus(ctx, id, req.Status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	// Rejection kills any live sessions along with the account.
	if req.Status == model.UserStatusRejected {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			c.Logger().Errorf("revoke sessions for %d: %v", id, err)
		}
	}

	if h.Dispatcher != nil {
		kind := notifier.EventUserApproved
		if req.Status == model.UserStatusRejected {
			kind = notifier.EventUserRejected
		}
		h.Dispatcher.Notify(ctx, notifier.Event{
			Kind:     kind,
			UserID:   u.ID,
			Username: u.Username,
			Reason:   req.Reason,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

type resetPasswordReq struct {
	Password string `json:"password"`
}

// ResetPassword sets a new password for a non-admin account and kills
// its sessions so the old credentials stop working everywhere.
func (h *AdminUserHandler) ResetPassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role == model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admin accounts cannot be modified here"})
	}

	if err := h.Users.UpdatePassword(ctx, id, req.Password, h.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		c.Logger().Errorf("revoke sessions for %d: %v", id, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a non-admin account.  The engine cancels the user's
// active reservations and deletes the row in one transaction; the
// response reports how many reservations were released.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	cancelled, werr := h.Engine.CascadeOnUserDeletion(c.Request().Context(), id)
	if werr != nil {
		return workflowError(c, werr)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"deleted":                id,
		"cancelled_reservations": cancelled,
	})
}
