// Package router wires the HTTP surface: route registration, JWT
// protection, role gates, rate limiting and the response cache on the
// notification poll.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/chamberlab/chamber-reservation/internal/config"
	"github.com/chamberlab/chamber-reservation/internal/handler"
	"github.com/chamberlab/chamber-reservation/internal/middleware"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth              *handler.AuthHandler
	Reservations      *handler.ReservationHandler
	AdminReservations *handler.AdminReservationHandler
	AdminUsers        *handler.AdminUserHandler
	Chambers          *handler.ChamberHandler
	Queue             *handler.QueueHandler
	Notifications     *handler.NotificationHandler
	Announcements     *handler.AnnouncementHandler
	Stats             *handler.StatsHandler
}

// Register mounts all routes.  rdb may be nil; rate limiting and the
// notification cache then degrade to no-ops.
func Register(e *echo.Echo, cfg config.Config, h Handlers, rdb *redis.Client) {
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	e.GET("/healthz", handler.Health)

	// Session management, no token required.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	// Availability lookups stay public so the booking calendar can be
	// browsed before logging in.
	e.GET("/v1/chambers/:id/availability", h.Reservations.Availability)
	e.GET("/v1/chambers/:id/schedule", h.Reservations.Schedule)

	// Everything else requires a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole("user", "admin"))

	v1.GET("/me", h.Auth.Me)

	v1.GET("/chambers", h.Chambers.List)
	v1.GET("/chambers/:id", h.Chambers.Get)
	v1.GET("/stats", h.Stats.Dashboard)

	v1.POST("/reservations", h.Reservations.Create)
	v1.GET("/reservations", h.Reservations.ListMine)
	v1.POST("/reservations/:id/cancel", h.Reservations.Cancel)

	v1.POST("/queue", h.Queue.Create)
	v1.GET("/queue", h.Queue.List)
	v1.DELETE("/queue/:id", h.Queue.Delete)

	// The notification poll is hammered by clients; a short-TTL
	// per-user response cache absorbs the refresh traffic.
	notifCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	v1.GET("/notifications", h.Notifications.List, notifCache)
	v1.PUT("/notifications/:id/read", h.Notifications.MarkRead)
	v1.PUT("/notifications/read-all", h.Notifications.MarkAllRead)
	v1.GET("/notifications/system", h.Notifications.ListSystem)

	v1.GET("/announcements", h.Announcements.List)

	// Admin-only surface.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole("admin"))

	admin.GET("/stats", h.Stats.Dashboard)

	admin.GET("/users", h.AdminUsers.List)
	admin.PUT("/users/:id/status", h.AdminUsers.UpdateStatus)
	admin.PUT("/users/:id/password", h.AdminUsers.ResetPassword)
	admin.DELETE("/users/:id", h.AdminUsers.Delete)

	admin.GET("/reservations", h.AdminReservations.List)
	admin.PUT("/reservations/batch-status", h.AdminReservations.BatchUpdateStatus)
	admin.PUT("/reservations/:id/status", h.AdminReservations.UpdateStatus)
	admin.DELETE("/reservations/:id", h.AdminReservations.Delete)

	admin.POST("/notifications/broadcast", h.Notifications.Broadcast)

	admin.POST("/chambers", h.Chambers.Create)
	admin.PUT("/chambers/:id", h.Chambers.Update)
	admin.DELETE("/chambers/:id", h.Chambers.Delete)
	admin.POST("/chambers/:id/reclaim", h.Chambers.Reclaim)
	admin.PUT("/chambers/:id/maintenance", h.Chambers.SetMaintenance)
	admin.POST("/chambers/:id/platforms", h.Chambers.CreatePlatform)
	admin.PUT("/platforms/:id", h.Chambers.UpdatePlatform)
	admin.DELETE("/platforms/:id", h.Chambers.DeletePlatform)

	admin.PUT("/queue/:id/process", h.Queue.Process)

	admin.POST("/announcements", h.Announcements.Create)
	admin.PUT("/announcements/:id", h.Announcements.Update)
	admin.DELETE("/announcements/:id", h.Announcements.Delete)
}
