package handlers

import (
	"time"

	"debt_flow_app_go/middleware"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Register mounts every route and the middleware chain on e
func (h *Handler) Register(e *echo.Echo, log *zap.Logger) {
	secure := h.Config != nil && h.Config.IsProduction()

	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestContextLogger(log))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomiddleware.Recover())
	e.Use(middleware.Metrics())
	e.Use(middleware.CSPNonce())
	e.Use(middleware.CSRF(secure))
	e.Use(middleware.CSRFToContext())

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", h.Config)
			return next(c)
		}
	})

	e.Static("/static", "static")

	// Public routes
	loginLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Name:     "login",
		Requests: 10,
		Window:   time.Minute,
		Message:  "Too many login attempts. Please wait a minute and try again.",
	})
	e.GET("/login", h.LoginPage)
	e.POST("/login", h.LoginPost, loginLimiter.Middleware())
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authed := e.Group("")
	authed.Use(middleware.RequireAuth(h.Auth))
	authed.Use(middleware.AuditActor())
	{
		authed.GET("/", h.Home)
		authed.POST("/logout", h.Logout)

		access := middleware.RequireAccess(h.Access, h.Deny)
		uploadLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Name:     "upload",
			Requests: 10,
			Window:   time.Minute,
			KeyFunc:  middleware.SessionOrIP,
			Message:  "Too many uploads. Please wait before trying again.",
		})

		// Admin
		authed.GET("/dashboard/panels", h.DashboardPanels, access)
		authed.GET("/ws/dashboard", h.DashboardSocket, access)
		authed.GET("/case-allocation", h.CaseAllocation, access)
		authed.POST("/case-allocation/upload", h.UploadCases, access, uploadLimiter.Middleware())
		authed.POST("/case-allocation/auto-assign", h.AutoAssignAll, access)
		authed.GET("/case-allocation/export", h.ExportCases, access)
		authed.GET("/case-allocation/template", h.ImportTemplate, access)
		authed.POST("/case/:id/assign", h.AssignCase, access)
		authed.GET("/agencies", h.Agencies, access)
		authed.GET("/agency/:id", h.AgencyDetail, access)
		authed.GET("/audit-logs", h.AuditLogs, access)
		authed.GET("/recovery-stats/report", h.RecoveryReport, access)

		// Agency
		authed.GET("/my-cases", h.MyCases, access)
		authed.GET("/pending-actions", h.PendingActions, access)

		// Shared
		authed.GET("/api/me", h.Me, access)
		authed.GET("/customers", h.Customers, access)
		authed.GET("/customer/:id", h.CustomerDetail, access)
		authed.GET("/case/:id", h.CaseDetail, access)
		authed.GET("/case/:id/timeline", h.Timeline, access)
		authed.POST("/case/:id/timeline", h.TimelineSubmit, access)
		authed.GET("/case/:id/timeline/form", h.TimelineFormOpen, access)
		authed.POST("/case/:id/timeline/form", h.TimelineFormChange, access)
		authed.DELETE("/case/:id/timeline/form", h.TimelineFormClose, access)
		authed.POST("/case/:id/email", h.LogEmail, access)
		authed.POST("/case/:id/call", h.LogCall, access)
		authed.GET("/recovery-stats", h.RecoveryStats, access)
		authed.GET("/unauthorized", h.Unauthorized)

		// htmx regions
		authed.GET("/toast", h.Toast, access)
		authed.POST("/toast/dismiss", h.ToastDismiss, access)
		authed.GET("/upload-progress", h.UploadProgress, access)
		authed.POST("/upload-progress/minimize", h.UploadProgressMinimize, access)
	}
}
