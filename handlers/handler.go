package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"debt_flow_app_go/config"
	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/templates/components"
	"debt_flow_app_go/templates/pages"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler carries the stores and services every route needs
type Handler struct {
	Config   *config.Config
	Client   *backend.Client
	Auth     *services.AuthStore
	Toasts   *services.ToastStore
	Progress *services.ProgressStore
	Access   *services.Access
	Cache    *services.DashboardCache
	Audit    *services.AuditLogger

	// Optional
	DB      *gorm.DB
	Archive services.ArchiveStore
	Logins  *services.LoginMonitor
	PDF     *services.PDFGenerator
	Hub     *Hub

	Now func() time.Time

	imports sync.WaitGroup
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) threshold() int {
	if h.Config == nil || h.Config.AutoAssignThresholdHours < 0 {
		return services.DefaultAutoAssignThresholdHours
	}
	return h.Config.AutoAssignThresholdHours
}

func (h *Handler) concurrency() int {
	if h.Config == nil {
		return 0
	}
	return h.Config.AutoAssignConcurrency
}

// api returns the backend services bound to the current user's token
func (h *Handler) api(c echo.Context) *backend.API {
	return backend.NewAPI(h.Client.WithToken(middleware.GetBackendToken(c)))
}

func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}

// triggerToast makes the layout reload its toast region after an htmx swap
func triggerToast(c echo.Context, events ...string) {
	value := "toast"
	for _, e := range events {
		value += ", " + e
	}
	c.Response().Header().Set("HX-Trigger", value)
}

func (h *Handler) toastError(c echo.Context, message string) {
	h.Toasts.Error(middleware.SessionID(c), message)
	triggerToast(c)
}

func (h *Handler) toastSuccess(c echo.Context, message string, events ...string) {
	h.Toasts.Success(middleware.SessionID(c), message)
	triggerToast(c, events...)
}

// Deny renders the Unauthorized view for a role that may not use a route
func (h *Handler) Deny(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if h.Audit != nil && user != nil {
		h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
			Action:       models.AuditActionDenied,
			ResourceType: "Route",
			ResourceID:   c.Path(),
			Description:  c.Request().Method + " " + c.Request().URL.Path,
		})
	}
	if middleware.IsHTMX(c) {
		h.toastError(c, "You do not have access to that action")
		return render(c, http.StatusForbidden, components.Alert("error", "Access denied"))
	}
	return render(c, http.StatusForbidden, pages.Unauthorized(user))
}

// backendFailure maps a failed backend call onto a response. A rejected
// token ends the session; a missing record renders the not-found view.
// Everything else shows an error toast and the error page.
func (h *Handler) backendFailure(c echo.Context, err error, what string) error {
	ctx := c.Request().Context()
	user := middleware.GetCurrentUser(c)

	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		return h.expireSession(c)
	case errors.Is(err, backend.ErrNotFound):
		return render(c, http.StatusNotFound, pages.NotFound(user, what))
	case errors.Is(err, backend.ErrForbidden):
		return h.Deny(c)
	}

	logger.FromContext(ctx).Error("backend call failed", zap.String("what", what), zap.Error(err))
	message := backend.UserMessage(err, "Could not load "+what+", please try again")
	if middleware.IsHTMX(c) {
		h.toastError(c, message)
		return render(c, http.StatusBadGateway, components.Alert("error", message))
	}
	h.Toasts.Error(middleware.SessionID(c), message)
	return render(c, http.StatusBadGateway, pages.ErrorPage(user, message))
}

// listFailure logs a failed list call and returns the inline message. A
// rejected token is reported through expired so the caller can stop.
func (h *Handler) listFailure(c echo.Context, err error, what string) (message string, expired bool) {
	if errors.Is(err, backend.ErrUnauthorized) {
		return "", true
	}
	logger.FromContext(c.Request().Context()).Warn("backend list failed", zap.String("what", what), zap.Error(err))
	message = backend.UserMessage(err, "Could not load "+what)
	h.Toasts.Error(middleware.SessionID(c), message)
	return message, false
}

// expireSession drops a session the backend no longer accepts
func (h *Handler) expireSession(c echo.Context) error {
	if session := middleware.GetCurrentSession(c); session != nil {
		if err := h.Auth.End(c.Request().Context(), session); err != nil {
			logger.FromContext(c.Request().Context()).Warn("failed to end session", zap.Error(err))
		}
	}
	middleware.ClearSessionCookie(c)
	return middleware.RedirectToLogin(c)
}

func pageParam(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
