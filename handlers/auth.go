package handlers

import (
	"errors"
	"net/http"
	"strings"

	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/templates/components"
	"debt_flow_app_go/templates/pages"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoginPage renders the login form, or sends a signed-in user home
func (h *Handler) LoginPage(c echo.Context) error {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if session, err := h.Auth.Current(c.Request().Context(), cookie.Value); err == nil {
			return c.Redirect(http.StatusSeeOther, services.LandingPath(session.UserRole))
		}
	}
	return render(c, http.StatusOK, pages.Login("", ""))
}

// LoginPost authenticates against the backend and opens a session
func (h *Handler) LoginPost(c echo.Context) error {
	ctx := c.Request().Context()
	in := services.LoginInput{
		Email:    strings.TrimSpace(c.FormValue("email")),
		Password: c.FormValue("password"),
	}

	session, err := h.Auth.Login(ctx, in, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return h.loginFailed(c, in.Email, err)
	}

	if h.Logins != nil {
		h.Logins.Succeeded(c.RealIP())
	}
	middleware.SetSessionCookie(c, session)
	if h.Audit != nil {
		h.Audit.Log(services.ActorFromSession(session, c.RealIP(), c.Request().UserAgent()), services.AuditEntry{
			Action:       models.AuditActionLogin,
			ResourceType: "Session",
			ResourceID:   session.ID,
			Description:  "Signed in",
		})
	}

	landing := services.LandingPath(session.UserRole)
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", landing)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, landing)
}

func (h *Handler) loginFailed(c echo.Context, email string, err error) error {
	var (
		status  = http.StatusUnauthorized
		message string
		fields  services.FieldErrors
	)
	switch {
	case errors.As(err, &fields):
		status = http.StatusUnprocessableEntity
		message = "Enter a valid email and password"
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrValidation):
		message = backend.UserMessage(err, "Invalid email or password")
		if h.Logins != nil {
			h.Logins.Failed(c.RealIP(), email)
		}
	default:
		status = http.StatusBadGateway
		message = "Sign-in is unavailable right now, please try again"
		logger.FromContext(c.Request().Context()).Error("login failed", zap.Error(err))
	}

	if middleware.IsHTMX(c) {
		// htmx only swaps 2xx replies
		return render(c, http.StatusOK, components.Alert("error", message))
	}
	return render(c, status, pages.Login(email, message))
}

// Logout ends the session locally and on the backend
func (h *Handler) Logout(c echo.Context) error {
	if session := middleware.GetCurrentSession(c); session != nil {
		actor := middleware.ActorFrom(c)
		if err := h.Auth.Logout(c.Request().Context(), session); err != nil {
			logger.FromContext(c.Request().Context()).Warn("logout failed", zap.Error(err))
		}
		if h.Audit != nil {
			h.Audit.Log(actor, services.AuditEntry{
				Action:       models.AuditActionLogout,
				ResourceType: "Session",
				ResourceID:   session.ID,
				Description:  "Signed out",
			})
		}
	}
	middleware.ClearSessionCookie(c)
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Me returns the current user, re-read from the backend
func (h *Handler) Me(c echo.Context) error {
	session := middleware.GetCurrentSession(c)
	user, err := h.Auth.Refresh(c.Request().Context(), session)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, services.ErrSessionNotFound) {
			middleware.ClearSessionCookie(c)
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "session expired"})
		}
		logger.FromContext(c.Request().Context()).Warn("refresh failed", zap.Error(err))
		// the session snapshot is still a valid answer
		return c.JSON(http.StatusOK, models.MeResponse{User: *session.User()})
	}
	return c.JSON(http.StatusOK, models.MeResponse{User: *user})
}

// Unauthorized renders the access-denied view directly
func (h *Handler) Unauthorized(c echo.Context) error {
	return render(c, http.StatusForbidden, pages.Unauthorized(middleware.GetCurrentUser(c)))
}

// Home sends agency users to their cases and shows admins the dashboard
func (h *Handler) Home(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	if landing := services.LandingPath(user.Role); landing != "/" {
		return c.Redirect(http.StatusSeeOther, landing)
	}
	if !h.Access.Allowed(user.Role, "/", http.MethodGet) {
		return h.Deny(c)
	}
	return h.Dashboard(c)
}
