package middleware

import (
	"context"
	"errors"
	"net/http"

	"debt_flow_app_go/config"
	"debt_flow_app_go/logger"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "debtflow_session"
	// ContextKeyUser is the context key for the authenticated user
	ContextKeyUser = "user"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
	// ContextKeyBackendToken is the context key for the decrypted bearer token
	ContextKeyBackendToken = "backend_token"
)

// SessionSource validates session cookies
type SessionSource interface {
	Current(ctx context.Context, token string) (*models.Session, error)
	BackendToken(session *models.Session) (string, error)
}

// AccessPolicy answers whether a role may use a route
type AccessPolicy interface {
	Allowed(role models.Role, route, method string) bool
}

// IsHTMX reports whether the request came from htmx
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// RedirectToLogin sends the browser to the login page. htmx requests get
// an HX-Redirect so the whole page navigates.
func RedirectToLogin(c echo.Context) error {
	if IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/login")
		return c.NoContent(http.StatusUnauthorized)
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// RequireAuth is middleware that requires authentication
func RequireAuth(sessions SessionSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return RedirectToLogin(c)
			}

			ctx := c.Request().Context()
			session, err := sessions.Current(ctx, cookie.Value)
			if err != nil {
				if !errors.Is(err, services.ErrSessionNotFound) && !errors.Is(err, services.ErrSessionExpired) {
					logger.FromContext(ctx).Error("session lookup failed", zap.Error(err))
				}
				ClearSessionCookie(c)
				return RedirectToLogin(c)
			}

			token, err := sessions.BackendToken(session)
			if err != nil {
				logger.FromContext(ctx).Warn("unreadable backend token", zap.String("session_id", session.ID), zap.Error(err))
				ClearSessionCookie(c)
				return RedirectToLogin(c)
			}

			c.Set(ContextKeySession, session)
			c.Set(ContextKeyUser, session.User())
			c.Set(ContextKeyBackendToken, token)

			log := logger.FromContext(ctx).With(zap.String("user_id", session.UserID))
			c.SetRequest(c.Request().WithContext(logger.WithContext(ctx, log)))
			return next(c)
		}
	}
}

// RequireAccess checks the matched route pattern against the policy
func RequireAccess(policy AccessPolicy, deny echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetCurrentUser(c)
			if user == nil {
				return RedirectToLogin(c)
			}
			if !policy.Allowed(user.Role, c.Path(), c.Request().Method) {
				logger.FromContext(c.Request().Context()).Info("access denied",
					zap.String("role", string(user.Role)),
					zap.String("route", c.Path()),
				)
				return deny(c)
			}
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetCurrentSession retrieves the session from context
func GetCurrentSession(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// GetBackendToken returns the bearer token of the current session
func GetBackendToken(c echo.Context) string {
	token, _ := c.Get(ContextKeyBackendToken).(string)
	return token
}

// SessionID returns the current session id, or "" when anonymous
func SessionID(c echo.Context) string {
	if s := GetCurrentSession(c); s != nil {
		return s.ID
	}
	return ""
}

// SetSessionCookie writes the session cookie for a new login
func SetSessionCookie(c echo.Context, session *models.Session) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie clears the session cookie
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction(c),
		SameSite: http.SameSiteLaxMode,
	})
}

func isProduction(c echo.Context) bool {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg.IsProduction()
	}
	return false
}
