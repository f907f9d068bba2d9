package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// CSRFCookieName holds the double-submit token
const CSRFCookieName = "debtflow_csrf"

// CSRF protects unsafe methods. The token is read from the X-CSRF-Token
// header (set by htmx from the meta tag) or the _csrf form field.
func CSRF(secure bool) echo.MiddlewareFunc {
	return echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		CookieName:     CSRFCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || p == "/metrics" || p == "/ws/dashboard"
		},
	})
}

// GetCSRFToken retrieves the CSRF token from the Echo context
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(echomw.DefaultCSRFConfig.ContextKey).(string)
	return token
}
