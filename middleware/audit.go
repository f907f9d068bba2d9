package middleware

import (
	"debt_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyActor = "audit_actor"

// AuditActor resolves who is calling once per request. Session fields win
// over the anonymous actor; the request id ties audit rows to access logs.
func AuditActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyActor, buildActor(c))
			return next(c)
		}
	}
}

// ActorFrom returns the actor stored by AuditActor, building it on the fly
// for routes outside the authed group
func ActorFrom(c echo.Context) services.Actor {
	if actor, ok := c.Get(ContextKeyActor).(services.Actor); ok {
		return actor
	}
	return buildActor(c)
}

func buildActor(c echo.Context) services.Actor {
	ip, ua := c.RealIP(), c.Request().UserAgent()
	actor := services.Actor{IPAddress: ip, UserAgent: ua}
	if session := GetCurrentSession(c); session != nil {
		actor = services.ActorFromSession(session, ip, ua)
	}
	actor.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	if actor.RequestID == "" {
		actor.RequestID = c.Request().Header.Get(echo.HeaderXRequestID)
	}
	return actor
}
