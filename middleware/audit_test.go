package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditActorFromSession(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/cases/CS-1/assign", nil)
	req.Header.Set("User-Agent", "firefox")
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(ContextKeySession, testSession(models.RoleAgency))

	require.NoError(t, AuditActor()(okHandler)(c))

	assert.Equal(t, services.Actor{
		UserID:    "u-agency",
		UserName:  "Test agency",
		UserRole:  "agency",
		IPAddress: "10.0.0.7",
		UserAgent: "firefox",
		RequestID: "req-42",
	}, ActorFrom(c))
}

func TestAuditActorUsesGeneratedRequestID(t *testing.T) {
	e := echo.New()
	var actor services.Actor
	e.GET("/", func(c echo.Context) error {
		actor = ActorFrom(c)
		return c.NoContent(http.StatusOK)
	}, echomw.RequestID(), AuditActor())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, actor.RequestID)
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), actor.RequestID)
	assert.Empty(t, actor.UserID)
}

func TestActorFromWithoutMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("User-Agent", "curl")
	c := e.NewContext(req, httptest.NewRecorder())

	actor := ActorFrom(c)
	assert.Empty(t, actor.UserID)
	assert.Equal(t, "curl", actor.UserAgent)
}
