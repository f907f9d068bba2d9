package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"debt_flow_app_go/services/jobs"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastRegion(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)
	session := app.sessionID(admin)

	rec := app.get("/toast", admin, htmx("toast-region"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	app.h.Toasts.Success(session, "Case assigned")
	rec = app.get("/toast", admin, htmx("toast-region"))
	assert.Contains(t, rec.Body.String(), "Case assigned")
	assert.Contains(t, rec.Body.String(), "toast-success")

	rec = app.postForm("/toast/dismiss", admin, url.Values{}, htmx("toast-region"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.get("/toast", admin, htmx("toast-region"))
	assert.Empty(t, rec.Body.String())
}

func TestToastsArePerSession(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)
	agent := app.login(agentEmail)

	app.h.Toasts.Error(app.sessionID(admin), "Only for the admin")
	rec := app.get("/toast", agent, htmx("toast-region"))
	assert.Empty(t, rec.Body.String())
}

func TestUploadProgressRegion(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)
	session := app.sessionID(admin)

	rec := app.get("/upload-progress", admin, htmx("progress-region"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.NoError(t, app.h.Progress.Start(session, "march.xlsx"))
	rec = app.get("/upload-progress", admin, htmx("progress-region"))
	assert.Contains(t, rec.Body.String(), "march.xlsx")
	assert.Contains(t, rec.Body.String(), `id="upload-progress-bar"`)

	rec = app.postForm("/upload-progress/minimize", admin, url.Values{"minimized": {"true"}}, htmx("progress-region"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="upload-progress minimized"`)
	assert.NotContains(t, rec.Body.String(), "march.xlsx")
	assert.True(t, app.h.Progress.Get(session).Minimized)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	rec := app.get("/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Database)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.get("/login", nil)

	rec := app.get("/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "debtflow_http_requests_total")
}

func TestDashboardSocket(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	srv := httptest.NewServer(app.e)
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/dashboard"

	t.Run("agency is refused", func(t *testing.T) {
		hdr := http.Header{}
		hdr.Add("Cookie", app.login(agentEmail).String())
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, hdr)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin receives refresh notices", func(t *testing.T) {
		hdr := http.Header{}
		hdr.Add("Cookie", admin.String())
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, hdr)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		require.Eventually(t, func() bool { return app.h.Hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
		app.h.Hub.Broadcast(jobs.DashboardRefreshedEvent)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, string(jobs.DashboardRefreshedEvent), string(msg))
	})
}
