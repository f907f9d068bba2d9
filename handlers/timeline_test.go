package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTimeline(app *testApp) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	app.backend.Lock()
	defer app.backend.Unlock()
	app.backend.Timeline["CS-1"] = []models.TimelineEvent{
		{ID: "e1", Timestamp: models.Timestamp{Time: base}, From: "FedEx", To: "Acme Corp",
			EventType: models.EventTypeCall, Title: "First call"},
		{ID: "e2", Timestamp: models.Timestamp{Time: base.Add(48 * time.Hour)}, From: "FedEx", To: "Acme Corp",
			EventType: models.EventTypeEmail, Title: "Reminder email",
			Metadata: &models.EventMetadata{EmailSubject: "Payment overdue", EmailContent: "<p>Please pay</p><script>x()</script>"}},
	}
}

func TestTimelineFragment(t *testing.T) {
	app := newTestApp(t)
	seedTimeline(app)
	admin := app.login(adminEmail)

	t.Run("newest first by default", func(t *testing.T) {
		rec := app.get("/case/CS-1/timeline", admin, htmx("timeline"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.NotContains(t, body, "<html")
		assert.Less(t, strings.Index(body, "Reminder email"), strings.Index(body, "First call"))
	})

	t.Run("oldest first on request", func(t *testing.T) {
		rec := app.get("/case/CS-1/timeline?sort=asc", admin, htmx("timeline"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Less(t, strings.Index(body, "First call"), strings.Index(body, "Reminder email"))
	})

	t.Run("email body only when expanded and sanitized", func(t *testing.T) {
		rec := app.get("/case/CS-1/timeline", admin, htmx("timeline"))
		assert.NotContains(t, rec.Body.String(), "Please pay")

		rec = app.get("/case/CS-1/timeline?expanded=e2", admin, htmx("timeline"))
		body := rec.Body.String()
		assert.Contains(t, body, "Please pay")
		assert.NotContains(t, body, "<script>")
		assert.Contains(t, body, `aria-expanded="true"`)
	})

	t.Run("unknown case shows the error inline", func(t *testing.T) {
		rec := app.get("/case/NOPE/timeline", admin, htmx("timeline"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Case not found")
	})
}

func TestTimelineForm(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	t.Run("open shows a call event stamped now", func(t *testing.T) {
		rec := app.get("/case/CS-1/timeline/form", admin, htmx("timeline-modal"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `data-state="editing"`)
		assert.Contains(t, body, `name="timestamp"`)
		assert.NotContains(t, body, `name="amount"`)
	})

	t.Run("switching type swaps type fields and keeps shared ones", func(t *testing.T) {
		form := url.Values{
			"currentType":  {string(models.EventTypeEmail)},
			"eventType":    {string(models.EventTypePayment)},
			"title":        {"Partial payment"},
			"emailSubject": {"stale subject"},
		}
		rec := app.postForm("/case/CS-1/timeline/form", admin, form, htmx("timeline-modal"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `name="amount"`)
		assert.Contains(t, body, "Partial payment")
		assert.NotContains(t, body, "stale subject")
	})

	t.Run("close empties the modal", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/case/CS-1/timeline/form", admin, nil, "", htmx("timeline-modal"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestTimelineSubmit(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail)

	t.Run("invalid input stays local", func(t *testing.T) {
		form := url.Values{
			"eventType": {string(models.EventTypePayment)},
			"title":     {""},
			"from":      {"FedEx"},
			"to":        {"Acme Corp"},
			"timestamp": {"2024-03-01T10:00"},
		}
		rec := app.postForm("/case/CS-1/timeline", admin, form, htmx("timeline-modal"))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `data-state="editing"`)
		assert.Contains(t, rec.Body.String(), "field-error")
		assert.Contains(t, rec.Header().Get("HX-Trigger"), "toast")
		assert.False(t, app.backend.Seen("POST /cases/CS-1/timeline"))
	})

	t.Run("valid input saves and re-reads the timeline", func(t *testing.T) {
		form := url.Values{
			"eventType": {string(models.EventTypePayment)},
			"title":     {"Payment received"},
			"from":      {"Acme Corp"},
			"to":        {"FedEx"},
			"timestamp": {"2024-03-01T10:00"},
			"amount":    {"125.50"},
		}
		rec := app.postForm("/case/CS-1/timeline", admin, form, htmx("timeline-modal"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `hx-swap-oob="outerHTML"`)
		assert.Contains(t, body, "Payment received")
		assert.NotContains(t, body, `data-state="editing"`)
		assert.True(t, app.backend.Seen("POST /cases/CS-1/timeline"))
		assert.True(t, app.backend.Seen("GET /cases/CS-1/timeline"))

		app.backend.Lock()
		events := app.backend.Timeline["CS-1"]
		app.backend.Unlock()
		require.Len(t, events, 1)
		require.NotNil(t, events[0].Metadata)
		require.NotNil(t, events[0].Metadata.Amount)
		assert.InDelta(t, 125.50, *events[0].Metadata.Amount, 0.001)

		assert.Eventually(t, func() bool { return app.auditCount(models.AuditActionTimelineEvent) == 1 }, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("backend rejection keeps the input", func(t *testing.T) {
		form := url.Values{
			"eventType": {string(models.EventTypeCall)},
			"title":     {"Note on missing case"},
			"from":      {"FedEx"},
			"to":        {"Acme Corp"},
			"timestamp": {"2024-03-01T10:00"},
		}
		rec := app.postForm("/case/NOPE/timeline", admin, form, htmx("timeline-modal"))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `data-state="editing"`)
		assert.Contains(t, body, "Note on missing case")
		assert.Contains(t, body, "Case not found")
	})
}

func TestLogContact(t *testing.T) {
	app := newTestApp(t)
	agent := app.login(agentEmail)

	rec := app.postForm("/case/CS-3/call", agent, url.Values{"notes": {"Promised to pay Friday"}}, htmx(""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-swap-oob="outerHTML"`)
	assert.Contains(t, rec.Body.String(), "Promised to pay Friday")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "toast")

	rec = app.postForm("/case/CS-3/email", agent, url.Values{"subject": {"Reminder"}, "body": {"Please pay"}}, htmx(""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reminder")

	rec = app.postForm("/case/CS-3/email", agent, url.Values{"subject": {""}}, htmx(""))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Eventually(t, func() bool {
		return app.auditCount(models.AuditActionCall) == 1 && app.auditCount(models.AuditActionEmail) == 1
	}, 2*time.Second, 20*time.Millisecond)
}
