package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"debt_flow_app_go/config"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/services/backend/backendtest"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminEmail  = "admin@fedex.com"
	agentEmail  = "agent@dca.com"
	testPass    = "password123"
	agencyID    = "a1"
	csrfToken   = "test-csrf-token"
	testIP      = "127.0.0.1"
)

// testApp is a fully routed app in front of a fake backend
type testApp struct {
	t       *testing.T
	e       *echo.Echo
	h       *Handler
	backend *backendtest.Server
	db      *gorm.DB
	now     time.Time
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique shared memory name isolates tests while letting async writers share the DB
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&models.Session{}, &models.AuditLog{}))

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return testDB
}

func seedBackend(srv *backendtest.Server, now time.Time) {
	agency := agencyID
	agencyName := "Alpha Recovery"
	srv.AddAccount(adminEmail, testPass, models.User{ID: "u1", Name: "FedEx Admin", Role: models.RoleFedex})
	srv.AddAccount(agentEmail, testPass, models.User{ID: "u2", Name: "DCA Agent", Role: models.RoleAgency, AgencyID: &agency})

	srv.Lock()
	defer srv.Unlock()
	srv.Cases = []models.Case{
		{ID: "CS-1", CaseID: "CS-1", CustomerName: "Acme Corp", InvoiceAmount: 500, Status: models.CaseStatusPending,
			CreatedAt: models.Timestamp{Time: now.Add(-30 * time.Hour)}},
		{ID: "CS-2", CaseID: "CS-2", CustomerName: "Globex", InvoiceAmount: 900, Status: models.CaseStatusPending,
			CreatedAt: models.Timestamp{Time: now.Add(-2 * time.Hour)}},
		{ID: "CS-3", CaseID: "CS-3", CustomerName: "Initech", InvoiceAmount: 300, Status: models.CaseStatusInProgress,
			AssignedAgencyID: &agency, AssignedAgency: &agencyName, CreatedAt: models.Timestamp{Time: now.Add(-90 * time.Hour)}},
	}
	srv.Agencies = []models.Agency{
		{ID: agencyID, Name: agencyName, PerformanceScore: 0.72, Capacity: 10, CurrentCapacity: 3},
		{ID: "a2", Name: "Beta Collections", PerformanceScore: 0.91, Capacity: 10, CurrentCapacity: 4},
	}
	srv.Stats = models.DashboardStats{TotalCases: 3, ActiveCases: 3, TotalDebt: 1700}
	srv.Recovery = []models.RecoveryPoint{{Month: "2024-01", Recovered: 1200}, {Month: "2024-02", Recovered: 800}}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	now := time.Now()

	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)
	seedBackend(srv, now)

	db := setupTestDB(t)
	access, err := services.NewAccess(db)
	require.NoError(t, err)
	cipher, err := services.NewTokenCipher("test-secret-for-sessions")
	require.NoError(t, err)

	client := srv.Client()
	toasts := services.NewToastStore(time.Hour)
	progress := services.NewProgressStore(time.Hour)
	t.Cleanup(toasts.Close)
	t.Cleanup(progress.Close)
	factory := func(token string) services.AuthAPI {
		return backend.NewAPI(client.WithToken(token)).Auth
	}

	hub := NewHub()
	t.Cleanup(hub.Close)

	h := &Handler{
		Config: &config.Config{
			Environment:              "test",
			AutoAssignThresholdHours: 24,
			AutoAssignConcurrency:    2,
			DashboardRefreshInterval: 30 * time.Second,
			AllowedOrigins:           []string{"*"},
		},
		Client:   client,
		Auth:     services.NewAuthStore(db, cipher, factory, toasts, progress),
		Toasts:   toasts,
		Progress: progress,
		Access:   access,
		Cache:    services.NewDashboardCache(nil, time.Minute),
		Audit:    services.NewAuditLogger(db),
		DB:       db,
		Hub:      hub,
	}

	e := echo.New()
	h.Register(e, zaptest.NewLogger(t))
	return &testApp{t: t, e: e, h: h, backend: srv, db: db, now: now}
}

// login opens a session directly through the store and returns its cookie
func (a *testApp) login(email string) *http.Cookie {
	a.t.Helper()
	session, err := a.h.Auth.Login(context.Background(), services.LoginInput{Email: email, Password: testPass}, testIP, "go-test")
	require.NoError(a.t, err)
	return &http.Cookie{Name: middleware.SessionCookieName, Value: session.Token}
}

// sessionID returns the id of the session behind cookie
func (a *testApp) sessionID(cookie *http.Cookie) string {
	a.t.Helper()
	session, err := a.h.Auth.Current(context.Background(), cookie.Value)
	require.NoError(a.t, err)
	return session.ID
}

type reqOpt func(*http.Request)

func htmx(target string) reqOpt {
	return func(r *http.Request) {
		r.Header.Set("HX-Request", "true")
		if target != "" {
			r.Header.Set("HX-Target", target)
		}
	}
}

func header(key, value string) reqOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (a *testApp) do(method, path string, cookie *http.Cookie, body io.Reader, contentType string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if method != http.MethodGet {
		req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrfToken})
		req.Header.Set("X-CSRF-Token", csrfToken)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(path string, cookie *http.Cookie, opts ...reqOpt) *httptest.ResponseRecorder {
	return a.do(http.MethodGet, path, cookie, nil, "", opts...)
}

func (a *testApp) postForm(path string, cookie *http.Cookie, form url.Values, opts ...reqOpt) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, path, cookie, strings.NewReader(form.Encode()), echo.MIMEApplicationForm, opts...)
}

func (a *testApp) postFile(path string, cookie *http.Cookie, filename, content string, fields map[string]string, opts ...reqOpt) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(a.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(a.t, err)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	require.NoError(a.t, mw.Close())
	return a.do(http.MethodPost, path, cookie, &buf, mw.FormDataContentType(), opts...)
}

// auditCount counts stored audit rows with action
func (a *testApp) auditCount(action models.AuditAction) int64 {
	var n int64
	a.db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n)
	return n
}
