// Package backendtest runs an in-memory collection backend for tests.
package backendtest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services/backend"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Account is a login known to the fake backend
type Account struct {
	Password string
	User     models.User
}

// Upload records one file received on /actions/upload
type Upload struct {
	Name string
	Body string
}

// Server is an httptest server speaking the backend's JSON contract.
// Seed the exported fields before issuing requests; lock with Lock/Unlock
// when reading them while requests are in flight.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	Accounts  map[string]Account
	Cases     []models.Case
	Agencies  []models.Agency
	Customers []models.Customer
	Timeline  map[string][]models.TimelineEvent
	Stats     models.DashboardStats
	Recovery  []models.RecoveryPoint
	Pending   []models.PendingAction
	Uploads   []Upload

	// FailAssign makes PUT /cases/{id}/assign answer 500 for these ids
	FailAssign map[string]bool

	Logins   int
	Requests []string

	tokens map[string]models.User
}

// NewServer starts an empty backend. Close it when done.
func NewServer() *Server {
	s := &Server{
		Accounts:   map[string]Account{},
		Timeline:   map[string][]models.TimelineEvent{},
		FailAssign: map[string]bool{},
		tokens:     map[string]models.User{},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) Lock()   { s.mu.Lock() }
func (s *Server) Unlock() { s.mu.Unlock() }

// Client returns an unauthenticated client pointed at the server
func (s *Server) Client() *backend.Client {
	return backend.NewClient(s.URL, 5*time.Second)
}

// AddAccount registers a login
func (s *Server) AddAccount(email, password string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.Email == "" {
		user.Email = email
	}
	s.Accounts[email] = Account{Password: password, User: user}
}

// IssueToken returns a valid token for user without going through login
func (s *Server) IssueToken(user models.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	s.tokens[token] = user
	return token
}

// RevokeTokens invalidates every issued token
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	s.tokens = map[string]models.User{}
	s.mu.Unlock()
}

// CaseByID returns a copy of the stored case
func (s *Server) CaseByID(id string) (models.Case, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.caseIndex(id); i >= 0 {
		return s.Cases[i], true
	}
	return models.Case{}, false
}

// LoginCount is the number of successful logins
func (s *Server) LoginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Logins
}

// Seen reports whether a "METHOD /path" request was received
func (s *Server) Seen(request string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Requests {
		if r == request {
			return true
		}
	}
	return false
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (s *Server) routes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if he, ok := err.(*echo.HTTPError); ok {
			msg, _ := he.Message.(string)
			_ = errorJSON(c, he.Code, msg)
			return
		}
		_ = errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s.mu.Lock()
			s.Requests = append(s.Requests, c.Request().Method+" "+c.Request().URL.Path)
			s.mu.Unlock()
			return next(c)
		}
	})

	e.POST("/auth/login", s.login)

	api := e.Group("", s.requireToken)
	api.POST("/auth/logout", s.logout)
	api.GET("/auth/me", s.me)

	api.GET("/cases", s.listCases)
	api.POST("/cases", s.createCase)
	api.GET("/cases/:id", s.getCase)
	api.PUT("/cases/:id", s.updateCase)
	api.PUT("/cases/:id/assign", s.assignCase)
	api.GET("/cases/:id/timeline", s.timeline)
	api.POST("/cases/:id/timeline", s.addTimelineEvent)
	api.POST("/cases/:id/email", s.logEmail)
	api.POST("/cases/:id/call", s.logCall)

	api.GET("/agencies", s.listAgencies)
	api.GET("/agencies/:id", s.getAgency)
	api.GET("/agencies/:id/cases", s.agencyCases)

	api.GET("/customers", s.listCustomers)
	api.GET("/customers/:id", s.getCustomer)
	api.GET("/customers/:id/cases", s.customerCases)

	api.GET("/dashboard/stats", s.stats)
	api.GET("/stats/recovery", s.recovery)
	api.GET("/performance/agencies", s.listAgencies)

	api.GET("/actions/pending", s.pending)
	api.POST("/actions/upload", s.upload)
	return e
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		user, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			return errorJSON(c, http.StatusUnauthorized, "Token is invalid")
		}
		c.Set("user", user)
		c.Set("token", token)
		return next(c)
	}
}

func (s *Server) login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.Accounts[req.Email]
	if !ok || acct.Password != req.Password {
		return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	}
	s.Logins++
	token := uuid.NewString()
	s.tokens[token] = acct.User
	return c.JSON(http.StatusOK, models.LoginResponse{Token: token, User: acct.User})
}

func (s *Server) logout(c echo.Context) error {
	s.mu.Lock()
	delete(s.tokens, c.Get("token").(string))
	s.mu.Unlock()
	return c.JSON(http.StatusOK, models.MessageResponse{Message: "Logged out"})
}

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, models.MeResponse{User: c.Get("user").(models.User)})
}

func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func pages(total, limit int) int {
	return (total + limit - 1) / limit
}

func window(total, page, limit int) (int, int) {
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

func (s *Server) listCases(c echo.Context) error {
	page, limit := pageParams(c)
	status := c.QueryParam("status")
	search := strings.ToLower(c.QueryParam("search"))

	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]models.Case, 0, len(s.Cases))
	for _, cs := range s.Cases {
		if status != "" && string(cs.Status) != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(cs.CustomerName), search) &&
			!strings.Contains(strings.ToLower(cs.CaseID), search) {
			continue
		}
		matched = append(matched, cs)
	}
	start, end := window(len(matched), page, limit)
	return c.JSON(http.StatusOK, models.CaseList{
		Cases:       matched[start:end],
		Total:       len(matched),
		Pages:       pages(len(matched), limit),
		CurrentPage: page,
	})
}

func (s *Server) caseIndex(id string) int {
	for i := range s.Cases {
		if s.Cases[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) getCase(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.caseIndex(c.Param("id"))
	if i < 0 {
		return errorJSON(c, http.StatusNotFound, "Case not found")
	}
	return c.JSON(http.StatusOK, s.Cases[i])
}

func (s *Server) createCase(c echo.Context) error {
	var req models.NewCase
	if err := c.Bind(&req); err != nil || req.CustomerName == "" || req.Amount <= 0 {
		return errorJSON(c, http.StatusBadRequest, "customerName and amount are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "CS-" + strconv.Itoa(len(s.Cases)+1001)
	cs := models.Case{
		ID:            id,
		CaseID:        id,
		CustomerName:  req.CustomerName,
		InvoiceAmount: req.Amount,
		Status:        models.CaseStatusPending,
		CreatedAt:     models.Timestamp{Time: time.Now().UTC()},
	}
	if req.CustomerID != "" {
		customerID := req.CustomerID
		cs.CustomerID = &customerID
	}
	s.Cases = append(s.Cases, cs)
	return c.JSON(http.StatusCreated, cs)
}

func (s *Server) updateCase(c echo.Context) error {
	var req models.CaseUpdate
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.caseIndex(c.Param("id"))
	if i < 0 {
		return errorJSON(c, http.StatusNotFound, "Case not found")
	}
	if req.Status != nil {
		s.Cases[i].Status = *req.Status
	}
	if req.Amount != nil {
		s.Cases[i].InvoiceAmount = *req.Amount
	}
	return c.JSON(http.StatusOK, s.Cases[i])
}

func (s *Server) assignCase(c echo.Context) error {
	var req models.AssignRequest
	if err := c.Bind(&req); err != nil || req.AgencyID == "" {
		return errorJSON(c, http.StatusBadRequest, "agencyId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if s.FailAssign[id] {
		return errorJSON(c, http.StatusInternalServerError, "assignment failed")
	}
	i := s.caseIndex(id)
	if i < 0 {
		return errorJSON(c, http.StatusNotFound, "Case not found")
	}
	var agency *models.Agency
	for j := range s.Agencies {
		if s.Agencies[j].ID == req.AgencyID {
			agency = &s.Agencies[j]
		}
	}
	if agency == nil {
		return errorJSON(c, http.StatusNotFound, "Agency not found")
	}

	agencyID, agencyName := agency.ID, agency.Name
	reason := "Assigned to " + agency.Name
	s.Cases[i].AssignedAgencyID = &agencyID
	s.Cases[i].AssignedAgency = &agencyName
	s.Cases[i].AssignedAgencyReason = &reason
	s.Cases[i].Status = models.CaseStatusAssigned
	agency.CurrentCapacity++
	agency.ActiveCases++

	s.appendEvent(id, models.TimelineEvent{
		From:      "System",
		To:        agency.Name,
		EventType: models.EventTypeAgencyAssignment,
		Title:     "Case assigned to " + agency.Name,
		Metadata:  &models.EventMetadata{AgencyName: agency.Name, Reason: reason},
	})
	return c.JSON(http.StatusOK, s.Cases[i])
}

func (s *Server) appendEvent(caseID string, ev models.TimelineEvent) models.TimelineEvent {
	ev.ID = uuid.NewString()
	if ev.Timestamp.IsZero() {
		ev.Timestamp = models.Timestamp{Time: time.Now().UTC().Truncate(time.Second)}
	}
	s.Timeline[caseID] = append(s.Timeline[caseID], ev)
	return ev
}

func (s *Server) timeline(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if s.caseIndex(id) < 0 {
		return errorJSON(c, http.StatusNotFound, "Case not found")
	}
	events := append([]models.TimelineEvent{}, s.Timeline[id]...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp.Time)
	})
	return c.JSON(http.StatusOK, events)
}

func (s *Server) addTimelineEvent(c echo.Context) error {
	var req models.NewTimelineEvent
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	if req.Title == "" || req.From == "" || req.To == "" || !req.EventType.Valid() {
		return errorJSON(c, http.StatusBadRequest, "eventType, title, from and to are required")
	}
	ts, err := models.ParseTimestamp(req.Timestamp)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid timestamp")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	if s.caseIndex(id) < 0 {
		return errorJSON(c, http.StatusNotFound, "Case not found")
	}
	ev := s.appendEvent(id, models.TimelineEvent{
		Timestamp:   models.Timestamp{Time: ts},
		From:        req.From,
		To:          req.To,
		EventType:   req.EventType,
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	return c.JSON(http.StatusCreated, models.TimelineEventResult{Message: "Event added", Event: &ev})
}

func (s *Server) logEmail(c echo.Context) error {
	var req models.EmailRequest
	if err := c.Bind(&req); err != nil || req.Subject == "" {
		return errorJSON(c, http.StatusBadRequest, "subject is required")
	}
	return s.logContact(c, models.TimelineEvent{
		EventType: models.EventTypeEmail,
		Title:     req.Subject,
		Metadata:  &models.EventMetadata{EmailSubject: req.Subject, EmailContent: req.Body},
	})
}

func (s *Server) logCall(c echo.Context) error {
	var req models.CallRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	return s.logContact(c, models.TimelineEvent{
		EventType:   models.EventTypeCall,
		Title:       "Call logged",
		Description: req.Notes,
	})
}

func (s *Server) logContact(c echo.Context, ev models.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Param("id")
	i := s.caseIndex(id)
	if i < 0 {
		return errorJSON(c, http.StatusNotFound, "Case not found")
	}
	user := c.Get("user").(models.User)
	ev.From = user.Name
	ev.To = s.Cases[i].CustomerName
	ev = s.appendEvent(id, ev)
	s.Cases[i].LastContact = ev.Timestamp
	return c.JSON(http.StatusCreated, models.TimelineEventResult{Message: "Logged", Event: &ev})
}

func (s *Server) listAgencies(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]models.Agency{}, s.Agencies...))
}

func (s *Server) getAgency(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.Agencies {
		if a.ID == c.Param("id") {
			return c.JSON(http.StatusOK, a)
		}
	}
	return errorJSON(c, http.StatusNotFound, "Agency not found")
}

func (s *Server) agencyCases(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Case{}
	for _, cs := range s.Cases {
		if cs.AssignedAgencyID != nil && *cs.AssignedAgencyID == c.Param("id") {
			out = append(out, cs)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listCustomers(c echo.Context) error {
	page, limit := pageParams(c)
	search := strings.ToLower(c.QueryParam("search"))

	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]models.Customer, 0, len(s.Customers))
	for _, cu := range s.Customers {
		if search != "" && !strings.Contains(strings.ToLower(cu.CustomerName), search) &&
			!strings.Contains(strings.ToLower(cu.AccountNumber), search) {
			continue
		}
		matched = append(matched, cu)
	}
	start, end := window(len(matched), page, limit)
	return c.JSON(http.StatusOK, models.CustomerList{
		Customers:   matched[start:end],
		Total:       len(matched),
		Pages:       pages(len(matched), limit),
		CurrentPage: page,
	})
}

func (s *Server) getCustomer(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cu := range s.Customers {
		if cu.ID == c.Param("id") {
			return c.JSON(http.StatusOK, cu)
		}
	}
	return errorJSON(c, http.StatusNotFound, "Customer not found")
}

func (s *Server) customerCases(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Case{}
	for _, cs := range s.Cases {
		if cs.CustomerID != nil && *cs.CustomerID == c.Param("id") {
			out = append(out, cs)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) stats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.Stats)
}

func (s *Server) recovery(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]models.RecoveryPoint{}, s.Recovery...))
}

func (s *Server) pending(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]models.PendingAction{}, s.Pending...))
}

func (s *Server) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "No file provided")
	}
	if strings.ToLower(filepath.Ext(fh.Filename)) != ".csv" {
		return errorJSON(c, http.StatusBadRequest, "Invalid file type. Please upload CSV file")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	rows := 0
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if strings.TrimSpace(line) != "" {
			rows++
		}
	}
	if rows > 0 {
		rows-- // header
	}

	s.mu.Lock()
	s.Uploads = append(s.Uploads, Upload{Name: fh.Filename, Body: string(body)})
	s.mu.Unlock()
	return c.JSON(http.StatusOK, models.UploadResult{
		Message:      "Upload processed",
		CasesCreated: rows,
		Errors:       []string{},
	})
}
