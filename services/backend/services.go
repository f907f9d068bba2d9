package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"debt_flow_app_go/models"
)

// API bundles the per-resource services around one authenticated client
type API struct {
	Auth      *AuthService
	Cases     *CaseService
	Agencies  *AgencyService
	Customers *CustomerService
	Dashboard *DashboardService
	Actions   *ActionService
}

// NewAPI wires every resource service to c
func NewAPI(c *Client) *API {
	return &API{
		Auth:      &AuthService{c: c},
		Cases:     &CaseService{c: c},
		Agencies:  &AgencyService{c: c},
		Customers: &CustomerService{c: c},
		Dashboard: &DashboardService{c: c},
		Actions:   &ActionService{c: c},
	}
}

func escape(id string) string {
	return url.PathEscape(id)
}

// AuthService covers the /auth endpoints
type AuthService struct {
	c *Client
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	err := s.c.call(ctx, "auth.login", http.MethodPost, "/auth/login", nil,
		models.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	var out models.MessageResponse
	return s.c.call(ctx, "auth.logout", http.MethodPost, "/auth/logout", nil, nil, &out)
}

func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var out models.MeResponse
	if err := s.c.call(ctx, "auth.me", http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// CaseService covers the /cases endpoints
type CaseService struct {
	c *Client
}

func (s *CaseService) List(ctx context.Context, f models.CaseFilter) (*models.CaseList, error) {
	q := pageQuery(f.Page, f.Limit, f.Search)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	var out models.CaseList
	if err := s.c.call(ctx, "cases.list", http.MethodGet, "/cases", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAll walks every page of the listing for the given status
func (s *CaseService) ListAll(ctx context.Context, status models.CaseStatus, pageSize int) ([]models.Case, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	var all []models.Case
	for page := 1; ; page++ {
		list, err := s.List(ctx, models.CaseFilter{Status: status, Page: page, Limit: pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, list.Cases...)
		if page >= list.Pages || len(list.Cases) == 0 {
			return all, nil
		}
	}
}

func (s *CaseService) Get(ctx context.Context, id string) (*models.Case, error) {
	var out models.Case
	if err := s.c.call(ctx, "cases.get", http.MethodGet, "/cases/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CaseService) Create(ctx context.Context, in models.NewCase) (*models.Case, error) {
	var out models.Case
	if err := s.c.call(ctx, "cases.create", http.MethodPost, "/cases", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CaseService) Update(ctx context.Context, id string, in models.CaseUpdate) (*models.Case, error) {
	var out models.Case
	if err := s.c.call(ctx, "cases.update", http.MethodPut, "/cases/"+escape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CaseService) Assign(ctx context.Context, id, agencyID string) (*models.Case, error) {
	var out models.Case
	err := s.c.call(ctx, "cases.assign", http.MethodPut, "/cases/"+escape(id)+"/assign", nil,
		models.AssignRequest{AgencyID: agencyID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CaseService) Timeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	var out []models.TimelineEvent
	if err := s.c.call(ctx, "cases.timeline", http.MethodGet, "/cases/"+escape(id)+"/timeline", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CaseService) AddTimelineEvent(ctx context.Context, id string, in models.NewTimelineEvent) (*models.TimelineEventResult, error) {
	var out models.TimelineEventResult
	if err := s.c.call(ctx, "cases.timeline.add", http.MethodPost, "/cases/"+escape(id)+"/timeline", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CaseService) SendEmail(ctx context.Context, id string, in models.EmailRequest) (*models.TimelineEventResult, error) {
	var out models.TimelineEventResult
	if err := s.c.call(ctx, "cases.email", http.MethodPost, "/cases/"+escape(id)+"/email", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CaseService) LogCall(ctx context.Context, id string, in models.CallRequest) (*models.TimelineEventResult, error) {
	var out models.TimelineEventResult
	if err := s.c.call(ctx, "cases.call", http.MethodPost, "/cases/"+escape(id)+"/call", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AgencyService covers the /agencies endpoints
type AgencyService struct {
	c *Client
}

func (s *AgencyService) List(ctx context.Context) ([]models.Agency, error) {
	var out []models.Agency
	if err := s.c.call(ctx, "agencies.list", http.MethodGet, "/agencies", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AgencyService) Get(ctx context.Context, id string) (*models.Agency, error) {
	var out models.Agency
	if err := s.c.call(ctx, "agencies.get", http.MethodGet, "/agencies/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *AgencyService) Cases(ctx context.Context, id string) ([]models.Case, error) {
	var out []models.Case
	if err := s.c.call(ctx, "agencies.cases", http.MethodGet, "/agencies/"+escape(id)+"/cases", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CustomerService covers the /customers endpoints
type CustomerService struct {
	c *Client
}

func (s *CustomerService) List(ctx context.Context, f models.CustomerFilter) (*models.CustomerList, error) {
	var out models.CustomerList
	if err := s.c.call(ctx, "customers.list", http.MethodGet, "/customers", pageQuery(f.Page, f.Limit, f.Search), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	var out models.Customer
	if err := s.c.call(ctx, "customers.get", http.MethodGet, "/customers/"+escape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CustomerService) Cases(ctx context.Context, id string) ([]models.Case, error) {
	var out []models.Case
	if err := s.c.call(ctx, "customers.cases", http.MethodGet, "/customers/"+escape(id)+"/cases", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DashboardService covers the reporting endpoints
type DashboardService struct {
	c *Client
}

func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var out models.DashboardStats
	if err := s.c.call(ctx, "dashboard.stats", http.MethodGet, "/dashboard/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *DashboardService) Recovery(ctx context.Context) ([]models.RecoveryPoint, error) {
	var out []models.RecoveryPoint
	if err := s.c.call(ctx, "stats.recovery", http.MethodGet, "/stats/recovery", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) AgencyPerformance(ctx context.Context) ([]models.Agency, error) {
	var out []models.Agency
	if err := s.c.call(ctx, "performance.agencies", http.MethodGet, "/performance/agencies", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActionService covers the /actions endpoints
type ActionService struct {
	c *Client
}

func (s *ActionService) Pending(ctx context.Context) ([]models.PendingAction, error) {
	var out []models.PendingAction
	if err := s.c.call(ctx, "actions.pending", http.MethodGet, "/actions/pending", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends a CSV or Excel case import
func (s *ActionService) Upload(ctx context.Context, filename string, file io.Reader) (*models.UploadResult, error) {
	var out models.UploadResult
	if err := s.c.upload(ctx, "actions.upload", "/actions/upload", "file", filename, file, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
