package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/services/jobs"
	"debt_flow_app_go/templates/pages"
	"debt_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const casePageSize = 20

// caseQuery is the parsed filter of a case listing
type caseQuery struct {
	Status models.CaseStatus
	Search string
	Field  services.CaseSortField
	Dir    services.SortDirection
	Page   int
}

func parseCaseQuery(c echo.Context) caseQuery {
	status, _ := models.ParseCaseStatus(c.QueryParam("status"))
	return caseQuery{
		Status: status,
		Search: strings.TrimSpace(c.QueryParam("q")),
		Field:  services.ParseCaseSortField(c.QueryParam("sort")),
		Dir:    services.ParseSortDirection(c.QueryParam("dir")),
		Page:   pageParam(c),
	}
}

// values rebuilds the canonical query string, without the page
func (q caseQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Field != services.SortByNone {
		v.Set("sort", string(q.Field))
		v.Set("dir", string(q.Dir))
	}
	return v
}

// matches applies the filter locally for endpoints without server-side search
func (q caseQuery) matches(c *models.Case) bool {
	if q.Status != "" && c.Status != q.Status {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, hay := range []string{c.CaseID, c.CustomerName, c.AccountNumber, c.ID} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func (h *Handler) caseListView(base string, q caseQuery, cases []models.Case) pages.CaseListView {
	sorted := services.SortCases(cases, q.Field, q.Dir)
	return pages.CaseListView{
		Base:      base,
		Rows:      partials.CaseRows(sorted, h.threshold(), h.now()),
		Status:    q.Status,
		Search:    q.Search,
		SortField: q.Field,
		SortDir:   q.Dir,
		Page:      q.Page,
		Pages:     1,
		Total:     len(cases),
		Query:     q.values(),
	}
}

func wantsFragment(c echo.Context, target string) bool {
	return middleware.IsHTMX(c) && c.Request().Header.Get("HX-Target") == target
}

// CaseAllocation is the admin case workbench
func (h *Handler) CaseAllocation(c echo.Context) error {
	ctx := c.Request().Context()
	q := parseCaseQuery(c)

	list, err := h.api(c).Cases.List(ctx, models.CaseFilter{
		Status: q.Status,
		Page:   q.Page,
		Limit:  casePageSize,
		Search: q.Search,
	})

	view := h.caseListView("/case-allocation", q, nil)
	view.ShowAgency = true
	if err != nil {
		msg, expired := h.listFailure(c, err, "cases")
		if expired {
			return h.expireSession(c)
		}
		view.Error = msg
		triggerToast(c)
	} else {
		view = h.caseListView("/case-allocation", q, list.Cases)
		view.ShowAgency = true
		view.Total = list.Total
		view.Pages = list.Pages
		if list.CurrentPage > 0 {
			view.Page = list.CurrentPage
		}
	}

	if wantsFragment(c, pages.CaseListTarget) {
		return render(c, http.StatusOK, pages.CaseList(view))
	}
	return render(c, http.StatusOK, pages.CaseAllocation(middleware.GetCurrentUser(c), view))
}

// MyCases lists the cases held by the agency user's agency
func (h *Handler) MyCases(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetCurrentUser(c)
	q := parseCaseQuery(c)
	api := h.api(c)

	var (
		cases []models.Case
		err   error
	)
	if user.HasAgency() {
		cases, err = api.Agencies.Cases(ctx, *user.AgencyID)
	} else {
		// the backend scopes /cases to the caller's agency
		cases, err = api.Cases.ListAll(ctx, "", 100)
	}

	var matched []models.Case
	for i := range cases {
		if q.matches(&cases[i]) {
			matched = append(matched, cases[i])
		}
	}
	view := h.caseListView("/my-cases", q, matched)
	if err != nil {
		msg, expired := h.listFailure(c, err, "your cases")
		if expired {
			return h.expireSession(c)
		}
		view.Error = msg
		triggerToast(c)
	}

	if wantsFragment(c, pages.CaseListTarget) {
		return render(c, http.StatusOK, pages.CaseList(view))
	}
	return render(c, http.StatusOK, pages.MyCases(user, view))
}

// canSeeCase keeps agency users on their own agency's cases
func canSeeCase(user *models.User, c *models.Case) bool {
	if !services.HasRole(user.Role, models.RoleAgency) || !user.HasAgency() {
		return true
	}
	return c.AssignedAgencyID != nil && *c.AssignedAgencyID == *user.AgencyID
}

// CaseDetail renders the case page with its timeline
func (h *Handler) CaseDetail(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.GetCurrentUser(c)
	api := h.api(c)
	id := c.Param("id")

	cs, err := api.Cases.Get(ctx, id)
	if err != nil {
		return h.backendFailure(c, err, "Case")
	}
	if !canSeeCase(user, cs) {
		return h.Deny(c)
	}

	view := pages.CaseDetailView{
		Case:     cs,
		Timeline: h.timelineView(c, cs.ID),
	}
	if cs.Status == models.CaseStatusPending && !cs.IsAssigned() {
		if status, err := services.EvaluateCase(cs, h.threshold(), h.now()); err == nil {
			view.AutoAssign = &status
		}
	}

	if h.Access.Allowed(user.Role, "/case/:id/assign", http.MethodPost) {
		agencies, err := api.Agencies.List(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("agency list unavailable for assignment", zap.Error(err))
		} else {
			view.CanAssign = true
			view.Agencies = agencies
			view.Suggested = services.PickAgency(agencies)
		}
	}

	return render(c, http.StatusOK, pages.CaseDetail(user, view))
}

// AssignCase hands a case to the chosen agency
func (h *Handler) AssignCase(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	agencyID := strings.TrimSpace(c.FormValue("agency_id"))
	back := "/case/" + url.PathEscape(id)

	if agencyID == "" {
		h.toastError(c, "Choose an agency")
		return h.afterAction(c, http.StatusUnprocessableEntity, back)
	}

	updated, err := h.api(c).Cases.Assign(ctx, id, agencyID)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrUnauthorized):
			return h.expireSession(c)
		case errors.Is(err, backend.ErrNotFound):
			h.toastError(c, "Case or agency not found")
			return h.afterAction(c, http.StatusNotFound, back)
		}
		logger.FromContext(ctx).Error("assign failed", zap.String("case_id", id), zap.Error(err))
		h.toastError(c, backend.UserMessage(err, "Could not assign the case"))
		return h.afterAction(c, http.StatusBadGateway, back)
	}

	h.casesChanged(c)
	if h.Audit != nil {
		h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
			Action:       models.AuditActionAssign,
			ResourceType: "Case",
			ResourceID:   updated.ID,
			Description:  "Assigned " + updated.CaseID + " to " + updated.AgencyName(),
		})
	}
	h.toastSuccess(c, "Case "+updated.CaseID+" assigned to "+updated.AgencyName())
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Refresh", "true")
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, back)
}

// afterAction ends a failed form post: htmx keeps the page, plain
// posts go back to it
func (h *Handler) afterAction(c echo.Context, status int, back string) error {
	if middleware.IsHTMX(c) {
		return c.NoContent(status)
	}
	return c.Redirect(http.StatusSeeOther, back)
}

// casesChanged drops the cached dashboard and pings connected dashboards
func (h *Handler) casesChanged(c echo.Context) {
	h.refreshDashboards(c.Request().Context())
}

func (h *Handler) refreshDashboards(ctx context.Context) {
	h.Cache.Invalidate(ctx)
	if h.Hub != nil {
		h.Hub.Broadcast(jobs.DashboardRefreshedEvent)
	}
}

// AutoAssignAll runs one bulk auto-assign pass with the user's token
func (h *Handler) AutoAssignAll(c echo.Context) error {
	ctx := c.Request().Context()
	api := h.api(c)
	assigner := services.NewAutoAssigner(api.Cases, api.Agencies, h.threshold(), h.concurrency())
	assigner.Now = h.now
	assigner.Log = logger.FromContext(ctx)

	outcome, err := assigner.Run(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return h.expireSession(c)
		}
		logger.FromContext(ctx).Error("bulk auto-assign failed", zap.Error(err))
		h.toastError(c, backend.UserMessage(err, "Auto-assign failed, please try again"))
		return h.afterAction(c, http.StatusBadGateway, "/case-allocation")
	}

	summary := outcome.Summary()
	if len(outcome.Assigned) > 0 {
		h.casesChanged(c)
	}
	if h.Audit != nil && outcome.Selected > 0 {
		h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
			Action:       models.AuditActionAutoAssign,
			ResourceType: "Case",
			ResourceID:   strconv.Itoa(len(outcome.Assigned)) + "/" + strconv.Itoa(outcome.Selected),
			Description:  summary,
		})
	}

	session := middleware.SessionID(c)
	switch {
	case len(outcome.Failed) > 0:
		h.Toasts.Warning(session, summary)
	case outcome.Selected == 0:
		h.Toasts.Info(session, summary)
	default:
		h.Toasts.Success(session, summary)
	}
	triggerToast(c, "cases:changed", "dashboard:refreshed")

	if middleware.IsHTMX(c) {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, "/case-allocation")
}
