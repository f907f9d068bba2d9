package pages

import (
	"context"
	"net/url"
	"strconv"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"
	"debt_flow_app_go/templates/partials"

	"github.com/a-h/templ"
)

// PendingActions lists the tasks waiting on the agency user
func PendingActions(user *models.User, actions []models.PendingAction, errMsg string) templ.Component {
	return page("Pending Actions", "pending-actions", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Pending Actions", strconv.Itoa(len(actions))+" open tasks")
		errorAlert(ctx, w, errMsg)
		if len(actions) == 0 {
			if errMsg == "" {
				w.Render(ctx, components.Empty("Nothing is waiting on you."))
			}
			return
		}
		w.Raw(`<ul class="action-list">`)
		for _, a := range actions {
			w.Raw(`<li`)
			w.Attr("class", "action priority-"+a.Priority)
			w.Raw(`><div class="action-head"><strong>`)
			w.Text(a.Title)
			w.Raw(`</strong><span class="badge">`)
			w.Text(a.Priority)
			w.Raw(`</span><span class="muted">Due `)
			w.Text(services.FormatDate(a.DueDate.Time))
			w.Raw(`</span></div><p>`)
			w.Text(a.Description)
			w.Raw(`</p>`)
			if a.CaseID != "" {
				w.Raw(`<a class="btn btn-link"`)
				w.URL("href", "/case/"+url.PathEscape(a.CaseID))
				w.Raw(`>Open case</a>`)
			}
			w.Raw(`</li>`)
		}
		w.Raw(`</ul>`)
	})
}

// RecoveryStatsView is the monthly recovery series with portfolio totals
type RecoveryStatsView struct {
	Points    []models.RecoveryPoint
	Stats     *models.DashboardStats
	CanExport bool
	Error     string
}

// RecoveryStats shows recovered amounts by month
func RecoveryStats(user *models.User, v RecoveryStatsView) templ.Component {
	return page("Recovery Stats", "recovery-stats", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Recovery Stats", "Recovered amounts by month")
		errorAlert(ctx, w, v.Error)
		if v.CanExport {
			w.Raw(`<a class="btn btn-secondary" href="/recovery-stats/report">Download PDF report</a>`)
		}
		if v.Stats != nil {
			w.Raw(`<section class="panel"><dl class="details">`)
			detail(w, "Total debt", services.FormatMoney(v.Stats.TotalDebt))
			detail(w, "Recovered", services.FormatMoney(v.Stats.RecoveredAmount))
			detail(w, "Recovery rate", strconv.FormatFloat(v.Stats.RecoveryRate, 'f', 1, 64)+"%")
			w.Raw(`</dl></section>`)
		}
		if len(v.Points) == 0 {
			if v.Error == "" {
				w.Render(ctx, components.Empty("No recoveries recorded yet."))
			}
			return
		}
		var total float64
		w.Raw(`<table class="table recovery-table"><thead><tr><th>Month</th><th>Recovered</th></tr></thead><tbody>`)
		for _, p := range v.Points {
			total += p.Recovered
			w.Raw(`<tr><td>`)
			w.Text(p.Month)
			w.Raw(`</td><td>`)
			w.Text(services.FormatMoney(p.Recovered))
			w.Raw(`</td></tr>`)
		}
		w.Raw(`</tbody><tfoot><tr><th>Total</th><th>`)
		w.Text(services.FormatMoney(total))
		w.Raw(`</th></tr></tfoot></table>`)
	})
}

// AuditLogsView is one filtered page of the local audit trail
type AuditLogsView struct {
	Page    *services.AuditPage
	Filters services.AuditLogFilters
	Query   url.Values
	Error   string
}

// AuditLogs lists recorded user operations newest first
func AuditLogs(user *models.User, v AuditLogsView) templ.Component {
	return page("Audit Logs", "audit-logs", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Audit Logs", "Who did what, and when")

		w.Raw(`<form class="filters" method="get" action="/audit-logs"><select name="action">`)
		filterOption(w, "", "All actions", v.Filters.Action == "")
		for _, a := range models.AllAuditActions {
			filterOption(w, string(a), string(a), v.Filters.Action == string(a))
		}
		w.Raw(`</select><input type="search" name="q" placeholder="Search descriptions"`)
		w.Attr("value", v.Filters.SearchQuery)
		w.Raw(`><button type="submit" class="btn btn-secondary">Filter</button></form>`)
		errorAlert(ctx, w, v.Error)

		if v.Page == nil || len(v.Page.Logs) == 0 {
			w.Render(ctx, components.Empty("No audit entries match."))
			return
		}
		w.Raw(`<table class="table audit-table"><thead><tr><th>When</th><th>User</th><th>Role</th><th>Action</th><th>Resource</th><th>Description</th><th>IP</th></tr></thead><tbody>`)
		for _, l := range v.Page.Logs {
			w.Raw(`<tr><td>`)
			w.Text(services.FormatDateTime(l.CreatedAt))
			w.Raw(`</td><td>`)
			w.Text(l.UserName)
			w.Raw(`</td><td>`)
			w.Text(l.UserRole)
			w.Raw(`</td><td><span class="badge">`)
			w.Text(string(l.Action))
			w.Raw(`</span></td><td>`)
			w.Text(l.ResourceType + " " + l.ResourceID)
			w.Raw(`</td><td>`)
			w.Text(l.Description)
			w.Raw(`</td><td>`)
			w.Text(l.IPAddress)
			w.Raw(`</td></tr>`)
		}
		w.Raw(`</tbody></table>`)
		w.Render(ctx, partials.Pagination(partials.PaginationView{
			Base:  "/audit-logs",
			Query: v.Query,
			Page:  v.Page.Page,
			Pages: v.Page.Pages(),
		}))
	})
}
