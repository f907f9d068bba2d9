package partials

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// DashboardView is what the admin dashboard panels show
type DashboardView struct {
	Snapshot *services.DashboardSnapshot // nil when nothing could be loaded
	Ready    []services.ReadyCase
	Error    string
	Now      time.Time
	Interval time.Duration
}

// DashboardPanels renders the refreshable part of the dashboard. It polls
// on Interval and also reloads when the websocket announces fresh data.
func DashboardPanels(v DashboardView) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		interval := v.Interval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		w.Raw(`<div id="dashboard-panels" hx-get="/dashboard/panels" hx-swap="outerHTML" hx-sync="this:replace"`)
		w.Attr("hx-trigger", "every "+strconv.Itoa(int(interval.Seconds()))+"s, dashboard:refreshed from:body")
		w.Raw(`>`)

		if v.Error != "" {
			w.Render(ctx, components.Alert("error", v.Error))
		}
		if v.Snapshot == nil {
			w.Raw(`</div>`)
			return
		}

		if s := v.Snapshot.Stats; s != nil {
			w.Render(ctx, statCards(s))
		}
		w.Render(ctx, readyPanel(v.Ready))
		w.Render(ctx, leaderboard(v.Snapshot.Agencies))

		w.Raw(`<p class="muted refreshed-at">Updated `)
		w.Text(formatRelativeTime(v.Snapshot.FetchedAt, v.Now))
		w.Raw(`</p></div>`)
	})
}

func statCards(s *models.DashboardStats) templ.Component {
	return components.Component(func(_ context.Context, w *components.Writer) {
		card := func(label, value string) {
			w.Raw(`<div class="stat-card"><span class="stat-label">`)
			w.Text(label)
			w.Raw(`</span><span class="stat-value">`)
			w.Text(value)
			w.Raw(`</span></div>`)
		}
		w.Raw(`<section class="stat-grid">`)
		card("Total cases", strconv.Itoa(s.TotalCases))
		card("Active cases", strconv.Itoa(s.ActiveCases))
		card("Resolved cases", strconv.Itoa(s.ResolvedCases))
		card("Total debt", services.FormatMoney(s.TotalDebt))
		card("Recovered", services.FormatMoney(s.RecoveredAmount))
		card("Recovery rate", strconv.FormatFloat(s.RecoveryRate, 'f', 1, 64)+"%")
		w.Raw(`</section>`)
	})
}

func readyPanel(ready []services.ReadyCase) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		w.Raw(`<section class="panel ready-panel"><header><h2>Ready for auto-assignment</h2>`)
		if len(ready) > 0 {
			w.Raw(`<form hx-post="/case-allocation/auto-assign" hx-swap="none">`)
			w.Render(ctx, components.CSRFField())
			w.Raw(`<button type="submit" class="btn btn-primary">Auto-assign all (`)
			w.Text(strconv.Itoa(len(ready)))
			w.Raw(`)</button></form>`)
		}
		w.Raw(`</header>`)
		if len(ready) == 0 {
			w.Render(ctx, components.Empty("No cases are waiting past their threshold."))
			w.Raw(`</section>`)
			return
		}
		w.Raw(`<ul class="ready-list">`)
		for _, r := range ready {
			w.Raw(`<li><a`)
			w.URL("href", "/case/"+url.PathEscape(r.Case.ID))
			w.Raw(`>`)
			w.Text(r.Case.CaseID)
			w.Raw(`</a> <span class="customer">`)
			w.Text(r.Case.CustomerName)
			w.Raw(`</span> <span class="amount">`)
			w.Text(services.FormatMoney(r.Case.Outstanding()))
			w.Raw(`</span> `)
			w.Render(ctx, AutoAssignBadge(r.Status))
			w.Raw(`</li>`)
		}
		w.Raw(`</ul></section>`)
	})
}

func leaderboard(agencies []models.Agency) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		w.Raw(`<section class="panel leaderboard"><header><h2>Agency performance</h2></header>`)
		if len(agencies) == 0 {
			w.Render(ctx, components.Empty("No agencies yet."))
		} else {
			w.Render(ctx, AgencyTable(agencies))
		}
		w.Raw(`</section>`)
	})
}

// AgencyTable lists agencies with their score and load
func AgencyTable(agencies []models.Agency) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		if len(agencies) == 0 {
			w.Render(ctx, components.Empty("No agencies found."))
			return
		}
		w.Raw(`<table class="table agency-table"><thead><tr><th>Agency</th><th>Region</th><th>Score</th><th>Outstanding</th><th>Capacity</th></tr></thead><tbody>`)
		for _, a := range agencies {
			w.Raw(`<tr><td><a`)
			w.URL("href", "/agency/"+url.PathEscape(a.ID))
			w.Raw(`>`)
			w.Text(a.Name)
			w.Raw(`</a></td><td>`)
			w.Text(a.Region)
			w.Raw(`</td><td>`)
			w.Text(services.FormatPercent(a.PerformanceScore))
			w.Raw(`</td><td>`)
			w.Text(services.FormatMoney(a.ActiveOutstandingAmount))
			w.Raw(`</td><td>`)
			if a.Capacity > 0 {
				w.Textf("%d / %d", a.CurrentCapacity, a.Capacity)
			} else {
				w.Text(strconv.Itoa(a.CurrentCapacity))
			}
			if !a.Available() {
				w.Raw(` <span class="badge badge-full">Full</span>`)
			}
			w.Raw(`</td></tr>`)
		}
		w.Raw(`</tbody></table>`)
	})
}

// CustomerTable lists customers with links to their detail pages
func CustomerTable(customers []models.Customer) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		if len(customers) == 0 {
			w.Render(ctx, components.Empty("No customers found."))
			return
		}
		w.Raw(`<table class="table customer-table"><thead><tr><th>Customer</th><th>Account</th><th>Tier</th><th>Region</th><th>Amount due</th><th>Due date</th></tr></thead><tbody>`)
		for _, c := range customers {
			w.Raw(`<tr><td><a`)
			w.URL("href", "/customer/"+url.PathEscape(c.ID))
			w.Raw(`>`)
			w.Text(c.CustomerName)
			w.Raw(`</a></td><td>`)
			w.Text(c.AccountNumber)
			w.Raw(`</td><td>`)
			w.Text(c.CustomerTier)
			w.Raw(`</td><td>`)
			w.Text(c.Region)
			w.Raw(`</td><td>`)
			w.Text(services.FormatMoney(c.AmountDue))
			w.Raw(`</td><td>`)
			w.Text(services.FormatDate(c.DueDate.Time))
			w.Raw(`</td></tr>`)
		}
		w.Raw(`</tbody></table>`)
	})
}
