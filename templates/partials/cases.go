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

// CaseRow is one case with its auto-assign status when it is pending
type CaseRow struct {
	Case       models.Case
	AutoAssign *services.AutoAssignStatus
}

// CaseRows evaluates the auto-assign rule for every pending, unassigned case
func CaseRows(cases []models.Case, fallback int, now time.Time) []CaseRow {
	rows := make([]CaseRow, len(cases))
	for i, c := range cases {
		rows[i] = CaseRow{Case: c}
		if c.Status != models.CaseStatusPending || c.IsAssigned() {
			continue
		}
		if status, err := services.EvaluateCase(&cases[i], fallback, now); err == nil {
			rows[i].AutoAssign = &status
		}
	}
	return rows
}

// CaseTableView configures the shared case table
type CaseTableView struct {
	Rows       []CaseRow
	ShowAgency bool
	Empty      string
}

// CaseTable renders cases with links to their detail pages
func CaseTable(v CaseTableView) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		if len(v.Rows) == 0 {
			msg := v.Empty
			if msg == "" {
				msg = "No cases found."
			}
			w.Render(ctx, components.Empty(msg))
			return
		}

		w.Raw(`<table class="table case-table"><thead><tr><th>Case</th><th>Customer</th><th>Invoice</th><th>Outstanding</th><th>Aging</th><th>Recovery</th><th>Status</th>`)
		if v.ShowAgency {
			w.Raw(`<th>Agency</th>`)
		}
		w.Raw(`<th>Auto-assign</th></tr></thead><tbody>`)
		for _, row := range v.Rows {
			c := row.Case
			w.Raw(`<tr`)
			w.Attr("data-case-id", c.ID)
			w.Raw(`><td><a`)
			w.URL("href", "/case/"+url.PathEscape(c.ID))
			w.Raw(`>`)
			w.Text(c.CaseID)
			w.Raw(`</a></td><td>`)
			w.Text(c.CustomerName)
			w.Raw(`</td><td>`)
			w.Text(services.FormatMoney(c.InvoiceAmount))
			w.Raw(`</td><td>`)
			w.Text(services.FormatMoney(c.Outstanding()))
			w.Raw(`</td><td>`)
			w.Text(agingDays(c.AgingDays))
			w.Raw(`</td><td>`)
			w.Text(probability(c.RecoveryProbability))
			w.Raw(`</td><td><span`)
			w.Attr("class", statusClass(c.Status))
			w.Raw(`>`)
			w.Text(c.Status.Label())
			w.Raw(`</span></td>`)
			if v.ShowAgency {
				w.Raw(`<td>`)
				w.Text(optional(c.AssignedAgency))
				w.Raw(`</td>`)
			}
			w.Raw(`<td>`)
			if row.AutoAssign != nil {
				w.Render(ctx, AutoAssignBadge(*row.AutoAssign))
			} else {
				w.Raw(`-`)
			}
			w.Raw(`</td></tr>`)
		}
		w.Raw(`</tbody></table>`)
	})
}

// AutoAssignBadge shows "N overdue" or "Auto-assign in N"
func AutoAssignBadge(s services.AutoAssignStatus) templ.Component {
	return components.Component(func(_ context.Context, w *components.Writer) {
		class := "badge badge-waiting"
		if s.IsOverdue {
			class = "badge badge-overdue"
		}
		w.Raw(`<span`)
		w.Attr("class", class)
		w.Attr("title", "Threshold "+strconv.Itoa(s.ThresholdHours)+"h, created "+services.FormatHours(float64(s.HoursSinceCreation))+" ago")
		w.Raw(`>`)
		w.Text(s.Label())
		w.Raw(`</span>`)
	})
}

// PaginationView links pages of a listing, keeping the other query params
type PaginationView struct {
	Base   string
	Query  url.Values
	Page   int
	Pages  int
	Target string // hx-target of the links, empty for full navigation
}

// Pagination renders prev/next links and the page position
func Pagination(v PaginationView) templ.Component {
	return components.Component(func(_ context.Context, w *components.Writer) {
		if v.Pages <= 1 {
			return
		}
		link := func(page int, label string) {
			href := withQuery(v.Base, v.Query, "page", strconv.Itoa(page))
			w.Raw(`<a class="page-link"`)
			w.URL("href", href)
			if v.Target != "" {
				w.Attr("hx-get", href)
				w.Attr("hx-target", v.Target)
				w.Raw(` hx-swap="outerHTML" hx-push-url="true"`)
			}
			w.Raw(`>`)
			w.Text(label)
			w.Raw(`</a>`)
		}

		w.Raw(`<nav class="pagination" aria-label="Pagination">`)
		if v.Page > 1 {
			link(v.Page-1, "Previous")
		}
		w.Raw(`<span class="page-position">`)
		w.Textf("Page %d of %d", v.Page, v.Pages)
		w.Raw(`</span>`)
		if v.Page < v.Pages {
			link(v.Page+1, "Next")
		}
		w.Raw(`</nav>`)
	})
}
