package pages

import (
	"context"
	"strconv"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"
	"debt_flow_app_go/templates/partials"

	"github.com/a-h/templ"
)

// Agencies lists every collection partner
func Agencies(user *models.User, agencies []models.Agency, errMsg string) templ.Component {
	return page("Agencies", "agencies", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Agencies", strconv.Itoa(len(agencies))+" collection partners")
		errorAlert(ctx, w, errMsg)
		if errMsg == "" || len(agencies) > 0 {
			w.Render(ctx, partials.AgencyTable(agencies))
		}
	})
}

// AgencyDetail shows one agency and the cases it holds
func AgencyDetail(user *models.User, a *models.Agency, rows []partials.CaseRow, casesErr string) templ.Component {
	return page(a.Name, "agencies", user, func(ctx context.Context, w *components.Writer) {
		heading(w, a.Name, a.Region)

		w.Raw(`<section class="panel"><dl class="details">`)
		detail(w, "Performance score", services.FormatPercent(a.PerformanceScore))
		detail(w, "Active outstanding", services.FormatMoney(a.ActiveOutstandingAmount))
		if a.Capacity > 0 {
			detail(w, "Capacity", strconv.Itoa(a.CurrentCapacity)+" / "+strconv.Itoa(a.Capacity))
			detail(w, "Utilization", strconv.FormatFloat(a.Utilization(), 'f', 0, 64)+"%")
		}
		detail(w, "Email", a.Email)
		detail(w, "Phone", a.Phone)
		w.Raw(`</dl>`)
		if a.Summary != nil && *a.Summary != "" {
			w.Raw(`<p class="agency-summary">`)
			w.Text(*a.Summary)
			w.Raw(`</p>`)
		}
		w.Raw(`</section><section class="panel"><h2>Cases</h2>`)
		errorAlert(ctx, w, casesErr)
		w.Render(ctx, partials.CaseTable(partials.CaseTableView{Rows: rows, Empty: "This agency holds no cases."}))
		w.Raw(`</section>`)
	})
}
