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

// CaseListTarget is the element id a filter request swaps
const CaseListTarget = "case-list"

// CaseListView is a filterable, sortable case listing
type CaseListView struct {
	Base       string
	Rows       []partials.CaseRow
	Status     models.CaseStatus
	Search     string
	SortField  services.CaseSortField
	SortDir    services.SortDirection
	Page       int
	Pages      int
	Total      int
	Query      url.Values
	ShowAgency bool
	Error      string
}

func (v CaseListView) currentURL() string {
	if enc := v.Query.Encode(); enc != "" {
		return v.Base + "?" + enc
	}
	return v.Base
}

// CaseList renders the #case-list region: filters, table and pages.
// It reloads itself when a case changes elsewhere on the page.
func CaseList(v CaseListView) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		w.Raw(`<div hx-trigger="cases:changed from:body" hx-swap="outerHTML" hx-sync="this:replace"`)
		w.Attr("id", CaseListTarget)
		w.Attr("hx-get", v.currentURL())
		w.Raw(`>`)

		w.Raw(`<form class="filters" hx-trigger="change, submit" hx-swap="outerHTML" hx-push-url="true"`)
		w.Attr("hx-get", v.Base)
		w.Attr("hx-target", "#"+CaseListTarget)
		w.Raw(`><input type="search" name="q" placeholder="Search cases"`)
		w.Attr("value", v.Search)
		w.Raw(`><select name="status">`)
		filterOption(w, "all", "All statuses", v.Status == "")
		for _, s := range models.AllCaseStatuses {
			filterOption(w, string(s), s.Label(), v.Status == s)
		}
		w.Raw(`</select><select name="sort">`)
		filterOption(w, "", "Backend order", v.SortField == services.SortByNone)
		for _, f := range services.CaseSortFields {
			filterOption(w, string(f.Field), f.Label, v.SortField == f.Field)
		}
		w.Raw(`</select><select name="dir">`)
		filterOption(w, string(services.SortDesc), "Descending", v.SortDir != services.SortAsc)
		filterOption(w, string(services.SortAsc), "Ascending", v.SortDir == services.SortAsc)
		w.Raw(`</select><button type="submit" class="btn btn-secondary">Apply</button></form>`)

		errorAlert(ctx, w, v.Error)
		w.Raw(`<p class="muted result-count">`)
		w.Text(strconv.Itoa(v.Total) + " cases")
		w.Raw(`</p>`)
		w.Render(ctx, partials.CaseTable(partials.CaseTableView{Rows: v.Rows, ShowAgency: v.ShowAgency}))
		w.Render(ctx, partials.Pagination(partials.PaginationView{
			Base:   v.Base,
			Query:  v.Query,
			Page:   v.Page,
			Pages:  v.Pages,
			Target: "#" + CaseListTarget,
		}))
		w.Raw(`</div>`)
	})
}

func filterOption(w *components.Writer, value, label string, selected bool) {
	w.Raw(`<option`)
	w.Attr("value", value)
	if selected {
		w.Raw(` selected`)
	}
	w.Raw(`>`)
	w.Text(label)
	w.Raw(`</option>`)
}

// CaseAllocation is the admin case workbench with import and bulk assign
func CaseAllocation(user *models.User, list CaseListView) templ.Component {
	return page("Case Allocation", "case-allocation", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Case Allocation", "Import overdue invoices and hand cases to agencies")

		w.Raw(`<section class="toolbar">`)
		w.Raw(`<form class="upload-form" hx-post="/case-allocation/upload" hx-encoding="multipart/form-data" hx-swap="none">`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<input type="file" name="file" accept=".csv,.xlsx" required>`)
		w.Raw(`<label class="checkbox"><input type="checkbox" name="auto_assign" value="true"> Auto-assign overdue cases after import</label>`)
		w.Raw(`<button type="submit" class="btn btn-primary">Upload</button></form>`)

		w.Raw(`<form hx-post="/case-allocation/auto-assign" hx-swap="none" hx-disabled-elt="find button">`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<button type="submit" class="btn btn-secondary">Auto-assign all</button></form>`)

		w.Raw(`<a class="btn btn-link" href="/case-allocation/template">Download import template</a>`)
		w.Raw(`<a class="btn btn-link"`)
		w.URL("href", "/case-allocation/export?"+list.Query.Encode())
		w.Raw(`>Export to Excel</a></section>`)

		w.Render(ctx, CaseList(list))
	})
}

// MyCases lists the cases held by the agency user's agency
func MyCases(user *models.User, list CaseListView) templ.Component {
	return page("My Cases", "my-cases", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "My Cases", "Cases assigned to your agency")
		w.Render(ctx, CaseList(list))
	})
}

// CaseDetailView is everything the case page shows
type CaseDetailView struct {
	Case       *models.Case
	AutoAssign *services.AutoAssignStatus
	Timeline   partials.TimelineView
	// Agencies is only filled for users who may assign
	Agencies  []models.Agency
	Suggested *models.Agency
	CanAssign bool
}

// CaseDetail is the case overview with timeline and actions
func CaseDetail(user *models.User, v CaseDetailView) templ.Component {
	c := v.Case
	return page("Case "+c.CaseID, "", user, func(ctx context.Context, w *components.Writer) {
		base := "/case/" + url.PathEscape(c.ID)
		heading(w, "Case "+c.CaseID, c.CustomerName)

		w.Raw(`<section id="case-overview" class="panel"><dl class="details">`)
		detail(w, "Status", c.Status.Label())
		detail(w, "Invoice amount", services.FormatMoney(c.InvoiceAmount))
		detail(w, "Recovered", services.FormatMoney(c.RecoveredAmount))
		detail(w, "Outstanding", services.FormatMoney(c.Outstanding()))
		detail(w, "Priority", c.Priority())
		detail(w, "Account number", c.AccountNumber)
		detail(w, "Due date", services.FormatDate(c.DueDate.Time))
		detail(w, "Last contact", services.FormatDateTime(c.LastContact.Time))
		detail(w, "Created", services.FormatDateTime(c.CreatedAt.Time))
		agency := c.AgencyName()
		if agency == "" {
			agency = "Unassigned"
		}
		detail(w, "Agency", agency)
		if c.AssignedAgencyReason != nil && *c.AssignedAgencyReason != "" {
			detail(w, "Assignment reason", *c.AssignedAgencyReason)
		}
		w.Raw(`</dl>`)
		if v.AutoAssign != nil {
			w.Render(ctx, partials.AutoAssignBadge(*v.AutoAssign))
		}
		if c.CustomerID != nil && *c.CustomerID != "" {
			w.Raw(`<a class="btn btn-link"`)
			w.URL("href", "/customer/"+url.PathEscape(*c.CustomerID))
			w.Raw(`>View customer</a>`)
		}
		w.Raw(`</section>`)

		if v.CanAssign && !c.Status.IsTerminal() {
			w.Render(ctx, assignForm(base, c, v.Agencies, v.Suggested))
		}

		w.Raw(`<section class="panel actions"><h2>Log contact</h2>`)
		w.Raw(`<form class="log-email" hx-swap="none"`)
		w.Attr("hx-post", base+"/email")
		w.Raw(`>`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<label>Subject<input type="text" name="subject" required></label>`)
		w.Raw(`<label>Body<textarea name="body" rows="3" required></textarea></label>`)
		w.Raw(`<button type="submit" class="btn btn-secondary">Log email</button></form>`)
		w.Raw(`<form class="log-call" hx-swap="none"`)
		w.Attr("hx-post", base+"/call")
		w.Raw(`>`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<label>Call notes<textarea name="notes" rows="3" required></textarea></label>`)
		w.Raw(`<button type="submit" class="btn btn-secondary">Log call</button></form></section>`)

		w.Render(ctx, partials.Timeline(v.Timeline))
		w.Raw(`<div id="timeline-modal"></div>`)
	})
}

func assignForm(base string, c *models.Case, agencies []models.Agency, suggested *models.Agency) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		title := "Assign to agency"
		if c.IsAssigned() {
			title = "Reassign"
		}
		w.Raw(`<section class="panel assign"><h2>`)
		w.Text(title)
		w.Raw(`</h2><form method="post"`)
		w.Attr("action", base+"/assign")
		w.Attr("hx-post", base+"/assign")
		w.Raw(` hx-swap="none">`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<select name="agency_id" required>`)
		for _, a := range agencies {
			current := c.AssignedAgencyID != nil && *c.AssignedAgencyID == a.ID
			selected := current || (!c.IsAssigned() && suggested != nil && suggested.ID == a.ID)
			label := a.Name + " (" + services.FormatPercent(a.PerformanceScore) + ")"
			if !a.Available() {
				label += " - full"
			}
			w.Raw(`<option`)
			w.Attr("value", a.ID)
			if selected {
				w.Raw(` selected`)
			}
			if !a.Available() && !current {
				w.Raw(` disabled`)
			}
			w.Raw(`>`)
			w.Text(label)
			w.Raw(`</option>`)
		}
		w.Raw(`</select><button type="submit" class="btn btn-primary">`)
		w.Text(title)
		w.Raw(`</button></form>`)
		if suggested != nil {
			w.Raw(`<p class="muted">Suggested: `)
			w.Text(suggested.Name)
			w.Raw(`</p>`)
		}
		w.Raw(`</section>`)
	})
}
