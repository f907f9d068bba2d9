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

// CustomerListTarget is the element id a search request swaps
const CustomerListTarget = "customer-list"

// CustomerListView is one page of the customer directory
type CustomerListView struct {
	Customers []models.Customer
	Search    string
	Page      int
	Pages     int
	Total     int
	Query     url.Values
	Error     string
}

// CustomerList renders the #customer-list region
func CustomerList(v CustomerListView) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		w.Raw(`<div hx-sync="this:replace"`)
		w.Attr("id", CustomerListTarget)
		w.Raw(`><form class="filters" hx-get="/customers" hx-trigger="submit, keyup changed delay:400ms from:find input" hx-swap="outerHTML" hx-push-url="true"`)
		w.Attr("hx-target", "#"+CustomerListTarget)
		w.Raw(`><input type="search" name="q" placeholder="Search customers"`)
		w.Attr("value", v.Search)
		w.Raw(`><button type="submit" class="btn btn-secondary">Search</button></form>`)
		errorAlert(ctx, w, v.Error)
		w.Raw(`<p class="muted result-count">`)
		w.Text(strconv.Itoa(v.Total) + " customers")
		w.Raw(`</p>`)
		w.Render(ctx, partials.CustomerTable(v.Customers))
		w.Render(ctx, partials.Pagination(partials.PaginationView{
			Base:   "/customers",
			Query:  v.Query,
			Page:   v.Page,
			Pages:  v.Pages,
			Target: "#" + CustomerListTarget,
		}))
		w.Raw(`</div>`)
	})
}

// Customers is the customer directory
func Customers(user *models.User, v CustomerListView) templ.Component {
	return page("Customers", "customers", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Customers", "Debtor accounts")
		w.Render(ctx, CustomerList(v))
	})
}

// CustomerDetail shows a customer and their cases
func CustomerDetail(user *models.User, c *models.Customer, rows []partials.CaseRow, casesErr string) templ.Component {
	return page(c.CustomerName, "customers", user, func(ctx context.Context, w *components.Writer) {
		heading(w, c.CustomerName, c.AccountNumber)
		w.Raw(`<section class="panel"><dl class="details">`)
		detail(w, "Account type", c.AccountType)
		detail(w, "Tier", c.CustomerTier)
		detail(w, "Historical health", c.HistoricalHealth)
		detail(w, "Invoice", c.InvoiceNumber)
		detail(w, "Amount due", services.FormatMoney(c.AmountDue))
		detail(w, "Due date", services.FormatDate(c.DueDate.Time))
		detail(w, "Service", c.ServiceType)
		detail(w, "Region", c.Region)
		detail(w, "Email", c.CustomerEmail)
		w.Raw(`</dl></section><section class="panel"><h2>Cases</h2>`)
		errorAlert(ctx, w, casesErr)
		w.Render(ctx, partials.CaseTable(partials.CaseTableView{Rows: rows, ShowAgency: true, Empty: "No cases for this customer."}))
		w.Raw(`</section>`)
	})
}
