package components

import (
	"context"

	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"

	"github.com/a-h/templ"
)

// NavItem is one entry of the sidebar
type NavItem struct {
	Key   string
	Label string
	Href  string
}

var fedexNav = []NavItem{
	{Key: "dashboard", Label: "Dashboard", Href: "/"},
	{Key: "case-allocation", Label: "Case Allocation", Href: "/case-allocation"},
	{Key: "agencies", Label: "Agencies", Href: "/agencies"},
	{Key: "customers", Label: "Customers", Href: "/customers"},
	{Key: "recovery-stats", Label: "Recovery Stats", Href: "/recovery-stats"},
	{Key: "audit-logs", Label: "Audit Logs", Href: "/audit-logs"},
}

var agencyNav = []NavItem{
	{Key: "my-cases", Label: "My Cases", Href: "/my-cases"},
	{Key: "pending-actions", Label: "Pending Actions", Href: "/pending-actions"},
	{Key: "customers", Label: "Customers", Href: "/customers"},
	{Key: "recovery-stats", Label: "Recovery Stats", Href: "/recovery-stats"},
}

// NavFor returns the sidebar entries visible to a role
func NavFor(role models.Role) []NavItem {
	switch role {
	case models.RoleFedex:
		return fedexNav
	case models.RoleAgency:
		return agencyNav
	}
	return nil
}

// Page describes the chrome around a page body
type Page struct {
	Title  string
	Active string
	User   *models.User // nil renders the bare layout used by login
}

// Layout renders the html document with nav, toast and progress slots
func Layout(p Page, body templ.Component) templ.Component {
	return Component(func(ctx context.Context, w *Writer) {
		nonce := middleware.GetNonce(ctx)

		w.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.Raw(`<meta name="csrf-token"`)
		w.Attr("content", middleware.CSRFFromContext(ctx))
		w.Raw(`><title>`)
		w.Text(p.Title)
		w.Raw(` | DebtFlow</title>`)
		w.Raw(`<link rel="stylesheet"`)
		w.Attr("href", middleware.AssetURL("css/style.css"))
		w.Raw(`><script src="https://unpkg.com/htmx.org@1.9.12"`)
		w.Attr("nonce", nonce)
		w.Raw(`></script><script defer`)
		w.Attr("src", middleware.AssetURL("js/app.js"))
		w.Attr("nonce", nonce)
		w.Raw(`></script></head>`)

		w.Raw(`<body hx-headers='{"X-CSRF-Token": "`, templ.EscapeString(middleware.CSRFFromContext(ctx)), `"}'>`)
		if p.User != nil {
			w.Raw(`<div class="app">`)
			w.Render(ctx, sidebar(p))
			w.Raw(`<main class="content">`)
			w.Render(ctx, body)
			w.Raw(`</main></div>`)
			w.Raw(`<div id="toast-region" hx-get="/toast" hx-trigger="load, toast from:body" hx-swap="innerHTML"></div>`)
			w.Raw(`<div id="progress-region" hx-get="/upload-progress" hx-trigger="load, upload:started from:body" hx-swap="innerHTML"></div>`)
		} else {
			w.Raw(`<main class="content content-bare">`)
			w.Render(ctx, body)
			w.Raw(`</main>`)
		}
		w.Raw(`</body></html>`)
	})
}

func sidebar(p Page) templ.Component {
	return Component(func(ctx context.Context, w *Writer) {
		w.Raw(`<nav class="sidebar"><div class="brand">DebtFlow</div><ul>`)
		for _, item := range NavFor(p.User.Role) {
			w.Raw(`<li><a`)
			w.URL("href", item.Href)
			if item.Key == p.Active {
				w.Raw(` class="active" aria-current="page"`)
			}
			w.Raw(`>`)
			w.Text(item.Label)
			w.Raw(`</a></li>`)
		}
		w.Raw(`</ul><div class="user-box"><span class="user-name">`)
		w.Text(p.User.Name)
		w.Raw(`</span><span class="badge">`)
		w.Text(p.User.Role.Label())
		w.Raw(`</span><form method="post" action="/logout">`)
		w.Raw(`<input type="hidden" name="_csrf"`)
		w.Attr("value", middleware.CSRFFromContext(ctx))
		w.Raw(`><button type="submit" class="btn btn-link">Log out</button></form></div></nav>`)
	})
}

// Alert renders an inline message box
func Alert(kind, message string) templ.Component {
	return Component(func(_ context.Context, w *Writer) {
		w.Raw(`<div role="alert"`)
		w.Attr("class", "alert alert-"+kind)
		w.Raw(`>`)
		w.Text(message)
		w.Raw(`</div>`)
	})
}

// Empty renders a placeholder for empty lists
func Empty(message string) templ.Component {
	return Component(func(_ context.Context, w *Writer) {
		w.Raw(`<p class="empty">`)
		w.Text(message)
		w.Raw(`</p>`)
	})
}

// CSRFField is the hidden input carried by every form
func CSRFField() templ.Component {
	return Component(func(ctx context.Context, w *Writer) {
		w.Raw(`<input type="hidden" name="_csrf"`)
		w.Attr("value", middleware.CSRFFromContext(ctx))
		w.Raw(`>`)
	})
}
