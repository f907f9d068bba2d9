package pages

import (
	"context"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

func page(title, active string, user *models.User, body func(ctx context.Context, w *components.Writer)) templ.Component {
	return components.Layout(components.Page{Title: title, Active: active, User: user}, components.Component(body))
}

func heading(w *components.Writer, title, subtitle string) {
	w.Raw(`<header class="page-header"><h1>`)
	w.Text(title)
	w.Raw(`</h1>`)
	if subtitle != "" {
		w.Raw(`<p class="muted">`)
		w.Text(subtitle)
		w.Raw(`</p>`)
	}
	w.Raw(`</header>`)
}

func detail(w *components.Writer, label, value string) {
	w.Raw(`<div class="detail"><dt>`)
	w.Text(label)
	w.Raw(`</dt><dd>`)
	w.Text(value)
	w.Raw(`</dd></div>`)
}

func errorAlert(ctx context.Context, w *components.Writer, msg string) {
	if msg != "" {
		w.Render(ctx, components.Alert("error", msg))
	}
}

// Unauthorized is shown when the role may not open a route
func Unauthorized(user *models.User) templ.Component {
	return page("Access denied", "", user, func(_ context.Context, w *components.Writer) {
		w.Raw(`<section class="state-page unauthorized"><h1>Access denied</h1>`)
		w.Raw(`<p>Your role does not have access to this page.</p>`)
		if user != nil {
			w.Raw(`<a class="btn btn-primary"`)
			w.URL("href", services.LandingPath(user.Role))
			w.Raw(`>Back to your workspace</a>`)
		} else {
			w.Raw(`<a class="btn btn-primary" href="/login">Log in</a>`)
		}
		w.Raw(`</section>`)
	})
}

// NotFound is shown when the backend has no such record
func NotFound(user *models.User, what string) templ.Component {
	return page("Not found", "", user, func(_ context.Context, w *components.Writer) {
		w.Raw(`<section class="state-page not-found"><h1>`)
		w.Text(what + " not found")
		w.Raw(`</h1><p>It may have been removed, or the link is wrong.</p>`)
		home := "/login"
		if user != nil {
			home = services.LandingPath(user.Role)
		}
		w.Raw(`<a class="btn btn-secondary"`)
		w.URL("href", home)
		w.Raw(`>Go back</a></section>`)
	})
}

// ErrorPage is the fallback for unexpected failures
func ErrorPage(user *models.User, message string) templ.Component {
	return page("Something went wrong", "", user, func(ctx context.Context, w *components.Writer) {
		w.Raw(`<section class="state-page error-page"><h1>Something went wrong</h1>`)
		errorAlert(ctx, w, message)
		w.Raw(`</section>`)
	})
}
