package pages

import (
	"context"

	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// Login renders the sign-in form. errMsg is shown above the fields.
func Login(email, errMsg string) templ.Component {
	return page("Sign in", "", nil, func(ctx context.Context, w *components.Writer) {
		w.Raw(`<section class="login-card"><h1>DebtFlow</h1><p class="muted">Sign in to manage collection cases</p>`)
		w.Raw(`<form method="post" action="/login" hx-post="/login" hx-target="#login-error" hx-swap="innerHTML">`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<div id="login-error">`)
		if errMsg != "" {
			w.Render(ctx, components.Alert("error", errMsg))
		}
		w.Raw(`</div><label>Email<input type="email" name="email" autocomplete="username" required`)
		w.Attr("value", email)
		w.Raw(`></label><label>Password<input type="password" name="password" autocomplete="current-password" required></label>`)
		w.Raw(`<button type="submit" class="btn btn-primary">Sign in</button></form></section>`)
	})
}
