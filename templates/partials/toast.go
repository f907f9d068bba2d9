package partials

import (
	"context"
	"strconv"
	"time"

	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// Toast renders the session's visible toast into #toast-region. It
// re-polls when its duration runs out so the hidden state shows up
// without a page reload. A nil toast renders nothing.
func Toast(t *services.Toast, now time.Time) templ.Component {
	return components.Component(func(_ context.Context, w *components.Writer) {
		if t == nil {
			return
		}
		remaining := t.ShownAt.Add(t.Duration).Sub(now)
		if remaining < 0 {
			remaining = 0
		}

		w.Raw(`<div role="status" aria-live="polite"`)
		w.Attr("class", "toast toast-"+string(t.Kind))
		w.Attr("data-toast-id", t.ID)
		w.Raw(` hx-get="/toast" hx-target="#toast-region" hx-swap="innerHTML"`)
		w.Attr("hx-trigger", "load delay:"+strconv.FormatInt(remaining.Milliseconds(), 10)+"ms")
		w.Raw(`><span class="toast-message">`)
		w.Text(t.Message)
		w.Raw(`</span><button type="button" class="toast-close" aria-label="Dismiss"`)
		w.Raw(` hx-post="/toast/dismiss" hx-target="#toast-region" hx-swap="innerHTML">&times;</button></div>`)
	})
}
