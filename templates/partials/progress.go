package partials

import (
	"context"
	"strconv"

	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// ProgressPollID identifies the polling element of a running upload
const ProgressPollID = "upload-progress-bar"

// ProgressBar renders the upload indicator into #progress-region. While
// an upload is running it polls itself every second.
func ProgressBar(p services.Progress) templ.Component {
	return components.Component(func(_ context.Context, w *components.Writer) {
		if !p.Active() {
			return
		}
		pct := strconv.Itoa(p.Percent())

		class := "upload-progress"
		if p.Minimized {
			class += " minimized"
		}
		w.Raw(`<div`)
		w.Attr("class", class)
		w.Attr("data-phase", string(p.Phase))
		w.Raw(` hx-get="/upload-progress" hx-target="#progress-region" hx-swap="innerHTML"`)
		if p.Phase == services.PhaseDone {
			// one last poll after the reset delay clears the bar
			w.Raw(` hx-trigger="load delay:3s">`)
		} else {
			w.Attr("id", ProgressPollID)
			w.Raw(` hx-trigger="every 1s">`)
		}

		w.Raw(`<div class="progress-header"><span class="progress-phase">`)
		w.Text(p.Phase.Label())
		w.Raw(`</span>`)
		next := "true"
		label := "Minimize"
		if p.Minimized {
			next, label = "false", "Expand"
		}
		w.Raw(`<button type="button" class="btn btn-link" hx-post="/upload-progress/minimize" hx-target="#progress-region" hx-swap="innerHTML"`)
		w.Attr("hx-vals", `{"minimized": "`+next+`"}`)
		w.Raw(`>`)
		w.Text(label)
		w.Raw(`</button></div>`)

		if !p.Minimized {
			if p.FileName != "" {
				w.Raw(`<div class="progress-file">`)
				w.Text(p.FileName)
				w.Raw(`</div>`)
			}
			w.Raw(`<progress max="100"`)
			w.Attr("value", pct)
			w.Raw(`></progress><span class="progress-pct">`)
			w.Text(pct + "%")
			w.Raw(`</span>`)
			if p.Total > 0 {
				w.Raw(`<span class="progress-count">`)
				w.Textf("%d / %d", p.Current, p.Total)
				w.Raw(`</span>`)
			}
			if p.Message != "" {
				w.Raw(`<p class="progress-message">`)
				w.Text(p.Message)
				w.Raw(`</p>`)
			}
		}
		w.Raw(`</div>`)
	})
}
