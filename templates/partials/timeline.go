package partials

import (
	"context"
	"net/url"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// TimelineView is a case timeline ready to render. Events must already
// be sorted in Sort order.
type TimelineView struct {
	CaseID   string
	Events   []models.TimelineEvent
	Sort     services.SortDirection
	Expanded services.ExpandedSet
	Error    string
	// OOB marks the fragment for an out-of-band swap
	OOB bool
}

func (v TimelineView) url(sort services.SortDirection, expanded services.ExpandedSet) string {
	q := url.Values{}
	q.Set("sort", string(sort))
	if enc := expanded.Encode(); enc != "" {
		q.Set("expanded", enc)
	}
	return "/case/" + url.PathEscape(v.CaseID) + "/timeline?" + q.Encode()
}

// Timeline renders the #timeline section with its sort toggle
func Timeline(v TimelineView) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		w.Raw(`<section id="timeline" class="timeline" hx-sync="this:replace"`)
		if v.OOB {
			w.Raw(` hx-swap-oob="outerHTML"`)
		}
		w.Raw(`><header class="timeline-header"><h2>Timeline</h2>`)

		w.Raw(`<button type="button" class="btn btn-secondary sort-toggle" hx-target="#timeline" hx-swap="outerHTML"`)
		w.Attr("hx-get", v.url(v.Sort.Toggle(), v.Expanded))
		w.Attr("data-sort", string(v.Sort))
		w.Raw(`>`)
		w.Text(v.Sort.Label())
		w.Raw(`</button>`)

		w.Raw(`<button type="button" class="btn btn-primary" hx-target="#timeline-modal" hx-swap="innerHTML"`)
		w.Attr("hx-get", "/case/"+url.PathEscape(v.CaseID)+"/timeline/form")
		w.Raw(`>Add event</button></header>`)

		if v.Error != "" {
			w.Render(ctx, components.Alert("error", v.Error))
		}
		if len(v.Events) == 0 {
			if v.Error == "" {
				w.Render(ctx, components.Empty("No timeline events yet."))
			}
			w.Raw(`</section>`)
			return
		}

		w.Raw(`<ol class="timeline-list">`)
		for i := range v.Events {
			w.Render(ctx, timelineEntry(v, &v.Events[i]))
		}
		w.Raw(`</ol></section>`)
	})
}

func timelineEntry(v TimelineView, e *models.TimelineEvent) templ.Component {
	return components.Component(func(_ context.Context, w *components.Writer) {
		summary, err := services.SummarizeEvent(e)
		if err != nil {
			summary = services.EventSummary{BodyHTML: services.SanitizeText(e.Description)}
		}

		w.Raw(`<li`)
		w.Attr("class", "timeline-event event-"+string(e.EventType))
		w.Attr("id", "event-"+e.ID)
		w.Raw(`><div class="event-head"><span class="event-type">`)
		w.Text(e.EventType.Label())
		w.Raw(`</span><strong class="event-title">`)
		w.Text(e.Title)
		w.Raw(`</strong><time`)
		w.Attr("datetime", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		w.Raw(`>`)
		w.Text(services.FormatDateTime(e.Timestamp.Time))
		w.Raw(`</time></div>`)

		if e.From != "" || e.To != "" {
			w.Raw(`<div class="event-parties">`)
			w.Text(e.From)
			w.Raw(` &rarr; `)
			w.Text(e.To)
			w.Raw(`</div>`)
		}

		if len(summary.Lines) > 0 {
			w.Raw(`<dl class="event-lines">`)
			for _, line := range summary.Lines {
				w.Raw(`<dt>`)
				w.Text(line.Label)
				w.Raw(`</dt><dd>`)
				w.Text(line.Value)
				w.Raw(`</dd>`)
			}
			w.Raw(`</dl>`)
		}

		if summary.Expandable {
			expanded := v.Expanded.Has(e.ID)
			label := "Show email"
			if expanded {
				label = "Hide email"
			}
			w.Raw(`<button type="button" class="btn btn-link expand-toggle" hx-target="#timeline" hx-swap="outerHTML"`)
			w.Attr("hx-get", v.url(v.Sort, v.Expanded.Toggle(e.ID)))
			if expanded {
				w.Raw(` aria-expanded="true"`)
			} else {
				w.Raw(` aria-expanded="false"`)
			}
			w.Raw(`>`)
			w.Text(label)
			w.Raw(`</button>`)
			if expanded && summary.BodyHTML != "" {
				w.Raw(`<div class="event-body email-body">`, summary.BodyHTML, `</div>`)
			}
		} else if summary.BodyHTML != "" {
			w.Raw(`<div class="event-body">`, summary.BodyHTML, `</div>`)
		}
		w.Raw(`</li>`)
	})
}
