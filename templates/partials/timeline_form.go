package partials

import (
	"context"
	"net/url"
	"strconv"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/components"

	"github.com/a-h/templ"
)

// TimelineFormView is the add-event modal of a case
type TimelineFormView struct {
	CaseID string
	Form   *services.TimelineForm
	Error  string
}

// TimelineEventForm renders the modal into #timeline-modal. A closed
// form renders nothing.
func TimelineEventForm(v TimelineFormView) templ.Component {
	return components.Component(func(ctx context.Context, w *components.Writer) {
		if v.Form == nil || v.Form.State() == services.FormIdle {
			return
		}
		in := v.Form.Input()
		errs := v.Form.Errors()
		base := "/case/" + url.PathEscape(v.CaseID) + "/timeline"

		w.Raw(`<div class="modal" role="dialog" aria-modal="true" aria-labelledby="timeline-form-title">`)
		w.Raw(`<div class="modal-card"><header><h3 id="timeline-form-title">Add timeline event</h3>`)
		w.Raw(`<button type="button" class="modal-close" aria-label="Close" hx-target="#timeline-modal" hx-swap="innerHTML"`)
		w.Attr("hx-delete", base+"/form")
		w.Raw(`>&times;</button></header>`)

		if v.Error != "" {
			w.Render(ctx, components.Alert("error", v.Error))
		}

		w.Raw(`<form class="timeline-form" hx-target="#timeline-modal" hx-swap="innerHTML" hx-disabled-elt="find button[type=submit]"`)
		w.Attr("hx-post", base)
		w.Attr("data-state", v.Form.State().String())
		w.Raw(`>`)
		w.Render(ctx, components.CSRFField())
		w.Raw(`<input type="hidden" name="currentType"`)
		w.Attr("value", string(in.EventType))
		w.Raw(`>`)

		w.Raw(`<label>Event type<select name="eventType" hx-trigger="change" hx-include="closest form" hx-target="#timeline-modal" hx-swap="innerHTML"`)
		w.Attr("hx-post", base+"/form")
		w.Raw(`>`)
		for _, t := range models.ManualEventTypes {
			option(w, string(t), t.Label(), string(in.EventType) == string(t))
		}
		w.Raw(`</select></label>`)
		fieldError(w, errs, "eventType")

		textInput(w, "title", "Title", "text", in.Title, errs)
		textInput(w, "from", "From", "text", in.From, errs)
		textInput(w, "to", "To", "text", in.To, errs)
		textInput(w, "timestamp", "Date and time", "datetime-local", in.Timestamp, errs)

		switch in.EventType {
		case models.EventTypePayment:
			amount := ""
			if in.Amount != nil {
				amount = strconv.FormatFloat(*in.Amount, 'f', -1, 64)
			}
			w.Raw(`<label>Amount<input type="number" name="amount" min="0" step="0.01"`)
			w.Attr("value", amount)
			w.Raw(`></label>`)
			fieldError(w, errs, "amount")
		case models.EventTypeEmail:
			textInput(w, "emailSubject", "Email subject", "text", in.EmailSubject, errs)
			textArea(w, "emailContent", "Email content", in.EmailContent, errs)
		case models.EventTypeStatusChange:
			statusSelect(w, "previousStatus", "Previous status", in.PreviousStatus, errs)
			statusSelect(w, "newStatus", "New status", in.NewStatus, errs)
		}

		textArea(w, "description", "Description", in.Description, errs)

		w.Raw(`<footer><button type="button" class="btn btn-secondary" hx-target="#timeline-modal" hx-swap="innerHTML"`)
		w.Attr("hx-delete", base+"/form")
		w.Raw(`>Cancel</button><button type="submit" class="btn btn-primary">`)
		if v.Form.State() == services.FormSubmitting {
			w.Raw(`Saving...`)
		} else {
			w.Raw(`Save event`)
		}
		w.Raw(`</button></footer></form></div></div>`)
	})
}

func option(w *components.Writer, value, label string, selected bool) {
	w.Raw(`<option`)
	w.Attr("value", value)
	if selected {
		w.Raw(` selected`)
	}
	w.Raw(`>`)
	w.Text(label)
	w.Raw(`</option>`)
}

func fieldError(w *components.Writer, errs services.FieldErrors, field string) {
	msg, ok := errs[field]
	if !ok {
		return
	}
	w.Raw(`<p class="field-error"`)
	w.Attr("data-field", field)
	w.Raw(`>`)
	w.Text(msg)
	w.Raw(`</p>`)
}

func textInput(w *components.Writer, name, label, kind, value string, errs services.FieldErrors) {
	w.Raw(`<label>`)
	w.Text(label)
	w.Raw(`<input`)
	w.Attr("type", kind)
	w.Attr("name", name)
	w.Attr("value", value)
	if _, bad := errs[name]; bad {
		w.Raw(` aria-invalid="true"`)
	}
	w.Raw(`></label>`)
	fieldError(w, errs, name)
}

func textArea(w *components.Writer, name, label, value string, errs services.FieldErrors) {
	w.Raw(`<label>`)
	w.Text(label)
	w.Raw(`<textarea rows="4"`)
	w.Attr("name", name)
	w.Raw(`>`)
	w.Text(value)
	w.Raw(`</textarea></label>`)
	fieldError(w, errs, name)
}

func statusSelect(w *components.Writer, name, label, value string, errs services.FieldErrors) {
	w.Raw(`<label>`)
	w.Text(label)
	w.Raw(`<select`)
	w.Attr("name", name)
	w.Raw(`>`)
	option(w, "", "Select status", value == "")
	for _, s := range models.AllCaseStatuses {
		option(w, string(s), s.Label(), value == string(s))
	}
	w.Raw(`</select></label>`)
	fieldError(w, errs, name)
}
