package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/templates/partials"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// timelineView loads a case timeline in the order and expansion the
// request asks for. A failed load is shown inside the section.
func (h *Handler) timelineView(c echo.Context, caseID string) partials.TimelineView {
	ctx := c.Request().Context()
	view := partials.TimelineView{
		CaseID:   caseID,
		Sort:     services.ParseSortDirection(c.QueryParam("sort")),
		Expanded: services.ParseExpandedSet(c.QueryParam("expanded")),
	}
	events, err := h.api(c).Cases.Timeline(ctx, caseID)
	if err != nil {
		logger.FromContext(ctx).Warn("timeline load failed", zap.String("case_id", caseID), zap.Error(err))
		view.Error = backend.UserMessage(err, "Could not load the timeline")
		return view
	}
	view.Events = services.SortTimeline(events, view.Sort)
	return view
}

// freshTimeline is the OOB fragment sent after a write
func freshTimeline(caseID string, events []models.TimelineEvent, sort services.SortDirection) partials.TimelineView {
	return partials.TimelineView{
		CaseID: caseID,
		Events: services.SortTimeline(events, sort),
		Sort:   sort,
		OOB:    true,
	}
}

// Timeline renders the #timeline fragment; sort and expanded come from the query
func (h *Handler) Timeline(c echo.Context) error {
	view := h.timelineView(c, c.Param("id"))
	if view.Error != "" {
		triggerToast(c)
		h.Toasts.Error(middleware.SessionID(c), view.Error)
	}
	return render(c, http.StatusOK, partials.Timeline(view))
}

// bindTimelineInput reads the modal fields. Amount stays nil when blank.
func bindTimelineInput(c echo.Context) (in services.TimelineEventInput, current models.EventType) {
	in = services.TimelineEventInput{
		EventType:      models.EventType(c.FormValue("eventType")),
		Title:          c.FormValue("title"),
		From:           c.FormValue("from"),
		To:             c.FormValue("to"),
		Timestamp:      c.FormValue("timestamp"),
		Description:    c.FormValue("description"),
		EmailSubject:   c.FormValue("emailSubject"),
		EmailContent:   c.FormValue("emailContent"),
		NewStatus:      c.FormValue("newStatus"),
		PreviousStatus: c.FormValue("previousStatus"),
	}
	if raw := strings.TrimSpace(c.FormValue("amount")); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			in.Amount = &v
		}
	}
	current = models.EventType(c.FormValue("currentType"))
	if current == "" {
		current = in.EventType
	}
	return in, current
}

func (h *Handler) editingForm() (*services.TimelineForm, error) {
	form := services.NewTimelineForm()
	if err := form.Open(h.now()); err != nil {
		return nil, err
	}
	return form, nil
}

func renderForm(c echo.Context, status int, caseID string, form *services.TimelineForm, message string) error {
	return render(c, status, partials.TimelineEventForm(partials.TimelineFormView{
		CaseID: caseID,
		Form:   form,
		Error:  message,
	}))
}

// TimelineFormOpen shows an empty add-event modal
func (h *Handler) TimelineFormOpen(c echo.Context) error {
	form, err := h.editingForm()
	if err != nil {
		return err
	}
	return renderForm(c, http.StatusOK, c.Param("id"), form, "")
}

// TimelineFormChange re-renders the modal after the event type changed,
// dropping fields that belonged to the previous type
func (h *Handler) TimelineFormChange(c echo.Context) error {
	form, err := h.editingForm()
	if err != nil {
		return err
	}
	in, current := bindTimelineInput(c)
	next := in.EventType
	in.EventType = current
	if err := form.Update(in); err != nil {
		return err
	}
	if err := form.SetEventType(next); err != nil {
		return err
	}
	return renderForm(c, http.StatusOK, c.Param("id"), form, "")
}

// TimelineFormClose empties the modal
func (h *Handler) TimelineFormClose(c echo.Context) error {
	return c.HTML(http.StatusOK, "")
}

// TimelineSubmit validates and saves a manual event. Success closes the
// modal and swaps in the re-read timeline out of band. Any failure keeps
// the modal open with what the user typed.
func (h *Handler) TimelineSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	caseID := c.Param("id")
	session := middleware.SessionID(c)

	form, err := h.editingForm()
	if err != nil {
		return err
	}
	in, _ := bindTimelineInput(c)
	if err := form.Update(in); err != nil {
		return err
	}

	events, err := form.Submit(ctx, caseID, h.api(c).Cases)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrFormInvalid):
		h.toastError(c, "Please fix the highlighted fields")
		return renderForm(c, http.StatusOK, caseID, form, "")
	case errors.Is(err, services.ErrTimelineReload):
		h.auditTimeline(c, caseID, in.EventType, in.Title)
		h.Toasts.Success(session, "Event added")
		triggerToast(c)
		return render(c, http.StatusOK, partials.Timeline(partials.TimelineView{
			CaseID: caseID,
			Sort:   services.SortDesc,
			Error:  "The event was saved but the timeline could not be reloaded",
			OOB:    true,
		}))
	case errors.Is(err, backend.ErrUnauthorized):
		return h.expireSession(c)
	default:
		logger.FromContext(ctx).Warn("timeline event rejected", zap.String("case_id", caseID), zap.Error(err))
		message := backend.UserMessage(err, "Could not save the event, please try again")
		h.toastError(c, message)
		return renderForm(c, http.StatusOK, caseID, form, message)
	}

	h.auditTimeline(c, caseID, in.EventType, in.Title)
	h.toastSuccess(c, "Event added", "cases:changed")
	return render(c, http.StatusOK, partials.Timeline(freshTimeline(caseID, events, services.SortDesc)))
}

func (h *Handler) auditTimeline(c echo.Context, caseID string, t models.EventType, title string) {
	if h.Audit == nil {
		return
	}
	h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
		Action:       models.AuditActionTimelineEvent,
		ResourceType: "Case",
		ResourceID:   caseID,
		Description:  t.Label() + ": " + strings.TrimSpace(title),
	})
}

// LogEmail records an email sent to the customer
func (h *Handler) LogEmail(c echo.Context) error {
	subject := strings.TrimSpace(c.FormValue("subject"))
	body := strings.TrimSpace(c.FormValue("body"))
	if subject == "" || body == "" {
		h.toastError(c, "Subject and body are required")
		return c.NoContent(http.StatusUnprocessableEntity)
	}
	return h.logContact(c, models.AuditActionEmail, "Email logged", "Email: "+subject, func(api *backend.API) error {
		_, err := api.Cases.SendEmail(c.Request().Context(), c.Param("id"), models.EmailRequest{Subject: subject, Body: body})
		return err
	})
}

// LogCall records a call with the customer
func (h *Handler) LogCall(c echo.Context) error {
	notes := strings.TrimSpace(c.FormValue("notes"))
	if notes == "" {
		h.toastError(c, "Call notes are required")
		return c.NoContent(http.StatusUnprocessableEntity)
	}
	return h.logContact(c, models.AuditActionCall, "Call logged", "Call logged", func(api *backend.API) error {
		_, err := api.Cases.LogCall(c.Request().Context(), c.Param("id"), models.CallRequest{Notes: notes})
		return err
	})
}

func (h *Handler) logContact(c echo.Context, action models.AuditAction, success, description string, send func(*backend.API) error) error {
	ctx := c.Request().Context()
	caseID := c.Param("id")
	api := h.api(c)

	if err := send(api); err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return h.expireSession(c)
		}
		logger.FromContext(ctx).Warn("contact log failed", zap.String("case_id", caseID), zap.Error(err))
		h.toastError(c, backend.UserMessage(err, "Could not save, please try again"))
		return c.NoContent(http.StatusBadGateway)
	}

	if h.Audit != nil {
		h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
			Action:       action,
			ResourceType: "Case",
			ResourceID:   caseID,
			Description:  description,
		})
	}
	h.toastSuccess(c, success, "cases:changed")

	var comp templ.Component
	events, err := api.Cases.Timeline(ctx, caseID)
	if err != nil {
		comp = partials.Timeline(partials.TimelineView{
			CaseID: caseID,
			Sort:   services.SortDesc,
			Error:  "Saved, but the timeline could not be reloaded",
			OOB:    true,
		})
	} else {
		comp = partials.Timeline(freshTimeline(caseID, events, services.SortDesc))
	}
	return render(c, http.StatusOK, comp)
}
