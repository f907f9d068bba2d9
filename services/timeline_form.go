package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"debt_flow_app_go/models"

	"github.com/go-playground/validator/v10"
)

// FormState is the lifecycle of the add-event modal
type FormState int

const (
	FormIdle FormState = iota
	FormEditing
	FormSubmitting
)

func (s FormState) String() string {
	switch s {
	case FormIdle:
		return "idle"
	case FormEditing:
		return "editing"
	case FormSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("FormState(%d)", int(s))
}

var (
	// ErrFormInvalid is matched by every FieldErrors value
	ErrFormInvalid = errors.New("timeline event is invalid")
	// ErrFormState is returned for an action not allowed in the current state
	ErrFormState = errors.New("action not allowed in current form state")
	// ErrTimelineReload means the event was saved but the timeline could not be re-read
	ErrTimelineReload = errors.New("event saved but timeline reload failed")
)

// TimelineEventInput is what the user fills in the add-event modal
type TimelineEventInput struct {
	EventType      models.EventType `json:"eventType" form:"eventType" validate:"event_type"`
	Title          string           `json:"title" form:"title" validate:"notblank"`
	From           string           `json:"from" form:"from" validate:"notblank"`
	To             string           `json:"to" form:"to" validate:"notblank"`
	Timestamp      string           `json:"timestamp" form:"timestamp" validate:"timestamp"`
	Description    string           `json:"description" form:"description"`
	Amount         *float64         `json:"amount" form:"amount"`
	EmailSubject   string           `json:"emailSubject" form:"emailSubject"`
	EmailContent   string           `json:"emailContent" form:"emailContent"`
	NewStatus      string           `json:"newStatus" form:"newStatus" validate:"case_status"`
	PreviousStatus string           `json:"previousStatus" form:"previousStatus" validate:"case_status"`
}

func timelineEventInputValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(TimelineEventInput)
	switch in.EventType {
	case models.EventTypePayment:
		// NaN and Inf parse as floats; neither is a payment
		if in.Amount == nil || !(*in.Amount > 0) || math.IsInf(*in.Amount, 0) {
			sl.ReportError(in.Amount, "amount", "Amount", "gt", "0")
		}
	case models.EventTypeLegalNotice:
		if strings.TrimSpace(in.Description) == "" {
			sl.ReportError(in.Description, "description", "Description", notBlankTag, "")
		}
	}
}

// Payload converts a valid input into the backend request
func (in TimelineEventInput) Payload() (models.NewTimelineEvent, error) {
	ts, err := models.ParseTimestamp(strings.TrimSpace(in.Timestamp))
	if err != nil {
		return models.NewTimelineEvent{}, err
	}

	out := models.NewTimelineEvent{
		EventType:   in.EventType,
		Title:       strings.TrimSpace(in.Title),
		From:        strings.TrimSpace(in.From),
		To:          strings.TrimSpace(in.To),
		Description: strings.TrimSpace(in.Description),
		Timestamp:   ts.UTC().Format("2006-01-02T15:04:05"),
	}

	var meta models.EventMetadata
	hasMeta := false
	switch in.EventType {
	case models.EventTypePayment:
		meta.Amount = in.Amount
		hasMeta = true
	case models.EventTypeEmail:
		if in.EmailSubject != "" || in.EmailContent != "" {
			meta.EmailSubject = in.EmailSubject
			meta.EmailContent = in.EmailContent
			hasMeta = true
		}
	case models.EventTypeStatusChange:
		if in.NewStatus != "" {
			next := models.CaseStatus(in.NewStatus)
			meta.NewStatus = &next
			hasMeta = true
		}
		if in.PreviousStatus != "" {
			prev := models.CaseStatus(in.PreviousStatus)
			meta.PreviousStatus = &prev
			hasMeta = true
		}
	}
	if hasMeta {
		out.Metadata = &meta
	}
	return out, nil
}

// TimelineSubmitter writes an event and re-reads the timeline
type TimelineSubmitter interface {
	AddTimelineEvent(ctx context.Context, id string, in models.NewTimelineEvent) (*models.TimelineEventResult, error)
	Timeline(ctx context.Context, id string) ([]models.TimelineEvent, error)
}

// TimelineForm drives the add-event modal: Idle, Editing, Submitting.
// A failed submit returns to Editing with the input kept.
type TimelineForm struct {
	state  FormState
	input  TimelineEventInput
	errors FieldErrors
}

// NewTimelineForm returns a closed form
func NewTimelineForm() *TimelineForm {
	return &TimelineForm{state: FormIdle}
}

func (f *TimelineForm) State() FormState         { return f.state }
func (f *TimelineForm) Input() TimelineEventInput { return f.input }
func (f *TimelineForm) Errors() FieldErrors       { return f.errors }

// Open moves Idle to Editing with a call event stamped now
func (f *TimelineForm) Open(now time.Time) error {
	if f.state != FormIdle {
		return fmt.Errorf("%w: open from %s", ErrFormState, f.state)
	}
	f.state = FormEditing
	f.input = TimelineEventInput{
		EventType: models.EventTypeCall,
		Timestamp: now.Format("2006-01-02T15:04"),
	}
	f.errors = nil
	return nil
}

// Close discards the input and returns to Idle
func (f *TimelineForm) Close() error {
	if f.state == FormSubmitting {
		return fmt.Errorf("%w: close while submitting", ErrFormState)
	}
	f.state = FormIdle
	f.input = TimelineEventInput{}
	f.errors = nil
	return nil
}

// Update replaces the input while editing
func (f *TimelineForm) Update(in TimelineEventInput) error {
	if f.state != FormEditing {
		return fmt.Errorf("%w: update from %s", ErrFormState, f.state)
	}
	f.input = in
	return nil
}

// SetEventType switches the event type and clears type-specific fields
func (f *TimelineForm) SetEventType(t models.EventType) error {
	if f.state != FormEditing {
		return fmt.Errorf("%w: set type from %s", ErrFormState, f.state)
	}
	if t == f.input.EventType {
		return nil
	}
	f.input.EventType = t
	f.input.clearTypeFields()
	return nil
}

func (in *TimelineEventInput) clearTypeFields() {
	in.Amount = nil
	in.EmailSubject = ""
	in.EmailContent = ""
	in.NewStatus = ""
	in.PreviousStatus = ""
}

// Validate checks the current input and records the field errors
func (f *TimelineForm) Validate() FieldErrors {
	f.errors = validateStruct(f.input)
	return f.errors
}

// Submit validates, sends the event and re-reads the case timeline.
// Invalid input never reaches the backend. On success the form is Idle
// and the fresh timeline is returned.
func (f *TimelineForm) Submit(ctx context.Context, caseID string, backend TimelineSubmitter) ([]models.TimelineEvent, error) {
	if f.state != FormEditing {
		return nil, fmt.Errorf("%w: submit from %s", ErrFormState, f.state)
	}
	if errs := f.Validate(); len(errs) > 0 {
		timelineSubmissions.WithLabelValues("invalid").Inc()
		return nil, errs
	}

	payload, err := f.input.Payload()
	if err != nil {
		f.errors = FieldErrors{"timestamp": "enter a valid date and time"}
		return nil, f.errors
	}

	f.state = FormSubmitting
	if _, err := backend.AddTimelineEvent(ctx, caseID, payload); err != nil {
		f.state = FormEditing
		timelineSubmissions.WithLabelValues("failed").Inc()
		return nil, err
	}
	timelineSubmissions.WithLabelValues("created").Inc()

	f.state = FormIdle
	f.input = TimelineEventInput{}
	f.errors = nil

	events, err := backend.Timeline(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimelineReload, err)
	}
	return events, nil
}
