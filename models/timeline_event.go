package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType is the kind of interaction or change recorded on a case timeline
type EventType string

const (
	EventTypeEmail            EventType = "email"
	EventTypeCall             EventType = "call"
	EventTypeStatusChange     EventType = "status_change"
	EventTypePayment          EventType = "payment"
	EventTypeLegalNotice      EventType = "legal_notice"
	EventTypeAgencyAssignment EventType = "agency_assignment"
	EventTypeReassignment     EventType = "reassignment"
)

// AllEventTypes lists every timeline event type
var AllEventTypes = []EventType{
	EventTypeEmail,
	EventTypeCall,
	EventTypeStatusChange,
	EventTypePayment,
	EventTypeLegalNotice,
	EventTypeAgencyAssignment,
	EventTypeReassignment,
}

// ManualEventTypes are the types a user may add by hand
var ManualEventTypes = []EventType{
	EventTypeCall,
	EventTypeEmail,
	EventTypePayment,
	EventTypeStatusChange,
	EventTypeLegalNotice,
}

// ErrUnknownEventType is returned when decoding a type outside the closed set
var ErrUnknownEventType = errors.New("unknown timeline event type")

func (t EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the display text for the event type
func (t EventType) Label() string {
	switch t {
	case EventTypeEmail:
		return "Email"
	case EventTypeCall:
		return "Call"
	case EventTypeStatusChange:
		return "Status Change"
	case EventTypePayment:
		return "Payment"
	case EventTypeLegalNotice:
		return "Legal Notice"
	case EventTypeAgencyAssignment:
		return "Agency Assignment"
	case EventTypeReassignment:
		return "Reassignment"
	}
	return string(t)
}

func (t *EventType) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	eventType := EventType(raw)
	if !eventType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, raw)
	}
	*t = eventType
	return nil
}

// EventMetadata carries the type-specific fields of a timeline event
type EventMetadata struct {
	Amount         *float64    `json:"amount,omitempty"`
	EmailSubject   string      `json:"emailSubject,omitempty"`
	EmailContent   string      `json:"emailContent,omitempty"`
	PreviousStatus *CaseStatus `json:"previousStatus,omitempty"`
	NewStatus      *CaseStatus `json:"newStatus,omitempty"`
	AgencyName     string      `json:"agencyName,omitempty"`
	Reason         string      `json:"reason,omitempty"`
}

// TimelineEvent is an immutable entry in a case timeline
type TimelineEvent struct {
	ID          string         `json:"id"`
	Timestamp   Timestamp      `json:"timestamp"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	EventType   EventType      `json:"eventType"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Metadata    *EventMetadata `json:"metadata"`
}

// Meta returns the metadata or an empty value when the backend sent null
func (e *TimelineEvent) Meta() EventMetadata {
	if e.Metadata == nil {
		return EventMetadata{}
	}
	return *e.Metadata
}

// NewTimelineEvent is the payload for a manually added event
type NewTimelineEvent struct {
	EventType   EventType      `json:"eventType"`
	Title       string         `json:"title"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Description string         `json:"description,omitempty"`
	Metadata    *EventMetadata `json:"metadata,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

// TimelineEventResult is the backend reply to a timeline write
type TimelineEventResult struct {
	Message string         `json:"message"`
	Event   *TimelineEvent `json:"event"`
}

// EmailRequest is the payload to log an email sent to the customer
type EmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CallRequest is the payload to log a call
type CallRequest struct {
	Notes string `json:"notes"`
}
