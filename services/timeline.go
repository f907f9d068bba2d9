package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"debt_flow_app_go/models"

	"github.com/microcosm-cc/bluemonday"
)

// SortDirection orders the timeline for display
type SortDirection string

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// ParseSortDirection accepts "asc" or "desc"; anything else is desc
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// Toggle flips the direction
func (d SortDirection) Toggle() SortDirection {
	if d == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Label is the button caption for the current direction
func (d SortDirection) Label() string {
	if d == SortAsc {
		return "Oldest first"
	}
	return "Newest first"
}

// SortTimeline returns a sorted copy of events. Events with equal
// timestamps keep their received relative order in both directions.
func SortTimeline(events []models.TimelineEvent, dir SortDirection) []models.TimelineEvent {
	sorted := make([]models.TimelineEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Timestamp.Time, sorted[j].Timestamp.Time
		if dir == SortAsc {
			return a.Before(b)
		}
		return a.After(b)
	})
	return sorted
}

// ExpandedSet tracks which email events are expanded, by event id
type ExpandedSet map[string]struct{}

// ParseExpandedSet decodes the comma separated query parameter form
func ParseExpandedSet(raw string) ExpandedSet {
	set := ExpandedSet{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Has reports whether id is expanded
func (s ExpandedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle returns a new set with only id flipped
func (s ExpandedSet) Toggle(id string) ExpandedSet {
	next := make(ExpandedSet, len(s)+1)
	for k := range s {
		next[k] = struct{}{}
	}
	if _, ok := next[id]; ok {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return next
}

// Encode renders the set for a query parameter, sorted for stable URLs
func (s ExpandedSet) Encode() string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// SummaryLine is one labelled value under an event
type SummaryLine struct {
	Label string
	Value string
}

// EventSummary is the type-specific part of a rendered timeline entry.
// BodyHTML is already sanitized.
type EventSummary struct {
	Lines      []SummaryLine
	BodyHTML   string
	Expandable bool
}

// ErrNoRenderer means an event type has no summary renderer
var ErrNoRenderer = errors.New("no renderer for event type")

type eventRenderer func(e *models.TimelineEvent, meta models.EventMetadata) EventSummary

var eventRenderers = map[models.EventType]eventRenderer{
	models.EventTypeEmail:            renderEmailEvent,
	models.EventTypeCall:             renderDescription,
	models.EventTypeLegalNotice:      renderDescription,
	models.EventTypePayment:          renderPayment,
	models.EventTypeStatusChange:     renderStatusChange,
	models.EventTypeAgencyAssignment: renderAssignment,
	models.EventTypeReassignment:     renderAssignment,
}

var ugcPolicy = bluemonday.UGCPolicy()

// SanitizeHTML strips anything unsafe from user supplied markup
func SanitizeHTML(s string) string {
	return ugcPolicy.Sanitize(s)
}

// SanitizeText renders plain text as safe HTML, keeping line breaks
func SanitizeText(s string) string {
	clean := bluemonday.StrictPolicy().Sanitize(s)
	return strings.ReplaceAll(clean, "\n", "<br>")
}

// SummarizeEvent renders the type-specific summary for an event
func SummarizeEvent(e *models.TimelineEvent) (EventSummary, error) {
	render, ok := eventRenderers[e.EventType]
	if !ok {
		return EventSummary{}, fmt.Errorf("%w: %q", ErrNoRenderer, e.EventType)
	}
	return render(e, e.Meta()), nil
}

func renderDescription(e *models.TimelineEvent, _ models.EventMetadata) EventSummary {
	if e.Description == "" {
		return EventSummary{}
	}
	return EventSummary{BodyHTML: SanitizeText(e.Description)}
}

func renderEmailEvent(e *models.TimelineEvent, meta models.EventMetadata) EventSummary {
	s := EventSummary{Expandable: true}
	if meta.EmailSubject != "" {
		s.Lines = append(s.Lines, SummaryLine{Label: "Subject", Value: meta.EmailSubject})
	}
	body := meta.EmailContent
	if body == "" {
		body = e.Description
	}
	if body != "" {
		s.BodyHTML = SanitizeHTML(strings.ReplaceAll(body, "\n", "<br>"))
	}
	return s
}

func renderPayment(e *models.TimelineEvent, meta models.EventMetadata) EventSummary {
	s := renderDescription(e, meta)
	if meta.Amount != nil {
		s.Lines = append(s.Lines, SummaryLine{Label: "Amount", Value: FormatMoney(*meta.Amount)})
	}
	return s
}

func renderStatusChange(e *models.TimelineEvent, meta models.EventMetadata) EventSummary {
	s := renderDescription(e, meta)
	if meta.PreviousStatus != nil || meta.NewStatus != nil {
		from, to := "Unknown", "Unknown"
		if meta.PreviousStatus != nil {
			from = meta.PreviousStatus.Label()
		}
		if meta.NewStatus != nil {
			to = meta.NewStatus.Label()
		}
		s.Lines = append(s.Lines, SummaryLine{Label: "Status", Value: from + " → " + to})
	}
	return s
}

func renderAssignment(e *models.TimelineEvent, meta models.EventMetadata) EventSummary {
	s := renderDescription(e, meta)
	if meta.AgencyName != "" {
		s.Lines = append(s.Lines, SummaryLine{Label: "Agency", Value: meta.AgencyName})
	}
	if meta.Reason != "" {
		s.Lines = append(s.Lines, SummaryLine{Label: "Reason", Value: meta.Reason})
	}
	return s
}
