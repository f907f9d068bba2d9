package services

import (
	"errors"
	"testing"
	"time"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id string, ts time.Time, typ models.EventType) models.TimelineEvent {
	return models.TimelineEvent{ID: id, Timestamp: models.Timestamp{Time: ts}, EventType: typ}
}

func ids(events []models.TimelineEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestParseSortDirection(t *testing.T) {
	assert.Equal(t, SortAsc, ParseSortDirection("asc"))
	assert.Equal(t, SortAsc, ParseSortDirection(" ASC "))
	assert.Equal(t, SortDesc, ParseSortDirection("desc"))
	assert.Equal(t, SortDesc, ParseSortDirection(""))
	assert.Equal(t, SortDesc, ParseSortDirection("sideways"))

	assert.Equal(t, SortAsc, SortDesc.Toggle())
	assert.Equal(t, SortDesc, SortAsc.Toggle())
}

func TestSortTimeline(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []models.TimelineEvent{
		event("b", base.Add(2*time.Hour), models.EventTypeCall),
		event("a", base, models.EventTypeEmail),
		event("c", base.Add(5*time.Hour), models.EventTypePayment),
	}

	desc := SortTimeline(events, SortDesc)
	asc := SortTimeline(events, SortAsc)

	assert.Equal(t, []string{"c", "b", "a"}, ids(desc))
	assert.Equal(t, []string{"a", "b", "c"}, ids(asc))
	assert.Equal(t, []string{"b", "a", "c"}, ids(events), "input must not be reordered")

	t.Run("Desc then asc is the exact reverse", func(t *testing.T) {
		reversed := make([]string, len(desc))
		for i, id := range ids(desc) {
			reversed[len(desc)-1-i] = id
		}
		assert.Equal(t, reversed, ids(asc))
	})

	t.Run("Idempotent", func(t *testing.T) {
		assert.Equal(t, ids(desc), ids(SortTimeline(desc, SortDesc)))
		assert.Equal(t, ids(asc), ids(SortTimeline(asc, SortAsc)))
	})
}

func TestSortTimelineStableForTies(t *testing.T) {
	ts := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	events := []models.TimelineEvent{
		event("first", ts, models.EventTypeCall),
		event("second", ts, models.EventTypeEmail),
		event("later", ts.Add(time.Minute), models.EventTypeCall),
		event("third", ts, models.EventTypePayment),
	}

	assert.Equal(t, []string{"later", "first", "second", "third"}, ids(SortTimeline(events, SortDesc)))
	assert.Equal(t, []string{"first", "second", "third", "later"}, ids(SortTimeline(events, SortAsc)))
}

func TestExpandedSet(t *testing.T) {
	set := ParseExpandedSet("e2, e1,,")
	assert.True(t, set.Has("e1"))
	assert.True(t, set.Has("e2"))
	assert.Equal(t, "e1,e2", set.Encode())

	next := set.Toggle("e1")
	assert.False(t, next.Has("e1"))
	assert.True(t, next.Has("e2"), "other events keep their state")
	assert.True(t, set.Has("e1"), "toggle must not mutate the original")

	again := next.Toggle("e3")
	assert.Equal(t, "e2,e3", again.Encode())
	assert.Empty(t, ParseExpandedSet("").Encode())
}

func TestEveryEventTypeHasRenderer(t *testing.T) {
	for _, typ := range models.AllEventTypes {
		e := event("x", time.Now(), typ)
		_, err := SummarizeEvent(&e)
		assert.NoError(t, err, typ)
	}

	bogus := event("x", time.Now(), models.EventType("fax"))
	_, err := SummarizeEvent(&bogus)
	assert.True(t, errors.Is(err, ErrNoRenderer))
}

func TestSummarizeEvent(t *testing.T) {
	amount := 1250.5
	prev, next := models.CaseStatusAssigned, models.CaseStatusInProgress

	t.Run("Payment shows amount", func(t *testing.T) {
		e := models.TimelineEvent{EventType: models.EventTypePayment, Metadata: &models.EventMetadata{Amount: &amount}}
		s, err := SummarizeEvent(&e)
		require.NoError(t, err)
		assert.Equal(t, []SummaryLine{{Label: "Amount", Value: "$1,250.50"}}, s.Lines)
	})

	t.Run("Status change shows both statuses", func(t *testing.T) {
		e := models.TimelineEvent{EventType: models.EventTypeStatusChange, Metadata: &models.EventMetadata{PreviousStatus: &prev, NewStatus: &next}}
		s, err := SummarizeEvent(&e)
		require.NoError(t, err)
		require.Len(t, s.Lines, 1)
		assert.Equal(t, prev.Label()+" → "+next.Label(), s.Lines[0].Value)
	})

	t.Run("Assignment shows agency and reason", func(t *testing.T) {
		e := models.TimelineEvent{EventType: models.EventTypeReassignment, Metadata: &models.EventMetadata{AgencyName: "Premier", Reason: "Higher score"}}
		s, err := SummarizeEvent(&e)
		require.NoError(t, err)
		assert.Equal(t, []SummaryLine{{Label: "Agency", Value: "Premier"}, {Label: "Reason", Value: "Higher score"}}, s.Lines)
	})

	t.Run("Email is expandable and sanitized", func(t *testing.T) {
		e := models.TimelineEvent{EventType: models.EventTypeEmail, Metadata: &models.EventMetadata{
			EmailSubject: "Reminder",
			EmailContent: "Hello<script>alert(1)</script>\nPlease pay",
		}}
		s, err := SummarizeEvent(&e)
		require.NoError(t, err)
		assert.True(t, s.Expandable)
		assert.NotContains(t, s.BodyHTML, "<script>")
		assert.Contains(t, s.BodyHTML, "Please pay")
		assert.Equal(t, "Reminder", s.Lines[0].Value)
	})

	t.Run("Null metadata is tolerated", func(t *testing.T) {
		e := models.TimelineEvent{EventType: models.EventTypePayment, Description: "Partial payment"}
		s, err := SummarizeEvent(&e)
		require.NoError(t, err)
		assert.Empty(t, s.Lines)
		assert.Equal(t, "Partial payment", s.BodyHTML)
	})
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0.00", FormatMoney(0))
	assert.Equal(t, "$999.99", FormatMoney(999.99))
	assert.Equal(t, "$1,000.00", FormatMoney(1000))
	assert.Equal(t, "$1,234,567.89", FormatMoney(1234567.891))
	assert.Equal(t, "-$12.50", FormatMoney(-12.5))
	assert.Equal(t, "87%", FormatPercent(0.87))
}
