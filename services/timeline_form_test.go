package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTimelineBackend struct {
	mock.Mock
}

func (m *mockTimelineBackend) AddTimelineEvent(ctx context.Context, id string, in models.NewTimelineEvent) (*models.TimelineEventResult, error) {
	args := m.Called(ctx, id, in)
	res, _ := args.Get(0).(*models.TimelineEventResult)
	return res, args.Error(1)
}

func (m *mockTimelineBackend) Timeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	args := m.Called(ctx, id)
	events, _ := args.Get(0).([]models.TimelineEvent)
	return events, args.Error(1)
}

func floatPtr(v float64) *float64 { return &v }

func openForm(t *testing.T, in TimelineEventInput) *TimelineForm {
	t.Helper()
	form := NewTimelineForm()
	require.NoError(t, form.Open(time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)))
	require.NoError(t, form.Update(in))
	return form
}

func validCall() TimelineEventInput {
	return TimelineEventInput{
		EventType: models.EventTypeCall,
		Title:     "Follow-up",
		From:      "DCA",
		To:        "Customer",
		Timestamp: "2025-02-01T10:30",
	}
}

func TestTimelineFormOpenDefaults(t *testing.T) {
	form := NewTimelineForm()
	assert.Equal(t, FormIdle, form.State())

	require.NoError(t, form.Open(time.Date(2025, 2, 1, 10, 30, 0, 0, time.UTC)))
	assert.Equal(t, FormEditing, form.State())
	assert.Equal(t, models.EventTypeCall, form.Input().EventType)
	assert.Equal(t, "2025-02-01T10:30", form.Input().Timestamp)

	assert.True(t, errors.Is(form.Open(time.Now()), ErrFormState))

	require.NoError(t, form.Close())
	assert.Equal(t, FormIdle, form.State())
	assert.Empty(t, form.Input().Title)
}

func TestTimelineFormRejectsInvalidWithoutCalling(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TimelineEventInput)
		field  string
	}{
		{"Empty title", func(in *TimelineEventInput) { in.Title = "  " }, "title"},
		{"Empty from", func(in *TimelineEventInput) { in.From = "" }, "from"},
		{"Empty to", func(in *TimelineEventInput) { in.To = "" }, "to"},
		{"Missing timestamp", func(in *TimelineEventInput) { in.Timestamp = "" }, "timestamp"},
		{"Bad timestamp", func(in *TimelineEventInput) { in.Timestamp = "yesterday" }, "timestamp"},
		{"Payment without amount", func(in *TimelineEventInput) { in.EventType = models.EventTypePayment }, "amount"},
		{"Payment with zero amount", func(in *TimelineEventInput) {
			in.EventType = models.EventTypePayment
			in.Amount = floatPtr(0)
		}, "amount"},
		{"Payment with negative amount", func(in *TimelineEventInput) {
			in.EventType = models.EventTypePayment
			in.Amount = floatPtr(-10)
		}, "amount"},
		{"Payment with NaN amount", func(in *TimelineEventInput) {
			in.EventType = models.EventTypePayment
			in.Amount = floatPtr(math.NaN())
		}, "amount"},
		{"Payment with infinite amount", func(in *TimelineEventInput) {
			in.EventType = models.EventTypePayment
			in.Amount = floatPtr(math.Inf(1))
		}, "amount"},
		{"Legal notice without description", func(in *TimelineEventInput) { in.EventType = models.EventTypeLegalNotice }, "description"},
		{"Unknown type", func(in *TimelineEventInput) { in.EventType = "fax" }, "eventType"},
		{"Unknown new status", func(in *TimelineEventInput) {
			in.EventType = models.EventTypeStatusChange
			in.NewStatus = "closed"
		}, "newStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCall()
			tt.mutate(&in)
			form := openForm(t, in)
			backend := new(mockTimelineBackend)

			events, err := form.Submit(context.Background(), "CS-1", backend)

			assert.Nil(t, events)
			assert.True(t, errors.Is(err, ErrFormInvalid))
			assert.Contains(t, form.Errors(), tt.field)
			assert.Equal(t, FormEditing, form.State())
			assert.Equal(t, in, form.Input(), "entered data must be kept")
			backend.AssertNotCalled(t, "AddTimelineEvent", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTimelineFormSubmitCallRefetches(t *testing.T) {
	existing := models.TimelineEvent{ID: "e1", EventType: models.EventTypeEmail, Title: "Invoice generated"}
	created := models.TimelineEvent{ID: "e2", EventType: models.EventTypeCall, Title: "Follow-up", From: "DCA", To: "Customer"}

	backend := new(mockTimelineBackend)
	backend.On("AddTimelineEvent", mock.Anything, "CS-1", models.NewTimelineEvent{
		EventType: models.EventTypeCall,
		Title:     "Follow-up",
		From:      "DCA",
		To:        "Customer",
		Timestamp: "2025-02-01T10:30:00",
	}).Return(&models.TimelineEventResult{Message: "Event added", Event: &created}, nil).Once()
	backend.On("Timeline", mock.Anything, "CS-1").Return([]models.TimelineEvent{existing, created}, nil).Once()

	form := openForm(t, validCall())
	events, err := form.Submit(context.Background(), "CS-1", backend)

	require.NoError(t, err)
	assert.Equal(t, FormIdle, form.State())
	require.Len(t, events, 2)
	assert.Equal(t, "Follow-up", events[1].Title)
	backend.AssertExpectations(t)
}

func TestTimelineFormBackendFailureKeepsInput(t *testing.T) {
	backend := new(mockTimelineBackend)
	backend.On("AddTimelineEvent", mock.Anything, "CS-1", mock.Anything).Return(nil, errors.New("502")).Once()

	in := validCall()
	form := openForm(t, in)
	_, err := form.Submit(context.Background(), "CS-1", backend)

	assert.EqualError(t, err, "502")
	assert.Equal(t, FormEditing, form.State())
	assert.Equal(t, in, form.Input())
	backend.AssertNotCalled(t, "Timeline", mock.Anything, mock.Anything)
}

func TestTimelineFormReloadFailure(t *testing.T) {
	backend := new(mockTimelineBackend)
	backend.On("AddTimelineEvent", mock.Anything, "CS-1", mock.Anything).Return(&models.TimelineEventResult{}, nil).Once()
	backend.On("Timeline", mock.Anything, "CS-1").Return(nil, errors.New("timeout")).Once()

	form := openForm(t, validCall())
	_, err := form.Submit(context.Background(), "CS-1", backend)

	assert.True(t, errors.Is(err, ErrTimelineReload))
	assert.Equal(t, FormIdle, form.State())
}

func TestTimelineFormSubmitRequiresEditing(t *testing.T) {
	_, err := NewTimelineForm().Submit(context.Background(), "CS-1", new(mockTimelineBackend))
	assert.True(t, errors.Is(err, ErrFormState))
}

func TestSetEventTypeClearsTypeFields(t *testing.T) {
	in := validCall()
	in.EventType = models.EventTypePayment
	in.Amount = floatPtr(250)
	form := openForm(t, in)

	require.NoError(t, form.SetEventType(models.EventTypePayment))
	assert.NotNil(t, form.Input().Amount, "same type keeps fields")

	require.NoError(t, form.SetEventType(models.EventTypeEmail))
	assert.Nil(t, form.Input().Amount)
	assert.Equal(t, "Follow-up", form.Input().Title)

	require.NoError(t, form.SetEventType(models.EventTypePayment))
	assert.Nil(t, form.Input().Amount, "amount must not come back")
}

func TestTimelineEventInputPayload(t *testing.T) {
	in := validCall()
	in.EventType = models.EventTypePayment
	in.Amount = floatPtr(99.5)
	in.Description = " partial "

	p, err := in.Payload()
	require.NoError(t, err)
	assert.Equal(t, "partial", p.Description)
	require.NotNil(t, p.Metadata)
	assert.Equal(t, 99.5, *p.Metadata.Amount)

	in = validCall()
	in.EventType = models.EventTypeStatusChange
	in.PreviousStatus = "assigned"
	in.NewStatus = "in_progress"
	in.Timestamp = "2025-02-01T10:30:00Z"
	p, err = in.Payload()
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusInProgress, *p.Metadata.NewStatus)
	assert.Equal(t, models.CaseStatusAssigned, *p.Metadata.PreviousStatus)
	assert.Equal(t, "2025-02-01T10:30:00", p.Timestamp)

	in = validCall()
	in.Timestamp = "2025-02-01T10:30:00+05:00"
	p, err = in.Payload()
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01T05:30:00", p.Timestamp, "offsets are converted to UTC")

	p, err = validCall().Payload()
	require.NoError(t, err)
	assert.Nil(t, p.Metadata)
}
