package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		expect  time.Time
		wantErr bool
	}{
		{
			name:   "ISO with Z",
			input:  `"2024-03-01T09:15:00Z"`,
			expect: time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC),
		},
		{
			name:   "ISO with fraction and no zone",
			input:  `"2024-03-01T09:15:00.123456"`,
			expect: time.Date(2024, 3, 1, 9, 15, 0, 123456000, time.UTC),
		},
		{
			name:   "SQL layout",
			input:  `"2024-03-01 09:15:00"`,
			expect: time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC),
		},
		{
			name:   "Date only",
			input:  `"2024-03-01"`,
			expect: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "Null value",
			input: `null`,
		},
		{
			name:  "Empty string",
			input: `""`,
		},
		{
			name:    "Invalid format",
			input:   `"01/03/2024"`,
			wantErr: true,
		},
		{
			name:    "Not a string",
			input:   `12345`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tt.expect.IsZero() {
				assert.True(t, ts.IsZero())
				assert.Nil(t, ts.Ptr())
			} else {
				assert.True(t, tt.expect.Equal(ts.Time), "got %s", ts.Time)
			}
		})
	}
}

func TestTimelineEventDecode(t *testing.T) {
	payload := `{
		"id": "evt-1",
		"timestamp": "2024-01-20T10:00:00Z",
		"from": "fedex",
		"to": "customer",
		"eventType": "payment",
		"title": "Partial payment",
		"description": "Customer paid part of the balance",
		"metadata": {"amount": 2500}
	}`

	var e TimelineEvent
	assert.NoError(t, json.Unmarshal([]byte(payload), &e))
	assert.Equal(t, EventTypePayment, e.EventType)
	if assert.NotNil(t, e.Meta().Amount) {
		assert.Equal(t, 2500.0, *e.Meta().Amount)
	}

	var noMeta TimelineEvent
	assert.NoError(t, json.Unmarshal([]byte(`{"id":"evt-2","eventType":"call","metadata":null}`), &noMeta))
	assert.Nil(t, noMeta.Meta().Amount)
}

func TestEventTypeRejectsUnknown(t *testing.T) {
	var et EventType
	err := json.Unmarshal([]byte(`"manual_update"`), &et)
	assert.True(t, errors.Is(err, ErrUnknownEventType))
}
