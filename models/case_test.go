package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseOutstanding(t *testing.T) {
	tests := []struct {
		name      string
		invoice   float64
		recovered float64
		want      float64
	}{
		{"nothing recovered", 1000, 0, 1000},
		{"partially recovered", 1000, 250, 750},
		{"fully recovered", 1000, 1000, 0},
		{"over recovered clamps to zero", 1000, 1200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Case{InvoiceAmount: tt.invoice, RecoveredAmount: tt.recovered}
			assert.Equal(t, tt.want, c.Outstanding())
			assert.GreaterOrEqual(t, c.Outstanding(), 0.0)
		})
	}
}

func TestCaseValidate(t *testing.T) {
	ok := Case{ID: "CS-1", InvoiceAmount: 500, RecoveredAmount: 500}
	assert.NoError(t, ok.Validate())

	bad := Case{ID: "CS-2", InvoiceAmount: 500, RecoveredAmount: 600}
	err := bad.Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrRecoveredExceedsInvoice))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(CaseStatusPending, CaseStatusAssigned))
	assert.True(t, CanTransition(CaseStatusAssigned, CaseStatusInProgress))
	assert.True(t, CanTransition(CaseStatusAssigned, CaseStatusAssigned), "reassignment")
	assert.True(t, CanTransition(CaseStatusInProgress, CaseStatusResolved))
	assert.True(t, CanTransition(CaseStatusInProgress, CaseStatusLegal))

	assert.False(t, CanTransition(CaseStatusPending, CaseStatusResolved))
	assert.False(t, CanTransition(CaseStatusResolved, CaseStatusPending))
	assert.False(t, CanTransition(CaseStatusLegal, CaseStatusInProgress))
}

func TestCasePriority(t *testing.T) {
	p := func(v float64) *float64 { return &v }

	assert.Equal(t, "High", (&Case{RecoveryProbability: p(0.85)}).Priority())
	assert.Equal(t, "Medium", (&Case{RecoveryProbability: p(0.7)}).Priority())
	assert.Equal(t, "Low", (&Case{RecoveryProbability: p(0.2)}).Priority())
	assert.Equal(t, "Low", (&Case{}).Priority())
}

func TestCaseDecodeBackendShape(t *testing.T) {
	payload := `{
		"id": "CS-2024-001",
		"caseId": "CS-2024-001",
		"customerName": "Acme Logistics",
		"invoiceAmount": 45000,
		"recoveredAmount": 5000,
		"agingDays": 45,
		"recoveryProbability": 0.72,
		"assignedAgency": null,
		"assignedAgencyId": null,
		"assignedAgencyReason": null,
		"status": "pending",
		"accountNumber": "ACC-1001",
		"dueDate": "2024-01-15",
		"lastContact": "2024-02-01 10:30:00",
		"createdAt": "2024-02-10T08:00:00Z",
		"autoAssignAfterHours": 12,
		"customerId": "cust-1"
	}`

	var c Case
	require.NoError(t, json.Unmarshal([]byte(payload), &c))

	assert.Equal(t, CaseStatusPending, c.Status)
	assert.False(t, c.IsAssigned())
	assert.Equal(t, 40000.0, c.Outstanding())
	require.NotNil(t, c.AutoAssignAfterHours)
	assert.Equal(t, 12, *c.AutoAssignAfterHours)
	assert.True(t, c.CreatedAt.Equal(time.Date(2024, 2, 10, 8, 0, 0, 0, time.UTC)))
	assert.True(t, c.LastContact.Equal(time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)))
}

func TestCaseStatusRejectsUnknown(t *testing.T) {
	var s CaseStatus
	err := json.Unmarshal([]byte(`"dismissed"`), &s)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCaseStatus))
}

func TestParseCaseStatus(t *testing.T) {
	s, ok := ParseCaseStatus("in_progress")
	assert.True(t, ok)
	assert.Equal(t, CaseStatusInProgress, s)

	_, ok = ParseCaseStatus("all")
	assert.False(t, ok)
	_, ok = ParseCaseStatus("")
	assert.False(t, ok)
	_, ok = ParseCaseStatus("bogus")
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("fedex")
	assert.NoError(t, err)
	assert.Equal(t, RoleFedex, role)

	role, err = ParseRole("dca")
	assert.NoError(t, err)
	assert.Equal(t, RoleAgency, role)

	_, err = ParseRole("superuser")
	assert.True(t, errors.Is(err, ErrUnknownRole))
}

func TestAgencyAvailable(t *testing.T) {
	assert.True(t, (&Agency{Capacity: 0, CurrentCapacity: 40}).Available())
	assert.True(t, (&Agency{Capacity: 10, CurrentCapacity: 9}).Available())
	assert.False(t, (&Agency{Capacity: 10, CurrentCapacity: 10}).Available())
}
