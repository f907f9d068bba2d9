package services

import (
	"testing"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
)

func sortIDs(cases []models.Case) []string {
	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	return ids
}

func TestSortCases(t *testing.T) {
	prob := func(v float64) *float64 { return &v }
	days := func(v int) *int { return &v }
	cases := []models.Case{
		{ID: "a", InvoiceAmount: 500, RecoveredAmount: 100, AgingDays: days(10), RecoveryProbability: prob(0.5)},
		{ID: "b", InvoiceAmount: 900, RecoveredAmount: 850, AgingDays: nil, RecoveryProbability: prob(0.9)},
		{ID: "c", InvoiceAmount: 200, RecoveredAmount: 0, AgingDays: days(40), RecoveryProbability: nil},
	}

	assert.Equal(t, []string{"b", "a", "c"}, sortIDs(SortCases(cases, SortByInvoice, SortDesc)))
	assert.Equal(t, []string{"c", "a", "b"}, sortIDs(SortCases(cases, SortByInvoice, SortAsc)))
	assert.Equal(t, []string{"a", "c", "b"}, sortIDs(SortCases(cases, SortByOutstanding, SortDesc)))

	t.Run("nulls last in both directions", func(t *testing.T) {
		assert.Equal(t, []string{"c", "a", "b"}, sortIDs(SortCases(cases, SortByAging, SortDesc)))
		assert.Equal(t, []string{"a", "c", "b"}, sortIDs(SortCases(cases, SortByAging, SortAsc)))
		assert.Equal(t, []string{"a", "b", "c"}, sortIDs(SortCases(cases, SortByProbability, SortAsc)))
	})

	t.Run("no field keeps order and copies", func(t *testing.T) {
		out := SortCases(cases, ParseCaseSortField("bogus"), SortDesc)
		assert.Equal(t, []string{"a", "b", "c"}, sortIDs(out))
		out[0].ID = "changed"
		assert.Equal(t, "a", cases[0].ID)
	})
}
