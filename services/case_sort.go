package services

import (
	"sort"

	"debt_flow_app_go/models"
)

// CaseSortField is a numeric column the case tables can sort on
type CaseSortField string

const (
	SortByNone        CaseSortField = ""
	SortByInvoice     CaseSortField = "invoiceAmount"
	SortByOutstanding CaseSortField = "outstanding"
	SortByAging       CaseSortField = "agingDays"
	SortByProbability CaseSortField = "recoveryProbability"
	SortByCreated     CaseSortField = "createdAt"
)

// CaseSortFields lists the sortable columns with their captions
var CaseSortFields = []struct {
	Field CaseSortField
	Label string
}{
	{SortByInvoice, "Invoice amount"},
	{SortByOutstanding, "Outstanding"},
	{SortByAging, "Aging"},
	{SortByProbability, "Recovery probability"},
	{SortByCreated, "Created"},
}

// ParseCaseSortField returns SortByNone for unknown columns
func ParseCaseSortField(raw string) CaseSortField {
	for _, f := range CaseSortFields {
		if string(f.Field) == raw {
			return f.Field
		}
	}
	return SortByNone
}

// caseSortKey returns the column value; ok is false when the backend sent null
func caseSortKey(c *models.Case, field CaseSortField) (float64, bool) {
	switch field {
	case SortByInvoice:
		return c.InvoiceAmount, true
	case SortByOutstanding:
		return c.Outstanding(), true
	case SortByAging:
		if c.AgingDays == nil {
			return 0, false
		}
		return float64(*c.AgingDays), true
	case SortByProbability:
		if c.RecoveryProbability == nil {
			return 0, false
		}
		return *c.RecoveryProbability, true
	case SortByCreated:
		if c.CreatedAt.IsZero() {
			return 0, false
		}
		return float64(c.CreatedAt.Unix()), true
	}
	return 0, false
}

// SortCases returns a sorted copy of cases. Null values go last in both
// directions and ties keep the backend order.
func SortCases(cases []models.Case, field CaseSortField, dir SortDirection) []models.Case {
	sorted := make([]models.Case, len(cases))
	copy(sorted, cases)
	if field == SortByNone {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := caseSortKey(&sorted[i], field)
		b, bok := caseSortKey(&sorted[j], field)
		if aok != bok {
			return aok
		}
		if dir == SortAsc {
			return a < b
		}
		return a > b
	})
	return sorted
}
