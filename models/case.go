package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CaseStatus is the lifecycle state of a collection case
type CaseStatus string

const (
	CaseStatusPending    CaseStatus = "pending"
	CaseStatusAssigned   CaseStatus = "assigned"
	CaseStatusInProgress CaseStatus = "in_progress"
	CaseStatusResolved   CaseStatus = "resolved"
	CaseStatusLegal      CaseStatus = "legal"
)

// AllCaseStatuses lists every status in lifecycle order
var AllCaseStatuses = []CaseStatus{
	CaseStatusPending,
	CaseStatusAssigned,
	CaseStatusInProgress,
	CaseStatusResolved,
	CaseStatusLegal,
}

// caseTransitions holds the allowed forward moves of the case lifecycle
var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusPending:    {CaseStatusAssigned},
	CaseStatusAssigned:   {CaseStatusAssigned, CaseStatusInProgress},
	CaseStatusInProgress: {CaseStatusResolved, CaseStatusLegal},
}

// ErrUnknownCaseStatus is returned when decoding a status outside the closed set
var ErrUnknownCaseStatus = errors.New("unknown case status")

// ErrRecoveredExceedsInvoice flags a case whose recovered amount is above the invoice
var ErrRecoveredExceedsInvoice = errors.New("recovered amount exceeds invoice amount")

// Valid reports whether s is one of the known statuses
func (s CaseStatus) Valid() bool {
	for _, known := range AllCaseStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns the display text for the status
func (s CaseStatus) Label() string {
	switch s {
	case CaseStatusPending:
		return "Pending"
	case CaseStatusAssigned:
		return "Assigned"
	case CaseStatusInProgress:
		return "In Progress"
	case CaseStatusResolved:
		return "Resolved"
	case CaseStatusLegal:
		return "Legal"
	}
	return string(s)
}

// IsTerminal reports whether no further transitions exist
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusResolved || s == CaseStatusLegal
}

func (s *CaseStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	status := CaseStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCaseStatus, raw)
	}
	*s = status
	return nil
}

// ParseCaseStatus converts a query value into a status. Empty and "all" mean no filter.
func ParseCaseStatus(raw string) (CaseStatus, bool) {
	status := CaseStatus(raw)
	if raw == "" || raw == "all" || !status.Valid() {
		return "", false
	}
	return status, true
}

// CanTransition reports whether a case may move from one status to another
func CanTransition(from, to CaseStatus) bool {
	for _, next := range caseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Case is an overdue-invoice collection matter as served by the backend
type Case struct {
	ID                   string     `json:"id"`
	CaseID               string     `json:"caseId"`
	CustomerName         string     `json:"customerName"`
	CustomerID           *string    `json:"customerId"`
	InvoiceAmount        float64    `json:"invoiceAmount"`
	RecoveredAmount      float64    `json:"recoveredAmount"`
	AgingDays            *int       `json:"agingDays"`
	RecoveryProbability  *float64   `json:"recoveryProbability"`
	Status               CaseStatus `json:"status"`
	AssignedAgency       *string    `json:"assignedAgency"`
	AssignedAgencyID     *string    `json:"assignedAgencyId"`
	AssignedAgencyReason *string    `json:"assignedAgencyReason"`
	AccountNumber        string     `json:"accountNumber"`
	DueDate              Timestamp  `json:"dueDate"`
	LastContact          Timestamp  `json:"lastContact"`
	CreatedAt            Timestamp  `json:"createdAt"`
	AutoAssignAfterHours *int       `json:"autoAssignAfterHours"`
}

// Outstanding returns the amount still to recover, never below zero
func (c *Case) Outstanding() float64 {
	outstanding := c.InvoiceAmount - c.RecoveredAmount
	if outstanding < 0 {
		return 0
	}
	return outstanding
}

// IsAssigned reports whether an agency holds the case
func (c *Case) IsAssigned() bool {
	return c.AssignedAgencyID != nil && *c.AssignedAgencyID != ""
}

// AgencyName returns the assigned agency name or an empty string
func (c *Case) AgencyName() string {
	if c.AssignedAgency == nil {
		return ""
	}
	return *c.AssignedAgency
}

// Validate checks the amount invariant
func (c *Case) Validate() error {
	if c.InvoiceAmount < 0 || c.RecoveredAmount < 0 {
		return fmt.Errorf("case %s: negative amount", c.ID)
	}
	if c.RecoveredAmount > c.InvoiceAmount {
		return fmt.Errorf("case %s: %w", c.ID, ErrRecoveredExceedsInvoice)
	}
	return nil
}

// Priority buckets the recovery probability into High, Medium or Low
func (c *Case) Priority() string {
	if c.RecoveryProbability == nil {
		return "Low"
	}
	p := *c.RecoveryProbability
	switch {
	case p >= 0.85:
		return "High"
	case p >= 0.65:
		return "Medium"
	default:
		return "Low"
	}
}

// CaseList is one page of the case listing
type CaseList struct {
	Cases       []Case `json:"cases"`
	Total       int    `json:"total"`
	Pages       int    `json:"pages"`
	CurrentPage int    `json:"current_page"`
}

// CaseFilter holds the list query parameters
type CaseFilter struct {
	Status CaseStatus
	Page   int
	Limit  int
	Search string
}

// NewCase is the manual case creation payload
type NewCase struct {
	CustomerName string  `json:"customerName"`
	Amount       float64 `json:"amount"`
	CustomerID   string  `json:"customerId,omitempty"`
}

// CaseUpdate is the partial update payload
type CaseUpdate struct {
	Status *CaseStatus `json:"status,omitempty"`
	Amount *float64    `json:"amount,omitempty"`
}
