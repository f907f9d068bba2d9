package models

// DashboardStats are the portfolio KPIs shown on the admin dashboard
type DashboardStats struct {
	TotalCases      int     `json:"totalCases"`
	ActiveCases     int     `json:"activeCases"`
	ResolvedCases   int     `json:"resolvedCases"`
	TotalDebt       float64 `json:"totalDebt"`
	RecoveredAmount float64 `json:"recoveredAmount"`
	RecoveryRate    float64 `json:"recoveryRate"`
}

// RecoveryPoint is one month of the recovery series
type RecoveryPoint struct {
	Month     string  `json:"month"`
	Recovered float64 `json:"recovered"`
}

// PendingAction is a task waiting on an agency user
type PendingAction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CaseID      string    `json:"caseId"`
	DueDate     Timestamp `json:"dueDate"`
}

// UploadResult is the backend reply to a case import
type UploadResult struct {
	Message      string   `json:"message"`
	CasesCreated int      `json:"cases_created"`
	Errors       []string `json:"errors"`
}

// MessageResponse is the generic backend acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}
