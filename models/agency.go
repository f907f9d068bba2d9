package models

// Agency is an external collection partner
type Agency struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	PerformanceScore        float64 `json:"performanceScore"`
	ActiveOutstandingAmount float64 `json:"activeOutstandingAmount"`
	ActiveCases             int     `json:"activeCases,omitempty"`
	Capacity                int     `json:"capacity"`
	CurrentCapacity         int     `json:"currentCapacity"`
	Email                   string  `json:"email"`
	Phone                   string  `json:"phone"`
	Region                  string  `json:"region"`
	Summary                 *string `json:"summary"`
}

// Available reports whether the agency can take another case.
// A zero capacity means the backend does not track a limit.
func (a *Agency) Available() bool {
	return a.Capacity == 0 || a.CurrentCapacity < a.Capacity
}

// Utilization returns current load as a percentage of capacity
func (a *Agency) Utilization() float64 {
	if a.Capacity == 0 {
		return 0
	}
	return float64(a.CurrentCapacity) / float64(a.Capacity) * 100
}

// ScorePercent returns the performance score on a 0-100 scale
func (a *Agency) ScorePercent() float64 {
	return a.PerformanceScore * 100
}

// AssignRequest is the payload of PUT /cases/{id}/assign
type AssignRequest struct {
	AgencyID string `json:"agencyId"`
}
