package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"debt_flow_app_go/models"
)

// DefaultAutoAssignThresholdHours applies when a case carries no threshold
const DefaultAutoAssignThresholdHours = 24

// ErrInvalidThreshold is returned for negative thresholds
var ErrInvalidThreshold = errors.New("auto-assign threshold must not be negative")

// AutoAssignStatus describes how close a case is to automatic assignment.
// Exactly one of HoursOverdue and WillAutoAssignIn is meaningful, chosen by IsOverdue.
type AutoAssignStatus struct {
	ThresholdHours     int
	HoursSinceCreation int
	IsOverdue          bool
	HoursOverdue       int
	WillAutoAssignIn   int
}

// EvaluateAutoAssign computes eligibility from the creation time. A nil
// threshold falls back to the default; a creation time after now counts as zero hours.
func EvaluateAutoAssign(createdAt time.Time, thresholdHours *int, now time.Time) (AutoAssignStatus, error) {
	threshold := DefaultAutoAssignThresholdHours
	if thresholdHours != nil {
		threshold = *thresholdHours
	}
	if threshold < 0 {
		return AutoAssignStatus{}, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}

	hours := 0
	if elapsed := now.Sub(createdAt); elapsed > 0 {
		hours = int(elapsed / time.Hour)
	}

	status := AutoAssignStatus{
		ThresholdHours:     threshold,
		HoursSinceCreation: hours,
		IsOverdue:          hours >= threshold,
	}
	if status.IsOverdue {
		status.HoursOverdue = hours - threshold
	} else {
		status.WillAutoAssignIn = threshold - hours
	}
	return status, nil
}

// EvaluateCase applies EvaluateAutoAssign to a case, using fallback when
// the case has no threshold of its own.
func EvaluateCase(c *models.Case, fallback int, now time.Time) (AutoAssignStatus, error) {
	threshold := c.AutoAssignAfterHours
	if threshold == nil || *threshold < 0 {
		threshold = &fallback
	}
	return EvaluateAutoAssign(c.CreatedAt.Time, threshold, now)
}

// Label renders the status as "N overdue" or "Auto-assign in N"
func (s AutoAssignStatus) Label() string {
	if s.IsOverdue {
		return FormatHours(float64(s.HoursOverdue)) + " overdue"
	}
	return "Auto-assign in " + FormatHours(float64(s.WillAutoAssignIn))
}

// FormatHours renders a duration in hours as "45m", "5h", "2d" or "1d 1h"
func FormatHours(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	if hours < 1 {
		return fmt.Sprintf("%dm", int(math.Floor(hours*60)))
	}
	whole := int(math.Floor(hours))
	if whole < 24 {
		return fmt.Sprintf("%dh", whole)
	}
	days := whole / 24
	rem := whole % 24
	if rem == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, rem)
}

// ReadyCase pairs a case with its evaluated status
type ReadyCase struct {
	Case   models.Case
	Status AutoAssignStatus
}

// SelectAutoAssignReady keeps pending, unassigned cases that are overdue,
// preserving input order.
func SelectAutoAssignReady(cases []models.Case, fallback int, now time.Time) []ReadyCase {
	var ready []ReadyCase
	for _, c := range cases {
		if c.Status != models.CaseStatusPending || c.IsAssigned() {
			continue
		}
		status, err := EvaluateCase(&c, fallback, now)
		if err != nil || !status.IsOverdue {
			continue
		}
		ready = append(ready, ReadyCase{Case: c, Status: status})
	}
	return ready
}

// PickAgency returns the available agency with the highest performance
// score. Ties go to the first one encountered. Nil when none is available.
func PickAgency(agencies []models.Agency) *models.Agency {
	var best *models.Agency
	for i := range agencies {
		a := &agencies[i]
		if !a.Available() {
			continue
		}
		if best == nil || a.PerformanceScore > best.PerformanceScore {
			best = a
		}
	}
	return best
}
