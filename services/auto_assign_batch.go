package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services/backend"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoAgencyAvailable is recorded for a case when every agency is at capacity
var ErrNoAgencyAvailable = errors.New("no agency with free capacity")

// CaseAssigner lists and assigns cases on the backend
type CaseAssigner interface {
	ListAll(ctx context.Context, status models.CaseStatus, pageSize int) ([]models.Case, error)
	Assign(ctx context.Context, id, agencyID string) (*models.Case, error)
}

// AgencyLister lists agencies on the backend
type AgencyLister interface {
	List(ctx context.Context) ([]models.Agency, error)
}

// Assignment is one case successfully handed to an agency
type Assignment struct {
	CaseID     string
	AgencyID   string
	AgencyName string
}

// AssignFailure is one case that could not be assigned
type AssignFailure struct {
	CaseID string
	Err    error
}

// AssignOutcome is the combined result of a bulk auto-assign run
type AssignOutcome struct {
	Selected int
	Assigned []Assignment
	Failed   []AssignFailure
}

// Err combines every per-case failure, or nil when all succeeded
func (o *AssignOutcome) Err() error {
	var err error
	for _, f := range o.Failed {
		err = multierr.Append(err, fmt.Errorf("case %s: %w", f.CaseID, f.Err))
	}
	return err
}

// Summary is the user-facing one-line result. Each failed case carries
// its reason, e.g. "failed: CS-2 (no agency with free capacity)".
func (o *AssignOutcome) Summary() string {
	if o.Selected == 0 {
		return "No cases are ready for auto-assignment"
	}
	if len(o.Failed) == 0 {
		return fmt.Sprintf("Auto-assigned %d of %d cases", len(o.Assigned), o.Selected)
	}
	failed := make([]string, 0, len(o.Failed))
	for _, f := range o.Failed {
		failed = append(failed, fmt.Sprintf("%s (%s)", f.CaseID, f.Reason()))
	}
	return fmt.Sprintf("Auto-assigned %d of %d cases; failed: %s", len(o.Assigned), o.Selected, strings.Join(failed, ", "))
}

// Reason is the user-facing cause of the failure
func (f AssignFailure) Reason() string {
	if errors.Is(f.Err, ErrNoAgencyAvailable) {
		return ErrNoAgencyAvailable.Error()
	}
	return backend.UserMessage(f.Err, "backend unavailable")
}

// AutoAssigner hands every overdue pending case to the best available agency
type AutoAssigner struct {
	Cases       CaseAssigner
	Agencies    AgencyLister
	Threshold   int
	Concurrency int
	Now         func() time.Time
	Log         *zap.Logger

	// OnProgress, when set, is called after each case completes
	OnProgress func(done, total int)
}

// NewAutoAssigner builds an assigner with defaults for zero values
func NewAutoAssigner(cases CaseAssigner, agencies AgencyLister, threshold, concurrency int) *AutoAssigner {
	if threshold < 0 {
		threshold = DefaultAutoAssignThresholdHours
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &AutoAssigner{
		Cases:       cases,
		Agencies:    agencies,
		Threshold:   threshold,
		Concurrency: concurrency,
		Now:         time.Now,
		Log:         zap.L().Named("auto_assign"),
	}
}

type plannedAssignment struct {
	caseID string
	agency *models.Agency
}

// plan picks an agency for every ready case. Capacity is tracked locally
// so a full agency stops being chosen.
func (a *AutoAssigner) plan(ready []ReadyCase, agencies []models.Agency) []plannedAssignment {
	pool := make([]models.Agency, len(agencies))
	copy(pool, agencies)

	plan := make([]plannedAssignment, 0, len(ready))
	for _, rc := range ready {
		best := PickAgency(pool)
		if best == nil {
			plan = append(plan, plannedAssignment{caseID: rc.Case.ID})
			continue
		}
		chosen := *best
		best.CurrentCapacity++
		plan = append(plan, plannedAssignment{caseID: rc.Case.ID, agency: &chosen})
	}
	return plan
}

// Run performs one bulk pass. The returned error covers listing failures
// only; per-case failures are reported in the outcome.
func (a *AutoAssigner) Run(ctx context.Context) (*AssignOutcome, error) {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	log := a.Log
	if log == nil {
		log = zap.L()
	}

	pending, err := a.Cases.ListAll(ctx, models.CaseStatusPending, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending cases: %w", err)
	}
	agencies, err := a.Agencies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}

	ready := SelectAutoAssignReady(pending, a.Threshold, now())
	plan := a.plan(ready, agencies)
	outcome := &AssignOutcome{Selected: len(plan)}
	if len(plan) == 0 {
		return outcome, nil
	}

	results := make([]error, len(plan))
	var (
		mu   sync.Mutex
		done int
		g    errgroup.Group
	)
	g.SetLimit(a.Concurrency)

	for i, p := range plan {
		g.Go(func() error {
			var err error
			if p.agency == nil {
				err = ErrNoAgencyAvailable
			} else {
				_, err = a.Cases.Assign(ctx, p.caseID, p.agency.ID)
			}
			results[i] = err

			mu.Lock()
			done++
			current := done
			mu.Unlock()
			if a.OnProgress != nil {
				a.OnProgress(current, len(plan))
			}
			// never cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range plan {
		if results[i] != nil {
			outcome.Failed = append(outcome.Failed, AssignFailure{CaseID: p.caseID, Err: results[i]})
			autoAssignTotal.WithLabelValues("failed").Inc()
			log.Warn("auto-assign failed", zap.String("case_id", p.caseID), zap.Error(results[i]))
			continue
		}
		outcome.Assigned = append(outcome.Assigned, Assignment{
			CaseID:     p.caseID,
			AgencyID:   p.agency.ID,
			AgencyName: p.agency.Name,
		})
		autoAssignTotal.WithLabelValues("assigned").Inc()
	}

	log.Info("auto-assign run finished",
		zap.Int("selected", outcome.Selected),
		zap.Int("assigned", len(outcome.Assigned)),
		zap.Int("failed", len(outcome.Failed)),
	)
	return outcome, nil
}
