package jobs

import (
	"context"
	"time"

	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"

	"go.uber.org/zap"
)

// AutoAssignSweep is the scheduled bulk auto-assign pass
type AutoAssignSweep struct {
	Account     *ServiceAccount
	Threshold   int
	Concurrency int

	// Optional
	Mailer   services.Mailer
	OpsEmail string
	AppURL   string
	Cache    *services.DashboardCache
	Audit    *services.AuditLogger

	Log *zap.Logger
	Now func() time.Time
}

// Run performs one pass. It is safe to call from cron and from the CLI.
func (s *AutoAssignSweep) Run(ctx context.Context) (*services.AssignOutcome, error) {
	log := s.Log
	if log == nil {
		log = zap.L().Named("auto_assign_sweep")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	var outcome *services.AssignOutcome
	err := s.Account.Do(ctx, func(api *backend.API) error {
		assigner := services.NewAutoAssigner(api.Cases, api.Agencies, s.Threshold, s.Concurrency)
		assigner.Now = now
		assigner.Log = log
		var err error
		outcome, err = assigner.Run(ctx)
		return err
	})
	if err != nil {
		log.Error("[JOB] auto-assign sweep failed", zap.Error(err))
		return nil, err
	}

	log.Info("[JOB] auto-assign sweep finished",
		zap.Int("selected", outcome.Selected),
		zap.Int("assigned", len(outcome.Assigned)),
		zap.Int("failed", len(outcome.Failed)),
	)
	if outcome.Selected == 0 {
		return outcome, nil
	}

	if s.Cache != nil && len(outcome.Assigned) > 0 {
		s.Cache.Invalidate(ctx)
	}
	if s.Audit != nil {
		for _, a := range outcome.Assigned {
			s.Audit.Log(services.Actor{UserName: "auto-assign", UserRole: "system"}, services.AuditEntry{
				Action:       models.AuditActionAutoAssign,
				ResourceType: "Case",
				ResourceID:   a.CaseID,
				Description:  "Auto-assigned to " + a.AgencyName,
			})
		}
	}
	if s.Mailer != nil && s.OpsEmail != "" {
		email, err := services.BuildAutoAssignSummaryEmail(s.OpsEmail, s.AppURL, outcome, now())
		if err != nil {
			log.Error("[JOB] failed to build summary email", zap.Error(err))
		} else {
			services.SendEmailAsync(s.Mailer, email)
		}
	}
	return outcome, nil
}
