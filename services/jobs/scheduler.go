package jobs

import (
	"context"
	"time"

	"debt_flow_app_go/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionCleaner removes expired sessions
type SessionCleaner interface {
	Cleanup(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic jobs on a cron
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

// SchedulerConfig lists the jobs to register. Nil jobs are skipped.
type SchedulerConfig struct {
	AutoAssignSpec string
	AutoAssign     *AutoAssignSweep
	Sessions       SessionCleaner
	SessionsSpec   string
}

// NewScheduler registers the jobs without starting them
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	log := zap.L().Named("scheduler")
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})))

	if cfg.AutoAssign != nil && cfg.AutoAssign.Account.Configured() && cfg.AutoAssignSpec != "" {
		sweep := cfg.AutoAssign
		if _, err := c.AddFunc(cfg.AutoAssignSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			_, _ = sweep.Run(ctx)
		}); err != nil {
			return nil, err
		}
		log.Info("[CRON] auto-assign sweep scheduled", zap.String("spec", cfg.AutoAssignSpec))
	}

	if cfg.Sessions != nil {
		spec := cfg.SessionsSpec
		if spec == "" {
			spec = "@every 1h"
		}
		sessions := cfg.Sessions
		if _, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := sessions.Cleanup(ctx); err != nil {
				log.Error("[CRON] session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return nil, err
		}
	}

	return &Scheduler{cron: c, log: log}, nil
}

// Entries is the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("[CRON] scheduler started", zap.Int("jobs", s.Entries()))
}

// Stop waits for running jobs up to ctx's deadline
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("[CRON] stop timed out with jobs still running")
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

var _ SessionCleaner = (*services.AuthStore)(nil)
