package jobs

import (
	"context"
	"time"

	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"

	"go.uber.org/zap"
)

// Broadcaster pushes a message to every connected dashboard
type Broadcaster interface {
	Broadcast(msg []byte)
}

// DashboardRefreshedEvent is the push message sent after a refresh
var DashboardRefreshedEvent = []byte(`{"type":"dashboard:refreshed"}`)

// DashboardRefresher reloads the dashboard snapshot on an interval until
// its context is cancelled.
type DashboardRefresher struct {
	Account  *ServiceAccount
	Cache    *services.DashboardCache
	Hub      Broadcaster // optional
	Interval time.Duration
	Log      *zap.Logger
}

// Run blocks until ctx is done. The first refresh happens immediately.
func (r *DashboardRefresher) Run(ctx context.Context) {
	log := r.log()
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("[JOB] dashboard refresher started", zap.Duration("interval", interval))
	for {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			log.Warn("[JOB] dashboard refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("[JOB] dashboard refresher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Refresh loads one snapshot and stores it unless a newer one landed first
func (r *DashboardRefresher) Refresh(ctx context.Context) error {
	seq := r.Cache.Begin()
	var snap *services.DashboardSnapshot
	err := r.Account.Do(ctx, func(api *backend.API) error {
		var err error
		snap, err = services.LoadDashboard(ctx, seq, api.Dashboard, api.Cases)
		return err
	})
	if err != nil {
		return err
	}

	if !r.Cache.Store(ctx, snap) {
		r.log().Debug("stale dashboard snapshot dropped", zap.Uint64("seq", seq))
		return nil
	}
	if r.Hub != nil {
		r.Hub.Broadcast(DashboardRefreshedEvent)
	}
	return nil
}

func (r *DashboardRefresher) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.L().Named("dashboard_refresher")
}
