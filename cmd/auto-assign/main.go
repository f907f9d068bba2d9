package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"debt_flow_app_go/config"
	"debt_flow_app_go/db"
	"debt_flow_app_go/logger"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/services/jobs"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens
func run() int {
	threshold := flag.Int("threshold", -1, "hours a pending case waits before auto-assignment (default from config)")
	notify := flag.Bool("notify", false, "email the run summary to OPS_EMAIL")
	flag.Parse()

	cfg := config.Load()
	zlog, err := logger.New(logger.Config{ServiceName: "auto-assign", Environment: cfg.Environment, Level: cfg.LogLevel})
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer func() { _ = zlog.Sync() }()

	if *threshold < 0 {
		*threshold = cfg.AutoAssignThresholdHours
	}

	account := jobs.NewServiceAccount(backend.NewClient(cfg.APIBaseURL, cfg.APITimeout), cfg.AutoAssignEmail, cfg.AutoAssignPassword)
	if !account.Configured() {
		zlog.Error("AUTO_ASSIGN_EMAIL and AUTO_ASSIGN_PASSWORD must be set")
		return 2
	}

	sweep := &jobs.AutoAssignSweep{
		Account:     account,
		Threshold:   *threshold,
		Concurrency: cfg.AutoAssignConcurrency,
		Log:         zlog.Named("auto_assign_sweep"),
	}

	// The audit trail is optional for one-off runs
	if err := db.Initialize(cfg); err != nil {
		zlog.Warn("Database unavailable, run will not be audited", zap.Error(err))
	} else {
		defer db.Close()
		if err := db.AutoMigrate(&models.AuditLog{}); err != nil {
			zlog.Error("Failed to run migrations", zap.Error(err))
			return 1
		}
		sweep.Audit = services.NewAuditLogger(db.DB)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	outcome, err := sweep.Run(ctx)
	if err != nil {
		zlog.Error("Auto-assign failed", zap.Error(err))
		return 1
	}

	fmt.Println(outcome.Summary())
	for _, a := range outcome.Assigned {
		fmt.Printf("  %s -> %s\n", a.CaseID, a.AgencyName)
	}
	for _, f := range outcome.Failed {
		fmt.Printf("  ! %s: %v\n", f.CaseID, f.Err)
	}
	if sweep.Audit != nil {
		sweep.Audit.Wait()
	}

	if *notify && outcome.Selected > 0 {
		email, err := services.BuildAutoAssignSummaryEmail(cfg.OpsEmail, cfg.AppURL, outcome, time.Now())
		if err != nil {
			zlog.Error("Failed to build summary email", zap.Error(err))
			return 1
		}
		if err := services.NewMailer(cfg).Send(ctx, email); err != nil {
			zlog.Error("Failed to send summary email", zap.Error(err))
			return 1
		}
	}
	if len(outcome.Failed) > 0 {
		return 3
	}
	return 0
}
