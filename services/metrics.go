package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	autoAssignTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtflow_auto_assign_cases_total",
		Help: "Cases processed by bulk auto-assignment, by result.",
	}, []string{"result"})

	timelineSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtflow_timeline_submissions_total",
		Help: "Manual timeline event submissions, by result.",
	}, []string{"result"})

	activeToasts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "debtflow_toasts_visible",
		Help: "Toasts currently visible across sessions.",
	})
)
