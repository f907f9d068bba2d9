package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/services"
	"debt_flow_app_go/services/backend"
	"debt_flow_app_go/templates/pages"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const auditPageSize = 25

// loadRecovery fetches the monthly series and portfolio totals together
func loadRecovery(ctx context.Context, dash *backend.DashboardService) (*models.DashboardStats, []models.RecoveryPoint, error) {
	var (
		stats  *models.DashboardStats
		points []models.RecoveryPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = dash.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = dash.Recovery(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stats, points, nil
}

// RecoveryStats shows recovered amounts by month
func (h *Handler) RecoveryStats(c echo.Context) error {
	user := middleware.GetCurrentUser(c)
	view := pages.RecoveryStatsView{
		CanExport: h.PDF != nil && h.Access.Allowed(user.Role, "/recovery-stats/report", http.MethodGet),
	}

	stats, points, err := loadRecovery(c.Request().Context(), h.api(c).Dashboard)
	if err != nil {
		msg, expired := h.listFailure(c, err, "recovery stats")
		if expired {
			return h.expireSession(c)
		}
		view.Error = msg
		view.CanExport = false
		triggerToast(c)
	} else {
		view.Stats = stats
		view.Points = points
	}
	return render(c, http.StatusOK, pages.RecoveryStats(user, view))
}

// RecoveryReport renders the recovery stats to PDF through headless Chrome
func (h *Handler) RecoveryReport(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	if h.PDF == nil {
		return h.backendFailure(c, errors.New("pdf generator not configured"), "the report")
	}

	stats, points, err := loadRecovery(ctx, h.api(c).Dashboard)
	if err != nil {
		return h.backendFailure(c, err, "recovery stats")
	}

	now := h.now()
	html, err := services.NewRecoveryReport(stats, points, now).HTML()
	if err != nil {
		log.Error("report render failed", zap.Error(err))
		return h.backendFailure(c, err, "the report")
	}

	pdfCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	pdf, err := h.PDF.Generate(pdfCtx, html, services.DefaultPDFOptions())
	if err != nil {
		log.Error("pdf generation failed", zap.Error(err))
		return h.backendFailure(c, err, "the report")
	}

	if h.Archive != nil {
		key := services.ReportArchiveKey("recovery", now)
		if _, err := h.Archive.Put(ctx, key, bytes.NewReader(pdf), "application/pdf", int64(len(pdf))); err != nil {
			log.Warn("report not archived", zap.String("key", key), zap.Error(err))
		}
	}

	if h.Audit != nil {
		h.Audit.Log(middleware.ActorFrom(c), services.AuditEntry{
			Action:       models.AuditActionExport,
			ResourceType: "Report",
			ResourceID:   "recovery",
			Description:  "Downloaded recovery stats PDF",
		})
	}

	filename := "recovery_report_" + now.Format("20060102") + ".pdf"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// AuditLogs lists the local audit trail
func (h *Handler) AuditLogs(c echo.Context) error {
	filters := services.AuditLogFilters{
		Action:       strings.TrimSpace(c.QueryParam("action")),
		ResourceType: strings.TrimSpace(c.QueryParam("resource")),
		UserID:       strings.TrimSpace(c.QueryParam("user")),
		SearchQuery:  strings.TrimSpace(c.QueryParam("q")),
	}
	filters.DateFrom, filters.DateTo = services.ParseDateRange(c.QueryParam("from"), c.QueryParam("to"))

	query := url.Values{}
	for _, key := range []string{"action", "resource", "user", "q", "from", "to"} {
		if v := strings.TrimSpace(c.QueryParam(key)); v != "" {
			query.Set(key, v)
		}
	}

	view := pages.AuditLogsView{Filters: filters, Query: query}
	result, err := h.Audit.List(c.Request().Context(), filters, pageParam(c), auditPageSize)
	if err != nil {
		logger.FromContext(c.Request().Context()).Error("audit log query failed", zap.Error(err))
		view.Error = "Could not load the audit log"
	} else {
		view.Page = result
	}
	return render(c, http.StatusOK, pages.AuditLogs(middleware.GetCurrentUser(c), view))
}
