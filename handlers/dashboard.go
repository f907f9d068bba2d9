package handlers

import (
	"net/http"

	"debt_flow_app_go/logger"
	"debt_flow_app_go/middleware"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/pages"
	"debt_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// dashboardView reads the cached snapshot, loading it with the user's
// token when the cache is cold. A failed load keeps the last snapshot.
func (h *Handler) dashboardView(c echo.Context) (partials.DashboardView, bool) {
	ctx := c.Request().Context()
	now := h.now()
	view := partials.DashboardView{Now: now}
	if h.Config != nil {
		view.Interval = h.Config.DashboardRefreshInterval
	}

	snap, ok := h.Cache.Get(ctx)
	if !ok {
		seq := h.Cache.Begin()
		api := h.api(c)
		loaded, err := services.LoadDashboard(ctx, seq, api.Dashboard, api.Cases)
		if err != nil {
			msg, expired := h.listFailure(c, err, "dashboard")
			if expired {
				return view, false
			}
			view.Error = msg
			return view, true
		}
		if !h.Cache.Store(ctx, loaded) {
			logger.FromContext(ctx).Debug("dashboard load superseded", zap.Uint64("seq", seq))
			if newer, ok := h.Cache.Get(ctx); ok {
				loaded = newer
			}
		}
		snap = loaded
	}

	view.Snapshot = snap
	view.Ready = snap.Ready(h.threshold(), now)
	return view, true
}

// Dashboard renders the admin landing page
func (h *Handler) Dashboard(c echo.Context) error {
	view, ok := h.dashboardView(c)
	if !ok {
		return h.expireSession(c)
	}
	return render(c, http.StatusOK, pages.Dashboard(middleware.GetCurrentUser(c), view))
}

// DashboardPanels is the polled fragment of the dashboard
func (h *Handler) DashboardPanels(c echo.Context) error {
	view, ok := h.dashboardView(c)
	if !ok {
		return h.expireSession(c)
	}
	if view.Error != "" {
		triggerToast(c)
	}
	return render(c, http.StatusOK, partials.DashboardPanels(view))
}
