package pages

import (
	"context"

	"debt_flow_app_go/models"
	"debt_flow_app_go/templates/components"
	"debt_flow_app_go/templates/partials"

	"github.com/a-h/templ"
)

// Dashboard is the admin landing page
func Dashboard(user *models.User, panels partials.DashboardView) templ.Component {
	return page("Dashboard", "dashboard", user, func(ctx context.Context, w *components.Writer) {
		heading(w, "Dashboard", "Portfolio overview and cases waiting for assignment")
		w.Raw(`<div id="dashboard-live" data-ws="/ws/dashboard"></div>`)
		w.Render(ctx, partials.DashboardPanels(panels))
	})
}
