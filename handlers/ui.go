package handlers

import (
	"net/http"

	"debt_flow_app_go/middleware"
	"debt_flow_app_go/services"
	"debt_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

// Toast renders the session's visible toast, if any
func (h *Handler) Toast(c echo.Context) error {
	var current *services.Toast
	if t, ok := h.Toasts.Current(middleware.SessionID(c)); ok {
		current = &t
	}
	return render(c, http.StatusOK, partials.Toast(current, h.now()))
}

// ToastDismiss hides the toast before its timer runs out
func (h *Handler) ToastDismiss(c echo.Context) error {
	h.Toasts.Hide(middleware.SessionID(c))
	return c.HTML(http.StatusOK, "")
}

// UploadProgress renders the progress region. The poll that first sees
// the import over tells the page to show the result toast and reload
// its case list.
func (h *Handler) UploadProgress(c echo.Context) error {
	p := h.Progress.Get(middleware.SessionID(c))
	if c.Request().Header.Get("HX-Trigger") == partials.ProgressPollID {
		switch {
		case p.Phase == services.PhaseDone:
			triggerToast(c, "cases:changed")
		case !p.Active():
			triggerToast(c)
		}
	}
	return render(c, http.StatusOK, partials.ProgressBar(p))
}

// UploadProgressMinimize collapses or expands the progress bar
func (h *Handler) UploadProgressMinimize(c echo.Context) error {
	session := middleware.SessionID(c)
	h.Progress.SetMinimized(session, c.FormValue("minimized") == "true")
	return render(c, http.StatusOK, partials.ProgressBar(h.Progress.Get(session)))
}
