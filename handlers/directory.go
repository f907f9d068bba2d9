package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"debt_flow_app_go/middleware"
	"debt_flow_app_go/models"
	"debt_flow_app_go/templates/pages"
	"debt_flow_app_go/templates/partials"

	"github.com/labstack/echo/v4"
)

const customerPageSize = 20

// Agencies lists the collection agencies with their performance
func (h *Handler) Agencies(c echo.Context) error {
	agencies, err := h.api(c).Agencies.List(c.Request().Context())
	var msg string
	if err != nil {
		var expired bool
		if msg, expired = h.listFailure(c, err, "agencies"); expired {
			return h.expireSession(c)
		}
		triggerToast(c)
	}
	return render(c, http.StatusOK, pages.Agencies(middleware.GetCurrentUser(c), agencies, msg))
}

// AgencyDetail shows one agency and the cases it holds
func (h *Handler) AgencyDetail(c echo.Context) error {
	ctx := c.Request().Context()
	api := h.api(c)
	id := c.Param("id")

	agency, err := api.Agencies.Get(ctx, id)
	if err != nil {
		return h.backendFailure(c, err, "Agency")
	}

	var casesErr string
	cases, err := api.Agencies.Cases(ctx, id)
	if err != nil {
		var expired bool
		if casesErr, expired = h.listFailure(c, err, "agency cases"); expired {
			return h.expireSession(c)
		}
	}
	rows := partials.CaseRows(cases, h.threshold(), h.now())
	return render(c, http.StatusOK, pages.AgencyDetail(middleware.GetCurrentUser(c), agency, rows, casesErr))
}

// Customers is the searchable customer directory
func (h *Handler) Customers(c echo.Context) error {
	search := strings.TrimSpace(c.QueryParam("q"))
	page := pageParam(c)

	view := pages.CustomerListView{Search: search, Page: page, Pages: 1, Query: url.Values{}}
	if search != "" {
		view.Query.Set("q", search)
	}

	list, err := h.api(c).Customers.List(c.Request().Context(), models.CustomerFilter{
		Page:   page,
		Limit:  customerPageSize,
		Search: search,
	})
	if err != nil {
		msg, expired := h.listFailure(c, err, "customers")
		if expired {
			return h.expireSession(c)
		}
		view.Error = msg
		triggerToast(c)
	} else {
		view.Customers = list.Customers
		view.Total = list.Total
		view.Pages = list.Pages
		if list.CurrentPage > 0 {
			view.Page = list.CurrentPage
		}
	}

	if wantsFragment(c, pages.CustomerListTarget) {
		return render(c, http.StatusOK, pages.CustomerList(view))
	}
	return render(c, http.StatusOK, pages.Customers(middleware.GetCurrentUser(c), view))
}

// CustomerDetail shows one customer and their cases
func (h *Handler) CustomerDetail(c echo.Context) error {
	ctx := c.Request().Context()
	api := h.api(c)
	id := c.Param("id")

	customer, err := api.Customers.Get(ctx, id)
	if err != nil {
		return h.backendFailure(c, err, "Customer")
	}

	var casesErr string
	cases, err := api.Customers.Cases(ctx, id)
	if err != nil {
		var expired bool
		if casesErr, expired = h.listFailure(c, err, "customer cases"); expired {
			return h.expireSession(c)
		}
	}
	rows := partials.CaseRows(cases, h.threshold(), h.now())
	return render(c, http.StatusOK, pages.CustomerDetail(middleware.GetCurrentUser(c), customer, rows, casesErr))
}

// PendingActions lists follow-ups the backend says are due
func (h *Handler) PendingActions(c echo.Context) error {
	actions, err := h.api(c).Actions.Pending(c.Request().Context())
	var msg string
	if err != nil {
		var expired bool
		if msg, expired = h.listFailure(c, err, "pending actions"); expired {
			return h.expireSession(c)
		}
		triggerToast(c)
	}
	return render(c, http.StatusOK, pages.PendingActions(middleware.GetCurrentUser(c), actions, msg))
}
