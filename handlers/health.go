package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Sockets  int    `json:"sockets"`
}

// Healthz reports liveness and whether the local database answers
func (h *Handler) Healthz(c echo.Context) error {
	resp := healthResponse{Status: "ok"}
	if h.Hub != nil {
		resp.Sockets = h.Hub.Clients()
	}
	if h.DB == nil {
		return c.JSON(http.StatusOK, resp)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp.Database = "ok"
	return c.JSON(http.StatusOK, resp)
}
