package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"VPN-Connect-API/internal/panel"

	"github.com/labstack/echo/v4"
)

type serviceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// handleHealth — агрегированная проверка зависимостей. 503 только при
// статусе unhealthy, degraded остаётся 200, чтобы мониторинг не будил
// дежурного из-за отключённой оплаты.
func (s *Server) handleHealth(c echo.Context) error {
	services := map[string]serviceCheck{}

	if s.codec != nil {
		services["jwt"] = serviceCheck{Status: "ok"}
	} else {
		services["jwt"] = serviceCheck{Status: "error", Message: "JWT secret not configured"}
	}

	if s.gateway != nil {
		services["yookassa"] = serviceCheck{Status: "ok"}
	} else {
		services["yookassa"] = serviceCheck{Status: "warning", Message: "YooKassa credentials not configured"}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := s.panel.Login(ctx); err != nil {
		services["panel"] = serviceCheck{Status: "error", Message: "Panel connection failed: " + err.Error()}
	} else {
		services["panel"] = serviceCheck{Status: "ok"}
	}

	if s.store != nil {
		if err := s.store.Set(ctx, "health:probe", "1", time.Minute); err != nil {
			services["store"] = serviceCheck{Status: "warning", Message: "Store unavailable: " + err.Error()}
		} else {
			services["store"] = serviceCheck{Status: "ok"}
		}
	} else {
		services["store"] = serviceCheck{Status: "warning", Message: "Store not configured"}
	}

	status := "healthy"
	for _, sc := range services {
		if sc.Status == "warning" && status == "healthy" {
			status = "degraded"
		}
		if sc.Status == "error" {
			status = "unhealthy"
		}
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    status,
		"services":  services,
	})
}

// handleTraffic отдаёт счётчики трафика клиента по UUID.
func (s *Server) handleTraffic(c echo.Context) error {
	id := c.Param("uuid")
	if id == "" {
		return jsonError(c, http.StatusBadRequest, "UUID is required", "INVALID_UUID")
	}

	stats, err := s.panel.GetClientTraffic(c.Request().Context(), s.inboundID, id)
	if err != nil {
		if errors.Is(err, panel.ErrClientNotFound) {
			return jsonError(c, http.StatusNotFound, "User not found", "USER_NOT_FOUND")
		}
		return jsonError(c, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"upload":     stats.Up,
		"download":   stats.Down,
		"total":      stats.Total,
		"expiryDate": time.UnixMilli(stats.ExpiryTime).UTC().Format(time.RFC3339),
	})
}
