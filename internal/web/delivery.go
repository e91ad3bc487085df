package web

import (
	"net/http"
	"time"

	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/token"
	"VPN-Connect-API/internal/vless"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// validToken extracts and verifies the :token path parameter. On failure it
// has already written the 400/401 envelope and returns nil.
func (s *Server) validToken(c echo.Context) *token.Payload {
	raw := c.Param("token")
	if raw == "" {
		_ = jsonError(c, http.StatusBadRequest, "Token is required", "TOKEN_MISSING")
		return nil
	}
	payload, err := s.codec.ValidateConfigToken(raw)
	if err != nil {
		logger.Warn("config token rejected", zap.Error(err))
		_ = jsonError(c, http.StatusUnauthorized, "Invalid or expired token", "TOKEN_INVALID")
		return nil
	}
	return payload
}

// handleConfig отдаёт полный Xray JSON для v2rayN/v2rayNG.
func (s *Server) handleConfig(c echo.Context) error {
	payload := s.validToken(c)
	if payload == nil {
		return nil
	}

	h := c.Response().Header()
	h.Set("Content-Disposition", `attachment; filename="xray_config.json"`)
	h.Set("Cache-Control", "no-store, must-revalidate")
	return c.JSON(http.StatusOK, vless.BuildXrayConfig(payload.ClientInfo))
}

// handleLink отдаёт vless:// ссылку для ручного импорта.
func (s *Server) handleLink(c echo.Context) error {
	payload := s.validToken(c)
	if payload == nil {
		return nil
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"vlessUri":   vless.BuildURI(payload.ClientInfo, vless.DefaultLabel),
		"serverName": vless.DefaultLabel,
		"expiresAt":  payload.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Подписочный формат по умолчанию обещает 10 ГБ, пока панель не ответила
// реальными счётчиками.
const fallbackTotalBytes = int64(10 * 1024 * 1024 * 1024)

// handleSub отдаёт base64-подписку, которую понимают Hiddify, Streisand,
// FoXray и v2rayN.
func (s *Server) handleSub(c echo.Context) error {
	payload := s.validToken(c)
	if payload == nil {
		return nil
	}

	expire := payload.ExpiresAt.Unix()
	userinfo := vless.UserinfoHeader(0, 0, fallbackTotalBytes, expire)
	if stats, err := s.panel.GetClientTraffic(c.Request().Context(), s.inboundID, payload.UUID); err == nil {
		total := stats.Total
		if total == 0 {
			total = fallbackTotalBytes
		}
		userinfo = vless.UserinfoHeader(stats.Up, stats.Down, total, expire)
	}

	h := c.Response().Header()
	h.Set("Content-Disposition", `attachment; filename="vpn_subscription.txt"`)
	h.Set("Cache-Control", "no-store, must-revalidate")
	h.Set("Subscription-Userinfo", userinfo)
	h.Set("Profile-Update-Interval", "1")
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8",
		[]byte(vless.BuildSubscription(payload.ClientInfo, vless.DefaultLabel)))
}

// handleGo — страница подключения, подстроенная под устройство.
func (s *Server) handleGo(c echo.Context) error {
	raw := c.Param("token")
	if _, err := s.codec.ValidateConfigToken(raw); err != nil {
		logger.Warn("landing token rejected", zap.Error(err))
		return c.HTML(http.StatusUnauthorized, errorPage(
			"Ссылка истекла или недействительна. Пожалуйста, создайте новый VPN конфиг."))
	}

	subURL := s.baseURL + "/api/sub/" + raw
	qrURL := s.baseURL + "/api/qr/" + raw

	var page string
	switch vless.Classify(c.Request().UserAgent()) {
	case vless.PlatformIOS:
		page = iosPage(subURL)
	case vless.PlatformAndroid:
		page = androidPage(subURL)
	case vless.PlatformWindows:
		page = windowsPage(subURL, qrURL)
	case vless.PlatformMacOS:
		page = macPage(subURL, qrURL)
	default:
		page = universalPage(subURL, qrURL)
	}
	return c.HTML(http.StatusOK, page)
}

// handleQR рендерит vless:// ссылку как QR-код.
func (s *Server) handleQR(c echo.Context) error {
	payload := s.validToken(c)
	if payload == nil {
		return nil
	}

	uri := vless.BuildURI(payload.ClientInfo, vless.DefaultLabel)
	png, err := qrcode.Encode(uri, qrcode.Medium, 512)
	if err != nil {
		logger.Error("qr encode failed", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "QR generation failed", "INTERNAL_ERROR")
	}
	c.Response().Header().Set("Cache-Control", "no-store, must-revalidate")
	return c.Blob(http.StatusOK, "image/png", png)
}
