package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/payment"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type createUserRequest struct {
	Email        string `json:"email"`
	PlanDuration int    `json:"planDuration"`
	Secret       string `json:"secret"`
}

// handleCreateUser создаёт клиента в панели напрямую. Закрыт общим
// секретом, если BOT_SECRET задан.
func (s *Server) handleCreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}

	if s.botSecret != "" && req.Secret != s.botSecret {
		return jsonError(c, http.StatusForbidden, "Forbidden", "INVALID_SECRET")
	}
	if !strings.Contains(req.Email, "@") {
		return jsonError(c, http.StatusBadRequest, "Valid email is required", "INVALID_EMAIL")
	}
	days := req.PlanDuration
	if days == 0 {
		days = 30
	}
	if days < 1 || days > 365 {
		return jsonError(c, http.StatusBadRequest, "Plan duration must be 1-365 days", "INVALID_DURATION")
	}

	id := uuid.NewString()
	info, err := s.panel.AddClient(c.Request().Context(), s.inboundID, req.Email, id, days)
	if err != nil {
		logger.Error("user creation failed", zap.String("email", req.Email), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}

	configToken, err := s.codec.GenerateConfigToken(info, days)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}

	logger.Info("user created", zap.String("email", req.Email), zap.Int("days", days))
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"uuid":        info.UUID,
			"email":       req.Email,
			"configToken": configToken,
			"configUrl":   s.baseURL + "/api/config/" + configToken,
			"expiresAt":   time.Now().Add(time.Duration(days) * 24 * time.Hour).UTC().Format(time.RFC3339),
		},
	})
}

type createPaymentRequest struct {
	Amount       float64 `json:"amount"`
	PlanDuration int     `json:"planDuration"`
	TelegramID   string  `json:"telegramId"`
	Email        string  `json:"email"`
}

// handlePaymentCreate создаёт платёж в YooKassa и возвращает ссылку на
// форму оплаты.
func (s *Server) handlePaymentCreate(c echo.Context) error {
	if s.gateway == nil {
		return jsonError(c, http.StatusInternalServerError, "Payment not configured", "PAYMENT_NOT_CONFIGURED")
	}

	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
	}
	if req.Amount == 0 {
		req.Amount = monthlyPrice
	}
	if req.PlanDuration == 0 {
		req.PlanDuration = monthlyDays
	}
	if req.Email == "" {
		req.Email = fmt.Sprintf("user_%d@vpn.local", time.Now().Unix())
	}

	created, err := s.gateway.CreatePayment(c.Request().Context(),
		req.Amount, req.PlanDuration, req.Email, req.TelegramID, s.baseURL+"/success.html")
	if err != nil {
		logger.Error("payment creation failed", zap.String("email", req.Email), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, err.Error(), "PAYMENT_ERROR")
	}
	s.recordPending(created.ID, req.Amount, req.Email, req.TelegramID)

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"paymentId":       created.ID,
			"confirmationUrl": created.ConfirmationURL,
			"status":          created.Status,
		},
	})
}

// recordPending фиксирует выставленный платёж до подтверждения шлюзом, чтобы
// страница успеха могла опрашивать его статус.
func (s *Server) recordPending(paymentID string, amount float64, email, telegramID string) {
	if s.payments == nil {
		return
	}
	if err := s.payments.Save(&db.Payment{
		PaymentID:  paymentID,
		Email:      email,
		TelegramID: telegramID,
		Amount:     amount,
		Status:     db.StatusPending,
	}); err != nil {
		logger.Warn("pending payment record save failed",
			zap.String("payment_id", paymentID), zap.Error(err))
	}
}

// handlePaymentWebhook принимает уведомления YooKassa. Источник сверяется
// со списком сетей шлюза; результат обработки всегда отдаётся с кодом 200.
func (s *Server) handlePaymentWebhook(c echo.Context) error {
	defer logger.NotifyOnPanic("payment webhook")
	ip := c.RealIP()
	if !s.allowlist.Allowed(ip) {
		logger.Warn("webhook from unknown address", zap.String("ip", ip))
		return jsonError(c, http.StatusForbidden, "Forbidden", "FORBIDDEN")
	}

	var n payment.Notification
	if err := c.Bind(&n); err != nil {
		logger.Warn("webhook decode failed", zap.Error(err))
		return c.JSON(http.StatusOK, payment.Result{Status: "ignored"})
	}

	return c.JSON(http.StatusOK, s.processor.Process(c.Request().Context(), n))
}

// handlePaymentStatus — опрос со страницы успешной оплаты: подтверждён ли
// платёж и где забрать конфиг.
func (s *Server) handlePaymentStatus(c echo.Context) error {
	var record *db.Payment

	if id := c.QueryParam("payment_id"); id != "" {
		if p, err := s.payments.GetByID(id); err == nil {
			record = p
		}
	}
	if record == nil {
		if email := c.QueryParam("email"); email != "" {
			if p, err := s.payments.GetByEmail(email); err == nil {
				record = p
			}
		}
	}
	if record == nil {
		if tgID := c.QueryParam("tg_id"); tgID != "" {
			if p, err := s.payments.GetByTelegramID(tgID); err == nil {
				record = p
			}
		}
	}

	if record == nil || record.Status != db.StatusSucceeded {
		return c.JSON(http.StatusOK, map[string]any{
			"success":   true,
			"confirmed": false,
			"message":   "Платёж ещё не подтверждён. Подождите или обратитесь в поддержку.",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"confirmed": true,
		"data": map[string]any{
			"configUrl": record.ConfigURL,
			"email":     record.Email,
			"expiresAt": time.Unix(record.ExpiresAt, 0).UTC().Format(time.RFC3339),
		},
	})
}
