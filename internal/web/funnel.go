package web

import (
	"errors"
	"net/http"
	"time"

	"VPN-Connect-API/internal/bot"
	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/panel"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// handleBotWebhook принимает апдейты Telegram. Ответ всегда 200: иначе
// Telegram будет бесконечно повторять доставку.
func (s *Server) handleBotWebhook(c echo.Context) error {
	defer logger.NotifyOnPanic("bot webhook")
	var update tgbotapi.Update
	if err := c.Bind(&update); err != nil {
		logger.Warn("bot webhook decode failed", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}
	if s.bot != nil {
		bot.HandleUpdate(s.bot, update)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// handleBotActions — единая точка для кнопок бота:
// action=vpn → пробный доступ, action=pay → платёж, action=offer → оферта.
func (s *Server) handleBotActions(c echo.Context) error {
	action := c.QueryParam("action")
	telegramID := c.QueryParam("tg_id")

	if action == "offer" {
		return c.Redirect(http.StatusFound, s.baseURL+"/offer.html")
	}
	if telegramID == "" {
		return c.HTML(http.StatusBadRequest, errorPage("Откройте ссылку через Telegram бот"))
	}

	switch action {
	case "vpn":
		return s.issueTrial(c, telegramID)
	case "pay":
		return s.redirectToCheckout(c, telegramID)
	default:
		return c.HTML(http.StatusBadRequest, errorPage("Неизвестное действие"))
	}
}

// handleBotPay — прямая ссылка из бота на форму оплаты подписки.
func (s *Server) handleBotPay(c echo.Context) error {
	telegramID := c.QueryParam("tg_id")
	if telegramID == "" {
		return c.HTML(http.StatusBadRequest, errorPage("Откройте ссылку через Telegram бот"))
	}
	return s.redirectToCheckout(c, telegramID)
}

// handleGetVPN — прямая ссылка на пробный доступ, без лендинга.
func (s *Server) handleGetVPN(c echo.Context) error {
	telegramID := c.QueryParam("tg_id")
	if telegramID == "" {
		return c.HTML(http.StatusBadRequest, errorPage("Откройте ссылку через Telegram бот"))
	}
	return s.issueTrial(c, telegramID)
}

// issueTrial выдаёт или возобновляет пробный конфиг и редиректит на
// страницу подключения. Повторное использование истёкшего триала блокируется.
func (s *Server) issueTrial(c echo.Context, telegramID string) error {
	ctx := c.Request().Context()
	email := "tg_" + telegramID + "@vpn.local"

	existing, err := s.panel.GetClientByEmail(ctx, s.inboundID, email)
	switch {
	case err == nil:
		now := time.Now().UnixMilli()
		if existing.ExpiryTime != 0 && existing.ExpiryTime < now {
			return c.HTML(http.StatusForbidden, errorPage(
				"Пробный период закончился. Оплатите подписку 99₽/месяц."))
		}
		days := s.trialDays
		if existing.ExpiryTime != 0 {
			remaining := existing.ExpiryTime - now
			days = int((remaining + 86400000 - 1) / 86400000)
		}
		return s.redirectToLanding(c, existing.ClientInfo, days)

	case errors.Is(err, panel.ErrClientNotFound):
		// Панель клиента не знает, но триал мог быть выдан раньше и
		// вычищен по истечении.
		if trial, err := s.trials.Get(telegramID); err == nil && trial.Used {
			return c.HTML(http.StatusForbidden, errorPage(
				"Пробный период закончился. Оплатите подписку 99₽/месяц."))
		}

		id := uuid.NewString()
		info, err := s.panel.AddClient(ctx, s.inboundID, email, id, s.trialDays)
		if err != nil {
			logger.Error("trial provisioning failed",
				zap.String("telegram_id", telegramID), zap.Error(err))
			return c.HTML(http.StatusInternalServerError, errorPage(
				"Не удалось создать VPN. Попробуйте позже."))
		}

		expiresAt := time.Now().Add(time.Duration(s.trialDays) * 24 * time.Hour)
		if err := s.trials.MarkUsed(&db.Trial{
			TelegramID: telegramID,
			Email:      email,
			UUID:       id,
			Used:       true,
			CreatedAt:  time.Now().Unix(),
			ExpiresAt:  expiresAt.Unix(),
		}); err != nil {
			logger.Error("trial record save failed",
				zap.String("telegram_id", telegramID), zap.Error(err))
		}
		logger.Info("trial issued",
			zap.String("telegram_id", telegramID), zap.String("uuid", id))
		return s.redirectToLanding(c, info, s.trialDays)

	default:
		logger.Error("trial lookup failed",
			zap.String("telegram_id", telegramID), zap.Error(err))
		return c.HTML(http.StatusInternalServerError, errorPage(
			"Сервис временно недоступен. Попробуйте позже."))
	}
}

func (s *Server) redirectToLanding(c echo.Context, info panel.ClientInfo, days int) error {
	configToken, err := s.codec.GenerateConfigToken(info, days)
	if err != nil {
		logger.Error("token generation failed", zap.Error(err))
		return c.HTML(http.StatusInternalServerError, errorPage(
			"Не удалось создать ссылку. Попробуйте позже."))
	}
	return c.Redirect(http.StatusFound, s.baseURL+"/api/go/"+configToken)
}

const (
	monthlyPrice = 99.0
	monthlyDays  = 30
)

// redirectToCheckout создаёт платёж и сразу отправляет на форму оплаты.
func (s *Server) redirectToCheckout(c echo.Context, telegramID string) error {
	if s.gateway == nil {
		return c.HTML(http.StatusInternalServerError, errorPage(
			"Оплата не настроена. Обратитесь в поддержку."))
	}

	email := "tg_" + telegramID + "@vpn.local"
	created, err := s.gateway.CreatePayment(c.Request().Context(),
		monthlyPrice, monthlyDays, email, telegramID, s.baseURL+"/success.html")
	if err != nil {
		logger.Error("payment creation failed",
			zap.String("telegram_id", telegramID), zap.Error(err))
		return c.HTML(http.StatusInternalServerError, errorPage(
			"Ошибка создания платежа. Попробуйте позже."))
	}
	s.recordPending(created.ID, monthlyPrice, email, telegramID)
	return c.Redirect(http.StatusFound, created.ConfirmationURL)
}
