package services

import (
	"fmt"
	"strconv"
	"time"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the sending side of the Telegram API.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NotifyExpiringTrials напоминает пользователям, что пробный период скоро
// закончится. Каждый триал уведомляется один раз.
func NotifyExpiringTrials(bot Sender, within time.Duration) {
	trials, err := db.ExpiringTrials(within)
	if err != nil {
		logger.NotifyAdmin(fmt.Sprintf("Не удалось выбрать истекающие триалы: %v", err))
		return
	}

	for _, trial := range trials {
		chatID, err := strconv.ParseInt(trial.TelegramID, 10, 64)
		if err != nil {
			continue
		}
		msg := tgbotapi.NewMessage(chatID,
			"⏳ Ваш пробный VPN истекает меньше чем через сутки.\n"+
				"Продлите доступ за 99₽/месяц: нажмите /start и выберите оплату.")
		if _, err := bot.Send(msg); err != nil {
			logger.NotifyAdmin(fmt.Sprintf("Ошибка уведомления пользователя %s: %v", trial.TelegramID, err))
			continue
		}
		if err := db.MarkTrialNotified(trial.ID); err != nil {
			logger.NotifyAdmin(fmt.Sprintf("Не удалось отметить уведомление триала %d: %v", trial.ID, err))
		}
	}
}
