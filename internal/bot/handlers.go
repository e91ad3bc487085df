package bot

import (
	"strings"

	"VPN-Connect-API/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sender is the slice of tgbotapi.BotAPI the handlers use; tests substitute
// a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// HandleUpdate разбирает один апдейт Telegram. Ошибки отправки логируются,
// но не возвращаются: Telegram повторит доставку сам, если ответить не 200.
func HandleUpdate(botapi sender, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := msg.Text

	logger.Info("bot update",
		zap.Int64("telegram_id", userID),
		zap.String("text", text))

	var reply tgbotapi.MessageConfig
	switch {
	case strings.HasPrefix(text, "/start"):
		reply = startMessage(chatID, userID, msg.From.FirstName)
	case strings.HasPrefix(text, "/help"):
		reply = helpMessage(chatID)
	default:
		reply = defaultMessage(chatID)
	}

	if _, err := botapi.Send(reply); err != nil {
		logger.Error("bot send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// StartPolling запускает long polling — запасной режим, когда вебхук
// не настроен (локальная разработка).
func StartPolling(botapi *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botapi.GetUpdatesChan(u)

	for update := range updates {
		HandleUpdate(botapi, update)
	}
}
