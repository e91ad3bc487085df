package bot

import (
	"fmt"
	"strconv"

	"VPN-Connect-API/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Ссылки на клиентские приложения. Streisand для iOS, Hiddify для
// остальных платформ.
const (
	iosAppURL     = "https://apps.apple.com/app/streisand/id6450534064"
	androidAppURL = "https://play.google.com/store/apps/details?id=app.hiddify.com"
	desktopAppURL = "https://github.com/hiddify/hiddify-next/releases"
	apkDirectURL  = "https://github.com/hiddify/hiddify-next/releases/latest/download/Hiddify-Android-universal.apk"
)

// startMessage собирает приветствие с воронкой: скачать приложение,
// получить пробный доступ, оплатить.
func startMessage(chatID, userID int64, firstName string) tgbotapi.MessageConfig {
	baseURL := config.AppCfg.BaseURL
	tgID := strconv.FormatInt(userID, 10)

	vpnURL := baseURL + "/api/bot/actions?action=vpn&tg_id=" + tgID
	payURL := baseURL + "/api/bot/actions?action=pay&tg_id=" + tgID
	offerURL := baseURL + "/api/bot/actions?action=offer"

	text := fmt.Sprintf(
		"👋 Привет, <b>%s</b>!\n\n"+
			"🛡 <b>VPN Connect</b> — безлимитный доступ\n\n"+
			"▶️ YouTube   📸 Instagram   👤 Facebook\n"+
			"🐦 Twitter   🎵 Spotify   🎬 Netflix\n"+
			"💬 ChatGPT   🎮 Discord   📺 Twitch\n\n"+
			"✅ Все зарубежные сервисы\n"+
			"✅ Российские банки работают\n"+
			"✅ Высокая скорость\n\n"+
			"━━━━━━━━━━━━━━━━━━━━━━━\n\n"+
			"🎁 <b>3 ДНЯ БЕСПЛАТНО</b>\n"+
			"💰 Потом всего <b>99₽/месяц</b>\n\n"+
			"━━━━━━━━━━━━━━━━━━━━━━━\n\n"+
			"📱 <b>КАК ПОДКЛЮЧИТЬ:</b>\n\n"+
			"<b>ШАГ 1:</b> Выберите ваше устройство\nи скачайте приложение 👇\n\n"+
			"<b>ШАГ 2:</b> Вернитесь сюда и нажмите\n\"🚀 ПОЛУЧИТЬ VPN БЕСПЛАТНО\"\nВсё настроится автоматически! ✨",
		firstName)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📱 Скачать для iPhone", iosAppURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🤖 Скачать для Android", androidAppURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💻 Скачать для ПК", desktopAppURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📦 Скачать напрямую (APK)", apkDirectURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🚀 ПОЛУЧИТЬ VPN БЕСПЛАТНО", vpnURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Оплатить 99₽/месяц", payURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📄 Договор оферты", offerURL),
		),
	)
	return msg
}

func helpMessage(chatID int64) tgbotapi.MessageConfig {
	text := "ℹ️ <b>Помощь</b>\n\n" +
		"<b>Доступные команды:</b>\n" +
		"/start - Получить VPN\n" +
		"/help - Показать эту справку\n\n" +
		"<b>Как это работает:</b>\n" +
		"1. Нажми /start\n" +
		"2. Нажми кнопку \"Получить VPN\"\n" +
		"3. Следуй инструкциям на сайте\n" +
		"4. Наслаждайся свободным доступом!\n\n" +
		"<b>Поддержка:</b> @vpn_connect_support"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}

func defaultMessage(chatID int64) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(chatID, "👋 Используйте команду /start для получения VPN")
}
