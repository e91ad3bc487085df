package bot

import (
	"strings"
	"testing"

	"VPN-Connect-API/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type recorder struct {
	sent []tgbotapi.Chattable
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.sent = append(r.sent, c)
	return tgbotapi.Message{}, nil
}

func update(userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID, FirstName: "Иван"},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func lastMessage(t *testing.T, r *recorder) tgbotapi.MessageConfig {
	t.Helper()
	if len(r.sent) == 0 {
		t.Fatal("nothing sent")
	}
	msg, ok := r.sent[len(r.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", r.sent[len(r.sent)-1])
	}
	return msg
}

func TestHandleUpdateStart(t *testing.T) {
	config.AppCfg.BaseURL = "https://vpn.example.com"
	r := &recorder{}

	HandleUpdate(r, update(123456, 777, "/start"))

	msg := lastMessage(t, r)
	if msg.ChatID != 777 {
		t.Errorf("ChatID = %d", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "Иван") {
		t.Error("greeting does not address the user by name")
	}
	if msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("ParseMode = %q", msg.ParseMode)
	}

	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("ReplyMarkup %T", msg.ReplyMarkup)
	}
	var vpnURL string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if strings.Contains(btn.Text, "ПОЛУЧИТЬ VPN") && btn.URL != nil {
				vpnURL = *btn.URL
			}
		}
	}
	want := "https://vpn.example.com/api/bot/actions?action=vpn&tg_id=123456"
	if vpnURL != want {
		t.Errorf("vpn button url = %q, want %q", vpnURL, want)
	}
}

func TestHandleUpdateHelp(t *testing.T) {
	r := &recorder{}
	HandleUpdate(r, update(1, 2, "/help"))

	msg := lastMessage(t, r)
	if !strings.Contains(msg.Text, "/start") {
		t.Error("help does not mention /start")
	}
}

func TestHandleUpdateUnknownText(t *testing.T) {
	r := &recorder{}
	HandleUpdate(r, update(1, 2, "привет"))

	msg := lastMessage(t, r)
	if !strings.Contains(msg.Text, "/start") {
		t.Errorf("default reply = %q", msg.Text)
	}
}

func TestHandleUpdateIgnoresEmpty(t *testing.T) {
	r := &recorder{}
	HandleUpdate(r, tgbotapi.Update{})

	if len(r.sent) != 0 {
		t.Errorf("sent %d messages for empty update", len(r.sent))
	}
}
