package main

import (
	"log"
	"os"
	"time"

	"VPN-Connect-API/config"
	"VPN-Connect-API/internal/bot"
	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/panel"
	"VPN-Connect-API/internal/payment"
	"VPN-Connect-API/internal/ratelimit"
	"VPN-Connect-API/internal/services"
	"VPN-Connect-API/internal/storage"
	"VPN-Connect-API/internal/token"
	"VPN-Connect-API/internal/web"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
)

func main() {
	config.LoadConfig()
	db.InitDB(config.AppCfg.DatabaseURL)

	// Redis разделяет счётчики и сессию панели между инстансами; без него
	// работаем на памяти одного процесса.
	var store storage.Store = storage.NewMemoryStore()
	if config.AppCfg.RedisAddr != "" {
		if rs := storage.NewRedisStore(config.AppCfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), 0); rs != nil {
			store = rs
			log.Println("Redis подключён:", config.AppCfg.RedisAddr)
		} else {
			log.Println("Redis недоступен, используется память процесса")
		}
	}

	codec, err := token.NewCodec(config.AppCfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to init token codec: %v", err)
	}

	panelClient := panel.New(panel.Options{
		URL:        config.AppCfg.PanelURL,
		Username:   config.AppCfg.PanelUser,
		Password:   config.AppCfg.PanelPass,
		InboundID:  config.AppCfg.InboundID,
		PublicKey:  config.AppCfg.RealityPublicKey,
		ShortID:    config.AppCfg.RealityShortID,
		ServerName: config.AppCfg.SNIDomain,
		Store:      store,
	})

	botapi, err := tgbotapi.NewBotAPI(config.AppCfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	log.Printf("Authorized on account %s", botapi.Self.UserName)
	logger.InitNotifier(botapi, config.AppCfg.AdminTelegramID)

	var gateway web.Gateway
	if config.PaymentsEnabled() {
		gateway = payment.NewYooKassa(config.AppCfg.YooKassaShopID, config.AppCfg.YooKassaSecret)
	} else {
		log.Println("YooKassa не настроена, оплата отключена")
	}

	processor := &payment.Processor{
		Panel:     panelClient,
		InboundID: config.AppCfg.InboundID,
		Records:   payment.DBRecords{},
		Codec:     codec,
		BaseURL:   config.AppCfg.BaseURL,
	}

	server := web.New(web.Options{
		Panel:     panelClient,
		InboundID: config.AppCfg.InboundID,
		Codec:     codec,
		BaseURL:   config.AppCfg.BaseURL,
		Store:     store,
		Limiter:   ratelimit.New(store),
		Gateway:   gateway,
		Processor: processor,
		Allowlist: payment.NewAllowlist(!config.AppCfg.WebhookAllowAnyIP),
		Trials:    web.DBTrials{},
		Payments:  web.DBPayments{},
		Bot:       botapi,
		BotSecret: config.AppCfg.BotSecret,
	})

	c := cron.New()
	// Напоминания об истекающих триалах (раз в сутки в 10:00)
	c.AddFunc("0 10 * * *", func() {
		services.NotifyExpiringTrials(botapi, 24*time.Hour)
	})
	// Очистка записей, вышедших за срок хранения (каждый день в 03:30)
	c.AddFunc("30 3 * * *", services.PurgeExpiredRecords)
	c.Start()

	// Апдейты Telegram приходят на /api/bot/webhook; без настроенного
	// вебхука включается polling.
	if os.Getenv("TELEGRAM_USE_POLLING") == "true" {
		go bot.StartPolling(botapi)
	}

	log.Printf("Запуск API на :%s", config.AppCfg.Port)
	if err := server.Start(":" + config.AppCfg.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
