package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Token signing
	JWTSecret string

	// 3x-ui panel
	PanelURL  string
	PanelUser string
	PanelPass string
	InboundID int

	// YooKassa (optional: payments disabled when empty)
	YooKassaShopID string
	YooKassaSecret string

	// Telegram
	BotToken        string
	AdminTelegramID int64

	// Reality transport defaults (used when the panel lacks stream settings)
	RealityPublicKey string
	RealityShortID   string
	SNIDomain        string

	// Infrastructure
	DatabaseURL       string
	RedisAddr         string
	BaseURL           string
	Port              string
	BotSecret         string
	WebhookAllowAnyIP bool
}

var AppCfg AppConfig

// LoadConfig reads the environment (plus .env for local runs) and exits the
// process when a required value is missing. Payments stay optional so the
// trial funnel can run without a YooKassa account.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, relying on environment variables")
	}

	AppCfg.JWTSecret = mustEnv("JWT_SECRET")
	AppCfg.PanelURL = mustEnv("PANEL_URL")
	AppCfg.PanelUser = mustEnv("PANEL_USER")
	AppCfg.PanelPass = mustEnv("PANEL_PASS")
	AppCfg.InboundID = mustEnvInt("INBOUND_ID")
	AppCfg.BotToken = mustEnv("TELEGRAM_BOT_TOKEN")
	AppCfg.DatabaseURL = mustEnv("DATABASE_URL")

	AppCfg.RealityPublicKey = mustEnv("REALITY_PK")
	AppCfg.RealityShortID = mustEnv("REALITY_SHORT_ID")
	AppCfg.SNIDomain = mustEnv("SNI_DOMAIN")

	AppCfg.YooKassaShopID = os.Getenv("YOOKASSA_SHOP_ID")
	AppCfg.YooKassaSecret = os.Getenv("YOOKASSA_SECRET_KEY")
	if AppCfg.YooKassaShopID == "" || AppCfg.YooKassaSecret == "" {
		log.Println("YooKassa credentials are not set, payment features will not work")
	}

	if admin := os.Getenv("ADMIN_TELEGRAM_ID"); admin != "" {
		id, err := strconv.ParseInt(admin, 10, 64)
		if err != nil {
			log.Fatalf("ADMIN_TELEGRAM_ID is not a number: %q", admin)
		}
		AppCfg.AdminTelegramID = id
	}

	if len(AppCfg.JWTSecret) < 32 {
		log.Println("JWT_SECRET is shorter than 32 characters, consider a longer secret")
	}

	AppCfg.RedisAddr = os.Getenv("REDIS_ADDR")
	AppCfg.BotSecret = os.Getenv("BOT_SECRET")
	AppCfg.BaseURL = os.Getenv("BASE_URL")
	if AppCfg.BaseURL == "" {
		AppCfg.BaseURL = "http://localhost:8080"
	}
	AppCfg.Port = os.Getenv("PORT")
	if AppCfg.Port == "" {
		AppCfg.Port = "8080"
	}
	AppCfg.WebhookAllowAnyIP = os.Getenv("WEBHOOK_ALLOW_ANY_IP") == "true"
}

// PaymentsEnabled reports whether YooKassa credentials are configured.
func PaymentsEnabled() bool {
	return AppCfg.YooKassaShopID != "" && AppCfg.YooKassaSecret != ""
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("Critical environment variable %s is missing. Server will exit.", key)
	}
	return v
}

func mustEnvInt(key string) int {
	v := mustEnv(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Environment variable %s must be an integer, got %q", key, v)
	}
	return n
}
