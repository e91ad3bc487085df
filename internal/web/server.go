// Package web exposes the HTTP API: config delivery by token, the Telegram
// funnel endpoints, payment creation and the gateway webhook.
package web

import (
	"context"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/panel"
	"VPN-Connect-API/internal/payment"
	"VPN-Connect-API/internal/ratelimit"
	"VPN-Connect-API/internal/storage"
	"VPN-Connect-API/internal/token"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// PanelAPI is the slice of the panel client the handlers use.
type PanelAPI interface {
	Login(ctx context.Context) error
	GetClientByEmail(ctx context.Context, inboundID int, email string) (*panel.ClientStatus, error)
	AddClient(ctx context.Context, inboundID int, email, uuid string, days int) (panel.ClientInfo, error)
	GetClientTraffic(ctx context.Context, inboundID int, uuid string) (*panel.TrafficStats, error)
}

// Gateway creates payments at the acquirer.
type Gateway interface {
	CreatePayment(ctx context.Context, amount float64, days int, email, telegramID, returnURL string) (*payment.CreatedPayment, error)
}

// Trials tracks which Telegram accounts already consumed the free period.
type Trials interface {
	Get(telegramID string) (*db.Trial, error)
	MarkUsed(t *db.Trial) error
}

// DBTrials backs Trials with the postgres layer.
type DBTrials struct{}

func (DBTrials) Get(telegramID string) (*db.Trial, error) { return db.GetTrial(telegramID) }
func (DBTrials) MarkUsed(t *db.Trial) error               { return db.MarkTrialUsed(t) }

// PaymentLookup serves the status endpoint and records pending payments at
// checkout.
type PaymentLookup interface {
	Save(p *db.Payment) error
	GetByID(paymentID string) (*db.Payment, error)
	GetByEmail(email string) (*db.Payment, error)
	GetByTelegramID(telegramID string) (*db.Payment, error)
}

// DBPayments backs PaymentLookup with the postgres layer.
type DBPayments struct{}

func (DBPayments) Save(p *db.Payment) error                       { return db.SavePayment(p) }
func (DBPayments) GetByID(id string) (*db.Payment, error)         { return db.GetPaymentByID(id) }
func (DBPayments) GetByEmail(email string) (*db.Payment, error)   { return db.GetPaymentByEmail(email) }
func (DBPayments) GetByTelegramID(id string) (*db.Payment, error) { return db.GetPaymentByTelegramID(id) }

// BotSender is the sending side of the Telegram API.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options wires the server together.
type Options struct {
	Panel     PanelAPI
	InboundID int
	Codec     *token.Codec
	BaseURL   string
	Store     storage.Store
	Limiter   *ratelimit.Limiter
	// Gateway is nil when YooKassa credentials are not configured.
	Gateway   Gateway
	Processor *payment.Processor
	Allowlist *payment.Allowlist
	Trials    Trials
	Payments  PaymentLookup
	Bot       BotSender
	TrialDays int
	// BotSecret gates /api/create-user when set.
	BotSecret string
}

// Server is the HTTP facade over the panel, the payment gateway and the bot.
type Server struct {
	echo      *echo.Echo
	panel     PanelAPI
	inboundID int
	codec     *token.Codec
	baseURL   string
	store     storage.Store
	gateway   Gateway
	processor *payment.Processor
	allowlist *payment.Allowlist
	trials    Trials
	payments  PaymentLookup
	bot       BotSender
	trialDays int
	botSecret string
}

const defaultTrialDays = 3

func New(opts Options) *Server {
	s := &Server{
		echo:      echo.New(),
		panel:     opts.Panel,
		inboundID: opts.InboundID,
		codec:     opts.Codec,
		baseURL:   opts.BaseURL,
		store:     opts.Store,
		gateway:   opts.Gateway,
		processor: opts.Processor,
		allowlist: opts.Allowlist,
		trials:    opts.Trials,
		payments:  opts.Payments,
		bot:       opts.Bot,
		trialDays: opts.TrialDays,
		botSecret: opts.BotSecret,
	}
	if s.trialDays == 0 {
		s.trialDays = defaultTrialDays
	}

	e := s.echo
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	limiter := opts.Limiter
	limit := func(l ratelimit.Limit) echo.MiddlewareFunc {
		return ratelimit.Middleware(limiter, l)
	}

	e.POST("/api/bot/webhook", s.handleBotWebhook, limit(ratelimit.Webhook))
	e.GET("/api/bot/actions", s.handleBotActions, limit(ratelimit.UserCreate))
	e.GET("/api/bot/get-vpn", s.handleGetVPN, limit(ratelimit.UserCreate))
	e.GET("/api/bot/pay", s.handleBotPay, limit(ratelimit.PaymentCreate))

	e.GET("/api/config/:token", s.handleConfig, limit(ratelimit.ConfigFetch))
	e.GET("/api/link/:token", s.handleLink, limit(ratelimit.ConfigFetch))
	e.GET("/api/sub/:token", s.handleSub, limit(ratelimit.ConfigFetch))
	e.GET("/api/go/:token", s.handleGo, limit(ratelimit.ConfigFetch))
	e.GET("/api/qr/:token", s.handleQR, limit(ratelimit.ConfigFetch))

	e.POST("/api/create-user", s.handleCreateUser, limit(ratelimit.UserCreate))
	e.POST("/api/payment/create", s.handlePaymentCreate, limit(ratelimit.PaymentCreate))
	e.POST("/api/payment/webhook", s.handlePaymentWebhook, limit(ratelimit.Webhook))
	e.GET("/api/payment/status", s.handlePaymentStatus, limit(ratelimit.StatusCheck))

	e.GET("/api/health", s.handleHealth)
	e.GET("/api/users/:uuid/traffic", s.handleTraffic, limit(ratelimit.StatusCheck))

	return s
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func jsonError(c echo.Context, status int, msg, code string) error {
	return c.JSON(status, map[string]string{"error": msg, "code": code})
}
