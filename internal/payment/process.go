package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/panel"
	"VPN-Connect-API/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification is the YooKassa webhook envelope.
type Notification struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Object Object `json:"object"`
}

// Object is the payment inside a notification.
type Object struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Metadata struct {
		Email        string      `json:"email"`
		TelegramID   string      `json:"telegramId"`
		PlanDuration json.Number `json:"planDuration"`
	} `json:"metadata"`
}

// Result is what the webhook answers with. Every outcome is success-shaped:
// the gateway retries on non-200, so internal failures are reported here and
// logged, never signaled via HTTP status.
type Result struct {
	Status    string `json:"status"`
	Event     string `json:"event,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	Email     string `json:"email,omitempty"`
	ConfigURL string `json:"configUrl,omitempty"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Provisioner is the slice of the panel client the processor needs.
type Provisioner interface {
	GetClientByEmail(ctx context.Context, inboundID int, email string) (*panel.ClientStatus, error)
	AddClient(ctx context.Context, inboundID int, email, uuid string, days int) (panel.ClientInfo, error)
	ExtendClientByEmail(ctx context.Context, inboundID int, email string, days int) (*panel.ClientStatus, error)
}

// Records persists and looks up payment records for idempotent consumption.
type Records interface {
	Save(p *db.Payment) error
	GetByID(paymentID string) (*db.Payment, error)
	MarkStatus(paymentID, status string) error
}

// DBRecords backs Records with the postgres layer.
type DBRecords struct{}

func (DBRecords) Save(p *db.Payment) error               { return db.SavePayment(p) }
func (DBRecords) GetByID(id string) (*db.Payment, error) { return db.GetPaymentByID(id) }
func (DBRecords) MarkStatus(id, status string) error     { return db.MarkPaymentStatus(id, status) }

// Processor turns confirmed payments into provisioned or extended clients.
type Processor struct {
	Panel     Provisioner
	InboundID int
	Records   Records
	Codec     *token.Codec
	BaseURL   string
	// DefaultDays applies when the payment metadata lacks a duration.
	DefaultDays int
}

const defaultPlanDays = 30

// Process consumes one webhook notification. Repeat delivery of an already
// processed payment id returns the stored result — payment gateways retry
// webhooks, so this path must be idempotent.
func (p *Processor) Process(ctx context.Context, n Notification) Result {
	pay := n.Object
	logger.Info("webhook received", zap.String("event", n.Event), zap.String("payment_id", pay.ID))

	if n.Event == "payment.canceled" {
		if err := p.Records.MarkStatus(pay.ID, db.StatusFailed); err != nil {
			logger.Warn("payment cancel not recorded", zap.String("payment_id", pay.ID), zap.Error(err))
		}
		logger.Info("payment canceled", zap.String("payment_id", pay.ID))
		return Result{Status: "canceled", PaymentID: pay.ID}
	}
	if n.Event != "payment.succeeded" && n.Event != "payment.waiting_for_capture" {
		logger.Info("webhook ignored", zap.String("event", n.Event))
		return Result{Status: "ignored", Event: n.Event}
	}
	if pay.Status != "succeeded" && pay.Status != "waiting_for_capture" {
		return Result{Status: "pending", PaymentID: pay.ID}
	}

	if existing, err := p.Records.GetByID(pay.ID); err == nil {
		if existing.Status == db.StatusSucceeded {
			logger.Info("payment already processed", zap.String("payment_id", pay.ID))
			return Result{
				Status:    "already_processed",
				PaymentID: existing.PaymentID,
				Email:     existing.Email,
				ConfigURL: existing.ConfigURL,
			}
		}
		// Запись со статусом pending создана при выставлении платежа;
		// дооформляем её после провижининга.
	} else if !errors.Is(err, db.ErrNotFound) {
		logger.Error("payment lookup failed", zap.String("payment_id", pay.ID), zap.Error(err))
		return Result{Status: "error", PaymentID: pay.ID, Error: err.Error()}
	}

	email := pay.Metadata.Email
	if email == "" {
		email = fmt.Sprintf("user_%s@vpn.local", pay.ID)
	}
	days := p.DefaultDays
	if days == 0 {
		days = defaultPlanDays
	}
	if d, err := pay.Metadata.PlanDuration.Int64(); err == nil && d > 0 {
		days = int(d)
	}
	var amount float64
	fmt.Sscan(pay.Amount.Value, &amount)

	info, expiresAt, err := p.provisionOrExtend(ctx, email, days)
	if err != nil {
		logger.Error("panel provisioning after payment failed",
			zap.String("payment_id", pay.ID), zap.String("email", email), zap.Error(err))
		logger.NotifyAdmin("Оплата " + pay.ID + " получена, но панель недоступна: " + err.Error())
		return Result{Status: "panel_error", PaymentID: pay.ID, Error: err.Error()}
	}

	configToken, err := p.Codec.GenerateConfigToken(info, days)
	if err != nil {
		logger.Error("token generation failed", zap.String("payment_id", pay.ID), zap.Error(err))
		return Result{Status: "error", PaymentID: pay.ID, Error: err.Error()}
	}
	configURL := p.BaseURL + "/api/config/" + configToken

	record := &db.Payment{
		PaymentID:   pay.ID,
		Email:       email,
		TelegramID:  pay.Metadata.TelegramID,
		Amount:      amount,
		ConfigToken: configToken,
		ConfigURL:   configURL,
		UUID:        info.UUID,
		Status:      db.StatusSucceeded,
		ExpiresAt:   expiresAt.Unix(),
	}
	if err := p.Records.Save(record); err != nil {
		// A concurrent delivery may have won the unique-index race; surface
		// its result instead of failing.
		if existing, lookupErr := p.Records.GetByID(pay.ID); lookupErr == nil && existing.Status == db.StatusSucceeded {
			return Result{
				Status:    "already_processed",
				PaymentID: existing.PaymentID,
				Email:     existing.Email,
				ConfigURL: existing.ConfigURL,
			}
		}
		logger.Error("payment record save failed", zap.String("payment_id", pay.ID), zap.Error(err))
	}

	logger.Info("payment confirmed", zap.String("payment_id", pay.ID),
		zap.String("email", email), zap.Int("days", days))
	return Result{
		Status:    "success",
		PaymentID: pay.ID,
		Email:     email,
		ConfigURL: configURL,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}
}

// provisionOrExtend extends an existing identity for email or provisions a
// fresh one when none exists yet.
func (p *Processor) provisionOrExtend(ctx context.Context, email string, days int) (panel.ClientInfo, time.Time, error) {
	_, err := p.Panel.GetClientByEmail(ctx, p.InboundID, email)
	switch {
	case err == nil:
		extended, err := p.Panel.ExtendClientByEmail(ctx, p.InboundID, email, days)
		if err != nil {
			return panel.ClientInfo{}, time.Time{}, err
		}
		return extended.ClientInfo, time.UnixMilli(extended.ExpiryTime), nil
	case errors.Is(err, panel.ErrClientNotFound):
		info, err := p.Panel.AddClient(ctx, p.InboundID, email, uuid.NewString(), days)
		if err != nil {
			return panel.ClientInfo{}, time.Time{}, err
		}
		return info, time.Now().Add(time.Duration(days) * 24 * time.Hour), nil
	default:
		return panel.ClientInfo{}, time.Time{}, err
	}
}
