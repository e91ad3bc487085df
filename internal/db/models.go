package db

import "time"

// Payment statuses.
const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Payment is one confirmed (or pending) YooKassa charge together with the
// config it produced. Indexed by payment id, email and telegram id so webhook
// retries and status polls resolve idempotently.
type Payment struct {
	ID          uint   `gorm:"primaryKey"`
	PaymentID   string `gorm:"uniqueIndex"`
	Email       string `gorm:"index"`
	TelegramID  string `gorm:"index"`
	Amount      float64
	ConfigToken string
	ConfigURL   string
	UUID        string
	Status      string
	CreatedAt   int64
	ExpiresAt   int64 // subscription expiry, unix seconds
}

// Trial marks a used free trial: strictly one per telegram identity.
type Trial struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID string `gorm:"uniqueIndex"`
	Email      string
	UUID       string
	Used       bool `gorm:"default:true"`
	CreatedAt  int64
	ExpiresAt  int64
	Notified   bool `gorm:"default:false"` // уведомление о скором окончании
}

// Retention windows before purge.
const (
	PaymentRetention = 30 * 24 * time.Hour
	TrialRetention   = 365 * 24 * time.Hour
)
