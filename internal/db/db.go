package db

import (
	"errors"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

// ErrNotFound is returned by lookups when no record matches.
var ErrNotFound = errors.New("db: record not found")

func InitDB(dsn string) {
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	DB = database
	database.AutoMigrate(&Payment{}, &Trial{})
}

// SavePayment upserts a payment record keyed by the gateway payment id, so
// the pending record created at checkout is completed in place once the
// gateway confirms.
func SavePayment(p *Payment) error {
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	return DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount", "email", "telegram_id",
			"config_token", "config_url", "uuid", "expires_at",
		}),
	}).Create(p).Error
}

func GetPaymentByID(paymentID string) (*Payment, error) {
	var p Payment
	if err := DB.Where("payment_id = ?", paymentID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func GetPaymentByEmail(email string) (*Payment, error) {
	var p Payment
	err := DB.Where("email = ?", email).Order("created_at desc").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func GetPaymentByTelegramID(telegramID string) (*Payment, error) {
	var p Payment
	err := DB.Where("telegram_id = ?", telegramID).Order("created_at desc").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func MarkPaymentStatus(paymentID, status string) error {
	return DB.Model(&Payment{}).Where("payment_id = ?", paymentID).Update("status", status).Error
}

// MarkTrialUsed records the one-per-identity trial grant.
func MarkTrialUsed(t *Trial) error {
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}
	t.Used = true
	return DB.Create(t).Error
}

func GetTrial(telegramID string) (*Trial, error) {
	var t Trial
	if err := DB.Where("telegram_id = ?", telegramID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ExpiringTrials returns trials ending within the window that have not been
// reminded yet.
func ExpiringTrials(within time.Duration) ([]Trial, error) {
	now := time.Now().Unix()
	soon := time.Now().Add(within).Unix()
	var trials []Trial
	err := DB.Where("expires_at > ? AND expires_at <= ? AND notified = false", now, soon).Find(&trials).Error
	return trials, err
}

func MarkTrialNotified(id uint) error {
	return DB.Model(&Trial{}).Where("id = ?", id).Update("notified", true).Error
}

// PurgeExpiredRecords enforces the retention windows: payments older than 30
// days and trials older than a year are deleted.
func PurgeExpiredRecords() error {
	now := time.Now()
	if err := DB.Where("created_at < ?", now.Add(-PaymentRetention).Unix()).Delete(&Payment{}).Error; err != nil {
		return err
	}
	return DB.Where("created_at < ?", now.Add(-TrialRetention).Unix()).Delete(&Trial{}).Error
}
