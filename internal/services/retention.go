package services

import (
	"fmt"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/logger"
)

// PurgeExpiredRecords удаляет платежи и триалы, вышедшие за срок хранения.
func PurgeExpiredRecords() {
	if err := db.PurgeExpiredRecords(); err != nil {
		logger.NotifyAdmin(fmt.Sprintf("Очистка устаревших записей не удалась: %v", err))
		return
	}
	logger.Info("expired records purged")
}
