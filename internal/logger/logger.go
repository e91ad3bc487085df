package logger

import (
	"go.uber.org/zap"
)

var log, _ = zap.NewProduction()

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

// LogPanelCall logs one panel API call with its outcome.
func LogPanelCall(op string, inboundID int, err error) {
	if err != nil {
		log.Error("panel_call", zap.String("op", op), zap.Int("inbound_id", inboundID), zap.Error(err))
		return
	}
	log.Info("panel_call", zap.String("op", op), zap.Int("inbound_id", inboundID))
}
