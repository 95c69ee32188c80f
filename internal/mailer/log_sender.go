package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes mail to the log instead of delivering it. Development only.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg *Message) error {
	s.logger.Info("Mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.HTMLBody),
	)
	return nil
}
