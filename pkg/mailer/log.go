package mailer

import (
	"context"
	"log/slog"
)

// LogSender only logs outgoing mail. Used when no provider is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (not delivered, no provider configured)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject))
	return nil
}
