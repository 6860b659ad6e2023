package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/elevix/approval-flow/internal/application/port"
)

// LogNotifier is the fallback Notifier used when no messaging backend is
// configured. It records every would-be message so local runs still show
// who would have been told what.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notification adapter
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message instead of delivering it
func (n *LogNotifier) Send(ctx context.Context, recipients []string, subject, body string) error {
	n.logger.Info("Notification (log only)",
		zap.Strings("recipients", recipients),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
