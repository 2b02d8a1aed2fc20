package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/parkour/internal/config"
)

var (
	ErrDelivery      = errors.New("notify: delivery failed")
	ErrNotConfigured = errors.New("notify: email provider not configured")
)

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DisabledSender is used when no provider key is configured.
type DisabledSender struct {
	Log *zap.SugaredLogger
}

func (d DisabledSender) Send(ctx context.Context, msg Message) error {
	if d.Log != nil {
		d.Log.Infow("notify: email disabled, dropping message", "kind", msg.Kind, "subject", msg.Subject)
	}
	return ErrNotConfigured
}

// SenderFromConfig returns a Resend sender, or a DisabledSender when no API
// key is set.
func SenderFromConfig(cfg config.Config, log *zap.SugaredLogger) Sender {
	if cfg.Notify.ResendAPIKey == "" {
		return DisabledSender{Log: log}
	}
	return NewResendSender(cfg.Notify.ResendAPIKey, cfg.Notify.ResendFrom, cfg.Notify.ResendBaseURL)
}
