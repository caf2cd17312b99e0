package mail

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
	"github.com/vitos/crypto_signal_relay/internal/usecase"
)

// Handler is the core entry point the poller hands parsed alerts to.
// *usecase.SignalProcessor satisfies it.
type Handler interface {
	Process(ctx context.Context, source string, payload map[string]interface{}) *domain.ExecutionResult
}

// Poller periodically checks the inbox for trade alerts and funnels them
// into the same processing path the webhook uses. Messages are marked
// seen only after the hand-off; non-alert mail is left untouched.
type Poller struct {
	fetcher  Fetcher
	handler  Handler
	interval time.Duration
	logger   *zap.Logger
}

func NewPoller(fetcher Fetcher, handler Handler, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		handler:  handler,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled. Each tick is independent: a failed
// poll is logged and the next tick tries again.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Mail poller started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.fetcher.Close()

	for {
		p.checkInbox(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			p.logger.Info("Mail poller stopped")
			return
		}
	}
}

func (p *Poller) checkInbox(ctx context.Context) {
	messages, err := p.fetcher.FetchUnseen(ctx)
	if err != nil {
		p.logger.Error("Inbox check failed", zap.Error(err))
		return
	}

	for _, msg := range messages {
		payload, err := ParseAlertSubject(msg.Subject)
		if errors.Is(err, ErrNotAlert) {
			// Ordinary mail stays unseen
			continue
		}
		if err != nil {
			p.logger.Warn("Unparseable alert subject", zap.Uint32("uid", msg.UID), zap.Error(err))
			continue
		}

		result := p.handler.Process(ctx, usecase.SourceEmail, payload)
		p.logger.Info("Alert processed",
			zap.Uint32("uid", msg.UID),
			zap.String("status", string(result.Status)))

		if err := p.fetcher.MarkSeen(ctx, msg.UID); err != nil {
			p.logger.Error("Failed to mark message seen", zap.Uint32("uid", msg.UID), zap.Error(err))
		}
	}
}
