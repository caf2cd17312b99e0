package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/crypto_signal_relay/internal/domain"
)

// Signal sources recorded in the audit trail.
const (
	SourceWebhook = "webhook"
	SourceEmail   = "email"
)

// Notifier pushes execution outcomes to an external channel. A nil
// notifier disables notifications.
type Notifier interface {
	ExecutionCompleted(intent *domain.OrderIntent, result *domain.ExecutionResult)
}

// SignalProcessor is the single entry point both ingestion paths funnel
// into: validate, execute, record in the audit trail, notify. It holds no
// mutable state and is safe to call from the HTTP handlers and the mail
// poller concurrently.
type SignalProcessor struct {
	validator *Validator
	engine    *ExecutionEngine
	signals   domain.SignalRepository
	notifier  Notifier
	logger    *zap.Logger
}

func NewSignalProcessor(validator *Validator, engine *ExecutionEngine, signals domain.SignalRepository, notifier Notifier, logger *zap.Logger) *SignalProcessor {
	return &SignalProcessor{
		validator: validator,
		engine:    engine,
		signals:   signals,
		notifier:  notifier,
		logger:    logger,
	}
}

// Process validates and executes one signal payload. It always returns a
// result; validation failures come back as status "error" with the reason
// in the message, without any exchange call having been made.
func (p *SignalProcessor) Process(ctx context.Context, source string, payload map[string]interface{}) *domain.ExecutionResult {
	rec := &domain.SignalRecord{
		ID:        uuid.NewString(),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	intent, err := p.validator.Validate(payload)
	if err != nil {
		p.logger.Warn("Signal rejected", zap.String("source", source), zap.Error(err))
		result := &domain.ExecutionResult{Status: domain.StatusError, Message: err.Error()}
		p.record(ctx, rec, intent, result)
		return result
	}

	result := p.engine.Execute(ctx, intent)
	p.record(ctx, rec, intent, result)

	if p.notifier != nil {
		p.notifier.ExecutionCompleted(intent, result)
	}
	return result
}

func (p *SignalProcessor) record(ctx context.Context, rec *domain.SignalRecord, intent *domain.OrderIntent, result *domain.ExecutionResult) {
	if intent != nil {
		rec.Exchange = intent.Exchange
		rec.Symbol = intent.Symbol
		rec.Side = string(intent.Side)
		rec.OrderType = string(intent.OrderType)
		rec.Quantity = intent.Quantity.String()
		if intent.OrderType == domain.OrderTypeLimit {
			rec.Price = intent.Price.String()
		}
	}
	rec.Status = string(result.Status)
	rec.Message = result.Message

	if err := p.signals.SaveSignal(ctx, rec); err != nil {
		p.logger.Error("Failed to save signal record", zap.String("id", rec.ID), zap.Error(err))
	}
}
