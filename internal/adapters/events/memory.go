package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
)

// MemoryDomainPublisher collects published envelopes for tests.
type MemoryDomainPublisher struct {
	mu        sync.Mutex
	Envelopes []contracts.EventEnvelope
}

func NewMemoryDomainPublisher() *MemoryDomainPublisher { return &MemoryDomainPublisher{} }

func (p *MemoryDomainPublisher) PublishDomain(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock(); defer p.mu.Unlock()
	p.Envelopes = append(p.Envelopes, envelope)
	return nil
}

func (p *MemoryDomainPublisher) Published() []contracts.EventEnvelope {
	p.mu.Lock(); defer p.mu.Unlock()
	return append([]contracts.EventEnvelope(nil), p.Envelopes...)
}

type MemoryAnalyticsPublisher struct {
	mu        sync.Mutex
	Envelopes []contracts.EventEnvelope
}

func NewMemoryAnalyticsPublisher() *MemoryAnalyticsPublisher { return &MemoryAnalyticsPublisher{} }

func (p *MemoryAnalyticsPublisher) PublishAnalytics(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock(); defer p.mu.Unlock()
	p.Envelopes = append(p.Envelopes, envelope)
	return nil
}

type MemoryOpsPublisher struct {
	mu        sync.Mutex
	Envelopes []contracts.EventEnvelope
}

func NewMemoryOpsPublisher() *MemoryOpsPublisher { return &MemoryOpsPublisher{} }

func (p *MemoryOpsPublisher) PublishOps(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock(); defer p.mu.Unlock()
	p.Envelopes = append(p.Envelopes, envelope)
	return nil
}

// LoggingDLQPublisher records dead letters in the log only. Used where no
// broker is wired.
type LoggingDLQPublisher struct {
	logger *slog.Logger
}

func NewLoggingDLQPublisher() *LoggingDLQPublisher { return &LoggingDLQPublisher{logger: slog.Default()} }

func (p *LoggingDLQPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	p.logger.WarnContext(ctx, "dead letter",
		"event_id", record.OriginalEvent.EventID,
		"event_type", record.OriginalEvent.EventType,
		"error", record.ErrorSummary)
	return nil
}
