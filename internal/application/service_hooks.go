package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

// Hook dispatch is best-effort: a failing hook is logged and recorded as
// an ops event, and never changes the outcome of the operation that
// triggered it.

func (s *Service) notifyLargeRelease(ctx context.Context, escrowID uint64, netAmount int64, recipient string, ts int64) {
	cfg, err := s.hookConfig(ctx)
	if err != nil || !cfg.Enabled { return }
	if cfg.LargeReleaseMinimum <= 0 || netAmount < cfg.LargeReleaseMinimum { return }
	s.dispatchHook(ctx, cfg, ports.HookNotification{EventType: domain.EventEscrowReleased, EscrowID: escrowID, Amount: netAmount, Party: recipient, Timestamp: ts})
}

func (s *Service) notifyRefund(ctx context.Context, escrowID uint64, amount int64, depositor string, ts int64) {
	cfg, err := s.hookConfig(ctx)
	if err != nil || !cfg.Enabled { return }
	s.dispatchHook(ctx, cfg, ports.HookNotification{EventType: domain.EventEscrowRefunded, EscrowID: escrowID, Amount: amount, Party: depositor, Timestamp: ts})
}

func (s *Service) notifyDispute(ctx context.Context, eventType string, escrowID uint64, party string, ts int64) {
	cfg, err := s.hookConfig(ctx)
	if err != nil || !cfg.Enabled { return }
	s.dispatchHook(ctx, cfg, ports.HookNotification{EventType: eventType, EscrowID: escrowID, Party: party, Timestamp: ts})
}

func (s *Service) dispatchHook(ctx context.Context, cfg domain.HookConfig, n ports.HookNotification) {
	if s.hooks == nil { return }
	defer func() {
		if r := recover(); r != nil {
			s.logger.WarnContext(ctx, "hook dispatch panicked", "event_type", n.EventType, "escrow_id", n.EscrowID, "panic", r)
		}
	}()
	if err := s.hooks.Notify(ctx, cfg, n); err != nil {
		s.logger.WarnContext(ctx, "hook dispatch failed", "event_type", n.EventType, "escrow_id", n.EscrowID, "error", err.Error())
		_ = s.enqueueHookFailed(ctx, n.EventType, n.EscrowID, err, s.nowFn())
	}
}
