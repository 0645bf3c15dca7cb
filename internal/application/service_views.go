package application

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// Views are read-only and run outside the reentrancy guard.

func (s *Service) GetEscrow(ctx context.Context, actor Actor, escrowID uint64) (domain.Escrow, error) {
	if err := requireActor(actor); err != nil { return domain.Escrow{}, err }
	return s.escrows.GetByID(ctx, escrowID)
}

// SearchEscrows returns one page of escrows matching the criteria. The
// page size is clamped to the maximum rather than rejected.
func (s *Service) SearchEscrows(ctx context.Context, actor Actor, input SearchInput) ([]domain.Escrow, int, error) {
	if err := requireActor(actor); err != nil { return nil, 0, err }
	if input.Offset < 0 { input.Offset = 0 }
	if input.Limit <= 0 || input.Limit > domain.MaxSearchPageSize { input.Limit = domain.MaxSearchPageSize }
	return s.escrows.Search(ctx, input.Criteria, input.Offset, input.Limit)
}

// GetSpendingState returns the live window for one program+token pair,
// including the configured cap so callers can see headroom.
func (s *Service) GetSpendingState(ctx context.Context, actor Actor, programID, tokenID string) (domain.SpendingState, domain.SpendingLimitConfig, error) {
	if err := requireActor(actor); err != nil { return domain.SpendingState{}, domain.SpendingLimitConfig{}, err }
	if programID == "" || tokenID == "" { return domain.SpendingState{}, domain.SpendingLimitConfig{}, domain.ErrInvalidInput }
	state, err := s.spendingState(ctx, programID, tokenID)
	if err != nil { return domain.SpendingState{}, domain.SpendingLimitConfig{}, err }
	cfg, err := s.spendingConfig(ctx, programID, tokenID)
	if err != nil { return domain.SpendingState{}, domain.SpendingLimitConfig{}, err }
	return state, cfg, nil
}

// GetTimeWeightedMetrics aggregates the live buckets of the metrics ring
// as of now.
func (s *Service) GetTimeWeightedMetrics(ctx context.Context, actor Actor) (domain.MetricsAggregate, error) {
	if err := requireActor(actor); err != nil { return domain.MetricsAggregate{}, err }
	ring, err := s.metrics.GetRing(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) { return domain.MetricsAggregate{}, err }
	return ring.Aggregate(s.nowFn().Unix()), nil
}

// VerifyReceipt returns the stored receipt by id. Receipts are never
// recomputed from history.
func (s *Service) VerifyReceipt(ctx context.Context, actor Actor, receiptID uint64) (domain.Receipt, error) {
	if err := requireActor(actor); err != nil { return domain.Receipt{}, err }
	return s.receipts.GetByID(ctx, receiptID)
}

func (s *Service) GetDeprecationStatus(ctx context.Context, actor Actor) (domain.Deprecation, error) {
	if err := requireActor(actor); err != nil { return domain.Deprecation{}, err }
	return s.deprecation(ctx)
}

func (s *Service) GetRiskFlags(ctx context.Context, actor Actor, entity string) (uint8, error) {
	if err := requireActor(actor); err != nil { return 0, err }
	if entity == "" { return 0, domain.ErrInvalidInput }
	mask, err := s.config.GetRiskFlags(ctx, entity)
	if errors.Is(err, domain.ErrNotFound) { return 0, nil }
	return mask, err
}

func (s *Service) GetPauseFlags(ctx context.Context, actor Actor) (domain.PauseFlags, error) {
	if err := requireActor(actor); err != nil { return domain.PauseFlags{}, err }
	return s.pauseFlags(ctx)
}

// Ready reports whether the backing store answers reads. Health probes
// call it without an actor.
func (s *Service) Ready(ctx context.Context) error {
	_, err := s.escrows.Count(ctx)
	return err
}
