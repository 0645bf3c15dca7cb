package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// BatchLock creates every escrow in the batch or none of them. Per-item
// checks run first; any single failure rejects the whole batch with that
// item's error.
func (s *Service) BatchLock(ctx context.Context, actor Actor, items []LockInput) ([]domain.Escrow, error) {
	if err := s.guard.Enter(); err != nil { return nil, err }
	defer s.guard.Exit()
	out, err := s.batchLockLocked(ctx, actor, items)
	s.logOutcomeErr(ctx, "batch_lock", actor, err)
	return out, err
}

func (s *Service) batchLockLocked(ctx context.Context, actor Actor, items []LockInput) ([]domain.Escrow, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return nil, err }
	if flags.LockPaused { return nil, domain.ErrLockPaused }
	if _, err := s.requireInitialized(ctx); err != nil { return nil, err }
	if err := requireActor(actor); err != nil { return nil, err }
	filter, err := s.filter(ctx)
	if err != nil { return nil, err }
	for _, item := range items {
		if err := filter.Check(item.Depositor); err != nil { return nil, err }
	}
	if err := requireIdempotencyKey(actor); err != nil { return nil, err }
	requestHash := hashJSON(items)
	var cached []domain.Escrow
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return nil, err } else if ok { return cached, nil }
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return nil, err }

	rows := make([]domain.Escrow, 0, len(items))
	seen := make(map[uint64]bool, len(items))
	for _, item := range items {
		if seen[item.EscrowID] { return nil, domain.ErrEscrowExists }
		seen[item.EscrowID] = true
		row, err := s.validateLock(ctx, item)
		if err != nil { return nil, err }
		rows = append(rows, row)
	}
	if len(rows) == 0 || len(rows) > domain.MaxBatchSize { return nil, domain.ErrBatchShape }

	for _, row := range rows {
		if err := s.transfer(ctx, row.TokenID, row.Depositor, s.custodyAccount(), row.Amount); err != nil { return nil, err }
	}
	if err := s.escrows.CreateBatch(ctx, rows); err != nil { return nil, err }
	now := s.nowFn()
	for _, row := range rows {
		s.recordLockMetrics(ctx, row.CreatedAt.Unix(), row.Amount)
		if err := s.enqueueEscrowLocked(ctx, row, actor.RequestID, now, true); err != nil { return nil, err }
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, rows)
	return rows, nil
}

// BatchRelease settles every escrow in the batch or none of them. The
// validation pass proves each item would settle, including cumulative
// spending-window charges across the batch, before any funds move.
func (s *Service) BatchRelease(ctx context.Context, actor Actor, items []ReleaseInput) ([]SettlementResult, error) {
	if err := s.guard.Enter(); err != nil { return nil, err }
	defer s.guard.Exit()
	out, err := s.batchReleaseLocked(ctx, actor, items)
	s.logOutcomeErr(ctx, "batch_release", actor, err)
	return out, err
}

func (s *Service) batchReleaseLocked(ctx context.Context, actor Actor, items []ReleaseInput) ([]SettlementResult, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return nil, err }
	if flags.ReleasePaused { return nil, domain.ErrReleasePaused }
	settings, err := s.requireInitialized(ctx)
	if err != nil { return nil, err }
	if err := requireAdmin(actor, settings); err != nil { return nil, err }
	if err := requireIdempotencyKey(actor); err != nil { return nil, err }
	requestHash := hashJSON(items)
	var cached []SettlementResult
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return nil, err } else if ok { return cached, nil }
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return nil, err }

	rows := make([]domain.Escrow, 0, len(items))
	seen := make(map[uint64]bool, len(items))
	for _, item := range items {
		if seen[item.EscrowID] { return nil, domain.ErrInvalidStatus }
		seen[item.EscrowID] = true
		row, err := s.escrows.GetByID(ctx, item.EscrowID)
		if err != nil { return nil, err }
		if err := s.checkReleasable(ctx, &row); err != nil { return nil, err }
		if item.Recipient == "" { return nil, domain.ErrInvalidInput }
		rows = append(rows, row)
	}
	if err := s.validateBatchSpending(ctx, rows); err != nil { return nil, err }
	if len(rows) == 0 || len(rows) > domain.MaxBatchSize { return nil, domain.ErrBatchShape }

	out := make([]SettlementResult, 0, len(rows))
	for i, row := range rows {
		result, err := s.settleRelease(ctx, row, items[i].Recipient, 0, actor.RequestID, true)
		if err != nil { return nil, err }
		out = append(out, result)
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}

// validateBatchSpending replays the batch's net charges against each
// program+token window without persisting, so an item that would blow the
// cap rejects the batch before any item commits.
func (s *Service) validateBatchSpending(ctx context.Context, rows []domain.Escrow) error {
	now := s.nowFn().Unix()
	feeCfg, err := s.feeConfig(ctx)
	if err != nil { return err }
	type key struct{ program, token string }
	states := make(map[key]domain.SpendingState)
	configs := make(map[key]domain.SpendingLimitConfig)
	for _, row := range rows {
		k := key{row.ProgramID, row.TokenID}
		cfg, ok := configs[k]
		if !ok {
			cfg, err = s.spendingConfig(ctx, row.ProgramID, row.TokenID)
			if err != nil { return err }
			configs[k] = cfg
			state, err := s.spendingState(ctx, row.ProgramID, row.TokenID)
			if err != nil { return err }
			states[k] = state
		}
		fee, err := feeCfg.FeeFor(row.RemainingAmount)
		if err != nil { return err }
		next, err := cfg.Charge(states[k], now, row.RemainingAmount-fee)
		if err != nil { return err }
		states[k] = next
	}
	return nil
}
