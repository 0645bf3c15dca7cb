package application

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// InitializeEngine writes the one-time settings record. It fails once the
// engine is already initialized.
func (s *Service) InitializeEngine(ctx context.Context, actor Actor, input InitializeInput) (domain.EngineSettings, error) {
	if err := s.guard.Enter(); err != nil { return domain.EngineSettings{}, err }
	defer s.guard.Exit()
	existing, err := s.settings(ctx)
	if err != nil { return domain.EngineSettings{}, err }
	if existing.Initialized() { return domain.EngineSettings{}, domain.ErrAlreadyInitialized }
	if err := requireActor(actor); err != nil { return domain.EngineSettings{}, err }
	if input.Admin == "" || input.SettlementToken == "" { return domain.EngineSettings{}, domain.ErrInvalidInput }
	now := s.nowFn()
	settings := domain.EngineSettings{Admin: input.Admin, SettlementToken: input.SettlementToken, Version: input.Version, InitializedAt: now.Unix()}
	if settings.Version == "" { settings.Version = "v1" }
	if err := s.config.PutSettings(ctx, settings); err != nil { return domain.EngineSettings{}, err }
	s.logOutcome(ctx, "initialize_engine", actor, "success")
	return settings, nil
}

// Lock creates a new escrow and pulls the locked amount from the
// depositor into custody.
func (s *Service) Lock(ctx context.Context, actor Actor, input LockInput) (domain.Escrow, error) {
	if err := s.guard.Enter(); err != nil { return domain.Escrow{}, err }
	defer s.guard.Exit()
	out, err := s.lockLocked(ctx, actor, input, false)
	s.logOutcomeErr(ctx, "lock", actor, err)
	return out, err
}

// lockLocked runs the lock checks and transition. The caller holds the
// guard; batch lock reuses the validation half separately.
func (s *Service) lockLocked(ctx context.Context, actor Actor, input LockInput, skipIdempotency bool) (domain.Escrow, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return domain.Escrow{}, err }
	if flags.LockPaused { return domain.Escrow{}, domain.ErrLockPaused }
	if _, err := s.requireInitialized(ctx); err != nil { return domain.Escrow{}, err }
	if err := requireActor(actor); err != nil { return domain.Escrow{}, err }
	filter, err := s.filter(ctx)
	if err != nil { return domain.Escrow{}, err }
	if err := filter.Check(input.Depositor); err != nil { return domain.Escrow{}, err }

	if !skipIdempotency {
		if err := requireIdempotencyKey(actor); err != nil { return domain.Escrow{}, err }
		requestHash := hashJSON(input)
		var cached domain.Escrow
		if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return domain.Escrow{}, err } else if ok { return cached, nil }
		if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return domain.Escrow{}, err }
	}

	row, err := s.validateLock(ctx, input)
	if err != nil { return domain.Escrow{}, err }
	if err := s.transfer(ctx, row.TokenID, row.Depositor, s.custodyAccount(), row.Amount); err != nil { return domain.Escrow{}, err }
	if err := s.escrows.Create(ctx, row); err != nil { return domain.Escrow{}, err }
	now := row.CreatedAt
	s.recordLockMetrics(ctx, now.Unix(), row.Amount)
	if err := s.enqueueEscrowLocked(ctx, row, actor.RequestID, now, false); err != nil { return domain.Escrow{}, err }
	if !skipIdempotency { _ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, row) }
	return row, nil
}

// validateLock runs the per-item lock checks below the authorization
// level and builds the escrow row without persisting it.
func (s *Service) validateLock(ctx context.Context, input LockInput) (domain.Escrow, error) {
	if input.EscrowID == 0 { return domain.Escrow{}, domain.ErrInvalidInput }
	if _, err := s.escrows.GetByID(ctx, input.EscrowID); err == nil {
		return domain.Escrow{}, domain.ErrEscrowExists
	} else if !errors.Is(err, domain.ErrEscrowNotFound) {
		return domain.Escrow{}, err
	}
	dep, err := s.deprecation(ctx)
	if err != nil { return domain.Escrow{}, err }
	if dep.Deprecated { return domain.Escrow{}, domain.ErrDeprecated }
	policy, err := s.amountPolicy(ctx)
	if err != nil { return domain.Escrow{}, err }
	if err := policy.Check(input.Amount); err != nil { return domain.Escrow{}, err }
	now := s.nowFn()
	if input.Deadline != domain.NoDeadline && input.Deadline <= now.Unix() { return domain.Escrow{}, domain.ErrInvalidDeadline }
	settings, err := s.settings(ctx)
	if err != nil { return domain.Escrow{}, err }
	return domain.Escrow{
		EscrowID:              input.EscrowID,
		ProgramID:             input.ProgramID,
		Depositor:             input.Depositor,
		TokenID:               settings.SettlementToken,
		Amount:                input.Amount,
		RemainingAmount:       input.Amount,
		Deadline:              input.Deadline,
		Status:                domain.StatusLocked,
		NonTransferableReward: input.NonTransferableReward,
		LastLockAt:            now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// Release settles a locked escrow to the recipient: fee split, spending
// window charge, transfers, receipt, metrics, events.
func (s *Service) Release(ctx context.Context, actor Actor, input ReleaseInput) (SettlementResult, error) {
	if err := s.guard.Enter(); err != nil { return SettlementResult{}, err }
	defer s.guard.Exit()
	out, err := s.releaseLocked(ctx, actor, input, 0)
	s.logOutcomeErr(ctx, "release", actor, err)
	return out, err
}

// CapabilityRelease settles through a delegated capability instead of
// admin authority. The capability is validated and one use consumed.
func (s *Service) CapabilityRelease(ctx context.Context, actor Actor, input CapabilityReleaseInput) (SettlementResult, error) {
	if err := s.guard.Enter(); err != nil { return SettlementResult{}, err }
	defer s.guard.Exit()
	out, err := s.capabilityReleaseLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "capability_release", actor, err)
	return out, err
}

func (s *Service) releaseLocked(ctx context.Context, actor Actor, input ReleaseInput, capabilityID uint64) (SettlementResult, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return SettlementResult{}, err }
	if flags.ReleasePaused { return SettlementResult{}, domain.ErrReleasePaused }
	settings, err := s.requireInitialized(ctx)
	if err != nil { return SettlementResult{}, err }
	if capabilityID == 0 {
		if err := requireAdmin(actor, settings); err != nil { return SettlementResult{}, err }
	}
	if err := requireIdempotencyKey(actor); err != nil { return SettlementResult{}, err }
	requestHash := hashJSON(input)
	var cached SettlementResult
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return SettlementResult{}, err } else if ok { return cached, nil }
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return SettlementResult{}, err }

	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return SettlementResult{}, err }
	if err := s.checkReleasable(ctx, &row); err != nil { return SettlementResult{}, err }
	if input.Recipient == "" { return SettlementResult{}, domain.ErrInvalidInput }
	out, err := s.settleRelease(ctx, row, input.Recipient, capabilityID, actor.RequestID, false)
	if err != nil { return SettlementResult{}, err }
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}

func (s *Service) capabilityReleaseLocked(ctx context.Context, actor Actor, input CapabilityReleaseInput) (SettlementResult, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return SettlementResult{}, err }
	if flags.ReleasePaused { return SettlementResult{}, domain.ErrReleasePaused }
	if _, err := s.requireInitialized(ctx); err != nil { return SettlementResult{}, err }
	if err := requireActor(actor); err != nil { return SettlementResult{}, err }
	grant, err := s.capabilities.GetByID(ctx, input.CapabilityID)
	if err != nil { return SettlementResult{}, err }
	if grant.Grantee != actor.SubjectID { return SettlementResult{}, domain.ErrUnauthorized }
	if err := requireIdempotencyKey(actor); err != nil { return SettlementResult{}, err }
	requestHash := hashJSON(input)
	var cached SettlementResult
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return SettlementResult{}, err } else if ok { return cached, nil }
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return SettlementResult{}, err }

	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return SettlementResult{}, err }
	if err := s.checkReleasable(ctx, &row); err != nil { return SettlementResult{}, err }
	if err := grant.Validate(domain.ActionRelease, row.EscrowID, row.RemainingAmount, s.nowFn().Unix()); err != nil { return SettlementResult{}, err }
	if input.Recipient == "" { return SettlementResult{}, domain.ErrInvalidInput }
	// The use is burned and persisted before funds move so a storage
	// failure can never leave a paid-out grant replayable. A rejected
	// settlement restores the use.
	grant.Consume()
	if err := s.capabilities.Update(ctx, grant); err != nil { return SettlementResult{}, err }
	out, err := s.settleRelease(ctx, row, input.Recipient, grant.CapabilityID, actor.RequestID, false)
	if err != nil {
		grant.UsesRemaining++
		if uerr := s.capabilities.Update(ctx, grant); uerr != nil {
			s.logger.WarnContext(ctx, "capability use not restored after rejected settlement", "capability_id", grant.CapabilityID, "error", uerr.Error())
		}
		return SettlementResult{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}

// checkReleasable enforces claim and status gating for a release. A
// pending claim that has lapsed is expired in place rather than blocking.
func (s *Service) checkReleasable(ctx context.Context, row *domain.Escrow) error {
	if row.PendingClaimID != nil {
		claim, err := s.claims.GetByID(ctx, *row.PendingClaimID)
		if err != nil { return err }
		if claim.ExpiredAt(s.nowFn().Unix()) {
			claim.Status = domain.ClaimExpired
			if err := s.claims.Update(ctx, claim); err != nil { return err }
			row.PendingClaimID = nil
			if err := s.escrows.Update(ctx, *row); err != nil { return err }
		} else if claim.Open() {
			return domain.ErrClaimPending
		}
	}
	if !row.Releasable() { return domain.ErrInvalidStatus }
	return nil
}

// Refund returns the remaining amount to the depositor after the deadline
// and any configured grace period. Admin approval bypasses both.
func (s *Service) Refund(ctx context.Context, actor Actor, input RefundInput) (SettlementResult, error) {
	if err := s.guard.Enter(); err != nil { return SettlementResult{}, err }
	defer s.guard.Exit()
	out, err := s.refundLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "refund", actor, err)
	return out, err
}

func (s *Service) refundLocked(ctx context.Context, actor Actor, input RefundInput) (SettlementResult, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return SettlementResult{}, err }
	if flags.RefundPaused { return SettlementResult{}, domain.ErrRefundPaused }
	settings, err := s.requireInitialized(ctx)
	if err != nil { return SettlementResult{}, err }
	if err := requireActor(actor); err != nil { return SettlementResult{}, err }
	adminOverride := input.AdminApproval && requireAdmin(actor, settings) == nil
	if input.AdminApproval && !adminOverride { return SettlementResult{}, domain.ErrUnauthorized }
	if err := requireIdempotencyKey(actor); err != nil { return SettlementResult{}, err }
	requestHash := hashJSON(input)
	var cached SettlementResult
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return SettlementResult{}, err } else if ok { return cached, nil }
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return SettlementResult{}, err }

	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return SettlementResult{}, err }
	if row.PendingClaimID != nil {
		claim, err := s.claims.GetByID(ctx, *row.PendingClaimID)
		if err != nil { return SettlementResult{}, err }
		if claim.Open() && !claim.ExpiredAt(s.nowFn().Unix()) { return SettlementResult{}, domain.ErrClaimPending }
	}
	if !row.Refundable() { return SettlementResult{}, domain.ErrInvalidStatus }
	if !adminOverride {
		now := s.nowFn().Unix()
		if !row.DeadlinePassed(now) { return SettlementResult{}, domain.ErrDeadlineNotPassed }
		grace, err := s.graceConfig(ctx)
		if err != nil { return SettlementResult{}, err }
		if now < grace.Deadline(row.Deadline) { return SettlementResult{}, domain.ErrGraceNotElapsed }
	}
	out, err := s.settleRefund(ctx, row, adminOverride, actor.RequestID)
	if err != nil { return SettlementResult{}, err }
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}

// settleRelease performs the fund-moving half of a release. Fee and
// spending checks run before any transfer so a failure leaves no partial
// accounting behind.
func (s *Service) settleRelease(ctx context.Context, row domain.Escrow, recipient string, capabilityID uint64, traceID string, batch bool) (SettlementResult, error) {
	now := s.nowFn()
	gross := row.RemainingAmount
	feeCfg, err := s.feeConfig(ctx)
	if err != nil { return SettlementResult{}, err }
	fee, err := feeCfg.FeeFor(gross)
	if err != nil { return SettlementResult{}, err }
	net := gross - fee

	spendCfg, err := s.spendingConfig(ctx, row.ProgramID, row.TokenID)
	if err != nil { return SettlementResult{}, err }
	state, err := s.spendingState(ctx, row.ProgramID, row.TokenID)
	if err != nil { return SettlementResult{}, err }
	state, err = spendCfg.Charge(state, now.Unix(), net)
	if err != nil { return SettlementResult{}, err }

	shares, err := feeCfg.Split(fee)
	if err != nil { return SettlementResult{}, err }

	if net > 0 {
		if err := s.transfer(ctx, row.TokenID, s.custodyAccount(), recipient, net); err != nil { return SettlementResult{}, err }
	}
	for _, share := range shares {
		if share.Amount == 0 { continue }
		if err := s.transfer(ctx, row.TokenID, s.custodyAccount(), share.Address, share.Amount); err != nil { return SettlementResult{}, err }
	}

	lastLockAt := row.LastLockAt
	row.RemainingAmount = 0
	row.Status = domain.StatusReleased
	row.PendingClaimID = nil
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil { return SettlementResult{}, err }
	if err := s.spending.PutState(ctx, state); err != nil { return SettlementResult{}, err }

	receipt, err := s.receipts.Append(ctx, domain.Receipt{Outcome: domain.OutcomeReleased, EscrowID: row.EscrowID, Amount: gross, Party: recipient, Timestamp: now.Unix()})
	if err != nil { return SettlementResult{}, err }
	s.recordSettlementMetrics(ctx, now.Unix(), lastLockAt.Unix())

	out := SettlementResult{Escrow: row, Receipt: receipt, GrossAmount: gross, FeeAmount: fee, NetAmount: net, Distribution: shares}
	if err := s.enqueueEscrowReleased(ctx, out, recipient, capabilityID, traceID, now, batch); err != nil { return SettlementResult{}, err }
	if fee > 0 {
		if err := s.enqueueFeeDistributed(ctx, row.EscrowID, fee, shares, traceID, now); err != nil { return SettlementResult{}, err }
	}
	s.notifyLargeRelease(ctx, row.EscrowID, net, recipient, now.Unix())
	return out, nil
}

// settleRefund returns the full remaining amount to the depositor, fee
// free, and records the refund receipt.
func (s *Service) settleRefund(ctx context.Context, row domain.Escrow, adminOverride bool, traceID string) (SettlementResult, error) {
	now := s.nowFn()
	amount := row.RemainingAmount
	if err := s.transfer(ctx, row.TokenID, s.custodyAccount(), row.Depositor, amount); err != nil { return SettlementResult{}, err }

	lastLockAt := row.LastLockAt
	row.RemainingAmount = 0
	row.Status = domain.StatusRefunded
	row.PendingClaimID = nil
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil { return SettlementResult{}, err }

	receipt, err := s.receipts.Append(ctx, domain.Receipt{Outcome: domain.OutcomeRefunded, EscrowID: row.EscrowID, Amount: amount, Party: row.Depositor, Timestamp: now.Unix()})
	if err != nil { return SettlementResult{}, err }
	s.recordSettlementMetrics(ctx, now.Unix(), lastLockAt.Unix())

	out := SettlementResult{Escrow: row, Receipt: receipt, GrossAmount: amount, NetAmount: amount}
	if err := s.enqueueEscrowRefunded(ctx, out, adminOverride, traceID, now); err != nil { return SettlementResult{}, err }
	s.notifyRefund(ctx, row.EscrowID, amount, row.Depositor, now.Unix())
	return out, nil
}

func (s *Service) transfer(ctx context.Context, tokenID, from, to string, amount int64) error {
	if s.transferor == nil || amount == 0 { return nil }
	return s.transferor.Transfer(ctx, tokenID, from, to, amount)
}

func (s *Service) recordLockMetrics(ctx context.Context, ts, amount int64) {
	if s.metrics == nil { return }
	ring, err := s.metrics.GetRing(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "metrics read failed", "error", err)
		return
	}
	ring.RecordLock(ts, amount)
	if err := s.metrics.PutRing(ctx, ring); err != nil { s.logger.WarnContext(ctx, "metrics write failed", "error", err) }
}

func (s *Service) recordSettlementMetrics(ctx context.Context, ts, lastLockAt int64) {
	if s.metrics == nil { return }
	ring, err := s.metrics.GetRing(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "metrics read failed", "error", err)
		return
	}
	ring.RecordSettlement(ts, lastLockAt)
	if err := s.metrics.PutRing(ctx, ring); err != nil { s.logger.WarnContext(ctx, "metrics write failed", "error", err) }
}

func requireIdempotencyKey(actor Actor) error {
	if actor.IdempotencyKey == "" { return domain.ErrIdempotencyRequired }
	return nil
}

func (s *Service) logOutcome(ctx context.Context, operation string, actor Actor, outcome string) {
	s.logger.InfoContext(ctx, "operation complete",
		"service", s.cfg.ServiceName, "layer", "application",
		"operation", operation, "outcome", outcome, "request_id", actor.RequestID)
}

func (s *Service) logOutcomeErr(ctx context.Context, operation string, actor Actor, err error) {
	if err == nil {
		s.logOutcome(ctx, operation, actor, "success")
		return
	}
	s.logger.WarnContext(ctx, "operation rejected",
		"service", s.cfg.ServiceName, "layer", "application",
		"operation", operation, "outcome", "rejected", "request_id", actor.RequestID,
		"error", err.Error())
}
