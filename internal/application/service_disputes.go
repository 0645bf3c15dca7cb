package application

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// OpenDispute freezes a locked escrow pending resolution. Only the
// depositor or an admin may open one.
func (s *Service) OpenDispute(ctx context.Context, actor Actor, input OpenDisputeInput) (domain.Dispute, error) {
	if err := s.guard.Enter(); err != nil { return domain.Dispute{}, err }
	defer s.guard.Exit()
	out, err := s.openDisputeLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "open_dispute", actor, err)
	return out, err
}

func (s *Service) openDisputeLocked(ctx context.Context, actor Actor, input OpenDisputeInput) (domain.Dispute, error) {
	settings, err := s.requireInitialized(ctx)
	if err != nil { return domain.Dispute{}, err }
	if err := requireActor(actor); err != nil { return domain.Dispute{}, err }
	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return domain.Dispute{}, err }
	if actor.SubjectID != row.Depositor && requireAdmin(actor, settings) != nil { return domain.Dispute{}, domain.ErrUnauthorized }
	if _, err := s.disputes.GetOpenByEscrow(ctx, row.EscrowID); err == nil {
		return domain.Dispute{}, domain.ErrDisputeAlreadyOpen
	} else if !errors.Is(err, domain.ErrDisputeNotFound) {
		return domain.Dispute{}, err
	}
	if row.Status != domain.StatusLocked { return domain.Dispute{}, domain.ErrInvalidStatus }

	now := s.nowFn()
	id, err := s.disputes.NextID(ctx)
	if err != nil { return domain.Dispute{}, err }
	dispute := domain.Dispute{DisputeID: id, EscrowID: row.EscrowID, OpenedBy: actor.SubjectID, Reason: input.Reason, OpenedAt: now.Unix()}
	if err := s.disputes.Create(ctx, dispute); err != nil { return domain.Dispute{}, err }
	row.Status = domain.StatusDisputed
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil { return domain.Dispute{}, err }
	if err := s.enqueueDisputeOpened(ctx, dispute, actor.RequestID, now); err != nil { return domain.Dispute{}, err }
	s.notifyDispute(ctx, domain.EventDisputeOpened, row.EscrowID, actor.SubjectID, now.Unix())
	return dispute, nil
}

// ResolveDispute closes a dispute with a release-to-recipient or a
// refund-to-depositor. Resolution is an authority decision; the deadline
// and grace gates do not apply.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, input ResolveDisputeInput) (SettlementResult, error) {
	if err := s.guard.Enter(); err != nil { return SettlementResult{}, err }
	defer s.guard.Exit()
	out, err := s.resolveDisputeLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "resolve_dispute", actor, err)
	return out, err
}

func (s *Service) resolveDisputeLocked(ctx context.Context, actor Actor, input ResolveDisputeInput) (SettlementResult, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return SettlementResult{}, err }
	switch input.Outcome {
	case domain.DisputeReleaseToRecipient:
		if flags.ReleasePaused { return SettlementResult{}, domain.ErrReleasePaused }
	case domain.DisputeRefundToDepositor:
		if flags.RefundPaused { return SettlementResult{}, domain.ErrRefundPaused }
	}
	settings, err := s.requireInitialized(ctx)
	if err != nil { return SettlementResult{}, err }
	if err := requireAdmin(actor, settings); err != nil { return SettlementResult{}, err }
	if err := requireIdempotencyKey(actor); err != nil { return SettlementResult{}, err }
	requestHash := hashJSON(input)
	var cached SettlementResult
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil { return SettlementResult{}, err } else if ok { return cached, nil }
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil { return SettlementResult{}, err }

	dispute, err := s.disputes.GetByID(ctx, input.DisputeID)
	if err != nil { return SettlementResult{}, err }
	if dispute.Resolved { return SettlementResult{}, domain.ErrInvalidStatus }
	row, err := s.escrows.GetByID(ctx, dispute.EscrowID)
	if err != nil { return SettlementResult{}, err }
	if row.Status != domain.StatusDisputed { return SettlementResult{}, domain.ErrNotDisputed }

	now := s.nowFn()
	var out SettlementResult
	switch input.Outcome {
	case domain.DisputeReleaseToRecipient:
		if input.Recipient == "" { return SettlementResult{}, domain.ErrInvalidInput }
		// Resolution settles through the same release path; the status
		// gate is already satisfied by the dispute check above.
		row.Status = domain.StatusLocked
		out, err = s.settleRelease(ctx, row, input.Recipient, 0, actor.RequestID, false)
	case domain.DisputeRefundToDepositor:
		row.Status = domain.StatusLocked
		out, err = s.settleRefund(ctx, row, true, actor.RequestID)
	default:
		return SettlementResult{}, domain.ErrInvalidInput
	}
	if err != nil { return SettlementResult{}, err }

	dispute.Resolved = true
	dispute.ResolvedAt = now.Unix()
	dispute.Resolver = actor.SubjectID
	dispute.Outcome = input.Outcome
	dispute.Recipient = input.Recipient
	if err := s.disputes.Update(ctx, dispute); err != nil { return SettlementResult{}, err }
	if err := s.enqueueDisputeResolved(ctx, dispute, actor.RequestID, now); err != nil { return SettlementResult{}, err }
	s.notifyDispute(ctx, domain.EventDisputeResolved, row.EscrowID, actor.SubjectID, now.Unix())
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
	return out, nil
}
