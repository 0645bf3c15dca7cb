package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// RequestClaim opens a pending claim on a locked escrow. While the claim
// is open the escrow cannot be released or refunded.
func (s *Service) RequestClaim(ctx context.Context, actor Actor, input RequestClaimInput) (domain.Claim, error) {
	if err := s.guard.Enter(); err != nil { return domain.Claim{}, err }
	defer s.guard.Exit()
	out, err := s.requestClaimLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "request_claim", actor, err)
	return out, err
}

func (s *Service) requestClaimLocked(ctx context.Context, actor Actor, input RequestClaimInput) (domain.Claim, error) {
	if _, err := s.requireInitialized(ctx); err != nil { return domain.Claim{}, err }
	if err := requireActor(actor); err != nil { return domain.Claim{}, err }
	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return domain.Claim{}, err }
	if row.PendingClaimID != nil {
		existing, err := s.claims.GetByID(ctx, *row.PendingClaimID)
		if err != nil { return domain.Claim{}, err }
		if existing.Open() && !existing.ExpiredAt(s.nowFn().Unix()) { return domain.Claim{}, domain.ErrClaimPending }
	}
	if row.Status != domain.StatusLocked { return domain.Claim{}, domain.ErrInvalidStatus }
	if input.Amount <= 0 || input.Amount > row.RemainingAmount { return domain.Claim{}, domain.ErrInvalidAmount }

	now := s.nowFn()
	id, err := s.claims.NextID(ctx)
	if err != nil { return domain.Claim{}, err }
	claim := domain.Claim{ClaimID: id, EscrowID: row.EscrowID, Claimant: actor.SubjectID, Amount: input.Amount, RequestedAt: now.Unix(), ExpiresAt: input.ExpiresAt, Status: domain.ClaimPending}
	if err := s.claims.Create(ctx, claim); err != nil { return domain.Claim{}, err }
	row.PendingClaimID = &claim.ClaimID
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil { return domain.Claim{}, err }
	if err := s.enqueueClaimRequested(ctx, claim, actor.RequestID, now); err != nil { return domain.Claim{}, err }
	return claim, nil
}

// ResolveClaim closes a pending claim. Approval settles the escrow to the
// claimant through the normal release path; rejection just clears the
// block.
func (s *Service) ResolveClaim(ctx context.Context, actor Actor, input ResolveClaimInput) (domain.Claim, error) {
	if err := s.guard.Enter(); err != nil { return domain.Claim{}, err }
	defer s.guard.Exit()
	out, err := s.resolveClaimLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "resolve_claim", actor, err)
	return out, err
}

func (s *Service) resolveClaimLocked(ctx context.Context, actor Actor, input ResolveClaimInput) (domain.Claim, error) {
	if input.Approve {
		flags, err := s.pauseFlags(ctx)
		if err != nil { return domain.Claim{}, err }
		if flags.ReleasePaused { return domain.Claim{}, domain.ErrReleasePaused }
	}
	settings, err := s.requireInitialized(ctx)
	if err != nil { return domain.Claim{}, err }
	if err := requireAdmin(actor, settings); err != nil { return domain.Claim{}, err }
	claim, err := s.claims.GetByID(ctx, input.ClaimID)
	if err != nil { return domain.Claim{}, err }
	if !claim.Open() { return domain.Claim{}, domain.ErrClaimClosed }
	row, err := s.escrows.GetByID(ctx, claim.EscrowID)
	if err != nil { return domain.Claim{}, err }

	now := s.nowFn()
	if claim.ExpiredAt(now.Unix()) {
		claim.Status = domain.ClaimExpired
	} else if input.Approve {
		claim.Status = domain.ClaimApproved
	} else {
		claim.Status = domain.ClaimRejected
	}
	if claim.Status == domain.ClaimApproved {
		// Settlement runs before any claim state is persisted: a rejected
		// settlement leaves the claim pending and the escrow link intact, so
		// the resolution can be retried. settleRelease writes the escrow row
		// itself, clearing the link.
		if _, err := s.settleRelease(ctx, row, claim.Claimant, 0, actor.RequestID, false); err != nil { return domain.Claim{}, err }
		if err := s.claims.Update(ctx, claim); err != nil { return domain.Claim{}, err }
	} else {
		if err := s.claims.Update(ctx, claim); err != nil { return domain.Claim{}, err }
		row.PendingClaimID = nil
		row.UpdatedAt = now
		if err := s.escrows.Update(ctx, row); err != nil { return domain.Claim{}, err }
	}
	if err := s.enqueueClaimResolved(ctx, claim, actor.RequestID, now); err != nil { return domain.Claim{}, err }
	return claim, nil
}
