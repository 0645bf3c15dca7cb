package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// GrantCapability delegates scoped settle authority over one escrow to a
// grantee. Only the escrow depositor or an admin may grant.
func (s *Service) GrantCapability(ctx context.Context, actor Actor, input GrantCapabilityInput) (domain.Capability, error) {
	if err := s.guard.Enter(); err != nil { return domain.Capability{}, err }
	defer s.guard.Exit()
	out, err := s.grantCapabilityLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "grant_capability", actor, err)
	return out, err
}

func (s *Service) grantCapabilityLocked(ctx context.Context, actor Actor, input GrantCapabilityInput) (domain.Capability, error) {
	settings, err := s.requireInitialized(ctx)
	if err != nil { return domain.Capability{}, err }
	if err := requireActor(actor); err != nil { return domain.Capability{}, err }
	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return domain.Capability{}, err }
	if actor.SubjectID != row.Depositor && requireAdmin(actor, settings) != nil { return domain.Capability{}, domain.ErrUnauthorized }
	if row.IsTerminal() { return domain.Capability{}, domain.ErrInvalidStatus }
	if input.Grantee == "" || input.AmountCeiling <= 0 || input.Uses <= 0 { return domain.Capability{}, domain.ErrInvalidInput }
	if input.Action != domain.ActionRelease && input.Action != domain.ActionRefund { return domain.Capability{}, domain.ErrInvalidInput }
	now := s.nowFn()
	if input.ExpiresAt != 0 && input.ExpiresAt <= now.Unix() { return domain.Capability{}, domain.ErrInvalidDeadline }

	id, err := s.capabilities.NextID(ctx)
	if err != nil { return domain.Capability{}, err }
	grant := domain.Capability{
		CapabilityID:  id,
		EscrowID:      row.EscrowID,
		Grantee:       input.Grantee,
		Action:        input.Action,
		AmountCeiling: input.AmountCeiling,
		UsesRemaining: input.Uses,
		ExpiresAt:     input.ExpiresAt,
	}
	if err := s.capabilities.Create(ctx, grant); err != nil { return domain.Capability{}, err }
	if err := s.enqueueCapabilityGranted(ctx, grant, actor.RequestID, now); err != nil { return domain.Capability{}, err }
	return grant, nil
}

// RevokeCapability marks a capability unusable. Revocation is permanent.
func (s *Service) RevokeCapability(ctx context.Context, actor Actor, capabilityID uint64) (domain.Capability, error) {
	if err := s.guard.Enter(); err != nil { return domain.Capability{}, err }
	defer s.guard.Exit()
	out, err := s.revokeCapabilityLocked(ctx, actor, capabilityID)
	s.logOutcomeErr(ctx, "revoke_capability", actor, err)
	return out, err
}

func (s *Service) revokeCapabilityLocked(ctx context.Context, actor Actor, capabilityID uint64) (domain.Capability, error) {
	settings, err := s.requireInitialized(ctx)
	if err != nil { return domain.Capability{}, err }
	if err := requireActor(actor); err != nil { return domain.Capability{}, err }
	grant, err := s.capabilities.GetByID(ctx, capabilityID)
	if err != nil { return domain.Capability{}, err }
	row, err := s.escrows.GetByID(ctx, grant.EscrowID)
	if err != nil { return domain.Capability{}, err }
	if actor.SubjectID != row.Depositor && requireAdmin(actor, settings) != nil { return domain.Capability{}, domain.ErrUnauthorized }
	if grant.Revoked { return domain.Capability{}, domain.ErrCapabilityRevoked }

	grant.Revoked = true
	if err := s.capabilities.Update(ctx, grant); err != nil { return domain.Capability{}, err }
	if err := s.enqueueCapabilityRevoked(ctx, grant, actor.RequestID, s.nowFn()); err != nil { return domain.Capability{}, err }
	return grant, nil
}
