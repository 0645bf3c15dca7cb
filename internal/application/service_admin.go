package application

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

func (s *Service) adminGate(ctx context.Context, actor Actor) error {
	settings, err := s.requireInitialized(ctx)
	if err != nil { return err }
	return requireAdmin(actor, settings)
}

// SetFeeConfig replaces the fee rate and treasury destinations.
func (s *Service) SetFeeConfig(ctx context.Context, actor Actor, cfg domain.FeeConfig) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "fee", func() error {
		if err := cfg.Validate(); err != nil { return err }
		return s.config.PutFeeConfig(ctx, cfg)
	})
	s.logOutcomeErr(ctx, "set_fee_config", actor, err)
	return err
}

// SetSpendingLimit replaces one program+token window configuration.
func (s *Service) SetSpendingLimit(ctx context.Context, actor Actor, cfg domain.SpendingLimitConfig) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "spending_limit", func() error {
		if cfg.ProgramID == "" || cfg.TokenID == "" { return domain.ErrInvalidInput }
		if cfg.Enabled && (cfg.MaxAmount <= 0 || cfg.WindowSeconds <= 0) { return domain.ErrInvalidInput }
		return s.spending.PutConfig(ctx, cfg)
	})
	s.logOutcomeErr(ctx, "set_spending_limit", actor, err)
	return err
}

// SetGraceConfig replaces the post-deadline grace settings.
func (s *Service) SetGraceConfig(ctx context.Context, actor Actor, cfg domain.GraceConfig) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "grace", func() error {
		if cfg.Enabled && cfg.PeriodSeconds <= 0 { return domain.ErrInvalidInput }
		return s.config.PutGraceConfig(ctx, cfg)
	})
	s.logOutcomeErr(ctx, "set_grace_config", actor, err)
	return err
}

// SetFilter replaces the participant filter mode and entry set.
func (s *Service) SetFilter(ctx context.Context, actor Actor, filter domain.ParticipantFilter) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "filter", func() error {
		switch filter.Mode {
		case domain.FilterOpen, domain.FilterAllowlist, domain.FilterBlocklist:
		default:
			return domain.ErrInvalidInput
		}
		return s.config.PutFilter(ctx, filter)
	})
	s.logOutcomeErr(ctx, "set_filter", actor, err)
	return err
}

// SetHook registers (or disables) the single best-effort notification
// target.
func (s *Service) SetHook(ctx context.Context, actor Actor, cfg domain.HookConfig) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "hook", func() error {
		if cfg.Enabled && cfg.URL == "" { return domain.ErrInvalidInput }
		return s.config.PutHookConfig(ctx, cfg)
	})
	s.logOutcomeErr(ctx, "set_hook", actor, err)
	return err
}

// SetDeprecation toggles the new-lock block. Existing escrows still
// settle normally.
func (s *Service) SetDeprecation(ctx context.Context, actor Actor, dep domain.Deprecation) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "deprecation", func() error {
		return s.config.PutDeprecation(ctx, dep)
	})
	s.logOutcomeErr(ctx, "set_deprecation", actor, err)
	return err
}

// SetRiskFlags stores the advisory 4-bit risk mask for an entity.
func (s *Service) SetRiskFlags(ctx context.Context, actor Actor, entity string, mask uint8) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "risk_flags", func() error {
		if entity == "" { return domain.ErrInvalidInput }
		if !domain.ValidRiskMask(mask) { return domain.ErrInvalidRiskMask }
		return s.config.PutRiskFlags(ctx, entity, mask)
	})
	s.logOutcomeErr(ctx, "set_risk_flags", actor, err)
	return err
}

// SetAmountPolicy replaces the inclusive [min,max] lock bounds.
func (s *Service) SetAmountPolicy(ctx context.Context, actor Actor, policy domain.AmountPolicy) error {
	if err := s.guard.Enter(); err != nil { return err }
	defer s.guard.Exit()
	err := s.setConfigLocked(ctx, actor, "amount_policy", func() error {
		if policy.Min < 0 || policy.Max < 0 { return domain.ErrInvalidInput }
		if policy.Max > 0 && policy.Min > policy.Max { return domain.ErrInvalidInput }
		return s.config.PutAmountPolicy(ctx, policy)
	})
	s.logOutcomeErr(ctx, "set_amount_policy", actor, err)
	return err
}

func (s *Service) setConfigLocked(ctx context.Context, actor Actor, section string, apply func() error) error {
	if err := s.adminGate(ctx, actor); err != nil { return err }
	if err := apply(); err != nil { return err }
	return s.enqueueConfigUpdated(ctx, section, actor, s.nowFn())
}

// SetPaused toggles the per-operation pause flags. Unset fields keep
// their current value.
func (s *Service) SetPaused(ctx context.Context, actor Actor, input SetPausedInput) (domain.PauseFlags, error) {
	if err := s.guard.Enter(); err != nil { return domain.PauseFlags{}, err }
	defer s.guard.Exit()
	out, err := s.setPausedLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "set_paused", actor, err)
	return out, err
}

func (s *Service) setPausedLocked(ctx context.Context, actor Actor, input SetPausedInput) (domain.PauseFlags, error) {
	if err := s.adminGate(ctx, actor); err != nil { return domain.PauseFlags{}, err }
	flags, err := s.pauseFlags(ctx)
	if err != nil { return domain.PauseFlags{}, err }
	if input.LockPaused != nil { flags.LockPaused = *input.LockPaused }
	if input.ReleasePaused != nil { flags.ReleasePaused = *input.ReleasePaused }
	if input.RefundPaused != nil { flags.RefundPaused = *input.RefundPaused }
	if err := s.config.PutPauseFlags(ctx, flags); err != nil { return domain.PauseFlags{}, err }
	if err := s.enqueuePauseChanged(ctx, flags, input.Reason, actor, s.nowFn()); err != nil { return domain.PauseFlags{}, err }
	return flags, nil
}

// EmergencyWithdraw drains one escrow to a destination chosen by the
// admin. Allowed only while every pause flag is set, as a last-resort
// recovery path.
func (s *Service) EmergencyWithdraw(ctx context.Context, actor Actor, input EmergencyWithdrawInput) (SettlementResult, error) {
	if err := s.guard.Enter(); err != nil { return SettlementResult{}, err }
	defer s.guard.Exit()
	out, err := s.emergencyWithdrawLocked(ctx, actor, input)
	s.logOutcomeErr(ctx, "emergency_withdraw", actor, err)
	return out, err
}

func (s *Service) emergencyWithdrawLocked(ctx context.Context, actor Actor, input EmergencyWithdrawInput) (SettlementResult, error) {
	flags, err := s.pauseFlags(ctx)
	if err != nil { return SettlementResult{}, err }
	if !flags.LockPaused || !flags.ReleasePaused || !flags.RefundPaused { return SettlementResult{}, domain.ErrInvalidStatus }
	if err := s.adminGate(ctx, actor); err != nil { return SettlementResult{}, err }
	if input.Destination == "" { return SettlementResult{}, domain.ErrInvalidInput }
	row, err := s.escrows.GetByID(ctx, input.EscrowID)
	if err != nil { return SettlementResult{}, err }
	if row.IsTerminal() { return SettlementResult{}, domain.ErrInvalidStatus }

	now := s.nowFn()
	amount := row.RemainingAmount
	if err := s.transfer(ctx, row.TokenID, s.custodyAccount(), input.Destination, amount); err != nil { return SettlementResult{}, err }
	row.RemainingAmount = 0
	row.Status = domain.StatusRefunded
	row.PendingClaimID = nil
	row.UpdatedAt = now
	if err := s.escrows.Update(ctx, row); err != nil { return SettlementResult{}, err }
	receipt, err := s.receipts.Append(ctx, domain.Receipt{Outcome: domain.OutcomeRefunded, EscrowID: row.EscrowID, Amount: amount, Party: input.Destination, Timestamp: now.Unix()})
	if err != nil { return SettlementResult{}, err }
	out := SettlementResult{Escrow: row, Receipt: receipt, GrossAmount: amount, NetAmount: amount}
	if err := s.enqueueEmergencyWithdraw(ctx, row.EscrowID, amount, input.Destination, actor, now); err != nil { return SettlementResult{}, err }
	return out, nil
}
