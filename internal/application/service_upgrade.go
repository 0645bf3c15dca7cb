package application

import (
	"context"
	"fmt"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// SimulateUpgrade runs the read-only pre-upgrade probes and reports
// whether an upgrade may proceed. It never mutates engine state.
func (s *Service) SimulateUpgrade(ctx context.Context, actor Actor) (domain.UpgradeReport, error) {
	settings, err := s.settings(ctx)
	if err != nil { return domain.UpgradeReport{}, err }
	if err := requireAdmin(actor, settings); err != nil { return domain.UpgradeReport{}, err }

	now := s.nowFn()
	checks := []domain.UpgradeCheck{
		s.checkStorageReadable(ctx),
		s.checkInitialized(settings),
		s.checkEscrowInvariants(ctx),
		s.checkOrphanedClaims(ctx),
		s.checkAuthorityPresence(settings),
		s.checkFeatureFlags(ctx),
		s.checkGuardNotStuck(),
		s.checkVersion(settings),
		s.checkAggregates(ctx),
		s.checkReceiptCounter(ctx),
	}
	report := domain.BuildUpgradeReport(checks, now.Unix())
	if err := s.enqueueUpgradeSimulated(ctx, report, actor.RequestID, now); err != nil { return domain.UpgradeReport{}, err }
	s.logOutcome(ctx, "simulate_upgrade", actor, fmt.Sprintf("safe=%t", report.Safe))
	return report, nil
}

func (s *Service) checkStorageReadable(ctx context.Context) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "storage_readable", Passed: true}
	if _, err := s.escrows.Count(ctx); err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("escrow store unreadable: %v", err)
		return c
	}
	if _, err := s.receipts.Count(ctx); err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("receipt store unreadable: %v", err)
	}
	return c
}

func (s *Service) checkInitialized(settings domain.EngineSettings) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "initialization_complete", Passed: settings.Initialized()}
	if !c.Passed { c.Detail = "settings record incomplete" }
	return c
}

func (s *Service) checkEscrowInvariants(ctx context.Context) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "escrow_invariants", Passed: true}
	err := s.forEachEscrow(ctx, func(row domain.Escrow) error {
		if !row.ValidateInvariant() {
			return fmt.Errorf("escrow %d violates amount/status invariant", row.EscrowID)
		}
		return nil
	})
	if err != nil { c.Passed, c.Detail = false, err.Error() }
	return c
}

func (s *Service) checkOrphanedClaims(ctx context.Context) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "no_orphaned_claims", Passed: true}
	open, err := s.claims.ListOpen(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("claim store unreadable: %v", err)
		return c
	}
	for _, claim := range open {
		row, err := s.escrows.GetByID(ctx, claim.EscrowID)
		if err != nil {
			c.Passed, c.Detail = false, fmt.Sprintf("claim %d references missing escrow %d", claim.ClaimID, claim.EscrowID)
			return c
		}
		if row.PendingClaimID == nil || *row.PendingClaimID != claim.ClaimID {
			c.Passed, c.Detail = false, fmt.Sprintf("claim %d not referenced by escrow %d", claim.ClaimID, claim.EscrowID)
			return c
		}
	}
	return c
}

func (s *Service) checkAuthorityPresence(settings domain.EngineSettings) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "admin_and_token_present", Passed: settings.Admin != "" && settings.SettlementToken != ""}
	if !c.Passed { c.Detail = "admin or settlement token missing" }
	return c
}

func (s *Service) checkFeatureFlags(ctx context.Context) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "feature_flag_sanity", Passed: true}
	fee, err := s.feeConfig(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("fee config unreadable: %v", err)
		return c
	}
	if fee.FeeRateBps != 0 || fee.DistributionEnabled {
		if err := fee.Validate(); err != nil {
			c.Passed, c.Detail = false, fmt.Sprintf("fee config invalid: %v", err)
			return c
		}
	}
	grace, err := s.graceConfig(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("grace config unreadable: %v", err)
		return c
	}
	if grace.Enabled && grace.PeriodSeconds <= 0 {
		c.Passed, c.Detail = false, "grace enabled with non-positive period"
		return c
	}
	filter, err := s.filter(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("filter unreadable: %v", err)
		return c
	}
	switch filter.Mode {
	case domain.FilterOpen, domain.FilterAllowlist, domain.FilterBlocklist, "":
	default:
		c.Passed, c.Detail = false, fmt.Sprintf("unknown filter mode %q", filter.Mode)
	}
	return c
}

func (s *Service) checkGuardNotStuck() domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "guard_not_stuck", Passed: !s.guard.Held()}
	if !c.Passed { c.Detail = "reentrancy guard still held" }
	return c
}

func (s *Service) checkVersion(settings domain.EngineSettings) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "version_consistent", Passed: !settings.Initialized() || settings.Version != ""}
	if !c.Passed { c.Detail = "initialized engine without a version" }
	return c
}

func (s *Service) checkAggregates(ctx context.Context) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "non_negative_aggregates", Passed: true}
	total, err := s.escrows.AggregateRemaining(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("aggregate unreadable: %v", err)
		return c
	}
	if total < 0 { c.Passed, c.Detail = false, fmt.Sprintf("aggregate remaining is negative: %d", total) }
	return c
}

func (s *Service) checkReceiptCounter(ctx context.Context) domain.UpgradeCheck {
	c := domain.UpgradeCheck{Name: "receipt_counter_consistent", Passed: true}
	last, err := s.receipts.LastID(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("receipt counter unreadable: %v", err)
		return c
	}
	count, err := s.receipts.Count(ctx)
	if err != nil {
		c.Passed, c.Detail = false, fmt.Sprintf("receipt count unreadable: %v", err)
		return c
	}
	if last < uint64(count) {
		c.Passed, c.Detail = false, fmt.Sprintf("counter %d behind stored receipts %d", last, count)
	}
	return c
}

func (s *Service) forEachEscrow(ctx context.Context, fn func(domain.Escrow) error) error {
	offset := 0
	for {
		page, total, err := s.escrows.Search(ctx, domain.SearchCriteria{}, offset, domain.MaxSearchPageSize)
		if err != nil { return err }
		for _, row := range page {
			if err := fn(row); err != nil { return err }
		}
		offset += len(page)
		if len(page) == 0 || offset >= total { return nil }
	}
}
