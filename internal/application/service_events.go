package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

// HandleCanonicalEvent is the consumer entry point. The engine emits
// events but subscribes to none, so any well-formed input is rejected as
// unsupported.
func (s *Service) HandleCanonicalEvent(_ context.Context, envelope contracts.EventEnvelope) error {
	if err := validateEnvelope(envelope); err != nil { return err }
	if !domain.IsCanonicalInputEvent(envelope.EventType) { return domain.ErrUnsupportedEventType }
	return nil
}

// FlushOutbox drains pending outbox records to their class publisher.
// Domain publish failures go to the DLQ and stop the flush; analytics and
// ops failures are dropped.
func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil { return nil }
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil { return err }
	for _, rec := range pending {
		now := s.nowFn()
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					if s.dlq != nil {
						n := s.nowFn()
						_ = s.dlq.PublishDLQ(ctx, contracts.DLQRecord{OriginalEvent: rec.Envelope, ErrorSummary: err.Error(), RetryCount: 1, FirstSeenAt: n, LastErrorAt: n, SourceTopic: rec.Envelope.EventType, DLQTopic: "settlement-engine.dlq", TraceID: rec.Envelope.TraceID})
					}
					return err
				}
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil { _ = s.analytics.PublishAnalytics(ctx, rec.Envelope) }
		case domain.CanonicalEventClassOps:
			if s.ops != nil { _ = s.ops.PublishOps(ctx, rec.Envelope) }
		default:
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventClass, rec.EventClass)
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, now); err != nil { return err }
	}
	return nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, partitionKey string, now time.Time) error {
	if s.outbox == nil { return nil }
	if !domain.IsCanonicalEmittedEvent(eventType) { return domain.ErrUnsupportedEventType }
	b, err := json.Marshal(data)
	if err != nil { return domain.ErrInvalidInput }
	if strings.TrimSpace(traceID) == "" { traceID = uuid.NewString() }
	env := contracts.EventEnvelope{EventID: uuid.NewString(), EventType: eventType, EventClass: domain.CanonicalEventClass(eventType), OccurredAt: now, PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType), PartitionKey: partitionKey, SourceService: s.cfg.ServiceName, TraceID: traceID, SchemaVersion: "v1", Data: b}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{RecordID: uuid.NewString(), EventClass: env.EventClass, Envelope: env, CreatedAt: now})
}

func escrowKey(escrowID uint64) string { return strconv.FormatUint(escrowID, 10) }

func (s *Service) enqueueEscrowLocked(ctx context.Context, row domain.Escrow, traceID string, now time.Time, batch bool) error {
	return s.enqueueEvent(ctx, domain.EventEscrowLocked, traceID, contracts.EscrowLockedPayload{
		EscrowID: row.EscrowID, ProgramID: row.ProgramID, Depositor: row.Depositor, TokenID: row.TokenID,
		Amount: row.Amount, Deadline: row.Deadline, LockedAt: row.CreatedAt.UTC().Format(time.RFC3339), Batch: batch,
	}, escrowKey(row.EscrowID), now)
}

func (s *Service) enqueueEscrowReleased(ctx context.Context, result SettlementResult, recipient string, capabilityID uint64, traceID string, now time.Time, batch bool) error {
	return s.enqueueEvent(ctx, domain.EventEscrowReleased, traceID, contracts.EscrowReleasedPayload{
		EscrowID: result.Escrow.EscrowID, Recipient: recipient,
		GrossAmount: result.GrossAmount, FeeAmount: result.FeeAmount, NetAmount: result.NetAmount,
		ReceiptID: result.Receipt.ReceiptID, CapabilityID: capabilityID,
		Distribution: toBreakdown(result.Distribution),
		ReleasedAt:   now.UTC().Format(time.RFC3339), Batch: batch,
	}, escrowKey(result.Escrow.EscrowID), now)
}

func (s *Service) enqueueEscrowRefunded(ctx context.Context, result SettlementResult, adminOverride bool, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventEscrowRefunded, traceID, contracts.EscrowRefundedPayload{
		EscrowID: result.Escrow.EscrowID, Depositor: result.Escrow.Depositor, Amount: result.GrossAmount,
		ReceiptID: result.Receipt.ReceiptID, AdminOverride: adminOverride,
		RefundedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(result.Escrow.EscrowID), now)
}

func (s *Service) enqueueDisputeOpened(ctx context.Context, dispute domain.Dispute, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeOpened, traceID, contracts.DisputeOpenedPayload{
		DisputeID: dispute.DisputeID, EscrowID: dispute.EscrowID, OpenedBy: dispute.OpenedBy,
		Reason: dispute.Reason, OpenedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(dispute.EscrowID), now)
}

func (s *Service) enqueueDisputeResolved(ctx context.Context, dispute domain.Dispute, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeResolved, traceID, contracts.DisputeResolvedPayload{
		DisputeID: dispute.DisputeID, EscrowID: dispute.EscrowID, Resolver: dispute.Resolver,
		Outcome: string(dispute.Outcome), Recipient: dispute.Recipient,
		ResolvedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(dispute.EscrowID), now)
}

func (s *Service) enqueueClaimRequested(ctx context.Context, claim domain.Claim, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventClaimRequested, traceID, contracts.ClaimRequestedPayload{
		ClaimID: claim.ClaimID, EscrowID: claim.EscrowID, Claimant: claim.Claimant,
		Amount: claim.Amount, ExpiresAt: claim.ExpiresAt,
		RequestedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(claim.EscrowID), now)
}

func (s *Service) enqueueClaimResolved(ctx context.Context, claim domain.Claim, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventClaimResolved, traceID, contracts.ClaimResolvedPayload{
		ClaimID: claim.ClaimID, EscrowID: claim.EscrowID, Status: string(claim.Status),
		ResolvedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(claim.EscrowID), now)
}

func (s *Service) enqueueFeeDistributed(ctx context.Context, escrowID uint64, fee int64, shares []domain.FeeShare, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventFeeDistributed, traceID, contracts.FeeDistributedPayload{
		EscrowID: escrowID, FeeAmount: fee, Distribution: toBreakdown(shares),
		DistributedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(escrowID), now)
}

func (s *Service) enqueueCapabilityGranted(ctx context.Context, grant domain.Capability, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventCapabilityGranted, traceID, contracts.CapabilityGrantedPayload{
		CapabilityID: grant.CapabilityID, EscrowID: grant.EscrowID, Grantee: grant.Grantee,
		Action: string(grant.Action), AmountCeiling: grant.AmountCeiling, Uses: grant.UsesRemaining,
		ExpiresAt: grant.ExpiresAt, GrantedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(grant.EscrowID), now)
}

func (s *Service) enqueueCapabilityRevoked(ctx context.Context, grant domain.Capability, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventCapabilityRevoked, traceID, contracts.CapabilityRevokedPayload{
		CapabilityID: grant.CapabilityID, EscrowID: grant.EscrowID,
		RevokedAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(grant.EscrowID), now)
}

func (s *Service) enqueuePauseChanged(ctx context.Context, flags domain.PauseFlags, reason string, actor Actor, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventPauseChanged, actor.RequestID, contracts.PauseChangedPayload{
		EngineID: s.cfg.EngineID, LockPaused: flags.LockPaused, ReleasePaused: flags.ReleasePaused,
		RefundPaused: flags.RefundPaused, Reason: reason, Admin: actor.SubjectID,
		ChangedAt: now.UTC().Format(time.RFC3339),
	}, s.cfg.EngineID, now)
}

func (s *Service) enqueueConfigUpdated(ctx context.Context, section string, actor Actor, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventConfigUpdated, actor.RequestID, contracts.ConfigUpdatedPayload{
		EngineID: s.cfg.EngineID, Section: section, Admin: actor.SubjectID,
		UpdatedAt: now.UTC().Format(time.RFC3339),
	}, s.cfg.EngineID, now)
}

func (s *Service) enqueueHookFailed(ctx context.Context, eventType string, escrowID uint64, cause error, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventHookFailed, "", contracts.HookFailedPayload{
		EngineID: s.cfg.EngineID, EventType: eventType, EscrowID: escrowID,
		Error: cause.Error(), FailedAt: now.UTC().Format(time.RFC3339),
	}, s.cfg.EngineID, now)
}

func (s *Service) enqueueEmergencyWithdraw(ctx context.Context, escrowID uint64, amount int64, destination string, actor Actor, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventEmergencyWithdraw, actor.RequestID, contracts.EmergencyWithdrawPayload{
		EngineID: s.cfg.EngineID, EscrowID: escrowID, Amount: amount, Destination: destination,
		Admin: actor.SubjectID, WithdrawnAt: now.UTC().Format(time.RFC3339),
	}, escrowKey(escrowID), now)
}

func (s *Service) enqueueUpgradeSimulated(ctx context.Context, report domain.UpgradeReport, traceID string, now time.Time) error {
	var failed []string
	for _, c := range report.Checks {
		if !c.Passed { failed = append(failed, c.Name) }
	}
	return s.enqueueEvent(ctx, domain.EventUpgradeSimulated, traceID, contracts.UpgradeSimulatedPayload{
		EngineID: s.cfg.EngineID, Safe: report.Safe, Failed: failed,
		CheckedAt: now.UTC().Format(time.RFC3339),
	}, s.cfg.EngineID, now)
}

func toBreakdown(shares []domain.FeeShare) []contracts.FeeShareBreakdown {
	if len(shares) == 0 { return nil }
	out := make([]contracts.FeeShareBreakdown, len(shares))
	for i, sh := range shares {
		out[i] = contracts.FeeShareBreakdown{Address: sh.Address, Amount: sh.Amount, Region: sh.Region}
	}
	return out
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() { return domain.ErrInvalidEnvelope }
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.TraceID) == "" || strings.TrimSpace(event.SchemaVersion) == "" { return domain.ErrInvalidEnvelope }
	if len(event.Data) == 0 { return domain.ErrInvalidEnvelope }
	return nil
}
