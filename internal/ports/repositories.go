package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

type EscrowRepository interface {
	Create(ctx context.Context, row domain.Escrow) error
	// CreateBatch persists all rows or none of them.
	CreateBatch(ctx context.Context, rows []domain.Escrow) error
	GetByID(ctx context.Context, escrowID uint64) (domain.Escrow, error)
	Update(ctx context.Context, row domain.Escrow) error
	// UpdateBatch applies all updates or none of them.
	UpdateBatch(ctx context.Context, rows []domain.Escrow) error
	Search(ctx context.Context, criteria domain.SearchCriteria, offset, limit int) ([]domain.Escrow, int, error)
	// AggregateRemaining sums remaining_amount over non-terminal escrows.
	AggregateRemaining(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
}

type CapabilityRepository interface {
	NextID(ctx context.Context) (uint64, error)
	Create(ctx context.Context, row domain.Capability) error
	GetByID(ctx context.Context, capabilityID uint64) (domain.Capability, error)
	Update(ctx context.Context, row domain.Capability) error
	ListByEscrow(ctx context.Context, escrowID uint64) ([]domain.Capability, error)
}

type ClaimRepository interface {
	NextID(ctx context.Context) (uint64, error)
	Create(ctx context.Context, row domain.Claim) error
	GetByID(ctx context.Context, claimID uint64) (domain.Claim, error)
	Update(ctx context.Context, row domain.Claim) error
	ListOpen(ctx context.Context) ([]domain.Claim, error)
}

type DisputeRepository interface {
	NextID(ctx context.Context) (uint64, error)
	Create(ctx context.Context, row domain.Dispute) error
	GetByID(ctx context.Context, disputeID uint64) (domain.Dispute, error)
	GetOpenByEscrow(ctx context.Context, escrowID uint64) (domain.Dispute, error)
	Update(ctx context.Context, row domain.Dispute) error
}

type ReceiptRepository interface {
	// Append assigns the next monotonic receipt id and stores the record.
	Append(ctx context.Context, row domain.Receipt) (domain.Receipt, error)
	GetByID(ctx context.Context, receiptID uint64) (domain.Receipt, error)
	// LastID returns the highest assigned receipt id, zero when none.
	LastID(ctx context.Context) (uint64, error)
	Count(ctx context.Context) (int, error)
}

// ConfigRepository holds the engine-scoped mutable settings. Readers fall
// back to zero-value defaults when a setting was never written.
type ConfigRepository interface {
	GetSettings(ctx context.Context) (domain.EngineSettings, error)
	PutSettings(ctx context.Context, s domain.EngineSettings) error

	GetFeeConfig(ctx context.Context) (domain.FeeConfig, error)
	PutFeeConfig(ctx context.Context, c domain.FeeConfig) error

	GetPauseFlags(ctx context.Context) (domain.PauseFlags, error)
	PutPauseFlags(ctx context.Context, f domain.PauseFlags) error

	GetGraceConfig(ctx context.Context) (domain.GraceConfig, error)
	PutGraceConfig(ctx context.Context, g domain.GraceConfig) error

	GetDeprecation(ctx context.Context) (domain.Deprecation, error)
	PutDeprecation(ctx context.Context, d domain.Deprecation) error

	GetFilter(ctx context.Context) (domain.ParticipantFilter, error)
	PutFilter(ctx context.Context, f domain.ParticipantFilter) error

	GetHookConfig(ctx context.Context) (domain.HookConfig, error)
	PutHookConfig(ctx context.Context, h domain.HookConfig) error

	GetAmountPolicy(ctx context.Context) (domain.AmountPolicy, error)
	PutAmountPolicy(ctx context.Context, p domain.AmountPolicy) error

	GetRiskFlags(ctx context.Context, entity string) (uint8, error)
	PutRiskFlags(ctx context.Context, entity string, mask uint8) error
}

type SpendingLimitRepository interface {
	GetConfig(ctx context.Context, programID, tokenID string) (domain.SpendingLimitConfig, error)
	PutConfig(ctx context.Context, c domain.SpendingLimitConfig) error
	GetState(ctx context.Context, programID, tokenID string) (domain.SpendingState, error)
	PutState(ctx context.Context, s domain.SpendingState) error
}

type MetricsRepository interface {
	GetRing(ctx context.Context) (domain.MetricsRing, error)
	PutRing(ctx context.Context, r domain.MetricsRing) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
