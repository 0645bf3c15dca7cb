package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

type Config struct {
	ServiceName          string
	EngineID             string
	IdempotencyTTL       time.Duration
	EventDedupTTL        time.Duration
	ConsumerPollInterval time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type InitializeInput struct {
	Admin           string
	SettlementToken string
	Version         string
}

type LockInput struct {
	EscrowID              uint64
	ProgramID             string
	Depositor             string
	Amount                int64
	Deadline              int64
	NonTransferableReward bool
}

type ReleaseInput struct {
	EscrowID  uint64
	Recipient string
}

type CapabilityReleaseInput struct {
	CapabilityID uint64
	EscrowID     uint64
	Recipient    string
}

type RefundInput struct {
	EscrowID      uint64
	AdminApproval bool
}

type OpenDisputeInput struct {
	EscrowID uint64
	Reason   string
}

type ResolveDisputeInput struct {
	DisputeID uint64
	Outcome   domain.DisputeOutcome
	Recipient string
}

type RequestClaimInput struct {
	EscrowID  uint64
	Amount    int64
	ExpiresAt int64
}

type ResolveClaimInput struct {
	ClaimID uint64
	Approve bool
}

type GrantCapabilityInput struct {
	EscrowID      uint64
	Grantee       string
	Action        domain.CapabilityAction
	AmountCeiling int64
	Uses          int64
	ExpiresAt     int64
}

type SetPausedInput struct {
	LockPaused    *bool
	ReleasePaused *bool
	RefundPaused  *bool
	Reason        string
}

type EmergencyWithdrawInput struct {
	EscrowID    uint64
	Destination string
}

type SearchInput struct {
	Criteria domain.SearchCriteria
	Offset   int
	Limit    int
}

// SettlementResult is the record returned by release/refund paths: the
// final escrow row plus the accounting the settlement produced.
type SettlementResult struct {
	Escrow       domain.Escrow
	Receipt      domain.Receipt
	GrossAmount  int64
	FeeAmount    int64
	NetAmount    int64
	Distribution []domain.FeeShare
}

type Service struct {
	cfg Config

	escrows      ports.EscrowRepository
	capabilities ports.CapabilityRepository
	claims       ports.ClaimRepository
	disputes     ports.DisputeRepository
	receipts     ports.ReceiptRepository
	config       ports.ConfigRepository
	spending     ports.SpendingLimitRepository
	metrics      ports.MetricsRepository
	idempotency  ports.IdempotencyRepository
	eventDedup   ports.EventDedupRepository
	outbox       ports.OutboxRepository

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	ops          ports.OpsPublisher
	dlq          ports.DLQPublisher

	transferor ports.TokenTransferor
	hooks      ports.HookNotifier

	logger *slog.Logger
	guard  callGuard
	nowFn  func() time.Time
}

type Dependencies struct {
	Config Config

	Escrows      ports.EscrowRepository
	Capabilities ports.CapabilityRepository
	Claims       ports.ClaimRepository
	Disputes     ports.DisputeRepository
	Receipts     ports.ReceiptRepository
	Settings     ports.ConfigRepository
	Spending     ports.SpendingLimitRepository
	Metrics      ports.MetricsRepository
	Idempotency  ports.IdempotencyRepository
	EventDedup   ports.EventDedupRepository
	Outbox       ports.OutboxRepository

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	Ops          ports.OpsPublisher
	DLQ          ports.DLQPublisher

	Transferor ports.TokenTransferor
	Hooks      ports.HookNotifier

	Logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" { cfg.ServiceName = "M15-Settlement-Engine" }
	if cfg.EngineID == "" { cfg.EngineID = "settlement-engine" }
	if cfg.IdempotencyTTL <= 0 { cfg.IdempotencyTTL = 7 * 24 * time.Hour }
	if cfg.EventDedupTTL <= 0 { cfg.EventDedupTTL = 7 * 24 * time.Hour }
	if cfg.ConsumerPollInterval <= 0 { cfg.ConsumerPollInterval = 2 * time.Second }
	if cfg.OutboxFlushBatchSize <= 0 { cfg.OutboxFlushBatchSize = 100 }
	logger := deps.Logger
	if logger == nil { logger = slog.Default() }
	return &Service{
		cfg:          cfg,
		escrows:      deps.Escrows,
		capabilities: deps.Capabilities,
		claims:       deps.Claims,
		disputes:     deps.Disputes,
		receipts:     deps.Receipts,
		config:       deps.Settings,
		spending:     deps.Spending,
		metrics:      deps.Metrics,
		idempotency:  deps.Idempotency,
		eventDedup:   deps.EventDedup,
		outbox:       deps.Outbox,
		domainEvents: deps.DomainEvents,
		analytics:    deps.Analytics,
		ops:          deps.Ops,
		dlq:          deps.DLQ,
		transferor:   deps.Transferor,
		hooks:        deps.Hooks,
		logger:       logger,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}
