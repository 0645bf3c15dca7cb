package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type EscrowLockedPayload struct {
	EscrowID  uint64 `json:"escrow_id"`
	ProgramID string `json:"program_id"`
	Depositor string `json:"depositor"`
	TokenID   string `json:"token_id"`
	Amount    int64  `json:"amount"`
	Deadline  int64  `json:"deadline,omitempty"`
	LockedAt  string `json:"locked_at"`
	Batch     bool   `json:"batch,omitempty"`
}

type FeeShareBreakdown struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	Region  string `json:"region,omitempty"`
}

type EscrowReleasedPayload struct {
	EscrowID     uint64              `json:"escrow_id"`
	Recipient    string              `json:"recipient"`
	GrossAmount  int64               `json:"gross_amount"`
	FeeAmount    int64               `json:"fee_amount"`
	NetAmount    int64               `json:"net_amount"`
	ReceiptID    uint64              `json:"receipt_id"`
	CapabilityID uint64              `json:"capability_id,omitempty"`
	Distribution []FeeShareBreakdown `json:"distribution,omitempty"`
	ReleasedAt   string              `json:"released_at"`
	Batch        bool                `json:"batch,omitempty"`
}

type EscrowRefundedPayload struct {
	EscrowID      uint64 `json:"escrow_id"`
	Depositor     string `json:"depositor"`
	Amount        int64  `json:"amount"`
	ReceiptID     uint64 `json:"receipt_id"`
	AdminOverride bool   `json:"admin_override,omitempty"`
	GraceDeadline int64  `json:"grace_deadline,omitempty"`
	RefundedAt    string `json:"refunded_at"`
}

type DisputeOpenedPayload struct {
	DisputeID uint64 `json:"dispute_id"`
	EscrowID  uint64 `json:"escrow_id"`
	OpenedBy  string `json:"opened_by"`
	Reason    string `json:"reason,omitempty"`
	OpenedAt  string `json:"opened_at"`
}

type DisputeResolvedPayload struct {
	DisputeID  uint64 `json:"dispute_id"`
	EscrowID   uint64 `json:"escrow_id"`
	Resolver   string `json:"resolver"`
	Outcome    string `json:"outcome"`
	Recipient  string `json:"recipient,omitempty"`
	ResolvedAt string `json:"resolved_at"`
}

type ClaimRequestedPayload struct {
	ClaimID     uint64 `json:"claim_id"`
	EscrowID    uint64 `json:"escrow_id"`
	Claimant    string `json:"claimant"`
	Amount      int64  `json:"amount"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
	RequestedAt string `json:"requested_at"`
}

type ClaimResolvedPayload struct {
	ClaimID    uint64 `json:"claim_id"`
	EscrowID   uint64 `json:"escrow_id"`
	Status     string `json:"status"`
	ResolvedAt string `json:"resolved_at"`
}

type FeeDistributedPayload struct {
	EscrowID     uint64              `json:"escrow_id"`
	FeeAmount    int64               `json:"fee_amount"`
	Distribution []FeeShareBreakdown `json:"distribution"`
	DistributedAt string             `json:"distributed_at"`
}

type CapabilityGrantedPayload struct {
	CapabilityID  uint64 `json:"capability_id"`
	EscrowID      uint64 `json:"escrow_id"`
	Grantee       string `json:"grantee"`
	Action        string `json:"action"`
	AmountCeiling int64  `json:"amount_ceiling"`
	Uses          int64  `json:"uses"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
	GrantedAt     string `json:"granted_at"`
}

type CapabilityRevokedPayload struct {
	CapabilityID uint64 `json:"capability_id"`
	EscrowID     uint64 `json:"escrow_id"`
	RevokedAt    string `json:"revoked_at"`
}

type PauseChangedPayload struct {
	EngineID      string `json:"engine_id"`
	LockPaused    bool   `json:"lock_paused"`
	ReleasePaused bool   `json:"release_paused"`
	RefundPaused  bool   `json:"refund_paused"`
	Reason        string `json:"reason,omitempty"`
	Admin         string `json:"admin"`
	ChangedAt     string `json:"changed_at"`
}

type ConfigUpdatedPayload struct {
	EngineID  string `json:"engine_id"`
	Section   string `json:"section"`
	Admin     string `json:"admin"`
	UpdatedAt string `json:"updated_at"`
}

type HookFailedPayload struct {
	EngineID  string `json:"engine_id"`
	EventType string `json:"event_type"`
	EscrowID  uint64 `json:"escrow_id,omitempty"`
	Error     string `json:"error"`
	FailedAt  string `json:"failed_at"`
}

type EmergencyWithdrawPayload struct {
	EngineID    string `json:"engine_id"`
	EscrowID    uint64 `json:"escrow_id"`
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
	Admin       string `json:"admin"`
	WithdrawnAt string `json:"withdrawn_at"`
}

type UpgradeSimulatedPayload struct {
	EngineID  string `json:"engine_id"`
	Safe      bool   `json:"safe"`
	Failed    []string `json:"failed,omitempty"`
	CheckedAt string `json:"checked_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	DLQTopic      string        `json:"dlq_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
