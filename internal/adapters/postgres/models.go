package postgres

import "time"

type escrowModel struct {
	EscrowID              uint64    `gorm:"column:escrow_id;primaryKey"`
	ProgramID             string    `gorm:"column:program_id"`
	Depositor             string    `gorm:"column:depositor"`
	TokenID               string    `gorm:"column:token_id"`
	Amount                int64     `gorm:"column:amount"`
	RemainingAmount       int64     `gorm:"column:remaining_amount"`
	Deadline              int64     `gorm:"column:deadline"`
	Status                string    `gorm:"column:status"`
	NonTransferableReward bool      `gorm:"column:non_transferable_reward"`
	PendingClaimID        *uint64   `gorm:"column:pending_claim_id"`
	LastLockAt            time.Time `gorm:"column:last_lock_at"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (escrowModel) TableName() string { return "escrows" }

type capabilityModel struct {
	CapabilityID  uint64 `gorm:"column:capability_id;primaryKey"`
	EscrowID      uint64 `gorm:"column:escrow_id"`
	Grantee       string `gorm:"column:grantee"`
	Action        string `gorm:"column:action"`
	AmountCeiling int64  `gorm:"column:amount_ceiling"`
	UsesRemaining int64  `gorm:"column:uses_remaining"`
	ExpiresAt     int64  `gorm:"column:expires_at"`
	Revoked       bool   `gorm:"column:revoked"`
}

func (capabilityModel) TableName() string { return "capabilities" }

type claimModel struct {
	ClaimID     uint64 `gorm:"column:claim_id;primaryKey"`
	EscrowID    uint64 `gorm:"column:escrow_id"`
	Claimant    string `gorm:"column:claimant"`
	Amount      int64  `gorm:"column:amount"`
	RequestedAt int64  `gorm:"column:requested_at"`
	ExpiresAt   int64  `gorm:"column:expires_at"`
	Status      string `gorm:"column:status"`
}

func (claimModel) TableName() string { return "claims" }

type disputeModel struct {
	DisputeID  uint64 `gorm:"column:dispute_id;primaryKey"`
	EscrowID   uint64 `gorm:"column:escrow_id"`
	OpenedBy   string `gorm:"column:opened_by"`
	Reason     string `gorm:"column:reason"`
	OpenedAt   int64  `gorm:"column:opened_at"`
	Resolved   bool   `gorm:"column:resolved"`
	ResolvedAt int64  `gorm:"column:resolved_at"`
	Resolver   string `gorm:"column:resolver"`
	Outcome    string `gorm:"column:outcome"`
	Recipient  string `gorm:"column:recipient"`
}

func (disputeModel) TableName() string { return "disputes" }

type receiptModel struct {
	ReceiptID  uint64 `gorm:"column:receipt_id;primaryKey"`
	Outcome    string `gorm:"column:outcome"`
	EscrowID   uint64 `gorm:"column:escrow_id"`
	Amount     int64  `gorm:"column:amount"`
	Party      string `gorm:"column:party"`
	OccurredAt int64  `gorm:"column:occurred_at"`
}

func (receiptModel) TableName() string { return "receipts" }

type configModel struct {
	Section   string    `gorm:"column:section;primaryKey"`
	Document  string    `gorm:"column:document;type:jsonb"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (configModel) TableName() string { return "engine_config" }

type spendingLimitModel struct {
	ProgramID     string `gorm:"column:program_id;primaryKey"`
	TokenID       string `gorm:"column:token_id;primaryKey"`
	MaxAmount     int64  `gorm:"column:max_amount"`
	WindowSeconds int64  `gorm:"column:window_seconds"`
	Enabled       bool   `gorm:"column:enabled"`
}

func (spendingLimitModel) TableName() string { return "spending_limits" }

type spendingStateModel struct {
	ProgramID      string `gorm:"column:program_id;primaryKey"`
	TokenID        string `gorm:"column:token_id;primaryKey"`
	WindowStart    int64  `gorm:"column:window_start"`
	AmountReleased int64  `gorm:"column:amount_released"`
}

func (spendingStateModel) TableName() string { return "spending_states" }

type metricsRingModel struct {
	RingID    int16     `gorm:"column:ring_id;primaryKey"`
	Document  string    `gorm:"column:document;type:jsonb"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (metricsRingModel) TableName() string { return "metrics_ring" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   []byte    `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "idempotency_records" }

type eventDedupModel struct {
	EventID   string    `gorm:"column:event_id;primaryKey"`
	EventType string    `gorm:"column:event_type"`
	ExpiresAt time.Time `gorm:"column:expires_at"`
}

func (eventDedupModel) TableName() string { return "event_dedup" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	SentAt     *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "settlement_outbox" }
