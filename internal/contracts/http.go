package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type InitializeRequest struct {
	Admin           string `json:"admin"`
	SettlementToken string `json:"settlement_token"`
	Version         string `json:"version,omitempty"`
}

type LockRequest struct {
	EscrowID              uint64 `json:"escrow_id"`
	ProgramID             string `json:"program_id"`
	Depositor             string `json:"depositor"`
	Amount                int64  `json:"amount"`
	Deadline              int64  `json:"deadline,omitempty"`
	NonTransferableReward bool   `json:"non_transferable_reward,omitempty"`
}

type BatchLockRequest struct {
	Items []LockRequest `json:"items"`
}

type ReleaseRequest struct {
	EscrowID  uint64 `json:"escrow_id"`
	Recipient string `json:"recipient"`
}

type BatchReleaseRequest struct {
	Items []ReleaseRequest `json:"items"`
}

type CapabilityReleaseRequest struct {
	CapabilityID uint64 `json:"capability_id"`
	EscrowID     uint64 `json:"escrow_id"`
	Recipient    string `json:"recipient"`
}

type RefundRequest struct {
	EscrowID      uint64 `json:"escrow_id"`
	AdminApproval bool   `json:"admin_approval,omitempty"`
}

type OpenDisputeRequest struct {
	EscrowID uint64 `json:"escrow_id"`
	Reason   string `json:"reason,omitempty"`
}

type ResolveDisputeRequest struct {
	DisputeID uint64 `json:"dispute_id"`
	Outcome   string `json:"outcome"`
	Recipient string `json:"recipient,omitempty"`
}

type RequestClaimRequest struct {
	EscrowID  uint64 `json:"escrow_id"`
	Amount    int64  `json:"amount"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

type ResolveClaimRequest struct {
	ClaimID uint64 `json:"claim_id"`
	Approve bool   `json:"approve"`
}

type GrantCapabilityRequest struct {
	EscrowID      uint64 `json:"escrow_id"`
	Grantee       string `json:"grantee"`
	Action        string `json:"action"`
	AmountCeiling int64  `json:"amount_ceiling"`
	Uses          int64  `json:"uses"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
}

type RevokeCapabilityRequest struct {
	CapabilityID uint64 `json:"capability_id"`
}

type TreasuryDestinationBody struct {
	Address string `json:"address"`
	Weight  int64  `json:"weight"`
	Region  string `json:"region,omitempty"`
}

type SetFeeConfigRequest struct {
	FeeRateBps          int64                     `json:"fee_rate_bps"`
	Recipient           string                    `json:"recipient"`
	Destinations        []TreasuryDestinationBody `json:"destinations,omitempty"`
	DistributionEnabled bool                      `json:"distribution_enabled"`
}

type SetSpendingLimitRequest struct {
	ProgramID     string `json:"program_id"`
	TokenID       string `json:"token_id"`
	MaxAmount     int64  `json:"max_amount"`
	WindowSeconds int64  `json:"window_seconds"`
	Enabled       bool   `json:"enabled"`
}

type SetGraceConfigRequest struct {
	Enabled       bool  `json:"enabled"`
	PeriodSeconds int64 `json:"period_seconds"`
}

type SetFilterRequest struct {
	Mode    string   `json:"mode"`
	Entries []string `json:"entries,omitempty"`
}

type SetHookRequest struct {
	URL                 string `json:"url"`
	Secret              string `json:"secret,omitempty"`
	LargeReleaseMinimum int64  `json:"large_release_minimum,omitempty"`
	Enabled             bool   `json:"enabled"`
}

type SetDeprecationRequest struct {
	Deprecated      bool   `json:"deprecated"`
	MigrationTarget string `json:"migration_target,omitempty"`
}

type SetRiskFlagsRequest struct {
	Entity string `json:"entity"`
	Mask   uint8  `json:"mask"`
}

type SetPausedRequest struct {
	LockPaused    *bool  `json:"lock_paused,omitempty"`
	ReleasePaused *bool  `json:"release_paused,omitempty"`
	RefundPaused  *bool  `json:"refund_paused,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type SetAmountPolicyRequest struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type EmergencyWithdrawRequest struct {
	EscrowID    uint64 `json:"escrow_id"`
	Destination string `json:"destination"`
}

type EscrowResponse struct {
	EscrowID        uint64  `json:"escrow_id"`
	ProgramID       string  `json:"program_id"`
	Depositor       string  `json:"depositor"`
	TokenID         string  `json:"token_id"`
	Status          string  `json:"status"`
	Amount          int64   `json:"amount"`
	RemainingAmount int64   `json:"remaining_amount"`
	Deadline        int64   `json:"deadline,omitempty"`
	PendingClaimID  *uint64 `json:"pending_claim_id,omitempty"`
}

type FeeShareBody struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
	Region  string `json:"region,omitempty"`
}

type SettlementResponse struct {
	Escrow       EscrowResponse  `json:"escrow"`
	Receipt      ReceiptResponse `json:"receipt"`
	GrossAmount  int64           `json:"gross_amount"`
	FeeAmount    int64           `json:"fee_amount"`
	NetAmount    int64           `json:"net_amount"`
	Distribution []FeeShareBody  `json:"distribution,omitempty"`
}

type EngineSettingsResponse struct {
	Admin           string `json:"admin"`
	SettlementToken string `json:"settlement_token"`
	Version         string `json:"version"`
	InitializedAt   int64  `json:"initialized_at"`
}

type CapabilityResponse struct {
	CapabilityID  uint64 `json:"capability_id"`
	EscrowID      uint64 `json:"escrow_id"`
	Grantee       string `json:"grantee"`
	Action        string `json:"action"`
	AmountCeiling int64  `json:"amount_ceiling"`
	UsesRemaining int64  `json:"uses_remaining"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
	Revoked       bool   `json:"revoked"`
}

type ClaimResponse struct {
	ClaimID     uint64 `json:"claim_id"`
	EscrowID    uint64 `json:"escrow_id"`
	Claimant    string `json:"claimant"`
	Amount      int64  `json:"amount"`
	RequestedAt int64  `json:"requested_at"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
	Status      string `json:"status"`
}

type DisputeResponse struct {
	DisputeID  uint64 `json:"dispute_id"`
	EscrowID   uint64 `json:"escrow_id"`
	OpenedBy   string `json:"opened_by"`
	Reason     string `json:"reason,omitempty"`
	OpenedAt   int64  `json:"opened_at"`
	Resolved   bool   `json:"resolved"`
	ResolvedAt int64  `json:"resolved_at,omitempty"`
	Resolver   string `json:"resolver,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Recipient  string `json:"recipient,omitempty"`
}

type EscrowPageResponse struct {
	Items  []EscrowResponse `json:"items"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

type SpendingStateResponse struct {
	ProgramID      string `json:"program_id"`
	TokenID        string `json:"token_id"`
	WindowStart    int64  `json:"window_start"`
	AmountReleased int64  `json:"amount_released"`
	MaxAmount      int64  `json:"max_amount"`
	WindowSeconds  int64  `json:"window_seconds"`
	Enabled        bool   `json:"enabled"`
}

type MetricsResponse struct {
	Periods           int64 `json:"periods"`
	LockCount         int64 `json:"lock_count"`
	SumLockAmount     int64 `json:"sum_lock_amount"`
	SettlementCount   int64 `json:"settlement_count"`
	SumSettlementTime int64 `json:"sum_settlement_time"`
	AvgLockAmount     int64 `json:"avg_lock_amount"`
	AvgSettlementTime int64 `json:"avg_settlement_time"`
}

type ReceiptResponse struct {
	ReceiptID uint64 `json:"receipt_id"`
	Outcome   string `json:"outcome"`
	EscrowID  uint64 `json:"escrow_id"`
	Amount    int64  `json:"amount"`
	Party     string `json:"party"`
	Timestamp int64  `json:"timestamp"`
}

type DeprecationResponse struct {
	Deprecated      bool   `json:"deprecated"`
	MigrationTarget string `json:"migration_target,omitempty"`
}

type RiskFlagsResponse struct {
	Entity      string `json:"entity"`
	Mask        uint8  `json:"mask"`
	HighRisk    bool   `json:"high_risk"`
	UnderReview bool   `json:"under_review"`
	Restricted  bool   `json:"restricted"`
	Deprecated  bool   `json:"deprecated"`
}

type PauseFlagsResponse struct {
	LockPaused    bool `json:"lock_paused"`
	ReleasePaused bool `json:"release_paused"`
	RefundPaused  bool `json:"refund_paused"`
}

type UpgradeCheckBody struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

type UpgradeReportResponse struct {
	Safe      bool               `json:"safe"`
	Checks    []UpgradeCheckBody `json:"checks"`
	CheckedAt int64              `json:"checked_at"`
}
