package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

type Repositories struct {
	Escrows      *EscrowRepository
	Capabilities *CapabilityRepository
	Claims       *ClaimRepository
	Disputes     *DisputeRepository
	Receipts     *ReceiptRepository
	Settings     *ConfigRepository
	Spending     *SpendingLimitRepository
	Metrics      *MetricsRepository
	Idempotency  *IdempotencyRepository
	EventDedup   *EventDedupRepository
	Outbox       *OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Escrows:      &EscrowRepository{db: db},
		Capabilities: &CapabilityRepository{db: db},
		Claims:       &ClaimRepository{db: db},
		Disputes:     &DisputeRepository{db: db},
		Receipts:     &ReceiptRepository{db: db},
		Settings:     &ConfigRepository{db: db},
		Spending:     &SpendingLimitRepository{db: db},
		Metrics:      &MetricsRepository{db: db},
		Idempotency:  &IdempotencyRepository{db: db},
		EventDedup:   &EventDedupRepository{db: db},
		Outbox:       &OutboxRepository{db: db},
	}
}

const nextCounterSQL = `INSERT INTO engine_counters (name, value) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET value = engine_counters.value + 1
RETURNING value`

func nextCounter(ctx context.Context, db *gorm.DB, name string) (uint64, error) {
	var value uint64
	if err := db.WithContext(ctx).Raw(nextCounterSQL, name).Scan(&value).Error; err != nil {
		return 0, err
	}
	return value, nil
}

type EscrowRepository struct{ db *gorm.DB }

func toEscrowModel(row domain.Escrow) escrowModel {
	return escrowModel{
		EscrowID: row.EscrowID, ProgramID: row.ProgramID, Depositor: row.Depositor, TokenID: row.TokenID,
		Amount: row.Amount, RemainingAmount: row.RemainingAmount, Deadline: row.Deadline,
		Status: string(row.Status), NonTransferableReward: row.NonTransferableReward,
		PendingClaimID: row.PendingClaimID, LastLockAt: row.LastLockAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func fromEscrowModel(m escrowModel) domain.Escrow {
	return domain.Escrow{
		EscrowID: m.EscrowID, ProgramID: m.ProgramID, Depositor: m.Depositor, TokenID: m.TokenID,
		Amount: m.Amount, RemainingAmount: m.RemainingAmount, Deadline: m.Deadline,
		Status: domain.EscrowStatus(m.Status), NonTransferableReward: m.NonTransferableReward,
		PendingClaimID: m.PendingClaimID, LastLockAt: m.LastLockAt, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
	}
}

func (r *EscrowRepository) Create(ctx context.Context, row domain.Escrow) error {
	err := r.db.WithContext(ctx).Create(toEscrowModel(row)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEscrowExists
	}
	return err
}

func (r *EscrowRepository) CreateBatch(ctx context.Context, rows []domain.Escrow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(toEscrowModel(row)).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return domain.ErrEscrowExists
				}
				return err
			}
		}
		return nil
	})
}

func (r *EscrowRepository) GetByID(ctx context.Context, escrowID uint64) (domain.Escrow, error) {
	var m escrowModel
	err := r.db.WithContext(ctx).First(&m, "escrow_id = ?", escrowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Escrow{}, domain.ErrEscrowNotFound
	}
	if err != nil {
		return domain.Escrow{}, err
	}
	return fromEscrowModel(m), nil
}

func (r *EscrowRepository) Update(ctx context.Context, row domain.Escrow) error {
	res := r.db.WithContext(ctx).Model(&escrowModel{}).Where("escrow_id = ?", row.EscrowID).
		Select("*").Omit("escrow_id").Updates(toEscrowModel(row))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEscrowNotFound
	}
	return nil
}

func (r *EscrowRepository) UpdateBatch(ctx context.Context, rows []domain.Escrow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			res := tx.Model(&escrowModel{}).Where("escrow_id = ?", row.EscrowID).
				Select("*").Omit("escrow_id").Updates(toEscrowModel(row))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrEscrowNotFound
			}
		}
		return nil
	})
}

func (r *EscrowRepository) Search(ctx context.Context, criteria domain.SearchCriteria, offset, limit int) ([]domain.Escrow, int, error) {
	q := r.db.WithContext(ctx).Model(&escrowModel{})
	if criteria.Status != "" {
		q = q.Where("status = ?", string(criteria.Status))
	}
	if criteria.Depositor != "" {
		q = q.Where("depositor = ?", criteria.Depositor)
	}
	if criteria.ProgramID != "" {
		q = q.Where("program_id = ?", criteria.ProgramID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []escrowModel
	if err := q.Order("escrow_id").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.Escrow, len(models))
	for i, m := range models {
		out[i] = fromEscrowModel(m)
	}
	return out, int(total), nil
}

func (r *EscrowRepository) AggregateRemaining(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&escrowModel{}).
		Where("status IN ?", []string{string(domain.StatusLocked), string(domain.StatusDisputed)}).
		Select("COALESCE(SUM(remaining_amount), 0)").Scan(&total).Error
	return total, err
}

func (r *EscrowRepository) Count(ctx context.Context) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&escrowModel{}).Count(&total).Error
	return int(total), err
}

type CapabilityRepository struct{ db *gorm.DB }

func (r *CapabilityRepository) NextID(ctx context.Context) (uint64, error) {
	return nextCounter(ctx, r.db, "capability")
}

func (r *CapabilityRepository) Create(ctx context.Context, row domain.Capability) error {
	return r.db.WithContext(ctx).Create(capabilityModel{
		CapabilityID: row.CapabilityID, EscrowID: row.EscrowID, Grantee: row.Grantee,
		Action: string(row.Action), AmountCeiling: row.AmountCeiling, UsesRemaining: row.UsesRemaining,
		ExpiresAt: row.ExpiresAt, Revoked: row.Revoked,
	}).Error
}

func (r *CapabilityRepository) GetByID(ctx context.Context, capabilityID uint64) (domain.Capability, error) {
	var m capabilityModel
	err := r.db.WithContext(ctx).First(&m, "capability_id = ?", capabilityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Capability{}, domain.ErrCapabilityNotFound
	}
	if err != nil {
		return domain.Capability{}, err
	}
	return domain.Capability{
		CapabilityID: m.CapabilityID, EscrowID: m.EscrowID, Grantee: m.Grantee,
		Action: domain.CapabilityAction(m.Action), AmountCeiling: m.AmountCeiling,
		UsesRemaining: m.UsesRemaining, ExpiresAt: m.ExpiresAt, Revoked: m.Revoked,
	}, nil
}

func (r *CapabilityRepository) Update(ctx context.Context, row domain.Capability) error {
	res := r.db.WithContext(ctx).Model(&capabilityModel{}).Where("capability_id = ?", row.CapabilityID).
		Updates(map[string]any{"uses_remaining": row.UsesRemaining, "revoked": row.Revoked})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCapabilityNotFound
	}
	return nil
}

func (r *CapabilityRepository) ListByEscrow(ctx context.Context, escrowID uint64) ([]domain.Capability, error) {
	var models []capabilityModel
	if err := r.db.WithContext(ctx).Where("escrow_id = ?", escrowID).Order("capability_id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Capability, len(models))
	for i, m := range models {
		out[i] = domain.Capability{
			CapabilityID: m.CapabilityID, EscrowID: m.EscrowID, Grantee: m.Grantee,
			Action: domain.CapabilityAction(m.Action), AmountCeiling: m.AmountCeiling,
			UsesRemaining: m.UsesRemaining, ExpiresAt: m.ExpiresAt, Revoked: m.Revoked,
		}
	}
	return out, nil
}

type ClaimRepository struct{ db *gorm.DB }

func (r *ClaimRepository) NextID(ctx context.Context) (uint64, error) {
	return nextCounter(ctx, r.db, "claim")
}

func (r *ClaimRepository) Create(ctx context.Context, row domain.Claim) error {
	return r.db.WithContext(ctx).Create(claimModel{
		ClaimID: row.ClaimID, EscrowID: row.EscrowID, Claimant: row.Claimant, Amount: row.Amount,
		RequestedAt: row.RequestedAt, ExpiresAt: row.ExpiresAt, Status: string(row.Status),
	}).Error
}

func (r *ClaimRepository) GetByID(ctx context.Context, claimID uint64) (domain.Claim, error) {
	var m claimModel
	err := r.db.WithContext(ctx).First(&m, "claim_id = ?", claimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	if err != nil {
		return domain.Claim{}, err
	}
	return domain.Claim{
		ClaimID: m.ClaimID, EscrowID: m.EscrowID, Claimant: m.Claimant, Amount: m.Amount,
		RequestedAt: m.RequestedAt, ExpiresAt: m.ExpiresAt, Status: domain.ClaimStatus(m.Status),
	}, nil
}

func (r *ClaimRepository) Update(ctx context.Context, row domain.Claim) error {
	res := r.db.WithContext(ctx).Model(&claimModel{}).Where("claim_id = ?", row.ClaimID).
		Updates(map[string]any{"status": string(row.Status)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrClaimNotFound
	}
	return nil
}

func (r *ClaimRepository) ListOpen(ctx context.Context) ([]domain.Claim, error) {
	var models []claimModel
	if err := r.db.WithContext(ctx).Where("status = ?", string(domain.ClaimPending)).Order("claim_id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Claim, len(models))
	for i, m := range models {
		out[i] = domain.Claim{
			ClaimID: m.ClaimID, EscrowID: m.EscrowID, Claimant: m.Claimant, Amount: m.Amount,
			RequestedAt: m.RequestedAt, ExpiresAt: m.ExpiresAt, Status: domain.ClaimStatus(m.Status),
		}
	}
	return out, nil
}

type DisputeRepository struct{ db *gorm.DB }

func (r *DisputeRepository) NextID(ctx context.Context) (uint64, error) {
	return nextCounter(ctx, r.db, "dispute")
}

func toDisputeModel(row domain.Dispute) disputeModel {
	return disputeModel{
		DisputeID: row.DisputeID, EscrowID: row.EscrowID, OpenedBy: row.OpenedBy, Reason: row.Reason,
		OpenedAt: row.OpenedAt, Resolved: row.Resolved, ResolvedAt: row.ResolvedAt,
		Resolver: row.Resolver, Outcome: string(row.Outcome), Recipient: row.Recipient,
	}
}

func fromDisputeModel(m disputeModel) domain.Dispute {
	return domain.Dispute{
		DisputeID: m.DisputeID, EscrowID: m.EscrowID, OpenedBy: m.OpenedBy, Reason: m.Reason,
		OpenedAt: m.OpenedAt, Resolved: m.Resolved, ResolvedAt: m.ResolvedAt,
		Resolver: m.Resolver, Outcome: domain.DisputeOutcome(m.Outcome), Recipient: m.Recipient,
	}
}

func (r *DisputeRepository) Create(ctx context.Context, row domain.Dispute) error {
	return r.db.WithContext(ctx).Create(toDisputeModel(row)).Error
}

func (r *DisputeRepository) GetByID(ctx context.Context, disputeID uint64) (domain.Dispute, error) {
	var m disputeModel
	err := r.db.WithContext(ctx).First(&m, "dispute_id = ?", disputeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Dispute{}, domain.ErrDisputeNotFound
	}
	if err != nil {
		return domain.Dispute{}, err
	}
	return fromDisputeModel(m), nil
}

func (r *DisputeRepository) GetOpenByEscrow(ctx context.Context, escrowID uint64) (domain.Dispute, error) {
	var m disputeModel
	err := r.db.WithContext(ctx).First(&m, "escrow_id = ? AND resolved = false", escrowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Dispute{}, domain.ErrDisputeNotFound
	}
	if err != nil {
		return domain.Dispute{}, err
	}
	return fromDisputeModel(m), nil
}

func (r *DisputeRepository) Update(ctx context.Context, row domain.Dispute) error {
	res := r.db.WithContext(ctx).Model(&disputeModel{}).Where("dispute_id = ?", row.DisputeID).
		Select("*").Omit("dispute_id").Updates(toDisputeModel(row))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrDisputeNotFound
	}
	return nil
}

type ReceiptRepository struct{ db *gorm.DB }

// Append allocates the next monotonic receipt id and stores the row in
// one transaction so ids never skip or repeat.
func (r *ReceiptRepository) Append(ctx context.Context, row domain.Receipt) (domain.Receipt, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextCounter(ctx, tx, "receipt")
		if err != nil {
			return err
		}
		row.ReceiptID = id
		return tx.Create(receiptModel{
			ReceiptID: row.ReceiptID, Outcome: string(row.Outcome), EscrowID: row.EscrowID,
			Amount: row.Amount, Party: row.Party, OccurredAt: row.Timestamp,
		}).Error
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	return row, nil
}

func (r *ReceiptRepository) GetByID(ctx context.Context, receiptID uint64) (domain.Receipt, error) {
	var m receiptModel
	err := r.db.WithContext(ctx).First(&m, "receipt_id = ?", receiptID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Receipt{}, domain.ErrReceiptNotFound
	}
	if err != nil {
		return domain.Receipt{}, err
	}
	return domain.Receipt{
		ReceiptID: m.ReceiptID, Outcome: domain.ReceiptOutcome(m.Outcome), EscrowID: m.EscrowID,
		Amount: m.Amount, Party: m.Party, Timestamp: m.OccurredAt,
	}, nil
}

func (r *ReceiptRepository) LastID(ctx context.Context) (uint64, error) {
	var value uint64
	err := r.db.WithContext(ctx).Raw(`SELECT COALESCE(value, 0) FROM engine_counters WHERE name = 'receipt'`).Scan(&value).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return value, err
}

func (r *ReceiptRepository) Count(ctx context.Context) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&receiptModel{}).Count(&total).Error
	return int(total), err
}

// ConfigRepository stores each engine-scoped settings section as one
// JSONB document keyed by section name.
type ConfigRepository struct{ db *gorm.DB }

func (r *ConfigRepository) getSection(ctx context.Context, section string, out any) error {
	var m configModel
	err := r.db.WithContext(ctx).First(&m, "section = ?", section).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(m.Document), out)
}

func (r *ConfigRepository) putSection(ctx context.Context, section string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO engine_config (section, document, updated_at) VALUES (?, ?::jsonb, now())
		 ON CONFLICT (section) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		section, string(raw),
	).Error
}

func (r *ConfigRepository) GetSettings(ctx context.Context) (domain.EngineSettings, error) {
	var out domain.EngineSettings
	err := r.getSection(ctx, "settings", &out)
	return out, err
}
func (r *ConfigRepository) PutSettings(ctx context.Context, s domain.EngineSettings) error {
	return r.putSection(ctx, "settings", s)
}
func (r *ConfigRepository) GetFeeConfig(ctx context.Context) (domain.FeeConfig, error) {
	var out domain.FeeConfig
	err := r.getSection(ctx, "fee", &out)
	return out, err
}
func (r *ConfigRepository) PutFeeConfig(ctx context.Context, c domain.FeeConfig) error {
	return r.putSection(ctx, "fee", c)
}
func (r *ConfigRepository) GetPauseFlags(ctx context.Context) (domain.PauseFlags, error) {
	var out domain.PauseFlags
	err := r.getSection(ctx, "pause", &out)
	return out, err
}
func (r *ConfigRepository) PutPauseFlags(ctx context.Context, f domain.PauseFlags) error {
	return r.putSection(ctx, "pause", f)
}
func (r *ConfigRepository) GetGraceConfig(ctx context.Context) (domain.GraceConfig, error) {
	var out domain.GraceConfig
	err := r.getSection(ctx, "grace", &out)
	return out, err
}
func (r *ConfigRepository) PutGraceConfig(ctx context.Context, g domain.GraceConfig) error {
	return r.putSection(ctx, "grace", g)
}
func (r *ConfigRepository) GetDeprecation(ctx context.Context) (domain.Deprecation, error) {
	var out domain.Deprecation
	err := r.getSection(ctx, "deprecation", &out)
	return out, err
}
func (r *ConfigRepository) PutDeprecation(ctx context.Context, d domain.Deprecation) error {
	return r.putSection(ctx, "deprecation", d)
}
func (r *ConfigRepository) GetFilter(ctx context.Context) (domain.ParticipantFilter, error) {
	var out domain.ParticipantFilter
	err := r.getSection(ctx, "filter", &out)
	return out, err
}
func (r *ConfigRepository) PutFilter(ctx context.Context, f domain.ParticipantFilter) error {
	return r.putSection(ctx, "filter", f)
}
func (r *ConfigRepository) GetHookConfig(ctx context.Context) (domain.HookConfig, error) {
	var out domain.HookConfig
	err := r.getSection(ctx, "hook", &out)
	return out, err
}
func (r *ConfigRepository) PutHookConfig(ctx context.Context, h domain.HookConfig) error {
	return r.putSection(ctx, "hook", h)
}
func (r *ConfigRepository) GetAmountPolicy(ctx context.Context) (domain.AmountPolicy, error) {
	var out domain.AmountPolicy
	err := r.getSection(ctx, "amount_policy", &out)
	return out, err
}
func (r *ConfigRepository) PutAmountPolicy(ctx context.Context, p domain.AmountPolicy) error {
	return r.putSection(ctx, "amount_policy", p)
}
func (r *ConfigRepository) GetRiskFlags(ctx context.Context, entity string) (uint8, error) {
	var out uint8
	err := r.getSection(ctx, "risk:"+entity, &out)
	return out, err
}
func (r *ConfigRepository) PutRiskFlags(ctx context.Context, entity string, mask uint8) error {
	return r.putSection(ctx, "risk:"+entity, mask)
}

type SpendingLimitRepository struct{ db *gorm.DB }

func (r *SpendingLimitRepository) GetConfig(ctx context.Context, programID, tokenID string) (domain.SpendingLimitConfig, error) {
	var m spendingLimitModel
	err := r.db.WithContext(ctx).First(&m, "program_id = ? AND token_id = ?", programID, tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.SpendingLimitConfig{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SpendingLimitConfig{}, err
	}
	return domain.SpendingLimitConfig{
		ProgramID: m.ProgramID, TokenID: m.TokenID, MaxAmount: m.MaxAmount,
		WindowSeconds: m.WindowSeconds, Enabled: m.Enabled,
	}, nil
}

func (r *SpendingLimitRepository) PutConfig(ctx context.Context, cfg domain.SpendingLimitConfig) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO spending_limits (program_id, token_id, max_amount, window_seconds, enabled)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (program_id, token_id) DO UPDATE SET
		   max_amount = EXCLUDED.max_amount, window_seconds = EXCLUDED.window_seconds, enabled = EXCLUDED.enabled`,
		cfg.ProgramID, cfg.TokenID, cfg.MaxAmount, cfg.WindowSeconds, cfg.Enabled,
	).Error
}

func (r *SpendingLimitRepository) GetState(ctx context.Context, programID, tokenID string) (domain.SpendingState, error) {
	var m spendingStateModel
	err := r.db.WithContext(ctx).First(&m, "program_id = ? AND token_id = ?", programID, tokenID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.SpendingState{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SpendingState{}, err
	}
	return domain.SpendingState{
		ProgramID: m.ProgramID, TokenID: m.TokenID, WindowStart: m.WindowStart, AmountReleased: m.AmountReleased,
	}, nil
}

func (r *SpendingLimitRepository) PutState(ctx context.Context, state domain.SpendingState) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO spending_states (program_id, token_id, window_start, amount_released)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (program_id, token_id) DO UPDATE SET
		   window_start = EXCLUDED.window_start, amount_released = EXCLUDED.amount_released`,
		state.ProgramID, state.TokenID, state.WindowStart, state.AmountReleased,
	).Error
}

// MetricsRepository persists the whole 24-slot ring as one JSONB row;
// the ring is small and always read and written whole.
type MetricsRepository struct{ db *gorm.DB }

func (r *MetricsRepository) GetRing(ctx context.Context) (domain.MetricsRing, error) {
	var m metricsRingModel
	err := r.db.WithContext(ctx).First(&m, "ring_id = 1").Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.MetricsRing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MetricsRing{}, err
	}
	var ring domain.MetricsRing
	if err := json.Unmarshal([]byte(m.Document), &ring); err != nil {
		return domain.MetricsRing{}, err
	}
	return ring, nil
}

func (r *MetricsRepository) PutRing(ctx context.Context, ring domain.MetricsRing) error {
	raw, err := json.Marshal(ring)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO metrics_ring (ring_id, document, updated_at) VALUES (1, ?::jsonb, now())
		 ON CONFLICT (ring_id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		string(raw),
	).Error
}

type IdempotencyRepository struct{ db *gorm.DB }

func (r *IdempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var m idempotencyModel
	err := r.db.WithContext(ctx).First(&m, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if now.After(m.ExpiresAt) {
		return nil, nil
	}
	return &ports.IdempotencyRecord{
		Key: m.IdempotencyKey, RequestHash: m.RequestHash, ResponseCode: m.ResponseCode,
		ResponseBody: m.ResponseBody, ExpiresAt: m.ExpiresAt,
	}, nil
}

func (r *IdempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	err := r.db.WithContext(ctx).Create(idempotencyModel{
		IdempotencyKey: key, RequestHash: requestHash, ExpiresAt: expiresAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *IdempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	res := r.db.WithContext(ctx).Model(&idempotencyModel{}).Where("idempotency_key = ?", key).
		Updates(map[string]any{"response_code": responseCode, "response_body": responseBody})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type EventDedupRepository struct{ db *gorm.DB }

func (r *EventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var m eventDedupModel
	err := r.db.WithContext(ctx).First(&m, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Before(m.ExpiresAt), nil
}

func (r *EventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO event_dedup (event_id, event_type, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (event_id) DO UPDATE SET event_type = EXCLUDED.event_type, expires_at = EXCLUDED.expires_at`,
		eventID, eventType, expiresAt,
	).Error
}

type OutboxRepository struct{ db *gorm.DB }

func (r *OutboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	raw, err := json.Marshal(record.Envelope)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(outboxModel{
		RecordID: record.RecordID, EventClass: record.EventClass,
		Envelope: string(raw), CreatedAt: record.CreatedAt, SentAt: record.SentAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []outboxModel
	if err := r.db.WithContext(ctx).Where("sent_at IS NULL").Order("created_at").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(models))
	for _, m := range models {
		var env contracts.EventEnvelope
		if err := json.Unmarshal([]byte(m.Envelope), &env); err != nil {
			return nil, err
		}
		out = append(out, ports.OutboxRecord{
			RecordID: m.RecordID, EventClass: m.EventClass, Envelope: env,
			CreatedAt: m.CreatedAt, SentAt: m.SentAt,
		})
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).Where("record_id = ?", recordID).
		Update("sent_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
