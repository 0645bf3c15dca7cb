package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

// Repositories is the in-memory persistence set used by tests and local
// runs. Every repository is safe for concurrent use.
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

func NewRepositories() *Repositories {
	return &Repositories{
		Escrows:      &EscrowRepository{rows: map[uint64]domain.Escrow{}},
		Capabilities: &CapabilityRepository{rows: map[uint64]domain.Capability{}},
		Claims:       &ClaimRepository{rows: map[uint64]domain.Claim{}},
		Disputes:     &DisputeRepository{rows: map[uint64]domain.Dispute{}},
		Receipts:     &ReceiptRepository{rows: map[uint64]domain.Receipt{}},
		Settings:     NewConfigRepository(),
		Spending:     &SpendingLimitRepository{configs: map[string]domain.SpendingLimitConfig{}, states: map[string]domain.SpendingState{}},
		Metrics:      &MetricsRepository{},
		Idempotency:  &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
		EventDedup:   &EventDedupRepository{rows: map[string]eventDedupRow{}},
		Outbox:       &OutboxRepository{rows: map[string]ports.OutboxRecord{}, order: []string{}},
	}
}

type EscrowRepository struct {
	mu   sync.Mutex
	rows map[uint64]domain.Escrow
}

func (r *EscrowRepository) Create(_ context.Context, row domain.Escrow) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.EscrowID]; ok { return domain.ErrEscrowExists }
	r.rows[row.EscrowID] = row
	return nil
}
func (r *EscrowRepository) CreateBatch(_ context.Context, rows []domain.Escrow) error {
	r.mu.Lock(); defer r.mu.Unlock()
	for _, row := range rows {
		if _, ok := r.rows[row.EscrowID]; ok { return domain.ErrEscrowExists }
	}
	for _, row := range rows { r.rows[row.EscrowID] = row }
	return nil
}
func (r *EscrowRepository) GetByID(_ context.Context, escrowID uint64) (domain.Escrow, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[escrowID]
	if !ok { return domain.Escrow{}, domain.ErrEscrowNotFound }
	return row, nil
}
func (r *EscrowRepository) Update(_ context.Context, row domain.Escrow) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.EscrowID]; !ok { return domain.ErrEscrowNotFound }
	r.rows[row.EscrowID] = row
	return nil
}
func (r *EscrowRepository) UpdateBatch(_ context.Context, rows []domain.Escrow) error {
	r.mu.Lock(); defer r.mu.Unlock()
	for _, row := range rows {
		if _, ok := r.rows[row.EscrowID]; !ok { return domain.ErrEscrowNotFound }
	}
	for _, row := range rows { r.rows[row.EscrowID] = row }
	return nil
}
func (r *EscrowRepository) Search(_ context.Context, criteria domain.SearchCriteria, offset, limit int) ([]domain.Escrow, int, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	matched := make([]domain.Escrow, 0)
	for _, row := range r.rows {
		if criteria.Matches(row) { matched = append(matched, row) }
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EscrowID < matched[j].EscrowID })
	total := len(matched)
	if offset >= total { return []domain.Escrow{}, total, nil }
	end := offset + limit
	if end > total { end = total }
	return matched[offset:end], total, nil
}
func (r *EscrowRepository) AggregateRemaining(_ context.Context) (int64, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	var total int64
	for _, row := range r.rows {
		if !row.IsTerminal() { total += row.RemainingAmount }
	}
	return total, nil
}
func (r *EscrowRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	return len(r.rows), nil
}

type CapabilityRepository struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]domain.Capability
}

func (r *CapabilityRepository) NextID(_ context.Context) (uint64, error) { r.mu.Lock(); defer r.mu.Unlock(); r.nextID++; return r.nextID, nil }
func (r *CapabilityRepository) Create(_ context.Context, row domain.Capability) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.CapabilityID]; ok { return domain.ErrConflict }
	r.rows[row.CapabilityID] = row
	return nil
}
func (r *CapabilityRepository) GetByID(_ context.Context, capabilityID uint64) (domain.Capability, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[capabilityID]
	if !ok { return domain.Capability{}, domain.ErrCapabilityNotFound }
	return row, nil
}
func (r *CapabilityRepository) Update(_ context.Context, row domain.Capability) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.CapabilityID]; !ok { return domain.ErrCapabilityNotFound }
	r.rows[row.CapabilityID] = row
	return nil
}
func (r *CapabilityRepository) ListByEscrow(_ context.Context, escrowID uint64) ([]domain.Capability, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	out := make([]domain.Capability, 0)
	for _, row := range r.rows {
		if row.EscrowID == escrowID { out = append(out, row) }
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapabilityID < out[j].CapabilityID })
	return out, nil
}

type ClaimRepository struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]domain.Claim
}

func (r *ClaimRepository) NextID(_ context.Context) (uint64, error) { r.mu.Lock(); defer r.mu.Unlock(); r.nextID++; return r.nextID, nil }
func (r *ClaimRepository) Create(_ context.Context, row domain.Claim) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.ClaimID]; ok { return domain.ErrConflict }
	r.rows[row.ClaimID] = row
	return nil
}
func (r *ClaimRepository) GetByID(_ context.Context, claimID uint64) (domain.Claim, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[claimID]
	if !ok { return domain.Claim{}, domain.ErrClaimNotFound }
	return row, nil
}
func (r *ClaimRepository) Update(_ context.Context, row domain.Claim) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.ClaimID]; !ok { return domain.ErrClaimNotFound }
	r.rows[row.ClaimID] = row
	return nil
}
func (r *ClaimRepository) ListOpen(_ context.Context) ([]domain.Claim, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	out := make([]domain.Claim, 0)
	for _, row := range r.rows {
		if row.Open() { out = append(out, row) }
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out, nil
}

type DisputeRepository struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]domain.Dispute
}

func (r *DisputeRepository) NextID(_ context.Context) (uint64, error) { r.mu.Lock(); defer r.mu.Unlock(); r.nextID++; return r.nextID, nil }
func (r *DisputeRepository) Create(_ context.Context, row domain.Dispute) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.DisputeID]; ok { return domain.ErrConflict }
	r.rows[row.DisputeID] = row
	return nil
}
func (r *DisputeRepository) GetByID(_ context.Context, disputeID uint64) (domain.Dispute, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[disputeID]
	if !ok { return domain.Dispute{}, domain.ErrDisputeNotFound }
	return row, nil
}
func (r *DisputeRepository) GetOpenByEscrow(_ context.Context, escrowID uint64) (domain.Dispute, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.EscrowID == escrowID && !row.Resolved { return row, nil }
	}
	return domain.Dispute{}, domain.ErrDisputeNotFound
}
func (r *DisputeRepository) Update(_ context.Context, row domain.Dispute) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.DisputeID]; !ok { return domain.ErrDisputeNotFound }
	r.rows[row.DisputeID] = row
	return nil
}

type ReceiptRepository struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]domain.Receipt
}

func (r *ReceiptRepository) Append(_ context.Context, row domain.Receipt) (domain.Receipt, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	r.nextID++
	row.ReceiptID = r.nextID
	r.rows[row.ReceiptID] = row
	return row, nil
}
func (r *ReceiptRepository) GetByID(_ context.Context, receiptID uint64) (domain.Receipt, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[receiptID]
	if !ok { return domain.Receipt{}, domain.ErrReceiptNotFound }
	return row, nil
}
func (r *ReceiptRepository) LastID(_ context.Context) (uint64, error) { r.mu.Lock(); defer r.mu.Unlock(); return r.nextID, nil }
func (r *ReceiptRepository) Count(_ context.Context) (int, error)     { r.mu.Lock(); defer r.mu.Unlock(); return len(r.rows), nil }

type SpendingLimitRepository struct {
	mu      sync.Mutex
	configs map[string]domain.SpendingLimitConfig
	states  map[string]domain.SpendingState
}

func spendingKey(programID, tokenID string) string { return programID + "|" + tokenID }

func (r *SpendingLimitRepository) GetConfig(_ context.Context, programID, tokenID string) (domain.SpendingLimitConfig, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	cfg, ok := r.configs[spendingKey(programID, tokenID)]
	if !ok { return domain.SpendingLimitConfig{}, domain.ErrNotFound }
	return cfg, nil
}
func (r *SpendingLimitRepository) PutConfig(_ context.Context, cfg domain.SpendingLimitConfig) error {
	r.mu.Lock(); defer r.mu.Unlock()
	r.configs[spendingKey(cfg.ProgramID, cfg.TokenID)] = cfg
	return nil
}
func (r *SpendingLimitRepository) GetState(_ context.Context, programID, tokenID string) (domain.SpendingState, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	state, ok := r.states[spendingKey(programID, tokenID)]
	if !ok { return domain.SpendingState{}, domain.ErrNotFound }
	return state, nil
}
func (r *SpendingLimitRepository) PutState(_ context.Context, state domain.SpendingState) error {
	r.mu.Lock(); defer r.mu.Unlock()
	r.states[spendingKey(state.ProgramID, state.TokenID)] = state
	return nil
}

type MetricsRepository struct {
	mu   sync.Mutex
	ring domain.MetricsRing
}

func (r *MetricsRepository) GetRing(_ context.Context) (domain.MetricsRing, error) { r.mu.Lock(); defer r.mu.Unlock(); return r.ring, nil }
func (r *MetricsRepository) PutRing(_ context.Context, ring domain.MetricsRing) error { r.mu.Lock(); defer r.mu.Unlock(); r.ring = ring; return nil }

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok { return nil, nil }
	if now.After(row.ExpiresAt) { delete(r.rows, key); return nil, nil }
	c := row
	c.ResponseBody = append([]byte(nil), row.ResponseBody...)
	return &c, nil
}
func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok && time.Now().UTC().Before(row.ExpiresAt) { return domain.ErrConflict }
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}
func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok { return domain.ErrNotFound }
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	r.rows[key] = row
	return nil
}

type eventDedupRow struct {
	EventID   string
	EventType string
	ExpiresAt time.Time
}

type EventDedupRepository struct {
	mu   sync.Mutex
	rows map[string]eventDedupRow
}

func (r *EventDedupRepository) IsDuplicate(_ context.Context, eventID string, now time.Time) (bool, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[eventID]
	if !ok { return false, nil }
	if now.After(row.ExpiresAt) { delete(r.rows, eventID); return false, nil }
	return true, nil
}
func (r *EventDedupRepository) MarkProcessed(_ context.Context, eventID, eventType string, expiresAt time.Time) error {
	r.mu.Lock(); defer r.mu.Unlock()
	r.rows[eventID] = eventDedupRow{EventID: eventID, EventType: eventType, ExpiresAt: expiresAt}
	return nil
}

type OutboxRepository struct {
	mu    sync.Mutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, row ports.OutboxRecord) error {
	r.mu.Lock(); defer r.mu.Unlock()
	if _, ok := r.rows[row.RecordID]; ok { return domain.ErrConflict }
	r.rows[row.RecordID] = row
	r.order = append(r.order, row.RecordID)
	return nil
}
func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if limit <= 0 { limit = 100 }
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row, ok := r.rows[id]
		if !ok || row.SentAt != nil { continue }
		out = append(out, row)
		if len(out) >= limit { break }
	}
	return out, nil
}
func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock(); defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok { return domain.ErrNotFound }
	row.SentAt = &at
	r.rows[recordID] = row
	return nil
}
