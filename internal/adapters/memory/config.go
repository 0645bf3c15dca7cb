package memory

import (
	"context"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

// ConfigRepository keeps the engine-scoped settings in process memory.
// Unwritten sections report domain.ErrNotFound so the service falls back
// to defaults.
type ConfigRepository struct {
	mu sync.Mutex

	settings    *domain.EngineSettings
	fee         *domain.FeeConfig
	pause       *domain.PauseFlags
	grace       *domain.GraceConfig
	deprecation *domain.Deprecation
	filter      *domain.ParticipantFilter
	hook        *domain.HookConfig
	policy      *domain.AmountPolicy
	risk        map[string]uint8
}

func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{risk: map[string]uint8{}}
}

func (r *ConfigRepository) GetSettings(_ context.Context) (domain.EngineSettings, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.settings == nil { return domain.EngineSettings{}, domain.ErrNotFound }
	return *r.settings, nil
}
func (r *ConfigRepository) PutSettings(_ context.Context, s domain.EngineSettings) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.settings = &s; return nil
}

func (r *ConfigRepository) GetFeeConfig(_ context.Context) (domain.FeeConfig, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.fee == nil { return domain.FeeConfig{}, domain.ErrNotFound }
	return *r.fee, nil
}
func (r *ConfigRepository) PutFeeConfig(_ context.Context, c domain.FeeConfig) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.fee = &c; return nil
}

func (r *ConfigRepository) GetPauseFlags(_ context.Context) (domain.PauseFlags, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.pause == nil { return domain.PauseFlags{}, domain.ErrNotFound }
	return *r.pause, nil
}
func (r *ConfigRepository) PutPauseFlags(_ context.Context, f domain.PauseFlags) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.pause = &f; return nil
}

func (r *ConfigRepository) GetGraceConfig(_ context.Context) (domain.GraceConfig, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.grace == nil { return domain.GraceConfig{}, domain.ErrNotFound }
	return *r.grace, nil
}
func (r *ConfigRepository) PutGraceConfig(_ context.Context, g domain.GraceConfig) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.grace = &g; return nil
}

func (r *ConfigRepository) GetDeprecation(_ context.Context) (domain.Deprecation, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.deprecation == nil { return domain.Deprecation{}, domain.ErrNotFound }
	return *r.deprecation, nil
}
func (r *ConfigRepository) PutDeprecation(_ context.Context, d domain.Deprecation) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.deprecation = &d; return nil
}

func (r *ConfigRepository) GetFilter(_ context.Context) (domain.ParticipantFilter, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.filter == nil { return domain.ParticipantFilter{}, domain.ErrNotFound }
	out := *r.filter
	entries := make(map[string]bool, len(out.Entries))
	for k, v := range out.Entries { entries[k] = v }
	out.Entries = entries
	return out, nil
}
func (r *ConfigRepository) PutFilter(_ context.Context, f domain.ParticipantFilter) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.filter = &f; return nil
}

func (r *ConfigRepository) GetHookConfig(_ context.Context) (domain.HookConfig, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.hook == nil { return domain.HookConfig{}, domain.ErrNotFound }
	return *r.hook, nil
}
func (r *ConfigRepository) PutHookConfig(_ context.Context, h domain.HookConfig) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.hook = &h; return nil
}

func (r *ConfigRepository) GetAmountPolicy(_ context.Context) (domain.AmountPolicy, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	if r.policy == nil { return domain.AmountPolicy{}, domain.ErrNotFound }
	return *r.policy, nil
}
func (r *ConfigRepository) PutAmountPolicy(_ context.Context, p domain.AmountPolicy) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.policy = &p; return nil
}

func (r *ConfigRepository) GetRiskFlags(_ context.Context, entity string) (uint8, error) {
	r.mu.Lock(); defer r.mu.Unlock()
	mask, ok := r.risk[entity]
	if !ok { return 0, domain.ErrNotFound }
	return mask, nil
}
func (r *ConfigRepository) PutRiskFlags(_ context.Context, entity string, mask uint8) error {
	r.mu.Lock(); defer r.mu.Unlock(); r.risk[entity] = mask; return nil
}
