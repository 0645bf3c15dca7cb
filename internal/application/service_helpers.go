package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

const roleAdmin = "admin"

// Missing optional config resolves to its zero-value default instead of
// failing the operation.

func (s *Service) pauseFlags(ctx context.Context) (domain.PauseFlags, error) {
	f, err := s.config.GetPauseFlags(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.PauseFlags{}, nil }
	return f, err
}

func (s *Service) settings(ctx context.Context) (domain.EngineSettings, error) {
	v, err := s.config.GetSettings(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.EngineSettings{}, nil }
	return v, err
}

func (s *Service) feeConfig(ctx context.Context) (domain.FeeConfig, error) {
	v, err := s.config.GetFeeConfig(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.FeeConfig{}, nil }
	return v, err
}

func (s *Service) graceConfig(ctx context.Context) (domain.GraceConfig, error) {
	v, err := s.config.GetGraceConfig(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.GraceConfig{}, nil }
	return v, err
}

func (s *Service) filter(ctx context.Context) (domain.ParticipantFilter, error) {
	v, err := s.config.GetFilter(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.ParticipantFilter{Mode: domain.FilterOpen}, nil }
	return v, err
}

func (s *Service) deprecation(ctx context.Context) (domain.Deprecation, error) {
	v, err := s.config.GetDeprecation(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.Deprecation{}, nil }
	return v, err
}

func (s *Service) amountPolicy(ctx context.Context) (domain.AmountPolicy, error) {
	v, err := s.config.GetAmountPolicy(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.AmountPolicy{}, nil }
	return v, err
}

func (s *Service) hookConfig(ctx context.Context) (domain.HookConfig, error) {
	v, err := s.config.GetHookConfig(ctx)
	if errors.Is(err, domain.ErrNotFound) { return domain.HookConfig{}, nil }
	return v, err
}

func (s *Service) spendingConfig(ctx context.Context, programID, tokenID string) (domain.SpendingLimitConfig, error) {
	v, err := s.spending.GetConfig(ctx, programID, tokenID)
	if errors.Is(err, domain.ErrNotFound) { return domain.SpendingLimitConfig{ProgramID: programID, TokenID: tokenID}, nil }
	return v, err
}

func (s *Service) spendingState(ctx context.Context, programID, tokenID string) (domain.SpendingState, error) {
	v, err := s.spending.GetState(ctx, programID, tokenID)
	if errors.Is(err, domain.ErrNotFound) { return domain.SpendingState{ProgramID: programID, TokenID: tokenID}, nil }
	return v, err
}

// requireInitialized loads the settings record and fails when the engine
// was never initialized.
func (s *Service) requireInitialized(ctx context.Context) (domain.EngineSettings, error) {
	settings, err := s.settings(ctx)
	if err != nil { return domain.EngineSettings{}, err }
	if !settings.Initialized() { return domain.EngineSettings{}, domain.ErrNotInitialized }
	return settings, nil
}

func requireActor(actor Actor) error {
	if strings.TrimSpace(actor.SubjectID) == "" { return domain.ErrUnauthorized }
	return nil
}

func requireAdmin(actor Actor, settings domain.EngineSettings) error {
	if err := requireActor(actor); err != nil { return err }
	if actor.SubjectID == settings.Admin || actor.Role == roleAdmin { return nil }
	return domain.ErrUnauthorized
}

// custodyAccount is the party holding locked value between lock and
// settlement.
func (s *Service) custodyAccount() string { return s.cfg.EngineID }

func (s *Service) getIdempotentJSON(ctx context.Context, key, requestHash string, out any) (bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" { return false, nil }
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil { return false, err }
	if rec.RequestHash != requestHash { return false, domain.ErrIdempotencyConflict }
	if len(rec.ResponseBody) == 0 { return false, nil }
	if err := json.Unmarshal(rec.ResponseBody, out); err != nil { return false, nil }
	return true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil { return nil }
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) { return domain.ErrIdempotencyConflict }
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" { return nil }
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
