package http

import (
	"encoding/json"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

func (h *Handler) setFeeConfig(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetFeeConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	destinations := make([]domain.TreasuryDestination, len(req.Destinations))
	for i, d := range req.Destinations { destinations[i] = domain.TreasuryDestination{Address: d.Address, Weight: d.Weight, Region: d.Region} }
	cfg := domain.FeeConfig{FeeRateBps: req.FeeRateBps, Recipient: req.Recipient, Destinations: destinations, DistributionEnabled: req.DistributionEnabled}
	if err := h.service.SetFeeConfig(r.Context(), actor, cfg); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "fee config updated", nil)
}

func (h *Handler) setSpendingLimit(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetSpendingLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	cfg := domain.SpendingLimitConfig{ProgramID: req.ProgramID, TokenID: req.TokenID, MaxAmount: req.MaxAmount, WindowSeconds: req.WindowSeconds, Enabled: req.Enabled}
	if err := h.service.SetSpendingLimit(r.Context(), actor, cfg); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "spending limit updated", nil)
}

func (h *Handler) setGraceConfig(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetGraceConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	if err := h.service.SetGraceConfig(r.Context(), actor, domain.GraceConfig{Enabled: req.Enabled, PeriodSeconds: req.PeriodSeconds}); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "grace config updated", nil)
}

func (h *Handler) setFilter(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	entries := make(map[string]bool, len(req.Entries))
	for _, e := range req.Entries { entries[e] = true }
	if err := h.service.SetFilter(r.Context(), actor, domain.ParticipantFilter{Mode: domain.FilterMode(req.Mode), Entries: entries}); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "participant filter updated", nil)
}

func (h *Handler) setHook(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	if err := h.service.SetHook(r.Context(), actor, domain.HookConfig{URL: req.URL, Secret: req.Secret, LargeReleaseMinimum: req.LargeReleaseMinimum, Enabled: req.Enabled}); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "hook config updated", nil)
}

func (h *Handler) setDeprecation(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetDeprecationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	if err := h.service.SetDeprecation(r.Context(), actor, domain.Deprecation{Deprecated: req.Deprecated, MigrationTarget: req.MigrationTarget}); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "deprecation updated", nil)
}

func (h *Handler) setRiskFlags(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetRiskFlagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	if err := h.service.SetRiskFlags(r.Context(), actor, req.Entity, req.Mask); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "risk flags updated", nil)
}

func (h *Handler) setAmountPolicy(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetAmountPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	if err := h.service.SetAmountPolicy(r.Context(), actor, domain.AmountPolicy{Min: req.Min, Max: req.Max}); err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "amount policy updated", nil)
}

func (h *Handler) setPaused(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetPausedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	flags, err := h.service.SetPaused(r.Context(), actor, application.SetPausedInput{LockPaused: req.LockPaused, ReleasePaused: req.ReleasePaused, RefundPaused: req.RefundPaused, Reason: req.Reason})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "pause flags updated", contracts.PauseFlagsResponse{LockPaused: flags.LockPaused, ReleasePaused: flags.ReleasePaused, RefundPaused: flags.RefundPaused})
}

func (h *Handler) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req contracts.EmergencyWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	result, err := h.service.EmergencyWithdraw(r.Context(), actor, application.EmergencyWithdrawInput{EscrowID: req.EscrowID, Destination: req.Destination})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "emergency withdraw executed", toSettlementResponse(result))
}

func (h *Handler) simulateUpgrade(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	report, err := h.service.SimulateUpgrade(r.Context(), actor)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	checks := make([]contracts.UpgradeCheckBody, len(report.Checks))
	for i, c := range report.Checks { checks[i] = contracts.UpgradeCheckBody{Name: c.Name, Passed: c.Passed, Detail: c.Detail} }
	writeSuccess(w, http.StatusOK, "upgrade simulated", contracts.UpgradeReportResponse{Safe: report.Safe, Checks: checks, CheckedAt: report.CheckedAt})
}
