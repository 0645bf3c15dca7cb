package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "storage unavailable", requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "ready", nil)
}

func (h *Handler) getEscrow(w http.ResponseWriter, r *http.Request) {
	escrowID, err := strconv.ParseUint(chi.URLParam(r, "escrowID"), 10, 64)
	if err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid escrow id", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	row, err := h.service.GetEscrow(r.Context(), actor, escrowID)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "escrow", toEscrowResponse(row))
}

func (h *Handler) searchEscrows(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	input := application.SearchInput{
		Criteria: domain.SearchCriteria{
			Status:    domain.EscrowStatus(strings.TrimSpace(q.Get("status"))),
			Depositor: strings.TrimSpace(q.Get("depositor")),
			ProgramID: strings.TrimSpace(q.Get("program_id")),
		},
		Offset: offset,
		Limit:  limit,
	}
	rows, total, err := h.service.SearchEscrows(r.Context(), actor, input)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	items := make([]contracts.EscrowResponse, len(rows))
	for i, row := range rows { items[i] = toEscrowResponse(row) }
	writeSuccess(w, http.StatusOK, "escrow page", contracts.EscrowPageResponse{Items: items, Total: total, Offset: input.Offset, Limit: input.Limit})
}

func (h *Handler) getSpendingState(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	q := r.URL.Query()
	state, cfg, err := h.service.GetSpendingState(r.Context(), actor, strings.TrimSpace(q.Get("program_id")), strings.TrimSpace(q.Get("token_id")))
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "spending state", contracts.SpendingStateResponse{
		ProgramID:      state.ProgramID,
		TokenID:        state.TokenID,
		WindowStart:    state.WindowStart,
		AmountReleased: state.AmountReleased,
		MaxAmount:      cfg.MaxAmount,
		WindowSeconds:  cfg.WindowSeconds,
		Enabled:        cfg.Enabled,
	})
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	agg, err := h.service.GetTimeWeightedMetrics(r.Context(), actor)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "time-weighted metrics", contracts.MetricsResponse{
		Periods:           agg.Periods,
		LockCount:         agg.LockCount,
		SumLockAmount:     agg.SumLockAmount,
		SettlementCount:   agg.SettlementCount,
		SumSettlementTime: agg.SumSettlementTime,
		AvgLockAmount:     agg.AvgLockAmount,
		AvgSettlementTime: agg.AvgSettlementTime,
	})
}

func (h *Handler) verifyReceipt(w http.ResponseWriter, r *http.Request) {
	receiptID, err := strconv.ParseUint(chi.URLParam(r, "receiptID"), 10, 64)
	if err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid receipt id", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	receipt, err := h.service.VerifyReceipt(r.Context(), actor, receiptID)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "receipt", toReceiptResponse(receipt))
}

func (h *Handler) getDeprecation(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	dep, err := h.service.GetDeprecationStatus(r.Context(), actor)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "deprecation status", contracts.DeprecationResponse{Deprecated: dep.Deprecated, MigrationTarget: dep.MigrationTarget})
}

func (h *Handler) getRiskFlags(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	entity := strings.TrimSpace(chi.URLParam(r, "entity"))
	mask, err := h.service.GetRiskFlags(r.Context(), actor, entity)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "risk flags", contracts.RiskFlagsResponse{
		Entity:      entity,
		Mask:        mask,
		HighRisk:    mask&domain.RiskHighRisk != 0,
		UnderReview: mask&domain.RiskUnderReview != 0,
		Restricted:  mask&domain.RiskRestricted != 0,
		Deprecated:  mask&domain.RiskDeprecated != 0,
	})
}

func (h *Handler) getPauseFlags(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	flags, err := h.service.GetPauseFlags(r.Context(), actor)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "pause flags", contracts.PauseFlagsResponse{LockPaused: flags.LockPaused, ReleasePaused: flags.ReleasePaused, RefundPaused: flags.RefundPaused})
}
