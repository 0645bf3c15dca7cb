package http

import (
	"encoding/json"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	var req contracts.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	settings, err := h.service.InitializeEngine(r.Context(), actor, application.InitializeInput{Admin: req.Admin, SettlementToken: req.SettlementToken, Version: req.Version})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "engine initialized", contracts.EngineSettingsResponse{Admin: settings.Admin, SettlementToken: settings.SettlementToken, Version: settings.Version, InitializedAt: settings.InitializedAt})
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	var req contracts.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	row, err := h.service.Lock(r.Context(), actor, toLockInput(req))
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "escrow locked", toEscrowResponse(row))
}

func (h *Handler) batchLock(w http.ResponseWriter, r *http.Request) {
	var req contracts.BatchLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	items := make([]application.LockInput, len(req.Items))
	for i, it := range req.Items { items[i] = toLockInput(it) }
	rows, err := h.service.BatchLock(r.Context(), actor, items)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	out := make([]contracts.EscrowResponse, len(rows))
	for i, row := range rows { out[i] = toEscrowResponse(row) }
	writeSuccess(w, http.StatusOK, "batch locked", out)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	var req contracts.ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	result, err := h.service.Release(r.Context(), actor, application.ReleaseInput{EscrowID: req.EscrowID, Recipient: req.Recipient})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "release settled", toSettlementResponse(result))
}

func (h *Handler) batchRelease(w http.ResponseWriter, r *http.Request) {
	var req contracts.BatchReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	items := make([]application.ReleaseInput, len(req.Items))
	for i, it := range req.Items { items[i] = application.ReleaseInput{EscrowID: it.EscrowID, Recipient: it.Recipient} }
	results, err := h.service.BatchRelease(r.Context(), actor, items)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	out := make([]contracts.SettlementResponse, len(results))
	for i, res := range results { out[i] = toSettlementResponse(res) }
	writeSuccess(w, http.StatusOK, "batch released", out)
}

func (h *Handler) capabilityRelease(w http.ResponseWriter, r *http.Request) {
	var req contracts.CapabilityReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	result, err := h.service.CapabilityRelease(r.Context(), actor, application.CapabilityReleaseInput{CapabilityID: req.CapabilityID, EscrowID: req.EscrowID, Recipient: req.Recipient})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "capability release settled", toSettlementResponse(result))
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	var req contracts.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	result, err := h.service.Refund(r.Context(), actor, application.RefundInput{EscrowID: req.EscrowID, AdminApproval: req.AdminApproval})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "refund settled", toSettlementResponse(result))
}

func (h *Handler) openDispute(w http.ResponseWriter, r *http.Request) {
	var req contracts.OpenDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	dispute, err := h.service.OpenDispute(r.Context(), actor, application.OpenDisputeInput{EscrowID: req.EscrowID, Reason: req.Reason})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "dispute opened", toDisputeResponse(dispute))
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	var req contracts.ResolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	result, err := h.service.ResolveDispute(r.Context(), actor, application.ResolveDisputeInput{DisputeID: req.DisputeID, Outcome: domain.DisputeOutcome(req.Outcome), Recipient: req.Recipient})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "dispute resolved", toSettlementResponse(result))
}

func (h *Handler) requestClaim(w http.ResponseWriter, r *http.Request) {
	var req contracts.RequestClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	claim, err := h.service.RequestClaim(r.Context(), actor, application.RequestClaimInput{EscrowID: req.EscrowID, Amount: req.Amount, ExpiresAt: req.ExpiresAt})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "claim requested", toClaimResponse(claim))
}

func (h *Handler) resolveClaim(w http.ResponseWriter, r *http.Request) {
	var req contracts.ResolveClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	claim, err := h.service.ResolveClaim(r.Context(), actor, application.ResolveClaimInput{ClaimID: req.ClaimID, Approve: req.Approve})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "claim resolved", toClaimResponse(claim))
}

func (h *Handler) grantCapability(w http.ResponseWriter, r *http.Request) {
	var req contracts.GrantCapabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	grant, err := h.service.GrantCapability(r.Context(), actor, application.GrantCapabilityInput{EscrowID: req.EscrowID, Grantee: req.Grantee, Action: domain.CapabilityAction(req.Action), AmountCeiling: req.AmountCeiling, Uses: req.Uses, ExpiresAt: req.ExpiresAt})
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "capability granted", toCapabilityResponse(grant))
}

func (h *Handler) revokeCapability(w http.ResponseWriter, r *http.Request) {
	var req contracts.RevokeCapabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil { writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context())); return }
	actor := actorFromContext(r.Context())
	grant, err := h.service.RevokeCapability(r.Context(), actor, req.CapabilityID)
	if err != nil { code, c := mapDomainError(err); writeError(w, code, c, err.Error(), requestIDFromContext(r.Context())); return }
	writeSuccess(w, http.StatusOK, "capability revoked", toCapabilityResponse(grant))
}

func toLockInput(req contracts.LockRequest) application.LockInput {
	return application.LockInput{EscrowID: req.EscrowID, ProgramID: req.ProgramID, Depositor: req.Depositor, Amount: req.Amount, Deadline: req.Deadline, NonTransferableReward: req.NonTransferableReward}
}

func toEscrowResponse(row domain.Escrow) contracts.EscrowResponse {
	return contracts.EscrowResponse{
		EscrowID:        row.EscrowID,
		ProgramID:       row.ProgramID,
		Depositor:       row.Depositor,
		TokenID:         row.TokenID,
		Status:          string(row.Status),
		Amount:          row.Amount,
		RemainingAmount: row.RemainingAmount,
		Deadline:        row.Deadline,
		PendingClaimID:  row.PendingClaimID,
	}
}

func toReceiptResponse(row domain.Receipt) contracts.ReceiptResponse {
	return contracts.ReceiptResponse{ReceiptID: row.ReceiptID, Outcome: string(row.Outcome), EscrowID: row.EscrowID, Amount: row.Amount, Party: row.Party, Timestamp: row.Timestamp}
}

func toSettlementResponse(result application.SettlementResult) contracts.SettlementResponse {
	shares := make([]contracts.FeeShareBody, len(result.Distribution))
	for i, s := range result.Distribution {
		shares[i] = contracts.FeeShareBody{Address: s.Address, Amount: s.Amount, Region: s.Region}
	}
	return contracts.SettlementResponse{
		Escrow:       toEscrowResponse(result.Escrow),
		Receipt:      toReceiptResponse(result.Receipt),
		GrossAmount:  result.GrossAmount,
		FeeAmount:    result.FeeAmount,
		NetAmount:    result.NetAmount,
		Distribution: shares,
	}
}

func toCapabilityResponse(grant domain.Capability) contracts.CapabilityResponse {
	return contracts.CapabilityResponse{CapabilityID: grant.CapabilityID, EscrowID: grant.EscrowID, Grantee: grant.Grantee, Action: string(grant.Action), AmountCeiling: grant.AmountCeiling, UsesRemaining: grant.UsesRemaining, ExpiresAt: grant.ExpiresAt, Revoked: grant.Revoked}
}

func toClaimResponse(claim domain.Claim) contracts.ClaimResponse {
	return contracts.ClaimResponse{ClaimID: claim.ClaimID, EscrowID: claim.EscrowID, Claimant: claim.Claimant, Amount: claim.Amount, RequestedAt: claim.RequestedAt, ExpiresAt: claim.ExpiresAt, Status: string(claim.Status)}
}

func toDisputeResponse(dispute domain.Dispute) contracts.DisputeResponse {
	return contracts.DisputeResponse{DisputeID: dispute.DisputeID, EscrowID: dispute.EscrowID, OpenedBy: dispute.OpenedBy, Reason: dispute.Reason, OpenedAt: dispute.OpenedAt, Resolved: dispute.Resolved, ResolvedAt: dispute.ResolvedAt, Resolver: dispute.Resolver, Outcome: string(dispute.Outcome), Recipient: dispute.Recipient}
}
