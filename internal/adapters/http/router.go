package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", handler.ready)
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(jwtSecret))

			r.Post("/engine/initialize", handler.initialize)

			r.Post("/escrows/lock", handler.lock)
			r.Post("/escrows/lock-batch", handler.batchLock)
			r.Post("/escrows/release", handler.release)
			r.Post("/escrows/release-batch", handler.batchRelease)
			r.Post("/escrows/release-with-capability", handler.capabilityRelease)
			r.Post("/escrows/refund", handler.refund)
			r.Get("/escrows", handler.searchEscrows)
			r.Get("/escrows/{escrowID}", handler.getEscrow)

			r.Post("/disputes", handler.openDispute)
			r.Post("/disputes/resolve", handler.resolveDispute)

			r.Post("/claims", handler.requestClaim)
			r.Post("/claims/resolve", handler.resolveClaim)

			r.Post("/capabilities", handler.grantCapability)
			r.Post("/capabilities/revoke", handler.revokeCapability)

			r.Get("/spending/state", handler.getSpendingState)
			r.Get("/metrics/time-weighted", handler.getMetrics)
			r.Get("/receipts/{receiptID}", handler.verifyReceipt)
			r.Get("/deprecation", handler.getDeprecation)
			r.Get("/risk-flags/{entity}", handler.getRiskFlags)
			r.Get("/pause", handler.getPauseFlags)

			r.Post("/admin/fee-config", handler.setFeeConfig)
			r.Post("/admin/spending-limits", handler.setSpendingLimit)
			r.Post("/admin/grace-config", handler.setGraceConfig)
			r.Post("/admin/filter", handler.setFilter)
			r.Post("/admin/hook", handler.setHook)
			r.Post("/admin/deprecation", handler.setDeprecation)
			r.Post("/admin/risk-flags", handler.setRiskFlags)
			r.Post("/admin/amount-policy", handler.setAmountPolicy)
			r.Post("/admin/pause", handler.setPaused)
			r.Post("/admin/emergency-withdraw", handler.emergencyWithdraw)
			r.Post("/admin/upgrade-simulation", handler.simulateUpgrade)
		})
	})
	return r
}
