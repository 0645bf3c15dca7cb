package domain

import "errors"

var (
	// Safety plane.
	ErrLockPaused    = errors.New("lock operations paused")
	ErrReleasePaused = errors.New("release operations paused")
	ErrRefundPaused  = errors.New("refund operations paused")
	ErrReentrancy    = errors.New("reentrant call rejected")

	// Initialization.
	ErrNotInitialized     = errors.New("engine not initialized")
	ErrAlreadyInitialized = errors.New("engine already initialized")

	// Authorization.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrParticipantBlocked = errors.New("participant rejected by filter")

	// Referenced resource existence.
	ErrEscrowNotFound     = errors.New("escrow not found")
	ErrCapabilityNotFound = errors.New("capability not found")
	ErrClaimNotFound      = errors.New("claim not found")
	ErrDisputeNotFound    = errors.New("dispute not found")
	ErrReceiptNotFound    = errors.New("receipt not found")
	ErrNotFound           = errors.New("not found")

	// State conflicts.
	ErrEscrowExists       = errors.New("escrow already exists")
	ErrClaimPending       = errors.New("pending claim blocks operation")
	ErrDisputeAlreadyOpen = errors.New("dispute already open")

	// Resource state mismatch.
	ErrInvalidStatus = errors.New("escrow status does not permit operation")
	ErrNotDisputed   = errors.New("escrow is not disputed")
	ErrClaimClosed   = errors.New("claim already resolved")

	// Capability validation.
	ErrCapabilityScope     = errors.New("capability action scope mismatch")
	ErrCapabilityCeiling   = errors.New("amount exceeds capability ceiling")
	ErrCapabilityExhausted = errors.New("capability uses exhausted")
	ErrCapabilityExpired   = errors.New("capability expired")
	ErrCapabilityRevoked   = errors.New("capability revoked")

	// Business-rule constraints.
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrAmountOutOfBounds = errors.New("amount outside configured bounds")
	ErrInvalidDeadline   = errors.New("deadline must be in the future")
	ErrInvalidFeeRate    = errors.New("fee rate outside allowed range")
	ErrInvalidWeights    = errors.New("treasury weights must sum to a positive total")
	ErrInvalidRiskMask   = errors.New("risk mask outside 4-bit range")
	ErrDeprecated        = errors.New("engine deprecated for new locks")
	ErrInvalidInput      = errors.New("invalid input")

	// External preconditions.
	ErrDeadlineNotPassed = errors.New("deadline not passed")
	ErrGraceNotElapsed   = errors.New("grace period not elapsed")

	// Resource availability.
	ErrInsufficientBalance   = errors.New("insufficient escrow balance")
	ErrSpendingLimitExceeded = errors.New("spending limit exceeded for window")
	ErrAmountOverflow        = errors.New("amount arithmetic overflow")

	// Batch shape.
	ErrBatchShape = errors.New("invalid batch shape")

	// Request plumbing (adapter concerns, outside the precedence table).
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrConflict            = errors.New("conflict")

	// Event plumbing.
	ErrInvalidEnvelope       = errors.New("invalid event envelope")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
)

// ErrorCategory orders validation failures. When several checks could fail
// for one call, the reported error must belong to the lowest category.
type ErrorCategory int

const (
	CategoryNone           ErrorCategory = iota
	CategoryPaused                       // 1
	CategoryInitialization               // 2
	CategoryAuthorization                // 3
	CategoryNotFound                     // 4
	CategoryStateConflict                // 5
	CategoryStateMismatch                // 6
	CategoryCapability                   // 7
	CategoryBusinessRule                 // 8
	CategoryPrecondition                 // 9
	CategoryAvailability                 // 10
	CategoryBatchShape                   // 11
)

// Category classifies a domain error into its precedence level.
// Unknown errors (infrastructure failures, wrapped adapter errors) map to
// CategoryNone and are not part of the ordering contract.
func Category(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrLockPaused), errors.Is(err, ErrReleasePaused), errors.Is(err, ErrRefundPaused), errors.Is(err, ErrReentrancy):
		return CategoryPaused
	case errors.Is(err, ErrNotInitialized), errors.Is(err, ErrAlreadyInitialized):
		return CategoryInitialization
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrParticipantBlocked):
		return CategoryAuthorization
	case errors.Is(err, ErrEscrowNotFound), errors.Is(err, ErrCapabilityNotFound), errors.Is(err, ErrClaimNotFound),
		errors.Is(err, ErrDisputeNotFound), errors.Is(err, ErrReceiptNotFound), errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrEscrowExists), errors.Is(err, ErrClaimPending), errors.Is(err, ErrDisputeAlreadyOpen):
		return CategoryStateConflict
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrNotDisputed), errors.Is(err, ErrClaimClosed):
		return CategoryStateMismatch
	case errors.Is(err, ErrCapabilityScope), errors.Is(err, ErrCapabilityCeiling), errors.Is(err, ErrCapabilityExhausted),
		errors.Is(err, ErrCapabilityExpired), errors.Is(err, ErrCapabilityRevoked):
		return CategoryCapability
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountOutOfBounds), errors.Is(err, ErrInvalidDeadline),
		errors.Is(err, ErrInvalidFeeRate), errors.Is(err, ErrInvalidWeights), errors.Is(err, ErrInvalidRiskMask),
		errors.Is(err, ErrDeprecated), errors.Is(err, ErrInvalidInput):
		return CategoryBusinessRule
	case errors.Is(err, ErrDeadlineNotPassed), errors.Is(err, ErrGraceNotElapsed):
		return CategoryPrecondition
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrSpendingLimitExceeded), errors.Is(err, ErrAmountOverflow):
		return CategoryAvailability
	case errors.Is(err, ErrBatchShape):
		return CategoryBatchShape
	default:
		return CategoryNone
	}
}
