package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventEscrowLocked       = "settlement.escrow_locked"
	EventEscrowReleased     = "settlement.escrow_released"
	EventEscrowRefunded     = "settlement.escrow_refunded"
	EventDisputeOpened      = "settlement.dispute_opened"
	EventDisputeResolved    = "settlement.dispute_resolved"
	EventClaimRequested     = "settlement.claim_requested"
	EventClaimResolved      = "settlement.claim_resolved"
	EventFeeDistributed     = "settlement.fee_distributed"
	EventCapabilityGranted  = "settlement.capability_granted"
	EventCapabilityRevoked  = "settlement.capability_revoked"
	EventPauseChanged       = "settlement.pause_changed"
	EventConfigUpdated      = "settlement.config_updated"
	EventHookFailed         = "settlement.hook_failed"
	EventEmergencyWithdraw  = "settlement.emergency_withdraw"
	EventUpgradeSimulated   = "settlement.upgrade_simulated"
)

func IsCanonicalInputEvent(string) bool { return false }

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventEscrowLocked, EventEscrowReleased, EventEscrowRefunded,
		EventDisputeOpened, EventDisputeResolved,
		EventClaimRequested, EventClaimResolved,
		EventFeeDistributed,
		EventCapabilityGranted, EventCapabilityRevoked,
		EventPauseChanged, EventConfigUpdated, EventHookFailed,
		EventEmergencyWithdraw, EventUpgradeSimulated:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventEscrowLocked, EventEscrowReleased, EventEscrowRefunded,
		EventDisputeOpened, EventDisputeResolved,
		EventClaimRequested, EventClaimResolved,
		EventCapabilityGranted, EventCapabilityRevoked,
		EventEmergencyWithdraw:
		return CanonicalEventClassDomain
	case EventFeeDistributed:
		return CanonicalEventClassAnalyticsOnly
	case EventPauseChanged, EventConfigUpdated, EventHookFailed, EventUpgradeSimulated:
		return CanonicalEventClassOps
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch eventType {
	case EventEscrowLocked, EventEscrowReleased, EventEscrowRefunded,
		EventDisputeOpened, EventDisputeResolved,
		EventClaimRequested, EventClaimResolved,
		EventFeeDistributed,
		EventCapabilityGranted, EventCapabilityRevoked,
		EventEmergencyWithdraw:
		return "data.escrow_id"
	case EventPauseChanged, EventConfigUpdated, EventHookFailed, EventUpgradeSimulated:
		return "data.engine_id"
	default:
		return ""
	}
}
