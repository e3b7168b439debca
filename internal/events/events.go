// Package events provides the in-process event bus and the typed event
// payloads emitted by the allocation manager.
package events

import "time"

// EventType identifies a class of audit event
type EventType string

const (
	StrategyAdded          EventType = "strategy_added"
	TiltUpdated            EventType = "tilt_updated"
	RebalanceBandUpdated   EventType = "rebalance_band_updated"
	AllocationExecuted     EventType = "allocation_executed"
	DeallocationExecuted   EventType = "deallocation_executed"
	RebalanceExecuted      EventType = "rebalance_executed"
	EmergencyStopped       EventType = "emergency_stopped"
	OwnerTransferStarted   EventType = "owner_transfer_started"
	OwnerTransferCompleted EventType = "owner_transfer_completed"
	RiskRefreshed          EventType = "risk_refreshed"
)

// Event is a single published event
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
}

// EventData is the interface that all event data types must implement.
// This allows for type-safe event data while maintaining flexibility.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}
