package events

// StrategyAddedData contains data for StrategyAdded events
type StrategyAddedData struct {
	StrategyID     string `json:"strategy_id"`
	Implementation string `json:"implementation"`
	CoreWeightBps  uint32 `json:"core_weight_bps"`
	Liquid         bool   `json:"liquid"`
}

// EventType returns the event type for StrategyAddedData
func (d *StrategyAddedData) EventType() EventType {
	return StrategyAdded
}

// TiltUpdatedData contains data for TiltUpdated events
type TiltUpdatedData struct {
	TiltBps   []int32 `json:"tilt_bps"`
	Rationale string  `json:"rationale"`
	UpdatedBy string  `json:"updated_by"`
}

// EventType returns the event type for TiltUpdatedData
func (d *TiltUpdatedData) EventType() EventType {
	return TiltUpdated
}

// RebalanceBandUpdatedData contains data for RebalanceBandUpdated events
type RebalanceBandUpdatedData struct {
	OldBandBps uint32 `json:"old_band_bps"`
	NewBandBps uint32 `json:"new_band_bps"`
	UpdatedBy  string `json:"updated_by"`
}

// EventType returns the event type for RebalanceBandUpdatedData
func (d *RebalanceBandUpdatedData) EventType() EventType {
	return RebalanceBandUpdated
}

// AllocationExecutedData contains data for AllocationExecuted events
type AllocationExecutedData struct {
	Requested uint64 `json:"requested"`
	Deployed  uint64 `json:"deployed"`
}

// EventType returns the event type for AllocationExecutedData
func (d *AllocationExecutedData) EventType() EventType {
	return AllocationExecuted
}

// DeallocationExecutedData contains data for DeallocationExecuted events
type DeallocationExecutedData struct {
	Requested uint64 `json:"requested"`
	Freed     uint64 `json:"freed"`
}

// EventType returns the event type for DeallocationExecutedData
func (d *DeallocationExecutedData) EventType() EventType {
	return DeallocationExecuted
}

// RebalanceExecutedData contains data for RebalanceExecuted events
type RebalanceExecutedData struct {
	Mover       string `json:"mover"`
	AssetsMoved uint64 `json:"assets_moved"`
	Legs        int    `json:"legs"`
}

// EventType returns the event type for RebalanceExecutedData
func (d *RebalanceExecutedData) EventType() EventType {
	return RebalanceExecuted
}

// EmergencyStoppedData contains data for EmergencyStopped events
type EmergencyStoppedData struct {
	StoppedBy string `json:"stopped_by"`
}

// EventType returns the event type for EmergencyStoppedData
func (d *EmergencyStoppedData) EventType() EventType {
	return EmergencyStopped
}

// OwnerTransferStartedData contains data for OwnerTransferStarted events
type OwnerTransferStartedData struct {
	CurrentOwner string `json:"current_owner"`
	PendingOwner string `json:"pending_owner"`
}

// EventType returns the event type for OwnerTransferStartedData
func (d *OwnerTransferStartedData) EventType() EventType {
	return OwnerTransferStarted
}

// OwnerTransferCompletedData contains data for OwnerTransferCompleted events
type OwnerTransferCompletedData struct {
	PreviousOwner string `json:"previous_owner"`
	NewOwner      string `json:"new_owner"`
}

// EventType returns the event type for OwnerTransferCompletedData
func (d *OwnerTransferCompletedData) EventType() EventType {
	return OwnerTransferCompleted
}

// RiskRefreshedData contains data for RiskRefreshed events
type RiskRefreshedData struct {
	Tier  string  `json:"tier"`
	Score float64 `json:"score"`
}

// EventType returns the event type for RiskRefreshedData
func (d *RiskRefreshedData) EventType() EventType {
	return RiskRefreshed
}
