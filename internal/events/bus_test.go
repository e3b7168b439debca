package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeReceivesMatchingType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got *Event
	bus.Subscribe(TiltUpdated, func(e *Event) { got = e })

	bus.Publish(&TiltUpdatedData{TiltBps: []int32{500, -500}, Rationale: "shift"})

	require.NotNil(t, got)
	assert.Equal(t, TiltUpdated, got.Type)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())

	data, ok := got.Data.(*TiltUpdatedData)
	require.True(t, ok)
	assert.Equal(t, []int32{500, -500}, data.TiltBps)
}

func TestBus_SubscriberIgnoresOtherTypes(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var called bool
	bus.Subscribe(TiltUpdated, func(*Event) { called = true })

	bus.Publish(&EmergencyStoppedData{StoppedBy: "fund"})
	assert.False(t, called)
}

func TestBus_SubscribeAllReceivesEverything(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var types []EventType
	bus.SubscribeAll(func(e *Event) { types = append(types, e.Type) })

	bus.Publish(&AllocationExecutedData{Requested: 1})
	bus.Publish(&DeallocationExecutedData{Requested: 1})
	bus.Publish(&RiskRefreshedData{Tier: "balanced", Score: 30})

	assert.Equal(t, []EventType{AllocationExecuted, DeallocationExecuted, RiskRefreshed}, types)
}

func TestBus_MultipleSubscribersAllNotified(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var count int
	bus.Subscribe(EmergencyStopped, func(*Event) { count++ })
	bus.Subscribe(EmergencyStopped, func(*Event) { count++ })
	bus.SubscribeAll(func(*Event) { count++ })

	bus.Publish(&EmergencyStoppedData{StoppedBy: "fund"})
	assert.Equal(t, 3, count)
}

func TestEventData_TypeBindings(t *testing.T) {
	tests := []struct {
		data EventData
		want EventType
	}{
		{&StrategyAddedData{}, StrategyAdded},
		{&TiltUpdatedData{}, TiltUpdated},
		{&RebalanceBandUpdatedData{}, RebalanceBandUpdated},
		{&AllocationExecutedData{}, AllocationExecuted},
		{&DeallocationExecutedData{}, DeallocationExecuted},
		{&RebalanceExecutedData{}, RebalanceExecuted},
		{&EmergencyStoppedData{}, EmergencyStopped},
		{&OwnerTransferStartedData{}, OwnerTransferStarted},
		{&OwnerTransferCompletedData{}, OwnerTransferCompleted},
		{&RiskRefreshedData{}, RiskRefreshed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.data.EventType())
	}
}
