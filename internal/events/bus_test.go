package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe("favorites-updated", func(p any) { got = append(got, "first:"+p.(string)) })
	bus.Subscribe("favorites-updated", func(p any) { got = append(got, "second:"+p.(string)) })
	bus.Subscribe("search-history-updated", func(p any) { got = append(got, "other") })

	bus.Publish("favorites-updated", "x")

	assert.Equal(t, []string{"first:x", "second:x"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0

	unsubscribe := bus.Subscribe("favorites-updated", func(any) { calls++ })
	bus.Publish("favorites-updated", nil)
	unsubscribe()
	unsubscribe() // idempotent
	bus.Publish("favorites-updated", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Subscribers("favorites-updated"))
}

func TestBusNoReplayForLateSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish("favorites-updated", "early")

	var got []any
	bus.Subscribe("favorites-updated", func(p any) { got = append(got, p) })
	assert.Empty(t, got)

	bus.Publish("favorites-updated", "late")
	assert.Equal(t, []any{"late"}, got)
}

func TestBusHandlerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var order []int

	var unsubscribeFirst func()
	unsubscribeFirst = bus.Subscribe("e", func(any) {
		order = append(order, 1)
		unsubscribeFirst()
	})
	bus.Subscribe("e", func(any) { order = append(order, 2) })

	bus.Publish("e", nil)
	bus.Publish("e", nil)

	// The snapshot taken by the first publish still reaches both handlers
	assert.Equal(t, []int{1, 2, 2}, order)
	assert.Equal(t, 1, bus.Subscribers("e"))
}
