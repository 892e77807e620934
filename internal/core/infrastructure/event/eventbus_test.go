package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
)

func TestEventBus(t *testing.T) {
	eventBus := New(true)
	topic := event.EventType("test-event")

	var receivedData string
	handler := func(data string) {
		receivedData = data
	}
	require.NoError(t, eventBus.Subscribe(topic, handler))
	assert.True(t, eventBus.HasCallback(topic))

	eventBus.Publish(topic, "hello world")
	assert.Equal(t, "hello world", receivedData)
	assert.Equal(t, uint64(1), eventBus.Published())

	require.NoError(t, eventBus.Unsubscribe(topic, handler))
	assert.False(t, eventBus.HasCallback(topic))
}

func TestEventBusAsync(t *testing.T) {
	eventBus := New(true)
	topic := event.EventType("async-event")

	var mu sync.Mutex
	var got []int
	require.NoError(t, eventBus.SubscribeAsync(topic, func(n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	}, true))

	for i := 0; i < 5; i++ {
		eventBus.Publish(topic, i)
	}
	eventBus.WaitAsync()

	mu.Lock()
	defer mu.Unlock()
	// transactional 订阅保证顺序
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestEventBusDisabled(t *testing.T) {
	eventBus := New(false)
	topic := event.EventType("noop")

	called := false
	require.NoError(t, eventBus.Subscribe(topic, func() { called = true }))
	eventBus.Publish(topic)

	assert.False(t, called)
	assert.False(t, eventBus.HasCallback(topic))
	assert.Zero(t, eventBus.Published())
}
