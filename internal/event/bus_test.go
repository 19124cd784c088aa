package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublish(t *testing.T) {
	b := NewBus()

	var got []string
	h := func(ev TransactionEvent) { got = append(got, ev.ID) }
	require.NoError(t, b.Subscribe(TopicTransactionCompleted, h))

	b.Publish(TopicTransactionCompleted, TransactionEvent{ID: "a", Status: "SUCCESS"})
	b.Publish(TopicTransactionFailed, TransactionEvent{ID: "b", Status: "FAIL"})
	assert.Equal(t, []string{"a"}, got)

	require.NoError(t, b.Unsubscribe(TopicTransactionCompleted, h))
	b.Publish(TopicTransactionCompleted, TransactionEvent{ID: "c"})
	assert.Equal(t, []string{"a"}, got)
}

func TestBusAsync(t *testing.T) {
	b := NewBus()

	var (
		mu  sync.Mutex
		ids []string
	)
	require.NoError(t, b.SubscribeAsync(TopicTransactionFailed, func(ev TransactionEvent) {
		mu.Lock()
		ids = append(ids, ev.ID)
		mu.Unlock()
	}, true))

	b.Publish(TopicTransactionFailed, TransactionEvent{ID: "x"})
	b.Publish(TopicTransactionFailed, TransactionEvent{ID: "y"})
	b.WaitAsync()

	assert.Equal(t, []string{"x", "y"}, ids)
}

func TestTerminal(t *testing.T) {
	assert.True(t, TransactionEvent{Status: "SUCCESS"}.Terminal())
	assert.True(t, TransactionEvent{Status: "FAIL"}.Terminal())
	assert.False(t, TransactionEvent{Status: "PROCESSING"}.Terminal())
}
