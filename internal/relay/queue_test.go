package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()
	q := NewQueue()

	assert.Equal(t, 1, q.Enqueue(&QueuedRequest{ID: "a"}))
	assert.Equal(t, 2, q.Enqueue(&QueuedRequest{ID: "b"}))
	assert.Equal(t, 3, q.Enqueue(&QueuedRequest{ID: "c"}))

	for _, want := range []string{"a", "b", "c"} {
		req, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, req.ID)
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	t.Parallel()
	q := NewQueue()

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(&QueuedRequest{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, q.Len())
	assert.Equal(t, 100, q.Drain())
	assert.Zero(t, q.Len())
}
