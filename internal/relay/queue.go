package relay

import "sync"

// Queue is an unbounded FIFO of assembled requests.
type Queue struct {
	mu    sync.Mutex
	items []*QueuedRequest
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends req and returns the queue depth after insertion.
func (q *Queue) Enqueue(req *QueuedRequest) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, req)
	return len(q.items)
}

// Dequeue removes and returns the oldest request.
func (q *Queue) Dequeue() (*QueuedRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return req, true
}

// Len returns the current depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain empties the queue and returns how many requests it held.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}
