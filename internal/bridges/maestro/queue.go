package maestro

import (
	"fmt"
	"math"
	"sync"
)

// CommandQueue holds pending cloud requests.
//
// The front of the queue is index 0 and the back is index Len()-1.
// Enqueue inserts at the front and Dequeue removes from the back, so the
// default pair behaves as a FIFO. Inserting at position Len() places an
// item at the back, making it the next one dequeued.
//
// Negative positions count from the back (-1 is the last item).
//
// Thread Safety: All methods are safe for concurrent use.
type CommandQueue struct {
	items    []string
	capacity int
	mu       sync.Mutex
}

// NewCommandQueue creates a queue. A capacity of 0 (or less) means unbounded.
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &CommandQueue{capacity: capacity}
}

// Enqueue inserts an item at the front of the queue.
func (q *CommandQueue) Enqueue(item string) error {
	return q.EnqueueAt(0, item)
}

// EnqueueAt inserts an item before the given position. Positions past
// either end are clamped, matching slice insertion semantics.
func (q *CommandQueue) EnqueueAt(pos int, item string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.items) >= q.capacity {
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, q.capacity)
	}

	n := len(q.items)
	if pos < 0 {
		pos += n
	}
	pos = min(max(pos, 0), n)

	q.items = append(q.items, "")
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = item
	return nil
}

// EnqueueBack inserts an item at the back, making it the next one dequeued.
func (q *CommandQueue) EnqueueBack(item string) error {
	return q.EnqueueAt(math.MaxInt, item)
}

// Dequeue removes and returns the item at the back of the queue.
func (q *CommandQueue) Dequeue() (string, error) {
	return q.DequeueAt(-1)
}

// DequeueAt removes and returns the item at a position.
func (q *CommandQueue) DequeueAt(pos int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, err := q.index(pos)
	if err != nil {
		return "", err
	}

	item := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return item, nil
}

// Peek returns the item at a position without removing it.
func (q *CommandQueue) Peek(pos int) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i, err := q.index(pos)
	if err != nil {
		return "", err
	}
	return q.items[i], nil
}

// index resolves a possibly negative position. Caller holds q.mu.
func (q *CommandQueue) index(pos int) (int, error) {
	n := len(q.items)
	if n == 0 {
		return 0, ErrQueueEmpty
	}
	i := pos
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: position %d, length %d", ErrIndexOutOfRange, pos, n)
	}
	return i, nil
}

// Snapshot returns a copy of the items in [lo, hi). A negative hi means
// "to the end". The range must be non-empty and within the queue.
func (q *CommandQueue) Snapshot(lo, hi int) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if hi < 0 {
		hi = n
	}
	if lo < 0 || hi > n || lo >= hi {
		return nil, fmt.Errorf("%w: range [%d, %d), length %d", ErrIndexOutOfRange, lo, hi, n)
	}

	out := make([]string, hi-lo)
	copy(out, q.items[lo:hi])
	return out, nil
}

// Items returns a copy of the whole queue, front first.
func (q *CommandQueue) Items() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued items.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the configured capacity (0 for unbounded).
func (q *CommandQueue) Cap() int {
	return q.capacity
}

// IsEmpty reports whether the queue has no items.
func (q *CommandQueue) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether a bounded queue is at capacity. Never true when unbounded.
func (q *CommandQueue) IsFull() bool {
	if q.capacity == 0 {
		return false
	}
	return q.Len() >= q.capacity
}
