package maestro

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestCommandQueue_FIFO(t *testing.T) {
	q := NewCommandQueue(0)

	for _, item := range []string{"a", "b", "c"} {
		if err := q.Enqueue(item); err != nil {
			t.Fatalf("Enqueue(%q) error = %v", item, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if got != want {
			t.Errorf("Dequeue() = %q, want %q", got, want)
		}
	}

	if !q.IsEmpty() {
		t.Error("IsEmpty() = false after draining")
	}
}

func TestCommandQueue_Full(t *testing.T) {
	q := NewCommandQueue(2)

	if err := q.Enqueue("a"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if err := q.Enqueue("b"); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if !q.IsFull() {
		t.Error("IsFull() = false at capacity")
	}
	if err := q.Enqueue("c"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue() at capacity error = %v, want ErrQueueFull", err)
	}
	if err := q.EnqueueAt(1, "c"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("EnqueueAt() at capacity error = %v, want ErrQueueFull", err)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d after rejected enqueue, want 2", q.Len())
	}
}

func TestCommandQueue_Unbounded(t *testing.T) {
	q := NewCommandQueue(0)
	for i := 0; i < 1000; i++ {
		if err := q.Enqueue(fmt.Sprint(i)); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	if q.IsFull() {
		t.Error("IsFull() = true for unbounded queue")
	}
	if q.Cap() != 0 {
		t.Errorf("Cap() = %d, want 0", q.Cap())
	}
}

func TestCommandQueue_Empty(t *testing.T) {
	q := NewCommandQueue(0)

	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Dequeue() on empty error = %v, want ErrQueueEmpty", err)
	}
	if _, err := q.Peek(0); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Peek() on empty error = %v, want ErrQueueEmpty", err)
	}
	if _, err := q.DequeueAt(3); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("DequeueAt() on empty error = %v, want ErrQueueEmpty", err)
	}
	if items := q.Items(); len(items) != 0 {
		t.Errorf("Items() = %v, want empty", items)
	}
}

func TestCommandQueue_Positions(t *testing.T) {
	q := NewCommandQueue(0)
	// Front first: c b a
	for _, item := range []string{"a", "b", "c"} {
		_ = q.Enqueue(item)
	}

	// Insert at the back: becomes next to dequeue.
	if err := q.EnqueueAt(q.Len(), "urgent"); err != nil {
		t.Fatalf("EnqueueAt(back) error = %v", err)
	}
	// Out-of-range positions clamp.
	if err := q.EnqueueAt(-100, "front"); err != nil {
		t.Fatalf("EnqueueAt(-100) error = %v", err)
	}

	want := []string{"front", "c", "b", "a", "urgent"}
	if got := q.Items(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("Items() = %v, want %v", got, want)
	}

	tests := []struct {
		pos  int
		want string
	}{
		{pos: 0, want: "front"},
		{pos: -1, want: "urgent"},
		{pos: 2, want: "b"},
		{pos: -5, want: "front"},
	}
	for _, tt := range tests {
		got, err := q.Peek(tt.pos)
		if err != nil {
			t.Fatalf("Peek(%d) error = %v", tt.pos, err)
		}
		if got != tt.want {
			t.Errorf("Peek(%d) = %q, want %q", tt.pos, got, tt.want)
		}
	}

	for _, pos := range []int{5, -6} {
		if _, err := q.Peek(pos); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Peek(%d) error = %v, want ErrIndexOutOfRange", pos, err)
		}
	}

	if err := q.EnqueueBack("retry"); err != nil {
		t.Fatalf("EnqueueBack() error = %v", err)
	}
	if got, _ := q.Dequeue(); got != "retry" {
		t.Errorf("Dequeue() after EnqueueBack = %q, want retry", got)
	}

	got, err := q.DequeueAt(1)
	if err != nil || got != "c" {
		t.Errorf("DequeueAt(1) = %q, %v, want c", got, err)
	}
	got, err = q.Dequeue()
	if err != nil || got != "urgent" {
		t.Errorf("Dequeue() = %q, %v, want urgent", got, err)
	}
}

func TestCommandQueue_Snapshot(t *testing.T) {
	q := NewCommandQueue(0)
	for _, item := range []string{"a", "b", "c", "d"} {
		_ = q.Enqueue(item)
	}
	// Queue front first: d c b a

	tests := []struct {
		name    string
		lo, hi  int
		want    string
		wantErr bool
	}{
		{name: "whole", lo: 0, hi: -1, want: "[d c b a]"},
		{name: "middle", lo: 1, hi: 3, want: "[c b]"},
		{name: "empty range", lo: 2, hi: 2, wantErr: true},
		{name: "inverted", lo: 3, hi: 1, wantErr: true},
		{name: "negative lo", lo: -1, hi: 2, wantErr: true},
		{name: "hi past end", lo: 0, hi: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Snapshot(tt.lo, tt.hi)
			if tt.wantErr {
				if !errors.Is(err, ErrIndexOutOfRange) {
					t.Errorf("Snapshot() error = %v, want ErrIndexOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			if fmt.Sprint(got) != tt.want {
				t.Errorf("Snapshot() = %v, want %s", got, tt.want)
			}
		})
	}

	// The copy is detached from the queue.
	snap, _ := q.Snapshot(0, -1)
	snap[0] = "mutated"
	if front, _ := q.Peek(0); front != "d" {
		t.Errorf("Peek(0) = %q after mutating snapshot, want d", front)
	}

	if _, err := NewCommandQueue(0).Snapshot(0, -1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Snapshot() on empty queue error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestCommandQueue_ConcurrentProducersConsumer(t *testing.T) {
	q := NewCommandQueue(0)
	const producers, perProducer = 8, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(fmt.Sprintf("%d-%d", p, i)); err != nil {
					t.Errorf("Enqueue() error = %v", err)
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	lastPerProducer := make(map[int]int)
	for !q.IsEmpty() {
		item, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		var p, i int
		if _, err := fmt.Sscanf(item, "%d-%d", &p, &i); err != nil {
			t.Fatalf("unexpected item %q", item)
		}
		if last, ok := lastPerProducer[p]; ok && i <= last {
			t.Errorf("producer %d: item %d dequeued after %d", p, i, last)
		}
		lastPerProducer[p] = i
		seen[item] = true
	}

	if len(seen) != producers*perProducer {
		t.Errorf("dequeued %d unique items, want %d", len(seen), producers*perProducer)
	}
}
