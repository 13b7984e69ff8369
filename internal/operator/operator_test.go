package operator

import (
	"context"
	"testing"
	"time"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/cell"
	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/counters"
	"github.com/kitline/kitline/internal/part"
)

type noopQueue struct{}

func (noopQueue) Enqueue(int) bool { return true }

func newCompletedCell(id int) (*cell.Cell, *counters.Counters) {
	b := belt.New(4, 2)
	c := counters.New(4)
	cl := cell.New(cell.Config{
		ID: id, Position: 1, ArmsCount: 1, MaxConcurrentWithdrawers: 2,
		OverflowCapacity: 2, RequiredPerSet: [4]int{1, 0, 0, 0},
		Belt: b, Counters: c, Queue: noopQueue{}, Seed: 1,
	})
	c.TryCommit()
	cl.Kit.Place(part.A)
	return cl, c
}

func TestQueueCapacityCoversMaxCells(t *testing.T) {
	// Invariant asserted by spec §7: operator queue capacity (10) must be
	// >= MAX_CELLS (4), so Enqueue on a full queue is unreachable.
	if config.OperatorQueueCapacity < config.MaxCells {
		t.Fatalf("OperatorQueueCapacity (%d) < MaxCells (%d)", config.OperatorQueueCapacity, config.MaxCells)
	}
}

func TestEnqueueRejectsBeyondCapacity(t *testing.T) {
	q := New(1, map[int]*cell.Cell{}, counters.New(1), 1)
	if !q.Enqueue(0) {
		t.Fatal("first enqueue should fit")
	}
	if q.Enqueue(1) {
		t.Fatal("second enqueue should be rejected at capacity 1")
	}
}

func TestProcessCreditsOKOnMatchingKit(t *testing.T) {
	cl, cs := newCompletedCell(0)
	q := New(4, map[int]*cell.Cell{0: cl}, cs, 1)
	q.process(0, false)

	if q.KitsOK != 1 {
		t.Fatalf("KitsOK = %d, want 1", q.KitsOK)
	}
	completed, inProgress, _ := cs.Snapshot()
	if completed != 1 || inProgress != 0 {
		t.Fatalf("Snapshot() = (%d,%d), want (1,0)", completed, inProgress)
	}
	if !cl.Kit.Empty() {
		t.Fatal("kit should be reset after acknowledgement")
	}
}

func TestRunDrainsQueueAsOKOnShutdown(t *testing.T) {
	cl, cs := newCompletedCell(0)
	q := New(4, map[int]*cell.Cell{0: cl}, cs, 1)
	q.Enqueue(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after cancellation")
	}
	if q.KitsOK != 1 {
		t.Fatalf("expected the queued cell to be drained as OK, KitsOK = %d", q.KitsOK)
	}
}
