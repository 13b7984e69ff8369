// Package operator implements the human-simulating operator: a bounded
// FIFO of completed cell ids, a condition-signaled single consumer that
// classifies OK/FAIL after a randomized review latency, and the reset of
// acknowledged cells (spec §4.5).
package operator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kitline/kitline/internal/cell"
	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/counters"
	"github.com/kitline/kitline/internal/nlog"
)

// Queue is the bounded FIFO of cell ids awaiting acknowledgement, paired
// with a condition signal (spec §3, §4.5). It implements cell.Enqueuer.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []int
	capacity int

	cells    map[int]*cell.Cell
	counters *counters.Counters
	rng      *rand.Rand

	KitsOK   int64
	KitsFail int64
}

var _ cell.Enqueuer = (*Queue)(nil)

// New builds an operator Queue of the given capacity, backed by the cell
// set (by id) and the shared global counters.
func New(capacity int, cells map[int]*cell.Cell, c *counters.Counters, seed int64) *Queue {
	q := &Queue{capacity: capacity, cells: cells, counters: c, rng: rand.New(rand.NewSource(seed + 2))}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a cell id if there is room, reporting success. A full
// queue silently discards the request (spec §7) — documented as
// unreachable under normal operation since capacity (10) >= MAX_CELLS (4),
// an invariant asserted in operator_test.go.
func (q *Queue) Enqueue(cellID int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) >= q.capacity {
		return false
	}
	q.buf = append(q.buf, cellID)
	q.cond.Signal()
	return true
}

// Len reports the current queue depth (for metrics/diagnostics).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// waitAndDequeue blocks on the condition until the queue is non-empty or
// ctx is done, woken at least every config.OperatorPollTimeout by pulse()
// so shutdown stays responsive (spec §4.5/§5).
func (q *Queue) waitAndDequeue(ctx context.Context) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) == 0 {
		if ctx.Err() != nil {
			return 0, false
		}
		q.cond.Wait()
	}
	id := q.buf[0]
	q.buf = q.buf[1:]
	return id, true
}

// pulse rebroadcasts the condition every OperatorPollTimeout so a blocked
// consumer periodically re-checks ctx — the "100ms timed wait" of spec
// §4.5/§5, expressed as a cond + periodic broadcast rather than a raw
// timed channel receive, to keep the FIFO's own condition variable as the
// sole wakeup primitive.
func (q *Queue) pulse(ctx context.Context) {
	ticker := time.NewTicker(config.OperatorPollTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		case <-ticker.C:
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		}
	}
}

// Run is the operator's single-consumer loop (spec §4.5). It exits when
// ctx is done, after draining any remaining queued cells as OK (they
// represent genuinely-completed kits, per spec §4.5's shutdown note).
func (q *Queue) Run(ctx context.Context) {
	go q.pulse(ctx)
	for {
		id, ok := q.waitAndDequeue(ctx)
		if !ok {
			q.drainAsOK()
			return
		}
		q.process(id, false)
	}
}

func (q *Queue) drainAsOK() {
	q.mu.Lock()
	pending := q.buf
	q.buf = nil
	q.mu.Unlock()
	for _, id := range pending {
		q.process(id, true)
	}
}

// process classifies one cell's kit and acknowledges it (spec §4.5).
// forceOK is set only during shutdown drain.
func (q *Queue) process(cellID int, forceOK bool) {
	c, ok := q.cells[cellID]
	if !ok {
		return
	}
	current, required, _ := c.Kit.Snapshot()
	okClass := forceOK
	if !forceOK {
		okClass = true
		for i := range required {
			if current[i] != required[i] {
				okClass = false
				break
			}
		}
	}

	delay := time.Duration(q.rng.Int63n(int64(config.DeltaT1Max)))
	time.Sleep(delay)

	if okClass {
		q.KitsOK++
		q.counters.CreditOK()
		nlog.Infof("operator: cell %d OK, sets_completed credited", cellID)
	} else {
		q.KitsFail++
		q.counters.CreditFail()
		nlog.Errorf("operator: cell %d FAIL — kit did not match on completion (invariant breach, see spec §7)", cellID)
	}

	c.Kit.Reset()
	c.ReturnToActive()
}
