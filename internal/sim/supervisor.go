package sim

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/part"
)

// Outcome classifies how a run ended (spec §4.7).
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeInsufficientParts
	OutcomeStalled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInsufficientParts:
		return "insufficient_parts"
	case OutcomeStalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Result is the Supervisor's final report (spec §4.7, §6).
type Result struct {
	Outcome Outcome

	SetsCompleted  int
	SetsInProgress int
	SetsTarget     int

	PartsDispensed [4]int64
	DiscardByType  [4]int64
	QueueOK        int64
	QueueFail      int64
}

// Supervisor drives one System through its full lifecycle: start every
// worker, wait for the dispenser to finish and the belt to drain, poll for
// completion or stall, and force termination when necessary (spec §4.7).
type Supervisor struct {
	sys *System
}

// NewSupervisor wraps sys for lifecycle orchestration.
func NewSupervisor(sys *System) *Supervisor {
	return &Supervisor{sys: sys}
}

// Run executes the full simulation lifecycle and returns once a
// termination condition is reached. The passed ctx, if cancelled
// externally (e.g. SIGINT), also ends the run.
func (sv *Supervisor) Run(parent context.Context) (Result, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	s := sv.sys
	g, gctx := errgroup.WithContext(ctx)

	// Belt ticker.
	g.Go(func() error {
		sv.runBelt(gctx)
		return nil
	})

	// Dispenser pool.
	dispenserDone := make(chan struct{})
	g.Go(func() error {
		defer close(dispenserDone)
		s.Dispense.Run(gctx, s.Cfg.Dispensers)
		return nil
	})

	// Cell arms.
	for _, c := range s.Cells {
		c := c
		for armIdx := range c.Arms {
			armIdx := armIdx
			g.Go(func() error {
				c.RunArm(gctx, armIdx)
				return nil
			})
		}
	}

	// Operator.
	g.Go(func() error {
		s.Queue.Run(gctx)
		return nil
	})

	// Dynamic manager.
	g.Go(func() error {
		s.Manager.Run(gctx)
		return nil
	})

	outcome := sv.supervise(gctx, dispenserDone)

	cancel()
	_ = g.Wait()

	return sv.buildResult(outcome), nil
}

func (sv *Supervisor) runBelt(ctx context.Context) {
	ticker := time.NewTicker(sv.sys.Cfg.TickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sv.sys.Belt.Advance()
		}
	}
}

// supervise is the main lifecycle poll described in spec §4.7: wait for
// the dispenser to drain out of the belt, then poll for success,
// insufficient parts, or stall, applying forced Returns to break
// deadlocked cells along the way.
func (sv *Supervisor) supervise(ctx context.Context, dispenserDone <-chan struct{}) Outcome {
	s := sv.sys

	drainWait := time.Duration(float64(s.Belt.Len())/float64(s.Cfg.Velocity)*float64(time.Second)) + 3*time.Second
	select {
	case <-dispenserDone:
		s.Events.Emit("dispenser_done", "draining belt for "+drainWait.String())
		select {
		case <-time.After(drainWait):
		case <-ctx.Done():
			return OutcomeUnknown
		}
	case <-ctx.Done():
		return OutcomeUnknown
	}

	timeout := time.Duration(s.Cfg.SetsTarget)*(2*time.Second+ /* delta_t1_max/1000 */ 2*time.Second) + 15*time.Second
	deadline := time.Now().Add(timeout)

	pollTicker := time.NewTicker(500 * time.Millisecond)
	defer pollTicker.Stop()

	var lastCompleted, lastDiscard int64
	var noProgressSince time.Time

	for {
		select {
		case <-ctx.Done():
			return OutcomeUnknown
		case <-pollTicker.C:
		}

		if s.Counters.Done() {
			s.Events.Emit("terminate", "success")
			return OutcomeSuccess
		}

		if time.Now().After(deadline) {
			s.Events.Emit("terminate", "deadline exceeded")
			return OutcomeStalled
		}

		completed, inProgress, _ := s.Counters.Snapshot()
		discard := sv.totalDiscard()
		s.reportMetrics(completed, inProgress, s.Queue.Len())

		progressed := int64(completed) != lastCompleted || discard != lastDiscard
		lastCompleted, lastDiscard = int64(completed), discard

		if inProgress == 0 && s.PartsInSystem() < s.PartsStillNeeded() {
			s.Events.Emit("terminate", "insufficient parts remain to reach target")
			return OutcomeInsufficientParts
		}

		if progressed {
			noProgressSince = time.Time{}
			continue
		}
		if noProgressSince.IsZero() {
			noProgressSince = time.Now()
			continue
		}

		stalledFor := time.Since(noProgressSince)
		if stalledFor >= 5*time.Second {
			sv.forceReturnStuckCells(ctx)
		}
		if stalledFor >= 10*time.Second && !s.anyAwaitingOperator() {
			s.Events.Emit("terminate", "no progress for 10s and no cell awaiting operator")
			return OutcomeStalled
		}
	}
}

func (sv *Supervisor) forceReturnStuckCells(ctx context.Context) {
	for _, c := range sv.sys.Cells {
		if c.ForceReturnIfStuck(ctx) {
			sv.sys.Events.Emit("forced_return", "cell stuck, parts returned to belt")
			nlog.Warnf("supervisor: forced Return on cell %d (stall recovery)", c.ID)
		}
	}
}

func (sv *Supervisor) totalDiscard() int64 {
	var n int64
	for _, t := range part.Types {
		n += sv.sys.Belt.Discard(t)
	}
	return n
}

func (sv *Supervisor) buildResult(outcome Outcome) Result {
	s := sv.sys
	completed, inProgress, target := s.Counters.Snapshot()
	s.reportMetrics(completed, inProgress, s.Queue.Len())
	r := Result{
		Outcome:        outcome,
		SetsCompleted:  completed,
		SetsInProgress: inProgress,
		SetsTarget:     target,
		QueueOK:        s.Queue.KitsOK,
		QueueFail:      s.Queue.KitsFail,
	}
	for i, t := range part.Types {
		r.PartsDispensed[i] = s.Dispense.Dispensed(t)
		r.DiscardByType[i] = s.Belt.Discard(t)
	}
	return r
}
