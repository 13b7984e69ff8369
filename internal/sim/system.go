// Package sim wires belt, cell, dispense, operator, manager and counters
// into one running System, and drives its lifecycle through a Supervisor
// (spec §4.7). This is the only package that imports every leaf package,
// matching the teacher's xact/xs pattern of a thin top-level xaction type
// assembling independently-testable workers.
package sim

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/cell"
	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/counters"
	"github.com/kitline/kitline/internal/dispense"
	"github.com/kitline/kitline/internal/manager"
	"github.com/kitline/kitline/internal/metrics"
	"github.com/kitline/kitline/internal/operator"
	"github.com/kitline/kitline/internal/part"

	"github.com/prometheus/client_golang/prometheus"
)

// System is the root record owning every worker for one run (spec §3).
type System struct {
	Cfg config.Configuration

	RunID string

	Belt     *belt.Belt
	Counters *counters.Counters
	Cells    []*cell.Cell
	ByID     map[int]*cell.Cell
	Queue    *operator.Queue
	Manager  *manager.Manager
	Dispense *dispense.Pool
	Metrics  *metrics.Metrics
	Events   *EventSink
}

// New builds a System from a validated Configuration. Callers must call
// cfg.Validate() first; New does not re-validate.
func New(cfg config.Configuration, reg prometheus.Registerer) *System {
	runID := uuid.NewString()
	events := NewEventSink(runID, 256)

	b := belt.New(cfg.Length, cfg.Dispensers)
	cs := counters.New(cfg.SetsTarget)

	cells := make([]*cell.Cell, cfg.Cells)
	byID := make(map[int]*cell.Cell, cfg.Cells)

	// The operator queue needs the cell map before cells exist (cells hold
	// a reference to the queue as their Enqueuer), so build the queue
	// first against an empty map and let the loop below populate it — the
	// map itself, not a copy, is shared by reference.
	queue := operator.New(config.OperatorQueueCapacity, byID, cs, cfg.Seed)

	for i := 0; i < cfg.Cells; i++ {
		last := i == cfg.Cells-1
		c := cell.New(cell.Config{
			ID:                       i,
			Position:                 cfg.CellPosition(i),
			LastCell:                 last,
			ArmsCount:                config.ArmsPerCell,
			MaxConcurrentWithdrawers: config.MaxConcurrentWithdrawers,
			OverflowCapacity:         config.OverflowCapacity,
			RequiredPerSet:           cfg.RequiredPerSet,
			Belt:                     b,
			Counters:                 cs,
			Queue:                    queue,
			Seed:                     cfg.Seed + int64(10+i),
		})
		cells[i] = c
		byID[i] = c
	}

	mgr := manager.New(b, cells, cs)
	pool := dispense.New(b, cfg, cells)

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	events.Emit("system_init", "belt length "+strconv.Itoa(cfg.Length)+", cells "+strconv.Itoa(cfg.Cells))

	return &System{
		Cfg:      cfg,
		RunID:    runID,
		Belt:     b,
		Counters: cs,
		Cells:    cells,
		ByID:     byID,
		Queue:    queue,
		Manager:  mgr,
		Dispense: pool,
		Metrics:  m,
		Events:   events,
	}
}

// PartsInSystem sums every part still in play: on the belt, in every
// cell's kit and overflow. Used by the Supervisor's insufficient-parts
// termination check (spec §4.7).
func (s *System) PartsInSystem() int {
	n := 0
	for _, t := range part.Types {
		for pos := 0; pos < s.Belt.Len(); pos++ {
			for _, p := range s.Belt.PeekSlot(pos) {
				if p.Type == t {
					n++
				}
			}
		}
	}
	for _, c := range s.Cells {
		for _, t := range part.Types {
			n += c.Kit.Current(t)
			n += c.Overflow.CountByType(t)
		}
	}
	return n
}

// PartsStillNeeded returns the total unit count still required to reach
// sets_target, ignoring what has already been completed or is in
// progress's own kits (a conservative upper bound suitable for the
// insufficient-parts check: target-remaining SETs times per-set total).
func (s *System) PartsStillNeeded() int {
	return s.Counters.Pending() * s.Cfg.TotalRequiredPerSet()
}

// anyAwaitingOperator reports whether at least one cell is currently
// AwaitingOperator (used by the Supervisor's stall classification).
func (s *System) anyAwaitingOperator() bool {
	for _, c := range s.Cells {
		if c.State() == cell.AwaitingOperator {
			return true
		}
	}
	return false
}

// discardByType snapshots the belt's per-type discard tallies, keyed by
// part.Type.String(), for internal/metrics.Metrics.Update.
func (s *System) discardByType() map[string]int64 {
	out := make(map[string]int64, len(part.Types))
	for _, t := range part.Types {
		out[t.String()] = s.Belt.Discard(t)
	}
	return out
}

// movedByCell snapshots every cell's cumulative moved-part count, keyed by
// cell id, for internal/metrics.Metrics.Update.
func (s *System) movedByCell() map[string]int64 {
	out := make(map[string]int64, len(s.Cells))
	for _, c := range s.Cells {
		out[strconv.Itoa(c.ID)] = c.TotalMoved()
	}
	return out
}

// reportMetrics is a no-op when metrics weren't enabled (nil registry).
func (s *System) reportMetrics(setsCompleted, setsInProgress, queueDepth int) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.Update(setsCompleted, setsInProgress, queueDepth, s.discardByType(), s.movedByCell())
}

