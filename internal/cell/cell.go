// Package cell implements the Cell state machine, its Arms, and the
// Return (release) operation (spec §3, §4.3, §4.4).
//
// Lock order discipline (spec §4.4, enforced by this package's API surface
// rather than by caller discipline, per spec §9's design note):
//
//	global_counter_mutex -> cell_mutex -> kit_mutex(placer) -> overflow_mutex -> slot_mutex
package cell

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/counters"
	"github.com/kitline/kitline/internal/kit"
	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/part"
)

// Enqueuer is the operator queue's contract as seen by a Cell: enqueue a
// completed cell id for acknowledgement. Implemented by
// internal/operator.Queue; kept as an interface here to avoid a package
// cycle (the operator package needs to read back into Cell/Kit).
type Enqueuer interface {
	Enqueue(cellID int) bool
}

// Cell owns a kit-in-progress, an overflow buffer, a bounded withdraw
// permit, and a fixed set of arms (spec §3).
type Cell struct {
	ID       int
	Position int
	LastCell bool

	mu    sync.Mutex // cell_mutex: state and noProgressCycles
	state State

	enabled atomic.Bool

	Kit      *kit.Kit
	Overflow *kit.Overflow

	withdrawPermit *semaphore.Weighted
	placerPermit   *semaphore.Weighted

	Arms []*Arm

	workingOnSet     atomic.Bool
	returningParts   atomic.Bool
	noProgressCycles int64 // guarded by mu; incremented by arm 0, reset on Enable/Return/acknowledgement

	belt     *belt.Belt
	counters *counters.Counters
	queue    Enqueuer

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Config bundles the construction-time parameters a Cell needs; kept
// separate from internal/config.Configuration so this package does not
// depend on the CLI-facing config package.
type Config struct {
	ID                       int
	Position                 int
	LastCell                 bool
	ArmsCount                int
	MaxConcurrentWithdrawers int
	OverflowCapacity         int
	RequiredPerSet           [4]int
	Belt                     *belt.Belt
	Counters                 *counters.Counters
	Queue                    Enqueuer
	Seed                     int64
}

// New builds an Active cell ready to run.
func New(c Config) *Cell {
	cell := &Cell{
		ID:             c.ID,
		Position:       c.Position,
		LastCell:       c.LastCell,
		state:          Active,
		Kit:            kit.New(c.RequiredPerSet),
		Overflow:       kit.NewOverflow(c.OverflowCapacity),
		withdrawPermit: semaphore.NewWeighted(int64(c.MaxConcurrentWithdrawers)),
		placerPermit:   semaphore.NewWeighted(1),
		belt:           c.Belt,
		counters:       c.Counters,
		queue:          c.Queue,
		rng:            rand.New(rand.NewSource(c.Seed)),
	}
	cell.enabled.Store(true)
	cell.Arms = make([]*Arm, c.ArmsCount)
	for i := range cell.Arms {
		cell.Arms[i] = newArm(i)
	}
	return cell
}

// State returns the cell's current state under the cell lock.
func (c *Cell) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Cell) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Enabled reports the dynamic manager's activation flag for this cell.
func (c *Cell) Enabled() bool { return c.enabled.Load() }

// WorkingOnSet reports whether the cell currently counts against
// sets_in_progress.
func (c *Cell) WorkingOnSet() bool { return c.workingOnSet.Load() }

// ReturningParts reports whether a Return is currently in flight.
func (c *Cell) ReturningParts() bool { return c.returningParts.Load() }

// NoProgressCycles reads the progress-detector counter.
func (c *Cell) NoProgressCycles() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noProgressCycles
}

// TotalMoved sums MovedCount across every arm this cell owns, for the
// parts_moved_total metric.
func (c *Cell) TotalMoved() int64 {
	var n int64
	for _, a := range c.Arms {
		n += a.MovedCount()
	}
	return n
}

// Needed combines kit need with overflow coverage: "total need" for type t
// is (required[t]-current[t]) > count_of_t_in_overflow (spec §4.4).
func (c *Cell) Needed(t part.Type) bool {
	return c.Kit.Missing(t) > c.Overflow.CountByType(t)
}

// SafeToDisable is the dynamic manager's predicate (spec §4.6): state is
// not AwaitingOperator, not working on a SET, not mid-Return, kit and
// overflow are both empty, and no arm is Withdrawing/Placing.
func (c *Cell) SafeToDisable() bool {
	if c.State() == AwaitingOperator {
		return false
	}
	if c.WorkingOnSet() || c.ReturningParts() {
		return false
	}
	if !c.Kit.Empty() || !c.Overflow.Empty() {
		return false
	}
	for _, a := range c.Arms {
		switch a.State() {
		case Withdrawing, Placing:
			return false
		}
	}
	return true
}

// Enable activates the cell for the dynamic manager: resets kit, overflow,
// and progress counter, and flips state to Active (spec §4.6).
func (c *Cell) Enable() {
	c.Kit.Reset()
	c.Overflow.DrainAll()
	c.mu.Lock()
	c.noProgressCycles = 0
	c.state = Active
	c.mu.Unlock()
	c.enabled.Store(true)
}

// ReturnToActive is called by the Operator after acknowledgement (spec
// §4.5): clears working_on_set, resets the progress counter, and returns
// the cell to Active. The kit itself is reset by the caller beforehand.
func (c *Cell) ReturnToActive() {
	c.workingOnSet.Store(false)
	c.mu.Lock()
	c.noProgressCycles = 0
	c.state = Active
	c.mu.Unlock()
}

// Disable deactivates the cell; only called after SafeToDisable() holds.
func (c *Cell) Disable() {
	c.enabled.Store(false)
	c.setState(Inactive)
}

func (c *Cell) randDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return lo + time.Duration(c.rng.Int63n(int64(hi-lo)))
}

func (c *Cell) logf(format string, args ...interface{}) {
	if nlog.FastV(6) {
		nlog.Infof("cell[%d]: "+format, append([]interface{}{c.ID}, args...)...)
	}
}

