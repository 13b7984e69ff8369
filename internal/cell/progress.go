package cell

import (
	"context"
	"time"

	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/part"
)

// phaseProgress is spec §4.3 phase 4, run only by arm index 0: increments
// the no-progress counter and, once it crosses the threshold, decides
// whether the cell "cannot complete" and should Return.
func (c *Cell) phaseProgress() {
	c.mu.Lock()
	c.noProgressCycles++
	n := c.noProgressCycles
	c.mu.Unlock()

	if n <= config.NoProgressThreshold {
		return
	}

	if !c.WorkingOnSet() {
		// No committed SET, nothing to relinquish: an empty kit's
		// cannotComplete() arithmetic (missing==required>available) would
		// otherwise fire ReturnNow and wrongly CreditFail against a
		// commitment this cell never made.
		c.mu.Lock()
		c.noProgressCycles = 0
		c.mu.Unlock()
		return
	}

	cannot, beltAndOverflowEmpty := c.cannotComplete()
	if (cannot && !c.LastCell) || beltAndOverflowEmpty {
		c.ReturnNow(context.Background())
		return
	}
	c.mu.Lock()
	c.noProgressCycles = 0
	c.mu.Unlock()
}

// cannotComplete computes missing_by_type from the kit and available_by_type
// as overflow-count + belt-count over slots [0, position], per spec §4.3.
// It also reports whether both the belt (up to this cell) and the overflow
// are devoid of parts useful to this cell.
func (c *Cell) cannotComplete() (cannot, beltAndOverflowEmpty bool) {
	anyUseful := false
	for _, t := range part.Types {
		missing := c.Kit.Missing(t)
		if missing == 0 {
			continue
		}
		available := c.Overflow.CountByType(t) + c.belt.CountByType(t, c.Position)
		if available > 0 {
			anyUseful = true
		}
		if missing > available {
			cannot = true
		}
	}
	return cannot, !anyUseful
}

// CannotComplete exposes the progress detector's "cannot complete" test
// for the Supervisor's forced-Return sweep (spec §4.7).
func (c *Cell) CannotComplete() bool {
	cannot, _ := c.cannotComplete()
	return cannot
}

// ForceReturnIfStuck implements the Supervisor's stall-recovery sweep
// (spec §4.7): if this cell is Active, working on a SET, not already
// returning, and cannot complete, and it is not the last cell, force a
// Return.
func (c *Cell) ForceReturnIfStuck(ctx context.Context) bool {
	if c.State() != Active || !c.WorkingOnSet() || c.ReturningParts() || c.LastCell {
		return false
	}
	if !c.CannotComplete() {
		return false
	}
	c.ReturnNow(ctx)
	return true
}

// ReturnNow implements Cell.Return (spec §4.4): release the kit and
// overflow back onto the belt and reset this cell for fresh work.
func (c *Cell) ReturnNow(ctx context.Context) {
	c.returningParts.Store(true)
	defer c.returningParts.Store(false)

	target := c.Position + 1
	if c.LastCell {
		target = c.belt.Len() - 1
	}

	if err := c.placerPermit.Acquire(ctx, 1); err != nil {
		return
	}
	func() {
		defer c.placerPermit.Release(1)
		for _, t := range part.Types {
			for c.Kit.Current(t) > 0 {
				c.pushOneUnit(t, target)
			}
		}
		c.Kit.Reset()
	}()

	for _, p := range c.Overflow.DrainAll() {
		c.pushWithBackoff(p, target)
	}

	c.workingOnSet.Store(false)
	c.mu.Lock()
	c.noProgressCycles = 0
	c.mu.Unlock()
	c.counters.CreditFail()
	c.logf("returned parts to slot %d", target)
}

// pushOneUnit pushes one returned-sentinel unit of t onto the belt,
// retrying with a brief backoff on slot-capacity exhaustion (spec §7
// recoverable error), then decrements the kit's current count for t.
func (c *Cell) pushOneUnit(t part.Type, target int) {
	p := part.Part{Type: t, ID: part.ReturnedID}
	for !c.belt.Return(p, target) {
		time.Sleep(config.ArmBackoff)
	}
	c.Kit.Take(t)
}

func (c *Cell) pushWithBackoff(p part.Part, target int) {
	rp := p.AsReturned()
	for !c.belt.Return(rp, target) {
		time.Sleep(config.ArmBackoff)
	}
}
