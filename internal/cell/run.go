package cell

import (
	"context"
	"time"

	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/part"
)

// RunArm is the main cooperatively-scheduled loop for one arm (spec §4.3).
// It polls at config.ArmPollInterval and returns only when ctx is done.
func (c *Cell) RunArm(ctx context.Context, armIdx int) {
	arm := c.Arms[armIdx]
	ticker := time.NewTicker(config.ArmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.armStep(ctx, armIdx, arm, now)
		}
	}
}

func (c *Cell) armStep(ctx context.Context, armIdx int, arm *Arm, now time.Time) {
	// Step 1: suspension check.
	if arm.checkResume(config.DeltaT2, now) {
		return
	}
	// Step 2: disabled or awaiting operator.
	if !c.Enabled() || c.State() == AwaitingOperator {
		return
	}
	// Step 3: global target already met.
	if c.counters.Done() {
		return
	}

	acted := c.phaseWithdrawAndPlace(ctx, armIdx, arm)
	if !acted {
		c.phaseDrainOverflow(ctx, armIdx, arm)
	}

	if armIdx == 0 {
		c.phaseProgress()
	}
}

// phaseWithdrawAndPlace implements spec §4.3 phases 1 and 2. Returns true
// if the arm withdrew (and attempted to place) a part this cycle.
func (c *Cell) phaseWithdrawAndPlace(ctx context.Context, armIdx int, arm *Arm) bool {
	if !c.withdrawPermit.TryAcquire(1) {
		return false
	}
	released := false
	release := func() {
		if !released {
			c.withdrawPermit.Release(1)
			released = true
		}
	}
	defer release()

	pred := c.Needed
	peeked := c.belt.PeekSlot(c.Position)
	hitType := part.Invalid
	for _, p := range peeked {
		if pred(p.Type) {
			hitType = p.Type
			break
		}
	}
	if hitType == part.Invalid {
		return false
	}

	if !c.workingOnSet.Load() {
		if !c.counters.TryCommit() {
			return false
		}
		c.workingOnSet.Store(true)
	}

	p, ok := c.belt.WithdrawMatching(c.Position, pred)
	if !ok {
		// Raced away by another arm between peek and withdraw; leave the
		// commitment in place, another cycle will find a replacement part.
		return false
	}
	release()

	arm.setState(Withdrawing)
	arm.held = p
	c.logf("arm %d withdrew %s", armIdx, p)
	time.Sleep(c.randDuration(10*time.Millisecond, 20*time.Millisecond))

	c.phasePlace(ctx, armIdx, arm, p)
	return true
}

// phasePlace implements spec §4.3 phase 2 under the kit placer permit.
func (c *Cell) phasePlace(ctx context.Context, armIdx int, arm *Arm, p part.Part) {
	arm.setState(Placing)
	defer func() { arm.setState(Idle); arm.held = part.Part{} }()

	if err := c.placerPermit.Acquire(ctx, 1); err != nil {
		return
	}
	defer c.placerPermit.Release(1)

	applied, completed := c.Kit.Place(p.Type)
	if applied {
		arm.moved.Add(1)
		if completed {
			c.setState(AwaitingOperator)
			if !c.queue.Enqueue(c.ID) {
				c.logf("operator queue full, cell %d completion dropped (see spec §7)", c.ID)
			}
		}
		return
	}
	if !c.Overflow.Push(p) {
		c.logf("overflow full, dropping %s (spec §7)", p)
	}
}

// phaseDrainOverflow implements spec §4.3 phase 3: while Active, move one
// still-needed overflow part into the kit per iteration.
func (c *Cell) phaseDrainOverflow(ctx context.Context, armIdx int, arm *Arm) {
	if c.State() != Active {
		return
	}
	for _, t := range part.Types {
		if !c.Kit.Needed(t) {
			continue
		}
		p, ok := c.Overflow.TakeFirst(t)
		if !ok {
			continue
		}
		if err := c.placerPermit.Acquire(ctx, 1); err != nil {
			return
		}
		applied, completed := c.Kit.Place(p.Type)
		c.placerPermit.Release(1)
		if applied {
			arm.moved.Add(1)
			if completed {
				c.setState(AwaitingOperator)
				c.queue.Enqueue(c.ID)
			}
		}
		return
	}
}
