// Package dispense implements the dispenser pool: a single logical
// producer that injects parts at the belt head at a fixed sub-tick rate,
// drawn from a per-type remaining budget (spec §4.2).
package dispense

import (
	"context"
	"math/rand"
	"time"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/cell"
	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/part"
)

// Pool is the dispenser pool's runtime state. It is driven by a single
// goroutine (Run) simulating `numDispensers` dispenser slots per sub-tick,
// matching the teacher's single-writer worker-loop shape
// (xact/xs/tcobjs.go's XactTCObjs.Run).
type Pool struct {
	belt    *belt.Belt
	subTick time.Duration

	remaining [4]int64 // indexed by t-part.A
	dispensed [4]int64 // running per-type injected total

	nextID     int64
	cycleCount int64

	rng   *rand.Rand
	cells []*cell.Cell // consulted by the load-balance event (spec §4.2/§9)
}

// New builds a Pool with remaining[t] = required_per_set[t] * sets_target.
func New(b *belt.Belt, cfg config.Configuration, cells []*cell.Cell) *Pool {
	p := &Pool{
		belt:    b,
		subTick: cfg.DispenseSubTickPeriod(),
		rng:     rand.New(rand.NewSource(cfg.Seed + 1)),
		cells:   cells,
	}
	for _, t := range part.Types {
		p.remaining[t-part.A] = int64(cfg.Required(t)) * int64(cfg.SetsTarget)
	}
	return p
}

// Done reports whether every type's remaining budget has reached zero.
func (p *Pool) Done() bool {
	for _, r := range p.remaining {
		if r > 0 {
			return false
		}
	}
	return true
}

// Dispensed returns the running total of parts injected of type t.
func (p *Pool) Dispensed(t part.Type) int64 {
	if t < part.A || t > part.D {
		return 0
	}
	return p.dispensed[t-part.A]
}

// TotalDispensed sums Dispensed across all four types.
func (p *Pool) TotalDispensed() int64 {
	var n int64
	for _, v := range p.dispensed {
		n += v
	}
	return n
}

// Run is the dispenser pool's main loop, honoring ctx cancellation (spec
// §4.2/§5). It stops once Done(), handing control back to the Supervisor's
// drain phase.
func (p *Pool) Run(ctx context.Context, numDispensers int) {
	ticker := time.NewTicker(p.subTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Done() {
				nlog.Infof("dispenser: all parts dispensed")
				return
			}
			p.tick(numDispensers)
		}
	}
}

// tick simulates one sub-tick across all dispenser slots (spec §4.2): for
// each dispenser, with 80% probability pick a uniformly-random type; if
// its budget is exhausted, probe the remaining types round-robin for a
// non-zero budget. On success, decrement the budget and inject into the
// belt head (bounded by numDispensers head capacity).
func (p *Pool) tick(numDispensers int) {
	for i := 0; i < numDispensers; i++ {
		if p.rng.Float64() >= config.DispenseSuccessProb {
			continue
		}
		start := p.rng.Intn(4)
		t := part.Invalid
		for j := 0; j < 4; j++ {
			cand := part.Types[(start+j)%4]
			if p.remaining[cand-part.A] > 0 {
				t = cand
				break
			}
		}
		if t == part.Invalid {
			continue // all budgets exhausted
		}
		p.nextID++
		pt := part.New(t, p.nextID)
		if !p.belt.HeadInject(pt) {
			continue // head slot at this sub-tick's capacity; retry next sub-tick
		}
		p.remaining[t-part.A]--
		p.dispensed[t-part.A]++

		p.cycleCount++
		if p.cycleCount%config.Y == 0 {
			p.loadBalance()
		}
	}
}

// loadBalance is the dispenser's periodic load-balance event (spec §4.2,
// open question resolved per spec §9): suspend one Idle arm belonging to
// whichever active cell has accumulated the most moved parts, giving
// less-loaded cells' arms more withdraw-permit headroom for delta_t2.
func (p *Pool) loadBalance() {
	var busiest *cell.Cell
	var busiestMoved int64 = -1
	for _, c := range p.cells {
		if !c.Enabled() {
			continue
		}
		var moved int64
		for _, a := range c.Arms {
			moved += a.MovedCount()
		}
		if moved > busiestMoved {
			busiestMoved = moved
			busiest = c
		}
	}
	if busiest == nil {
		return
	}
	now := time.Now()
	for i := len(busiest.Arms) - 1; i >= 0; i-- {
		if busiest.Arms[i].Suspend(now) {
			if nlog.FastV(5) {
				nlog.Infof("dispenser: load-balance suspended cell %d arm %d", busiest.ID, i)
			}
			return
		}
	}
}
