// Package config holds the validated Configuration record the core
// consumes (spec §1, §6). This package does not parse raw argv;
// cmd/kitline turns positional arguments into a Configuration and the
// core only ever sees the validated record.
package config

import (
	"time"

	"github.com/pkg/errors"

	"github.com/kitline/kitline/internal/part"
)

// Defaults enumerated in spec §6.
const (
	DeltaT1Max = 2000 * time.Millisecond // operator review upper bound
	DeltaT2    = 1000 * time.Millisecond // arm suspension duration
	Y          = 10                      // parts between load-balance events

	MaxCells     = 4
	MaxPositions = 100

	MaxConcurrentWithdrawers = 2
	OverflowCapacity         = 20
	OperatorQueueCapacity    = 10
	ArmsPerCell              = 4

	NoProgressThreshold = 100 // cycles, ~1s at the arm poll interval
	ArmPollInterval     = 10 * time.Millisecond
	ArmBackoff          = 50 * time.Millisecond

	ManagerInterval  = 2 * time.Second
	ManagerWarmup    = 2 * time.Second
	IdlenessDisable  = 8 // cycles
	IdlenessConsider = 5 // cycles

	OperatorPollTimeout = 100 * time.Millisecond

	DispenseSuccessProb = 0.8
)

// Configuration is the single validated record the core consumes.
type Configuration struct {
	Dispensers int
	Cells      int
	SetsTarget int

	RequiredPerSet [4]int // indexed by part.Type-1 (A,B,C,D)

	Velocity   int // belt positions advanced per second
	Length     int // number of belt slots, N

	// Seed is the common supervisor seed each worker's RNG is derived
	// from, so fixed-seed runs (S1-S6) are deterministic (spec §9).
	Seed int64
}

// TickPeriod is the belt's advance period, 1/v seconds.
func (c Configuration) TickPeriod() time.Duration {
	return time.Second / time.Duration(c.Velocity)
}

// DispenseSubTickPeriod is half the belt tick (spec §4.2).
func (c Configuration) DispenseSubTickPeriod() time.Duration {
	return c.TickPeriod() / 2
}

// Required returns the per-set requirement for a part type.
func (c Configuration) Required(t part.Type) int {
	if t < part.A || t > part.D {
		return 0
	}
	return c.RequiredPerSet[t-part.A]
}

// TotalRequiredPerSet sums the four per-type requirements.
func (c Configuration) TotalRequiredPerSet() int {
	n := 0
	for _, v := range c.RequiredPerSet {
		n += v
	}
	return n
}

// CellPosition computes x_i = (i+1) * floor(N/(cells+1)) for 0-indexed i
// (spec §6).
func (c Configuration) CellPosition(i int) int {
	return (i + 1) * (c.Length / (c.Cells + 1))
}

// Validate enforces the misconfiguration checks of spec §6. Returns an
// error describing the first violation found.
func (c Configuration) Validate() error {
	if c.Dispensers <= 0 {
		return errors.New("dispensers must be > 0")
	}
	if c.Cells <= 0 {
		return errors.New("cells must be > 0")
	}
	if c.Cells > MaxCells {
		return errors.Errorf("cells must be <= %d", MaxCells)
	}
	if c.SetsTarget < 0 {
		return errors.New("sets must be >= 0")
	}
	for _, v := range c.RequiredPerSet {
		if v < 0 {
			return errors.New("required-per-type counts must be >= 0")
		}
	}
	if c.Velocity <= 0 {
		return errors.New("velocity must be > 0")
	}
	if c.Length <= 0 {
		return errors.New("length must be > 0")
	}
	if c.Length > MaxPositions {
		return errors.Errorf("length must be <= %d", MaxPositions)
	}
	if OperatorQueueCapacity < MaxCells {
		return errors.New("invariant violated: operator queue capacity must be >= MAX_CELLS")
	}
	return nil
}
