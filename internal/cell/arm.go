package cell

import (
	"sync/atomic"
	"time"

	"github.com/kitline/kitline/internal/part"
)

// Arm is a withdrawer owned by a Cell: state, a monotonic moved count, and
// (when Suspended) a suspension timestamp (spec §3).
type Arm struct {
	Index int

	state       atomic.Int32
	moved       atomic.Int64
	suspendedAt atomic.Int64 // unixnano; 0 when not suspended

	held part.Part // held between phases; only the owning goroutine touches it
}

func newArm(idx int) *Arm {
	return &Arm{Index: idx}
}

// State returns the arm's current ArmState.
func (a *Arm) State() ArmState { return ArmState(a.state.Load()) }

func (a *Arm) setState(s ArmState) { a.state.Store(int32(s)) }

// MovedCount is the running count of parts this arm has placed into a kit.
func (a *Arm) MovedCount() int64 { return a.moved.Load() }

// Suspend transitions the arm to Suspended and stamps the time, used by
// the dispenser's load-balance event (spec §4.2/§4.3).
func (a *Arm) Suspend(now time.Time) bool {
	if !a.state.CompareAndSwap(int32(Idle), int32(Suspended)) {
		return false
	}
	a.suspendedAt.Store(now.UnixNano())
	return true
}

// checkResume transitions Suspended->Idle once delta_t2 has elapsed.
// Returns true if the arm should back off this cycle (still suspended).
func (a *Arm) checkResume(delta time.Duration, now time.Time) (stillSuspended bool) {
	if a.State() != Suspended {
		return false
	}
	at := a.suspendedAt.Load()
	if now.UnixNano()-at >= delta.Nanoseconds() {
		a.state.Store(int32(Idle))
		a.suspendedAt.Store(0)
		return false
	}
	return true
}
