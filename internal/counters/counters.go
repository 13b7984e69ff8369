// Package counters implements the global SET-admission counters
// (sets_completed, sets_in_progress) behind the single outermost lock in
// the system's lock-ordering discipline (spec §4.4, §5):
//
//	global_counter_mutex -> cell_mutex -> kit_mutex(placer) -> overflow_mutex -> slot_mutex
package counters

import "sync"

// Counters holds the admission-control state shared by every cell and the
// operator. Invariant: 0 <= Completed <= Completed+InProgress <= Target.
type Counters struct {
	mu        sync.Mutex
	completed int
	inProgress int
	target    int
}

// New builds Counters for a run targeting the given number of SETs.
func New(target int) *Counters {
	return &Counters{target: target}
}

// TryCommit attempts to admit one more SET in progress. It is the sole
// linearization point for cell commitment (spec §4.3 phase 1): at most
// `target` commitments can ever succeed across the whole run.
func (c *Counters) TryCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed+c.inProgress >= c.target {
		return false
	}
	c.inProgress++
	return true
}

// CreditOK moves one in-progress SET to completed (operator OK path).
func (c *Counters) CreditOK() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inProgress--
	if c.inProgress < 0 {
		c.inProgress = 0
	}
	c.completed++
}

// CreditFail decrements in-progress without crediting completed (operator
// FAIL path, or a forced Return that gives up a commitment).
func (c *Counters) CreditFail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inProgress--
	if c.inProgress < 0 {
		c.inProgress = 0
	}
}

// Snapshot returns (completed, inProgress, target) under lock.
func (c *Counters) Snapshot() (completed, inProgress, target int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed, c.inProgress, c.target
}

// Done reports whether sets_completed has reached the target.
func (c *Counters) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed >= c.target
}

// Pending returns target - completed - inProgress (never negative).
func (c *Counters) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.target - c.completed - c.inProgress
	if p < 0 {
		return 0
	}
	return p
}
