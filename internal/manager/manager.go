// Package manager implements the dynamic cell manager: an autoscaler that
// enables/disables cells in response to discard-bin growth and per-cell
// idleness (spec §4.6).
package manager

import (
	"context"
	"time"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/cell"
	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/counters"
	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/part"
)

// Manager periodically observes the system and toggles cell activation.
type Manager struct {
	belt     *belt.Belt
	cells    []*cell.Cell // ordered by ascending Position
	counters *counters.Counters

	lastDiscard int64
	idleCycles  map[int]int64 // cellID -> consecutive idle cycles
}

// New builds a Manager over cells, which must be in ascending Position
// order: maybeRemove treats the last enabled entry as the furthest
// downstream. The slice is used as given, not sorted.
func New(b *belt.Belt, cells []*cell.Cell, c *counters.Counters) *Manager {
	idle := make(map[int]int64, len(cells))
	for _, cl := range cells {
		idle[cl.ID] = 0
	}
	return &Manager{belt: b, cells: cells, counters: c, idleCycles: idle}
}

// Run is the manager's periodic loop: warm up, then observe/act every
// config.ManagerInterval until ctx is done (spec §4.6).
func (m *Manager) Run(ctx context.Context) {
	select {
	case <-time.After(config.ManagerWarmup):
	case <-ctx.Done():
		return
	}
	ticker := time.NewTicker(config.ManagerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Manager) tick() {
	totalDiscard := m.totalDiscard()
	delta := totalDiscard - m.lastDiscard
	m.lastDiscard = totalDiscard

	m.updateIdleness()
	m.maybeRemove()
	m.maybeAdd(delta)
}

func (m *Manager) totalDiscard() int64 {
	var n int64
	for _, t := range part.Types {
		n += m.belt.Discard(t)
	}
	return n
}

// updateIdleness bumps the idle-cycle counter for every enabled cell that
// is neither working on a SET nor awaiting the operator.
func (m *Manager) updateIdleness() {
	for _, c := range m.cells {
		if !c.Enabled() {
			m.idleCycles[c.ID] = 0
			continue
		}
		if c.WorkingOnSet() || c.State() == cell.AwaitingOperator {
			m.idleCycles[c.ID] = 0
			continue
		}
		m.idleCycles[c.ID]++
	}
}

func (m *Manager) activeCount() int {
	n := 0
	for _, c := range m.cells {
		if c.Enabled() {
			n++
		}
	}
	return n
}

// maybeRemove implements spec §4.6's Remove rule: if any cells are idle
// past the threshold and pending SETs <= active_cells/2, deactivate the
// furthest-downstream idle cell, provided SafeToDisable holds and more
// than one cell remains active.
func (m *Manager) maybeRemove() {
	active := m.activeCount()
	if active <= 1 {
		return
	}
	pending := m.counters.Pending()
	if pending > active/2 {
		return
	}

	var victim *cell.Cell
	for i := len(m.cells) - 1; i >= 0; i-- {
		c := m.cells[i]
		if !c.Enabled() {
			continue
		}
		if m.idleCycles[c.ID] <= config.IdlenessDisable {
			continue
		}
		if !c.SafeToDisable() {
			continue
		}
		victim = c
		break
	}
	if victim == nil {
		return
	}
	victim.Disable()
	m.idleCycles[victim.ID] = 0
	nlog.Infof("manager: disabled cell %d (idle, pending=%d active=%d)", victim.ID, pending, active)
}

// maybeAdd implements spec §4.6's Add rule: activate a disabled cell
// (chosen by pickActivationCandidate) when discard pressure is rising and
// SETs remain pending, or when
// every active cell is saturated and pending outstrips active capacity.
func (m *Manager) maybeAdd(discardDelta int64) {
	pending := m.counters.Pending()
	if pending == 0 {
		return
	}
	active := m.activeCount()

	shouldAdd := discardDelta > 2
	if !shouldAdd && pending > active {
		shouldAdd = m.allActiveBusy()
	}
	if !shouldAdd {
		return
	}

	candidate := m.pickActivationCandidate()
	if candidate == nil {
		return
	}
	candidate.Enable()
	m.idleCycles[candidate.ID] = 0
	nlog.Infof("manager: enabled cell %d (discard_delta=%d pending=%d active=%d)", candidate.ID, discardDelta, pending, active)
}

// pickActivationCandidate chooses which disabled cell to bring online:
// prefer one whose outstanding need does not overlap any already-active
// cell's (cell.NeedOverlap), so newly-activated capacity covers part
// types the active set is not already competing over; falls back to the
// first disabled cell found when every candidate overlaps.
func (m *Manager) pickActivationCandidate() *cell.Cell {
	var fallback *cell.Cell
	for _, c := range m.cells {
		if c.Enabled() {
			continue
		}
		if fallback == nil {
			fallback = c
		}
		overlaps := false
		for _, active := range m.cells {
			if !active.Enabled() {
				continue
			}
			if cell.NeedOverlap(c, active) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			return c
		}
	}
	return fallback
}

func (m *Manager) allActiveBusy() bool {
	any := false
	for _, c := range m.cells {
		if !c.Enabled() {
			continue
		}
		any = true
		if !c.WorkingOnSet() && c.State() != cell.AwaitingOperator {
			return false
		}
	}
	return any
}
