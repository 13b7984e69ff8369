package manager

import (
	"testing"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/cell"
	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/counters"
)

type noopQueue struct{}

func (noopQueue) Enqueue(int) bool { return true }

func newTestCells(n int, required [4]int, b *belt.Belt, c *counters.Counters) []*cell.Cell {
	cells := make([]*cell.Cell, n)
	for i := 0; i < n; i++ {
		cells[i] = cell.New(cell.Config{
			ID:                       i,
			Position:                 (i + 1) * 2,
			LastCell:                 i == n-1,
			ArmsCount:                2,
			MaxConcurrentWithdrawers: 2,
			OverflowCapacity:         4,
			RequiredPerSet:           required,
			Belt:                     b,
			Counters:                 c,
			Queue:                    noopQueue{},
			Seed:                     int64(i + 1),
		})
	}
	return cells
}

func TestMaybeRemoveRequiresMoreThanOneActive(t *testing.T) {
	b := belt.New(10, 2)
	c := counters.New(4)
	cells := newTestCells(1, [4]int{1, 1, 1, 1}, b, c)
	m := New(b, cells, c)

	for i := 0; i <= config.IdlenessDisable+1; i++ {
		m.updateIdleness()
	}
	m.maybeRemove()
	if !cells[0].Enabled() {
		t.Fatal("the sole active cell must never be disabled")
	}
}

func TestMaybeAddActivatesDisabledCellUnderPressure(t *testing.T) {
	b := belt.New(10, 2)
	c := counters.New(10)
	cells := newTestCells(2, [4]int{1, 1, 1, 1}, b, c)
	cells[1].Disable()
	m := New(b, cells, c)

	m.maybeAdd(5) // discard_delta > 2 with pending SETs triggers activation
	if !cells[1].Enabled() {
		t.Fatal("expected the disabled cell to be enabled under discard pressure")
	}
}

func TestMaybeAddNoopsWithNothingPending(t *testing.T) {
	b := belt.New(10, 2)
	c := counters.New(0)
	cells := newTestCells(2, [4]int{1, 1, 1, 1}, b, c)
	cells[1].Disable()
	m := New(b, cells, c)

	m.maybeAdd(10)
	if cells[1].Enabled() {
		t.Fatal("should not activate a cell when no SETs are pending")
	}
}
