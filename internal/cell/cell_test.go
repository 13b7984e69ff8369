package cell

import (
	"testing"

	"github.com/kitline/kitline/internal/belt"
	"github.com/kitline/kitline/internal/counters"
	"github.com/kitline/kitline/internal/part"
)

type noopQueue struct{}

func (noopQueue) Enqueue(int) bool { return true }

func newTestCell(id int, required [4]int) *Cell {
	b := belt.New(8, 2)
	c := counters.New(4)
	return New(Config{
		ID: id, Position: 2, ArmsCount: 2, MaxConcurrentWithdrawers: 2,
		OverflowCapacity: 4, RequiredPerSet: required,
		Belt: b, Counters: c, Queue: noopQueue{}, Seed: int64(id + 1),
	})
}

func TestNewCellStartsActiveAndEnabled(t *testing.T) {
	c := newTestCell(0, [4]int{1, 1, 0, 0})
	if c.State() != Active {
		t.Fatalf("State() = %v, want Active", c.State())
	}
	if !c.Enabled() {
		t.Fatal("a freshly-built cell should be enabled")
	}
}

func TestNeededCombinesKitAndOverflow(t *testing.T) {
	c := newTestCell(0, [4]int{1, 0, 0, 0})
	if !c.Needed(part.A) {
		t.Fatal("fresh kit needs A")
	}
	c.Overflow.Push(part.New(part.A, 1))
	if c.Needed(part.A) {
		t.Fatal("overflow already covers the one missing A, should not be Needed")
	}
}

func TestSafeToDisableRequiresEmptyKitAndIdleArms(t *testing.T) {
	c := newTestCell(0, [4]int{1, 0, 0, 0})
	if !c.SafeToDisable() {
		t.Fatal("a fresh, idle cell should be safe to disable")
	}
	c.Kit.Place(part.A)
	if c.SafeToDisable() {
		t.Fatal("a cell with a non-empty kit should not be safe to disable")
	}
}

func TestEnableResetsKitOverflowAndProgress(t *testing.T) {
	c := newTestCell(0, [4]int{1, 1, 0, 0})
	c.Kit.Place(part.A)
	c.Overflow.Push(part.New(part.B, 1))
	c.Disable()
	c.Enable()

	if !c.Kit.Empty() {
		t.Fatal("Enable should reset the kit")
	}
	if !c.Overflow.Empty() {
		t.Fatal("Enable should drain the overflow")
	}
	if c.State() != Active {
		t.Fatalf("State() = %v, want Active after Enable", c.State())
	}
}

func TestNeedOverlapDetectsSharedMissingType(t *testing.T) {
	a := newTestCell(0, [4]int{1, 0, 0, 0})
	b := newTestCell(1, [4]int{1, 0, 0, 0})
	if !NeedOverlap(a, b) {
		t.Fatal("both cells still need A, expected overlap")
	}
	a.Kit.Place(part.A)
	if NeedOverlap(a, b) {
		t.Fatal("cell a no longer needs A, expected no overlap")
	}
}
