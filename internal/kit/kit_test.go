package kit

import (
	"testing"

	"github.com/kitline/kitline/internal/part"
)

func TestPlaceIgnoresSurplus(t *testing.T) {
	k := New([4]int{1, 0, 0, 0})
	applied, completed := k.Place(part.A)
	if !applied || !completed {
		t.Fatalf("first A should complete the kit: applied=%v completed=%v", applied, completed)
	}
	applied, _ = k.Place(part.A)
	if applied {
		t.Fatal("surplus A should not be applied once required count is met")
	}
}

func TestMissingNeverNegative(t *testing.T) {
	k := New([4]int{1, 1, 1, 1})
	k.Place(part.A)
	if got := k.Missing(part.A); got != 0 {
		t.Fatalf("Missing(A) = %d, want 0", got)
	}
	if got := k.Missing(part.B); got != 1 {
		t.Fatalf("Missing(B) = %d, want 1", got)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	k := New([4]int{1, 1, 1, 1})
	k.Reset()
	k.Reset()
	if !k.Empty() {
		t.Fatal("kit should be empty after Reset")
	}
}

func TestTakeDecrementsOnlyWhenPositive(t *testing.T) {
	k := New([4]int{2, 0, 0, 0})
	k.Place(part.A)
	if !k.Take(part.A) {
		t.Fatal("Take should succeed while current > 0")
	}
	if got := k.Current(part.A); got != 0 {
		t.Fatalf("Current(A) = %d, want 0", got)
	}
	if k.Take(part.A) {
		t.Fatal("Take should fail once current is already 0")
	}
}

func TestOverflowCapacityAndDrain(t *testing.T) {
	o := NewOverflow(1)
	if !o.Push(part.New(part.A, 1)) {
		t.Fatal("first push should fit")
	}
	if o.Push(part.New(part.B, 2)) {
		t.Fatal("second push should be rejected at capacity")
	}
	drained := o.DrainAll()
	if len(drained) != 1 {
		t.Fatalf("expected 1 drained part, got %d", len(drained))
	}
	if !o.Empty() {
		t.Fatal("overflow should be empty after DrainAll")
	}
}
