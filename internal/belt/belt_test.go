package belt

import (
	"testing"

	"github.com/kitline/kitline/internal/part"
)

func TestHeadInjectRespectsDispenserCapacity(t *testing.T) {
	b := New(5, 2)
	if !b.HeadInject(part.New(part.A, 1)) {
		t.Fatal("first inject should fit")
	}
	if !b.HeadInject(part.New(part.B, 2)) {
		t.Fatal("second inject should fit (capacity == numDispensers)")
	}
	if b.HeadInject(part.New(part.C, 3)) {
		t.Fatal("third inject should be rejected, head capacity exhausted")
	}
}

func TestAdvanceShiftsSlotsAndDiscardsTail(t *testing.T) {
	b := New(3, 4)
	b.HeadInject(part.New(part.A, 1))
	b.Advance() // slot0 -> slot1
	b.Advance() // slot1 -> slot2
	if got := b.PeekSlot(2); len(got) != 1 || got[0].Type != part.A {
		t.Fatalf("expected part to have reached slot 2, got %v", got)
	}
	b.Advance() // slot2 drains to discard bin
	if got := b.Discard(part.A); got != 1 {
		t.Fatalf("Discard(A) = %d, want 1", got)
	}
	if got := b.PeekSlot(2); len(got) != 0 {
		t.Fatalf("slot 2 should be empty after drain, got %v", got)
	}
}

func TestWithdrawMatchingRemovesLeftmost(t *testing.T) {
	b := New(2, 4)
	b.HeadInject(part.New(part.A, 1))
	b.HeadInject(part.New(part.B, 2))
	b.HeadInject(part.New(part.A, 3))

	p, ok := b.WithdrawMatching(0, func(t part.Type) bool { return t == part.A })
	if !ok || p.ID != 1 {
		t.Fatalf("expected leftmost A (id 1), got %+v ok=%v", p, ok)
	}
	remaining := b.PeekSlot(0)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 parts remaining, got %d", len(remaining))
	}
}

func TestReturnClampsPosition(t *testing.T) {
	b := New(3, 4)
	if !b.Return(part.New(part.A, 1).AsReturned(), -5) {
		t.Fatal("Return should clamp negative position to 0 and succeed")
	}
	if len(b.PeekSlot(0)) != 1 {
		t.Fatal("returned part should land in slot 0")
	}
	if !b.Return(part.New(part.B, 2).AsReturned(), 99) {
		t.Fatal("Return should clamp overlarge position to last slot and succeed")
	}
	if len(b.PeekSlot(2)) != 1 {
		t.Fatal("returned part should land in last slot")
	}
}

func TestCountByTypeScansUpToPosition(t *testing.T) {
	b := New(4, 4)
	b.HeadInject(part.New(part.A, 1))
	b.Advance()
	b.HeadInject(part.New(part.A, 2))
	// Now slot0 has id2 (type A), slot1 has id1 (type A).
	if got := b.CountByType(part.A, 0); got != 1 {
		t.Fatalf("CountByType(A, 0) = %d, want 1", got)
	}
	if got := b.CountByType(part.A, 1); got != 2 {
		t.Fatalf("CountByType(A, 1) = %d, want 2", got)
	}
}
