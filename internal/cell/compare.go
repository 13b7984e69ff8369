package cell

import "github.com/kitline/kitline/internal/part"

// lockPair acquires two cells' mutexes in a fixed order (lower id first)
// to prevent AB-BA deadlock, per spec §4.4: "Functions that compare state
// across two cells always lock the smaller-id cell first."
func lockPair(a, b *Cell) (unlock func()) {
	if a.ID == b.ID {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.ID < first.ID {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// NeedOverlap reports whether a and b both still need at least one common
// part type, consulted by the dynamic manager when choosing which
// disabled cell to activate (spec §4.4's cross-cell lock-order
// discipline; spec §4.6 Add heuristic).
func NeedOverlap(a, b *Cell) bool {
	unlock := lockPair(a, b)
	defer unlock()
	for _, t := range part.Types {
		if a.Kit.Needed(t) && b.Kit.Needed(t) {
			return true
		}
	}
	return false
}
