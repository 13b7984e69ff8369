package counters

import "testing"

func TestTryCommitRespectsTarget(t *testing.T) {
	c := New(2)
	if !c.TryCommit() {
		t.Fatal("first commit should succeed")
	}
	if !c.TryCommit() {
		t.Fatal("second commit should succeed")
	}
	if c.TryCommit() {
		t.Fatal("third commit should fail, target exhausted")
	}
}

func TestCreditOKMovesInProgressToCompleted(t *testing.T) {
	c := New(1)
	c.TryCommit()
	c.CreditOK()
	completed, inProgress, target := c.Snapshot()
	if completed != 1 || inProgress != 0 || target != 1 {
		t.Fatalf("Snapshot() = (%d,%d,%d), want (1,0,1)", completed, inProgress, target)
	}
	if !c.Done() {
		t.Fatal("Done() should report true once completed == target")
	}
}

func TestCreditFailDoesNotCreditCompleted(t *testing.T) {
	c := New(1)
	c.TryCommit()
	c.CreditFail()
	completed, inProgress, _ := c.Snapshot()
	if completed != 0 || inProgress != 0 {
		t.Fatalf("Snapshot() = (%d,%d), want (0,0)", completed, inProgress)
	}
}

func TestPendingNeverNegative(t *testing.T) {
	c := New(0)
	if got := c.Pending(); got != 0 {
		t.Fatalf("Pending() = %d, want 0", got)
	}
}
