package config

import "testing"

func validConfig() Configuration {
	return Configuration{
		Dispensers:     2,
		Cells:          3,
		SetsTarget:     5,
		RequiredPerSet: [4]int{2, 1, 1, 1},
		Velocity:       4,
		Length:         40,
		Seed:           1,
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsTooManyCells(t *testing.T) {
	c := validConfig()
	c.Cells = MaxCells + 1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for cells > MAX_CELLS")
	}
}

func TestValidateRejectsTooLongBelt(t *testing.T) {
	c := validConfig()
	c.Length = MaxPositions + 1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for length > MAX_POSITIONS")
	}
}

func TestValidateRejectsZeroVelocity(t *testing.T) {
	c := validConfig()
	c.Velocity = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for velocity == 0")
	}
}

func TestCellPositionDistributesUniformly(t *testing.T) {
	c := validConfig()
	c.Length = 40
	c.Cells = 3
	// x_i = (i+1) * floor(N/(cells+1)) = (i+1) * 10
	want := []int{10, 20, 30}
	for i, w := range want {
		if got := c.CellPosition(i); got != w {
			t.Fatalf("CellPosition(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestTotalRequiredPerSet(t *testing.T) {
	c := validConfig()
	if got, want := c.TotalRequiredPerSet(), 5; got != want {
		t.Fatalf("TotalRequiredPerSet() = %d, want %d", got, want)
	}
}

func TestOperatorQueueCapacityInvariant(t *testing.T) {
	if OperatorQueueCapacity < MaxCells {
		t.Fatalf("operator queue capacity (%d) must be >= MAX_CELLS (%d)", OperatorQueueCapacity, MaxCells)
	}
}
