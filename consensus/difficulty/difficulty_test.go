package difficulty

import "testing"

func testConfig() Config {
	return Config{
		Initial:      1000,
		Min:          100,
		Max:          1_000_000,
		Window:       5,
		TargetTimeMs: 6000,
	}
}

func TestRecordBlockClearsBufferAfterRetarget(t *testing.T) {
	c := New(testConfig())
	for i := uint64(1); i <= 5; i++ {
		c.RecordBlock(i, 6000)
	}
	// Buffer must be empty immediately after the retarget boundary.
	c.mu.RLock()
	n := len(c.blockTimes)
	c.mu.RUnlock()
	if n != 0 {
		t.Fatalf("blockTimes len = %d, want 0 after retarget", n)
	}
}

func TestRetargetHarderWhenBlocksTooFast(t *testing.T) {
	c := New(testConfig())
	for i := uint64(1); i <= 5; i++ {
		c.RecordBlock(i, 3000) // half the target time
	}
	got := c.Current()
	if got <= 1000 {
		t.Fatalf("difficulty = %d, want > 1000 (blocks too fast => harder)", got)
	}
}

func TestRetargetEasierWhenBlocksTooSlow(t *testing.T) {
	c := New(testConfig())
	for i := uint64(1); i <= 5; i++ {
		c.RecordBlock(i, 12000) // double the target time
	}
	got := c.Current()
	if got >= 1000 {
		t.Fatalf("difficulty = %d, want < 1000 (blocks too slow => easier)", got)
	}
}

func TestDifficultyClampedToBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Max = 1500
	c := New(cfg)
	for i := uint64(1); i <= 5; i++ {
		c.RecordBlock(i, 1) // extremely fast blocks
	}
	if got := c.Current(); got != cfg.Max {
		t.Fatalf("difficulty = %d, want clamped to Max=%d", got, cfg.Max)
	}

	cfg2 := testConfig()
	cfg2.Min = 900
	c2 := New(cfg2)
	for i := uint64(1); i <= 5; i++ {
		c2.RecordBlock(i, 100_000) // extremely slow blocks
	}
	if got := c2.Current(); got != cfg2.Min {
		t.Fatalf("difficulty = %d, want clamped to Min=%d", got, cfg2.Min)
	}
}

func TestNoRetargetBeforeWindowBoundary(t *testing.T) {
	c := New(testConfig())
	c.RecordBlock(1, 100)
	c.RecordBlock(2, 100)
	if got := c.Current(); got != 1000 {
		t.Fatalf("difficulty = %d, want unchanged 1000 before window boundary", got)
	}
}
