package wamp

import "testing"

func TestIDGeneratorSequential(t *testing.T) {
	g := NewIDGenerator()
	for i := uint64(1); i <= 10; i++ {
		if got := g.Next(); got != i {
			t.Fatalf("Next() = %d, want %d", got, i)
		}
	}
}

func TestIDGeneratorNeverZero(t *testing.T) {
	g := NewIDGenerator()
	for i := 0; i < 1000; i++ {
		if id := g.Next(); id == 0 || id > MaxID {
			t.Fatalf("id out of range: %d", id)
		}
	}
}

func TestIDGeneratorWraps(t *testing.T) {
	g := &IDGenerator{id: MaxID}
	if got := g.Next(); got != 1 {
		t.Fatalf("expected wrap to 1, got %d", got)
	}
}
