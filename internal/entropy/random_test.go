package entropy

import "testing"

func TestSourceIsDeterministic(t *testing.T) {
	a := New(7)
	b := New(7)
	for i := 0; i < 200; i++ {
		if a.Decide(0.5) != b.Decide(0.5) {
			t.Fatalf("decision %d diverged for identical seeds", i)
		}
	}
	sa := a.Sample(50, 5)
	sb := b.Sample(50, 5)
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("expected identical samples, got %v and %v", sa, sb)
		}
	}
	if a.Seed() != 7 {
		t.Fatalf("expected seed 7, got %d", a.Seed())
	}
}

func TestDecideBounds(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		if s.Decide(0) {
			t.Fatal("probability 0 must never succeed")
		}
		if !s.Decide(1) {
			t.Fatal("probability 1 must always succeed")
		}
	}
}

func TestSampleDistinctAndInRange(t *testing.T) {
	s := New(3)
	for trial := 0; trial < 100; trial++ {
		got := s.Sample(10, 10)
		if len(got) != 10 {
			t.Fatalf("expected 10 indices, got %d", len(got))
		}
		seen := make(map[int]bool)
		for _, v := range got {
			if v < 0 || v >= 10 {
				t.Fatalf("index %d out of range", v)
			}
			if seen[v] {
				t.Fatalf("duplicate index %d in %v", v, got)
			}
			seen[v] = true
		}
	}
	if got := s.Sample(5, 0); len(got) != 0 {
		t.Fatalf("expected empty sample, got %v", got)
	}
}

func TestSamplePanicsWhenOversized(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for k > n")
		}
	}()
	New(1).Sample(2, 3)
}

func TestFixed(t *testing.T) {
	if !Fixed(0).Decide(0.01) {
		t.Fatal("Fixed(0) should succeed any positive probability")
	}
	if Fixed(0).Decide(0) {
		t.Fatal("Fixed(0) should fail probability 0")
	}
	if Fixed(1).Decide(1) {
		t.Fatal("Fixed(1) should fail every trial")
	}
	got := Fixed(0).Sample(4, 2)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected fixed sample %v", got)
	}
}

func TestNewSeed(t *testing.T) {
	seed, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed returned error: %v", err)
	}
	if seed < 0 {
		t.Fatalf("expected non-negative seed, got %d", seed)
	}
}
