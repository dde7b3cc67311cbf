package agents

import "testing"

func TestResistanceVector(t *testing.T) {
	v := NewResistanceVector(3)
	if v.Highest() != TierNone {
		t.Fatalf("expected no resistance, got %d", v.Highest())
	}
	if !v.mark(2) || v.mark(2) {
		t.Fatal("mark should change the vector exactly once")
	}
	if v.mark(0) || v.mark(4) {
		t.Fatal("out-of-range tiers must be ignored")
	}
	if !v.Resistant(2) || v.Resistant(1) || v.Resistant(9) {
		t.Fatalf("unexpected entries %v", v)
	}
	if v.Highest() != 2 {
		t.Fatalf("expected highest 2, got %d", v.Highest())
	}
	if v.String() != "resistant to 2" {
		t.Fatalf("unexpected string %q", v.String())
	}
}

func TestResistanceBitsRoundTrip(t *testing.T) {
	v := ResistanceVector{true, false, true}
	if v.Bits() != "101" {
		t.Fatalf("expected 101, got %s", v.Bits())
	}
	got, err := ParseBits("101")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(v) {
		t.Fatalf("expected %v, got %v", v, got)
	}
	if _, err := ParseBits("10x"); err == nil {
		t.Fatal("expected parse error")
	}
}
