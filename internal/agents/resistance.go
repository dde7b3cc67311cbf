package agents

import (
	"fmt"
	"strings"
)

// ResistanceVector records, per tier, whether a strain resists that tier's
// antibiotic. Index 0 holds tier 1. Entries only ever flip from false to true.
type ResistanceVector []bool

// NewResistanceVector returns a fully susceptible vector covering n tiers.
func NewResistanceVector(n int) ResistanceVector {
	return make(ResistanceVector, n)
}

// Tiers returns the number of tiers the vector covers (N).
func (v ResistanceVector) Tiers() int {
	return len(v)
}

// Resistant reports whether the strain resists tier t. Tiers outside
// [1, N] are never resistant.
func (v ResistanceVector) Resistant(t Tier) bool {
	if t < 1 || int(t) > len(v) {
		return false
	}
	return v[t-1]
}

// Highest returns the highest resistant tier, or TierNone.
func (v ResistanceVector) Highest() Tier {
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] {
			return Tier(i + 1)
		}
	}
	return TierNone
}

// Clone returns an independent copy.
func (v ResistanceVector) Clone() ResistanceVector {
	if v == nil {
		return nil
	}
	out := make(ResistanceVector, len(v))
	copy(out, v)
	return out
}

// Equal reports whether both vectors cover the same tiers with the same entries.
func (v ResistanceVector) Equal(o ResistanceVector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if v[i] != o[i] {
			return false
		}
	}
	return true
}

// mark sets tier t resistant and reports whether that changed anything.
func (v ResistanceVector) mark(t Tier) bool {
	if t < 1 || int(t) > len(v) || v[t-1] {
		return false
	}
	v[t-1] = true
	return true
}

// Bits encodes the vector as a string of '0' and '1', tier 1 first.
func (v ResistanceVector) Bits() string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParseBits decodes a string produced by Bits.
func ParseBits(s string) (ResistanceVector, error) {
	v := make(ResistanceVector, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			v[i] = true
		default:
			return nil, fmt.Errorf("parse resistance bits %q: unexpected %q", s, c)
		}
	}
	return v, nil
}

func (v ResistanceVector) String() string {
	var tiers []string
	for i, r := range v {
		if r {
			tiers = append(tiers, fmt.Sprintf("%d", i+1))
		}
	}
	if len(tiers) == 0 {
		return "susceptible"
	}
	return "resistant to " + strings.Join(tiers, ",")
}
