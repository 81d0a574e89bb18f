package progress

import "testing"

func TestAdvance_Clamps(t *testing.T) {
	tests := []struct {
		current, inc, want int
	}{
		{0, 10, 10},
		{95, 10, 100},
		{100, 5, 100},
		{3, -10, 0},
	}

	for _, tc := range tests {
		if got := Advance(tc.current, tc.inc); got != tc.want {
			t.Errorf("Advance(%d, %d) = %d, want %d", tc.current, tc.inc, got, tc.want)
		}
	}
}

func TestMaxTicks(t *testing.T) {
	tests := map[int]int{1: 100, 5: 20, 7: 15, 15: 7, 100: 1, 0: 0}
	for minInc, want := range tests {
		if got := MaxTicks(minInc); got != want {
			t.Errorf("MaxTicks(%d) = %d, want %d", minInc, got, want)
		}
	}
}

func TestNewRandom_RejectsBadBounds(t *testing.T) {
	cases := [][2]int{{0, 10}, {10, 5}, {5, 101}}
	for _, c := range cases {
		if _, err := NewRandom(c[0], c[1], 1); err == nil {
			t.Errorf("NewRandom(%d, %d) expected error", c[0], c[1])
		}
	}
}

func TestRandom_IncrementsStayInBounds(t *testing.T) {
	r, err := NewRandom(5, 15, 42)
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}

	current := 0
	ticks := 0
	for current < Max {
		next := r.Next(current)
		inc := next - current
		if next < Max && (inc < 5 || inc > 15) {
			t.Fatalf("increment %d out of [5, 15]", inc)
		}
		if next < current {
			t.Fatalf("progress decreased: %d -> %d", current, next)
		}
		current = next
		ticks++
	}

	if ticks > MaxTicks(5) {
		t.Errorf("took %d ticks, bound is %d", ticks, MaxTicks(5))
	}
}

func TestRandom_SameSeedSameSequence(t *testing.T) {
	a, _ := NewRandom(1, 30, 7)
	b, _ := NewRandom(1, 30, 7)

	for i := 0; i < 50; i++ {
		if x, y := a.Next(0), b.Next(0); x != y {
			t.Fatalf("tick %d: %d != %d", i, x, y)
		}
	}
}

func TestSequence_Cycles(t *testing.T) {
	s := NewSequence(10, 40)

	got := []int{s.Next(0), s.Next(10), s.Next(20), s.Next(60), s.Next(95)}
	want := []int{10, 50, 30, 100, 100}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tick %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSequence_EmptyCompletesImmediately(t *testing.T) {
	if got := NewSequence().Next(0); got != Max {
		t.Errorf("Next = %d, want %d", got, Max)
	}
}
