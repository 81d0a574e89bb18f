package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	var order []string
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	c.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })

	c.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order after 250ms = %v, want [a b]", order)
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", c.Pending())
	}

	c.Advance(time.Second)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", order)
	}
	if got := c.Now(); !got.Equal(time.Unix(0, 0).Add(1250 * time.Millisecond)) {
		t.Errorf("Now() = %v", got)
	}
}

func TestFake_ChainedTimersFireWithinOneAdvance(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	fired := 0
	var schedule func()
	schedule = func() {
		c.AfterFunc(100*time.Millisecond, func() {
			fired++
			schedule()
		})
	}
	schedule()

	c.Advance(time.Second)
	if fired != 10 {
		t.Errorf("fired = %d, want 10", fired)
	}
}

func TestFake_StopPreventsCallback(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("first Stop() should return true")
	}
	if timer.Stop() {
		t.Error("second Stop() should return false")
	}

	c.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestFake_CallbackSeesItsDeadline(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewFake(start)

	var seen time.Time
	c.AfterFunc(40*time.Millisecond, func() { seen = c.Now() })
	c.Advance(time.Second)

	if want := start.Add(40 * time.Millisecond); !seen.Equal(want) {
		t.Errorf("Now() inside callback = %v, want %v", seen, want)
	}
}
