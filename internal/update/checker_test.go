package update

import (
	"testing"
	"time"
)

func TestPeriodicCheckerRuns(t *testing.T) {
	ticks := make(chan struct{}, 1)
	p := NewPeriodicChecker(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	p.Start()
	defer p.Stop()

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("check function never ran")
	}
}

func TestPeriodicCheckerStartIdempotent(t *testing.T) {
	p := NewPeriodicChecker(time.Hour, func() {})

	p.Start()
	p.Start()
	if !p.Running() {
		t.Error("Running() = false after Start")
	}

	p.Stop()
	if p.Running() {
		t.Error("Running() = true after Stop")
	}
	p.Stop() // second stop is a no-op
}

func TestPeriodicCheckerStopHaltsTicks(t *testing.T) {
	ticks := make(chan struct{}, 100)
	p := NewPeriodicChecker(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	p.Start()
	<-ticks
	p.Stop()

	// Drain anything already in flight, then verify no further ticks.
	time.Sleep(20 * time.Millisecond)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(50 * time.Millisecond)
	if len(ticks) != 0 {
		t.Error("checker ticked after Stop")
	}
}

func TestPeriodicCheckerSetInterval(t *testing.T) {
	p := NewPeriodicChecker(time.Hour, func() {})
	p.Start()
	defer p.Stop()

	p.SetInterval(time.Minute)

	if got := p.Interval(); got != time.Minute {
		t.Errorf("Interval() = %v, want %v", got, time.Minute)
	}
	if !p.Running() {
		t.Error("Running() = false after SetInterval on a running checker")
	}
}

func TestPeriodicCheckerZeroInterval(t *testing.T) {
	p := NewPeriodicChecker(0, func() {})
	p.Start()
	if p.Running() {
		t.Error("Running() = true for zero interval")
	}
}
