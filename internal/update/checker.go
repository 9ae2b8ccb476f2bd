package update

import (
	"sync"
	"time"
)

// PeriodicChecker invokes a check function at a fixed interval on a
// background goroutine. Start and Stop are idempotent; changing the interval
// restarts a running checker.
type PeriodicChecker struct {
	mu       sync.Mutex
	interval time.Duration
	check    func()
	stop     chan struct{}
}

// NewPeriodicChecker creates a stopped checker that will run check every
// interval once started.
func NewPeriodicChecker(interval time.Duration, check func()) *PeriodicChecker {
	return &PeriodicChecker{
		interval: interval,
		check:    check,
	}
}

// Start begins periodic checking. Calling Start on a running checker is a
// no-op.
func (p *PeriodicChecker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

func (p *PeriodicChecker) startLocked() {
	if p.stop != nil || p.interval <= 0 {
		return
	}
	stop := make(chan struct{})
	p.stop = stop
	interval := p.interval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.check()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts periodic checking and clears the timer handle. Calling Stop on
// a stopped checker is a no-op.
func (p *PeriodicChecker) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *PeriodicChecker) stopLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	p.stop = nil
}

// Running reports whether the checker is currently active.
func (p *PeriodicChecker) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// SetInterval updates the check interval. If the checker is running it is
// restarted with the new interval.
func (p *PeriodicChecker) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
	if p.stop != nil {
		p.stopLocked()
		p.startLocked()
	}
}

// Interval returns the configured check interval.
func (p *PeriodicChecker) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}
