package pager

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Ager ages reference bits in the background while the engine runs
type Ager interface {
	Start() error
	Stop() error
}

// agerFactory builds the ager for a run
type agerFactory func(mem *memory, metrics *Metrics, interval time.Duration) Ager

// ClockSweeper clears every reference bit once per interval, modelling a
// periodic clock interrupt. It is not the hand-based CLOCK variant: each
// tick clears the whole table and never touches modified bits or frames.
type ClockSweeper struct {
	mem      *memory
	metrics  *Metrics
	interval time.Duration

	running atomic.Bool
	stop    atomic.Bool // checked once per wake
	doneCh  chan struct{}
}

// newClockSweeper creates a sweeper over mem
func newClockSweeper(mem *memory, metrics *Metrics, interval time.Duration) *ClockSweeper {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &ClockSweeper{
		mem:      mem,
		metrics:  metrics,
		interval: interval,
		doneCh:   make(chan struct{}),
	}
}

func newClockSweeperAger(mem *memory, metrics *Metrics, interval time.Duration) Ager {
	return newClockSweeper(mem, metrics, interval)
}

// Start starts the sweeper goroutine
func (cs *ClockSweeper) Start() error {
	if !cs.running.CompareAndSwap(false, true) {
		return fmt.Errorf("clock sweeper already running")
	}

	go cs.sweepLoop()
	return nil
}

// Stop raises the stop flag and waits for the goroutine to notice it on
// its next wake, so it returns within about one interval
func (cs *ClockSweeper) Stop() error {
	if !cs.running.Load() {
		return nil
	}

	cs.stop.Store(true)
	<-cs.doneCh
	cs.running.Store(false)

	return nil
}

// IsRunning reports whether the sweeper goroutine is active
func (cs *ClockSweeper) IsRunning() bool {
	return cs.running.Load()
}

func (cs *ClockSweeper) sweepLoop() {
	defer close(cs.doneCh)

	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	for range ticker.C {
		if cs.stop.Load() {
			return
		}
		cs.Sweep()
	}
}

// Sweep clears all reference bits as one critical section
func (cs *ClockSweeper) Sweep() {
	cs.mem.mu.Lock()
	start := time.Now()
	cs.mem.pages.ClearReferenceBits()
	held := time.Since(start)
	cs.mem.mu.Unlock()

	cs.metrics.RecordSweep(held)
}

// noopAger never ages anything; runs become fully deterministic
type noopAger struct{}

func (noopAger) Start() error { return nil }
func (noopAger) Stop() error  { return nil }

func newNoopAger(*memory, *Metrics, time.Duration) Ager {
	return noopAger{}
}
