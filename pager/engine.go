package pager

import (
	"runtime"
	"sync"
	"time"
)

// memory is the state shared by the access engine and the sweeper.
// One mutex covers both tables: an access (touch, residency test, possible
// eviction) and a sweep (clear every reference bit) are each a single
// critical section.
type memory struct {
	mu     sync.Mutex
	pages  *PageTable
	frames *FrameTable
}

func newMemory(numPages, numFrames int) *memory {
	return &memory{
		pages:  NewPageTable(numPages),
		frames: NewFrameTable(numFrames, numPages),
	}
}

// AccessEngine replays a trace against the shared memory state in trace
// order. It is the only writer of the reference counters.
type AccessEngine struct {
	mem      *memory
	policy   ReplacementPolicy
	metrics  *Metrics
	observer Observer

	pacingBatch uint64
	pacingPause time.Duration
}

func newAccessEngine(mem *memory, policy ReplacementPolicy, metrics *Metrics, observer Observer, config *Config) *AccessEngine {
	return &AccessEngine{
		mem:         mem,
		policy:      policy,
		metrics:     metrics,
		observer:    observer,
		pacingBatch: uint64(config.PacingBatch),
		pacingPause: config.PacingPause(),
	}
}

// Access applies one reference and reports whether it hit
func (e *AccessEngine) Access(ref MemoryReference) bool {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()

	e.metrics.RecordReference()
	e.mem.pages.Touch(ref.Page, ref.Write)

	if e.mem.frames.IsResident(ref.Page) {
		e.metrics.RecordHit()
		return true
	}

	e.metrics.RecordMiss()
	e.resolveFault(ref.Page)
	return false
}

// resolveFault loads page into the lowest free slot, or over the policy's
// victim. The evicted page keeps its bits. Caller holds the lock.
func (e *AccessEngine) resolveFault(page int) {
	slot, ok := e.mem.frames.FirstFree()
	if !ok {
		slot, ok = e.policy.Victim(e.mem.frames, e.mem.pages)
		if !ok {
			// Only possible with zero frames, which Config.Validate rejects
			return
		}
	}

	if old := e.mem.frames.Place(slot, page); old != EmptyFrame {
		e.metrics.RecordEviction(e.mem.pages.Get(old).Modified)
	}
}

// Replay applies refs in order. After every pacing batch the engine
// pauses outside the lock so the sweeper can run.
func (e *AccessEngine) Replay(refs []MemoryReference) {
	total := uint64(len(refs))
	batchStart := time.Now()

	for i, ref := range refs {
		e.Access(ref)

		applied := uint64(i + 1)
		if e.pacingBatch > 0 && applied%e.pacingBatch == 0 {
			e.metrics.RecordBatch(time.Since(batchStart))
			e.observer.Progress(applied, total)
			e.pause()
			batchStart = time.Now()
		}
	}

	e.observer.Progress(total, total)
}

func (e *AccessEngine) pause() {
	if e.pacingPause > 0 {
		time.Sleep(e.pacingPause)
		return
	}
	runtime.Gosched()
}
