package pager

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// Phase is a step of the session lifecycle
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseRunning
	PhaseDraining
	PhaseReported
	PhaseTerminal
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseReported:
		return "reported"
	case PhaseTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// phaseTransitions lists the legal next phases. A fatal load ends the
// session without a report.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:     {PhaseLoading, PhaseTerminal},
	PhaseLoading:  {PhaseRunning, PhaseTerminal},
	PhaseRunning:  {PhaseDraining},
	PhaseDraining: {PhaseReported},
	PhaseReported: {PhaseTerminal},
}

// Observer receives lifecycle and progress notifications. Calls come from
// the goroutine running the session and must not block.
type Observer interface {
	PhaseChanged(sessionID string, phase Phase)
	Progress(applied, total uint64)
}

type nopObserver struct{}

func (nopObserver) PhaseChanged(string, Phase) {}
func (nopObserver) Progress(uint64, uint64)    {}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithLogger sets the logger used for warnings, phases and metrics
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithObserver attaches an observer, e.g. a monitoring server
func WithObserver(observer Observer) SessionOption {
	return func(s *Session) {
		s.observer = observer
	}
}

// WithoutSweeper disables reference-bit aging regardless of config
func WithoutSweeper() SessionOption {
	return func(s *Session) {
		s.newAger = newNoopAger
	}
}

// Session owns one simulation: the shared tables, the two actors and the
// final report. It runs once.
type Session struct {
	id       string
	config   *Config
	policy   ReplacementPolicy
	logger   *slog.Logger
	observer Observer
	newAger  agerFactory
	metrics  *Metrics

	phase atomic.Int32
	used  atomic.Bool
	mem   atomic.Pointer[memory]
}

// NewSession validates config and creates an idle session
func NewSession(config *Config, opts ...SessionOption) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	policy, err := NewReplacementPolicy(config.Policy)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       xid.New().String(),
		config:   config.Clone(),
		policy:   policy,
		logger:   discardLogger(),
		observer: nopObserver{},
		newAger:  newClockSweeperAger,
		metrics:  NewMetrics(),
	}
	if !config.SweepEnabled {
		s.newAger = newNoopAger
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Run builds a session with default settings and numFrames frames, then
// simulates the trace read from src
func Run(src TraceSource, numFrames int, opts ...SessionOption) (*Report, error) {
	if numFrames <= 0 {
		return nil, ErrInvalidConfig("Run", "number of frames must be greater than 0")
	}
	if uint64(numFrames) > math.MaxUint32 {
		return nil, ErrInvalidConfig("Run", fmt.Sprintf("number of frames %d exceeds %d", numFrames, uint64(math.MaxUint32)))
	}

	config := DefaultConfig()
	config.NumFrames = uint32(numFrames)

	s, err := NewSession(config, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(src)
}

// ID returns the unique session identifier
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current lifecycle phase
func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

// Metrics returns the live counters of the session
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// Config returns a copy of the session configuration
func (s *Session) Config() *Config {
	return s.config.Clone()
}

// Run loads the trace and simulates it. A trace that cannot be read ends
// the session before either actor starts and no report is produced.
func (s *Session) Run(src TraceSource) (*Report, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionReused("Run")
	}

	s.mustTransition(PhaseLoading)
	trace, err := LoadTraceFrom(src, s.logger.With("session", s.id))
	if err != nil {
		s.logger.Error("trace load failed", "session", s.id, "source", src.Name(), "error", err)
		s.mustTransition(PhaseTerminal)
		return nil, err
	}

	report := s.simulate(trace)
	report.Source = src.Name()
	return report, nil
}

// RunTrace simulates an already parsed trace
func (s *Session) RunTrace(trace *Trace) (*Report, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionReused("RunTrace")
	}

	if trace == nil || trace.NumPages < 0 {
		s.mustTransition(PhaseTerminal)
		return nil, ErrInvalidConfig("RunTrace", "trace must be non-nil with a non-negative page count")
	}

	// Hand-built traces skip the loader's range check
	for _, ref := range trace.References {
		if ref.Page < 0 || ref.Page >= trace.NumPages {
			s.mustTransition(PhaseTerminal)
			return nil, ErrPageOutOfRange(ref.Line, ref.Page, trace.NumPages)
		}
	}

	s.mustTransition(PhaseLoading)
	return s.simulate(trace), nil
}

func (s *Session) simulate(trace *Trace) *Report {
	s.metrics.RecordWarnings(len(trace.Warnings))

	mem := newMemory(trace.NumPages, int(s.config.NumFrames))
	s.mem.Store(mem)

	engine := newAccessEngine(mem, s.policy, s.metrics, s.observer, s.config)
	ager := s.newAger(mem, s.metrics, s.config.SweepInterval())

	s.mustTransition(PhaseRunning)
	start := time.Now()

	if err := ager.Start(); err != nil {
		// The sweeper is fresh per run, so this only flags a programming error
		s.logger.Error("sweeper failed to start", "session", s.id, "error", err)
	}

	engine.Replay(trace.References)

	s.mustTransition(PhaseDraining)
	if err := ager.Stop(); err != nil {
		s.logger.Error("sweeper failed to stop", "session", s.id, "error", err)
	}
	elapsed := time.Since(start)

	report := s.buildReport(trace, elapsed)
	s.mustTransition(PhaseReported)

	if s.config.EnableMetrics {
		s.metrics.LogMetrics(s.logger.With("session", s.id))
	}

	s.mustTransition(PhaseTerminal)
	return report
}

func (s *Session) buildReport(trace *Trace, elapsed time.Duration) *Report {
	report := NewReport(s.metrics.GetHits(), s.metrics.GetMisses(), s.metrics.GetReferences())
	report.SessionID = s.id
	report.Policy = s.policy.Name()
	report.PageSize = trace.PageSize
	report.NumPages = trace.NumPages
	report.NumFrames = int(s.config.NumFrames)
	report.Evictions = s.metrics.GetEvictions()
	report.DirtyEvictions = s.metrics.GetDirtyEvictions()
	report.Sweeps = s.metrics.GetSweeps()
	report.Warnings = len(trace.Warnings)
	report.WarningDetails = trace.Warnings
	report.Elapsed = elapsed
	return report
}

func (s *Session) transition(to Phase) error {
	from := s.Phase()
	for _, next := range phaseTransitions[from] {
		if next == to {
			s.phase.Store(int32(to))
			s.logger.Debug("session phase", "session", s.id, "from", from.String(), "to", to.String())
			s.observer.PhaseChanged(s.id, to)
			return nil
		}
	}
	return ErrInvalidPhase("transition", from, to)
}

// mustTransition is used on paths where the order is fixed by Run itself
func (s *Session) mustTransition(to Phase) {
	if err := s.transition(to); err != nil {
		panic(err)
	}
}

// SessionSnapshot is a consistent view of a running session
type SessionSnapshot struct {
	ID         string `json:"id"`
	Phase      string `json:"phase"`
	Frames     []int  `json:"frames"`
	Referenced int    `json:"referenced_pages"`
	Modified   int    `json:"modified_pages"`
	References uint64 `json:"references"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Sweeps     uint64 `json:"sweeps"`
}

// Snapshot copies the frame assignment and bit counts under the lock
func (s *Session) Snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:    s.id,
		Phase: s.Phase().String(),
	}

	if mem := s.mem.Load(); mem != nil {
		mem.mu.Lock()
		snap.Frames = mem.frames.Slots()
		mem.pages.ForEach(func(_ int, info PageInfo) bool {
			if info.Referenced {
				snap.Referenced++
			}
			if info.Modified {
				snap.Modified++
			}
			return true
		})
		mem.mu.Unlock()
	}

	snap.References = s.metrics.GetReferences()
	snap.Hits = s.metrics.GetHits()
	snap.Misses = s.metrics.GetMisses()
	snap.Sweeps = s.metrics.GetSweeps()
	return snap
}
