// Package monitoring turns a running simulation into a small HTTP server
// reporting phase, progress and process resources.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sibexico/HexPager/pager"
)

const (
	defaultProfileDuration = time.Second
	maxProfileDuration     = 30 * time.Second
)

// Snapshotter exposes a consistent view of a session, as *pager.Session does
type Snapshotter interface {
	Snapshot() pager.SessionSnapshot
}

// PhaseEvent is one recorded phase change
type PhaseEvent struct {
	SessionID string    `json:"session_id"`
	Phase     string    `json:"phase"`
	Time      time.Time `json:"time"`
}

// Monitor observes sessions and serves their state over HTTP. It
// implements pager.Observer.
type Monitor struct {
	portNumber  int
	openBrowser bool
	logger      *slog.Logger

	lock     sync.Mutex
	session  Snapshotter
	phases   []PhaseEvent
	bars     map[string]*ProgressBar
	current  string
	listener net.Listener
	server   *http.Server
}

var _ pager.Observer = (*Monitor)(nil)

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		bars:   make(map[string]*ProgressBar),
	}
}

// WithPortNumber sets the port number of the monitor. Privileged ports
// fall back to a random one.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the monitor URL in a browser once the server starts
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithLogger sets the logger for server events
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterSession sets the session served on /api/session
func (m *Monitor) RegisterSession(s Snapshotter) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.session = s
}

// PhaseChanged records a lifecycle change. Entering Running starts a
// progress bar for the session.
func (m *Monitor) PhaseChanged(sessionID string, phase pager.Phase) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.phases = append(m.phases, PhaseEvent{
		SessionID: sessionID,
		Phase:     phase.String(),
		Time:      time.Now(),
	})
	m.current = sessionID

	if phase == pager.PhaseRunning {
		m.bars[sessionID] = NewProgressBar(sessionID, "references")
	}
}

// Progress updates the bar of the running session
func (m *Monitor) Progress(applied, total uint64) {
	m.lock.Lock()
	bar := m.bars[m.current]
	m.lock.Unlock()

	if bar != nil {
		bar.Update(applied, total)
	}
}

// Router builds the HTTP routes of the monitor
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/phase", m.listPhases).Methods(http.MethodGet)
	r.HandleFunc("/api/session", m.sessionDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts serving on the configured port, or a random one,
// and returns the base URL
func (m *Monitor) StartServer() (string, error) {
	addr := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	server := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.lock.Lock()
	m.listener = listener
	m.server = server
	m.lock.Unlock()

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", "error", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	return url, nil
}

// Close stops the server if it is running
func (m *Monitor) Close() error {
	m.lock.Lock()
	server := m.server
	m.server = nil
	m.lock.Unlock()

	if server == nil {
		return nil
	}
	return server.Close()
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	bars := make([]*ProgressBar, 0, len(m.bars))
	for _, b := range m.bars {
		bars = append(bars, b)
	}
	m.lock.Unlock()

	rsp := make([]progressRsp, 0, len(bars))
	for _, b := range bars {
		rsp = append(rsp, b.snapshot())
	}

	m.writeJSON(w, rsp)
}

type phaseRsp struct {
	SessionID string       `json:"session_id"`
	Phase     string       `json:"phase"`
	History   []PhaseEvent `json:"history"`
}

func (m *Monitor) listPhases(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := phaseRsp{
		SessionID: m.current,
		Phase:     pager.PhaseIdle.String(),
		History:   append([]PhaseEvent{}, m.phases...),
	}
	if n := len(m.phases); n > 0 {
		rsp.Phase = m.phases[n-1].Phase
	}
	m.lock.Unlock()

	m.writeJSON(w, rsp)
}

func (m *Monitor) sessionDetails(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	session := m.session
	m.lock.Unlock()

	if session == nil {
		http.Error(w, "no session registered", http.StatusNotFound)
		return
	}

	snapshot := session.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	var buf bytes.Buffer
	if err := serializer.Serialize(&buf); err != nil {
		m.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

// collectProfile samples the CPU for ?duration= (default one second)
func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := defaultProfileDuration
	if v := r.URL.Query().Get("duration"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 || d > maxProfileDuration {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}
		duration = d
	}

	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (m *Monitor) fail(w http.ResponseWriter, err error) {
	m.logger.Error("monitor request failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
