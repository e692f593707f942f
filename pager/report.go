package pager

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// Cost model for the time estimate
const (
	HitCostNs  = 50         // RAM access
	MissCostNs = 10_000_000 // page fault served from disk
)

// Report summarizes one simulation
type Report struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
	Policy    string `json:"policy"`

	TotalReferences uint64  `json:"total_references"`
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	HitRatio        float64 `json:"hit_ratio"` // percent
	HitRatioDefined bool    `json:"hit_ratio_defined"`

	EstimatedNs uint64 `json:"estimated_ns"`
	AllHitNs    uint64 `json:"all_hit_ns"`
	AllMissNs   uint64 `json:"all_miss_ns"`

	PageSize  int `json:"page_size"`
	NumPages  int `json:"num_pages"`
	NumFrames int `json:"num_frames"`

	Evictions      uint64        `json:"evictions"`
	DirtyEvictions uint64        `json:"dirty_evictions"`
	Sweeps         uint64        `json:"sweeps"`
	Warnings       int           `json:"warnings"`
	Elapsed        time.Duration `json:"elapsed_ns"`

	// Trace warnings in load order
	WarningDetails []*SimError `json:"-"`
}

// NewReport derives the ratio and time estimates from the counters.
// The ratio stays undefined when no reference was simulated.
func NewReport(hits, misses, total uint64) *Report {
	r := &Report{
		TotalReferences: total,
		Hits:            hits,
		Misses:          misses,
		EstimatedNs:     hits*HitCostNs + misses*MissCostNs,
		AllHitNs:        total * HitCostNs,
		AllMissNs:       total * MissCostNs,
	}

	if total > 0 {
		r.HitRatio = float64(hits) / float64(total) * 100
		r.HitRatioDefined = true
	}

	return r
}

// WriteTo renders the report as text
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "=== NRU SIMULATION RESULTS ===")
	fmt.Fprintf(&buf, "Total references: %d\n", r.TotalReferences)
	fmt.Fprintf(&buf, "Hits: %d\n", r.Hits)
	fmt.Fprintf(&buf, "Misses: %d\n", r.Misses)
	if r.HitRatioDefined {
		fmt.Fprintf(&buf, "Hit ratio: %.2f %%\n", r.HitRatio)
	} else {
		fmt.Fprintln(&buf, "Hit ratio: n/a (no references)")
	}
	fmt.Fprintf(&buf, "Estimated total time (ns): %d\n", r.EstimatedNs)
	fmt.Fprintf(&buf, "Time if all hits (ns): %d\n", r.AllHitNs)
	fmt.Fprintf(&buf, "Time if all misses (ns): %d\n", r.AllMissNs)
	fmt.Fprintf(&buf, "Page size: %d bytes\n", r.PageSize)
	fmt.Fprintf(&buf, "Frames assigned: %d\n", r.NumFrames)
	fmt.Fprintf(&buf, "Virtual pages: %d\n", r.NumPages)
	fmt.Fprintf(&buf, "Evictions: %d (%d modified)\n", r.Evictions, r.DirtyEvictions)
	fmt.Fprintf(&buf, "Sweeps: %d\n", r.Sweeps)
	fmt.Fprintf(&buf, "Trace warnings: %d\n", r.Warnings)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
