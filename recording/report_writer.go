package recording

import (
	"fmt"
	"time"

	"github.com/sibexico/HexPager/pager"
)

// Table names used by ReportWriter
const (
	ReportTable  = "session_report"
	WarningTable = "trace_warning"
)

// ReportRow is one simulation run
type ReportRow struct {
	SessionID       string
	RecordedAt      string
	Source          string
	Policy          string
	TotalReferences uint64
	Hits            uint64
	Misses          uint64
	HitRatio        float64
	HitRatioDefined bool
	EstimatedNs     uint64
	AllHitNs        uint64
	AllMissNs       uint64
	PageSize        int
	NumPages        int
	NumFrames       int
	Evictions       uint64
	DirtyEvictions  uint64
	Sweeps          uint64
	Warnings        int
	ElapsedNs       int64
}

// WarningRow is one trace warning of a run
type WarningRow struct {
	SessionID string
	Line      int
	Code      string
	Message   string
}

// ReportWriter records reports and their warnings
type ReportWriter struct {
	recorder DataRecorder
	now      func() time.Time
}

// NewReportWriter creates the report tables on recorder
func NewReportWriter(recorder DataRecorder) (*ReportWriter, error) {
	if err := recorder.CreateTable(ReportTable, ReportRow{}); err != nil {
		return nil, err
	}
	if err := recorder.CreateTable(WarningTable, WarningRow{}); err != nil {
		return nil, err
	}

	return &ReportWriter{
		recorder: recorder,
		now:      time.Now,
	}, nil
}

// Write buffers the report and its warnings and flushes them
func (w *ReportWriter) Write(report *pager.Report) error {
	if report == nil {
		return fmt.Errorf("nil report")
	}

	row := ReportRow{
		SessionID:       report.SessionID,
		RecordedAt:      w.now().UTC().Format(time.RFC3339Nano),
		Source:          report.Source,
		Policy:          report.Policy,
		TotalReferences: report.TotalReferences,
		Hits:            report.Hits,
		Misses:          report.Misses,
		HitRatio:        report.HitRatio,
		HitRatioDefined: report.HitRatioDefined,
		EstimatedNs:     report.EstimatedNs,
		AllHitNs:        report.AllHitNs,
		AllMissNs:       report.AllMissNs,
		PageSize:        report.PageSize,
		NumPages:        report.NumPages,
		NumFrames:       report.NumFrames,
		Evictions:       report.Evictions,
		DirtyEvictions:  report.DirtyEvictions,
		Sweeps:          report.Sweeps,
		Warnings:        report.Warnings,
		ElapsedNs:       report.Elapsed.Nanoseconds(),
	}
	if err := w.recorder.InsertData(ReportTable, row); err != nil {
		return err
	}

	for _, warning := range report.WarningDetails {
		err := w.recorder.InsertData(WarningTable, WarningRow{
			SessionID: report.SessionID,
			Line:      warning.Line,
			Code:      warning.Code.String(),
			Message:   warning.Message,
		})
		if err != nil {
			return err
		}
	}

	return w.recorder.Flush()
}

// Close flushes and closes the underlying recorder
func (w *ReportWriter) Close() error {
	return w.recorder.Close()
}
