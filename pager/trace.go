package pager

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// Header field prefixes
const (
	headerPageSize   = "TP="
	headerRows       = "NF="
	headerCols       = "NC="
	headerReferences = "NR="
	headerPages      = "NP="

	fieldSeparator = ","
	fieldCount     = 4
)

// Lines longer than maxLineSize are skipped as malformed. Only the first
// maxWarningText bytes are kept for the warning.
const (
	maxLineSize    = 1 << 20
	maxWarningText = 64
)

// MemoryReference is one entry of the trace
type MemoryReference struct {
	Label  string
	Page   int
	Offset int // Kept for fidelity, ignored by replacement
	Write  bool
	Line   int // Source line number
}

// Trace is a parsed reference trace
type Trace struct {
	PageSize   int
	NumPages   int
	Rows       int // Informational NF
	Cols       int // Informational NC
	DeclaredNR int64
	HasNR      bool
	References []MemoryReference
	Warnings   []*SimError
}

// DistinctPages returns the number of different pages referenced
func (t *Trace) DistinctPages() int {
	seen := make(map[int]struct{})
	for _, r := range t.References {
		seen[r.Page] = struct{}{}
	}
	return len(seen)
}

// traceParser accumulates state while a trace is read
type traceParser struct {
	trace  *Trace
	logger *slog.Logger
	seen   map[string]bool
	hasNP  bool
}

// LoadTrace parses a trace from r. Malformed lines become warnings on the
// returned trace; only a read failure is returned as an error.
func LoadTrace(r io.Reader, logger *slog.Logger) (*Trace, error) {
	if logger == nil {
		logger = discardLogger()
	}

	p := &traceParser{
		trace:  &Trace{},
		logger: logger,
		seen:   make(map[string]bool),
	}

	br := bufio.NewReaderSize(r, 64*1024)

	lineNo := 0
	for {
		raw, tooLong, err := readLine(br)
		if len(raw) > 0 || err == nil {
			lineNo++
			if tooLong {
				p.warn(ErrMalformedLine(lineNo, "line too long", string(raw[:min(len(raw), maxWarningText)])))
			} else {
				p.parseLine(lineNo, strings.TrimSpace(string(raw)))
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ErrTraceUnreadable("LoadTrace", "stream", err)
		}
	}

	p.finish()
	return p.trace, nil
}

// readLine returns the next line without its terminator. A line over
// maxLineSize is drained to its end and returned truncated with tooLong set.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	total := 0
	var last byte
	for {
		chunk, readErr := br.ReadSlice('\n')
		if readErr == nil {
			chunk = chunk[:len(chunk)-1]
		}
		if len(chunk) > 0 {
			last = chunk[len(chunk)-1]
		}
		total += len(chunk)
		if room := maxLineSize + 1 - len(line); room > 0 {
			line = append(line, chunk[:min(room, len(chunk))]...)
		}

		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}

		if total > 0 && last == '\r' {
			total--
		}
		if total > maxLineSize {
			return line[:maxLineSize], true, readErr
		}
		return line[:total], false, readErr
	}
}

func (p *traceParser) parseLine(lineNo int, line string) {
	if line == "" {
		return
	}

	for _, prefix := range []string{headerPageSize, headerRows, headerCols, headerReferences, headerPages} {
		if strings.HasPrefix(line, prefix) {
			p.parseHeader(lineNo, prefix, strings.TrimSpace(line[len(prefix):]), line)
			return
		}
	}

	if strings.Contains(line, fieldSeparator) {
		p.parseReference(lineNo, line)
		return
	}

	p.logger.Debug("ignoring unrecognized trace line", "line", lineNo, "text", line)
}

func (p *traceParser) parseHeader(lineNo int, prefix, value, line string) {
	if p.seen[prefix] {
		p.warn(ErrMalformedLine(lineNo, "duplicate header field", line))
		return
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		p.warn(ErrMalformedLine(lineNo, "invalid header value", line))
		return
	}
	p.seen[prefix] = true

	switch prefix {
	case headerPageSize:
		p.trace.PageSize = int(n)
	case headerRows:
		p.trace.Rows = int(n)
	case headerCols:
		p.trace.Cols = int(n)
	case headerReferences:
		p.trace.DeclaredNR = n
		p.trace.HasNR = true
	case headerPages:
		p.trace.NumPages = int(n)
		p.hasNP = true
	}
}

// parseReference validates label,page,offset,mode
func (p *traceParser) parseReference(lineNo int, line string) {
	if strings.Count(line, fieldSeparator) != fieldCount-1 {
		p.warn(ErrMalformedLine(lineNo, "wrong number of fields", line))
		return
	}

	parts := strings.Split(line, fieldSeparator)
	if len(parts) != fieldCount {
		p.warn(ErrMalformedLine(lineNo, "wrong number of fields", line))
		return
	}

	label := strings.TrimSpace(parts[0])
	if label == "" {
		p.warn(ErrMalformedLine(lineNo, "empty label", line))
		return
	}

	page, err := parseNonNegative(parts[1])
	if err != nil {
		p.warn(ErrMalformedLine(lineNo, "invalid page number", line))
		return
	}

	offset, err := parseNonNegative(parts[2])
	if err != nil {
		p.warn(ErrMalformedLine(lineNo, "invalid offset", line))
		return
	}

	var write bool
	switch strings.TrimSpace(parts[3]) {
	case "R":
	case "W":
		write = true
	default:
		p.warn(ErrMalformedLine(lineNo, "mode must be R or W", line))
		return
	}

	p.trace.References = append(p.trace.References, MemoryReference{
		Label:  label,
		Page:   page,
		Offset: offset,
		Write:  write,
		Line:   lineNo,
	})
}

// finish sizes the page table and runs the post-load checks. NP and NR may
// appear after the references, so this happens only once the input is read.
func (p *traceParser) finish() {
	t := p.trace

	if !p.hasNP && len(t.References) > 0 {
		maxPage := 0
		for _, r := range t.References {
			maxPage = max(maxPage, r.Page)
		}
		t.NumPages = maxPage + 1
		p.warn(ErrPageCountInferred(t.NumPages))
	}

	kept := t.References[:0]
	for _, r := range t.References {
		if r.Page >= t.NumPages {
			p.warn(ErrPageOutOfRange(r.Line, r.Page, t.NumPages))
			continue
		}
		kept = append(kept, r)
	}
	t.References = kept

	if t.HasNR && t.DeclaredNR != int64(len(t.References)) {
		p.warn(ErrReferenceCountMismatch(t.DeclaredNR, len(t.References)))
	}
}

func (p *traceParser) warn(w *SimError) {
	p.trace.Warnings = append(p.trace.Warnings, w)
	p.logger.Warn("trace warning",
		slog.String("code", w.Code.String()),
		slog.Int("line", w.Line),
		slog.String("detail", w.Message),
	)
}

func parseNonNegative(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
