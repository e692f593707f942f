package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how many references of a session have been applied
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// progressRsp is the JSON view of a bar taken under its lock
type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
	Percent   float64   `json:"percent"`
}

// NewProgressBar creates a bar started now
func NewProgressBar(id, name string) *ProgressBar {
	return &ProgressBar{
		ID:        id,
		Name:      name,
		StartTime: time.Now(),
	}
}

// Update sets the absolute progress. Finished never moves backwards.
func (b *ProgressBar) Update(finished, total uint64) {
	b.Lock()
	defer b.Unlock()

	b.Total = total
	if finished > b.Finished {
		b.Finished = finished
	}
}

func (b *ProgressBar) snapshot() progressRsp {
	b.Lock()
	defer b.Unlock()

	rsp := progressRsp{
		ID:        b.ID,
		Name:      b.Name,
		StartTime: b.StartTime,
		Total:     b.Total,
		Finished:  b.Finished,
	}
	if b.Total > 0 {
		rsp.Percent = float64(b.Finished) / float64(b.Total) * 100
	}
	return rsp
}
