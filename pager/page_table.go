package pager

// PageInfo is the per-page bit state consulted by the replacement policy
type PageInfo struct {
	Referenced bool // Touched since the last sweep
	Modified   bool // Written since the run started, never cleared
}

// Class returns the NRU class of the page: 0 (not referenced, clean)
// through 3 (referenced, modified)
func (p PageInfo) Class() int {
	class := 0
	if p.Referenced {
		class += 2
	}
	if p.Modified {
		class++
	}
	return class
}

// PageTable is a fixed-size array of page state indexed by page number.
// It is not safe for concurrent use; callers hold the session lock.
type PageTable struct {
	pages []PageInfo
}

// NewPageTable creates a page table with numPages entries, all bits clear
func NewPageTable(numPages int) *PageTable {
	if numPages < 0 {
		numPages = 0
	}
	return &PageTable{
		pages: make([]PageInfo, numPages),
	}
}

// Size returns the number of pages
func (pt *PageTable) Size() int {
	return len(pt.pages)
}

// Get returns the state of a page
func (pt *PageTable) Get(page int) PageInfo {
	return pt.pages[page]
}

// Touch sets the reference bit, and the modified bit for writes
func (pt *PageTable) Touch(page int, write bool) {
	p := &pt.pages[page]
	p.Referenced = true
	if write {
		p.Modified = true
	}
}

// ClearReferenceBits clears the reference bit of every page.
// Modified bits are left alone.
func (pt *PageTable) ClearReferenceBits() {
	for i := range pt.pages {
		pt.pages[i].Referenced = false
	}
}

// ForEach calls fn for every page in index order until fn returns false
func (pt *PageTable) ForEach(fn func(page int, info PageInfo) bool) {
	for i, info := range pt.pages {
		if !fn(i, info) {
			return
		}
	}
}

// Snapshot returns a copy of the table contents
func (pt *PageTable) Snapshot() []PageInfo {
	out := make([]PageInfo, len(pt.pages))
	copy(out, pt.pages)
	return out
}
