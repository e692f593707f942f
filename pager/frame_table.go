package pager

// EmptyFrame marks a slot that holds no page
const EmptyFrame = -1

// FrameTable maps frame slots to resident pages.
// A page occupies at most one slot; the slot count is fixed at creation.
// Like PageTable it relies on the session lock.
type FrameTable struct {
	slots    []int // slot -> page, or EmptyFrame
	resident []int // page -> slot, or EmptyFrame
	used     int
}

// NewFrameTable creates a frame table with numFrames empty slots
// for a page table of numPages pages
func NewFrameTable(numFrames, numPages int) *FrameTable {
	numFrames = max(numFrames, 0)
	numPages = max(numPages, 0)
	ft := &FrameTable{
		slots:    make([]int, numFrames),
		resident: make([]int, numPages),
	}
	for i := range ft.slots {
		ft.slots[i] = EmptyFrame
	}
	for i := range ft.resident {
		ft.resident[i] = EmptyFrame
	}
	return ft
}

// Size returns the number of slots
func (ft *FrameTable) Size() int {
	return len(ft.slots)
}

// Used returns the number of occupied slots
func (ft *FrameTable) Used() int {
	return ft.used
}

// PageAt returns the page held by slot, or EmptyFrame
func (ft *FrameTable) PageAt(slot int) int {
	return ft.slots[slot]
}

// SlotOf returns the slot holding page, or EmptyFrame if it is not resident
func (ft *FrameTable) SlotOf(page int) int {
	return ft.resident[page]
}

// IsResident reports whether page occupies a slot
func (ft *FrameTable) IsResident(page int) bool {
	return ft.resident[page] != EmptyFrame
}

// FirstFree returns the lowest-indexed empty slot
func (ft *FrameTable) FirstFree() (int, bool) {
	if ft.used == len(ft.slots) {
		return 0, false
	}
	for i, page := range ft.slots {
		if page == EmptyFrame {
			return i, true
		}
	}
	return 0, false
}

// Place puts page into slot, displacing whatever was there.
// It returns the displaced page, or EmptyFrame.
func (ft *FrameTable) Place(slot, page int) int {
	old := ft.slots[slot]
	if old == page {
		return EmptyFrame
	}

	if old != EmptyFrame {
		ft.resident[old] = EmptyFrame
	} else {
		ft.used++
	}

	// Keep the at-most-one-slot invariant if page was resident elsewhere
	if prev := ft.resident[page]; prev != EmptyFrame {
		ft.slots[prev] = EmptyFrame
		ft.used--
	}

	ft.slots[slot] = page
	ft.resident[page] = slot
	return old
}

// Slots returns a copy of the slot assignments
func (ft *FrameTable) Slots() []int {
	out := make([]int, len(ft.slots))
	copy(out, ft.slots)
	return out
}
