package pager

import "fmt"

// ReplacementPolicy chooses which frame slot to evict on a fault when
// every slot is occupied
type ReplacementPolicy interface {
	// Victim returns the slot to overwrite and true, or false if no slot
	// is occupied
	Victim(frames *FrameTable, pages *PageTable) (int, bool)

	// Name identifies the policy in reports
	Name() string
}

// NewReplacementPolicy creates a policy by name
func NewReplacementPolicy(name string) (ReplacementPolicy, error) {
	switch name {
	case "nru", "":
		return NRUPolicy{}, nil
	default:
		return nil, ErrInvalidConfig("NewReplacementPolicy", fmt.Sprintf("unknown replacement policy %q", name))
	}
}

// lowestClass is the best class a victim can have; the scan stops there
const lowestClass = 0

// NRUPolicy implements Not-Recently-Used replacement.
//
// Resident pages are ranked by (reference, modified) class:
//
//	R=0 M=0 -> 0 (evicted first)
//	R=0 M=1 -> 1
//	R=1 M=0 -> 2
//	R=1 M=1 -> 3 (evicted last)
//
// Slots are scanned once in ascending order and the first slot holding
// the lowest class wins. The policy is stateless.
type NRUPolicy struct{}

// Name returns "nru"
func (NRUPolicy) Name() string {
	return "nru"
}

// Victim selects the slot to evict using the NRU class order
func (NRUPolicy) Victim(frames *FrameTable, pages *PageTable) (int, bool) {
	victim := EmptyFrame
	best := 4 // above every class

	for slot := 0; slot < frames.Size(); slot++ {
		page := frames.PageAt(slot)
		if page == EmptyFrame {
			continue
		}

		// Strict less-than keeps the first slot on ties
		if class := pages.Get(page).Class(); class < best {
			best = class
			victim = slot
			if best == lowestClass {
				break
			}
		}
	}

	if victim == EmptyFrame {
		return 0, false
	}
	return victim, true
}
