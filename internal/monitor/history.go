package monitor

import "github.com/bimawa/netmonrs/pkg/types"

// DefaultHistoryCapacity bounds the closed-connection log.
const DefaultHistoryCapacity = 1000

// History is an append-only, bounded log of closed connections, oldest
// first. When full, appending evicts the oldest entry. Entries are never
// merged: a reopened connection closes into a fresh entry.
type History struct {
	entries  []types.ConnRecord
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

func (h *History) Append(rec types.ConnRecord) {
	h.entries = append(h.entries, rec)
	if len(h.entries) > h.capacity {
		h.entries = h.entries[len(h.entries)-h.capacity:]
	}
}

func (h *History) Len() int {
	return len(h.entries)
}

func (h *History) At(i int) types.ConnRecord {
	return h.entries[i]
}

// Slice returns a copy of the log, oldest first.
func (h *History) Slice() []types.ConnRecord {
	out := make([]types.ConnRecord, len(h.entries))
	copy(out, h.entries)
	return out
}
