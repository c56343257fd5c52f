package monitor

import (
	"sort"

	"github.com/bimawa/netmonrs/pkg/types"
)

// Tracker owns the active set and the history log. Each successful tick
// replaces the active set wholesale; nothing is patched across ticks.
type Tracker struct {
	tick    uint64
	active  map[types.ConnKey]types.ConnRecord
	history *History
}

func NewTracker(historyCapacity int) *Tracker {
	return &Tracker{
		active:  make(map[types.ConnKey]types.ConnRecord),
		history: NewHistory(historyCapacity),
	}
}

// Advance reconciles one parsed snapshot against the active set. ok
// reports whether the listing succeeded; on failure the tick is skipped
// and the previous active set survives untouched, so a transient lsof
// error does not flash every connection as closed.
//
// Returns the records closed this tick, in key order.
func (t *Tracker) Advance(records []types.ConnRecord, ok bool) []types.ConnRecord {
	if !ok {
		return nil
	}
	t.tick++

	next := make(map[types.ConnKey]types.ConnRecord, len(records))
	for _, rec := range records {
		rec.LastSeen = t.tick
		if prev, seen := t.active[rec.Key]; seen {
			rec.FirstSeen = prev.FirstSeen
		} else {
			rec.FirstSeen = t.tick
		}
		next[rec.Key] = rec
	}

	var closed []types.ConnRecord
	for key, rec := range t.active {
		if _, still := next[key]; !still {
			closed = append(closed, rec)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].Key.String() < closed[j].Key.String()
	})
	for _, rec := range closed {
		t.history.Append(rec)
	}

	t.active = next
	return closed
}

// Tick returns the current sample counter.
func (t *Tracker) Tick() uint64 {
	return t.tick
}

// Active returns the active set sorted by key text, for display.
func (t *Tracker) Active() []types.ConnRecord {
	out := make([]types.ConnRecord, 0, len(t.active))
	for _, rec := range t.active {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

func (t *Tracker) ActiveLen() int {
	return len(t.active)
}

func (t *Tracker) History() *History {
	return t.history
}
