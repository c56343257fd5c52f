package ui

// Panel identifies which list owns the keyboard focus.
type Panel int

const (
	PanelActive Panel = iota
	PanelHistory
)

func (p Panel) String() string {
	if p == PanelHistory {
		return "history"
	}
	return "active"
}

// DefaultPageSize is how many rows PageUp/PageDown jump.
const DefaultPageSize = 10

// Navigator holds the focus, selection and scroll state for both panels.
// The selection of the focused list is always inside [0, len-1], or -1
// when that list is empty, no matter how the lists mutate between ticks.
// It is not safe for concurrent use; the dashboard serializes access.
type Navigator struct {
	focus      Panel
	selected   int
	scroll     int
	activeLen  int
	historyLen int
	viewHeight int
	pageSize   int
}

func NewNavigator() *Navigator {
	return &Navigator{
		viewHeight: 1,
		pageSize:   DefaultPageSize,
	}
}

func (n *Navigator) Focus() Panel  { return n.focus }
func (n *Navigator) Selected() int { return n.selected }
func (n *Navigator) Scroll() int   { return n.scroll }

func (n *Navigator) SetPageSize(size int) {
	if size > 0 {
		n.pageSize = size
	}
}

// SetViewHeight records how many rows the render layer can show and
// re-clamps the scroll window around the selection.
func (n *Navigator) SetViewHeight(rows int) {
	if rows < 1 {
		rows = 1
	}
	n.viewHeight = rows
	n.clamp()
}

// SwitchFocus toggles between the two panels and recomputes selection
// and scroll against the newly focused list.
func (n *Navigator) SwitchFocus() {
	if n.focus == PanelActive {
		n.focus = PanelHistory
	} else {
		n.focus = PanelActive
	}
	n.selected = 0
	n.scroll = 0
	n.clamp()
}

func (n *Navigator) MoveUp() {
	n.moveBy(-1)
}

func (n *Navigator) MoveDown() {
	n.moveBy(1)
}

func (n *Navigator) PageUp() {
	n.moveBy(-n.pageSize)
}

func (n *Navigator) PageDown() {
	n.moveBy(n.pageSize)
}

func (n *Navigator) moveBy(delta int) {
	if n.focusedLen() == 0 {
		return
	}
	if n.selected < 0 {
		n.selected = 0
	} else {
		n.selected += delta
	}
	n.clamp()
}

// Resize re-clamps after a tick changed either list's length. It must be
// called on every tick; a shrinking list may otherwise strand the
// selection past the end.
func (n *Navigator) Resize(activeLen, historyLen int) {
	n.activeLen = activeLen
	n.historyLen = historyLen
	n.clamp()
}

func (n *Navigator) focusedLen() int {
	if n.focus == PanelHistory {
		return n.historyLen
	}
	return n.activeLen
}

// clamp forces selected into [0, len-1] (-1 when empty) and shifts
// scroll by the minimum needed to keep the selection visible.
func (n *Navigator) clamp() {
	length := n.focusedLen()
	if length == 0 {
		n.selected = -1
		n.scroll = 0
		return
	}

	if n.selected < 0 {
		n.selected = 0
	}
	if n.selected > length-1 {
		n.selected = length - 1
	}

	if maxScroll := length - n.viewHeight; n.scroll > maxScroll {
		n.scroll = maxScroll
	}
	if n.scroll < 0 {
		n.scroll = 0
	}
	if n.selected < n.scroll {
		n.scroll = n.selected
	}
	if n.selected > n.scroll+n.viewHeight-1 {
		n.scroll = n.selected - n.viewHeight + 1
	}
}
