package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigatorInitialState(t *testing.T) {
	n := NewNavigator()

	assert.Equal(t, PanelActive, n.Focus())
	assert.Equal(t, 0, n.Scroll())
	// No lists yet, so there is nothing to select.
	n.Resize(0, 0)
	assert.Equal(t, -1, n.Selected())
}

func TestNavigatorMoveClampsAtEnds(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(10)
	n.Resize(3, 0)

	n.MoveUp()
	assert.Equal(t, 0, n.Selected())

	n.MoveDown()
	n.MoveDown()
	n.MoveDown()
	n.MoveDown()
	assert.Equal(t, 2, n.Selected())
}

func TestNavigatorMoveOnEmptyListIsNoop(t *testing.T) {
	n := NewNavigator()
	n.Resize(0, 0)

	n.MoveDown()
	n.MoveUp()
	n.PageDown()

	assert.Equal(t, -1, n.Selected())
	assert.Equal(t, 0, n.Scroll())
}

func TestNavigatorSwitchFocusRecomputes(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(10)
	n.Resize(5, 0)
	n.MoveDown()
	n.MoveDown()

	n.SwitchFocus()
	assert.Equal(t, PanelHistory, n.Focus())
	assert.Equal(t, -1, n.Selected())

	n.SwitchFocus()
	assert.Equal(t, PanelActive, n.Focus())
	assert.Equal(t, 0, n.Selected())
}

func TestNavigatorPageMoves(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(5)
	n.Resize(30, 0)

	n.PageDown()
	assert.Equal(t, 10, n.Selected())
	// Selection must stay inside the five visible rows.
	assert.Equal(t, 6, n.Scroll())

	n.PageDown()
	n.PageDown()
	assert.Equal(t, 29, n.Selected())

	n.PageUp()
	assert.Equal(t, 19, n.Selected())
}

func TestNavigatorScrollFollowsSelection(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(3)
	n.Resize(10, 0)

	for i := 0; i < 4; i++ {
		n.MoveDown()
	}
	assert.Equal(t, 4, n.Selected())
	assert.Equal(t, 2, n.Scroll())

	for i := 0; i < 4; i++ {
		n.MoveUp()
	}
	assert.Equal(t, 0, n.Selected())
	assert.Equal(t, 0, n.Scroll())
}

func TestNavigatorShrinkClampsSelection(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(10)
	n.Resize(3, 0)
	n.MoveDown()
	n.MoveDown()
	assert.Equal(t, 2, n.Selected())

	n.Resize(1, 0)
	assert.Equal(t, 0, n.Selected())
}

func TestNavigatorShrinkToEmptyDropsSelection(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(10)
	n.Resize(50, 0)
	n.PageDown()
	n.PageDown()

	n.Resize(0, 0)
	assert.Equal(t, -1, n.Selected())
	assert.Equal(t, 0, n.Scroll())

	// A later grow selects the top row again.
	n.MoveDown()
	assert.Equal(t, -1, n.Selected())
	n.Resize(2, 0)
	n.MoveDown()
	assert.Equal(t, 1, n.Selected())
}

func TestNavigatorResizeTracksFocusedList(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(10)
	n.Resize(2, 8)
	n.SwitchFocus()

	for i := 0; i < 7; i++ {
		n.MoveDown()
	}
	assert.Equal(t, 7, n.Selected())

	// The unfocused active list shrinking must not touch history
	// selection.
	n.Resize(0, 8)
	assert.Equal(t, 7, n.Selected())

	n.Resize(0, 4)
	assert.Equal(t, 3, n.Selected())
}

func TestNavigatorViewHeightShrinkReclampsScroll(t *testing.T) {
	n := NewNavigator()
	n.SetViewHeight(10)
	n.Resize(20, 0)
	for i := 0; i < 9; i++ {
		n.MoveDown()
	}
	assert.Equal(t, 9, n.Selected())
	assert.Equal(t, 0, n.Scroll())

	n.SetViewHeight(4)
	assert.Equal(t, 9, n.Selected())
	assert.Equal(t, 6, n.Scroll())
}
