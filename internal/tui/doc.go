// Package tui provides a terminal browser for the undo history.
//
// The browser lists undo entries oldest first and redo entries after
// them, marks the current position, and shows the scene object count and
// journal cursor in the title bar. Keys:
//
//	u, Left    undo
//	r, Right   redo
//	[          rewind the journal
//	]          replay the journal
//	q, Esc     quit
//
// It runs against any tcell.Screen, including tcell's simulation screen.
package tui
