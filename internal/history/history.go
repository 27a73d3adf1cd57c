// Package history keeps the ordered log of calculations with snapshot based
// undo and redo.
package history

import (
	"errors"
	"fmt"

	"calc-history/internal/calculation"
)

var (
	// ErrOutOfRange is matched by both ErrNothingToUndo and ErrNothingToRedo.
	ErrOutOfRange = errors.New("out of range")

	ErrNothingToUndo = fmt.Errorf("no operations to undo: %w", ErrOutOfRange)
	ErrNothingToRedo = fmt.Errorf("no operations to redo: %w", ErrOutOfRange)
)

// memento is a frozen copy of the live sequence. Calculations are immutable
// values, so copying the slice is a full copy.
type memento struct {
	state []calculation.Calculation
}

func newMemento(state []calculation.Calculation) memento {
	return memento{state: clone(state)}
}

// History is not safe for concurrent use.
type History struct {
	maxSize int
	items   []calculation.Calculation
	undo    []memento
	redo    []memento
}

// New returns an empty History keeping at most maxSize calculations.
// A maxSize of 0 keeps everything.
func New(maxSize int) *History {
	return &History{maxSize: maxSize}
}

// Add appends c, making the previous state undoable and discarding any redo
// states. The oldest calculations are dropped once the size limit is exceeded.
func (h *History) Add(c calculation.Calculation) {
	h.undo = append(h.undo, newMemento(h.items))
	h.items = append(h.items, c)
	h.redo = nil

	if h.maxSize > 0 && len(h.items) > h.maxSize {
		h.items = clone(h.items[len(h.items)-h.maxSize:])
	}
}

// Undo restores the state before the last Add or Redo.
func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return ErrNothingToUndo
	}

	h.redo = append(h.redo, newMemento(h.items))
	h.items = clone(pop(&h.undo).state)

	return nil
}

// Redo reapplies the state removed by the last Undo.
func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return ErrNothingToRedo
	}

	h.undo = append(h.undo, newMemento(h.items))
	h.items = clone(pop(&h.redo).state)

	return nil
}

// Clear empties the history and both stacks. It cannot be undone.
func (h *History) Clear() {
	h.items = nil
	h.undo = nil
	h.redo = nil
}

// Replace swaps in calcs as the live sequence, as after loading from disk.
// Undo and redo states are discarded. The size limit applies.
func (h *History) Replace(calcs []calculation.Calculation) {
	h.Clear()
	h.items = clone(calcs)
	if h.maxSize > 0 && len(h.items) > h.maxSize {
		h.items = h.items[len(h.items)-h.maxSize:]
	}
}

// Calculations returns a copy of the live sequence.
func (h *History) Calculations() []calculation.Calculation {
	return clone(h.items)
}

// Len is the number of calculations in the live sequence.
func (h *History) Len() int { return len(h.items) }

func (h *History) CanUndo() bool { return len(h.undo) > 0 }

func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// MaxSize is the retention limit; 0 means unbounded.
func (h *History) MaxSize() int { return h.maxSize }

func clone(s []calculation.Calculation) []calculation.Calculation {
	if len(s) == 0 {
		return nil
	}
	out := make([]calculation.Calculation, len(s))
	copy(out, s)
	return out
}

func pop(stack *[]memento) memento {
	s := *stack
	m := s[len(s)-1]
	*stack = s[:len(s)-1]
	return m
}
