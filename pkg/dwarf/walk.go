package dwarf

import (
	"errors"
	"iter"
)

// SkipChildren is returned by a WalkFunc to leave the current entry's
// descendants unvisited.
var SkipChildren = errors.New("skip children")

// SkipAll is returned by a WalkFunc to stop the walk without an error.
var SkipAll = errors.New("skip all")

// WalkFunc is called for every entry in pre-order. depth is relative to the
// entry the walk started from.
type WalkFunc func(e *Entry, depth int) error

// Walk visits root and all its descendants in pre-order.
func Walk(root *Entry, fn WalkFunc) error {
	_, err := walk(root, 0, fn)
	if errors.Is(err, SkipAll) {
		return nil
	}
	return err
}

// walk returns the offset following e's subtree.
func walk(e *Entry, depth int, fn WalkFunc) (uint64, error) {
	if err := e.unit.s.check(); err != nil {
		return 0, err
	}
	err := fn(e, depth)
	switch {
	case errors.Is(err, SkipChildren):
		return e.subtreeEnd()
	case err != nil:
		return 0, err
	}
	if !e.Children {
		return e.end, nil
	}

	pos := e.end
	for {
		child, next, err := e.unit.readEntryOrNull(pos, e.childDepth())
		if err != nil {
			return 0, err
		}
		if child == nil {
			return next, nil
		}
		if pos, err = walk(child, depth+1, fn); err != nil {
			return 0, err
		}
	}
}

// ChildEntries iterates the direct children of e. Iteration ends after the
// first error.
func (e *Entry) ChildEntries() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		child, err := e.FirstChild()
		for child != nil && err == nil {
			if !yield(child, nil) {
				return
			}
			child, err = child.NextSibling()
		}
		if err != nil {
			yield(nil, err)
		}
	}
}
