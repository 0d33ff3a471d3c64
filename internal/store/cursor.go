package store

import "context"

// SliceCursor iterates over an in-memory slice.
type SliceCursor[T any] struct {
	items []T
	pos   int
	cur   T
}

// NewSliceCursor returns a cursor over items. The slice is not copied.
func NewSliceCursor[T any](items []T) *SliceCursor[T] {
	return &SliceCursor[T]{items: items}
}

func (c *SliceCursor[T]) Next(ctx context.Context) bool {
	if ctx.Err() != nil || c.pos >= len(c.items) {
		return false
	}
	c.cur = c.items[c.pos]
	c.pos++
	return true
}

func (c *SliceCursor[T]) Value() (T, error) { return c.cur, nil }

func (c *SliceCursor[T]) Err() error { return nil }

func (c *SliceCursor[T]) Close(context.Context) error {
	c.items = nil
	return nil
}
