package lives

import "sync"

// Single is an observable whose values are each delivered at most once.
// A value that has reached one subscriber is not replayed to subscribers
// that arrive later.
type Single[T any] interface {
	Observable[T]

	// exhausted reports whether the pending value has been consumed,
	// which is when a concatenation moves on to its next cell.
	exhausted() bool
}

func (c *cell[T]) consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.has && c.single && c.delivered.Cardinality() > 0
}

// SingleCell is a single-delivery cell whose value is set directly.
type SingleCell[T any] struct {
	*cell[T]
}

// NewSingleCell returns a single-delivery cell with no value.
func NewSingleCell[T any](opts ...Option) *SingleCell[T] {
	return &SingleCell[T]{newCell[T](true, opts)}
}

// SingleCellOf returns a single-delivery cell holding v, not yet consumed.
func SingleCellOf[T any](v T, opts ...Option) *SingleCell[T] {
	c := NewSingleCell[T](opts...)
	c.preset(v)
	return c
}

// SetValue stores v as the new pending value and hands it to every current
// subscriber once.
func (c *SingleCell[T]) SetValue(v T) {
	c.set(v)
}

func (c *SingleCell[T]) exhausted() bool {
	return c.consumed()
}

type singleAdapter[T any] struct {
	*Mediator[T]
}

func (s *singleAdapter[T]) exhausted() bool {
	return s.consumed()
}

// ToSingle returns src unchanged if it is already single-delivery.
// Otherwise it returns a single-delivery cell holding the value src has now,
// or, if src is empty, the first value src emits later.
// Nothing else from src is ever forwarded.
func ToSingle[T any](src Observable[T], opts ...Option) Single[T] {
	if s, ok := src.(Single[T]); ok {
		return s
	}

	m := newMediator[T](true, opts)
	if v, ok := src.Value(); ok {
		m.preset(v)
		return &singleAdapter[T]{m}
	}

	var (
		once sync.Once
		h    Source
	)
	h = Adopt(m, src, func(v T) {
		once.Do(func() {
			m.set(v)
			m.Drop(h)
		})
	})
	return &singleAdapter[T]{m}
}
