package lives

import "sync"

// concatNode emits the single value of left, then forwards every value of
// right. Once it has switched to right it never reads left again.
type concatNode[T any] struct {
	*Mediator[T]

	left  Single[T]
	right Single[T]

	mu       sync.Mutex
	switched bool
}

func newConcatNode[T any](left, right Single[T], opts []Option) *concatNode[T] {
	n := &concatNode[T]{
		Mediator: newMediator[T](true, opts),
		left:     left,
		right:    right,
	}

	// Someone else already took left's value, so there is nothing to wait for.
	if left.exhausted() {
		n.switched = true
		Adopt[T, T](n.Mediator, right, n.set)
		return n
	}

	var leftSrc Source
	leftSrc = Adopt[T, T](n.Mediator, left, func(v T) {
		if n.hasSwitched() {
			return
		}
		n.set(v)
		if n.left.exhausted() {
			n.switchToRight(leftSrc)
		}
	})
	return n
}

func (n *concatNode[T]) hasSwitched() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.switched
}

func (n *concatNode[T]) switchToRight(leftSrc Source) {
	n.mu.Lock()
	if n.switched {
		n.mu.Unlock()
		return
	}
	n.switched = true
	n.mu.Unlock()

	n.cfg.log.Debug("Concatenation switching to next cell")
	n.Drop(leftSrc)
	Adopt[T, T](n.Mediator, n.right, n.set)
}

// A node is used up once it has switched and its right side is used up,
// so a left-folded chain drains each cell in turn.
func (n *concatNode[T]) exhausted() bool {
	return n.hasSwitched() && n.right.exhausted()
}

// Then returns a single-delivery cell that emits the one value of left and
// afterwards every value of right. Cells that are not single-delivery are
// converted with ToSingle first, so they contribute a single value.
func Then[T any](left, right Observable[T], opts ...Option) Single[T] {
	return newConcatNode(ToSingle(left, opts...), ToSingle(right, opts...), opts)
}

// ConcatWith is an alias of Then.
func ConcatWith[T any](left, right Observable[T], opts ...Option) Single[T] {
	return Then(left, right, opts...)
}

// Concat chains cells in order: the single value of each cell but the last,
// then every value of the last one.
// Concat(a, b, c) is Then(Then(a, b), c).
func Concat[T any](cells ...Observable[T]) Single[T] {
	return ConcatOpts(nil, cells...)
}

// ConcatOpts is Concat with options applied to every cell it creates.
func ConcatOpts[T any](opts []Option, cells ...Observable[T]) Single[T] {
	switch len(cells) {
	case 0:
		return NewSingleCell[T](opts...)
	case 1:
		return ToSingle(cells[0], opts...)
	}

	var chain Single[T] = newConcatNode(ToSingle(cells[0], opts...), ToSingle(cells[1], opts...), opts)
	for _, c := range cells[2:] {
		chain = newConcatNode(chain, ToSingle(c, opts...), opts)
	}
	return chain
}
