package lives

import (
	"slices"
	"sync"
)

// Pair is the value emitted by Zip.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the value emitted by Zip3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// MergeWith merges first with others. See Merge.
func MergeWith[T any](first Observable[T], others ...Observable[T]) Observable[T] {
	sources := make([]Observable[T], 0, len(others)+1)
	sources = append(sources, first)
	sources = append(sources, others...)
	return Merge(sources)
}

// Merge returns a cell that emits every value emitted by any of sources.
//
// Sources already holding a value are copied into the new cell in order,
// so it starts with the value of the last such source.
// An empty list gives a cell that never emits.
func Merge[T any](sources []Observable[T], opts ...Option) Observable[T] {
	m := NewMediator[T](opts...)
	for _, src := range sources {
		if src == nil {
			continue
		}
		v, ok, version := src.valueVersion()
		if ok {
			m.preset(v)
		}
		adopt(m, src, m.SetValue, version)
	}
	return m
}

// StartWith returns a cell that holds initial and then follows src.
//
// A value src already holds when StartWith is called is never delivered;
// only values src emits afterwards replace initial.
func StartWith[T any](src Observable[T], initial T, opts ...Option) Observable[T] {
	m := NewMediator[T](opts...)
	m.preset(initial)
	AdoptLive(m, src, m.SetValue)
	return m
}

// slot is the latest value seen from one zipped source.
type slot[T any] struct {
	v  T
	ok bool
}

func (s *slot[T]) put(v T) {
	s.v = v
	s.ok = true
}

func (s *slot[T]) get() (T, bool) {
	return s.v, s.ok
}

// latch is the aggregation state of one zip instance.
// Storing a value, tripping the latch and taking a stamp happen under mu,
// whichever source is emitting. The combined value is published after mu
// is released, so a subscriber may feed the zip's own sources.
type latch struct {
	mu       sync.Mutex
	received []bool
	ready    bool
	stamp    uint64
}

func newLatch(n int) *latch {
	return &latch{received: make([]bool, n)}
}

// update stores a value for source i. Once every source has emitted, it
// calls combine and hands the result to publish with a stamp that orders
// it against concurrent updates.
func update[V any](l *latch, i int, store func(), combine func() V, publish func(V, uint64)) {
	l.mu.Lock()
	store()
	l.received[i] = true
	if !l.ready {
		l.ready = !slices.Contains(l.received, false)
	}
	if !l.ready {
		l.mu.Unlock()
		return
	}
	v := combine()
	l.stamp++
	stamp := l.stamp
	l.mu.Unlock()

	publish(v, stamp)
}

// Zip returns a cell that emits nothing until both a and b have emitted,
// then emits a Pair of their latest values. From then on it emits a new Pair
// every time either of them emits.
//
// When a and b emit concurrently, a Pair overtaken by a newer one before it
// is stored is dropped, so the cell always ends on the latest Pair.
func Zip[A, B any](a Observable[A], b Observable[B], opts ...Option) Observable[Pair[A, B]] {
	m := NewMediator[Pair[A, B]](opts...)

	var (
		l      = newLatch(2)
		first  slot[A]
		second slot[B]
	)
	combine := func() Pair[A, B] {
		x, _ := first.get()
		y, _ := second.get()
		return Pair[A, B]{First: x, Second: y}
	}

	Adopt(m, a, func(v A) {
		update(l, 0, func() { first.put(v) }, combine, m.setStamped)
	})
	Adopt(m, b, func(v B) {
		update(l, 1, func() { second.put(v) }, combine, m.setStamped)
	})
	return m
}

// Zip3 is Zip for three sources.
func Zip3[A, B, C any](a Observable[A], b Observable[B], c Observable[C], opts ...Option) Observable[Triple[A, B, C]] {
	m := NewMediator[Triple[A, B, C]](opts...)

	var (
		l      = newLatch(3)
		first  slot[A]
		second slot[B]
		third  slot[C]
	)
	combine := func() Triple[A, B, C] {
		x, _ := first.get()
		y, _ := second.get()
		z, _ := third.get()
		return Triple[A, B, C]{First: x, Second: y, Third: z}
	}

	Adopt(m, a, func(v A) {
		update(l, 0, func() { first.put(v) }, combine, m.setStamped)
	})
	Adopt(m, b, func(v B) {
		update(l, 1, func() { second.put(v) }, combine, m.setStamped)
	})
	Adopt(m, c, func(v C) {
		update(l, 2, func() { third.put(v) }, combine, m.setStamped)
	})
	return m
}
