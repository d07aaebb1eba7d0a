package lives

import (
	"slices"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
)

// Observable is a cell holding at most one current value
// which it pushes to its subscribers whenever it changes.
type Observable[T any] interface {
	// Value returns the current value, or false if the cell never had one.
	Value() (T, bool)

	// Subscribe delivers the current value, if there is one, and then every
	// later value, until the returned subscription is cancelled.
	Subscribe(fn func(T)) *Subscription

	observe(o *observer[T]) *Subscription
	valueVersion() (T, bool, uint64)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

// An observer remembers the last version it was handed,
// so attaching it again never replays a value it already saw.
//
// Calls to fn never overlap and follow version order. A value handed over
// while fn is running, from any goroutine or from fn itself, is parked and
// passed on by the running call once fn returns; a newer one replaces it.
type observer[T any] struct {
	fn     func(T)
	seen   atomic.Uint64
	closed atomic.Bool

	mu      sync.Mutex
	running bool
	pending T
	parked  bool
}

func (o *observer[T]) deliver(v T, version uint64) {
	o.mu.Lock()
	if o.closed.Load() || version <= o.seen.Load() {
		o.mu.Unlock()
		return
	}
	o.seen.Store(version)
	o.pending, o.parked = v, true
	if o.running {
		o.mu.Unlock()
		return
	}
	o.running = true

	for o.parked {
		v := o.pending
		var zero T
		o.pending, o.parked = zero, false
		o.mu.Unlock()

		if !o.closed.Load() {
			o.fn(v)
		}

		o.mu.Lock()
	}
	o.running = false
	o.mu.Unlock()
}

type cell[T any] struct {
	cfg config

	mu        sync.Mutex
	value     T
	has       bool
	version   uint64
	stamp     uint64
	observers []*observer[T]

	// Single-delivery cells only: observers already handed the current value.
	single    bool
	delivered mapset.Set[*observer[T]]

	// Called when the observer count goes from zero to one, and back.
	// Transitions are applied one at a time by whoever is reconciling.
	onActive    func()
	onInactive  func()
	active      bool
	reconciling bool
	recheck     bool
}

func newCell[T any](single bool, opts []Option) *cell[T] {
	c := &cell[T]{
		cfg:    newConfig(opts),
		single: single,
	}
	if single {
		c.delivered = mapset.NewThreadUnsafeSet[*observer[T]]()
	}
	return c
}

func (c *cell[T]) Value() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.has
}

func (c *cell[T]) Subscribe(fn func(T)) *Subscription {
	o := &observer[T]{fn: fn}
	sub := c.observe(o)
	return &Subscription{
		cancel: func() {
			o.closed.Store(true)
			sub.Unsubscribe()
		},
	}
}

func (c *cell[T]) observe(o *observer[T]) *Subscription {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.reconcile()

	c.mu.Lock()
	v, version := c.value, c.version
	ok := c.has && version > o.seen.Load()
	if ok && c.single {
		if c.delivered.Cardinality() > 0 {
			ok = false
		} else {
			c.delivered.Add(o)
		}
	}
	c.mu.Unlock()

	if ok {
		c.notify(o, v, version)
	}

	return &Subscription{
		cancel: func() {
			c.remove(o)
		},
	}
}

func (c *cell[T]) remove(o *observer[T]) {
	c.mu.Lock()
	i := slices.Index(c.observers, o)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.observers = slices.Delete(c.observers, i, i+1)
	c.reconcile()
}

// reconcile runs the activation hooks until their state matches whether the
// cell has observers. It is called with mu held and returns with it released.
// A call made while another is reconciling only asks that one to look again.
func (c *cell[T]) reconcile() {
	if c.onActive == nil {
		c.mu.Unlock()
		return
	}
	c.recheck = true
	if c.reconciling {
		c.mu.Unlock()
		return
	}
	c.reconciling = true

	for c.recheck {
		c.recheck = false
		want := len(c.observers) > 0
		if want == c.active {
			continue
		}
		c.active = want
		c.mu.Unlock()

		if want {
			c.onActive()
		} else {
			c.onInactive()
		}

		c.mu.Lock()
	}
	c.reconciling = false
	c.mu.Unlock()
}

func (c *cell[T]) set(v T) {
	c.mu.Lock()
	c.store(v)
}

// setStamped stores v for writers that number their values. A value whose
// stamp is not above the last one stored lost a race and is dropped.
func (c *cell[T]) setStamped(v T, stamp uint64) {
	c.mu.Lock()
	if stamp <= c.stamp {
		c.mu.Unlock()
		return
	}
	c.stamp = stamp
	c.store(v)
}

// store is called with mu held and releases it before notifying.
func (c *cell[T]) store(v T) {
	c.value = v
	c.has = true
	c.version++
	version := c.version
	observers := slices.Clone(c.observers)
	if c.single {
		c.delivered.Clear()
		for _, o := range observers {
			c.delivered.Add(o)
		}
	}
	c.mu.Unlock()

	for _, o := range observers {
		c.notify(o, v, version)
	}
}

// preset stores v without notifying anyone.
// Used while a cell is still under construction.
func (c *cell[T]) preset(v T) {
	c.mu.Lock()
	c.value = v
	c.has = true
	c.version++
	c.mu.Unlock()
}

func (c *cell[T]) notify(o *observer[T], v T, version uint64) {
	c.cfg.dispatcher.Dispatch(func() {
		o.deliver(v, version)
	})
}

func (c *cell[T]) valueVersion() (T, bool, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.has, c.version
}

// Cell is an observable cell whose value is set directly.
type Cell[T any] struct {
	*cell[T]
}

// NewCell returns a cell with no value.
func NewCell[T any](opts ...Option) *Cell[T] {
	return &Cell[T]{newCell[T](false, opts)}
}

// CellOf returns a cell already holding v.
func CellOf[T any](v T, opts ...Option) *Cell[T] {
	c := NewCell[T](opts...)
	c.preset(v)
	return c
}

// SetValue stores v and notifies every subscriber in subscription order.
func (c *Cell[T]) SetValue(v T) {
	c.set(v)
}
