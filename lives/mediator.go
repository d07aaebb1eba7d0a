package lives

import (
	"slices"
	"sync"
)

// Mediator is a derived cell. It adopts source cells and reacts to their
// values through callbacks, which usually end in SetValue.
//
// Sources are attached while the mediator has at least one subscriber
// and detached when the last subscriber leaves. A source that is attached
// again does not replay values its callback already received.
type Mediator[T any] struct {
	*cell[T]

	srcMu   sync.Mutex
	sources []Source
	running bool
}

// Source is a cell adopted by a Mediator.
type Source interface {
	attach()
	detach()
	drop()
}

// NewMediator returns a mediator with no value and no sources.
func NewMediator[T any](opts ...Option) *Mediator[T] {
	return newMediator[T](false, opts)
}

func newMediator[T any](single bool, opts []Option) *Mediator[T] {
	m := &Mediator[T]{
		cell: newCell[T](single, opts),
	}
	m.onActive = m.attachAll
	m.onInactive = m.detachAll
	return m
}

// SetValue stores v and notifies the mediator's subscribers.
func (m *Mediator[T]) SetValue(v T) {
	m.set(v)
}

// Drop detaches s and forgets it.
// Its callback is not called again, even for a delivery already in flight.
func (m *Mediator[T]) Drop(s Source) {
	if s == nil {
		return
	}
	m.srcMu.Lock()
	if i := slices.Index(m.sources, s); i >= 0 {
		m.sources = slices.Delete(m.sources, i, i+1)
	}
	m.srcMu.Unlock()

	s.drop()
}

func (m *Mediator[T]) attachAll() {
	m.srcMu.Lock()
	m.running = true
	sources := slices.Clone(m.sources)
	m.srcMu.Unlock()

	m.cfg.log.Debug("Attaching sources", "count", len(sources))
	for _, s := range sources {
		s.attach()
	}
}

func (m *Mediator[T]) detachAll() {
	m.srcMu.Lock()
	m.running = false
	sources := slices.Clone(m.sources)
	m.srcMu.Unlock()

	m.cfg.log.Debug("Detaching sources", "count", len(sources))
	for _, s := range sources {
		s.detach()
	}
}

// Adopt makes src a source of m. While m is active, fn is called with the
// value src holds and with every later value.
func Adopt[S, T any](m *Mediator[T], src Observable[S], fn func(S)) Source {
	return adopt(m, src, fn, 0)
}

// AdoptLive is like Adopt, except the value src holds right now is skipped.
// Only values src emits after this call reach fn.
func AdoptLive[S, T any](m *Mediator[T], src Observable[S], fn func(S)) Source {
	_, _, version := src.valueVersion()
	return adopt(m, src, fn, version)
}

func adopt[S, T any](m *Mediator[T], src Observable[S], fn func(S), seen uint64) Source {
	a := &adopted[S]{
		src: src,
		obs: &observer[S]{fn: fn},
	}
	a.obs.seen.Store(seen)

	m.srcMu.Lock()
	m.sources = append(m.sources, a)
	running := m.running
	m.srcMu.Unlock()

	if running {
		a.attach()
	}
	return a
}

type adopted[S any] struct {
	src Observable[S]
	obs *observer[S]

	mu      sync.Mutex
	wanted  bool
	dropped bool
	gen     uint64
	sub     *Subscription
}

func (a *adopted[S]) attach() {
	a.mu.Lock()
	if a.wanted || a.dropped {
		a.mu.Unlock()
		return
	}
	a.wanted = true
	a.gen++
	gen := a.gen
	a.mu.Unlock()

	// src may deliver right here, and the callback may detach or drop a.
	sub := a.src.observe(a.obs)

	a.mu.Lock()
	if !a.wanted || a.gen != gen {
		a.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	a.sub = sub
	a.mu.Unlock()
}

func (a *adopted[S]) detach() {
	a.mu.Lock()
	a.wanted = false
	a.gen++
	sub := a.sub
	a.sub = nil
	a.mu.Unlock()

	sub.Unsubscribe()
}

func (a *adopted[S]) drop() {
	a.obs.closed.Store(true)

	a.mu.Lock()
	a.dropped = true
	a.mu.Unlock()

	a.detach()
}
