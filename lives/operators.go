package lives

// Map returns a cell holding fn applied to every value of src.
func Map[S, T any](src Observable[S], fn func(S) T, opts ...Option) Observable[T] {
	m := NewMediator[T](opts...)
	Adopt(m, src, func(v S) {
		m.set(fn(v))
	})
	return m
}

// Filter returns a cell that forwards the values of src for which keep is true.
func Filter[T any](src Observable[T], keep func(T) bool, opts ...Option) Observable[T] {
	m := NewMediator[T](opts...)
	Adopt(m, src, func(v T) {
		if keep(v) {
			m.set(v)
		}
	})
	return m
}
