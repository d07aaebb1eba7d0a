package lives_test

import (
	"testing"

	"github.com/delaneyj/livecells/lives"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestThen(t *testing.T) {
	t.Run("left value then right values", func(t *testing.T) {
		a := lives.SingleCellOf(1)
		b := lives.SingleCellOf(2)
		c := lives.Then[int](a, b, lives.WithLogger(slogt.New(t)))

		var r recorder[int]
		c.Subscribe(r.add)
		assert.Equal(t, []int{1, 2}, r.values())

		b.SetValue(3)
		assert.Equal(t, []int{1, 2, 3}, r.values())
	})

	t.Run("left is ignored after switching", func(t *testing.T) {
		a := lives.SingleCellOf(1)
		b := lives.SingleCellOf(2)
		c := lives.ConcatWith[int](a, b)

		var r recorder[int]
		c.Subscribe(r.add)
		a.SetValue(1)
		a.SetValue(10)
		assert.Equal(t, []int{1, 2}, r.values())
	})

	t.Run("waits for left before reading right", func(t *testing.T) {
		a := lives.NewSingleCell[int]()
		b := lives.SingleCellOf(2)
		c := lives.Then[int](a, b)

		var r recorder[int]
		c.Subscribe(r.add)
		assert.Empty(t, r.values())

		a.SetValue(1)
		assert.Equal(t, []int{1, 2}, r.values())
	})

	t.Run("plain cells contribute one value each", func(t *testing.T) {
		a := lives.NewCell[string]()
		b := lives.CellOf("b")
		c := lives.Then[string](a, b)

		var r recorder[string]
		c.Subscribe(r.add)
		a.SetValue("a1")
		a.SetValue("a2")
		b.SetValue("b2")

		assert.Equal(t, []string{"a1", "b"}, r.values())
	})

	t.Run("values are not replayed to late subscribers", func(t *testing.T) {
		c := lives.Then[int](lives.CellOf(1), lives.CellOf(2))

		var first, second recorder[int]
		c.Subscribe(first.add)
		c.Subscribe(second.add)

		assert.Equal(t, []int{1, 2}, first.values())
		assert.Empty(t, second.values())
	})

	t.Run("consumed left is skipped", func(t *testing.T) {
		a := lives.SingleCellOf(1)
		a.Subscribe(func(int) {})
		c := lives.Then[int](a, lives.SingleCellOf(2))

		var r recorder[int]
		c.Subscribe(r.add)
		assert.Equal(t, []int{2}, r.values())
	})
}

func TestConcat(t *testing.T) {
	t.Run("three cells in order", func(t *testing.T) {
		a := lives.SingleCellOf("a")
		b := lives.SingleCellOf("b")
		c := lives.SingleCellOf("c")
		chain := lives.Concat[string](a, b, c)

		var r recorder[string]
		chain.Subscribe(r.add)
		assert.Equal(t, []string{"a", "b", "c"}, r.values())

		b.SetValue("b2")
		c.SetValue("c2")
		assert.Equal(t, []string{"a", "b", "c", "c2"}, r.values())
	})

	t.Run("later cells wait for earlier ones", func(t *testing.T) {
		a := lives.NewSingleCell[int]()
		b := lives.NewSingleCell[int]()
		c := lives.SingleCellOf(3)
		chain := lives.Concat[int](a, b, c)

		var r recorder[int]
		chain.Subscribe(r.add)
		assert.Empty(t, r.values())

		b.SetValue(2)
		assert.Empty(t, r.values())

		a.SetValue(1)
		assert.Equal(t, []int{1, 2, 3}, r.values())
	})

	t.Run("no cells never emits", func(t *testing.T) {
		var r recorder[int]
		lives.Concat[int]().Subscribe(r.add)
		assert.Empty(t, r.values())
	})

	t.Run("one cell is its single value", func(t *testing.T) {
		src := lives.CellOf(4)
		var r recorder[int]
		lives.Concat[int](src).Subscribe(r.add)
		src.SetValue(5)
		assert.Equal(t, []int{4}, r.values())
	})

	t.Run("options reach every cell it creates", func(t *testing.T) {
		var calls int
		d := lives.DispatcherFunc(func(fn func()) {
			calls++
			fn()
		})

		a := lives.CellOf(1)
		b := lives.CellOf(2)
		c := lives.SingleCellOf(3)
		chain := lives.ConcatOpts([]lives.Option{lives.WithDispatcher(d), lives.WithLogger(slogt.New(t))}, a, b, c)

		var r recorder[int]
		chain.Subscribe(r.add)
		assert.Equal(t, []int{1, 2, 3}, r.values())
		// 1 and 2 pass their ToSingle cell and both nodes, 3 only the outer node.
		assert.Equal(t, 7, calls)

		var empty recorder[int]
		none := lives.ConcatOpts[int]([]lives.Option{lives.WithDispatcher(d)})
		none.Subscribe(empty.add)
		assert.Empty(t, empty.values())
	})

	t.Run("any length keeps order", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			n := rapid.IntRange(2, 12).Draw(rt, "n")
			order := rapid.Permutation(rangeOf(n)).Draw(rt, "order")

			cells := make([]*lives.SingleCell[int], n)
			sources := make([]lives.Observable[int], n)
			for i := range cells {
				cells[i] = lives.NewSingleCell[int]()
				sources[i] = cells[i]
			}
			chain := lives.Concat(sources...)

			var r recorder[int]
			chain.Subscribe(r.add)
			for _, i := range order {
				cells[i].SetValue(i)
			}

			got := r.values()
			if len(got) != n {
				rt.Fatalf("got %v, want every cell once", got)
			}
			for i, v := range got {
				if v != i {
					rt.Fatalf("got %v, want cells in order", got)
				}
			}
		})
	})
}

func rangeOf(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
