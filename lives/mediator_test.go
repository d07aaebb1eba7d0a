package lives_test

import (
	"strconv"
	"sync"
	"testing"

	"github.com/delaneyj/livecells/lives"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediator(t *testing.T) {
	t.Run("sources attach on first subscriber", func(t *testing.T) {
		src := lives.CellOf(1)
		m := lives.NewMediator[int](lives.WithLogger(slogt.New(t)))

		calls := 0
		lives.Adopt(m, src, func(v int) {
			calls++
			m.SetValue(v * 10)
		})
		assert.Equal(t, 0, calls)

		var r recorder[int]
		m.Subscribe(r.add)
		assert.Equal(t, 1, calls)
		assert.Equal(t, []int{10}, r.values())

		src.SetValue(2)
		assert.Equal(t, []int{10, 20}, r.values())
	})

	t.Run("reattached source does not replay seen values", func(t *testing.T) {
		src := lives.CellOf(1)
		m := lives.NewMediator[int]()

		calls := 0
		lives.Adopt(m, src, func(v int) {
			calls++
			m.SetValue(v)
		})

		sub := m.Subscribe(func(int) {})
		sub.Unsubscribe()
		assert.Equal(t, 1, calls)

		m.Subscribe(func(int) {})
		assert.Equal(t, 1, calls)
	})

	t.Run("latest value missed while detached arrives on reattach", func(t *testing.T) {
		src := lives.NewCell[int]()
		m := lives.NewMediator[int]()
		lives.Adopt(m, src, m.SetValue)

		var first recorder[int]
		sub := m.Subscribe(first.add)
		src.SetValue(1)
		sub.Unsubscribe()

		src.SetValue(2)
		src.SetValue(3)

		var second recorder[int]
		m.Subscribe(second.add)
		assert.Equal(t, []int{1}, first.values())
		assert.Equal(t, []int{3}, second.values())
	})

	t.Run("adopt live skips the current value", func(t *testing.T) {
		src := lives.CellOf(1)
		m := lives.NewMediator[int]()
		lives.AdoptLive(m, src, m.SetValue)

		var r recorder[int]
		m.Subscribe(r.add)
		assert.Empty(t, r.values())

		src.SetValue(2)
		assert.Equal(t, []int{2}, r.values())
	})

	t.Run("racing last unsubscribe and first subscribe stay attached", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			src := lives.NewCell[int]()
			m := lives.NewMediator[int]()
			lives.Adopt(m, src, m.SetValue)

			leaving := m.Subscribe(func(int) {})

			var (
				r  recorder[int]
				wg sync.WaitGroup
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				leaving.Unsubscribe()
			}()
			go func() {
				defer wg.Done()
				m.Subscribe(r.add)
			}()
			wg.Wait()

			src.SetValue(i)
			require.Equal(t, []int{i}, r.values())
		}
	})

	t.Run("dropped source is never called again", func(t *testing.T) {
		src := lives.NewCell[int]()
		m := lives.NewMediator[int]()
		s := lives.Adopt(m, src, m.SetValue)

		var r recorder[int]
		m.Subscribe(r.add)
		src.SetValue(1)
		m.Drop(s)
		src.SetValue(2)

		assert.Equal(t, []int{1}, r.values())
	})
}

func TestMapFilter(t *testing.T) {
	src := lives.NewCell[int]()
	evens := lives.Filter(src, func(v int) bool { return v%2 == 0 })
	labels := lives.Map(evens, strconv.Itoa)

	var r recorder[string]
	labels.Subscribe(r.add)
	for i := 1; i <= 5; i++ {
		src.SetValue(i)
	}

	assert.Equal(t, []string{"2", "4"}, r.values())
}
