package lives_test

import (
	"context"
	"testing"
	"time"

	"github.com/delaneyj/livecells/lives"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	t.Run("runs callbacks in order on the loop goroutine", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loop := lives.NewLoop(slogt.New(t))
		done := make(chan error, 1)
		go func() {
			done <- loop.Run(ctx)
		}()

		c := lives.NewCell[int](lives.WithDispatcher(loop))
		got := make(chan int, 10)
		c.Subscribe(func(v int) { got <- v })

		for i := 1; i <= 5; i++ {
			c.SetValue(i)
		}

		for want := 1; want <= 5; want++ {
			select {
			case v := <-got:
				assert.Equal(t, want, v)
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for %d", want)
			}
		}

		cancel()
		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("loop did not stop")
		}
	})

	t.Run("callbacks may dispatch again", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loop := lives.NewLoop(nil)
		go loop.Run(ctx)

		got := make(chan string, 2)
		loop.Dispatch(func() {
			loop.Dispatch(func() { got <- "inner" })
			got <- "outer"
		})

		for _, want := range []string{"outer", "inner"} {
			select {
			case v := <-got:
				assert.Equal(t, want, v)
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for %s", want)
			}
		}
	})

	t.Run("derived cells deliver through their dispatcher", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		loop := lives.NewLoop(nil)
		go loop.Run(ctx)

		a := lives.NewCell[int]()
		b := lives.NewCell[int]()
		z := lives.Zip[int, int](a, b, lives.WithDispatcher(loop))

		got := make(chan lives.Pair[int, int], 1)
		z.Subscribe(func(p lives.Pair[int, int]) { got <- p })
		a.SetValue(1)
		b.SetValue(2)

		select {
		case p := <-got:
			assert.Equal(t, lives.Pair[int, int]{First: 1, Second: 2}, p)
		case <-time.After(time.Second):
			t.Fatal("timed out")
		}
	})
}

func TestDispatcherFunc(t *testing.T) {
	var calls int
	d := lives.DispatcherFunc(func(fn func()) {
		calls++
		fn()
	})

	c := lives.CellOf(1, lives.WithDispatcher(d))
	var r recorder[int]
	c.Subscribe(r.add)
	c.SetValue(2)

	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1, 2}, r.values())
}
