package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/livecells/lives"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	producersKey = "producers"
	updatesKey   = "updates"
	runsKey      = "runs"
	chainKey     = "chain"
)

func main() {
	cmd := &cli.Command{
		Name:  "stress",
		Usage: "Hammer lives combinators from concurrent producers and check the results",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  producersKey,
				Usage: "Concurrent producers for merge",
				Value: 8,
			},
			&cli.UintFlag{
				Name:  updatesKey,
				Usage: "Values emitted by each producer",
				Value: 100_000,
			},
			&cli.UintFlag{
				Name:  runsKey,
				Usage: "Repetitions of every scenario",
				Value: 5,
			},
			&cli.UintFlag{
				Name:  chainKey,
				Usage: "Cells per concat chain",
				Value: 256,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type stressConfig struct {
	producers int
	updates   int
	chain     int
}

type stressResult struct {
	published int64
	duration  time.Duration
	check     string
}

type scenario struct {
	name string
	run  func(ctx context.Context, cfg stressConfig) (stressResult, error)
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := stressConfig{
		producers: int(cmd.Uint(producersKey)),
		updates:   int(cmd.Uint(updatesKey)),
		chain:     int(cmd.Uint(chainKey)),
	}
	if cfg.producers < 1 || cfg.updates < 1 || cfg.chain < 2 {
		return errors.New("need at least 1 producer, 1 update and 2 chained cells")
	}
	runs := int(cmd.Uint(runsKey))

	scenarios := []scenario{
		{name: "zip", run: stressZip},
		{name: "zip3", run: stressZip3},
		{name: "merge", run: stressMerge},
		{name: "zip on loop", run: stressZipLoop},
		{name: "concat", run: stressConcat},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"scenario", "run", "producers", "emitted", "published", "time", "rate/s", "check",
	})

	for _, sc := range scenarios {
		for i := 0; i < runs; i++ {
			log.Printf("Running '%s', iteration %d/%d %d%%", sc.name, i+1, runs, (i+1)*100/runs)
			res, err := sc.run(ctx, cfg)
			if err != nil {
				return fmt.Errorf("%s run %d: %w", sc.name, i+1, err)
			}

			emitted := emittedBy(sc.name, cfg)
			rate := float64(emitted) / res.duration.Seconds()
			table.Append([]string{
				sc.name,
				fmt.Sprint(i + 1),
				fmt.Sprint(producersOf(sc.name, cfg)),
				humanize.Comma(emitted),
				humanize.Comma(res.published),
				fmt.Sprint(res.duration),
				humanize.Comma(int64(rate)),
				res.check,
			})
		}
	}
	table.Render()
	return nil
}

func producersOf(name string, cfg stressConfig) int {
	switch name {
	case "merge":
		return cfg.producers
	case "zip3":
		return 3
	case "concat":
		return cfg.chain
	default:
		return 2
	}
}

func emittedBy(name string, cfg stressConfig) int64 {
	if name == "concat" {
		return int64(cfg.chain)
	}
	return int64(producersOf(name, cfg) * cfg.updates)
}

func emit(wg *sync.WaitGroup, c *lives.Cell[int], n int) {
	defer wg.Done()
	for i := 1; i <= n; i++ {
		c.SetValue(i)
	}
}

func stressZip(_ context.Context, cfg stressConfig) (stressResult, error) {
	a, b := lives.NewCell[int](), lives.NewCell[int]()
	z := lives.Zip[int, int](a, b)

	var (
		published int64
		last      lives.Pair[int, int]
	)
	z.Subscribe(func(p lives.Pair[int, int]) {
		published++
		last = p
	})

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(2)
	go emit(&wg, a, cfg.updates)
	go emit(&wg, b, cfg.updates)
	wg.Wait()
	res := stressResult{published: published, duration: time.Since(start)}

	want := lives.Pair[int, int]{First: cfg.updates, Second: cfg.updates}
	if last != want {
		return res, fmt.Errorf("last pair %v, want %v", last, want)
	}
	if published < 1 || published > int64(2*cfg.updates-1) {
		return res, fmt.Errorf("published %d pairs for %d updates", published, 2*cfg.updates)
	}
	res.check = "ok"
	return res, nil
}

func stressZip3(_ context.Context, cfg stressConfig) (stressResult, error) {
	a, b, c := lives.NewCell[int](), lives.NewCell[int](), lives.NewCell[int]()
	z := lives.Zip3[int, int, int](a, b, c)

	var (
		published int64
		last      lives.Triple[int, int, int]
	)
	z.Subscribe(func(t lives.Triple[int, int, int]) {
		published++
		last = t
	})

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(3)
	go emit(&wg, a, cfg.updates)
	go emit(&wg, b, cfg.updates)
	go emit(&wg, c, cfg.updates)
	wg.Wait()
	res := stressResult{published: published, duration: time.Since(start)}

	want := lives.Triple[int, int, int]{First: cfg.updates, Second: cfg.updates, Third: cfg.updates}
	if last != want {
		return res, fmt.Errorf("last triple %v, want %v", last, want)
	}
	if published < 1 || published > int64(3*cfg.updates-2) {
		return res, fmt.Errorf("published %d triples for %d updates", published, 3*cfg.updates)
	}
	res.check = "ok"
	return res, nil
}

// Merge delivers the latest value, so a subscriber racing several producers
// may see fewer values than were emitted, never more.
func stressMerge(_ context.Context, cfg stressConfig) (stressResult, error) {
	sources := make([]*lives.Cell[int], cfg.producers)
	observables := make([]lives.Observable[int], cfg.producers)
	for i := range sources {
		sources[i] = lives.NewCell[int]()
		observables[i] = sources[i]
	}

	var published atomic.Int64
	lives.Merge(observables).Subscribe(func(int) {
		published.Add(1)
	})

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(len(sources))
	for _, src := range sources {
		go emit(&wg, src, cfg.updates)
	}
	wg.Wait()
	res := stressResult{published: published.Load(), duration: time.Since(start)}

	emitted := int64(cfg.producers * cfg.updates)
	if res.published < 1 || res.published > emitted {
		return res, fmt.Errorf("published %d values for %d emitted", res.published, emitted)
	}
	res.check = fmt.Sprintf("ok, %s coalesced", humanize.Comma(emitted-res.published))
	return res, nil
}

func stressZipLoop(ctx context.Context, cfg stressConfig) (stressResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := lives.NewLoop(nil)
	go loop.Run(ctx)

	a, b := lives.NewCell[int](), lives.NewCell[int]()
	z := lives.Zip[int, int](a, b, lives.WithDispatcher(loop))

	want := lives.Pair[int, int]{First: cfg.updates, Second: cfg.updates}
	done := make(chan struct{})
	var published int64
	z.Subscribe(func(p lives.Pair[int, int]) {
		published++
		if p == want {
			close(done)
		}
	})

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(2)
	go emit(&wg, a, cfg.updates)
	go emit(&wg, b, cfg.updates)
	wg.Wait()

	select {
	case <-done:
	case <-time.After(time.Minute):
		return stressResult{}, errors.New("final pair never reached the loop")
	}

	// Subscriber state is only touched on the loop goroutine.
	got := make(chan int64)
	loop.Dispatch(func() { got <- published })
	res := stressResult{published: <-got, duration: time.Since(start), check: "ok"}
	return res, nil
}

// Concat must emit its cells in order no matter which order they are set in,
// so every run has to produce the same digest.
func stressConcat(_ context.Context, cfg stressConfig) (stressResult, error) {
	cells := make([]*lives.SingleCell[int], cfg.chain)
	observables := make([]lives.Observable[int], cfg.chain)
	for i := range cells {
		cells[i] = lives.NewSingleCell[int]()
		observables[i] = cells[i]
	}

	var (
		mu        sync.Mutex
		digest    = xxhash.New()
		published int64
		buf       [8]byte
	)
	lives.Concat(observables...).Subscribe(func(v int) {
		mu.Lock()
		defer mu.Unlock()
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		digest.Write(buf[:])
		published++
	})

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(len(cells))
	for _, i := range rand.Perm(len(cells)) {
		go func(i int) {
			defer wg.Done()
			cells[i].SetValue(i)
		}(i)
	}
	wg.Wait()
	res := stressResult{duration: time.Since(start)}

	expected := xxhash.New()
	for i := range cells {
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		expected.Write(buf[:])
	}

	mu.Lock()
	res.published = published
	sum := digest.Sum64()
	mu.Unlock()

	if res.published != int64(cfg.chain) || sum != expected.Sum64() {
		return res, fmt.Errorf("concat emitted %d values with digest %x, want %d with %x",
			res.published, sum, cfg.chain, expected.Sum64())
	}
	res.check = fmt.Sprintf("ok, %x", sum)
	return res, nil
}
