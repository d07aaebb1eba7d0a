package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/livecells/lives"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	itersKey   = "iters"
	profileKey = "profile"
	renderKey  = "render"
)

var (
	ww = []int{1, 10, 100, 1_000}
	hh = []int{1, 10, 100}
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure propagation latency of the lives combinators",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Updates measured per benchmark",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this file, empty to disable",
				Value: "default.pgo",
			},
			&cli.BoolFlag{
				Name:  renderKey,
				Usage: "Print result tables",
				Value: true,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("starting profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	iters := int(cmd.Uint(itersKey))
	render := cmd.Bool(renderKey)

	log.Printf("warming up")
	benchmarkMerge(iters, false)

	benchmarkMerge(iters, render)
	benchmarkStartWith(iters, render)
	benchmarkZip(iters, render)
	benchmarkConcat(iters, render)
	return nil
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	return tbl
}

func appendCalc(tbl table.Writer, name string, tach *tachymeter.Tachymeter) {
	calc := tach.Calc()
	tbl.AppendRows([]table.Row{
		{
			name,
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
		},
	})
}

func pass[T any](T) {}

func benchmarkMerge(iters int, shouldRender bool) {
	tbl := newTable("Merge")

	for _, w := range ww {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		sources := make([]*lives.Cell[int], w)
		observables := make([]lives.Observable[int], w)
		for i := range sources {
			sources[i] = lives.NewCell[int]()
			observables[i] = sources[i]
		}
		lives.Merge(observables).Subscribe(pass[int])

		for i := 0; i < iters; i++ {
			start := time.Now()
			sources[i%w].SetValue(i)
			tach.AddTime(time.Since(start))
		}
		appendCalc(tbl, fmt.Sprintf("fan-in: %d", w), tach)
	}

	if shouldRender {
		tbl.Render()
	}
}

func benchmarkStartWith(iters int, shouldRender bool) {
	tbl := newTable("StartWith / Map")

	for _, h := range hh {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		src := lives.NewCell[int]()
		var last lives.Observable[int] = src
		for j := 0; j < h; j++ {
			last = lives.Map(lives.StartWith(last, 0), addOne)
		}
		last.Subscribe(pass[int])

		for i := 0; i < iters; i++ {
			start := time.Now()
			src.SetValue(i)
			tach.AddTime(time.Since(start))
		}
		appendCalc(tbl, fmt.Sprintf("depth: %d", h), tach)
	}

	if shouldRender {
		tbl.Render()
	}
}

func addOne(v int) int {
	return v + 1
}

func sumPair(p lives.Pair[int, int]) int {
	return p.First + p.Second
}

func sumTriple(p lives.Triple[int, int, int]) int {
	return p.First + p.Second + p.Third
}

func benchmarkZip(iters int, shouldRender bool) {
	tbl := newTable("Zip")

	for _, h := range hh {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		src := lives.CellOf(0)
		side := lives.CellOf(1)
		var last lives.Observable[int] = src
		for j := 0; j < h; j++ {
			last = lives.Map(lives.Zip[int, int](last, side), sumPair)
		}
		last.Subscribe(pass[int])

		for i := 0; i < iters; i++ {
			start := time.Now()
			src.SetValue(i)
			tach.AddTime(time.Since(start))
		}
		appendCalc(tbl, fmt.Sprintf("zip chain: %d", h), tach)
	}

	for _, h := range hh {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		src := lives.CellOf(0)
		side := lives.CellOf(1)
		var last lives.Observable[int] = src
		for j := 0; j < h; j++ {
			last = lives.Map(lives.Zip3[int, int, int](last, side, side), sumTriple)
		}
		last.Subscribe(pass[int])

		for i := 0; i < iters; i++ {
			start := time.Now()
			src.SetValue(i)
			tach.AddTime(time.Since(start))
		}
		appendCalc(tbl, fmt.Sprintf("zip3 chain: %d", h), tach)
	}

	if shouldRender {
		tbl.Render()
	}
}

// Concat chains drain once, so every sample builds and drains a new chain.
func benchmarkConcat(iters int, shouldRender bool) {
	tbl := newTable("Concat")

	for _, w := range ww {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})

		for i := 0; i < iters; i++ {
			cells := make([]lives.Observable[int], w)
			for j := range cells {
				cells[j] = lives.SingleCellOf(j)
			}

			start := time.Now()
			count := 0
			lives.Concat(cells...).Subscribe(func(int) { count++ })
			tach.AddTime(time.Since(start))

			if count != w {
				log.Panicf("concat of %d cells emitted %d values", w, count)
			}
		}
		appendCalc(tbl, fmt.Sprintf("drain: %d", w), tach)
	}

	if shouldRender {
		tbl.Render()
	}
}
