package lives

import (
	"io"
	"log/slog"
)

type config struct {
	dispatcher Dispatcher
	log        *slog.Logger
}

// Option configures a cell or a derived cell returned by a combinator.
type Option func(*config)

// WithDispatcher sets the execution context subscriber callbacks run on.
// The default runs them synchronously on the goroutine that set the value.
func WithDispatcher(d Dispatcher) Option {
	return func(c *config) {
		if d != nil {
			c.dispatcher = d
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		dispatcher: Immediate(),
		log:        discardLogger(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
