package orderpipe

import (
	"google.golang.org/api/option"
)

// Option configures a Pipeline.
type Option interface {
	apply(*pipeline) error
}

type optionFunc func(*pipeline) error

func (f optionFunc) apply(p *pipeline) error {
	return f(p)
}

// WithPrettyLogging configures the pipeline to print human friendly logs.
func WithPrettyLogging() Option {
	return optionFunc(func(p *pipeline) error {
		p.prettyLogging = true
		return nil
	})
}

// WithLogLevel sets the log level: "trace", "debug", "info", "warn",
// "error", "fatal" or "panic".
func WithLogLevel(level string) Option {
	return optionFunc(func(p *pipeline) error {
		p.logLevel = level
		return nil
	})
}

// WithConcurrency caps the number of invocations processed simultaneously
// when the pipeline is embedded in a host that delivers events in parallel.
func WithConcurrency(n int64) Option {
	return optionFunc(func(p *pipeline) error {
		p.concurrency = n
		return nil
	})
}

// WithNotifier reports each invocation's result through n.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(p *pipeline) error {
		p.notifier = n
		return nil
	})
}

// WithClientOptions passes client options to the BigQuery and Storage
// clients, e.g. to point them at an emulator.
func WithClientOptions(opts ...option.ClientOption) Option {
	return optionFunc(func(p *pipeline) error {
		p.clientOpts = append(p.clientOpts, opts...)
		return nil
	})
}
