package httpclient

import "github.com/samvad-hq/samvad-probe/pkg/engine"

// Option customizes a Client.
type Option func(*options)

type options struct {
	engine  engine.Engine
	log     Logger
	metrics *Metrics
}

// WithEngine replaces the default resty engine.
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithLogger sets the logger used for lifecycle and fault reporting.
func WithLogger(log Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics records transaction metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}
