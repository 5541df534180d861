package runtime

import (
	"io"
	"os"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mponcet/gossip-glomers/internal/runtime/config"
	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
)

type options struct {
	in          io.Reader
	out         io.Writer
	logger      loggingpkg.ServiceLogger
	conf        *config.Config
	middlewares []MiddlewareRegistration
	customChain bool
	hooks       DispatchHooks
	registerer  prometheus.Registerer
	tracer      trace.TracerProvider
}

// Option configures a Builder.
type Option func(*options)

// WithInput sets the stream requests are read from. Defaults to os.Stdin.
func WithInput(r io.Reader) Option {
	return func(o *options) { o.in = r }
}

// WithOutput sets the stream replies are written to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLogger replaces the default stderr logger.
func WithLogger(l loggingpkg.ServiceLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfig sets the runtime configuration. Defaults to config.Default().
func WithConfig(c *config.Config) Option {
	return func(o *options) { o.conf = c }
}

// WithMiddlewares replaces DefaultMiddlewares. Calling it with no arguments
// leaves the chain empty.
func WithMiddlewares(regs ...MiddlewareRegistration) Option {
	return func(o *options) {
		o.middlewares = append([]MiddlewareRegistration(nil), regs...)
		o.customChain = true
	}
}

// WithHooks adds dispatch hooks. Repeated calls merge.
func WithHooks(h DispatchHooks) Option {
	return func(o *options) { o.hooks = o.hooks.Merge(h) }
}

// WithRegisterer sets where metrics are registered when enabled. Defaults to a
// fresh registry per runtime.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracerProvider sets the provider used when tracing is enabled. Defaults to
// the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// Builder is a runtime under construction that has no handler yet. It cannot
// build a Runtime; WithHandler turns it into a Configured builder.
type Builder struct {
	opts options
}

// NewBuilder starts a runtime description.
func NewBuilder(opts ...Option) Builder {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return Builder{opts: o}
}

// Configured is a builder bound to a handler. Its only operation is Build.
type Configured[I, O protocol.Payload] struct {
	opts    options
	handler handlers.Handler[I, O]
}

// WithHandler binds h to b. A nil handler panics with errors.ErrHandlerRequired.
func WithHandler[I, O protocol.Payload](b Builder, h handlers.Handler[I, O]) Configured[I, O] {
	if isNilHandler(h) {
		panic(errspkg.ErrHandlerRequired)
	}
	return Configured[I, O]{opts: b.opts, handler: h}
}

// Build produces a Runtime awaiting its init message, with no node id and the
// reply counter at zero. A Configured not obtained from WithHandler panics.
func (c Configured[I, O]) Build() *Runtime[I, O] {
	if isNilHandler(c.handler) {
		panic(errspkg.ErrHandlerRequired)
	}
	o := c.opts
	if o.in == nil {
		o.in = os.Stdin
	}
	if o.out == nil {
		o.out = os.Stdout
	}
	if o.conf == nil {
		o.conf = config.Default()
	}
	if o.logger == nil {
		level, err := loggingpkg.ParseLevel(o.conf.LogLevel)
		o.logger = loggingpkg.NewStderrLogger(level, o.conf.LogFormat)
		if err != nil {
			o.logger.Error("Falling back to info level", err, nil)
		}
	}
	if !o.customChain {
		o.middlewares = DefaultMiddlewares()
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}
	if o.tracer == nil {
		o.tracer = otel.GetTracerProvider()
	}

	return &Runtime[I, O]{
		handler:     c.handler,
		in:          o.in,
		out:         o.out,
		conf:        o.conf,
		logger:      o.logger,
		middlewares: o.middlewares,
		hooks:       o.hooks,
		registerer:  o.registerer,
		tracer:      o.tracer,
	}
}

func isNilHandler(h any) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}
