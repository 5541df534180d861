package runtime

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mponcet/gossip-glomers/internal/runtime/config"
	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	metadatapkg "github.com/mponcet/gossip-glomers/internal/runtime/metadata"
)

const tracerName = "github.com/mponcet/gossip-glomers"

// Env is what middleware builders may draw on.
type Env struct {
	Conf    *config.Config
	Logger  loggingpkg.ServiceLogger
	Metrics *Metrics
	Tracer  trace.TracerProvider
}

// MiddlewareBuilder constructs a dispatch middleware for a runtime. Returning a
// nil middleware skips the registration.
type MiddlewareBuilder func(Env) (message.HandlerMiddleware, error)

// MiddlewareRegistration names one link of the dispatch chain. Exactly one of
// Middleware or Builder is set.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// DefaultMiddlewares returns the chain used when none is configured. Tracing and
// metrics are no-ops unless enabled in the config.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		LogMessagesMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
	}
}

// LogMessagesMiddleware logs every inbound line and its reply at debug level.
// A nil logger uses the runtime's.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(env Env) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = env.Logger
			}
			if l == nil {
				return nil, errspkg.ErrLoggerRequired
			}
			return logMessagesMiddleware(l), nil
		},
	}
}

func logMessagesMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			logger.Debug("Received message", loggingpkg.LogFields{
				"message_uuid": msg.UUID,
				"stage":        msg.Metadata.Get(metadatapkg.KeyStage),
				"line":         string(msg.Payload),
			})
			out, err := h(msg)
			for _, reply := range out {
				logger.Debug("Sending reply", loggingpkg.LogFields{
					"message_uuid": reply.UUID,
					"msg_id":       reply.Metadata.Get(metadatapkg.KeyMsgID),
					"line":         string(reply.Payload),
				})
			}
			return out, err
		}
	}
}

// TracerMiddleware wraps each dispatch in an OpenTelemetry span when tracing is
// enabled.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(env Env) (message.HandlerMiddleware, error) {
			if env.Conf == nil || !env.Conf.TracingEnabled || env.Tracer == nil {
				return nil, nil
			}
			return tracerMiddleware(env.Tracer.Tracer(tracerName)), nil
		},
	}
}

func tracerMiddleware(tracer trace.Tracer) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx, span := tracer.Start(msg.Context(), "glomers.dispatch")
			defer span.End()
			msg.SetContext(ctx)

			out, err := h(msg)

			span.SetAttributes(
				attribute.String("message.uuid", msg.UUID),
				attribute.String("message.stage", msg.Metadata.Get(metadatapkg.KeyStage)),
				attribute.String("message.type", msg.Metadata.Get(metadatapkg.KeyType)),
				attribute.String("message.src", msg.Metadata.Get(metadatapkg.KeySource)),
			)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return out, err
		}
	}
}

// MetricsMiddleware counts and times dispatches when metrics are enabled.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(env Env) (message.HandlerMiddleware, error) {
			if env.Metrics == nil {
				return nil, nil
			}
			return metricsMiddleware(env.Metrics), nil
		},
	}
}

func metricsMiddleware(m *Metrics) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			start := time.Now()
			out, err := h(msg)
			m.ObserveDispatch(msg.Metadata.Get(metadatapkg.KeyStage), msg.Metadata.Get(metadatapkg.KeyType), time.Since(start), err)
			for _, reply := range out {
				if id, ok := metadatapkg.FromWatermill(reply.Metadata).MsgID(); ok {
					m.SetLastID(id)
				}
			}
			return out, err
		}
	}
}

// buildChain resolves registrations in order. The first registration ends up
// outermost.
func buildChain(env Env, registrations []MiddlewareRegistration) ([]message.HandlerMiddleware, error) {
	chain := make([]message.HandlerMiddleware, 0, len(registrations))
	for _, reg := range registrations {
		var mw message.HandlerMiddleware
		switch {
		case reg.Middleware != nil:
			mw = reg.Middleware
		case reg.Builder != nil:
			var err error
			mw, err = reg.Builder(env)
			if err != nil {
				return nil, fmt.Errorf("middleware %q: %w", reg.Name, err)
			}
		default:
			return nil, fmt.Errorf("middleware %q: registration requires Middleware or Builder", reg.Name)
		}
		if mw != nil {
			chain = append(chain, mw)
		}
	}
	return chain, nil
}

func applyChain(h message.HandlerFunc, chain []message.HandlerMiddleware) message.HandlerFunc {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
