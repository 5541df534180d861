package runtime

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	metadatapkg "github.com/mponcet/gossip-glomers/internal/runtime/metadata"
)

// DispatchContext describes one dispatched line to hooks.
type DispatchContext struct {
	// Stage is "init" for the handshake and "serve" afterwards.
	Stage string
	// Type is the body type discriminator, empty until the line is decoded.
	Type string
	// MessageUUID identifies the dispatch in logs and recordings.
	MessageUUID string
	Metadata    metadatapkg.Metadata
	StartedAt   time.Time
	// Duration is only set for OnDone and OnError.
	Duration time.Duration
}

// DispatchHooks are optional callbacks around every dispatch. They run on the
// loop goroutine, so a slow hook delays the next message.
type DispatchHooks struct {
	OnStart func(ctx DispatchContext)
	OnDone  func(ctx DispatchContext)
	OnError func(ctx DispatchContext, err error)
}

// Merge returns hooks calling h first and then other.
func (h DispatchHooks) Merge(other DispatchHooks) DispatchHooks {
	return DispatchHooks{
		OnStart: chainHooks(h.OnStart, other.OnStart),
		OnDone:  chainHooks(h.OnDone, other.OnDone),
		OnError: chainErrorHooks(h.OnError, other.OnError),
	}
}

func (h DispatchHooks) empty() bool {
	return h.OnStart == nil && h.OnDone == nil && h.OnError == nil
}

func chainHooks(a, b func(DispatchContext)) func(DispatchContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(DispatchContext, error)) func(DispatchContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DispatchContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// DispatchHooksMiddleware invokes hooks around the rest of the chain.
func DispatchHooksMiddleware(hooks DispatchHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "dispatch_hooks",
		Middleware: dispatchHooksMiddleware(hooks),
	}
}

func dispatchHooksMiddleware(hooks DispatchHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			dctx := DispatchContext{
				Stage:       msg.Metadata.Get(metadatapkg.KeyStage),
				MessageUUID: msg.UUID,
				Metadata:    metadatapkg.FromWatermill(msg.Metadata),
				StartedAt:   time.Now(),
			}
			if hooks.OnStart != nil {
				hooks.OnStart(dctx)
			}

			msgs, err := h(msg)

			dctx.Duration = time.Since(dctx.StartedAt)
			dctx.Type = msg.Metadata.Get(metadatapkg.KeyType)
			dctx.Metadata = metadatapkg.FromWatermill(msg.Metadata)
			if err != nil {
				if hooks.OnError != nil {
					hooks.OnError(dctx, err)
				}
			} else if hooks.OnDone != nil {
				hooks.OnDone(dctx)
			}
			return msgs, err
		}
	}
}

// LoggingHooks logs dispatch lifecycle events: start and completion at debug,
// failures at error.
func LoggingHooks(logger loggingpkg.ServiceLogger) DispatchHooks {
	if logger == nil {
		logger = loggingpkg.NopLogger()
	}
	return DispatchHooks{
		OnStart: func(ctx DispatchContext) {
			logger.Debug("Dispatch started", loggingpkg.LogFields{
				"stage":        ctx.Stage,
				"message_uuid": ctx.MessageUUID,
			})
		},
		OnDone: func(ctx DispatchContext) {
			logger.Debug("Dispatch completed", loggingpkg.LogFields{
				"stage":        ctx.Stage,
				"type":         ctx.Type,
				"message_uuid": ctx.MessageUUID,
				"duration_us":  ctx.Duration.Microseconds(),
			})
		},
		OnError: func(ctx DispatchContext, err error) {
			logger.Error("Dispatch failed", err, loggingpkg.LogFields{
				"stage":        ctx.Stage,
				"type":         ctx.Type,
				"message_uuid": ctx.MessageUUID,
				"duration_us":  ctx.Duration.Microseconds(),
			})
		},
	}
}
