/*
Package runtime drives a Maelstrom node over newline-delimited JSON on stdin and
stdout.

# Lifecycle

A runtime is described in two steps. NewBuilder collects ambient options and
yields a Builder, which cannot run anything. WithHandler binds a handler and
yields a Configured builder whose only operation is Build:

	rt := runtime.WithHandler(runtime.NewBuilder(), echo.Handler{}).Build()
	if err := rt.Run(); err != nil {
		os.Exit(1)
	}

Run then moves through three states:

  - awaiting init: the first line must be an init message. The runtime stores
    the node id and roster and answers init_ok with msg_id 0.
  - serving: each later line is decoded into the handler's request type, the
    reply counter is incremented and the handler's reply is written with that
    counter as msg_id and the request's msg_id as in_reply_to.
  - terminated: end of input after the handshake returns nil. Any decode or
    stream failure returns an error and nothing further is read.

# Dispatch chain

Each line becomes a Watermill message and is handled by a message.HandlerFunc
wrapped in the configured middleware (logging, tracing, metrics, dispatch
hooks). The chain runs on the loop goroutine, so replies leave in input order.
Replies are published on a message.Publisher that writes one line per reply.

# Files

  - builder.go: Builder, Configured and options
  - runtime.go: the loop and the handshake/serve handlers
  - middleware.go: middleware registrations
  - hooks.go: dispatch lifecycle hooks
  - metrics.go: Prometheus collectors and the optional /metrics listener
*/
package runtime
