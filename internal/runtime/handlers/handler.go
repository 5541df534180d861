// Package handlers defines the capability a node implements: turning one decoded
// request payload into exactly one reply payload.
package handlers

import (
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
)

// Handler answers requests of type I with replies of type O. The runtime calls
// Reply once per inbound message, never concurrently, and addresses the result
// back to the sender. Implementations may keep private state between calls.
type Handler[I, O protocol.Payload] interface {
	Reply(ctx MessageContext, in I) O
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc[I, O protocol.Payload] func(ctx MessageContext, in I) O

// Reply calls f.
func (f HandlerFunc[I, O]) Reply(ctx MessageContext, in I) O {
	return f(ctx, in)
}
