// Package echo answers Maelstrom's echo workload: every echo request is
// returned verbatim in an echo_ok reply.
package echo

import (
	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
)

// Echo asks the node to send back the given string.
type Echo struct {
	Echo string `json:"echo"`
}

func (Echo) Type() string { return "echo" }

// EchoOk carries the string back.
type EchoOk struct {
	Echo string `json:"echo"`
}

func (EchoOk) Type() string { return "echo_ok" }

// Handler is stateless.
type Handler struct{}

func (Handler) Reply(_ handlers.MessageContext, in Echo) EchoOk {
	return EchoOk{Echo: in.Echo}
}
