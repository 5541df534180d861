// Package broadcast answers the single-node broadcast workload: the node keeps
// every value it is sent and reports them back on read.
//
// Requests and replies are tagged unions, registered with the protocol package
// so the runtime can decode any of the three request types on one stream.
package broadcast

import (
	"slices"

	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
)

// Request is any message the node accepts.
type Request interface {
	protocol.Payload
	isRequest()
}

// Response is any reply the node sends.
type Response interface {
	protocol.Payload
	isResponse()
}

type Broadcast struct {
	Message int `json:"message"`
}

func (Broadcast) Type() string { return "broadcast" }
func (Broadcast) isRequest()   {}

type Read struct{}

func (Read) Type() string { return "read" }
func (Read) isRequest()   {}

type Topology struct {
	Topology map[string][]string `json:"topology"`
}

func (Topology) Type() string { return "topology" }
func (Topology) isRequest()   {}

type BroadcastOk struct{}

func (BroadcastOk) Type() string { return "broadcast_ok" }
func (BroadcastOk) isResponse()  {}

type ReadOk struct {
	Messages []int `json:"messages"`
}

func (ReadOk) Type() string { return "read_ok" }
func (ReadOk) isResponse()  {}

type TopologyOk struct{}

func (TopologyOk) Type() string { return "topology_ok" }
func (TopologyOk) isResponse()  {}

func init() {
	protocol.RegisterVariants[Request](Broadcast{}, Read{}, Topology{})
	protocol.RegisterVariants[Response](BroadcastOk{}, ReadOk{}, TopologyOk{})
}

// Handler stores broadcast values in arrival order, ignoring repeats.
type Handler struct {
	seen      map[int]struct{}
	messages  []int
	neighbors []string
}

func New() *Handler {
	return &Handler{seen: make(map[int]struct{})}
}

func (h *Handler) Reply(ctx handlers.MessageContext, in Request) Response {
	switch req := in.(type) {
	case Broadcast:
		if _, ok := h.seen[req.Message]; !ok {
			h.seen[req.Message] = struct{}{}
			h.messages = append(h.messages, req.Message)
		}
		return BroadcastOk{}
	case Read:
		return ReadOk{Messages: h.Messages()}
	case Topology:
		h.neighbors = slices.Clone(req.Topology[ctx.NodeID])
		if ctx.Logger != nil {
			ctx.Logger.Debug("Topology received", loggingpkg.LogFields{
				"node_id":   ctx.NodeID,
				"neighbors": h.neighbors,
			})
		}
		return TopologyOk{}
	default:
		panic("broadcast: unregistered request type " + in.Type())
	}
}

// Messages returns the stored values in arrival order, never nil.
func (h *Handler) Messages() []int {
	out := make([]int, len(h.messages))
	copy(out, h.messages)
	return out
}

// Neighbors returns this node's neighbours from the last topology message.
func (h *Handler) Neighbors() []string {
	return slices.Clone(h.neighbors)
}
