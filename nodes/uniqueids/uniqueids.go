// Package uniqueids answers Maelstrom's unique-ids workload: every generate
// request gets an identifier no other request in the cluster receives.
package uniqueids

import (
	"fmt"
	"strconv"

	"github.com/mponcet/gossip-glomers/internal/runtime/config"
	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	idspkg "github.com/mponcet/gossip-glomers/internal/runtime/ids"
)

// Generate requests a fresh identifier.
type Generate struct{}

func (Generate) Type() string { return "generate" }

// GenerateOk carries the identifier.
type GenerateOk struct {
	ID string `json:"id"`
}

func (GenerateOk) Type() string { return "generate_ok" }

// Handler mints identifiers with one of two strategies:
//
//   - counter: "<node_id>-<n>" with n counting generate requests from 1. Node
//     ids are unique in the roster and the separator keeps "n1"+"11" apart
//     from "n11"+"1".
//   - ulid: a monotonic ULID, unique without relying on the node id.
type Handler struct {
	strategy string
	issued   uint64
	newULID  func() string
}

// New returns a handler for strategy. Empty selects counter.
func New(strategy string) (*Handler, error) {
	switch strategy {
	case "", config.IDStrategyCounter:
		return &Handler{strategy: config.IDStrategyCounter}, nil
	case config.IDStrategyULID:
		return &Handler{strategy: config.IDStrategyULID, newULID: idspkg.CreateULID}, nil
	default:
		return nil, fmt.Errorf("uniqueids: unknown strategy %q", strategy)
	}
}

// Strategy reports the configured strategy.
func (h *Handler) Strategy() string {
	return h.strategy
}

func (h *Handler) Reply(ctx handlers.MessageContext, _ Generate) GenerateOk {
	h.issued++
	if h.strategy == config.IDStrategyULID {
		return GenerateOk{ID: h.newULID()}
	}
	return GenerateOk{ID: ctx.NodeID + "-" + strconv.FormatUint(h.issued, 10)}
}

// Issued counts the identifiers handed out so far.
func (h *Handler) Issued() uint64 {
	return h.issued
}
