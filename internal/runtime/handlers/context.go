package handlers

import (
	"slices"

	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	metadatapkg "github.com/mponcet/gossip-glomers/internal/runtime/metadata"
)

// MessageContext describes the message being answered and the node answering it.
// It is a value: handlers may read it freely but changes are not seen by the runtime.
type MessageContext struct {
	// NodeID is the identifier assigned by the init handshake.
	NodeID string
	// NodeIDs is the cluster roster from the handshake.
	NodeIDs []string
	// Src and Dest are the addresses of the inbound envelope.
	Src  string
	Dest string
	// MsgID is the inbound msg_id, nil when the sender omitted it.
	MsgID *uint64

	Metadata metadatapkg.Metadata
	Logger   loggingpkg.ServiceLogger
}

// NewMessageContext builds a context whose roster, id and metadata do not alias
// the caller's.
func NewMessageContext(nodeID string, nodeIDs []string, src, dest string, msgID *uint64, md metadatapkg.Metadata, logger loggingpkg.ServiceLogger) MessageContext {
	if logger == nil {
		logger = loggingpkg.NopLogger()
	}
	var id *uint64
	if msgID != nil {
		v := *msgID
		id = &v
	}
	return MessageContext{
		NodeID:   nodeID,
		NodeIDs:  slices.Clone(nodeIDs),
		Src:      src,
		Dest:     dest,
		MsgID:    id,
		Metadata: md.Clone(),
		Logger:   logger,
	}
}

// CloneMetadata copies the current metadata map so handlers can mutate it safely.
func (c MessageContext) CloneMetadata() metadatapkg.Metadata {
	return c.Metadata.Clone()
}

// Get retrieves a metadata value by key.
func (c MessageContext) Get(key string) string {
	return c.Metadata[key]
}

// Peers returns the roster without this node, in roster order.
func (c MessageContext) Peers() []string {
	peers := make([]string, 0, len(c.NodeIDs))
	for _, id := range c.NodeIDs {
		if id != c.NodeID {
			peers = append(peers, id)
		}
	}
	return peers
}
