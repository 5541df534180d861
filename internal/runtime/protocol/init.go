package protocol

// Discriminators of the handshake payloads.
const (
	TypeInit   = "init"
	TypeInitOk = "init_ok"
)

// Init opens every run: it tells the node its own identifier and the full
// cluster roster.
type Init struct {
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

func (Init) Type() string { return TypeInit }

// InitOk acknowledges Init.
type InitOk struct{}

func (InitOk) Type() string { return TypeInitOk }
