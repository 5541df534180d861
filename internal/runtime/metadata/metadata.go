package metadata

import "strconv"

// Header keys stamped on every dispatched message. They describe the envelope so
// middleware can log, trace and count without decoding the line again.
const (
	KeySource    = "glomers_src"
	KeyDest      = "glomers_dest"
	KeyMsgID     = "glomers_msg_id"
	KeyType      = "glomers_type"
	KeyStage     = "glomers_stage"
	KeyDirection = "glomers_direction"
)

// Metadata represents the headers carried alongside a dispatched line.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// MsgID parses the KeyMsgID header. ok is false when absent or malformed.
func (m Metadata) MsgID() (id uint64, ok bool) {
	raw, present := m[KeyMsgID]
	if !present {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
