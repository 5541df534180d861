// Package protocol defines the Maelstrom envelope: a message addressed from one
// node to another whose body carries correlation ids and a type-tagged payload
// flattened alongside them.
//
// On the wire a message looks like
//
//	{"src":"c1","dest":"n1","body":{"msg_id":2,"type":"echo","echo":"hi"}}
//
// Body encodes msg_id and in_reply_to (when present), then the payload's type
// discriminator, then the payload's own fields, all at the same level.
package protocol

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	"github.com/mponcet/gossip-glomers/internal/runtime/jsoncodec"
)

// Payload is implemented by every message variant. Type returns the wire
// discriminator. Implementations must not declare their own type, msg_id or
// in_reply_to fields.
type Payload interface {
	Type() string
}

// Message is the outer envelope exchanged over the transport. Src and Dest are
// opaque node identifiers.
type Message[P Payload] struct {
	Src  string  `json:"src"`
	Dest string  `json:"dest"`
	Body Body[P] `json:"body"`
}

// Body carries the correlation ids and the payload.
type Body[P Payload] struct {
	// ID is the sender-assigned msg_id. Nil when absent.
	ID *uint64
	// InReplyTo is the msg_id being answered. Nil on requests.
	InReplyTo *uint64
	Payload   P
}

// MarshalJSON writes msg_id, in_reply_to, type and the payload fields as siblings.
func (b Body[P]) MarshalJSON() ([]byte, error) {
	if isNilPayload(b.Payload) {
		return nil, fmt.Errorf("glomers: body has no payload")
	}

	fields, err := jsoncodec.Marshal(b.Payload)
	if err != nil {
		return nil, err
	}
	inner, err := objectMembers(fields)
	if err != nil {
		return nil, fmt.Errorf("glomers: payload %T: %w", b.Payload, err)
	}
	typ, err := jsoncodec.Marshal(b.Payload.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(inner) + len(typ) + 48)
	buf.WriteByte('{')
	if b.ID != nil {
		buf.WriteString(`"msg_id":`)
		buf.WriteString(strconv.FormatUint(*b.ID, 10))
		buf.WriteByte(',')
	}
	if b.InReplyTo != nil {
		buf.WriteString(`"in_reply_to":`)
		buf.WriteString(strconv.FormatUint(*b.InReplyTo, 10))
		buf.WriteByte(',')
	}
	buf.WriteString(`"type":`)
	buf.Write(typ)
	if len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the correlation ids, selects the payload variant from the
// type discriminator and decodes the remaining members into it. Member names
// are matched exactly.
func (b *Body[P]) UnmarshalJSON(data []byte) error {
	fields, err := jsoncodec.UnmarshalObject(data)
	if err != nil {
		return err
	}

	var typ string
	ok, err := member(fields, "type", &typ)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: body.type", errspkg.ErrMissingField)
	}
	id, err := optionalID(fields, "msg_id")
	if err != nil {
		return err
	}
	inReplyTo, err := optionalID(fields, "in_reply_to")
	if err != nil {
		return err
	}

	payload, err := decodePayload[P](typ, data, fields)
	if err != nil {
		return err
	}

	b.ID = id
	b.InReplyTo = inReplyTo
	b.Payload = payload
	return nil
}

// Decode parses one line into a Message. Any failure is a *errors.DecodeError.
func Decode[P Payload](line []byte) (Message[P], error) {
	return DecodeAt[P]("", line)
}

// DecodeAt is Decode with the protocol stage recorded on the returned error.
func DecodeAt[P Payload](stage string, line []byte) (Message[P], error) {
	msg, err := decode[P](line)
	if err != nil {
		return Message[P]{}, errspkg.NewDecodeError(stage, line, err)
	}
	return msg, nil
}

func decode[P Payload](line []byte) (Message[P], error) {
	fields, err := jsoncodec.UnmarshalObject(line)
	if err != nil {
		return Message[P]{}, err
	}

	var src, dest string
	if ok, err := member(fields, "src", &src); err != nil {
		return Message[P]{}, err
	} else if !ok {
		return Message[P]{}, fmt.Errorf("%w: src", errspkg.ErrMissingField)
	}
	if ok, err := member(fields, "dest", &dest); err != nil {
		return Message[P]{}, err
	} else if !ok {
		return Message[P]{}, fmt.Errorf("%w: dest", errspkg.ErrMissingField)
	}
	raw, ok := fields["body"]
	if !ok || isJSONNull(raw) {
		return Message[P]{}, fmt.Errorf("%w: body", errspkg.ErrMissingField)
	}

	var body Body[P]
	if err := body.UnmarshalJSON(raw); err != nil {
		return Message[P]{}, err
	}
	return Message[P]{Src: src, Dest: dest, Body: body}, nil
}

// member decodes fields[name] into v. It reports false when the member is
// absent or null.
func member(fields map[string]jsoncodec.RawMessage, name string, v any) (bool, error) {
	raw, ok := fields[name]
	if !ok || isJSONNull(raw) {
		return false, nil
	}
	if err := jsoncodec.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("glomers: member %q: %w", name, err)
	}
	return true, nil
}

func optionalID(fields map[string]jsoncodec.RawMessage, name string) (*uint64, error) {
	var id uint64
	ok, err := member(fields, name, &id)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

// Encode renders msg as a single JSON line without the trailing newline.
func Encode[P Payload](msg Message[P]) ([]byte, error) {
	return jsoncodec.Marshal(msg)
}

// Reply addresses payload back to the sender of in: source and destination are
// swapped, msg_id is id and in_reply_to is the msg_id of in.
func Reply[I, O Payload](in Message[I], id uint64, payload O) Message[O] {
	return Message[O]{
		Src:  in.Dest,
		Dest: in.Src,
		Body: Body[O]{
			ID:        &id,
			InReplyTo: copyID(in.Body.ID),
			Payload:   payload,
		},
	}
}

func copyID(id *uint64) *uint64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func objectMembers(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil, fmt.Errorf("must encode as a JSON object, got %s", trimmed)
	}
	return bytes.TrimSpace(trimmed[1 : len(trimmed)-1]), nil
}

func isJSONNull(raw jsoncodec.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func isNilPayload(p any) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
