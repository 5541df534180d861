package jsoncodec

import (
	"bytes"
	"testing"
)

type testPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := testPayload{ID: 42, Name: "glomers"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out testPayload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected round trip to match, got %#v", out)
	}
}

func TestMarshalIsCompact(t *testing.T) {
	data, err := Marshal(testPayload{ID: 1, Name: "n1"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"id":1,"name":"n1"}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestUnmarshalObject(t *testing.T) {
	fields, err := UnmarshalObject([]byte(`{"type":"echo","echo":{"nested":true},"msg_id":3}`))
	if err != nil {
		t.Fatalf("unmarshal object failed: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 members, got %d", len(fields))
	}
	if string(fields["echo"]) != `{"nested":true}` {
		t.Fatalf("expected raw nested value, got %s", fields["echo"])
	}

	if _, err := UnmarshalObject([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected error for non-object input")
	}
}

func TestEncodeWritesOneLine(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, testPayload{ID: 7, Name: "stream"}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if buf.String() != `{"id":7,"name":"stream"}`+"\n" {
		t.Fatalf("unexpected encoding %q", buf.String())
	}
}
