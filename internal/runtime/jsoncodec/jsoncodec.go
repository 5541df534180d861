package jsoncodec

import (
	"encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

// RawMessage is a raw encoded JSON value, kept undecoded until its shape is known.
type RawMessage = json.RawMessage

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// UnmarshalObject decodes a JSON object into its top-level members without
// decoding the member values.
func UnmarshalObject(data []byte) (map[string]RawMessage, error) {
	var fields map[string]RawMessage
	if err := defaultConfig.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Encode writes v to w as one JSON value followed by a newline.
func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}
