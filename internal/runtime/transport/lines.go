// Package transport moves newline-delimited protocol lines between the runtime
// and its byte streams.
package transport

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
)

// LineReader splits an input stream into lines. Lines end at '\n'; a trailing
// '\r' is dropped and a final line without terminator is still returned.
type LineReader struct {
	r    *bufio.Reader
	read uint64
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// Next returns the next line without its terminator. It returns io.EOF once the
// stream is exhausted; any other failure is a *errors.TransportError.
func (l *LineReader) Next() ([]byte, error) {
	line, err := l.r.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errspkg.NewTransportError("read", err)
	}
	if len(line) == 0 && err != nil {
		return nil, io.EOF
	}

	l.read++
	line = bytes.TrimSuffix(line, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return line, nil
}

// Count reports how many lines Next has returned.
func (l *LineReader) Count() uint64 {
	return l.read
}
