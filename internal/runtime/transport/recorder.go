package transport

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mponcet/gossip-glomers/internal/runtime/jsoncodec"
)

// Record is one captured line.
type Record struct {
	UUID      string            `json:"uuid"`
	Direction string            `json:"direction"`
	At        time.Time         `json:"at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Line      string            `json:"line"`
}

// Recorder appends every published message to a JSON-lines file. The topic is
// stored as the record direction.
type Recorder struct {
	path string

	mu     sync.Mutex
	f      *os.File
	now    func() time.Time
	closed bool
}

// NewRecorder opens path for appending, creating it when missing.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &Recorder{path: path, f: f, now: time.Now}, nil
}

func (r *Recorder) Publish(topic string, messages ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrPublisherClosed
	}

	for _, msg := range messages {
		rec := Record{
			UUID:      msg.UUID,
			Direction: topic,
			At:        r.now().UTC(),
			Metadata:  msg.Metadata,
			Line:      string(msg.Payload),
		}

		if err := jsoncodec.Encode(r.f, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}

// Path returns the file being written.
func (r *Recorder) Path() string {
	return r.path
}

// ReadRecords parses a recording. Malformed lines are skipped and logged.
func ReadRecords(src io.Reader, logger watermill.LoggerAdapter) ([]Record, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	var records []Record
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			var rec Record
			if uerr := jsoncodec.Unmarshal(line, &rec); uerr != nil {
				logger.Error("skipping malformed record", uerr, nil)
			} else {
				records = append(records, rec)
			}
		}
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
	}
}
