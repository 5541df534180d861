package transport

import (
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mponcet/gossip-glomers/internal/runtime/config"
	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
)

// Transport bundles the line source and reply sink of one runtime.
type Transport struct {
	Lines     *LineReader
	Publisher message.Publisher
	// Recorder is set when conf.RecordFile is configured. Publisher already
	// mirrors outbound lines to it.
	Recorder *Recorder
}

// RecordInbound captures an inbound line when recording is enabled.
func (t Transport) RecordInbound(msg *message.Message) error {
	if t.Recorder == nil {
		return nil
	}
	return t.Recorder.Publish(TopicInbound, msg)
}

// Close closes the publisher chain, including the recorder.
func (t Transport) Close() error {
	if t.Publisher == nil {
		return nil
	}
	return t.Publisher.Close()
}

// Build wires in and out according to conf.
func Build(in io.Reader, out io.Writer, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, errspkg.ErrConfigRequired
	}
	if in == nil || out == nil {
		return Transport{}, fmt.Errorf("input and output streams are required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	stream := NewStreamPublisher(out, logger)
	if conf.RecordFile == "" {
		return Transport{Lines: NewLineReader(in), Publisher: stream}, nil
	}

	rec, err := NewRecorder(conf.RecordFile)
	if err != nil {
		return Transport{}, fmt.Errorf("open record file: %w", err)
	}
	return Transport{
		Lines:     NewLineReader(in),
		Publisher: Tee(stream, logger, rec),
		Recorder:  rec,
	}, nil
}
