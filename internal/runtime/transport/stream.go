package transport

import (
	"errors"
	"io"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
)

// Topics used when publishing. The stream publisher ignores them; the recorder
// stores them as the record direction.
const (
	TopicInbound  = "in"
	TopicOutbound = "out"
)

var ErrPublisherClosed = errors.New("glomers: publisher closed")

// StreamPublisher writes each message payload as one line on an io.Writer.
type StreamPublisher struct {
	w      io.Writer
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	buf    []byte
	closed bool
}

// NewStreamPublisher publishes to w. A nil logger discards.
func NewStreamPublisher(w io.Writer, logger watermill.LoggerAdapter) *StreamPublisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &StreamPublisher{w: w, logger: logger}
}

// Publish writes payload and '\n' with a single Write per message, in order.
func (p *StreamPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errspkg.NewTransportError("write", ErrPublisherClosed)
	}

	for _, msg := range messages {
		p.buf = append(p.buf[:0], msg.Payload...)
		p.buf = append(p.buf, '\n')

		n, err := p.w.Write(p.buf)
		if err == nil && n < len(p.buf) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return errspkg.NewTransportError("write", err)
		}
		p.logger.Trace("line written", watermill.LogFields{
			"topic":        topic,
			"message_uuid": msg.UUID,
			"bytes":        n,
		})
	}
	return nil
}

// Close stops further publishing. The underlying writer is left open.
func (p *StreamPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Tee publishes to primary and then to each mirror. Only the primary's error is
// returned; mirror failures are logged.
func Tee(primary message.Publisher, logger watermill.LoggerAdapter, mirrors ...message.Publisher) message.Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &teePublisher{primary: primary, mirrors: mirrors, logger: logger}
}

type teePublisher struct {
	primary message.Publisher
	mirrors []message.Publisher
	logger  watermill.LoggerAdapter
}

func (t *teePublisher) Publish(topic string, messages ...*message.Message) error {
	if err := t.primary.Publish(topic, messages...); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Publish(topic, messages...); err != nil {
			t.logger.Error("mirror publish failed", err, watermill.LogFields{"topic": topic})
		}
	}
	return nil
}

func (t *teePublisher) Close() error {
	errs := []error{t.primary.Close()}
	for _, m := range t.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
