package runtime

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/mponcet/gossip-glomers/internal/runtime/config"
	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	idspkg "github.com/mponcet/gossip-glomers/internal/runtime/ids"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	metadatapkg "github.com/mponcet/gossip-glomers/internal/runtime/metadata"
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
	"github.com/mponcet/gossip-glomers/internal/runtime/transport"
)

// Runtime drives one node: it answers the init handshake, then feeds every
// following line to the handler and writes one reply per line.
type Runtime[I, O protocol.Payload] struct {
	handler     handlers.Handler[I, O]
	in          io.Reader
	out         io.Writer
	conf        *config.Config
	logger      loggingpkg.ServiceLogger
	middlewares []MiddlewareRegistration
	hooks       DispatchHooks
	registerer  prometheus.Registerer
	tracer      trace.TracerProvider

	mu        sync.RWMutex
	started   bool
	hasNodeID bool
	nodeID    string
	nodeIDs   []string
	lastID    uint64
	linesRead uint64
}

// NodeID returns the identifier assigned by the handshake. ok is false before it.
func (r *Runtime[I, O]) NodeID() (id string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodeID, r.hasNodeID
}

// NodeIDs returns a copy of the cluster roster, nil before the handshake.
func (r *Runtime[I, O]) NodeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.nodeIDs)
}

// LastID is the msg_id of the most recent non-handshake reply, 0 if none.
func (r *Runtime[I, O]) LastID() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastID
}

// Run processes input until it ends. It returns nil when input ends after a
// completed handshake. Decode failures are *errors.DecodeError and stream
// failures are *errors.TransportError; both stop the loop. Run may be called
// once.
func (r *Runtime[I, O]) Run() error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errspkg.ErrRuntimeTerminated
	}
	r.started = true
	r.mu.Unlock()

	err := r.run()
	r.mu.RLock()
	fields := loggingpkg.LogFields{"last_msg_id": r.lastID, "lines_read": r.linesRead}
	r.mu.RUnlock()
	if err != nil {
		r.logger.Error("Runtime stopped", err, fields)
		return err
	}
	r.logger.Info("Input closed", fields)
	return nil
}

func (r *Runtime[I, O]) run() error {
	if err := config.ValidateConfig(r.conf); err != nil {
		return errspkg.NewConfigValidationError(err)
	}

	env := Env{Conf: r.conf, Logger: r.logger, Tracer: r.tracer}
	if r.conf.MetricsEnabled {
		m, err := NewMetrics(r.registerer)
		if err != nil {
			return fmt.Errorf("glomers: register metrics: %w", err)
		}
		env.Metrics = m

		if r.conf.MetricsAddr != "" {
			gatherer, ok := r.registerer.(prometheus.Gatherer)
			if !ok {
				r.logger.Info("Metrics registerer cannot be gathered, not serving /metrics", nil)
			} else {
				srv, err := startMetricsServer(r.conf.MetricsAddr, gatherer, r.logger)
				if err != nil {
					return fmt.Errorf("glomers: serve metrics: %w", err)
				}
				defer srv.shutdown()
			}
		}
	}

	regs := r.middlewares
	if !r.hooks.empty() {
		regs = append(slices.Clone(regs), DispatchHooksMiddleware(r.hooks))
	}
	chain, err := buildChain(env, regs)
	if err != nil {
		return err
	}

	tr, err := transport.Build(r.in, r.out, r.conf, loggingpkg.NewWatermillAdapter(r.logger))
	if err != nil {
		return err
	}
	defer func() {
		r.mu.Lock()
		r.linesRead = tr.Lines.Count()
		r.mu.Unlock()
		if err := tr.Close(); err != nil {
			r.logger.Error("Closing transport", err, nil)
		}
	}()
	if tr.Recorder != nil {
		r.logger.Info("Recording traffic", loggingpkg.LogFields{"path": tr.Recorder.Path()})
	}

	handshake := applyChain(r.handshake, chain)
	serve := applyChain(r.serve, chain)

	line, err := tr.Lines.Next()
	if errors.Is(err, io.EOF) {
		return errspkg.NewTransportError("read", errspkg.ErrHandshakeMissing)
	}
	if err != nil {
		return err
	}
	if err := r.dispatch(tr, handshake, errspkg.StageInit, line); err != nil {
		return err
	}

	for {
		line, err := tr.Lines.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.dispatch(tr, serve, errspkg.StageServe, line); err != nil {
			return err
		}
	}
}

func (r *Runtime[I, O]) dispatch(tr transport.Transport, h message.HandlerFunc, stage string, line []byte) error {
	msg := message.NewMessage(idspkg.CreateULID(), line)
	msg.Metadata.Set(metadatapkg.KeyStage, stage)
	msg.Metadata.Set(metadatapkg.KeyDirection, transport.TopicInbound)

	if err := tr.RecordInbound(msg); err != nil {
		r.logger.Error("Recording inbound line", err, loggingpkg.LogFields{"message_uuid": msg.UUID})
	}

	out, err := h(msg)
	if err != nil {
		return err
	}
	return tr.Publisher.Publish(transport.TopicOutbound, out...)
}

func (r *Runtime[I, O]) handshake(msg *message.Message) ([]*message.Message, error) {
	in, err := protocol.DecodeAt[protocol.Init](errspkg.StageInit, msg.Payload)
	if err != nil {
		return nil, err
	}
	stampInbound(msg, in.Src, in.Dest, in.Body.ID, protocol.TypeInit)

	r.mu.Lock()
	r.nodeID = in.Body.Payload.NodeID
	r.nodeIDs = slices.Clone(in.Body.Payload.NodeIDs)
	r.hasNodeID = true
	r.mu.Unlock()

	r.logger.Info("Handshake complete", loggingpkg.LogFields{
		"node_id":     in.Body.Payload.NodeID,
		"roster_size": len(in.Body.Payload.NodeIDs),
	})

	return outbound(errspkg.StageInit, protocol.Reply(in, 0, protocol.InitOk{}))
}

func (r *Runtime[I, O]) serve(msg *message.Message) ([]*message.Message, error) {
	in, err := protocol.DecodeAt[I](errspkg.StageServe, msg.Payload)
	if err != nil {
		return nil, err
	}
	stampInbound(msg, in.Src, in.Dest, in.Body.ID, in.Body.Payload.Type())

	r.mu.Lock()
	r.lastID++
	id := r.lastID
	nodeID, nodeIDs := r.nodeID, r.nodeIDs
	r.mu.Unlock()

	ctx := handlers.NewMessageContext(nodeID, nodeIDs, in.Src, in.Dest, in.Body.ID, metadatapkg.FromWatermill(msg.Metadata), r.logger)
	reply := r.handler.Reply(ctx, in.Body.Payload)

	return outbound(errspkg.StageServe, protocol.Reply(in, id, reply))
}

func stampInbound(msg *message.Message, src, dest string, id *uint64, typ string) {
	msg.Metadata.Set(metadatapkg.KeySource, src)
	msg.Metadata.Set(metadatapkg.KeyDest, dest)
	msg.Metadata.Set(metadatapkg.KeyType, typ)
	if id != nil {
		msg.Metadata.Set(metadatapkg.KeyMsgID, strconv.FormatUint(*id, 10))
	}
}

func outbound[P protocol.Payload](stage string, reply protocol.Message[P]) ([]*message.Message, error) {
	payload, err := protocol.Encode(reply)
	if err != nil {
		return nil, fmt.Errorf("glomers: encode %s reply: %w", stage, err)
	}

	md := metadatapkg.New(
		metadatapkg.KeyStage, stage,
		metadatapkg.KeyDirection, transport.TopicOutbound,
		metadatapkg.KeySource, reply.Src,
		metadatapkg.KeyDest, reply.Dest,
		metadatapkg.KeyType, reply.Body.Payload.Type(),
	)
	if reply.Body.ID != nil {
		md = md.With(metadatapkg.KeyMsgID, strconv.FormatUint(*reply.Body.ID, 10))
	}

	out := message.NewMessage(idspkg.CreateULID(), payload)
	out.Metadata = metadatapkg.ToWatermill(md)
	return []*message.Message{out}, nil
}
