package runtime

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
)

const initLine = `{"src":"c1","dest":"n1","body":{"msg_id":1,"type":"init","node_id":"n1","node_ids":["n1","n2"]}}`

const initOkLine = `{"src":"n1","dest":"c1","body":{"msg_id":0,"in_reply_to":1,"type":"init_ok"}}`

type echo struct {
	Echo string `json:"echo"`
}

func (echo) Type() string { return "echo" }

type echoOk struct {
	Echo string `json:"echo"`
}

func (echoOk) Type() string { return "echo_ok" }

type echoHandler struct{}

func (echoHandler) Reply(_ handlers.MessageContext, in echo) echoOk {
	return echoOk{Echo: in.Echo}
}

// contextRecorder keeps every MessageContext it was called with.
type contextRecorder struct {
	seen []handlers.MessageContext
}

func (c *contextRecorder) Reply(ctx handlers.MessageContext, in echo) echoOk {
	c.seen = append(c.seen, ctx)
	return echoOk{Echo: in.Echo}
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func newEchoRuntime(input string, out *bytes.Buffer, opts ...Option) *Runtime[echo, echoOk] {
	return newRuntime[echo, echoOk](echoHandler{}, input, out, opts...)
}

func newRuntime[I, O protocol.Payload](h handlers.Handler[I, O], input string, out *bytes.Buffer, opts ...Option) *Runtime[I, O] {
	base := []Option{
		WithInput(strings.NewReader(input)),
		WithOutput(out),
		WithLogger(loggingpkg.NopLogger()),
	}
	return WithHandler(NewBuilder(append(base, opts...)...), h).Build()
}

func outputLines(t *testing.T, out *bytes.Buffer) []string {
	t.Helper()
	s := out.String()
	if s == "" {
		return nil
	}
	if !strings.HasSuffix(s, "\n") {
		t.Fatalf("output does not end with a newline: %q", s)
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type recordingLogger struct {
	mu      sync.Mutex
	entries *[]logEntry
	fields  loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{entries: &[]logEntry{}}
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{entries: l.entries, fields: merged}
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) Entries() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), *l.entries...)
}

func (l *recordingLogger) Messages(level string) []string {
	var msgs []string
	for _, e := range l.Entries() {
		if e.level == level {
			msgs = append(msgs, e.msg)
		}
	}
	return msgs
}

type recordingTracerProvider struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []string
}

func (p *recordingTracerProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{provider: p}
}

func (p *recordingTracerProvider) Spans() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.spans...)
}

type recordingTracer struct {
	noop.Tracer
	provider *recordingTracerProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.provider.mu.Lock()
	t.provider.spans = append(t.provider.spans, name)
	t.provider.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}
