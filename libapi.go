package glomers

import (
	"io"

	runtimepkg "github.com/mponcet/gossip-glomers/internal/runtime"
	configpkg "github.com/mponcet/gossip-glomers/internal/runtime/config"
	errspkg "github.com/mponcet/gossip-glomers/internal/runtime/errors"
	handlerpkg "github.com/mponcet/gossip-glomers/internal/runtime/handlers"
	idspkg "github.com/mponcet/gossip-glomers/internal/runtime/ids"
	loggingpkg "github.com/mponcet/gossip-glomers/internal/runtime/logging"
	metadatapkg "github.com/mponcet/gossip-glomers/internal/runtime/metadata"
	"github.com/mponcet/gossip-glomers/internal/runtime/protocol"
	transportpkg "github.com/mponcet/gossip-glomers/internal/runtime/transport"
)

type (
	Config = configpkg.Config

	Payload                   = protocol.Payload
	Message[P Payload]        = protocol.Message[P]
	Body[P Payload]           = protocol.Body[P]
	Init                      = protocol.Init
	InitOk                    = protocol.InitOk
	Handler[I, O Payload]     = handlerpkg.Handler[I, O]
	HandlerFunc[I, O Payload] = handlerpkg.HandlerFunc[I, O]
	MessageContext            = handlerpkg.MessageContext

	Builder                  = runtimepkg.Builder
	Configured[I, O Payload] = runtimepkg.Configured[I, O]
	Runtime[I, O Payload]    = runtimepkg.Runtime[I, O]
	Option                   = runtimepkg.Option

	Env                    = runtimepkg.Env
	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	Metrics                = runtimepkg.Metrics

	// Dispatch lifecycle hooks
	DispatchContext = runtimepkg.DispatchContext
	DispatchHooks   = runtimepkg.DispatchHooks

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	DecodeError           = errspkg.DecodeError
	TransportError        = errspkg.TransportError
	ConfigValidationError = errspkg.ConfigValidationError

	// Record is one line of a Config.RecordFile capture.
	Record = transportpkg.Record
)

var (
	NewBuilder         = runtimepkg.NewBuilder
	WithInput          = runtimepkg.WithInput
	WithOutput         = runtimepkg.WithOutput
	WithLogger         = runtimepkg.WithLogger
	WithConfig         = runtimepkg.WithConfig
	WithMiddlewares    = runtimepkg.WithMiddlewares
	WithHooks          = runtimepkg.WithHooks
	WithRegisterer     = runtimepkg.WithRegisterer
	WithTracerProvider = runtimepkg.WithTracerProvider

	DefaultMiddlewares    = runtimepkg.DefaultMiddlewares
	LogMessagesMiddleware = runtimepkg.LogMessagesMiddleware
	TracerMiddleware      = runtimepkg.TracerMiddleware
	MetricsMiddleware     = runtimepkg.MetricsMiddleware
	NewMetrics            = runtimepkg.NewMetrics

	// Dispatch lifecycle hooks
	DispatchHooksMiddleware = runtimepkg.DispatchHooksMiddleware
	LoggingHooks            = runtimepkg.LoggingHooks

	LoadConfig     = configpkg.Load
	DefaultConfig  = configpkg.Default
	ValidateConfig = configpkg.ValidateConfig

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewStderrLogger      = loggingpkg.NewStderrLogger
	ParseLogLevel        = loggingpkg.ParseLevel
	NopLogger            = loggingpkg.NopLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID

	ErrHandlerRequired   = errspkg.ErrHandlerRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrHandshakeMissing  = errspkg.ErrHandshakeMissing
	ErrUnknownVariant    = errspkg.ErrUnknownVariant
	ErrMissingField      = errspkg.ErrMissingField
	ErrRuntimeTerminated = errspkg.ErrRuntimeTerminated
)

// Metadata keys stamped on every dispatched message.
const (
	MetadataKeySource    = metadatapkg.KeySource
	MetadataKeyDest      = metadatapkg.KeyDest
	MetadataKeyMsgID     = metadatapkg.KeyMsgID
	MetadataKeyType      = metadatapkg.KeyType
	MetadataKeyStage     = metadatapkg.KeyStage
	MetadataKeyDirection = metadatapkg.KeyDirection
)

// Unique id strategies accepted by Config.IDStrategy.
const (
	IDStrategyCounter = configpkg.IDStrategyCounter
	IDStrategyULID    = configpkg.IDStrategyULID
)

func WithHandler[I, O Payload](b Builder, h Handler[I, O]) Configured[I, O] {
	return runtimepkg.WithHandler(b, h)
}

func RegisterVariants[P Payload](variants ...P) {
	protocol.RegisterVariants(variants...)
}

func Variants[P Payload]() []string {
	return protocol.Variants[P]()
}

func Decode[P Payload](line []byte) (Message[P], error) {
	return protocol.Decode[P](line)
}

func Encode[P Payload](msg Message[P]) ([]byte, error) {
	return protocol.Encode(msg)
}

func Reply[I, O Payload](in Message[I], id uint64, payload O) Message[O] {
	return protocol.Reply(in, id, payload)
}

// ReadRecords parses a capture written through Config.RecordFile, oldest line
// first. Malformed lines are skipped and reported to logger, which may be nil.
func ReadRecords(r io.Reader, logger ServiceLogger) ([]Record, error) {
	if logger == nil {
		return transportpkg.ReadRecords(r, nil)
	}
	return transportpkg.ReadRecords(r, loggingpkg.NewWatermillAdapter(logger))
}
