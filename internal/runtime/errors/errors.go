package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrHandlerRequired   = sterrors.New("glomers: handler is required")
	ErrConfigRequired    = sterrors.New("glomers: configuration is required")
	ErrLoggerRequired    = sterrors.New("glomers: logger is required")
	ErrHandshakeMissing  = sterrors.New("glomers: input closed before init message")
	ErrUnknownVariant    = sterrors.New("glomers: unknown message type")
	ErrMissingField      = sterrors.New("glomers: required field missing")
	ErrRuntimeTerminated = sterrors.New("glomers: runtime already ran")
)

// Decode stages reported by DecodeError.
const (
	StageInit  = "init"
	StageServe = "serve"
)

// DecodeError reports a line that could not be decoded into the envelope expected
// at the current protocol stage.
type DecodeError struct {
	Stage string
	Line  string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("glomers: decode: %v", e.Err)
	}
	return fmt.Sprintf("glomers: decode %s message: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps err. A nil err yields nil.
func NewDecodeError(stage string, line []byte, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Stage: stage, Line: string(line), Err: err}
}

// TransportError reports a failure to read from or write to the process streams.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("glomers: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps err. A nil err yields nil.
func NewTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// ConfigValidationError wraps the joined problems reported by config validation.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "glomers: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError wraps err. A nil err yields nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
