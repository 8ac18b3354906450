package sim

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned when a client action requires a connection.
	ErrNotConnected = errors.New("simulator not connected")
	// ErrUnsupported is returned when the simulator cannot serve a request kind.
	ErrUnsupported = errors.New("operation not supported by simulator")
)

// DataType is the wire type a variable is requested with.
type DataType uint8

const (
	DataFloat64 DataType = iota
	DataInt32
	DataInt64
	DataString
)

func (d DataType) String() string {
	switch d {
	case DataFloat64:
		return "float64"
	case DataInt32:
		return "int32"
	case DataInt64:
		return "int64"
	case DataString:
		return "string"
	}
	return "invalid"
}

// Period is the native update period of a subscription.
type Period uint8

const (
	PeriodNever Period = iota
	PeriodOnce
	PeriodVisualFrame
	PeriodSimFrame
	PeriodSecond
)

// VariableDef describes one variable to the simulator. ID doubles as the
// definition and request id.
type VariableDef struct {
	ID       uint32
	Kind     byte // 'A', 'L', 'Q', 'E'
	Name     string
	Unit     string
	DataType DataType
}

// Handlers receives messages pumped by Dispatch. All callbacks run on the
// goroutine that called Dispatch.
type Handlers struct {
	// OnValue delivers a raw value for a variable id. raw is one of
	// float64, int32, int64 or string.
	OnValue func(id uint32, raw any)
	// OnOpen fires once the simulator accepted the session.
	OnOpen func(appName string)
	// OnQuit fires when the simulator closed the session.
	OnQuit func()
	// OnException reports a rejected request.
	OnException func(code, sendID uint32)
}

// Client defines the capabilities the sync engine needs from the simulator.
// Implementations are not safe for concurrent use: every call must come
// from the single goroutine that called Connect.
type Client interface {
	// Connect opens a session. It must not block for longer than ctx allows.
	Connect(ctx context.Context) error
	// Disconnect closes the session. Safe to call when not connected.
	Disconnect() error
	// Connected reports whether a session is open.
	Connected() bool
	// Dispatch pumps pending messages into the registered handlers.
	Dispatch(ctx context.Context) error
	// DefineVariable registers a variable definition for the session.
	DefineVariable(def VariableDef) error
	// RequestValue asks for a single value update. Fire-and-forget.
	RequestValue(id uint32) error
	// SubscribeValue asks for updates at a native period.
	SubscribeValue(id uint32, period Period) error
	// MapEvent binds a client event id to a simulator event name.
	MapEvent(id uint32, name string) error
	// TransmitEvent sends a mapped event with its payload.
	TransmitEvent(id, data uint32) error
	// SetHandlers installs message callbacks.
	SetHandlers(h Handlers)
}
