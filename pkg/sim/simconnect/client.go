//go:build windows

package simconnect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"simbridge/pkg/sim"
)

// evtIDSimStop is the client event id of the SimStop subscription. It stays
// below the range used for action events.
const evtIDSimStop = 1

// maxDispatch bounds the messages handled per Dispatch call so one busy
// frame cannot starve the caller's loop.
const maxDispatch = 64

// Client implements sim.Client over SimConnect.dll. All calls must come
// from one goroutine.
type Client struct {
	handle    uintptr
	connected bool
	appName   string
	dllPath   string
	logger    *slog.Logger

	mu       sync.RWMutex
	handlers sim.Handlers
	defs     map[uint32]sim.VariableDef
}

// NewClient loads SimConnect.dll. If dllPath is empty the DLL is searched
// for in the usual locations.
func NewClient(appName, dllPath string) (*Client, error) {
	path, err := FindDLL(dllPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find SimConnect.dll: %w", err)
	}
	if err := LoadDLL(path); err != nil {
		return nil, err
	}
	return &Client{
		appName: appName,
		dllPath: path,
		logger:  slog.Default().With("component", "simconnect"),
		defs:    make(map[uint32]sim.VariableDef),
	}, nil
}

// Connect opens a session. SimConnect_Open does not block, so ctx is only
// checked up front.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.connected {
		return nil
	}
	handle, err := Open(c.appName)
	if err != nil {
		return err
	}
	c.handle = handle
	c.connected = true
	c.mu.Lock()
	c.defs = make(map[uint32]sim.VariableDef)
	c.mu.Unlock()

	if err := SubscribeToSystemEvent(c.handle, evtIDSimStop, "SimStop"); err != nil {
		c.logger.Warn("Failed to subscribe to SimStop", "error", err)
	}
	c.logger.Debug("SimConnect session opened", "dll", c.dllPath)
	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect() error {
	if !c.connected {
		return nil
	}
	err := Close(c.handle)
	c.handle = 0
	c.connected = false
	return err
}

// Connected reports whether a session is open.
func (c *Client) Connected() bool {
	return c.connected
}

// SetHandlers installs message callbacks.
func (c *Client) SetHandlers(h sim.Handlers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = h
}

// DefineVariable (re)creates the single-datum definition of a variable.
func (c *Client) DefineVariable(def sim.VariableDef) error {
	if !c.connected {
		return sim.ErrNotConnected
	}
	name, err := datumName(def)
	if err != nil {
		return err
	}
	c.mu.Lock()
	_, existed := c.defs[def.ID]
	c.defs[def.ID] = def
	c.mu.Unlock()

	if existed {
		if err := ClearDataDefinition(c.handle, def.ID); err != nil {
			return err
		}
	}
	unit := def.Unit
	if def.DataType == sim.DataString {
		unit = ""
	}
	return AddToDataDefinition(c.handle, def.ID, name, unit, wireDataType(def.DataType))
}

// RequestValue asks for one value of the user aircraft.
func (c *Client) RequestValue(id uint32) error {
	if !c.connected {
		return sim.ErrNotConnected
	}
	return RequestDataOnSimObject(c.handle, id, id, OBJECT_ID_USER, PERIOD_ONCE, DATA_REQUEST_FLAG_DEFAULT)
}

// SubscribeValue asks for updates whenever the value changes, checked at
// the given period.
func (c *Client) SubscribeValue(id uint32, period sim.Period) error {
	if !c.connected {
		return sim.ErrNotConnected
	}
	flags := DATA_REQUEST_FLAG_CHANGED
	if period == sim.PeriodOnce || period == sim.PeriodNever {
		flags = DATA_REQUEST_FLAG_DEFAULT
	}
	return RequestDataOnSimObject(c.handle, id, id, OBJECT_ID_USER, wirePeriod(period), flags)
}

// MapEvent binds a client event id to a simulator event name.
func (c *Client) MapEvent(id uint32, name string) error {
	if !c.connected {
		return sim.ErrNotConnected
	}
	return MapClientEventToSimEvent(c.handle, id, name)
}

// TransmitEvent sends a mapped event with its payload.
func (c *Client) TransmitEvent(id, data uint32) error {
	if !c.connected {
		return sim.ErrNotConnected
	}
	return TransmitClientEvent(c.handle, id, data)
}

// Dispatch drains queued messages into the handlers.
func (c *Client) Dispatch(ctx context.Context) error {
	if !c.connected {
		return sim.ErrNotConnected
	}
	for i := 0; i < maxDispatch; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ppData, cbData, err := GetNextDispatch(c.handle)
		if err != nil {
			return err
		}
		if ppData == nil {
			return nil
		}
		c.handleMessage(ppData, cbData)
		if !c.connected {
			return nil
		}
	}
	return nil
}

func (c *Client) handleMessage(ppData unsafe.Pointer, cbData uint32) {
	c.mu.RLock()
	h := c.handlers
	c.mu.RUnlock()

	recv := (*Recv)(ppData)
	switch recv.ID {
	case RECV_ID_OPEN:
		open := (*RecvOpen)(ppData)
		name := cStringToGo(open.ApplicationName[:])
		c.logger.Info("SimConnect Session Opened", "app", name,
			"version", fmt.Sprintf("%d.%d", open.ApplicationVersionMajor, open.ApplicationVersionMinor))
		if h.OnOpen != nil {
			h.OnOpen(name)
		}

	case RECV_ID_QUIT:
		c.handleQuit(h, "Msg")

	case RECV_ID_EVENT:
		evt := (*RecvEvent)(ppData)
		if evt.UEventID == evtIDSimStop {
			c.handleQuit(h, "Event")
		}

	case RECV_ID_EXCEPTION:
		ex := (*RecvException)(ppData)
		if h.OnException != nil {
			h.OnException(ex.Exception, ex.SendID)
		}

	case RECV_ID_SIMOBJECT_DATA:
		c.handleSimObjectData(h, ppData, cbData)
	}
}

func (c *Client) handleQuit(h sim.Handlers, source string) {
	c.logger.Info("Simulator Quit detected", "source", source)
	_ = c.Disconnect()
	if h.OnQuit != nil {
		h.OnQuit()
	}
}

func (c *Client) handleSimObjectData(h sim.Handlers, ppData unsafe.Pointer, cbData uint32) {
	data := (*RecvSimobjectData)(ppData)
	c.mu.RLock()
	def, ok := c.defs[data.DefineID]
	c.mu.RUnlock()
	if !ok || h.OnValue == nil {
		return
	}
	if cbData <= simobjectDataHeaderSize {
		return
	}
	payload := unsafe.Slice((*byte)(unsafe.Add(ppData, simobjectDataHeaderSize)), cbData-simobjectDataHeaderSize)
	v, err := decodeValue(payload, def.DataType)
	if err != nil {
		c.logger.Warn("Dropping malformed value", "variable", def.Name, "error", err)
		return
	}
	h.OnValue(def.ID, v)
}

var _ sim.Client = (*Client)(nil)
