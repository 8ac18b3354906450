// Package surface defines what the engine exchanges with the control
// surface application.
package surface

import "strings"

// Press is the gesture of an action event.
type Press uint8

const (
	Tap Press = iota
	Down
	Up
)

func (p Press) String() string {
	switch p {
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return "tap"
	}
}

// ActionEvent is a button action fired on the surface.
type ActionEvent struct {
	ActionID string
	// InstanceID identifies one button across its down and up events.
	InstanceID string
	Data       []string
	Press      Press
}

// HoldKey returns the key of the repeat timer of a held action.
func (e ActionEvent) HoldKey() string {
	if e.InstanceID != "" {
		return e.InstanceID
	}
	return e.ActionID + "|" + strings.Join(e.Data, "|")
}

// ConnectorEvent is a slider movement.
type ConnectorEvent struct {
	ConnectorID string
	Data        []string
	// Value is the slider position, 0 to 100.
	Value int
}

// Settings are plugin settings by name as sent by the surface.
type Settings map[string]string

// Publisher pushes engine output to the surface.
type Publisher interface {
	PushState(id, value string) error
	PushSettingUpdate(name, value string) error
	PushConnectorUpdate(shortID string, value int) error
}

// Handler receives surface input. Calls arrive on the surface's read
// goroutine and must not block.
type Handler interface {
	OnAction(ev ActionEvent)
	OnConnector(ev ConnectorEvent)
	OnShortID(connectorID string, data []string, shortID string)
	OnSettings(s Settings)
	OnClose()
}

// Discard is a Publisher that drops everything, used when no surface is
// attached.
type Discard struct{}

func (Discard) PushState(string, string) error         { return nil }
func (Discard) PushSettingUpdate(string, string) error { return nil }
func (Discard) PushConnectorUpdate(string, int) error  { return nil }
