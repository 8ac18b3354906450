// Package wsclient connects the engine to the control surface over a JSON
// websocket.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"simbridge/pkg/surface"
)

const writeWait = 5 * time.Second

// ErrClosed is returned by pushes after the connection closed.
var ErrClosed = errors.New("surface connection closed")

// Client is a surface.Publisher over one websocket connection.
type Client struct {
	pluginID string
	session  string
	logger   *slog.Logger

	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Dial connects to the surface and sends the pairing message.
func Dial(ctx context.Context, url, pluginID string) (*Client, error) {
	header := http.Header{}
	header.Set("User-Agent", "simbridge/"+pluginID)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("surface handshake failed (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("surface dial failed: %w", err)
	}

	c := &Client{
		pluginID: pluginID,
		session:  uuid.NewString(),
		logger:   slog.Default().With("component", "surface"),
		conn:     conn,
	}
	if err := c.write(pairMessage{Type: TypePair, ID: pluginID, Session: c.session}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send pair: %w", err)
	}
	c.logger.Info("Paired with control surface", "url", url, "session", c.session)
	return c, nil
}

// Session returns the pairing session id.
func (c *Client) Session() string { return c.session }

func (c *Client) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// PushState sets a surface state value.
func (c *Client) PushState(id, value string) error {
	return c.write(stateMessage{Type: TypeStateUpdate, ID: id, Value: value})
}

// PushSettingUpdate overwrites a plugin setting shown by the surface.
func (c *Client) PushSettingUpdate(name, value string) error {
	return c.write(settingMessage{Type: TypeSettingUpdate, Name: name, Value: value})
}

// PushConnectorUpdate moves a slider.
func (c *Client) PushConnectorUpdate(shortID string, value int) error {
	return c.write(connectorMessage{Type: TypeConnectorUpdate, ShortID: shortID, Value: value})
}

// Close closes the connection. Run returns afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}

// Run reads messages into h until the connection closes, the surface asks
// the plugin to close, or ctx is cancelled.
func (c *Client) Run(ctx context.Context, h surface.Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.OnClose()
				return nil
			}
			return fmt.Errorf("surface read failed: %w", err)
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Ignoring malformed surface message", "error", err)
			continue
		}
		if done := c.handle(msg, h); done {
			return nil
		}
	}
}

// handle routes one message. It reports true when the plugin must close.
func (c *Client) handle(msg inbound, h surface.Handler) bool {
	switch msg.Type {
	case TypeInfo:
		c.logger.Info("Control surface info", "version", msg.Version, "sdk", msg.SDKVersion)
		if len(msg.Settings) > 0 {
			h.OnSettings(flattenSettings(msg.Settings))
		}
	case TypeSettings:
		h.OnSettings(flattenSettings(msg.Values))
	case TypeAction, TypeDown, TypeUp:
		press := surface.Tap
		switch msg.Type {
		case TypeDown:
			press = surface.Down
		case TypeUp:
			press = surface.Up
		}
		h.OnAction(surface.ActionEvent{
			ActionID:   msg.ActionID,
			InstanceID: msg.InstanceID,
			Data:       msg.dataValues(),
			Press:      press,
		})
	case TypeConnectorChange:
		v, err := parseInt(msg.Value)
		if err != nil {
			c.logger.Warn("Ignoring connector value", "connector", msg.ConnectorID, "error", err)
			return false
		}
		h.OnConnector(surface.ConnectorEvent{
			ConnectorID: msg.ConnectorID,
			Data:        msg.dataValues(),
			Value:       v,
		})
	case TypeShortConnector:
		id, data := parseLongConnectorID(msg.ConnectorID)
		h.OnShortID(id, data, msg.ShortID)
	case TypeClosePlugin:
		c.logger.Info("Control surface requested close")
		h.OnClose()
		return true
	default:
		c.logger.Debug("Unhandled surface message", "type", msg.Type)
	}
	return false
}

// parseInt accepts a JSON number or a numeric string.
func parseInt(raw json.RawMessage) (int, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value %s is not a number", raw)
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("value %q is not a number", s)
	}
	return i, nil
}

var _ surface.Publisher = (*Client)(nil)
