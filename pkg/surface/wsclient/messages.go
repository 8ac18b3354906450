package wsclient

import (
	"encoding/json"
	"strings"
)

// Message types exchanged with the surface.
const (
	TypePair            = "pair"
	TypeInfo            = "info"
	TypeAction          = "action"
	TypeDown            = "down"
	TypeUp              = "up"
	TypeConnectorChange = "connectorChange"
	TypeShortConnector  = "shortConnectorIdNotification"
	TypeSettings        = "settings"
	TypeClosePlugin     = "closePlugin"
	TypeStateUpdate     = "stateUpdate"
	TypeSettingUpdate   = "settingUpdate"
	TypeConnectorUpdate = "connectorUpdate"
)

type dataItem struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// inbound is the union of every message the surface sends.
type inbound struct {
	Type        string            `json:"type"`
	PluginID    string            `json:"pluginId,omitempty"`
	ActionID    string            `json:"actionId,omitempty"`
	InstanceID  string            `json:"instanceId,omitempty"`
	ConnectorID string            `json:"connectorId,omitempty"`
	ShortID     string            `json:"shortId,omitempty"`
	Value       json.RawMessage   `json:"value,omitempty"`
	Data        []dataItem        `json:"data,omitempty"`
	Settings    []json.RawMessage `json:"settings,omitempty"`
	Values      []json.RawMessage `json:"values,omitempty"`
	SDKVersion  int               `json:"sdkVersion,omitempty"`
	Version     string            `json:"tpVersionString,omitempty"`
}

func (m inbound) dataValues() []string {
	out := make([]string, len(m.Data))
	for i, d := range m.Data {
		out[i] = d.Value
	}
	return out
}

type pairMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Session string `json:"session"`
}

type stateMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Value string `json:"value"`
}

type settingMessage struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type connectorMessage struct {
	Type    string `json:"type"`
	ShortID string `json:"shortId"`
	Value   int    `json:"value"`
}

// flattenSettings merges the surface's list of single-entry objects
// ([{"name": "value"}, ...]) into one map. Non-string values keep their
// JSON text.
func flattenSettings(items []json.RawMessage) map[string]string {
	out := make(map[string]string)
	for _, raw := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		for k, v := range obj {
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				out[k] = s
				continue
			}
			out[k] = strings.TrimSpace(string(v))
		}
	}
	return out
}

// parseLongConnectorID splits "pc_plugin_id|field=value|field=value" into
// the connector id and its data values in order.
func parseLongConnectorID(long string) (string, []string) {
	parts := strings.Split(long, "|")
	data := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if i := strings.IndexByte(p, '='); i >= 0 {
			data = append(data, p[i+1:])
			continue
		}
		data = append(data, p)
	}
	return parts[0], data
}
