package action

// Command identifies an action handled inside the engine rather than
// transmitted to the simulator. Command ids stay below EventIDOffset.
type Command uint32

const (
	CmdNone Command = iota
	CmdToggleConnection
	CmdConnect
	CmdDisconnect
	CmdReloadStates
	CmdResetConnection
	CmdSetAutoReconnect
)

var commandNames = map[string]Command{
	"ToggleConnection": CmdToggleConnection,
	"Connect":          CmdConnect,
	"Disconnect":       CmdDisconnect,
	"ReloadStates":     CmdReloadStates,
	"ResetConnection":  CmdResetConnection,
	"SetAutoReconnect": CmdSetAutoReconnect,
}

// ParseCommand looks up a command by name.
func ParseCommand(name string) (Command, bool) {
	c, ok := commandNames[name]
	return c, ok
}

func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "None"
}

// PluginCategory is the category of the engine's own actions.
const PluginCategory = "Plugin"

// PluginDefinitions returns the actions the engine always provides.
func PluginDefinitions() []Definition {
	return []Definition{
		{
			ID:       "Plugin.Connection",
			Category: PluginCategory,
			Name:     "Connection",
			Data: []DataField{
				{ID: "Action", Type: FieldChoice, Choices: []string{"Toggle", "Connect", "Disconnect", "Reload States", "Reset Connection"}},
			},
			Events: []EventDef{
				{Values: []string{"Toggle"}, Command: "ToggleConnection"},
				{Values: []string{"Connect"}, Command: "Connect"},
				{Values: []string{"Disconnect"}, Command: "Disconnect"},
				{Values: []string{"Reload States"}, Command: "ReloadStates"},
				{Values: []string{"Reset Connection"}, Command: "ResetConnection"},
			},
		},
		{
			ID:       "Plugin.AutoReconnect",
			Category: PluginCategory,
			Name:     "Auto Reconnect",
			Data: []DataField{
				{ID: "Mode", Type: FieldChoice, Choices: []string{"Toggle", "On", "Off"}},
			},
			Events: []EventDef{
				{Command: "SetAutoReconnect"},
			},
		},
	}
}
