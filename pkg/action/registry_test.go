package action

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinitions() []Definition {
	return []Definition{
		{
			ID:       "AutoPilot.Master",
			Category: "AutoPilot",
			Events:   []EventDef{{SimEvent: "AP_MASTER"}},
		},
		{
			ID:       "AutoPilot.Heading",
			Category: "AutoPilot",
			Holdable: true,
			Data: []DataField{
				{ID: "Action", Type: FieldChoice, Choices: []string{"Increase", "Decrease", "Select"}},
			},
			Events: []EventDef{
				{Values: []string{"Increase"}, SimEvent: "HEADING_BUG_INC"},
				{Values: []string{"Decrease"}, SimEvent: "HEADING_BUG_DEC"},
				{Values: []string{"Select"}, SimEvent: "HEADING_BUG_SELECT"},
			},
		},
		{
			ID:       "Radio.Com",
			Category: "Radio",
			Data: []DataField{
				{ID: "Radio", Type: FieldChoice, Choices: []string{"COM1", "COM2"}},
				{ID: "Value", Type: FieldNumber, Min: 118000, Max: 136990},
				{ID: "Which", Type: FieldChoice, Choices: []string{"Active", "Standby"}},
			},
			Events: []EventDef{
				{Values: []string{"COM1", "Active"}, SimEvent: "COM_RADIO_SET_HZ"},
				{Values: []string{"COM1", "Standby"}, SimEvent: "COM_STBY_RADIO_SET_HZ"},
				{Values: []string{"COM2", "Active"}, SimEvent: "COM2_RADIO_SET_HZ"},
				{Values: []string{"COM2", "Standby"}, SimEvent: "COM2_STBY_RADIO_SET_HZ"},
			},
		},
		{
			ID:        "Flight.Throttle",
			Category:  "Flight",
			Connector: true,
			Data: []DataField{
				{ID: "Value", Type: FieldNumber, Min: 0, Max: 16383},
			},
			Events: []EventDef{{SimEvent: "THROTTLE_SET"}},
		},
		{
			ID:     "Flight.Throttle2",
			Events: []EventDef{{SimEvent: "THROTTLE_SET"}},
		},
	}
}

func build(t *testing.T) *Registry {
	t.Helper()
	defs := append(testDefinitions(), PluginDefinitions()...)
	return BuildRegistry(defs, nil)
}

func TestResolve_SingleTargetShortcut(t *testing.T) {
	r := build(t)

	tests := []struct {
		name string
		data []string
	}{
		{"nil tuple", nil},
		{"empty tuple", []string{}},
		{"junk tuple", []string{"whatever", "else"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve("AutoPilot.Master", tt.data)
			require.NoError(t, err)
			assert.Equal(t, "AP_MASTER", got.Name)
			assert.False(t, got.Internal)
		})
	}
}

func TestResolve_MultiTarget(t *testing.T) {
	r := build(t)

	tests := []struct {
		name     string
		actionID string
		data     []string
		want     string
		wantErr  error
	}{
		{"first choice", "AutoPilot.Heading", []string{"Increase"}, "HEADING_BUG_INC", nil},
		{"last choice", "AutoPilot.Heading", []string{"Select"}, "HEADING_BUG_SELECT", nil},
		{"whitespace is ignored", "AutoPilot.Heading", []string{" Decrease "}, "HEADING_BUG_DEC", nil},
		{"unknown choice", "AutoPilot.Heading", []string{"Sideways"}, "", ErrNoMatch},
		{"missing data", "AutoPilot.Heading", nil, "", ErrNoMatch},
		{"choices around a value", "Radio.Com", []string{"COM2", "121500", "Standby"}, "COM2_STBY_RADIO_SET_HZ", nil},
		{"value does not affect key", "Radio.Com", []string{"COM1", "garbage", "Active"}, "COM_RADIO_SET_HZ", nil},
		{"partial key", "Radio.Com", []string{"COM1"}, "", ErrNoMatch},
		{"unknown action", "Nope.Nothing", nil, "", ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.actionID, tt.data)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestBuildRegistry_EventIDs(t *testing.T) {
	r := build(t)
	events := r.Events()

	// AP_MASTER, 3 heading, 4 com, THROTTLE_SET shared by two actions.
	require.Len(t, events, 9)
	for i, ev := range events {
		assert.Equal(t, uint32(EventIDOffset+1+i), ev.ID, ev.Name)
	}

	t1, err := r.Resolve("Flight.Throttle", nil)
	require.NoError(t, err)
	t2, err := r.Resolve("Flight.Throttle2", nil)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID, "same simulator event shares one id")

	cmd, err := r.Resolve("Plugin.Connection", []string{"Toggle"})
	require.NoError(t, err)
	assert.True(t, cmd.Internal)
	assert.Less(t, cmd.ID, uint32(EventIDOffset))
	assert.Equal(t, CmdToggleConnection, cmd.Command())
}

func TestBuildRegistry_Conflicts(t *testing.T) {
	defs := []Definition{
		{ID: "A", Events: []EventDef{{SimEvent: "FIRST"}}},
		{ID: "A", Events: []EventDef{{SimEvent: "SECOND"}}},
		{
			ID:   "B",
			Data: []DataField{{ID: "c", Type: FieldChoice}},
			Events: []EventDef{
				{Values: []string{"x"}, SimEvent: "B_X"},
				{Values: []string{"x"}, SimEvent: "B_X_DUP"},
				{Values: []string{"y", "extra"}, SimEvent: "B_BAD"},
				{Values: []string{"z"}, Command: "NoSuchCommand"},
				{Values: []string{"w"}},
			},
		},
		{ID: "", Events: []EventDef{{SimEvent: "ANON"}}},
		{ID: "Empty"},
		{
			ID: "TwoValues",
			Data: []DataField{
				{ID: "v1", Type: FieldNumber},
				{ID: "v2", Type: FieldText},
			},
			Events: []EventDef{{SimEvent: "TWO"}},
		},
	}

	r := BuildRegistry(defs, nil)

	got, err := r.Resolve("A", nil)
	require.NoError(t, err)
	assert.Equal(t, "FIRST", got.Name)

	m, ok := r.Mapping("B")
	require.True(t, ok)
	assert.Equal(t, 1, m.Targets())
	got, err = r.Resolve("B", []string{"anything"})
	require.NoError(t, err, "a single surviving key resolves unconditionally")
	assert.Equal(t, "B_X", got.Name)

	_, ok = r.Mapping("Empty")
	assert.False(t, ok)

	two, ok := r.Mapping("TwoValues")
	require.True(t, ok)
	assert.Equal(t, 0, two.ValueIndex)

	assert.Equal(t, []string{"A", "B", "TwoValues"}, r.ActionIDs())
	assert.Equal(t, 3, r.Len())
}

func TestMapping_Payload(t *testing.T) {
	r := build(t)
	com, ok := r.Mapping("Radio.Com")
	require.True(t, ok)
	require.True(t, com.HasValue())
	assert.Equal(t, 1, com.ValueIndex)

	tests := []struct {
		name    string
		data    []string
		want    uint32
		wantErr bool
	}{
		{"in range", []string{"COM1", "121500", "Active"}, 121500, false},
		{"clamped low", []string{"COM1", "100", "Active"}, 118000, false},
		{"clamped high", []string{"COM1", "999999", "Active"}, 136990, false},
		{"decimal comma", []string{"COM1", "121500,4", "Active"}, 121500, false},
		{"not a number", []string{"COM1", "abc", "Active"}, 0, true},
		{"missing value", []string{"COM1"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, has, err := com.Payload(tt.data)
			assert.True(t, has)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrConversion), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	master, _ := r.Mapping("AutoPilot.Master")
	_, has, err := master.Payload([]string{"1"})
	assert.False(t, has)
	assert.NoError(t, err)
}

func TestMapping_ScaledPayload(t *testing.T) {
	r := build(t)
	thr, _ := r.Mapping("Flight.Throttle")

	tests := []struct {
		percent int
		want    uint32
	}{
		{0, 0},
		{50, 8192},
		{100, 16383},
		{150, 16383},
		{-5, 0},
	}
	for _, tt := range tests {
		got, ok := thr.ScaledPayload(tt.percent)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "percent %d", tt.percent)
	}
}

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		in   float64
		want uint32
	}{
		{0, 0},
		{1.4, 1},
		{1.5, 2},
		{-1, 0xFFFFFFFF},
		{-16383, 0xFFFFC001},
		{5e9, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		if got := EncodePayload(tt.in); got != tt.want {
			t.Errorf("EncodePayload(%v) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}
