package action

import "strings"

// FieldType is the declared type of an action data field.
type FieldType string

const (
	FieldChoice FieldType = "choice"
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldSwitch FieldType = "switch"
)

// DataField is one data slot of an action as shown on the control surface.
type DataField struct {
	ID      string
	Type    FieldType
	Choices []string
	Default string
	// Min and Max bound a free value. They are ignored unless Max > Min.
	Min float64
	Max float64
}

// IsChoice reports whether the field contributes to the lookup key.
func (f DataField) IsChoice() bool {
	return f.Type == FieldChoice || f.Type == FieldSwitch || f.Type == ""
}

// EventDef maps one combination of choice values to a target. Exactly one
// of SimEvent and Command is set.
type EventDef struct {
	Values   []string
	SimEvent string
	Command  string
}

// Definition is the static description of an action.
type Definition struct {
	ID       string
	Category string
	Name     string
	Data     []DataField
	Events   []EventDef
	// Holdable actions accept press-down/press-up and repeat while held.
	Holdable bool
	// Connector actions are driven by a slider.
	Connector bool
	// Feedback is the key of the variable a connector displays, with the
	// variable range that maps onto the slider (ignored unless max > min).
	Feedback    string
	FeedbackMin float64
	FeedbackMax float64
}

// KeySeparator joins choice values into a lookup key.
const KeySeparator = ","

// JoinKey builds a lookup key from ordered choice values.
func JoinKey(values []string) string {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}
	return strings.Join(trimmed, KeySeparator)
}
