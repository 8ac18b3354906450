// Package defs loads the action and variable tables from YAML. A default
// set is embedded in the binary.
package defs

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"simbridge/pkg/action"
	"simbridge/pkg/simvar"
)

//go:embed defaults/*.yaml
var defaultFS embed.FS

// ErrInvalid is wrapped by definition entries that cannot be used.
var ErrInvalid = errors.New("invalid definition")

// ActionFile is the YAML layout of an action table.
type ActionFile struct {
	Actions []ActionDef `yaml:"actions"`
}

// ActionDef is one action as written in YAML.
type ActionDef struct {
	ID        string `yaml:"id"`
	Category  string `yaml:"category"`
	Name      string `yaml:"name"`
	Holdable  bool   `yaml:"holdable"`
	Connector bool   `yaml:"connector"`
	Feedback  string `yaml:"feedback"`
	// FeedbackRange is the variable range shown by a connector, [min, max].
	FeedbackRange []float64  `yaml:"feedback_range"`
	Data          []FieldDef `yaml:"data"`
	Events        []EventDef `yaml:"events"`
	// Event is a shorthand for a single simulator event.
	Event string `yaml:"event"`
}

// FieldDef is one data field of an action.
type FieldDef struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Choices []string `yaml:"choices"`
	Default string   `yaml:"default"`
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
}

// EventDef maps choice values to a simulator event or engine command.
type EventDef struct {
	Values  []string `yaml:"values"`
	Event   string   `yaml:"event"`
	Command string   `yaml:"command"`
}

// VariableFile is the YAML layout of a variable table.
type VariableFile struct {
	Variables []VariableDef `yaml:"variables"`
}

// VariableDef is one variable as written in YAML.
type VariableDef struct {
	Key      string  `yaml:"key"`
	Category string  `yaml:"category"`
	Name     string  `yaml:"name"`
	SimVar   string  `yaml:"simvar"`
	Kind     string  `yaml:"kind"`
	Unit     string  `yaml:"unit"`
	Default  string  `yaml:"default"`
	CanSet   bool    `yaml:"can_set"`
	Period   string  `yaml:"period"`
	Interval int     `yaml:"interval_ms"`
	Epsilon  float64 `yaml:"epsilon"`
	Format   string  `yaml:"format"`
}

// LoadActions reads an action table. An empty path reads the built-in one.
func LoadActions(path string) ([]action.Definition, error) {
	data, err := read(path, "defaults/actions.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read actions file: %w", err)
	}
	return ParseActions(data)
}

// ParseActions converts YAML action definitions.
func ParseActions(data []byte) ([]action.Definition, error) {
	var f ActionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse actions file: %w", err)
	}
	out := make([]action.Definition, 0, len(f.Actions))
	for i := range f.Actions {
		out = append(out, f.Actions[i].Definition())
	}
	return out, nil
}

// Definition converts the YAML form to the resolver's form.
func (a *ActionDef) Definition() action.Definition {
	d := action.Definition{
		ID:        a.ID,
		Category:  a.Category,
		Name:      a.Name,
		Holdable:  a.Holdable,
		Connector: a.Connector,
		Feedback:  a.Feedback,
	}
	if len(a.FeedbackRange) == 2 {
		d.FeedbackMin, d.FeedbackMax = a.FeedbackRange[0], a.FeedbackRange[1]
	}
	if d.Category == "" {
		if i := strings.IndexByte(a.ID, '.'); i > 0 {
			d.Category = a.ID[:i]
		}
	}
	for _, f := range a.Data {
		d.Data = append(d.Data, action.DataField{
			ID:      f.ID,
			Type:    action.FieldType(strings.ToLower(f.Type)),
			Choices: f.Choices,
			Default: f.Default,
			Min:     f.Min,
			Max:     f.Max,
		})
	}
	if a.Event != "" {
		d.Events = append(d.Events, action.EventDef{SimEvent: a.Event})
	}
	for _, e := range a.Events {
		d.Events = append(d.Events, action.EventDef{Values: e.Values, SimEvent: e.Event, Command: e.Command})
	}
	return d
}

// LoadVariables reads a variable table. An empty path reads the built-in
// one. Invalid entries are logged and skipped.
func LoadVariables(path string, logger *slog.Logger) ([]*simvar.Variable, error) {
	data, err := read(path, "defaults/variables.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read variables file: %w", err)
	}
	return ParseVariables(data, logger)
}

// ParseVariables converts YAML variable definitions.
func ParseVariables(data []byte, logger *slog.Logger) ([]*simvar.Variable, error) {
	if logger == nil {
		logger = slog.Default().With("component", "defs")
	}
	var f VariableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse variables file: %w", err)
	}
	out := make([]*simvar.Variable, 0, len(f.Variables))
	for i := range f.Variables {
		v, err := f.Variables[i].Variable()
		if err != nil {
			logger.Warn("Skipping variable", "key", f.Variables[i].Key, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Variable builds an unregistered variable.
func (d *VariableDef) Variable() (*simvar.Variable, error) {
	period, err := simvar.ParseUpdatePeriod(d.Period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	kind := byte('A')
	if k := strings.TrimSpace(d.Kind); k != "" {
		kind = strings.ToUpper(k)[0]
	}
	switch kind {
	case 'A', 'L', 'Q', 'E':
	default:
		return nil, fmt.Errorf("%w: variable kind %q", ErrInvalid, d.Kind)
	}
	v, err := simvar.New(simvar.Spec{
		Key:          d.Key,
		Category:     d.Category,
		Name:         d.Name,
		SimVarName:   d.SimVar,
		VarKind:      kind,
		Unit:         d.Unit,
		Default:      d.Default,
		CanSet:       d.CanSet,
		Period:       period,
		Interval:     time.Duration(d.Interval) * time.Millisecond,
		DeltaEpsilon: d.Epsilon,
		Format:       d.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return v, nil
}

func read(path, builtin string) ([]byte, error) {
	if path == "" {
		return defaultFS.ReadFile(builtin)
	}
	return os.ReadFile(path)
}
