package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"simbridge/pkg/action"
	"simbridge/pkg/config"
	"simbridge/pkg/defs"
	"simbridge/pkg/simvar"
)

// actionRow is one line of the actions listing.
type actionRow struct {
	ID        string   `json:"id" yaml:"id"`
	Category  string   `json:"category" yaml:"category"`
	Name      string   `json:"name" yaml:"name"`
	Holdable  bool     `json:"holdable" yaml:"holdable"`
	Connector bool     `json:"connector" yaml:"connector"`
	Targets   []string `json:"targets" yaml:"targets"`
}

// variableRow is one line of the variables listing.
type variableRow struct {
	Key    string `json:"key" yaml:"key"`
	SimVar string `json:"simvar" yaml:"simvar"`
	Unit   string `json:"unit" yaml:"unit"`
	Kind   string `json:"kind" yaml:"kind"`
	Period string `json:"period" yaml:"period"`
}

func newActionsCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the actions the bridge offers the control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = defsPaths(opts.ConfigPath).Actions
			}
			list, err := defs.LoadActions(path)
			if err != nil {
				return err
			}
			rows := actionRows(append(action.PluginDefinitions(), list...))
			return writeListing(cmd.OutOrStdout(), opts.Format, rows, func(tw io.Writer) {
				fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tHOLD\tSLIDER\tTARGETS")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%v\t%s\n", r.ID, r.Category, r.Name, r.Holdable, r.Connector, strings.Join(r.Targets, " "))
				}
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "action table (default: config defs.actions, else built-in)")
	return cmd
}

func newVariablesCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "variables",
		Short: "List the simulator variables the bridge tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = defsPaths(opts.ConfigPath).Variables
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			list, err := defs.LoadVariables(path, logger)
			if err != nil {
				return err
			}
			rows := variableRows(list)
			return writeListing(cmd.OutOrStdout(), opts.Format, rows, func(tw io.Writer) {
				fmt.Fprintln(tw, "KEY\tSIMVAR\tUNIT\tKIND\tPERIOD")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key, r.SimVar, r.Unit, r.Kind, r.Period)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "variable table (default: config defs.variables, else built-in)")
	return cmd
}

// defsPaths reads table paths from an existing config file. A missing or
// unreadable config means the built-in tables.
func defsPaths(configPath string) config.DefsConfig {
	if _, err := os.Stat(configPath); err != nil {
		return config.DefsConfig{}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.DefsConfig{}
	}
	return cfg.Defs
}

func actionRows(list []action.Definition) []actionRow {
	rows := make([]actionRow, 0, len(list))
	for _, d := range list {
		r := actionRow{ID: d.ID, Category: d.Category, Name: d.Name, Holdable: d.Holdable, Connector: d.Connector}
		for _, ev := range d.Events {
			if ev.SimEvent != "" {
				r.Targets = append(r.Targets, ev.SimEvent)
			} else {
				r.Targets = append(r.Targets, ev.Command)
			}
		}
		rows = append(rows, r)
	}
	return rows
}

func variableRows(list []*simvar.Variable) []variableRow {
	rows := make([]variableRow, 0, len(list))
	for _, v := range list {
		rows = append(rows, variableRow{
			Key:    v.Key,
			SimVar: v.SimVarName,
			Unit:   v.Unit(),
			Kind:   string(v.VarKind),
			Period: v.Period.String(),
		})
	}
	return rows
}

func writeListing(w io.Writer, format string, rows any, text func(io.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rows)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		text(tw)
		return tw.Flush()
	}
}
