package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/karatesync/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	strs := []struct {
		name string
		dst  *config.StringFlag
	}{
		{"artifact", &values.Artifact},
		{"section", &values.Section},
		{"project", &values.Project},
		{"format", &values.Format},
		{"log-level", &values.LogLevel},
		{"log-format", &values.LogFormat},
		{"journal", &values.Journal},
		{"metrics-file", &values.MetricsFile},
	}
	for _, f := range strs {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.dst = config.StringFlag{Value: v, Set: true}
	}

	ints := []struct {
		name string
		dst  *config.IntFlag
	}{
		{"project-id", &values.ProjectID},
		{"suite-id", &values.SuiteID},
		{"section-id", &values.SectionID},
	}
	for _, f := range ints {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetInt(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.dst = config.IntFlag{Value: v, Set: true}
	}

	if flags.Changed("only") {
		v, err := flags.GetStringArray("only")
		if err != nil {
			return values, fmt.Errorf("parse --only: %w", err)
		}
		values.Only = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("skip") {
		v, err := flags.GetStringArray("skip")
		if err != nil {
			return values, fmt.Errorf("parse --skip: %w", err)
		}
		values.Skip = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("no-attach") {
		v, err := flags.GetBool("no-attach")
		if err != nil {
			return values, fmt.Errorf("parse --no-attach: %w", err)
		}
		values.NoAttach = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("close-run") {
		v, err := flags.GetBool("close-run")
		if err != nil {
			return values, fmt.Errorf("parse --close-run: %w", err)
		}
		values.CloseRun = config.BoolFlag{Value: v, Set: true}
	}

	return values, nil
}
