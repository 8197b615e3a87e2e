package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "karatesync",
		Short:         "Karatesync syncs Karate test results to TestRail",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "config file (default .karatesync.yml)")
	persistent.String("artifact", "", "karate result artifact to ingest")
	persistent.Int("project-id", 0, "TestRail project id")
	persistent.Int("suite-id", 0, "TestRail suite id")
	persistent.String("section", "", "TestRail section new cases are created in")
	persistent.Int("section-id", 0, "TestRail section id, takes precedence over --section")
	persistent.String("project", "", "project key from the projects file")
	persistent.StringArray("only", nil, "include only matching scenarios (repeatable)")
	persistent.StringArray("skip", nil, "exclude matching scenarios (repeatable)")
	persistent.String("format", "pretty", "output format (pretty|json)")
	persistent.String("log-level", "", "log level (debug|info|warn|error)")
	persistent.String("log-format", "", "log format (console|json)")
	persistent.String("journal", "", "sqlite journal of TestRail writes")
	persistent.String("metrics-file", "", "write prometheus metrics to this file")
	persistent.Bool("no-attach", false, "do not attach the artifact to the run")
	persistent.Bool("close-run", false, "close the run after submitting results")

	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newCombineCmd())
	cmd.AddCommand(newJournalCmd())
	cmd.AddCommand(newProjectsCmd())

	return cmd
}
