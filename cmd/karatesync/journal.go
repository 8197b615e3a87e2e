package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/journal"
	"github.com/bgricker/karatesync/internal/output"
)

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recorded TestRail writes",
		RunE:  runJournal,
	}
	cmd.Flags().Int("limit", 50, "number of entries to show")
	cmd.Flags().String("invocation", "", "show only the entries of one invocation")
	return cmd
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFormat(); err != nil {
		return err
	}
	if cfg.Journal == "" {
		return fmt.Errorf("journal is not configured; set journal or pass --journal")
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("parse --limit: %w", err)
	}
	invocation, err := cmd.Flags().GetString("invocation")
	if err != nil {
		return fmt.Errorf("parse --invocation: %w", err)
	}

	j, err := journal.Open(cmd.Context(), resolvePath(root, cfg.Journal))
	if err != nil {
		return err
	}
	defer j.Close()

	var entries []journal.Entry
	if invocation != "" {
		entries, err = j.ForInvocation(cmd.Context(), invocation)
	} else {
		entries, err = j.Recent(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}

	if cfg.Format == config.FormatJSON {
		return output.NewJSON(cmd.OutOrStdout()).Render(entries)
	}
	return output.NewPretty(cmd.OutOrStdout()).RenderJournal(entries)
}
