package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/output"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify TestRail credentials, list visible projects and check the configured project and suite",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateConnection(); err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	projects, err := client.CheckConnection(cmd.Context())
	if err != nil {
		return err
	}
	conn := output.Connection{Server: client.ServerURL(), Projects: projects}
	if cfg.TestRail.ProjectID > 0 {
		target, err := client.CheckTarget(cmd.Context(), cfg.TestRail.ProjectID, cfg.TestRail.SuiteID)
		if err != nil {
			return err
		}
		conn.Target = &target
	}

	switch cfg.Format {
	case config.FormatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderConnection(conn)
	case config.FormatJSON:
		return output.NewJSON(cmd.OutOrStdout()).Render(conn)
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}
