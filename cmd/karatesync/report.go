package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/output"
	"github.com/bgricker/karatesync/internal/runner"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read back the results of an existing run",
		RunE:  runReport,
	}
	cmd.Flags().Int("run", 0, "TestRail run id (default: latest run of the configured project and suite)")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetInt("run")
	if err != nil {
		return fmt.Errorf("parse --run: %w", err)
	}
	if cmd.Flags().Changed("run") && runID <= 0 {
		return fmt.Errorf("--run must be a positive run id")
	}

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
	if runID <= 0 {
		if cfg.TestRail.ProjectID <= 0 {
			return fmt.Errorf("pass --run or configure testrail.project_id to report the latest run")
		}
		latest, err := client.LatestRun(cmd.Context(), cfg.TestRail.ProjectID, cfg.TestRail.SuiteID)
		if err != nil {
			return err
		}
		runID = latest.ID
		logger.Info("reporting latest run", zap.Int("run_id", runID), zap.String("name", latest.Name))
	}
	run, err := runner.New(client, runner.Options{BaseURL: client.ServerURL(), Logger: logger.Named("runner")})
	if err != nil {
		return err
	}
	rep, err := run.GenerateReport(cmd.Context(), runID)
	if err != nil {
		return err
	}

	switch cfg.Format {
	case config.FormatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderRunReport(rep)
	case config.FormatJSON:
		return output.NewJSON(cmd.OutOrStdout()).Render(rep)
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}
