package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/output"
)

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List the projects configured in the projects file",
		RunE:  runProjects,
	}
	cmd.Flags().Bool("resolve", false, "look up project and section ids by name in TestRail and write them back")
	return cmd
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFormat(); err != nil {
		return err
	}
	path := resolvePath(root, cfg.ProjectsFile)

	resolve, err := cmd.Flags().GetBool("resolve")
	if err != nil {
		return fmt.Errorf("parse --resolve: %w", err)
	}
	if resolve {
		return resolveProjects(cmd, cfg, path)
	}

	projects, err := config.LoadProjects(path)
	if err != nil {
		return err
	}

	if cfg.Format == config.FormatJSON {
		list := make([]config.Project, 0, len(projects.Keys()))
		for _, key := range projects.Keys() {
			p, err := projects.Lookup(key)
			if err != nil {
				return err
			}
			list = append(list, p)
		}
		return output.NewJSON(cmd.OutOrStdout()).Render(list)
	}
	return output.NewPretty(cmd.OutOrStdout()).RenderProjects(projects)
}

func resolveProjects(cmd *cobra.Command, cfg config.Config, path string) error {
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
	resolutions, err := config.ResolveProjects(cmd.Context(), path, client)
	if err != nil {
		return err
	}

	if cfg.Format == config.FormatJSON {
		err = output.NewJSON(cmd.OutOrStdout()).Render(resolutions)
	} else {
		err = output.NewPretty(cmd.OutOrStdout()).RenderResolutions(cfg.ProjectsFile, resolutions)
	}
	if err != nil {
		return err
	}
	if n := config.Unresolved(resolutions); n > 0 {
		return fmt.Errorf("%d of %d projects could not be resolved", n, len(resolutions))
	}
	return nil
}
