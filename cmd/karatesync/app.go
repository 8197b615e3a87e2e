package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/logging"
	"github.com/bgricker/karatesync/internal/testrail"
)

// loadConfig layers defaults, the config file, .env and the environment, and
// flags, then resolves the selected project.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("determine working directory: %w", err)
	}

	if err := config.LoadDotEnv(root); err != nil {
		return config.Config{}, "", err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("parse --config: %w", err)
	}
	cfg, err := config.Load(root, path)
	if err != nil {
		return config.Config{}, "", err
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, "", err
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, "", err
	}
	config.ApplyFlags(&cfg, flags)

	if _, err := config.ApplyProject(&cfg, root); err != nil {
		return config.Config{}, "", err
	}
	return cfg, root, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func newClient(cfg config.Config, logger *zap.Logger, opts ...testrail.Option) (*testrail.Client, error) {
	opts = append([]testrail.Option{
		testrail.WithLogger(logger.Named("testrail")),
		testrail.WithTimeout(cfg.TestRail.Timeout),
	}, opts...)
	return testrail.New(cfg.TestRail.URL, cfg.TestRail.Email, cfg.TestRail.APIKey, opts...)
}

func resolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
