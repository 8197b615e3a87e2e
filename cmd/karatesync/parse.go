package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/discovery"
	"github.com/bgricker/karatesync/internal/filter"
	"github.com/bgricker/karatesync/internal/output"
	"github.com/bgricker/karatesync/internal/parser"
	"github.com/bgricker/karatesync/internal/report"
	"github.com/bgricker/karatesync/internal/result"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse",
		Short: "Parse a Karate artifact and show the normalized results",
		RunE:  runParse,
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateFormat(); err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	artifact, err := findArtifact(root, cfg)
	if err != nil {
		return err
	}
	results, err := parser.New(parser.WithLogger(logger.Named("parser"))).ParseFile(resolvePath(root, artifact))
	if err != nil {
		return err
	}
	results, err = applyFilters(results, cfg)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching results")
		return nil
	}
	summary := report.Summarize(results)

	switch strings.ToLower(cfg.Format) {
	case config.FormatPretty:
		return output.NewPretty(cmd.OutOrStdout()).RenderResults(results, summary)
	case config.FormatJSON:
		return output.NewJSON(cmd.OutOrStdout()).Render(output.Report{
			Artifact: artifact,
			Results:  results,
			Summary:  summary,
		})
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}
}

func findArtifact(root string, cfg config.Config) (string, error) {
	artifact, err := discovery.Artifact(root, cfg.Artifact)
	if err != nil {
		if errors.Is(err, discovery.ErrNoArtifact) {
			return "", fmt.Errorf("no karate artifact found; specify --artifact or run combine first")
		}
		return "", err
	}
	return artifact, nil
}

func compileFilters(cfg config.Config) (only, skip []filter.Pattern, err error) {
	only, err = filter.Compile(cfg.Only)
	if err != nil {
		return nil, nil, err
	}
	skip, err = filter.Compile(cfg.Skip)
	if err != nil {
		return nil, nil, err
	}
	return only, skip, nil
}

func applyFilters(results []result.Result, cfg config.Config) ([]result.Result, error) {
	only, skip, err := compileFilters(cfg)
	if err != nil {
		return nil, err
	}
	return filter.Results(results, only, skip), nil
}
