package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/karatesync/internal/artifacts"
	"github.com/bgricker/karatesync/internal/discovery"
	"github.com/bgricker/karatesync/internal/parser"
)

func newCombineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Merge per-feature Karate reports into a single karate.json",
		RunE:  runCombine,
	}
	cmd.Flags().StringP("output", "o", "karate.json", "combined artifact path")
	return cmd
}

func runCombine(cmd *cobra.Command, args []string) error {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("parse --output: %w", err)
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reports, err := discovery.FeatureReports(root)
	if err != nil {
		if errors.Is(err, discovery.ErrNoArtifact) {
			return fmt.Errorf("no *.karate-json.txt reports under %s", discovery.ReportsDir)
		}
		return err
	}
	paths := make([]string, 0, len(reports))
	for _, r := range reports {
		paths = append(paths, resolvePath(root, r))
	}

	data, count, err := parser.New(parser.WithLogger(logger.Named("parser"))).Combine(paths)
	if err != nil {
		return err
	}
	writer, err := artifacts.NewWriter(root)
	if err != nil {
		return err
	}
	written, err := writer.WriteBytes(dest, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Combined %d scenarios from %d reports into %s\n", count, len(reports), written)
	return nil
}
