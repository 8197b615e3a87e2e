package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/archive"
	"github.com/bgricker/karatesync/internal/artifacts"
	"github.com/bgricker/karatesync/internal/buildinfo"
	"github.com/bgricker/karatesync/internal/casesync"
	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/journal"
	"github.com/bgricker/karatesync/internal/metrics"
	"github.com/bgricker/karatesync/internal/output"
	"github.com/bgricker/karatesync/internal/parser"
	"github.com/bgricker/karatesync/internal/pipeline"
	"github.com/bgricker/karatesync/internal/runner"
	"github.com/bgricker/karatesync/internal/testrail"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync cases, open a run and submit results to TestRail",
		RunE:  runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	invocationID := uuid.NewString()
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("invocation_id", invocationID))

	artifact, err := findArtifact(root, cfg)
	if err != nil {
		return err
	}
	only, skip, err := compileFilters(cfg)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	clientOpts := []testrail.Option{testrail.WithObserver(collector)}
	if cfg.Journal != "" {
		j, err := journal.Open(ctx, resolvePath(root, cfg.Journal))
		if err != nil {
			return err
		}
		defer j.Close()
		clientOpts = append(clientOpts, testrail.WithRecorder(j.Recorder(invocationID)))
	}
	client, err := newClient(cfg, logger, clientOpts...)
	if err != nil {
		return err
	}

	run, err := runner.New(client, runner.Options{
		BaseURL:         client.ServerURL(),
		RunNameTemplate: cfg.RunName,
		Logger:          logger.Named("runner"),
	})
	if err != nil {
		return err
	}
	writer, err := artifacts.NewWriter(root)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Parser:   parser.New(parser.WithLogger(logger.Named("parser"))),
		Registry: client,
		Syncer: casesync.New(client, cfg.TestRail.ProjectID, cfg.TestRail.SuiteID,
			casesync.WithSectionName(cfg.TestRail.Section),
			casesync.WithSectionID(cfg.TestRail.SectionID),
			casesync.WithRefs(cfg.Build.JiraIssue),
			casesync.WithLogger(logger.Named("sync")),
		),
		Runner:  run,
		Writer:  writer,
		Metrics: collector,
		Logger:  logger.Named("pipeline"),
	}
	if cfg.Archive.Bucket != "" {
		archiver, err := archive.New(ctx, archiveConfig(cfg.Archive))
		if err != nil {
			return err
		}
		p.Archive = archiver
	}

	outcome, runErr := p.Run(ctx, pipeline.Input{
		InvocationID: invocationID,
		ArtifactPath: resolvePath(root, artifact),
		ProjectID:    cfg.TestRail.ProjectID,
		SuiteID:      cfg.TestRail.SuiteID,
		Build:        buildinfo.Detect(buildInfo(cfg.Build), nil),
		Only:         only,
		Skip:         skip,
		Attach:       cfg.Attach,
		CloseRun:     cfg.CloseRun,
		RunDataFile:  cfg.RunData,
	})
	outcome.Artifact = artifact

	if cfg.MetricsFile != "" {
		if err := collector.Write(resolvePath(root, cfg.MetricsFile)); err != nil {
			logger.Warn("write metrics failed", zap.Error(err))
		}
	}
	if runErr != nil {
		if errors.Is(runErr, pipeline.ErrNoCases) {
			return fmt.Errorf("%w (%d case writes failed)", runErr, outcome.Sync.Failed)
		}
		return runErr
	}

	switch cfg.Format {
	case config.FormatPretty:
		if err := output.NewPretty(cmd.OutOrStdout()).RenderOutcome(outcome); err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), outcome.Warnings)
	case config.FormatJSON:
		if err := output.NewJSON(cmd.OutOrStdout()).Render(outcome); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format %q", cfg.Format)
	}

	if outcome.SubmitFailed {
		return errors.New("results submission failed")
	}
	return nil
}

func archiveConfig(a config.ArchiveConfig) archive.Config {
	return archive.Config{
		Bucket:       a.Bucket,
		Prefix:       a.Prefix,
		Region:       a.Region,
		Endpoint:     a.Endpoint,
		PathStyle:    a.PathStyle,
		AccessKey:    a.AccessKey,
		SecretKey:    a.SecretKey,
		SessionToken: a.SessionToken,
	}
}

func buildInfo(b config.BuildConfig) buildinfo.Info {
	return buildinfo.Info{
		BuildNumber:   b.Number,
		Branch:        b.Branch,
		CommitSHA:     b.Commit,
		CommitMessage: b.CommitMessage,
		JiraIssue:     b.JiraIssue,
		Environment:   b.Environment,
	}
}
