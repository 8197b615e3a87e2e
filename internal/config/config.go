package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".karatesync.yml"

// Config captures CLI options sourced from the config file, the environment or flags.
type Config struct {
	TestRail TestRailConfig `yaml:"testrail"`

	Artifact     string `yaml:"artifact"`
	ProjectsFile string `yaml:"projects_file"`
	Project      string `yaml:"project"`

	Build   BuildConfig `yaml:"build"`
	RunName string      `yaml:"run_name"`

	Attach   bool `yaml:"attach"`
	CloseRun bool `yaml:"close_run"`

	Only []string `yaml:"only"`
	Skip []string `yaml:"skip"`

	Format      string        `yaml:"format"`
	Log         LogConfig     `yaml:"log"`
	MetricsFile string        `yaml:"metrics_file"`
	Journal     string        `yaml:"journal"`
	RunData     string        `yaml:"run_data"`
	Archive     ArchiveConfig `yaml:"archive"`
}

// TestRailConfig locates the TestRail project results are synced to.
type TestRailConfig struct {
	URL       string        `yaml:"url"`
	Email     string        `yaml:"email"`
	APIKey    string        `yaml:"api_key"`
	ProjectID int           `yaml:"project_id"`
	SuiteID   int           `yaml:"suite_id"`
	Section   string        `yaml:"section"`
	SectionID int           `yaml:"section_id"`
	Timeout   time.Duration `yaml:"timeout"`
}

// BuildConfig carries CI build metadata attached to runs.
type BuildConfig struct {
	Number        string `yaml:"number"`
	Branch        string `yaml:"branch"`
	Commit        string `yaml:"commit"`
	CommitMessage string `yaml:"commit_message"`
	JiraIssue     string `yaml:"jira_issue"`
	Environment   string `yaml:"environment"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ArchiveConfig enables uploading the raw artifact to S3. Without static keys
// the default AWS credential chain is used.
type ArchiveConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	PathStyle    bool   `yaml:"path_style"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	SessionToken string `yaml:"session_token"`
}

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"
)

// Default returns the baseline configuration used when no file, environment or flags specify values.
func Default() Config {
	return Config{
		TestRail: TestRailConfig{
			SuiteID: 1,
			Timeout: 30 * time.Second,
		},
		ProjectsFile: "testrail-projects.yaml",
		Build:        BuildConfig{Environment: "dev"},
		Attach:       true,
		Format:       FormatPretty,
		Log:          LogConfig{Level: "info", Format: "console"},
		RunData:      "testrail-run-data.json",
	}
}

// Load reads the config file. With an empty path it reads .karatesync.yml
// from root and ignores a missing file; an explicit path must exist. Keys
// absent from the file keep their defaults.
func Load(root, path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize trims credentials pasted with stray whitespace.
func (c *Config) Normalize() {
	c.TestRail.URL = strings.TrimSuffix(strings.TrimSpace(c.TestRail.URL), "/")
	c.TestRail.Email = strings.TrimSpace(c.TestRail.Email)
	c.TestRail.APIKey = strings.TrimSpace(c.TestRail.APIKey)
	c.TestRail.Section = strings.TrimSpace(c.TestRail.Section)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
}

// Validate checks the settings every command writing to TestRail needs.
func (c Config) Validate() error {
	errs := c.connectionErrors()
	if c.TestRail.ProjectID <= 0 {
		errs = append(errs, errors.New("testrail.project_id is required (TESTRAIL_PROJECT_ID)"))
	}
	if c.TestRail.SuiteID <= 0 {
		errs = append(errs, errors.New("testrail.suite_id must be positive"))
	}
	if err := c.ValidateFormat(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateConnection checks only what is needed to reach the server.
func (c Config) ValidateConnection() error {
	errs := c.connectionErrors()
	if err := c.ValidateFormat(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) connectionErrors() []error {
	var errs []error
	if c.TestRail.URL == "" {
		errs = append(errs, errors.New("testrail.url is required (TESTRAIL_URL)"))
	}
	if c.TestRail.Email == "" {
		errs = append(errs, errors.New("testrail.email is required (TESTRAIL_EMAIL)"))
	}
	if c.TestRail.APIKey == "" {
		errs = append(errs, errors.New("testrail.api_key is required (TESTRAIL_API_KEY)"))
	}
	return errs
}

// ValidateFormat checks the output format.
func (c Config) ValidateFormat() error {
	switch c.Format {
	case FormatPretty, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported format %q", c.Format)
	}
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	if flags.Artifact.Set {
		cfg.Artifact = flags.Artifact.Value
	}
	if flags.ProjectID.Set {
		cfg.TestRail.ProjectID = flags.ProjectID.Value
	}
	if flags.SuiteID.Set {
		cfg.TestRail.SuiteID = flags.SuiteID.Value
	}
	if flags.Section.Set {
		cfg.TestRail.Section = flags.Section.Value
	}
	if flags.SectionID.Set {
		cfg.TestRail.SectionID = flags.SectionID.Value
	}
	if flags.Project.Set {
		cfg.Project = flags.Project.Value
	}
	if len(flags.Only.Values) > 0 {
		cfg.Only = append([]string{}, flags.Only.Values...)
	}
	if len(flags.Skip.Values) > 0 {
		cfg.Skip = append([]string{}, flags.Skip.Values...)
	}
	if flags.Format.Set {
		cfg.Format = flags.Format.Value
	}
	if flags.LogLevel.Set {
		cfg.Log.Level = flags.LogLevel.Value
	}
	if flags.LogFormat.Set {
		cfg.Log.Format = flags.LogFormat.Value
	}
	if flags.Journal.Set {
		cfg.Journal = flags.Journal.Value
	}
	if flags.MetricsFile.Set {
		cfg.MetricsFile = flags.MetricsFile.Value
	}
	if flags.NoAttach.Set {
		cfg.Attach = !flags.NoAttach.Value
	}
	if flags.CloseRun.Set {
		cfg.CloseRun = flags.CloseRun.Value
	}
	cfg.Normalize()
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	Artifact    StringFlag
	ProjectID   IntFlag
	SuiteID     IntFlag
	Section     StringFlag
	SectionID   IntFlag
	Project     StringFlag
	Only        SliceFlag
	Skip        SliceFlag
	Format      StringFlag
	LogLevel    StringFlag
	LogFormat   StringFlag
	Journal     StringFlag
	MetricsFile StringFlag
	NoAttach    BoolFlag
	CloseRun    BoolFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}
