package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables CI jobs set.
var envBindings = []struct {
	key  string
	envs []string
}{
	{"testrail.url", []string{"TESTRAIL_URL"}},
	{"testrail.email", []string{"TESTRAIL_EMAIL", "TESTRAIL_USER"}},
	{"testrail.api_key", []string{"TESTRAIL_API_KEY"}},
	{"testrail.project_id", []string{"TESTRAIL_PROJECT_ID"}},
	{"testrail.suite_id", []string{"TESTRAIL_SUITE_ID"}},
	{"testrail.section", []string{"TESTRAIL_SECTION"}},
	{"testrail.section_id", []string{"TESTRAIL_SECTION_ID"}},
	{"build.number", []string{"BUILD_NUMBER"}},
	{"build.branch", []string{"BRANCH_NAME", "GIT_BRANCH"}},
	{"build.commit", []string{"COMMIT_SHA", "GIT_COMMIT"}},
	{"build.commit_message", []string{"COMMIT_MESSAGE"}},
	{"build.jira_issue", []string{"JIRA_PARENT_ISSUE"}},
	{"build.environment", []string{"TEST_ENVIRONMENT"}},
	{"archive.bucket", []string{"KARATESYNC_ARCHIVE_BUCKET"}},
	{"archive.access_key", []string{"KARATESYNC_ARCHIVE_ACCESS_KEY"}},
	{"archive.secret_key", []string{"KARATESYNC_ARCHIVE_SECRET_KEY"}},
	{"archive.session_token", []string{"KARATESYNC_ARCHIVE_SESSION_TOKEN"}},
	{"log.level", []string{"KARATESYNC_LOG_LEVEL"}},
	{"log.format", []string{"KARATESYNC_LOG_FORMAT"}},
}

// LoadDotEnv loads root/.env into the process environment. Variables that are
// already set win over the file. A missing file is ignored.
func LoadDotEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %q: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the environment variables in envBindings onto cfg.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	for _, b := range envBindings {
		args := append([]string{b.key}, b.envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("bind env %s: %w", b.key, err)
		}
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := strings.TrimSpace(v.GetString(key)); s != "" {
				*dst = s
			}
		}
	}
	num := func(key string, dst *int) error {
		if !v.IsSet(key) {
			return nil
		}
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, s)
		}
		*dst = n
		return nil
	}

	str("testrail.url", &cfg.TestRail.URL)
	str("testrail.email", &cfg.TestRail.Email)
	str("testrail.api_key", &cfg.TestRail.APIKey)
	str("testrail.section", &cfg.TestRail.Section)
	str("build.number", &cfg.Build.Number)
	str("build.branch", &cfg.Build.Branch)
	str("build.commit", &cfg.Build.Commit)
	str("build.commit_message", &cfg.Build.CommitMessage)
	str("build.jira_issue", &cfg.Build.JiraIssue)
	str("build.environment", &cfg.Build.Environment)
	str("archive.bucket", &cfg.Archive.Bucket)
	str("archive.access_key", &cfg.Archive.AccessKey)
	str("archive.secret_key", &cfg.Archive.SecretKey)
	str("archive.session_token", &cfg.Archive.SessionToken)
	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)

	if err := errors.Join(
		num("testrail.project_id", &cfg.TestRail.ProjectID),
		num("testrail.suite_id", &cfg.TestRail.SuiteID),
		num("testrail.section_id", &cfg.TestRail.SectionID),
	); err != nil {
		return err
	}
	cfg.Normalize()
	return nil
}
