// Package buildinfo describes the CI build a sync belongs to.
package buildinfo

import (
	"bytes"
	"os/exec"
	"strings"
)

// Unknown is used for build fields that could not be determined.
const Unknown = "unknown"

// Info captures the CI build metadata attached to a run.
type Info struct {
	BuildNumber   string `json:"build_number"`
	Branch        string `json:"branch"`
	CommitSHA     string `json:"commit_sha"`
	CommitMessage string `json:"commit_message,omitempty"`
	JiraIssue     string `json:"jira_issue,omitempty"`
	Environment   string `json:"environment"`
}

// CommandRunner executes a command and returns its trimmed combined output.
type CommandRunner func(name string, args ...string) (string, error)

// Detect completes info from git when the CI environment left branch or
// commit empty, then fills the remaining gaps with Unknown. A missing git
// binary or a directory outside a repository is not an error.
func Detect(info Info, run CommandRunner) Info {
	if run == nil {
		run = runCommand
	}
	if strings.TrimSpace(info.Branch) == "" {
		if out, err := run("git", "rev-parse", "--abbrev-ref", "HEAD"); err == nil && out != "HEAD" {
			info.Branch = out
		}
	}
	if strings.TrimSpace(info.CommitSHA) == "" {
		if out, err := run("git", "rev-parse", "HEAD"); err == nil {
			info.CommitSHA = out
		}
	}
	if strings.TrimSpace(info.CommitMessage) == "" && info.CommitSHA != "" {
		if out, err := run("git", "log", "-1", "--pretty=%s"); err == nil {
			info.CommitMessage = out
		}
	}

	info.BuildNumber = orUnknown(info.BuildNumber)
	info.Branch = orUnknown(info.Branch)
	info.CommitSHA = orUnknown(info.CommitSHA)
	info.Environment = orUnknown(info.Environment)
	return info
}

// ShortSHA returns the first seven characters of the commit.
func (i Info) ShortSHA() string {
	if len(i.CommitSHA) > 7 {
		return i.CommitSHA[:7]
	}
	return i.CommitSHA
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

func runCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
