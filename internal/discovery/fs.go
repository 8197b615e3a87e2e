package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoArtifact indicates that no Karate result artifact was found during discovery.
var ErrNoArtifact = errors.New("no karate artifact discovered")

// DefaultArtifacts lists conventional Karate output locations in search order.
var DefaultArtifacts = []string{
	"karate.json",
	filepath.Join("target", "karate-reports", "karate-summary.json"),
	filepath.Join("target", "karate-reports", "karate.json"),
	filepath.Join("src", "test", "java", "target", "karate-reports", "karate.json"),
}

// ReportsDir is where Karate writes per-feature reports.
var ReportsDir = filepath.Join("target", "karate-reports")

// Artifact returns the path of the result artifact to ingest. An explicit path
// is validated and returned as given. Otherwise DefaultArtifacts are tried
// relative to root and the first existing file wins.
func Artifact(root, explicit string) (string, error) {
	if explicit != "" {
		return resolveExplicit(root, explicit)
	}

	for _, candidate := range DefaultArtifacts {
		full := filepath.Join(root, candidate)
		info, err := os.Stat(full)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}
		if info.IsDir() {
			continue
		}
		return mustRelOrClean(root, full), nil
	}
	return "", ErrNoArtifact
}

// FeatureReports lists per-feature *.karate-json.txt reports under root,
// excluding the summary, sorted lexicographically.
func FeatureReports(root string) ([]string, error) {
	pattern := filepath.Join(root, ReportsDir, "*.karate-json.txt")
	found, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}

	paths := make([]string, 0, len(found))
	for _, p := range found {
		if strings.Contains(filepath.Base(p), "karate-summary") {
			continue
		}
		paths = append(paths, mustRelOrClean(root, p))
	}
	if len(paths) == 0 {
		return nil, ErrNoArtifact
	}
	sort.Strings(paths)
	return paths, nil
}

func resolveExplicit(root, input string) (string, error) {
	cleaned := input
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(root, cleaned)
	}
	info, err := os.Stat(cleaned)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("artifact %q not found", input)
		}
		return "", fmt.Errorf("stat %q: %w", input, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("artifact %q is a directory", input)
	}
	return mustRelOrClean(root, cleaned), nil
}

func mustRelOrClean(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Clean(path)
	}
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}
