package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrProjectNotFound is returned when a project key is not in the projects file.
var ErrProjectNotFound = errors.New("project not found")

// Project is one entry of the projects file.
type Project struct {
	Key         string `yaml:"-" json:"key"`
	Name        string `yaml:"project_name" json:"project_name"`
	SectionName string `yaml:"section_name" json:"section_name,omitempty"`
	ProjectID   int    `yaml:"project_id" json:"project_id"`
	SuiteID     int    `yaml:"suite_id" json:"suite_id,omitempty"`
	SectionID   int    `yaml:"section_id" json:"section_id,omitempty"`
	QAEmail     string `yaml:"qa_email" json:"qa_email,omitempty"`
	QAName      string `yaml:"qa_name" json:"qa_name,omitempty"`
}

// Projects maps project keys to their TestRail coordinates.
type Projects struct {
	byKey map[string]Project
	// Incomplete lists keys skipped because they carry no project id.
	Incomplete []string
}

type projectsFile struct {
	Projects map[string]Project `yaml:"projects"`
}

// LoadProjects reads a testrail-projects.yaml file.
func LoadProjects(path string) (Projects, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Projects{}, fmt.Errorf("read projects %q: %w", path, err)
	}
	var file projectsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Projects{}, fmt.Errorf("parse projects %q: %w", path, err)
	}
	if file.Projects == nil {
		return Projects{}, fmt.Errorf("parse projects %q: missing projects section", path)
	}

	out := Projects{byKey: make(map[string]Project, len(file.Projects))}
	for key, p := range file.Projects {
		if p.ProjectID <= 0 {
			out.Incomplete = append(out.Incomplete, key)
			continue
		}
		p.Key = key
		out.byKey[key] = p
	}
	sort.Strings(out.Incomplete)
	return out, nil
}

// Keys returns the usable project keys, sorted.
func (p Projects) Keys() []string {
	keys := make([]string, 0, len(p.byKey))
	for k := range p.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the project for key. An empty key selects the only project
// when exactly one is configured.
func (p Projects) Lookup(key string) (Project, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		if len(p.byKey) == 1 {
			for _, only := range p.byKey {
				return only, nil
			}
		}
		return Project{}, fmt.Errorf("%w: specify one of %s", ErrProjectNotFound, strings.Join(p.Keys(), ", "))
	}
	proj, ok := p.byKey[key]
	if !ok {
		return Project{}, fmt.Errorf("%w: %q (available: %s)", ErrProjectNotFound, key, strings.Join(p.Keys(), ", "))
	}
	return proj, nil
}

// ApplyProject resolves cfg.Project against the projects file and overrides
// project, suite and section. A section id in the projects file replaces any
// section id configured elsewhere. It is a no-op when no project is selected.
func ApplyProject(cfg *Config, root string) (Project, error) {
	if strings.TrimSpace(cfg.Project) == "" {
		return Project{}, nil
	}
	path := cfg.ProjectsFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	projects, err := LoadProjects(path)
	if err != nil {
		return Project{}, err
	}
	proj, err := projects.Lookup(cfg.Project)
	if err != nil {
		return Project{}, err
	}
	cfg.TestRail.ProjectID = proj.ProjectID
	if proj.SuiteID > 0 {
		cfg.TestRail.SuiteID = proj.SuiteID
	}
	if proj.SectionName != "" {
		cfg.TestRail.Section = proj.SectionName
	}
	if proj.SectionID > 0 {
		cfg.TestRail.SectionID = proj.SectionID
	}
	return proj, nil
}
