package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bgricker/karatesync/internal/testrail"
)

// Directory looks up TestRail projects and sections.
type Directory interface {
	GetProjects(ctx context.Context) ([]testrail.Project, error)
	GetSections(ctx context.Context, projectID, suiteID int) ([]testrail.Section, error)
}

// Resolution is the outcome for one entry of the projects file.
type Resolution struct {
	Key       string `json:"key"`
	Name      string `json:"project_name"`
	ProjectID int    `json:"project_id,omitempty"`
	SectionID int    `json:"section_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Unresolved counts the resolutions that carry an error.
func Unresolved(resolutions []Resolution) int {
	n := 0
	for _, r := range resolutions {
		if r.Error != "" {
			n++
		}
	}
	return n
}

type suiteRef struct{ project, suite int }

// ResolveProjects fills in project_id from project_name and section_id from
// section_name for every entry of the projects file at path, then writes the
// file back when an id changed. Comments and key order survive the rewrite.
// Names match case-insensitively. An entry that cannot be resolved keeps the
// ids it had and is reported with an error.
func ResolveProjects(ctx context.Context, path string, dir Directory) ([]Resolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects %q: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse projects %q: %w", path, err)
	}
	entries := projectsNode(&doc)
	if entries == nil {
		return nil, fmt.Errorf("parse projects %q: missing projects section", path)
	}

	projects, err := dir.GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve projects: %w", err)
	}
	byName := make(map[string]int, len(projects))
	for _, p := range projects {
		name := foldName(p.Name)
		if _, ok := byName[name]; !ok {
			byName[name] = p.ID
		}
	}
	sections := map[suiteRef][]testrail.Section{}

	var out []Resolution
	changed := false
	for i := 0; i+1 < len(entries.Content); i += 2 {
		key, value := entries.Content[i], entries.Content[i+1]
		res := Resolution{Key: key.Value}
		if value.Kind != yaml.MappingNode {
			res.Error = "entry is not a mapping"
			out = append(out, res)
			continue
		}
		var p Project
		if err := value.Decode(&p); err != nil {
			res.Error = fmt.Sprintf("decode entry: %v", err)
			out = append(out, res)
			continue
		}
		res.Name, res.ProjectID, res.SectionID = p.Name, p.ProjectID, p.SectionID

		if strings.TrimSpace(p.Name) == "" {
			res.Error = "project_name is missing"
			out = append(out, res)
			continue
		}
		projectID, ok := byName[foldName(p.Name)]
		if !ok {
			res.Error = fmt.Sprintf("project %q not found", p.Name)
			out = append(out, res)
			continue
		}
		if projectID != p.ProjectID {
			setInt(value, "project_id", projectID)
			changed = true
		}
		res.ProjectID = projectID

		if strings.TrimSpace(p.SectionName) == "" {
			out = append(out, res)
			continue
		}
		ref := suiteRef{project: projectID, suite: p.SuiteID}
		list, ok := sections[ref]
		if !ok {
			list, err = dir.GetSections(ctx, projectID, p.SuiteID)
			if err != nil {
				res.Error = fmt.Sprintf("list sections: %v", err)
				out = append(out, res)
				continue
			}
			sections[ref] = list
		}
		sectionID := 0
		for _, s := range list {
			if foldName(s.Name) == foldName(p.SectionName) {
				sectionID = s.ID
				break
			}
		}
		if sectionID == 0 {
			res.Error = fmt.Sprintf("section %q not found", p.SectionName)
			out = append(out, res)
			continue
		}
		if sectionID != p.SectionID {
			setInt(value, "section_id", sectionID)
			changed = true
		}
		res.SectionID = sectionID
		out = append(out, res)
	}

	if changed {
		if err := writeNode(path, &doc); err != nil {
			return out, err
		}
	}
	return out, nil
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func projectsNode(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "projects" && root.Content[i+1].Kind == yaml.MappingNode {
			return root.Content[i+1]
		}
	}
	return nil
}

// setInt sets key in the mapping node m, appending the key when absent.
func setInt(m *yaml.Node, key string, v int) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			n := m.Content[i+1]
			n.Kind = yaml.ScalarNode
			n.Tag = "!!int"
			n.Style = 0
			n.Value = strconv.Itoa(v)
			n.Content = nil
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)},
	)
}

func writeNode(path string, doc *yaml.Node) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode projects %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode projects %q: %w", path, err)
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(path, buf.Bytes(), perm); err != nil {
		return fmt.Errorf("write projects %q: %w", path, err)
	}
	return nil
}
