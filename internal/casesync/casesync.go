// Package casesync reconciles parsed results with TestRail cases keyed by
// automation id.
package casesync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/casemap"
	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/testrail"
)

// Registry is the part of the TestRail client the synchronizer needs.
type Registry interface {
	GetSections(ctx context.Context, projectID, suiteID int) ([]testrail.Section, error)
	GetCases(ctx context.Context, projectID, suiteID int) ([]testrail.Case, error)
	AddCase(ctx context.Context, sectionID int, fields testrail.CaseFields) (*testrail.Case, error)
	UpdateCase(ctx context.Context, caseID int, fields testrail.CaseFields) (*testrail.Case, error)
}

// Stats counts the outcome of one Sync.
type Stats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	// Skipped counts new cases that could not be created for lack of a section.
	Skipped int `json:"skipped"`
}

// Succeeded returns the number of results that ended up mapped to a case.
func (s Stats) Succeeded() int { return s.Created + s.Updated }

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithSectionName targets the section with the given name instead of the
// first section of the suite.
func WithSectionName(name string) Option {
	return func(s *Synchronizer) { s.sectionName = strings.TrimSpace(name) }
}

// WithSectionID targets the section with the given id. It takes precedence
// over WithSectionName; zero leaves the name lookup in charge.
func WithSectionID(id int) Option {
	return func(s *Synchronizer) {
		if id > 0 {
			s.sectionID = id
		}
	}
}

// WithRefs sets the references, such as a Jira issue, written to every case.
func WithRefs(refs string) Option {
	return func(s *Synchronizer) { s.refs = strings.TrimSpace(refs) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Synchronizer upserts one TestRail case per automation id.
type Synchronizer struct {
	registry    Registry
	projectID   int
	suiteID     int
	sectionName string
	sectionID   int
	refs        string
	logger      *zap.Logger

	resolved bool
	section  *testrail.Section
}

// New returns a Synchronizer for the given project and suite.
func New(registry Registry, projectID, suiteID int, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		registry:  registry,
		projectID: projectID,
		suiteID:   suiteID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync creates or updates a case for every result and returns the automation
// id → case id map. Individual failures are logged and counted; the map holds
// every result that was resolved.
func (s *Synchronizer) Sync(ctx context.Context, results []result.Result) (*casemap.Map, Stats) {
	ids := casemap.New()
	var stats Stats

	section := s.Section(ctx)
	index := s.loadIndex(ctx)
	seen := make(map[string]struct{}, len(results))

	for i, r := range results {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("sync interrupted", zap.Int("remaining", len(results)-i), zap.Error(err))
			break
		}

		id := r.AutomationID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		progress := []zap.Field{zap.String("automation_id", id), zap.Int("index", i+1), zap.Int("total", len(results))}
		fields := CaseFields(r)
		fields.Refs = s.refs

		if existing, ok := index[id]; ok {
			if _, err := s.registry.UpdateCase(ctx, existing.ID, fields); err != nil {
				stats.Failed++
				s.logger.Error("update case failed", append(progress, zap.Int("case_id", existing.ID), zap.Error(err))...)
				continue
			}
			ids.Set(id, existing.ID)
			stats.Updated++
			s.logger.Info("updated case", append(progress, zap.Int("case_id", existing.ID))...)
			continue
		}

		if section == nil {
			stats.Skipped++
			s.logger.Warn("cannot create case without a section", progress...)
			continue
		}
		created, err := s.registry.AddCase(ctx, section.ID, fields)
		if err != nil {
			stats.Failed++
			s.logger.Error("create case failed", append(progress, zap.Int("section_id", section.ID), zap.Error(err))...)
			continue
		}
		index[id] = *created
		ids.Set(id, created.ID)
		stats.Created++
		s.logger.Info("created case", append(progress, zap.Int("case_id", created.ID))...)
	}

	s.logger.Info("sync finished",
		zap.Int("attempted", len(seen)),
		zap.Int("succeeded", stats.Succeeded()),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return ids, stats
}

// Section returns the section new cases are created in, or nil when none can
// be resolved. The lookup happens once per Synchronizer.
func (s *Synchronizer) Section(ctx context.Context) *testrail.Section {
	if s.resolved {
		return s.section
	}
	s.resolved = true

	sections, err := s.registry.GetSections(ctx, s.projectID, s.suiteID)
	if err != nil {
		s.logger.Warn("list sections failed, new cases will not be created", zap.Int("suite_id", s.suiteID), zap.Error(err))
		return nil
	}
	if len(sections) == 0 {
		s.logger.Warn("suite has no sections, new cases will not be created", zap.Int("suite_id", s.suiteID))
		return nil
	}

	switch {
	case s.sectionID > 0:
		for i := range sections {
			if sections[i].ID == s.sectionID {
				s.section = &sections[i]
				break
			}
		}
		if s.section == nil {
			s.logger.Warn("section id not in suite, new cases will not be created", zap.Int("section_id", s.sectionID), zap.Int("suite_id", s.suiteID))
			return nil
		}
	case s.sectionName == "":
		s.section = &sections[0]
	default:
		for i := range sections {
			if strings.EqualFold(strings.TrimSpace(sections[i].Name), s.sectionName) {
				s.section = &sections[i]
				break
			}
		}
		if s.section == nil {
			s.logger.Warn("section not found, new cases will not be created", zap.String("section", s.sectionName), zap.Int("suite_id", s.suiteID))
			return nil
		}
	}
	s.logger.Info("using section", zap.String("name", s.section.Name), zap.Int("section_id", s.section.ID))
	return s.section
}

func (s *Synchronizer) loadIndex(ctx context.Context) map[string]testrail.Case {
	index := make(map[string]testrail.Case)
	cases, err := s.registry.GetCases(ctx, s.projectID, s.suiteID)
	if err != nil {
		s.logger.Warn("list cases failed, treating every result as new", zap.Error(err))
		return index
	}
	for _, c := range cases {
		if c.AutomationID == "" {
			continue
		}
		if _, ok := index[c.AutomationID]; !ok {
			index[c.AutomationID] = c
		}
	}
	s.logger.Debug("indexed existing cases", zap.Int("cases", len(cases)), zap.Int("automated", len(index)))
	return index
}
