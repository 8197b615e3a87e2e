package casesync

import (
	"context"
	"fmt"

	"github.com/bgricker/karatesync/internal/testrail"
)

// fakeRegistry is an in-memory TestRail holding cases for a single suite.
type fakeRegistry struct {
	sections    []testrail.Section
	sectionsErr error
	casesErr    error
	failAdd     map[string]bool
	failUpdate  map[int]bool

	cases   []testrail.Case
	nextID  int
	added   []testrail.CaseFields
	updated map[int][]testrail.CaseFields
	listed  int
}

func newFakeRegistry(sections ...testrail.Section) *fakeRegistry {
	return &fakeRegistry{sections: sections, nextID: 100, updated: map[int][]testrail.CaseFields{}}
}

func (f *fakeRegistry) GetSections(context.Context, int, int) ([]testrail.Section, error) {
	return f.sections, f.sectionsErr
}

func (f *fakeRegistry) GetCases(context.Context, int, int) ([]testrail.Case, error) {
	f.listed++
	if f.casesErr != nil {
		return nil, f.casesErr
	}
	return append([]testrail.Case(nil), f.cases...), nil
}

func (f *fakeRegistry) AddCase(_ context.Context, sectionID int, fields testrail.CaseFields) (*testrail.Case, error) {
	if f.failAdd[fields.AutomationID] {
		return nil, fmt.Errorf("add case: HTTP 400: Field :title is too long")
	}
	f.nextID++
	c := testrail.Case{ID: f.nextID, Title: fields.Title, SectionID: sectionID, AutomationID: fields.AutomationID, PriorityID: fields.PriorityID}
	f.cases = append(f.cases, c)
	f.added = append(f.added, fields)
	return &c, nil
}

func (f *fakeRegistry) UpdateCase(_ context.Context, caseID int, fields testrail.CaseFields) (*testrail.Case, error) {
	if f.failUpdate[caseID] {
		return nil, fmt.Errorf("update case: HTTP 403: No access")
	}
	f.updated[caseID] = append(f.updated[caseID], fields)
	for i := range f.cases {
		if f.cases[i].ID == caseID {
			f.cases[i].Title = fields.Title
			return &f.cases[i], nil
		}
	}
	return nil, fmt.Errorf("update case: HTTP 400: Field :case_id is not a valid test case")
}
