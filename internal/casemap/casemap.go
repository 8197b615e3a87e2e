// Package casemap holds the automation id to TestRail case id mapping built
// during a sync, in the order results were processed.
package casemap

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered automation id → case id map. The zero value is
// not usable; call New.
type Map struct {
	m *orderedmap.OrderedMap[string, int]
}

// New returns an empty map.
func New() *Map {
	return &Map{m: orderedmap.New[string, int]()}
}

// Set maps id to caseID. Re-setting an id keeps its original position.
func (c *Map) Set(id string, caseID int) {
	c.m.Set(id, caseID)
}

// Get returns the case id mapped to id.
func (c *Map) Get(id string) (int, bool) {
	return c.m.Get(id)
}

// Len returns the number of mapped automation ids.
func (c *Map) Len() int {
	return c.m.Len()
}

// Keys returns automation ids in insertion order.
func (c *Map) Keys() []string {
	keys := make([]string, 0, c.m.Len())
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// CaseIDs returns the distinct case ids in insertion order.
func (c *Map) CaseIDs() []int {
	seen := make(map[int]struct{}, c.m.Len())
	ids := make([]int, 0, c.m.Len())
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := seen[pair.Value]; ok {
			continue
		}
		seen[pair.Value] = struct{}{}
		ids = append(ids, pair.Value)
	}
	return ids
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (c *Map) MarshalJSON() ([]byte, error) {
	if c == nil || c.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.m)
}

// UnmarshalJSON decodes a JSON object, keeping document order.
func (c *Map) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, int]()
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("decode case map: %w", err)
	}
	c.m = m
	return nil
}
