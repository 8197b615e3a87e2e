package parser

// BackgroundCache holds background steps per feature name. The parser primes
// it from each document before decoding scenarios, so scenarios without inline
// background steps can inherit their feature's background. The first
// background seen for a feature wins.
type BackgroundCache struct {
	steps map[string][]string
}

// NewBackgroundCache returns an empty cache.
func NewBackgroundCache() *BackgroundCache {
	return &BackgroundCache{steps: make(map[string][]string)}
}

// Put stores steps for feature unless an entry already exists or steps is empty.
func (c *BackgroundCache) Put(feature string, steps []string) {
	if len(steps) == 0 {
		return
	}
	if _, ok := c.steps[feature]; ok {
		return
	}
	c.steps[feature] = append([]string(nil), steps...)
}

// Get returns a copy of the cached steps for feature.
func (c *BackgroundCache) Get(feature string) []string {
	steps, ok := c.steps[feature]
	if !ok {
		return nil
	}
	return append([]string(nil), steps...)
}

// Len returns the number of features cached.
func (c *BackgroundCache) Len() int {
	return len(c.steps)
}
