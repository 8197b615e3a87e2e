package casemap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := New()
	m.Set("Posts.Get by id", 12)
	m.Set("Auth.Login ok", 3)
	m.Set("Users.List", 7)
	m.Set("Posts.Get by id", 12)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"Posts.Get by id", "Auth.Login ok", "Users.List"}, m.Keys())
	assert.Equal(t, []int{12, 3, 7}, m.CaseIDs())

	id, ok := m.Get("Auth.Login ok")
	require.True(t, ok)
	assert.Equal(t, 3, id)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestCaseIDsDeduplicates(t *testing.T) {
	m := New()
	m.Set("a", 1)
	m.Set("b", 1)
	m.Set("c", 2)
	assert.Equal(t, []int{1, 2}, m.CaseIDs())
}

func TestMapJSON(t *testing.T) {
	m := New()
	m.Set("z", 1)
	m.Set("a", 2)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, string(data))

	var back Map
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"z", "a"}, back.Keys())

	empty, err := json.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}
