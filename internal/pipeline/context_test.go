package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextProgressivePrefixLookup(t *testing.T) {
	c := NewContext()
	c.Set("a.b", map[string]interface{}{"c": "leaf"})

	v, ok := c.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "leaf", v)

	_, ok = c.Get("a.b.missing")
	assert.False(t, ok)
}

func TestContextExactKeyWinsOverPrefix(t *testing.T) {
	c := NewContext()
	c.Set("a.b.c", "exact")
	c.Set("a.b", map[string]interface{}{"c": "nested"})

	v, ok := c.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "exact", v)
}

func TestContextCloneIsIndependent(t *testing.T) {
	c := NewContext()
	c.Set("nested", map[string]interface{}{"x": 1})
	c.AppendLog("first")

	clone := c.Clone()
	clone.Set("nested", map[string]interface{}{"x": 2})
	clone.AppendLog("second")

	orig, _ := c.Get("nested")
	assert.Equal(t, 1, orig.(map[string]interface{})["x"])
	assert.Len(t, c.Logs(), 1)
	assert.Len(t, clone.Logs(), 2)
}

func TestContextSnapshotIsFlatCopy(t *testing.T) {
	c := NewContext()
	c.Set("k", "v")
	snap := c.Snapshot()
	snap["k"] = "mutated"

	v, _ := c.Get("k")
	assert.Equal(t, "v", v)
}
