package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext_SeedsBaseKeys(t *testing.T) {
	c := newContext(testBundle(t), "quarterly-sales")

	assert.Equal(t, 42, c.Stats()["total"])
	assert.Len(t, c.Samples(), 1)
	assert.Equal(t, 2, c.Metadata()["record_count"])
	assert.Equal(t, "test-data", c.Bundle()["source"])

	title, ok := c.Value("title")
	require.True(t, ok)
	assert.Equal(t, "Quarterly Sales", title)

	ts, ok := c.Value("timestamp")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), ts.(time.Time), time.Minute)

	assert.Empty(t, c.Variables())
}

func TestContext_SetVariable(t *testing.T) {
	c := newContext(testBundle(t), "q")

	require.NoError(t, c.SetVariable("summary", "first"))
	require.NoError(t, c.SetVariable("outlook", "second"))
	assert.Equal(t, []string{"summary", "outlook"}, c.Variables())

	v, ok := c.Value("summary")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestContext_RedeclareOverwrites(t *testing.T) {
	c := newContext(testBundle(t), "q")

	require.NoError(t, c.SetVariable("summary", "first"))
	require.NoError(t, c.SetVariable("summary", "second"))

	v, _ := c.Value("summary")
	assert.Equal(t, "second", v)
	assert.Equal(t, []string{"summary"}, c.Variables(), "redeclaration must not duplicate the order entry")
}

func TestContext_ReservedKeysProtected(t *testing.T) {
	c := newContext(testBundle(t), "q")

	for _, key := range []string{KeyBundle, KeyStats, KeySamples, KeyMetadata} {
		assert.Error(t, c.SetVariable(key, "x"), "key %q", key)
	}
	assert.Error(t, c.SetVariable("", "x"))

	// timestamp and title are seeded but not reserved; a specification
	// that redefines them gets what it asked for.
	assert.NoError(t, c.SetVariable("title", "Custom Title"))
}

func TestContext_VariablesReturnsCopy(t *testing.T) {
	c := newContext(testBundle(t), "q")
	require.NoError(t, c.SetVariable("a", 1))

	vars := c.Variables()
	vars[0] = "mutated"
	assert.Equal(t, []string{"a"}, c.Variables())
}
