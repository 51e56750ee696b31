package report

import (
	"time"

	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/internal/util"
)

// Reserved base keys seeded into every generation context. Variables may
// never overwrite them.
const (
	KeyBundle   = "bundle"
	KeyStats    = "stats"
	KeySamples  = "samples"
	KeyMetadata = "metadata"
)

// Context is the accumulating name-to-value mapping one generation run
// builds up: seeded from the bundle, appended to once per generated
// variable, and finally handed whole to the report template. It is owned by
// a single Generate call and is not safe for concurrent use.
type Context struct {
	values map[string]any
	order  []string // generated variable names, in generation order
}

// newContext seeds a generation context from the bundle: the bundle's
// context map under "bundle", aliases for its stats, primary samples, and
// metadata, plus a generation timestamp and a title derived from the
// specification ID.
func newContext(b *bundle.Bundle, specID string) *Context {
	bundleMap := b.ContextMap()

	return &Context{
		values: map[string]any{
			KeyBundle:   bundleMap,
			KeyStats:    bundleMap["stats"],
			KeySamples:  b.PrimarySamples(),
			KeyMetadata: bundleMap["metadata"],
			"timestamp": time.Now().UTC(),
			"title":     util.Titleize(specID),
		},
	}
}

// isReserved reports whether name is one of the protected base keys.
func isReserved(name string) bool {
	switch name {
	case KeyBundle, KeyStats, KeySamples, KeyMetadata:
		return true
	}
	return false
}

// Value returns the value stored under name.
func (c *Context) Value(name string) (any, bool) {
	v, ok := c.values[name]
	return v, ok
}

// SetVariable stores a generated variable's value. Re-declaring a variable
// name overwrites the earlier value without duplicating it in the order.
func (c *Context) SetVariable(name string, value any) error {
	if name == "" {
		return errors.New("variable name is empty")
	}
	if isReserved(name) {
		return errors.Newf("variable name %q collides with a reserved context key", name)
	}

	if _, exists := c.values[name]; !exists || !c.isGenerated(name) {
		c.order = append(c.order, name)
	}
	c.values[name] = value
	return nil
}

func (c *Context) isGenerated(name string) bool {
	for _, n := range c.order {
		if n == name {
			return true
		}
	}
	return false
}

// Variables returns generated variable names in generation order.
func (c *Context) Variables() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Bundle returns the bundle's context map.
func (c *Context) Bundle() map[string]any {
	m, _ := c.values[KeyBundle].(map[string]any)
	return m
}

// Stats returns the bundle's stats mapping.
func (c *Context) Stats() map[string]any {
	m, _ := c.values[KeyStats].(map[string]any)
	return m
}

// Samples returns the bundle's primary sample set.
func (c *Context) Samples() []map[string]any {
	s, _ := c.values[KeySamples].([]map[string]any)
	return s
}

// Metadata returns the bundle's ingestion metadata mapping.
func (c *Context) Metadata() map[string]any {
	m, _ := c.values[KeyMetadata].(map[string]any)
	return m
}

// Map returns the full context mapping for template rendering. The map is
// shared, not copied; callers must treat it as read-only.
func (c *Context) Map() map[string]any {
	return c.values
}
