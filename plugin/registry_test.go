package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
)

// =============================================================================
// Mock Plugin Implementations
// =============================================================================

// mockPlugin is a file-capable plugin used across the package tests.
type mockPlugin struct {
	id          string
	version     string
	description string
	caps        Capabilities
	specs       map[string]string
	promptsDir  string
	templates   string

	mu         sync.Mutex
	initCalls  int
	initErr    error
	ingestErr  error
	lastPath   string
	makeBundle func(path string) *bundle.Bundle
}

func newMockPlugin(id string) *mockPlugin {
	return &mockPlugin{
		id:          id,
		version:     "1.0.0",
		description: fmt.Sprintf("Mock %s plugin", id),
		caps:        Capabilities{File: true, FileFormats: []string{"csv", "json"}},
		specs:       map[string]string{"default": "specs/default.yaml"},
		promptsDir:  "prompts",
		templates:   "templates",
	}
}

func (m *mockPlugin) ID() string                          { return m.id }
func (m *mockPlugin) Version() string                     { return m.version }
func (m *mockPlugin) Description() string                 { return m.description }
func (m *mockPlugin) IngestionCapabilities() Capabilities { return m.caps }
func (m *mockPlugin) Specifications() map[string]string   { return m.specs }
func (m *mockPlugin) PromptsDir() string                  { return m.promptsDir }
func (m *mockPlugin) TemplatesDir() string                { return m.templates }

func (m *mockPlugin) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return m.initErr
}

func (m *mockPlugin) IngestFromFile(ctx context.Context, path string) (*bundle.Bundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	m.lastPath = path
	if m.makeBundle != nil {
		return m.makeBundle(path), nil
	}

	b := bundle.New(m.id, []map[string]any{{"id": "r1"}, {"id": "r2"}})
	b.Metadata.Method = bundle.MethodFile
	b.Metadata.File = &bundle.FileIngestion{Path: path, Format: "csv"}
	return b, nil
}

var (
	_ Plugin       = (*mockPlugin)(nil)
	_ Initializer  = (*mockPlugin)(nil)
	_ FileIngester = (*mockPlugin)(nil)
)

// mockAPIPlugin layers API ingestion over the file mock.
type mockAPIPlugin struct {
	*mockPlugin
	apiErr    error
	lastQuery map[string]any
}

func newMockAPIPlugin(id string) *mockAPIPlugin {
	p := &mockAPIPlugin{mockPlugin: newMockPlugin(id)}
	p.caps = Capabilities{
		File:         true,
		API:          true,
		FileFormats:  []string{"csv"},
		APIEndpoints: []string{"/v1/records"},
	}
	return p
}

func (m *mockAPIPlugin) IngestFromAPI(ctx context.Context, query map[string]any) (*APIResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.apiErr != nil {
		return nil, m.apiErr
	}
	m.lastQuery = query

	b := bundle.New(m.id, []map[string]any{{"id": "api-1"}})
	b.Metadata.Method = bundle.MethodAPI
	b.Metadata.API = &bundle.APIIngestion{Endpoint: "/v1/records", Query: query, RequestCount: 1}
	return &APIResult{
		Bundle:      b,
		APIMetadata: map[string]any{"endpoint": "/v1/records"},
	}, nil
}

func (m *mockAPIPlugin) APIQuerySchema() QuerySchema {
	return QuerySchema{
		Description: "Test query schema",
		Fields: map[string]QueryField{
			"since": {Type: "string", Description: "ISO date lower bound"},
		},
	}
}

var (
	_ Plugin              = (*mockAPIPlugin)(nil)
	_ APIIngester         = (*mockAPIPlugin)(nil)
	_ QuerySchemaProvider = (*mockAPIPlugin)(nil)
)

// declaredOnlyPlugin declares file capability without implementing it.
type declaredOnlyPlugin struct {
	id string
}

func (d *declaredOnlyPlugin) ID() string                          { return d.id }
func (d *declaredOnlyPlugin) Version() string                     { return "1.0.0" }
func (d *declaredOnlyPlugin) Description() string                 { return "Declares more than it does" }
func (d *declaredOnlyPlugin) IngestionCapabilities() Capabilities { return Capabilities{File: true} }
func (d *declaredOnlyPlugin) Specifications() map[string]string   { return map[string]string{"x": "x.yaml"} }
func (d *declaredOnlyPlugin) PromptsDir() string                  { return "prompts" }
func (d *declaredOnlyPlugin) TemplatesDir() string                { return "templates" }

var _ Plugin = (*declaredOnlyPlugin)(nil)

// constrainedPlugin adds a host version constraint to the file mock.
type constrainedPlugin struct {
	*mockPlugin
	constraint string
}

func (c *constrainedPlugin) HostVersionConstraint() string { return c.constraint }

var _ HostVersionConstrained = (*constrainedPlugin)(nil)

// =============================================================================
// Registry Tests
// =============================================================================

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry("1.0.0")
	assert.NotNil(t, registry)
	assert.Equal(t, "1.0.0", registry.hostVersion)
	assert.Zero(t, registry.Count())
}

func TestRegistry_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		p := newMockPlugin("sales")

		err := registry.Register(p)
		require.NoError(t, err)

		retrieved, ok := registry.Get("sales")
		assert.True(t, ok)
		assert.Equal(t, Plugin(p), retrieved)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		require.NoError(t, registry.Register(newMockPlugin("sales")))

		err := registry.Register(newMockPlugin("sales"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
		assert.True(t, errors.IsConflictError(err))
	})

	t.Run("replace overwrites existing registration", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		first := newMockPlugin("sales")
		second := newMockPlugin("sales")
		second.version = "2.0.0"

		require.NoError(t, registry.Register(first))
		require.NoError(t, registry.RegisterReplace(second))

		retrieved, ok := registry.Get("sales")
		require.True(t, ok)
		assert.Equal(t, "2.0.0", retrieved.Version())
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("nil plugin rejected", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		err := registry.Register(nil)
		assert.Error(t, err)
	})

	t.Run("invalid plugin rejected with itemized result", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		err := registry.Register(&declaredOnlyPlugin{id: "hollow"})
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))

		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "hollow", vErr.PluginID)
		assert.NotEmpty(t, vErr.Result.Errors)
		assert.False(t, registry.Has("hollow"))
	})

	t.Run("panicking capability query rejected not crashed", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		p := &panickyCapsPlugin{mockPlugin: newMockPlugin("broken")}

		var err error
		assert.NotPanics(t, func() { err = registry.Register(p) })
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.False(t, registry.Has("broken"))
	})

	t.Run("invalid manifest rejected", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		entry := validEntry()
		entry.ID = "other-id"
		entry.Version = "1.0.0"
		p := &manifestMockPlugin{mockPlugin: newMockPlugin("sales"), entry: entry}

		err := registry.Register(p)
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.False(t, registry.Has("sales"))
	})
}

func TestRegistry_HostCompatibility(t *testing.T) {
	tests := []struct {
		name       string
		host       string
		constraint string
		wantErr    bool
	}{
		{"no constraint", "1.0.0", "", false},
		{"exact match", "1.0.0", "1.0.0", false},
		{"caret compatible", "1.5.2", "^1.0.0", false},
		{"caret incompatible", "2.0.0", "^1.0.0", true},
		{"tilde compatible", "1.2.5", "~1.2.0", false},
		{"tilde incompatible", "1.3.0", "~1.2.0", true},
		{"range compatible", "1.5.0", ">=1.0.0 <2.0.0", false},
		{"invalid constraint syntax", "1.0.0", "not-a-version", true},
		{"unchecked when host unset", "", "^9.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry(tt.host)
			p := &constrainedPlugin{mockPlugin: newMockPlugin("sales"), constraint: tt.constraint}
			if tt.constraint == "" {
				err := registry.Register(p.mockPlugin)
				assert.NoError(t, err)
				return
			}

			err := registry.Register(p)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry("1.0.0")
	p := newMockPlugin("sales")
	require.NoError(t, registry.Register(p))

	retrieved, ok := registry.Get("sales")
	assert.True(t, ok)
	assert.Equal(t, Plugin(p), retrieved)

	retrieved, ok = registry.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, retrieved)
}

func TestRegistry_List(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		assert.Empty(t, registry.List())
		assert.Empty(t, registry.IDs())
	})

	t.Run("sorted by id", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		for _, id := range []string{"zebra", "alpha", "beta"} {
			require.NoError(t, registry.Register(newMockPlugin(id)))
		}

		assert.Equal(t, []string{"alpha", "beta", "zebra"}, registry.IDs())

		list := registry.List()
		ids := make([]string, len(list))
		for i, p := range list {
			ids[i] = p.ID()
		}
		assert.True(t, sort.StringsAreSorted(ids), "List should be sorted by ID")
	})
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry("1.0.0")
	require.NoError(t, registry.Register(newMockPlugin("sales")))

	assert.True(t, registry.Unregister("sales"))
	assert.False(t, registry.Has("sales"))
	assert.False(t, registry.Unregister("sales"))
}

func TestRegistry_FindByCapability(t *testing.T) {
	registry := NewRegistry("1.0.0")
	require.NoError(t, registry.Register(newMockPlugin("files-only")))
	require.NoError(t, registry.Register(newMockAPIPlugin("hybrid")))

	fileCapable := registry.FindByCapability(KindFile)
	assert.Len(t, fileCapable, 2)

	apiCapable := registry.FindByCapability(KindAPI)
	require.Len(t, apiCapable, 1)
	assert.Equal(t, "hybrid", apiCapable[0].ID())
}

func TestRegistry_FindByFileFormat(t *testing.T) {
	registry := NewRegistry("1.0.0")
	csvOnly := newMockPlugin("csv-only")
	csvOnly.caps.FileFormats = []string{"csv"}
	jsonOnly := newMockPlugin("json-only")
	jsonOnly.caps.FileFormats = []string{"json"}
	require.NoError(t, registry.Register(csvOnly))
	require.NoError(t, registry.Register(jsonOnly))

	matches := registry.FindByFileFormat(".CSV")
	require.Len(t, matches, 1)
	assert.Equal(t, "csv-only", matches[0].ID())
}

func TestRegistry_Stats(t *testing.T) {
	registry := NewRegistry("1.0.0")
	require.NoError(t, registry.Register(newMockPlugin("files")))
	require.NoError(t, registry.Register(newMockAPIPlugin("hybrid")))

	apiOnly := newMockAPIPlugin("api-only")
	apiOnly.caps = Capabilities{API: true, APIEndpoints: []string{"/v1"}}
	require.NoError(t, registry.Register(apiOnly))

	stats := registry.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.FileOnly)
	assert.Equal(t, 1, stats.APIOnly)
	assert.Equal(t, 1, stats.Hybrid)
}

// =============================================================================
// Global Registry Tests
// =============================================================================

func TestGlobalRegistry(t *testing.T) {
	// These subtests mutate process-wide state and reset it between runs.

	t.Run("set and get default registry", func(t *testing.T) {
		ResetDefaultRegistry()
		t.Cleanup(ResetDefaultRegistry)

		registry := NewRegistry("1.0.0")
		SetDefaultRegistry(registry)
		assert.Equal(t, registry, GetDefaultRegistry())
	})

	t.Run("panic on double installation", func(t *testing.T) {
		ResetDefaultRegistry()
		t.Cleanup(ResetDefaultRegistry)

		SetDefaultRegistry(NewRegistry("1.0.0"))
		assert.Panics(t, func() {
			SetDefaultRegistry(NewRegistry("2.0.0"))
		})
	})

	t.Run("global helpers", func(t *testing.T) {
		ResetDefaultRegistry()
		t.Cleanup(ResetDefaultRegistry)

		SetDefaultRegistry(NewRegistry("1.0.0"))

		p := newMockPlugin("sales")
		require.NoError(t, Register(p))

		retrieved, ok := Get("sales")
		assert.True(t, ok)
		assert.Equal(t, Plugin(p), retrieved)
		assert.Len(t, List(), 1)
	})

	t.Run("global helpers without registry", func(t *testing.T) {
		ResetDefaultRegistry()
		t.Cleanup(ResetDefaultRegistry)

		err := Register(newMockPlugin("sales"))
		assert.Error(t, err)

		_, ok := Get("sales")
		assert.False(t, ok)
		assert.Nil(t, List())
	})
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestRegistry_Concurrency(t *testing.T) {
	t.Run("concurrent registration", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		var wg sync.WaitGroup
		const workers = 10

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				registry.Register(newMockPlugin(fmt.Sprintf("plugin-%d", id)))
			}(i)
		}

		wg.Wait()
		assert.Equal(t, workers, registry.Count())
	})

	t.Run("concurrent read write", func(t *testing.T) {
		registry := NewRegistry("1.0.0")
		require.NoError(t, registry.Register(newMockPlugin("seed")))

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					registry.Get("seed")
					registry.List()
					registry.Stats()
				}
			}()
		}
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					registry.Register(newMockPlugin(fmt.Sprintf("writer-%d-%d", id, j)))
				}
			}(i)
		}
		wg.Wait()
	})
}
