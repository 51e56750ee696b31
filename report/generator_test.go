package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgewood/folio/ai"
	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/plugin"
)

// mockPlugin backs generator tests with on-disk prompt/template assets.
type mockPlugin struct {
	id           string
	specs        map[string]string
	promptsDir   string
	templatesDir string
	initCalls    int
}

var _ plugin.Plugin = (*mockPlugin)(nil)
var _ plugin.Initializer = (*mockPlugin)(nil)

func (m *mockPlugin) ID() string          { return m.id }
func (m *mockPlugin) Version() string     { return "1.0.0" }
func (m *mockPlugin) Description() string { return "mock plugin for generator tests" }
func (m *mockPlugin) IngestionCapabilities() plugin.Capabilities {
	return plugin.Capabilities{File: true, FileFormats: []string{"csv"}}
}
func (m *mockPlugin) Specifications() map[string]string { return m.specs }
func (m *mockPlugin) PromptsDir() string                { return m.promptsDir }
func (m *mockPlugin) TemplatesDir() string              { return m.templatesDir }
func (m *mockPlugin) Initialize(context.Context) error  { m.initCalls++; return nil }
func (m *mockPlugin) IngestFromFile(context.Context, string) (*bundle.Bundle, error) {
	return nil, errors.New("not used in generator tests")
}

// scriptedClient returns canned responses in call order, repeating the last
// one when the script runs out.
type scriptedClient struct {
	responses []string
	prompts   []string
	err       error
}

var _ ai.Client = (*scriptedClient)(nil)

func (s *scriptedClient) GenerateText(_ context.Context, req ai.TextRequest) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return "", s.err
	}
	i := len(s.prompts) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], nil
}

func (s *scriptedClient) Provider() ai.Provider { return "scripted" }
func (s *scriptedClient) Model() string         { return "scripted-model" }

// recordingObserver captures the event stream for assertions.
type recordingObserver struct {
	events []StepEvent
}

func (r *recordingObserver) OnStep(e StepEvent) { r.events = append(r.events, e) }

// newTestPlugin materializes prompts and templates into temp dirs and
// registers the plugin.
func newTestPlugin(t *testing.T, specs map[string]string, prompts, templates map[string]string) (*plugin.Registry, *mockPlugin) {
	t.Helper()

	promptsDir := t.TempDir()
	for name, content := range prompts {
		require.NoError(t, os.WriteFile(filepath.Join(promptsDir, name), []byte(content), 0o644))
	}
	templatesDir := t.TempDir()
	for name, content := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(templatesDir, name), []byte(content), 0o644))
	}

	p := &mockPlugin{
		id:           "mock-data",
		specs:        specs,
		promptsDir:   promptsDir,
		templatesDir: templatesDir,
	}
	registry := plugin.NewRegistry("")
	require.NoError(t, registry.Register(p))
	return registry, p
}

const summarySpec = `
id: quarterly
template_file: report.tmpl
variables:
  - name: summary
    type: text
    prompt_file: summary.tmpl
`

func TestGenerate_EndToEnd(t *testing.T) {
	registry, p := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "Summarize {{ .stats.total }} records."},
		map[string]string{"report.tmpl": "# Report\nTotal: {{ .stats.total | number_format }}\nSummary: {{ .summary }}"},
	)

	client := &scriptedClient{responses: []string{"All good."}}
	gen := NewGenerator(registry, client)

	res, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data",
		SpecID:   "quarterly",
		Bundle:   testBundle(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "# Report\nTotal: 42\nSummary: All good.", res.Content)
	assert.Equal(t, 1, p.initCalls)

	// The prompt itself rendered against the base context.
	require.Len(t, client.prompts, 1)
	assert.Equal(t, "Summarize 42 records.", client.prompts[0])
}

func TestGenerate_Metadata(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "x"},
		map[string]string{"report.tmpl": "{{ .summary }}"},
	)

	b := testBundle(t)
	b.Metadata.Method = bundle.MethodFile
	b.Metadata.File = &bundle.FileIngestion{Path: "data.csv", Format: "csv"}

	gen := NewGenerator(registry, &scriptedClient{responses: []string{"ok"}})
	res, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: b,
	})
	require.NoError(t, err)

	md := res.Metadata
	assert.NotEmpty(t, md.GenerationID)
	assert.Equal(t, "mock-data", md.PluginID)
	assert.Equal(t, "quarterly", md.SpecID)
	assert.Equal(t, "scripted", md.Provider)
	assert.Equal(t, "scripted-model", md.Model)
	assert.Equal(t, 2, md.RecordCount)
	assert.Equal(t, "file", md.IngestionMethod)
	assert.Equal(t, []string{"summary"}, md.Variables)
}

const twoVariableSpec = `
id: quarterly
template_file: report.tmpl
variables:
  - name: summary
    type: text
    prompt_file: summary.tmpl
  - name: outlook
    type: text
    prompt_file: outlook.tmpl
    inputs:
      - ctx.summary
`

// Variables generate in declared order, and a later variable's prompt sees
// the literal value produced for an earlier one.
func TestGenerate_SequentialContext(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": twoVariableSpec},
		map[string]string{
			"summary.tmpl": "Write the summary.",
			"outlook.tmpl": "Given the summary: {{ .summary }}\nWrite the outlook.",
		},
		map[string]string{"report.tmpl": "{{ .summary }}\n{{ .outlook }}"},
	)

	client := &scriptedClient{responses: []string{"REVENUE-IS-UP", "Outlook bright."}}
	gen := NewGenerator(registry, client)

	res, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.NoError(t, err)

	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], "REVENUE-IS-UP")
	assert.Equal(t, "REVENUE-IS-UP\nOutlook bright.", res.Content)
	assert.Equal(t, []string{"summary", "outlook"}, res.Metadata.Variables)
}

// Prior variables are visible to later prompts even without a declared
// input reference.
func TestGenerate_PriorVariablesAlwaysVisible(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": twoVariableSpec},
		map[string]string{
			"summary.tmpl": "Write the summary.",
			// No declared input binds "summary" here; the overlay of
			// previously generated variables still exposes it.
			"outlook.tmpl": "Earlier: {{ .summary }}",
		},
		map[string]string{"report.tmpl": "{{ .outlook }}"},
	)

	client := &scriptedClient{responses: []string{"FIRST", "second"}}
	gen := NewGenerator(registry, client)

	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.NoError(t, err)
	assert.Contains(t, client.prompts[1], "FIRST")
}

const listSpec = `
id: quarterly
template_file: report.tmpl
variables:
  - name: highlights
    type: string_list
    prompt_file: highlights.tmpl
`

func TestGenerate_StringListVariable(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": listSpec},
		map[string]string{"highlights.tmpl": "List highlights."},
		map[string]string{"report.tmpl": "{{ range .highlights }}- {{ . }}\n{{ end }}"},
	)

	client := &scriptedClient{responses: []string{"```json\n[\"a\",\"b\"]\n```"}}
	gen := NewGenerator(registry, client)

	res, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "- a\n- b", res.Content)
}

func TestGenerate_CoercionFallbackContinues(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": `
id: quarterly
template_file: report.tmpl
variables:
  - name: highlights
    type: string_list
    prompt_file: highlights.tmpl
  - name: summary
    type: text
    prompt_file: summary.tmpl
`},
		map[string]string{
			"highlights.tmpl": "List highlights.",
			"summary.tmpl":    "Summarize.",
		},
		map[string]string{"report.tmpl": "{{ index .highlights 0 }}|{{ .summary }}"},
	)

	observer := &recordingObserver{}
	client := &scriptedClient{responses: []string{"not json at all", "still fine"}}
	gen := NewGenerator(registry, client, WithObserver(observer))

	res, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.NoError(t, err, "a malformed list must not abort the report")
	assert.Equal(t, "not json at all|still fine", res.Content)

	var fallbackSeen bool
	for _, e := range observer.events {
		if e.Kind == StepVariableDone && e.Variable == "highlights" {
			fallbackSeen = e.CoercionFallback
		}
	}
	assert.True(t, fallbackSeen, "observer should see the coercion fallback flag")
}

func TestGenerate_ObserverSequence(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": twoVariableSpec},
		map[string]string{"summary.tmpl": "a", "outlook.tmpl": "b"},
		map[string]string{"report.tmpl": "done"},
	)

	observer := &recordingObserver{}
	gen := NewGenerator(registry, &scriptedClient{responses: []string{"x"}}, WithObserver(observer))

	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.NoError(t, err)

	var kinds []StepKind
	for _, e := range observer.events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []StepKind{
		StepPluginResolved,
		StepVariableStart, StepVariableDone,
		StepVariableStart, StepVariableDone,
		StepRenderDone,
	}, kinds)
}

func TestGenerate_UnknownPlugin(t *testing.T) {
	registry := plugin.NewRegistry("")
	gen := NewGenerator(registry, &scriptedClient{responses: []string{"x"}})

	_, err := gen.Generate(context.Background(), Request{
		PluginID: "ghost", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestGenerate_UnknownSpecNoFileIO(t *testing.T) {
	registry, p := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "x"},
		map[string]string{"report.tmpl": "y"},
	)
	// Any file access under these paths would fail loudly.
	p.promptsDir = filepath.Join(t.TempDir(), "does-not-exist")
	p.templatesDir = filepath.Join(t.TempDir(), "does-not-exist")

	client := &scriptedClient{responses: []string{"x"}}
	gen := NewGenerator(registry, client)

	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "missing-spec", Bundle: testBundle(t),
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "quarterly", "error should list available specification IDs")
	assert.Empty(t, client.prompts, "no generation call before spec lookup")
}

func TestGenerate_SpecParseError(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"broken": "{{not yaml"},
		map[string]string{},
		map[string]string{},
	)

	gen := NewGenerator(registry, &scriptedClient{responses: []string{"x"}})
	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "broken", Bundle: testBundle(t),
	})
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))
}

func TestGenerate_MissingPromptFileFatal(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{}, // summary.tmpl never written
		map[string]string{"report.tmpl": "y"},
	)

	gen := NewGenerator(registry, &scriptedClient{responses: []string{"x"}})
	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary")
}

func TestGenerate_MissingTemplateFatal(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "x"},
		map[string]string{}, // report.tmpl never written
	)

	gen := NewGenerator(registry, &scriptedClient{responses: []string{"x"}})
	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.Error(t, err)
}

func TestGenerate_ClientErrorFatal(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "x"},
		map[string]string{"report.tmpl": "y"},
	)

	gen := NewGenerator(registry, &scriptedClient{err: errors.New("provider exploded")})
	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider exploded")
}

func TestGenerate_NilBundle(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "x"},
		map[string]string{"report.tmpl": "y"},
	)

	gen := NewGenerator(registry, &scriptedClient{responses: []string{"x"}})
	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: nil,
	})
	require.Error(t, err)
}

func TestGenerate_ModelOverrideForwarded(t *testing.T) {
	registry, _ := newTestPlugin(t,
		map[string]string{"quarterly": summarySpec},
		map[string]string{"summary.tmpl": "x"},
		map[string]string{"report.tmpl": "{{ .summary }}"},
	)

	var seenModel string
	client := &capturingClient{onGenerate: func(req ai.TextRequest) { seenModel = req.Model }}
	gen := NewGenerator(registry, client)

	_, err := gen.Generate(context.Background(), Request{
		PluginID: "mock-data", SpecID: "quarterly", Bundle: testBundle(t), Model: "special-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "special-model", seenModel)
}

type capturingClient struct {
	onGenerate func(req ai.TextRequest)
}

func (c *capturingClient) GenerateText(_ context.Context, req ai.TextRequest) (string, error) {
	c.onGenerate(req)
	return "ok", nil
}
func (c *capturingClient) Provider() ai.Provider { return "scripted" }
func (c *capturingClient) Model() string         { return "m" }
