package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgewood/folio/errors"
)

const salesSpec = `
id: sales-report
template_file: sales_report.md.tmpl
variables:
  - name: summary
    type: text
    prompt_file: summary.txt
    inputs:
      - bundle.stats
      - bundle.samples.main
  - name: highlights
    type: string_list
    prompt_file: highlights.txt
    inputs:
      - ctx.summary
  - name: narrative
    type: markdown
    prompt_file: narrative.txt
`

func TestParse(t *testing.T) {
	s, err := ParseString(salesSpec)
	require.NoError(t, err)

	assert.Equal(t, "sales-report", s.ID)
	assert.Equal(t, "sales_report.md.tmpl", s.TemplateFile)
	require.Len(t, s.Variables, 3)

	// Declaration order is execution order
	assert.Equal(t, []string{"summary", "highlights", "narrative"}, s.VariableNames())

	summary := s.Variables[0]
	assert.Equal(t, TypeText, summary.Type)
	assert.Equal(t, "summary.txt", summary.PromptFile)
	assert.Equal(t, []string{"bundle.stats", "bundle.samples.main"}, summary.Inputs)

	highlights := s.Variables[1]
	assert.Equal(t, TypeStringList, highlights.Type)
	assert.Equal(t, []string{"ctx.summary"}, highlights.Inputs)

	// Inputs are optional
	assert.Empty(t, s.Variables[2].Inputs)
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := ParseString("id: [unclosed")
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err), "malformed YAML should be a parse error")
}

func TestParseEmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "---\n", "# just a comment\n"} {
		_, err := ParseString(doc)
		require.Error(t, err, "doc %q", doc)
		assert.True(t, errors.IsParseError(err))
		assert.Contains(t, err.Error(), "empty")
	}
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		errContains string
	}{
		{
			name: "missing id",
			doc: `
template_file: out.tmpl
variables:
  - name: v
    type: text
    prompt_file: v.txt
`,
			errContains: "id is required",
		},
		{
			name: "missing template_file",
			doc: `
id: report
variables:
  - name: v
    type: text
    prompt_file: v.txt
`,
			errContains: "template_file",
		},
		{
			name: "no variables",
			doc: `
id: report
template_file: out.tmpl
`,
			errContains: "no variables",
		},
		{
			name: "variable without name",
			doc: `
id: report
template_file: out.tmpl
variables:
  - type: text
    prompt_file: v.txt
`,
			errContains: "has no name",
		},
		{
			name: "unknown variable type",
			doc: `
id: report
template_file: out.tmpl
variables:
  - name: v
    type: integer
    prompt_file: v.txt
`,
			errContains: "unknown type",
		},
		{
			name: "variable without prompt_file",
			doc: `
id: report
template_file: out.tmpl
variables:
  - name: v
    type: text
`,
			errContains: "prompt_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.doc)
			require.Error(t, err)
			assert.True(t, errors.IsParseError(err))
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestVariableTypeValid(t *testing.T) {
	assert.True(t, TypeText.Valid())
	assert.True(t, TypeStringList.Valid())
	assert.True(t, TypeMarkdown.Valid())
	assert.False(t, VariableType("json").Valid())
	assert.False(t, VariableType("").Valid())
}

func TestParseRedeclaredVariableAllowed(t *testing.T) {
	// Re-declaring a name intentionally overwrites the earlier value during
	// generation, so the parser accepts it.
	doc := `
id: report
template_file: out.tmpl
variables:
  - name: draft
    type: text
    prompt_file: draft.txt
  - name: draft
    type: text
    prompt_file: revise.txt
    inputs:
      - ctx.draft
`
	s, err := ParseString(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft", "draft"}, s.VariableNames())
}
