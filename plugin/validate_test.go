package plugin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgewood/folio/errors"
)

func validEntry() Entry {
	return Entry{
		ID:                 "sales-data",
		Name:               "Sales Data",
		ClassName:          "SalesDataPlugin",
		PackageName:        "@ledgewood/folio-sales-data",
		Description:        "Ingests sales exports",
		Version:            "1.2.3",
		SupportedDataTypes: []string{"sales"},
	}
}

func TestValidateEntry(t *testing.T) {
	t.Run("valid entry", func(t *testing.T) {
		result := ValidateEntry(validEntry())
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("valid unscoped package", func(t *testing.T) {
		entry := validEntry()
		entry.PackageName = "folio-sales-data"
		result := ValidateEntry(entry)
		assert.True(t, result.Valid)
	})

	tests := []struct {
		name    string
		mutate  func(*Entry)
		errPart string
	}{
		{
			name:    "missing id",
			mutate:  func(e *Entry) { e.ID = "" },
			errPart: "id is required",
		},
		{
			name:    "id leading hyphen",
			mutate:  func(e *Entry) { e.ID = "-sales" },
			errPart: "lowercase alphanumeric",
		},
		{
			name:    "id trailing hyphen",
			mutate:  func(e *Entry) { e.ID = "sales-" },
			errPart: "lowercase alphanumeric",
		},
		{
			name:    "id uppercase",
			mutate:  func(e *Entry) { e.ID = "Sales" },
			errPart: "lowercase alphanumeric",
		},
		{
			name:    "id too long",
			mutate:  func(e *Entry) { e.ID = strings.Repeat("a", 51) },
			errPart: "exceeds 50 characters",
		},
		{
			name:    "class name lowercase start",
			mutate:  func(e *Entry) { e.ClassName = "salesDataPlugin" },
			errPart: "PascalCase",
		},
		{
			name:    "class name missing suffix",
			mutate:  func(e *Entry) { e.ClassName = "SalesDataIngester" },
			errPart: "PascalCase",
		},
		{
			name:    "class name too short",
			mutate:  func(e *Entry) { e.ClassName = "APlugin" },
			errPart: "8-100 characters",
		},
		{
			name:    "class name underscore",
			mutate:  func(e *Entry) { e.ClassName = "Sales_DataPlugin" },
			errPart: "PascalCase",
		},
		{
			name:    "package name uppercase",
			mutate:  func(e *Entry) { e.PackageName = "Folio-Sales" },
			errPart: "not a valid package name",
		},
		{
			name:    "package name bad scope",
			mutate:  func(e *Entry) { e.PackageName = "@/sales" },
			errPart: "not a valid package name",
		},
		{
			name:    "version two segments",
			mutate:  func(e *Entry) { e.Version = "1.2" },
			errPart: "not valid semver",
		},
		{
			name:    "version leading v",
			mutate:  func(e *Entry) { e.Version = "v1.2.3" },
			errPart: "not valid semver",
		},
		{
			name:    "no data types",
			mutate:  func(e *Entry) { e.SupportedDataTypes = nil },
			errPart: "non-empty list",
		},
		{
			name:    "blank data type",
			mutate:  func(e *Entry) { e.SupportedDataTypes = []string{"sales", "  "} },
			errPart: "is blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := validEntry()
			tt.mutate(&entry)

			result := ValidateEntry(entry)
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)

			found := false
			for _, e := range result.Errors {
				if strings.Contains(e, tt.errPart) {
					found = true
					break
				}
			}
			assert.True(t, found, "expected an error containing %q, got %v", tt.errPart, result.Errors)
		})
	}

	t.Run("edge lengths pass", func(t *testing.T) {
		entry := validEntry()
		entry.ID = "a"
		entry.ClassName = "AaPlugin"
		result := ValidateEntry(entry)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("prerelease version passes strict semver", func(t *testing.T) {
		entry := validEntry()
		entry.Version = "2.0.0-beta.1"
		result := ValidateEntry(entry)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("multiple problems all itemized", func(t *testing.T) {
		result := ValidateEntry(Entry{})
		assert.False(t, result.Valid)
		assert.GreaterOrEqual(t, len(result.Errors), 5)
	})
}

func TestValidatePlugin(t *testing.T) {
	t.Run("valid file plugin", func(t *testing.T) {
		result := ValidatePlugin(newMockPlugin("sales"))
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("capability declared without implementation", func(t *testing.T) {
		p := &declaredOnlyPlugin{id: "hollow"}
		result := ValidatePlugin(p)
		assert.False(t, result.Valid)

		joined := strings.Join(result.Errors, "; ")
		assert.Contains(t, joined, "IngestFromFile")
	})

	t.Run("no capabilities declared", func(t *testing.T) {
		p := newMockPlugin("empty")
		p.caps = Capabilities{}
		result := ValidatePlugin(p)
		assert.False(t, result.Valid)
		assert.Contains(t, strings.Join(result.Errors, "; "), "no ingestion methods")
	})

	t.Run("empty identity fields", func(t *testing.T) {
		p := newMockPlugin("ok-id")
		p.description = ""
		p.version = ""
		result := ValidatePlugin(p)
		assert.False(t, result.Valid)

		joined := strings.Join(result.Errors, "; ")
		assert.Contains(t, joined, "description is empty")
		assert.Contains(t, joined, "version is empty")
	})

	t.Run("invalid id rejected", func(t *testing.T) {
		p := newMockPlugin("Bad_ID")
		result := ValidatePlugin(p)
		assert.False(t, result.Valid)
	})

	t.Run("loose version is a warning not an error", func(t *testing.T) {
		p := newMockPlugin("sales")
		p.version = "1.0"
		result := ValidatePlugin(p)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
		assert.NotEmpty(t, result.Warnings)
	})

	t.Run("implemented but undeclared capability warns", func(t *testing.T) {
		p := newMockAPIPlugin("metrics")
		p.caps = Capabilities{API: true, APIEndpoints: []string{"/v1/metrics"}}

		result := ValidatePlugin(p)
		assert.True(t, result.Valid, "errors: %v", result.Errors)

		joined := strings.Join(result.Warnings, "; ")
		assert.Contains(t, joined, "file capability not declared")
	})

	t.Run("file capability without formats warns", func(t *testing.T) {
		p := newMockPlugin("sales")
		p.caps.FileFormats = nil
		result := ValidatePlugin(p)
		assert.True(t, result.Valid)
		assert.Contains(t, strings.Join(result.Warnings, "; "), "file_formats")
	})

	t.Run("repeated validation is stable", func(t *testing.T) {
		p := newMockPlugin("sales")
		first := ValidatePlugin(p)
		second := ValidatePlugin(p)
		assert.Equal(t, first, second)
	})

	t.Run("panicking capability query fails validation", func(t *testing.T) {
		p := &panickyCapsPlugin{mockPlugin: newMockPlugin("broken")}

		var result Result
		assert.NotPanics(t, func() { result = ValidatePlugin(p) })
		assert.False(t, result.Valid)
		assert.Contains(t, strings.Join(result.Errors, "; "), "capability query panicked")
	})
}

// panickyCapsPlugin simulates a plugin whose capability query blows up.
type panickyCapsPlugin struct {
	*mockPlugin
}

func (p *panickyCapsPlugin) IngestionCapabilities() Capabilities {
	panic("capabilities unavailable")
}

// manifestMockPlugin wraps a mock with packaging metadata.
type manifestMockPlugin struct {
	*mockPlugin
	entry Entry
}

func (p *manifestMockPlugin) Manifest() Entry { return p.entry }

func TestValidateRegistration(t *testing.T) {
	t.Run("plugin without manifest validates as before", func(t *testing.T) {
		result := ValidateRegistration(newMockPlugin("sales"))
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("valid manifest passes", func(t *testing.T) {
		entry := validEntry()
		entry.ID = "sales"
		entry.Version = "1.0.0"
		p := &manifestMockPlugin{mockPlugin: newMockPlugin("sales"), entry: entry}

		result := ValidateRegistration(p)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("structurally invalid manifest rejected", func(t *testing.T) {
		entry := validEntry()
		entry.ID = "sales"
		entry.Version = "1.0.0"
		entry.ClassName = "not_pascal"
		p := &manifestMockPlugin{mockPlugin: newMockPlugin("sales"), entry: entry}

		result := ValidateRegistration(p)
		assert.False(t, result.Valid)
		assert.Contains(t, strings.Join(result.Errors, "; "), "PascalCase")
	})

	t.Run("manifest id mismatch rejected", func(t *testing.T) {
		entry := validEntry()
		entry.Version = "1.0.0"
		p := &manifestMockPlugin{mockPlugin: newMockPlugin("sales"), entry: entry}

		result := ValidateRegistration(p)
		assert.False(t, result.Valid)
		assert.Contains(t, strings.Join(result.Errors, "; "), "does not match plugin ID")
	})

	t.Run("manifest version mismatch rejected", func(t *testing.T) {
		entry := validEntry()
		entry.ID = "sales"
		entry.Version = "9.9.9"
		p := &manifestMockPlugin{mockPlugin: newMockPlugin("sales"), entry: entry}

		result := ValidateRegistration(p)
		assert.False(t, result.Valid)
		assert.Contains(t, strings.Join(result.Errors, "; "), "does not match plugin version")
	})
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		PluginID: "sales",
		Result: Result{
			Errors: []string{"description is empty", "templates directory is empty"},
		},
	}

	assert.Contains(t, err.Error(), `"sales"`)
	assert.Contains(t, err.Error(), "description is empty")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.True(t, errors.IsValidationError(err))
}
