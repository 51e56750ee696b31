// Package plugin provides the plugin architecture for folio data domains.
//
// A plugin packages everything one data domain needs for report generation:
// ingestion (file parsing and/or remote API queries), report specifications,
// prompt templates, and the final render template. The generation engine
// consumes plugins through the Plugin interface; it never knows about
// domain-specific record shapes.
//
// Required behavior lives on the Plugin interface and is enforced by the
// compiler. Capability-dependent behavior (file vs. API ingestion, startup
// initialization, query schemas) lives on optional interfaces asserted at
// runtime, and the validator checks that a plugin's declared capabilities
// agree with the interfaces it actually implements.
package plugin

import (
	"context"

	"github.com/ledgewood/folio/bundle"
)

// Plugin is the contract every ingestion plugin implements.
type Plugin interface {
	// ID is the stable plugin identifier (lowercase, digit, hyphen).
	ID() string

	// Version is the plugin's semantic version.
	Version() string

	// Description is a human-readable summary of the data domain.
	Description() string

	// IngestionCapabilities declares supported ingestion methods. The
	// registry queries capabilities live on every lookup rather than
	// caching them.
	IngestionCapabilities() Capabilities

	// Specifications returns the plugin's report specifications keyed by
	// specification ID, each value a serialized YAML document.
	Specifications() map[string]string

	// PromptsDir returns the directory holding the plugin's prompt
	// template files.
	PromptsDir() string

	// TemplatesDir returns the directory holding the plugin's final
	// render templates.
	TemplatesDir() string
}

// Initializer is implemented by plugins that need setup before first use
// (materializing embedded assets, opening connections). The engine calls
// Initialize once before using a plugin; implementations must be safe to
// call repeatedly.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// FileIngester is implemented by plugins declaring the file capability.
type FileIngester interface {
	IngestFromFile(ctx context.Context, path string) (*bundle.Bundle, error)
}

// APIIngester is implemented by plugins declaring the api capability.
// Query keys follow the plugin's APIQuerySchema when it provides one.
type APIIngester interface {
	IngestFromAPI(ctx context.Context, query map[string]any) (*APIResult, error)
}

// APIResult pairs an ingested bundle with provider-specific response
// metadata that has no place in the bundle's provenance fields.
type APIResult struct {
	Bundle      *bundle.Bundle `json:"bundle"`
	APIMetadata map[string]any `json:"api_metadata,omitempty"`
}

// QuerySchemaProvider is implemented by API-capable plugins that describe
// their accepted query parameters, enabling generic CLI flag handling.
type QuerySchemaProvider interface {
	APIQuerySchema() QuerySchema
}

// QuerySchema describes the query parameters an APIIngester accepts.
type QuerySchema struct {
	Description string                `json:"description,omitempty"`
	Fields      map[string]QueryField `json:"fields"`
}

// QueryField describes a single query parameter.
type QueryField struct {
	Type        string   `json:"type"` // "string", "number", "boolean", "date"
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// HostVersionConstrained is implemented by plugins that require a specific
// folio version range, expressed as a semver constraint ("^0.3", ">=1.0.0").
type HostVersionConstrained interface {
	HostVersionConstraint() string
}

// Manifester is implemented by plugins that ship packaging metadata. The
// manifest is structurally validated at registration time and must agree
// with the plugin's ID and version.
type Manifester interface {
	Manifest() Entry
}
