package plugin

import (
	"sort"
	"strings"
)

// CapabilityKind names one ingestion method for capability queries.
type CapabilityKind string

const (
	KindFile CapabilityKind = "file"
	KindAPI  CapabilityKind = "api"
)

// Capabilities declares which ingestion methods a plugin supports and, per
// method, the file formats or API endpoints it understands. At least one of
// File/API must be true for a plugin to pass validation.
type Capabilities struct {
	File bool `json:"file"`
	API  bool `json:"api"`

	FileFormats  []string `json:"file_formats,omitempty"`
	APIEndpoints []string `json:"api_endpoints,omitempty"`
}

// Any reports whether at least one ingestion method is enabled.
func (c Capabilities) Any() bool {
	return c.File || c.API
}

// Supports reports whether the named ingestion method is enabled.
func (c Capabilities) Supports(kind CapabilityKind) bool {
	switch kind {
	case KindFile:
		return c.File
	case KindAPI:
		return c.API
	}
	return false
}

// SupportsFormat reports whether the plugin declares the given file format.
// Comparison is case-insensitive and tolerates a leading dot ("CSV", ".csv",
// and "csv" all match).
func (c Capabilities) SupportsFormat(format string) bool {
	if !c.File {
		return false
	}
	format = normalizeFormat(format)
	for _, f := range c.FileFormats {
		if normalizeFormat(f) == format {
			return true
		}
	}
	return false
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

// String renders a compact capability summary like "file(csv,json)+api".
func (c Capabilities) String() string {
	var parts []string
	if c.File {
		if len(c.FileFormats) > 0 {
			formats := make([]string, len(c.FileFormats))
			copy(formats, c.FileFormats)
			sort.Strings(formats)
			parts = append(parts, "file("+strings.Join(formats, ",")+")")
		} else {
			parts = append(parts, "file")
		}
	}
	if c.API {
		parts = append(parts, "api")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}
