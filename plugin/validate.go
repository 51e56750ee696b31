package plugin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ledgewood/folio/errors"
)

// Entry is the packaging metadata a distributable plugin ships in its
// manifest. Entries are validated structurally before a plugin is trusted.
type Entry struct {
	ID                 string   `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	ClassName          string   `json:"class_name" yaml:"class_name"`
	PackageName        string   `json:"package_name" yaml:"package_name"`
	Description        string   `json:"description" yaml:"description"`
	Version            string   `json:"version" yaml:"version"`
	SupportedDataTypes []string `json:"supported_data_types" yaml:"supported_data_types"`
}

// Result is the outcome of plugin validation. Valid is true iff Errors is
// empty; Warnings never affect validity.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) finalize() {
	r.Valid = len(r.Errors) == 0
}

// ValidationError is returned when registration is rejected; it carries the
// itemized validation result.
type ValidationError struct {
	PluginID string
	Result   Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plugin %q failed validation: %s",
		e.PluginID, strings.Join(e.Result.Errors, "; "))
}

func (e *ValidationError) Unwrap() error {
	return errors.ErrValidation
}

var (
	idPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

	// PascalCase, alphanumeric only, ending in the literal "Plugin".
	classNamePattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*Plugin$`)

	// npm-style package name, scoped (@scope/name) or unscoped.
	packageNamePattern = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)
)

// ValidIDPattern exposes the plugin ID grammar for documentation and CLI
// error messages.
const ValidIDPattern = `^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`

// ValidateEntry structurally validates packaging metadata. It never returns
// an error; every problem is itemized in the result.
func ValidateEntry(entry Entry) Result {
	var r Result

	if entry.ID == "" {
		r.errorf("id is required")
	} else {
		if len(entry.ID) > 50 {
			r.errorf("id %q exceeds 50 characters", entry.ID)
		}
		if !idPattern.MatchString(entry.ID) {
			r.errorf("id %q must be lowercase alphanumeric with interior hyphens (%s)", entry.ID, ValidIDPattern)
		}
	}

	if entry.ClassName == "" {
		r.errorf("class_name is required")
	} else {
		if len(entry.ClassName) < 8 || len(entry.ClassName) > 100 {
			r.errorf("class_name %q must be 8-100 characters", entry.ClassName)
		}
		if !classNamePattern.MatchString(entry.ClassName) {
			r.errorf("class_name %q must be PascalCase alphanumeric ending in \"Plugin\"", entry.ClassName)
		}
	}

	if entry.PackageName == "" {
		r.errorf("package_name is required")
	} else if !packageNamePattern.MatchString(entry.PackageName) {
		r.errorf("package_name %q is not a valid package name", entry.PackageName)
	}

	if entry.Version == "" {
		r.errorf("version is required")
	} else if _, err := semver.StrictNewVersion(entry.Version); err != nil {
		r.errorf("version %q is not valid semver: %v", entry.Version, err)
	}

	if len(entry.SupportedDataTypes) == 0 {
		r.errorf("supported_data_types must be a non-empty list")
	} else {
		for i, dt := range entry.SupportedDataTypes {
			if strings.TrimSpace(dt) == "" {
				r.errorf("supported_data_types[%d] is blank", i)
			}
		}
	}

	r.finalize()
	return r
}

// ValidatePlugin behaviorally validates a live plugin instance: identity
// fields, capability declarations, and agreement between declared
// capabilities and implemented ingestion interfaces. Pure with respect to
// the plugin: calling it twice without mutation yields the same result.
func ValidatePlugin(p Plugin) Result {
	var r Result

	id := p.ID()
	if id == "" {
		r.errorf("plugin ID is empty")
	} else if !idPattern.MatchString(id) || len(id) > 50 {
		r.errorf("plugin ID %q must be lowercase alphanumeric with interior hyphens, at most 50 characters", id)
	}

	if p.Version() == "" {
		r.errorf("plugin version is empty")
	} else if _, err := semver.StrictNewVersion(p.Version()); err != nil {
		r.warnf("plugin version %q is not valid semver: %v", p.Version(), err)
	}

	if p.Description() == "" {
		r.errorf("plugin description is empty")
	}

	caps, capErr := queryCapabilities(p)
	if capErr != nil {
		r.errorf("capability query panicked: %v", capErr)
		r.finalize()
		return r
	}
	if !caps.Any() {
		r.errorf("plugin declares no ingestion methods (at least one of file/api required)")
	}

	_, hasFileIngester := p.(FileIngester)
	_, hasAPIIngester := p.(APIIngester)
	_, hasQuerySchema := p.(QuerySchemaProvider)

	if caps.File {
		if !hasFileIngester {
			r.errorf("file capability declared but IngestFromFile is not implemented")
		} else if len(caps.FileFormats) == 0 {
			r.warnf("file capability declared without file_formats")
		}
	} else if hasFileIngester {
		r.warnf("IngestFromFile implemented but file capability not declared")
	}

	if caps.API {
		if !hasAPIIngester {
			r.errorf("api capability declared but IngestFromAPI is not implemented")
		} else {
			if !hasQuerySchema {
				r.warnf("api capability declared without a query schema")
			}
			if len(caps.APIEndpoints) == 0 {
				r.warnf("api capability declared without api_endpoints")
			}
		}
	} else if hasAPIIngester {
		r.warnf("IngestFromAPI implemented but api capability not declared")
	}

	if p.PromptsDir() == "" {
		r.errorf("prompts directory is empty")
	}
	if p.TemplatesDir() == "" {
		r.errorf("templates directory is empty")
	}
	if len(p.Specifications()) == 0 {
		r.warnf("plugin exposes no specifications")
	}

	r.finalize()
	return r
}

// ValidateRegistration is the full check run at registration time: behavioral
// validation of the live instance plus, when the plugin ships a manifest,
// structural validation of that manifest and agreement between the two.
func ValidateRegistration(p Plugin) Result {
	r := ValidatePlugin(p)

	m, ok := p.(Manifester)
	if !ok {
		return r
	}

	entry := m.Manifest()
	er := ValidateEntry(entry)
	r.Errors = append(r.Errors, er.Errors...)
	r.Warnings = append(r.Warnings, er.Warnings...)

	if entry.ID != "" && entry.ID != p.ID() {
		r.errorf("manifest id %q does not match plugin ID %q", entry.ID, p.ID())
	}
	if entry.Version != "" && entry.Version != p.Version() {
		r.errorf("manifest version %q does not match plugin version %q", entry.Version, p.Version())
	}

	r.finalize()
	return r
}

// queryCapabilities fetches a plugin's capability declaration behind a
// recover, so a broken plugin fails validation instead of crashing the
// registry.
func queryCapabilities(p Plugin) (caps Capabilities, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	return p.IngestionCapabilities(), nil
}
