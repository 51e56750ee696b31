package plugin

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/logger"
)

// Registry holds registered plugins keyed by ID. All methods are safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	plugins     map[string]Plugin
	hostVersion string
}

// NewRegistry creates an empty registry. hostVersion is checked against any
// constraint a plugin declares via HostVersionConstrained; pass "" to skip
// host compatibility checks.
func NewRegistry(hostVersion string) *Registry {
	return &Registry{
		plugins:     make(map[string]Plugin),
		hostVersion: hostVersion,
	}
}

// Register validates and adds a plugin. A plugin whose ID is already
// registered is rejected with ErrConflict; use RegisterReplace to overwrite
// deliberately.
func (r *Registry) Register(p Plugin) error {
	return r.register(p, false)
}

// RegisterReplace validates and adds a plugin, overwriting any existing
// registration under the same ID.
func (r *Registry) RegisterReplace(p Plugin) error {
	return r.register(p, true)
}

func (r *Registry) register(p Plugin, replace bool) error {
	if p == nil {
		return errors.New("cannot register nil plugin")
	}

	result := ValidateRegistration(p)
	for _, w := range result.Warnings {
		logger.Warnw("plugin validation warning", "plugin", p.ID(), "warning", w)
	}
	if !result.Valid {
		return &ValidationError{PluginID: p.ID(), Result: result}
	}

	if err := r.checkHostCompatibility(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.ID()]; exists && !replace {
		return errors.Wrapf(errors.ErrConflict, "plugin %q already registered", p.ID())
	}

	r.plugins[p.ID()] = p
	logger.Debugw("plugin registered",
		"plugin", p.ID(),
		"version", p.Version(),
		"capabilities", p.IngestionCapabilities().String(),
	)
	return nil
}

func (r *Registry) checkHostCompatibility(p Plugin) error {
	constrained, ok := p.(HostVersionConstrained)
	if !ok || r.hostVersion == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(constrained.HostVersionConstraint())
	if err != nil {
		return errors.Wrapf(err, "plugin %q declares invalid host constraint %q",
			p.ID(), constrained.HostVersionConstraint())
	}

	host, err := semver.NewVersion(r.hostVersion)
	if err != nil {
		return errors.Wrapf(err, "host version %q is not valid semver", r.hostVersion)
	}

	if !constraint.Check(host) {
		return errors.Newf("plugin %q requires host %s, running %s",
			p.ID(), constrained.HostVersionConstraint(), r.hostVersion)
	}
	return nil
}

// Get returns the plugin registered under id.
func (r *Registry) Get(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// Has reports whether a plugin is registered under id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.plugins[id]
	return ok
}

// List returns all registered plugins sorted by ID.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// IDs returns the sorted IDs of all registered plugins.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Unregister removes the plugin registered under id, reporting whether one
// was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.plugins[id]
	delete(r.plugins, id)
	return ok
}

// Clear removes all registrations.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]Plugin)
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// FindByCapability returns plugins supporting the given ingestion kind,
// sorted by ID.
func (r *Registry) FindByCapability(kind CapabilityKind) []Plugin {
	var out []Plugin
	for _, p := range r.List() {
		if p.IngestionCapabilities().Supports(kind) {
			out = append(out, p)
		}
	}
	return out
}

// FindByFileFormat returns file-capable plugins that accept the given
// format, sorted by ID.
func (r *Registry) FindByFileFormat(format string) []Plugin {
	var out []Plugin
	for _, p := range r.List() {
		if p.IngestionCapabilities().SupportsFormat(format) {
			out = append(out, p)
		}
	}
	return out
}

// Stats summarizes the capability mix of a registry.
type Stats struct {
	Total    int `json:"total"`
	FileOnly int `json:"file_only"`
	APIOnly  int `json:"api_only"`
	Hybrid   int `json:"hybrid"`
}

// Stats returns capability counts across registered plugins.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Total: len(r.plugins)}
	for _, p := range r.plugins {
		caps := p.IngestionCapabilities()
		switch {
		case caps.File && caps.API:
			s.Hybrid++
		case caps.File:
			s.FileOnly++
		case caps.API:
			s.APIOnly++
		}
	}
	return s
}

var (
	defaultRegistry   *Registry
	defaultRegistryMu sync.RWMutex
)

// SetDefaultRegistry installs the process-wide registry. Panics if one is
// already set; tests use ResetDefaultRegistry between cases.
func SetDefaultRegistry(r *Registry) {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	if defaultRegistry != nil {
		panic("plugin: default registry already set")
	}
	defaultRegistry = r
}

// GetDefaultRegistry returns the process-wide registry, or nil if none is
// installed.
func GetDefaultRegistry() *Registry {
	defaultRegistryMu.RLock()
	defer defaultRegistryMu.RUnlock()
	return defaultRegistry
}

// ResetDefaultRegistry clears the process-wide registry.
func ResetDefaultRegistry() {
	defaultRegistryMu.Lock()
	defer defaultRegistryMu.Unlock()
	defaultRegistry = nil
}

// Register adds a plugin to the default registry.
func Register(p Plugin) error {
	r := GetDefaultRegistry()
	if r == nil {
		return errors.New("no default plugin registry installed")
	}
	return r.Register(p)
}

// Get looks up a plugin in the default registry.
func Get(id string) (Plugin, bool) {
	r := GetDefaultRegistry()
	if r == nil {
		return nil, false
	}
	return r.Get(id)
}

// List returns all plugins in the default registry sorted by ID.
func List() []Plugin {
	r := GetDefaultRegistry()
	if r == nil {
		return nil
	}
	return r.List()
}
