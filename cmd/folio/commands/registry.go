package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ledgewood/folio/config"
	"github.com/ledgewood/folio/plugin"
	"github.com/ledgewood/folio/plugins/gitrepo"
	"github.com/ledgewood/folio/plugins/sales"
	"github.com/ledgewood/folio/version"
)

// buildRegistry registers the built-in plugins honoring the enabled
// whitelist. An empty whitelist enables everything.
func buildRegistry(cfg *config.Config) (*plugin.Registry, error) {
	registry := plugin.NewRegistry(version.Version)
	assetsRoot := pluginAssetsRoot()

	builtins := []plugin.Plugin{
		gitrepo.New(filepath.Join(assetsRoot, gitrepo.PluginID), gitrepo.Options{}),
		sales.New(filepath.Join(assetsRoot, sales.PluginID), sales.Options{
			Endpoint:           config.GetString("plugins.sales.endpoint"),
			RequestsPerMinute:  cfg.Plugins.MaxRequestsPerMinute,
			MinRequestInterval: time.Duration(cfg.Plugins.DelayBetweenRequests) * time.Millisecond,
			Timeout:            time.Duration(cfg.Plugins.HTTPTimeoutSeconds) * time.Second,
		}),
	}

	for _, p := range builtins {
		if !cfg.PluginEnabled(p.ID()) {
			continue
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// pluginAssetsRoot is where built-in plugins materialize embedded assets.
func pluginAssetsRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "folio", "plugins")
	}
	return filepath.Join(home, ".folio", "plugins")
}
