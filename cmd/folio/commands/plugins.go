package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ledgewood/folio/config"
	"github.com/ledgewood/folio/display"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/plugin"
)

// PluginsCmd inspects the registered data-domain plugins.
var PluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect registered data-domain plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered plugins and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			type entry struct {
				ID           string              `json:"id"`
				Version      string              `json:"version"`
				Description  string              `json:"description"`
				Capabilities plugin.Capabilities `json:"capabilities"`
			}
			out := struct {
				Plugins []entry      `json:"plugins"`
				Stats   plugin.Stats `json:"stats"`
			}{Stats: registry.Stats()}
			for _, p := range registry.List() {
				out.Plugins = append(out.Plugins, entry{
					ID: p.ID(), Version: p.Version(),
					Description: p.Description(), Capabilities: p.IngestionCapabilities(),
				})
			}
			return display.OutputJSON(out)
		}

		rows := pterm.TableData{{"ID", "Version", "Capabilities", "Description"}}
		for _, p := range registry.List() {
			rows = append(rows, []string{
				p.ID(), p.Version(), p.IngestionCapabilities().String(), p.Description(),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
			return err
		}

		stats := registry.Stats()
		pterm.Printf("\n%d plugins: %d file-only, %d api-only, %d hybrid\n",
			stats.Total, stats.FileOnly, stats.APIOnly, stats.Hybrid)
		return nil
	},
}

var pluginsInfoCmd = &cobra.Command{
	Use:   "info ID",
	Short: "Show one plugin's capabilities and specifications",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		p, ok := registry.Get(args[0])
		if !ok {
			return errors.NewNotFoundError("plugin %q is not registered (available: %v)",
				args[0], registry.IDs())
		}

		caps := p.IngestionCapabilities()
		specIDs := make([]string, 0, len(p.Specifications()))
		for id := range p.Specifications() {
			specIDs = append(specIDs, id)
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]any{
				"id":             p.ID(),
				"version":        p.Version(),
				"description":    p.Description(),
				"capabilities":   caps,
				"specifications": specIDs,
			})
		}

		pterm.DefaultSection.Println(p.ID())
		fmt.Printf("Version:        %s\n", p.Version())
		fmt.Printf("Description:    %s\n", p.Description())
		fmt.Printf("Capabilities:   %s\n", caps.String())
		if len(caps.FileFormats) > 0 {
			fmt.Printf("File formats:   %v\n", caps.FileFormats)
		}
		if len(caps.APIEndpoints) > 0 {
			fmt.Printf("API endpoints:  %v\n", caps.APIEndpoints)
		}
		fmt.Printf("Specifications: %v\n", specIDs)

		if schemaProvider, ok := p.(plugin.QuerySchemaProvider); ok {
			schema := schemaProvider.APIQuerySchema()
			fmt.Printf("\nQuery parameters (%s):\n", schema.Description)
			for name, field := range schema.Fields {
				required := ""
				if field.Required {
					required = " (required)"
				}
				fmt.Printf("  %-12s %s%s - %s\n", name, field.Type, required, field.Description)
			}
		}
		return nil
	},
}

var pluginsValidateCmd = &cobra.Command{
	Use:   "validate ID",
	Short: "Run the plugin validator and print its findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		p, ok := registry.Get(args[0])
		if !ok {
			return errors.NewNotFoundError("plugin %q is not registered (available: %v)",
				args[0], registry.IDs())
		}

		result := plugin.ValidateRegistration(p)
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(result)
		}

		for _, e := range result.Errors {
			pterm.Error.Println(e)
		}
		for _, w := range result.Warnings {
			pterm.Warning.Println(w)
		}
		if result.Valid {
			pterm.Success.Printf("%s is valid (%d warnings)\n", p.ID(), len(result.Warnings))
			return nil
		}
		return errors.Newf("%s failed validation with %d errors", p.ID(), len(result.Errors))
	},
}

func loadRegistry() (*plugin.Registry, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildRegistry(cfg)
}

func init() {
	PluginsCmd.AddCommand(pluginsListCmd)
	PluginsCmd.AddCommand(pluginsInfoCmd)
	PluginsCmd.AddCommand(pluginsValidateCmd)

	pluginsListCmd.Flags().Bool("json", false, "Output as JSON")
	pluginsInfoCmd.Flags().Bool("json", false, "Output as JSON")
	pluginsValidateCmd.Flags().Bool("json", false, "Output as JSON")
}
