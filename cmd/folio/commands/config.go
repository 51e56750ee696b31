package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ledgewood/folio/config"
	"github.com/ledgewood/folio/display"
	"github.com/ledgewood/folio/errors"
)

// ConfigCmd views and persists configuration.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "View and persist configuration",
	Long: `View the merged configuration (defaults, system, user, project files and
environment variables) and persist changes to the user config file.

Examples:
  folio config list
  folio config get ai.provider
  folio config set ai.provider anthropic`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all configuration values and where each came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		introspection, err := config.GetConfigIntrospection()
		if err != nil {
			return err
		}

		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(introspection)
		}

		rows := pterm.TableData{{"Key", "Value", "Source"}}
		for _, setting := range introspection.Settings {
			rows = append(rows, []string{
				setting.Key, fmt.Sprintf("%v", setting.Value), string(setting.Source),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Show one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := config.Get(args[0])
		if value == nil {
			return errors.NewNotFoundError("no configuration key %q", args[0])
		}
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(map[string]any{args[0]: value})
		}
		fmt.Printf("%v\n", value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Persist a configuration value to the user config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetValue(args[0], args[1]); err != nil {
			return err
		}
		pterm.Success.Printf("Set %s = %s in %s\n", args[0], args[1], config.GetUserConfigPath())
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove a key from the user config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetValue(args[0]); err != nil {
			return err
		}
		pterm.Success.Printf("Removed %s from %s\n", args[0], config.GetUserConfigPath())
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(configListCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configUnsetCmd)

	configListCmd.Flags().Bool("json", false, "Output as JSON")
	configGetCmd.Flags().Bool("json", false, "Output as JSON")
}
