package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgewood/folio/cmd/folio/commands"
	"github.com/ledgewood/folio/logger"
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "folio - LLM-assisted document generation",
	Long: `folio - LLM-assisted document generation from plugin data domains.

Plugins ingest domain data (files or remote APIs) into bundles; report
specifications drive sequential variable generation against a model
provider; a final template renders the document.

Available commands:
  generate - Ingest data and generate a document
  plugins  - Inspect registered data-domain plugins
  config   - View and persist configuration
  usage    - Show model usage and spend
  version  - Show version information

Examples:
  folio generate --plugin folio-sales --spec quarterly --file q1.csv
  folio generate --plugin folio-gitrepo --spec activity --file ./repo
  folio plugins list
  folio usage --days 7`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.PluginsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.UsageCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
