package commands

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ledgewood/folio/ai"
	"github.com/ledgewood/folio/ai/tracker"
	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/config"
	"github.com/ledgewood/folio/db"
	"github.com/ledgewood/folio/display"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/logger"
	"github.com/ledgewood/folio/plugin"
	"github.com/ledgewood/folio/report"
)

// GenerateCmd runs one ingestion plus generation end to end.
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ingest data and generate a document",
	Long: `Ingest data through a plugin, then run the plugin's report specification
against a model provider and render the final document.

Data comes from --file (file-capable plugins) or --query key=value pairs
(API-capable plugins); exactly one must be given.

Examples:
  folio generate --plugin folio-sales --spec quarterly --file q1.csv
  folio generate --plugin folio-sales --spec quarterly --query region=north
  folio generate --plugin folio-gitrepo --spec activity --file ./repo --out activity.md`,
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().String("plugin", "", "Plugin ID (required)")
	GenerateCmd.Flags().String("spec", "", "Specification ID (required)")
	GenerateCmd.Flags().String("file", "", "Path to ingest (file-capable plugins)")
	GenerateCmd.Flags().StringArray("query", nil, "API query parameter as key=value (repeatable)")
	GenerateCmd.Flags().String("provider", "", "Model provider: local, openrouter, anthropic, auto")
	GenerateCmd.Flags().String("model", "", "Override the provider's default model")
	GenerateCmd.Flags().String("out", "", "Output file instead of stdout; bare names go under generation.output_dir")
	GenerateCmd.Flags().Bool("json", false, "Output the result as JSON")
	_ = GenerateCmd.MarkFlagRequired("plugin")
	_ = GenerateCmd.MarkFlagRequired("spec")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	pluginID, _ := cmd.Flags().GetString("plugin")
	specID, _ := cmd.Flags().GetString("spec")
	filePath, _ := cmd.Flags().GetString("file")
	queryPairs, _ := cmd.Flags().GetStringArray("query")
	providerFlag, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	outPath, _ := cmd.Flags().GetString("out")
	verbosity, _ := cmd.Root().PersistentFlags().GetCount("verbose")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	p, ok := registry.Get(pluginID)
	if !ok {
		return errors.NewNotFoundError("plugin %q is not registered (available: %v)",
			pluginID, registry.IDs())
	}

	b, err := ingest(cmd, p, filePath, queryPairs)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Ingested %d records via %s\n", b.RecordCount(), b.Metadata.Method)

	if providerFlag == "" {
		providerFlag = cfg.AI.Provider
	}
	provider, err := ai.ParseProvider(providerFlag)
	if err != nil {
		return err
	}

	var usageDB *sql.DB
	if cfg.Usage.Enabled {
		usageDB, err = db.OpenWithMigrations(cfg.GetDatabasePath(), logger.Named("db"))
		if err != nil {
			logger.Warnw("usage tracking disabled, database unavailable", "error", err)
			usageDB = nil
		} else {
			defer usageDB.Close()
		}
	}

	if usageDB != nil {
		limits := tracker.BudgetLimits{
			DailyUSD:   cfg.Usage.DailyBudgetUSD,
			WeeklyUSD:  cfg.Usage.WeeklyBudgetUSD,
			MonthlyUSD: cfg.Usage.MonthlyBudgetUSD,
		}
		if err := tracker.NewUsageTracker(usageDB, verbosity).CheckBudgets(time.Now(), limits); err != nil {
			return err
		}
	}

	client, err := ai.NewClient(cfg, provider, ai.ClientOptions{
		Model:         model,
		DB:            usageDB,
		Verbosity:     verbosity,
		OperationType: "report-generation",
		EntityType:    "specification",
		EntityID:      pluginID + "/" + specID,
		Logger:        logger.Named("ai"),
	})
	if err != nil {
		return err
	}
	pterm.Info.Printf("Generating with %s (%s)\n", client.Provider(), client.Model())

	gen := report.NewGenerator(registry, client,
		report.WithObserver(&ptermObserver{}),
		report.WithLogger(logger.Named("report")),
	)
	res, err := gen.Generate(cmd.Context(), report.Request{
		PluginID: pluginID,
		SpecID:   specID,
		Bundle:   b,
		Model:    model,
	})
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(res)
	}

	outPath = resolveOutPath(cfg, outPath)
	if outPath != "" {
		if dir := filepath.Dir(outPath); dir != "." {
			if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
				return err
			}
		}
		if err := os.WriteFile(outPath, []byte(res.Content+"\n"), config.DefaultFilePermissions); err != nil {
			return errors.Wrapf(err, "writing %s", outPath)
		}
		if cfg.Generation.SavePrompts {
			if err := savePrompts(outPath, res.Prompts); err != nil {
				return err
			}
		}
		pterm.Success.Printf("Document written to %s (%d variables, %s)\n",
			outPath, len(res.Metadata.Variables), res.Metadata.Duration.Round(time.Millisecond))
		return nil
	}

	fmt.Println(res.Content)
	return nil
}

// resolveOutPath places a bare output filename under the configured report
// directory. Paths containing a separator are used as written.
func resolveOutPath(cfg *config.Config, outPath string) string {
	if outPath == "" || strings.ContainsRune(outPath, os.PathSeparator) {
		return outPath
	}
	return filepath.Join(cfg.GetOutputDir(), outPath)
}

// savePrompts writes each variable's rendered prompt next to the report as
// <out>.prompts.yaml, for auditing what the model was actually asked.
func savePrompts(outPath string, prompts map[string]string) error {
	data, err := yaml.Marshal(prompts)
	if err != nil {
		return errors.Wrap(err, "serializing prompts")
	}
	path := outPath + ".prompts.yaml"
	if err := os.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	pterm.Info.Printf("Prompts written to %s\n", path)
	return nil
}

// ingest routes to file or API ingestion from the mutually exclusive flags.
func ingest(cmd *cobra.Command, p plugin.Plugin, filePath string, queryPairs []string) (*bundle.Bundle, error) {
	switch {
	case filePath != "" && len(queryPairs) > 0:
		return nil, errors.New("--file and --query are mutually exclusive")

	case filePath != "":
		return plugin.IngestFile(cmd.Context(), p, filePath)

	case len(queryPairs) > 0:
		query, err := parseQueryPairs(queryPairs)
		if err != nil {
			return nil, err
		}
		res, err := plugin.IngestAPI(cmd.Context(), p, query)
		if err != nil {
			return nil, err
		}
		if pages, ok := res.APIMetadata["pages"]; ok {
			pterm.Info.Printf("Fetched %v pages\n", pages)
		}
		return res.Bundle, nil

	default:
		return nil, errors.New("provide --file PATH or --query key=value")
	}
}

func parseQueryPairs(pairs []string) (map[string]any, error) {
	query := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, errors.Newf("malformed query parameter %q (want key=value)", pair)
		}
		query[key] = value
	}
	return query, nil
}
