// Package sales is the built-in plugin for sales performance reports. It
// ingests CSV exports from disk and row data from a paginated HTTP API,
// and ships a "quarterly" specification rendering a markdown sales report.
package sales

import (
	"context"
	"embed"
	"encoding/csv"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/internal/httpclient"
	"github.com/ledgewood/folio/plugin"
)

//go:embed assets
var assets embed.FS

//go:embed assets/specs/quarterly.yaml
var quarterlySpec string

const (
	// PluginID is the registry identifier for this plugin.
	PluginID = "folio-sales"

	version           = "0.3.1"
	defaultSampleSize = 5
	maxPages          = 100
)

var csvColumns = []string{"date", "region", "product", "units", "revenue"}

// Doer is the HTTP client surface the API ingester needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options tunes ingestion behavior.
type Options struct {
	// Endpoint is the row-data API base URL. Empty disables the api
	// capability.
	Endpoint string
	// RequestsPerMinute throttles API pagination. Zero means unlimited.
	RequestsPerMinute int
	// MinRequestInterval spaces consecutive API requests. Takes precedence
	// over RequestsPerMinute when both are set.
	MinRequestInterval time.Duration
	// HTTPClient overrides the SSRF-protected default, mainly for tests.
	HTTPClient Doer
	// SampleSize caps the "main" sample set. Zero uses the default.
	SampleSize int
	// Timeout bounds each API request. Zero means 30 seconds.
	Timeout time.Duration
}

// Plugin ingests sales row data. Assets are materialized under assetsDir
// on first use.
type Plugin struct {
	assetsDir  string
	endpoint   string
	httpc      Doer
	limiter    *rate.Limiter
	sampleSize int

	initOnce sync.Once
	initErr  error
}

var (
	_ plugin.Plugin              = (*Plugin)(nil)
	_ plugin.Initializer         = (*Plugin)(nil)
	_ plugin.FileIngester        = (*Plugin)(nil)
	_ plugin.APIIngester         = (*Plugin)(nil)
	_ plugin.QuerySchemaProvider = (*Plugin)(nil)
)

// New creates the plugin. assetsDir is where embedded prompt and template
// files are materialized; it should be stable across runs.
func New(assetsDir string, opts Options) *Plugin {
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaultSampleSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = httpclient.New(opts.Timeout)
	}
	var limiter *rate.Limiter
	switch {
	case opts.MinRequestInterval > 0:
		limiter = rate.NewLimiter(rate.Every(opts.MinRequestInterval), 1)
	case opts.RequestsPerMinute > 0:
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}
	return &Plugin{
		assetsDir:  assetsDir,
		endpoint:   opts.Endpoint,
		httpc:      httpc,
		limiter:    limiter,
		sampleSize: opts.SampleSize,
	}
}

func (p *Plugin) ID() string          { return PluginID }
func (p *Plugin) Version() string     { return version }
func (p *Plugin) Description() string { return "Sales performance reports from CSV files or a row-data API" }

func (p *Plugin) IngestionCapabilities() plugin.Capabilities {
	caps := plugin.Capabilities{
		File:        true,
		FileFormats: []string{"csv"},
	}
	if p.endpoint != "" {
		caps.API = true
		caps.APIEndpoints = []string{p.endpoint}
	}
	return caps
}

func (p *Plugin) Specifications() map[string]string {
	return map[string]string{"quarterly": quarterlySpec}
}

func (p *Plugin) PromptsDir() string   { return filepath.Join(p.assetsDir, "prompts") }
func (p *Plugin) TemplatesDir() string { return filepath.Join(p.assetsDir, "templates") }

func (p *Plugin) Manifest() plugin.Entry {
	return plugin.Entry{
		ID:                 PluginID,
		Name:               "Sales Performance",
		ClassName:          "SalesReportPlugin",
		PackageName:        "@ledgewood/folio-sales",
		Description:        p.Description(),
		Version:            version,
		SupportedDataTypes: []string{"csv", "json"},
	}
}

// Initialize materializes embedded assets. Safe to call repeatedly.
func (p *Plugin) Initialize(context.Context) error {
	p.initOnce.Do(func() {
		p.initErr = plugin.MaterializeAssets(assets, "assets", p.assetsDir)
	})
	return p.initErr
}

// APIQuerySchema describes the row-data API's accepted query parameters.
func (p *Plugin) APIQuerySchema() plugin.QuerySchema {
	return plugin.QuerySchema{
		Description: "Filters forwarded to the sales row-data API",
		Fields: map[string]plugin.QueryField{
			"region": {
				Type:        "string",
				Description: "Restrict rows to one sales region",
			},
			"product": {
				Type:        "string",
				Description: "Restrict rows to one product",
			},
			"start_date": {
				Type:        "date",
				Description: "Earliest sale date (YYYY-MM-DD), inclusive",
			},
			"end_date": {
				Type:        "date",
				Description: "Latest sale date (YYYY-MM-DD), inclusive",
			},
		},
	}
}

// IngestFromFile parses a CSV export with the header
// date,region,product,units,revenue into a bundle.
func (p *Plugin) IngestFromFile(ctx context.Context, path string) (*bundle.Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	records, err := parseCSV(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Newf("%s contains no data rows", path)
	}

	info, _ := f.Stat()
	b := p.buildBundle(path, records)
	b.Metadata.Method = bundle.MethodFile
	b.Metadata.File = &bundle.FileIngestion{Path: path, Format: "csv"}
	if info != nil {
		b.Metadata.File.SizeBytes = info.Size()
	}
	return b, nil
}

func parseCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header row")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, want := range csvColumns {
		if _, ok := col[want]; !ok {
			return nil, errors.Newf("missing required column %q (have: %v)", want, header)
		}
	}

	var records []map[string]any
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		units, err := strconv.Atoi(strings.TrimSpace(row[col["units"]]))
		if err != nil {
			return nil, errors.Newf("line %d: units %q is not an integer", line, row[col["units"]])
		}
		revenue, err := strconv.ParseFloat(strings.TrimSpace(row[col["revenue"]]), 64)
		if err != nil {
			return nil, errors.Newf("line %d: revenue %q is not a number", line, row[col["revenue"]])
		}

		records = append(records, map[string]any{
			"date":    strings.TrimSpace(row[col["date"]]),
			"region":  strings.TrimSpace(row[col["region"]]),
			"product": strings.TrimSpace(row[col["product"]]),
			"units":   units,
			"revenue": revenue,
		})
	}
	return records, nil
}

// buildBundle derives the stat surface shared by both ingestion paths.
func (p *Plugin) buildBundle(source string, records []map[string]any) *bundle.Bundle {
	var totalRevenue float64
	var totalUnits int
	byProduct := map[string]any{}
	byRegion := map[string]any{}

	for _, rec := range records {
		revenue, _ := rec["revenue"].(float64)
		units, _ := rec["units"].(int)
		totalRevenue += revenue
		totalUnits += units

		if product, ok := rec["product"].(string); ok {
			prev, _ := byProduct[product].(float64)
			byProduct[product] = prev + revenue
		}
		if region, ok := rec["region"].(string); ok {
			prev, _ := byRegion[region].(float64)
			byRegion[region] = prev + revenue
		}
	}

	b := bundle.New(source, records)
	b.Stats["total_revenue"] = totalRevenue
	b.Stats["total_units"] = totalUnits
	b.Stats["by_product"] = byProduct
	b.Stats["by_region"] = byRegion
	b.Stats["average_order"] = totalRevenue / float64(len(records))

	n := p.sampleSize
	if n > len(records) {
		n = len(records)
	}
	b.Samples[bundle.PrimarySampleSet] = records[:n]
	return b
}
