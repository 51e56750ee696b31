// Package bundle defines the standardized data container produced by
// ingestion plugins and consumed read-only by the report generation engine.
package bundle

import (
	"reflect"
	"time"

	"github.com/ledgewood/folio/errors"
)

// PrimarySampleSet is the sample-set name the generation engine binds to the
// base "samples" prompt key.
const PrimarySampleSet = "main"

// Ingestion method tags recorded in Metadata.Method.
const (
	MethodFile = "file"
	MethodAPI  = "api"
)

// Bundle holds ingested records, aggregate statistics, prompt-sized samples,
// and provenance metadata. A plugin creates one Bundle per ingestion call;
// the generation engine never mutates it.
type Bundle struct {
	Source   string                      `json:"source"`
	Records  []map[string]any            `json:"records"`
	Stats    map[string]any              `json:"stats"`
	Samples  map[string][]map[string]any `json:"samples,omitempty"`
	Metadata Metadata                    `json:"metadata"`
}

// Metadata captures ingestion provenance. Exactly one of File/API is set
// when Method names that ingestion mode.
type Metadata struct {
	IngestedAt  time.Time      `json:"ingested_at"`
	RecordCount int            `json:"record_count"`
	Method      string         `json:"method,omitempty"` // "file" or "api"
	File        *FileIngestion `json:"file,omitempty"`
	API         *APIIngestion  `json:"api,omitempty"`
}

// FileIngestion records provenance for file-based ingestion.
type FileIngestion struct {
	Path      string `json:"path"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// APIIngestion records provenance and timing for remote-query ingestion.
type APIIngestion struct {
	Endpoint     string         `json:"endpoint"`
	Query        map[string]any `json:"query,omitempty"`
	RequestCount int            `json:"request_count"`
	DurationMs   int64          `json:"duration_ms"`
	RateLimit    *RateLimitInfo `json:"rate_limit,omitempty"`
}

// RateLimitInfo carries the remote API's rate-limit state at ingestion time.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at,omitempty"`
}

// New creates a Bundle with metadata consistent with the given records.
// Stats and Samples start empty; plugins fill them before returning.
func New(source string, records []map[string]any) *Bundle {
	return &Bundle{
		Source:  source,
		Records: records,
		Stats:   make(map[string]any),
		Samples: make(map[string][]map[string]any),
		Metadata: Metadata{
			IngestedAt:  time.Now().UTC(),
			RecordCount: len(records),
		},
	}
}

// Validate checks the bundle's internal consistency: the metadata record
// count matches the records, every sample set is a subset of the records,
// and the method tag agrees with its provenance sub-object.
func (b *Bundle) Validate() error {
	if b.Source == "" {
		return errors.Wrap(errors.ErrValidation, "bundle source is empty")
	}

	if b.Metadata.RecordCount != len(b.Records) {
		return errors.Wrap(errors.ErrValidation,
			errors.Newf("metadata record_count %d does not match %d records",
				b.Metadata.RecordCount, len(b.Records)).Error())
	}

	for name, sample := range b.Samples {
		if len(sample) > len(b.Records) {
			return errors.Wrap(errors.ErrValidation,
				errors.Newf("sample set %q has %d records, more than the bundle's %d",
					name, len(sample), len(b.Records)).Error())
		}
		for i, rec := range sample {
			if !containsRecord(b.Records, rec) {
				return errors.Wrap(errors.ErrValidation,
					errors.Newf("sample set %q record %d is not in the bundle records", name, i).Error())
			}
		}
	}

	switch b.Metadata.Method {
	case "":
		// Method tag is optional
	case MethodFile:
		if b.Metadata.File == nil {
			return errors.Wrap(errors.ErrValidation, "method is file but file metadata is missing")
		}
	case MethodAPI:
		if b.Metadata.API == nil {
			return errors.Wrap(errors.ErrValidation, "method is api but api metadata is missing")
		}
	default:
		return errors.Wrap(errors.ErrValidation,
			errors.Newf("unknown ingestion method %q", b.Metadata.Method).Error())
	}

	return nil
}

// containsRecord reports whether records holds an entry deep-equal to rec.
// Sample sets are small, so the scan cost is bounded by the sample size.
func containsRecord(records []map[string]any, rec map[string]any) bool {
	for _, candidate := range records {
		if reflect.DeepEqual(candidate, rec) {
			return true
		}
	}
	return false
}

// PrimarySamples returns the "main" sample set, or nil if the plugin did not
// provide one.
func (b *Bundle) PrimarySamples() []map[string]any {
	if b.Samples == nil {
		return nil
	}
	return b.Samples[PrimarySampleSet]
}

// RecordCount returns the number of ingested records.
func (b *Bundle) RecordCount() int {
	return len(b.Records)
}

// ContextMap renders the bundle as nested maps so dotted-path references
// (bundle.stats.total, bundle.samples.main, bundle.metadata.record_count)
// can be walked uniformly.
func (b *Bundle) ContextMap() map[string]any {
	samples := make(map[string]any, len(b.Samples))
	for name, recs := range b.Samples {
		samples[name] = recs
	}

	return map[string]any{
		"source":   b.Source,
		"records":  b.Records,
		"stats":    b.Stats,
		"samples":  samples,
		"metadata": b.Metadata.contextMap(),
	}
}

func (m Metadata) contextMap() map[string]any {
	out := map[string]any{
		"ingested_at":  m.IngestedAt,
		"record_count": m.RecordCount,
	}
	if m.Method != "" {
		out["method"] = m.Method
	}
	if m.File != nil {
		out["file"] = map[string]any{
			"path":       m.File.Path,
			"format":     m.File.Format,
			"size_bytes": m.File.SizeBytes,
		}
	}
	if m.API != nil {
		api := map[string]any{
			"endpoint":      m.API.Endpoint,
			"request_count": m.API.RequestCount,
			"duration_ms":   m.API.DurationMs,
		}
		if m.API.Query != nil {
			api["query"] = m.API.Query
		}
		if m.API.RateLimit != nil {
			api["rate_limit"] = map[string]any{
				"limit":     m.API.RateLimit.Limit,
				"remaining": m.API.RateLimit.Remaining,
				"reset_at":  m.API.RateLimit.ResetAt,
			}
		}
		out["api"] = api
	}
	return out
}
