package plugin

import (
	"context"
	"time"

	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/logger"
)

// MaybeInitialize calls Initialize if the plugin implements Initializer.
// Initialize must be safe to call repeatedly.
func MaybeInitialize(ctx context.Context, p Plugin) error {
	init, ok := p.(Initializer)
	if !ok {
		return nil
	}
	if err := init.Initialize(ctx); err != nil {
		return errors.Wrapf(err, "initializing plugin %q", p.ID())
	}
	return nil
}

// IngestFile dispatches file ingestion to the plugin. The plugin must
// declare the file capability; requests against plugins without it fail
// with a capability mismatch.
func IngestFile(ctx context.Context, p Plugin, path string) (*bundle.Bundle, error) {
	caps := p.IngestionCapabilities()
	if !caps.File {
		return nil, errors.NewCapabilityMismatchError(
			"plugin %q does not support file ingestion (supports: %s)", p.ID(), caps.String())
	}

	ingester, ok := p.(FileIngester)
	if !ok {
		return nil, errors.NewCapabilityMismatchError(
			"plugin %q declares file ingestion but does not implement IngestFromFile", p.ID())
	}

	if err := MaybeInitialize(ctx, p); err != nil {
		return nil, err
	}

	start := time.Now()
	b, err := ingester.IngestFromFile(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin %q failed to ingest %s", p.ID(), path)
	}
	if b == nil {
		return nil, errors.Newf("plugin %q returned no bundle for %s", p.ID(), path)
	}

	// Stamp provenance the plugin omitted; the dispatcher knows the path.
	if b.Metadata.Method == "" {
		b.Metadata.Method = bundle.MethodFile
		if b.Metadata.File == nil {
			b.Metadata.File = &bundle.FileIngestion{Path: path}
		}
	}
	if err := b.Validate(); err != nil {
		return nil, errors.Wrapf(err, "plugin %q produced an invalid bundle", p.ID())
	}

	logger.Infow("file ingestion complete",
		"plugin", p.ID(),
		"path", path,
		"records", b.RecordCount(),
		"duration", time.Since(start),
	)
	return b, nil
}

// IngestAPI dispatches API ingestion to the plugin. The plugin must declare
// the api capability; requests against plugins without it fail with a
// capability mismatch.
func IngestAPI(ctx context.Context, p Plugin, query map[string]any) (*APIResult, error) {
	caps := p.IngestionCapabilities()
	if !caps.API {
		return nil, errors.NewCapabilityMismatchError(
			"plugin %q does not support api ingestion (supports: %s)", p.ID(), caps.String())
	}

	ingester, ok := p.(APIIngester)
	if !ok {
		return nil, errors.NewCapabilityMismatchError(
			"plugin %q declares api ingestion but does not implement IngestFromAPI", p.ID())
	}

	if err := MaybeInitialize(ctx, p); err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := ingester.IngestFromAPI(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "plugin %q api ingestion failed", p.ID())
	}
	if res == nil || res.Bundle == nil {
		return nil, errors.Newf("plugin %q returned no bundle from api ingestion", p.ID())
	}

	if res.Bundle.Metadata.Method == "" {
		res.Bundle.Metadata.Method = bundle.MethodAPI
		if res.Bundle.Metadata.API == nil {
			res.Bundle.Metadata.API = &bundle.APIIngestion{
				Query:        query,
				RequestCount: 1,
				DurationMs:   time.Since(start).Milliseconds(),
			}
		}
	}
	if err := res.Bundle.Validate(); err != nil {
		return nil, errors.Wrapf(err, "plugin %q produced an invalid bundle", p.ID())
	}

	logger.Infow("api ingestion complete",
		"plugin", p.ID(),
		"records", res.Bundle.RecordCount(),
		"duration", time.Since(start),
	)
	return res, nil
}
