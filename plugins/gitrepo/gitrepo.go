// Package gitrepo is the built-in plugin for git repository activity
// reports. It ingests commit history from a local repository with go-git
// and ships an "activity" specification rendering a markdown activity
// report.
package gitrepo

import (
	"context"
	"embed"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/plugin"
)

//go:embed assets
var assets embed.FS

//go:embed assets/specs/activity.yaml
var activitySpec string

const (
	// PluginID is the registry identifier for this plugin.
	PluginID = "folio-gitrepo"

	version           = "0.2.0"
	defaultSampleSize = 10
)

// Options tunes ingestion behavior.
type Options struct {
	// Since drops commits authored before this time. Zero keeps all.
	Since time.Time
	// SampleSize caps the "main" sample set. Zero uses the default.
	SampleSize int
}

// Plugin ingests local git repositories. Assets are materialized under
// assetsDir on first use.
type Plugin struct {
	assetsDir string
	opts      Options

	initOnce sync.Once
	initErr  error
}

var (
	_ plugin.Plugin       = (*Plugin)(nil)
	_ plugin.Initializer  = (*Plugin)(nil)
	_ plugin.FileIngester = (*Plugin)(nil)
)

// New creates the plugin. assetsDir is where embedded prompt and template
// files are materialized; it should be stable across runs.
func New(assetsDir string, opts Options) *Plugin {
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaultSampleSize
	}
	return &Plugin{assetsDir: assetsDir, opts: opts}
}

func (p *Plugin) ID() string          { return PluginID }
func (p *Plugin) Version() string     { return version }
func (p *Plugin) Description() string { return "Git repository commit activity reports" }

func (p *Plugin) IngestionCapabilities() plugin.Capabilities {
	return plugin.Capabilities{
		File:        true,
		FileFormats: []string{"git"},
	}
}

func (p *Plugin) Specifications() map[string]string {
	return map[string]string{"activity": activitySpec}
}

func (p *Plugin) PromptsDir() string   { return filepath.Join(p.assetsDir, "prompts") }
func (p *Plugin) TemplatesDir() string { return filepath.Join(p.assetsDir, "templates") }

func (p *Plugin) Manifest() plugin.Entry {
	return plugin.Entry{
		ID:                 PluginID,
		Name:               "Git Repository Activity",
		ClassName:          "GitRepoPlugin",
		PackageName:        "@ledgewood/folio-gitrepo",
		Description:        p.Description(),
		Version:            version,
		SupportedDataTypes: []string{"git"},
	}
}

// Initialize materializes embedded assets. Safe to call repeatedly.
func (p *Plugin) Initialize(context.Context) error {
	p.initOnce.Do(func() {
		p.initErr = plugin.MaterializeAssets(assets, "assets", p.assetsDir)
	})
	return p.initErr
}

// IngestFromFile opens the git repository at path and builds a bundle from
// its commit history. The path is a repository working tree or .git
// directory, not a data file.
func (p *Plugin) IngestFromFile(ctx context.Context, path string) (*bundle.Bundle, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening git repository at %s", path)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "resolving HEAD (is the repository empty?)")
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, errors.Wrap(err, "reading commit log")
	}
	defer iter.Close()

	var records []map[string]any
	byAuthor := map[string]any{}
	byWeekday := map[string]any{}

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		when := c.Author.When.UTC()
		if !p.opts.Since.IsZero() && when.Before(p.opts.Since) {
			return nil
		}
		records = append(records, commitRecord(c))

		author := c.Author.Name
		if n, ok := byAuthor[author].(int); ok {
			byAuthor[author] = n + 1
		} else {
			byAuthor[author] = 1
		}
		day := when.Weekday().String()
		if n, ok := byWeekday[day].(int); ok {
			byWeekday[day] = n + 1
		} else {
			byWeekday[day] = 1
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "iterating commits")
	}
	if len(records) == 0 {
		return nil, errors.Newf("repository at %s has no commits in range", path)
	}

	b := bundle.New(path, records)
	b.Stats["total_commits"] = len(records)
	b.Stats["authors"] = len(byAuthor)
	b.Stats["by_author"] = byAuthor
	b.Stats["by_weekday"] = byWeekday

	// go-git yields commits newest first, so the head of the record list is
	// already the most recent activity.
	n := p.opts.SampleSize
	if n > len(records) {
		n = len(records)
	}
	b.Samples[bundle.PrimarySampleSet] = records[:n]

	return b, nil
}

func commitRecord(c *object.Commit) map[string]any {
	message := c.Message
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		message = message[:i]
	}
	hash := c.Hash.String()
	if len(hash) > 8 {
		hash = hash[:8]
	}
	return map[string]any{
		"hash":      hash,
		"author":    c.Author.Name,
		"email":     c.Author.Email,
		"message":   strings.TrimSpace(message),
		"timestamp": c.Author.When.UTC().Format(time.RFC3339),
		"parents":   c.NumParents(),
	}
}
