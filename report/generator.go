// Package report implements the generation-orchestration engine: it walks a
// specification's variables in declared order, renders each prompt against
// the accumulating context, invokes the generation client, coerces the
// response, and finally renders the report template with every value in
// scope.
//
// Execution is strictly sequential. Each variable may depend on any
// variable declared before it, so there is no parallelism and no dependency
// analysis; the specification author's declared order is the execution
// order. A Generator is safe for concurrent Generate calls: all per-run
// state lives in the Context each call constructs.
package report

import (
	stdctx "context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgewood/folio/ai"
	"github.com/ledgewood/folio/bundle"
	"github.com/ledgewood/folio/errors"
	"github.com/ledgewood/folio/internal/util"
	"github.com/ledgewood/folio/plugin"
	"github.com/ledgewood/folio/render"
	"github.com/ledgewood/folio/spec"
)

// Generator executes report-generation requests against a plugin registry
// and a generation client.
type Generator struct {
	registry *plugin.Registry
	client   ai.Client
	engine   *render.Engine
	observer StepObserver
	logger   *zap.SugaredLogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithObserver installs a step observer for progress reporting.
func WithObserver(o StepObserver) Option {
	return func(g *Generator) {
		if o != nil {
			g.observer = o
		}
	}
}

// WithLogger installs a scoped structured logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a Generator. The registry and client are required;
// the template engine, observer, and logger have working defaults.
func NewGenerator(registry *plugin.Registry, client ai.Client, opts ...Option) *Generator {
	g := &Generator{
		registry: registry,
		client:   client,
		engine:   render.NewEngine(),
		observer: NopObserver{},
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request is one report-generation request.
type Request struct {
	PluginID string
	SpecID   string
	Bundle   *bundle.Bundle

	// Model optionally overrides the client's default model for every
	// variable in this run.
	Model string
}

// Metadata describes a completed generation run.
type Metadata struct {
	GenerationID    string        `json:"generation_id"`
	PluginID        string        `json:"plugin_id"`
	SpecID          string        `json:"spec_id"`
	Provider        string        `json:"provider"`
	Model           string        `json:"model"`
	GeneratedAt     time.Time     `json:"generated_at"`
	RecordCount     int           `json:"record_count"`
	IngestionMethod string        `json:"ingestion_method,omitempty"`
	Variables       []string      `json:"variables"`
	Duration        time.Duration `json:"duration"`
}

// Result is the assembled report body plus generation metadata. Prompts
// holds each variable's fully rendered prompt, keyed by variable name, so
// callers can persist them alongside the document.
type Result struct {
	Content  string            `json:"content"`
	Metadata Metadata          `json:"metadata"`
	Prompts  map[string]string `json:"prompts,omitempty"`
}

// Generate runs one request end to end. Any I/O failure, specification
// parse failure, or client failure aborts the run with no partial output;
// only string_list coercion failures are absorbed (the variable falls back
// to a single-element list and generation continues).
func (g *Generator) Generate(ctx stdctx.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.Bundle == nil {
		return nil, errors.New("generation request has no bundle")
	}

	p, ok := g.registry.Get(req.PluginID)
	if !ok {
		return nil, errors.NewNotFoundError("plugin %q is not registered", req.PluginID)
	}

	if err := plugin.MaybeInitialize(ctx, p); err != nil {
		return nil, err
	}

	// Specification lookup happens before any file I/O so an unknown spec
	// ID fails fast.
	doc, ok := p.Specifications()[req.SpecID]
	if !ok {
		return nil, errors.NewNotFoundError("plugin %q has no specification %q (available: %v)",
			req.PluginID, req.SpecID, specIDs(p))
	}

	s, err := spec.ParseString(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "specification %q", req.SpecID)
	}

	promptsDir := p.PromptsDir()
	templatesDir := p.TemplatesDir()

	genCtx := newContext(req.Bundle, s.ID)
	generationID := uuid.New().String()

	log := g.logger.With(
		"generation_id", generationID,
		"plugin", req.PluginID,
		"spec", req.SpecID,
	)
	log.Infow("generation started",
		"variables", len(s.Variables),
		"records", req.Bundle.RecordCount(),
		"provider", g.client.Provider(),
	)

	g.observer.OnStep(StepEvent{
		Kind:     StepPluginResolved,
		PluginID: req.PluginID,
		SpecID:   req.SpecID,
		Total:    len(s.Variables),
	})

	prompts := make(map[string]string, len(s.Variables))
	for i, v := range s.Variables {
		prompt, err := g.generateVariable(ctx, log, genCtx, promptsDir, req, v, i, len(s.Variables))
		if err != nil {
			return nil, err
		}
		prompts[v.Name] = prompt
	}

	body, err := g.renderReport(templatesDir, s.TemplateFile, genCtx)
	if err != nil {
		return nil, err
	}

	g.observer.OnStep(StepEvent{
		Kind:     StepRenderDone,
		PluginID: req.PluginID,
		SpecID:   req.SpecID,
		Duration: time.Since(start),
	})
	log.Infow("generation complete",
		"content_length", len(body),
		"duration", time.Since(start),
	)

	return &Result{
		Content: body,
		Prompts: prompts,
		Metadata: Metadata{
			GenerationID:    generationID,
			PluginID:        req.PluginID,
			SpecID:          s.ID,
			Provider:        string(g.client.Provider()),
			Model:           g.client.Model(),
			GeneratedAt:     time.Now().UTC(),
			RecordCount:     req.Bundle.RecordCount(),
			IngestionMethod: req.Bundle.Metadata.Method,
			Variables:       genCtx.Variables(),
			Duration:        time.Since(start),
		},
	}, nil
}

// generateVariable runs one step of the sequence: prompt load, context
// binding, render, client call, coercion, context store.
func (g *Generator) generateVariable(ctx stdctx.Context, log *zap.SugaredLogger, genCtx *Context,
	promptsDir string, req Request, v spec.Variable, index, total int) (string, error) {

	stepStart := time.Now()
	g.observer.OnStep(StepEvent{
		Kind:     StepVariableStart,
		PluginID: req.PluginID,
		SpecID:   req.SpecID,
		Variable: v.Name,
		Index:    index,
		Total:    total,
	})

	promptPath := filepath.Join(promptsDir, v.PromptFile)
	promptText, err := os.ReadFile(promptPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading prompt file for variable %q", v.Name)
	}

	promptCtx := g.buildPromptContext(genCtx, v)

	prompt, err := g.engine.RenderString(string(promptText), promptCtx)
	if err != nil {
		return "", errors.Wrapf(err, "rendering prompt for variable %q", v.Name)
	}

	log.Debugw("invoking generation client",
		"variable", v.Name,
		"type", v.Type,
		"prompt_preview", util.TruncateString(prompt, 200),
	)

	response, err := g.client.GenerateText(ctx, ai.TextRequest{Prompt: prompt, Model: req.Model})
	if err != nil {
		return "", errors.Wrapf(err, "generating variable %q", v.Name)
	}

	value, fellBack := coerce(v.Type, response)
	if fellBack {
		log.Warnw("response coercion fell back to raw text",
			"variable", v.Name,
			"type", v.Type,
			"response_preview", util.TruncateString(response, 200),
		)
	}

	if err := genCtx.SetVariable(v.Name, value); err != nil {
		return "", errors.Wrapf(err, "storing variable %q", v.Name)
	}

	g.observer.OnStep(StepEvent{
		Kind:             StepVariableDone,
		PluginID:         req.PluginID,
		SpecID:           req.SpecID,
		Variable:         v.Name,
		Index:            index,
		Total:            total,
		Duration:         time.Since(stepStart),
		CoercionFallback: fellBack,
	})
	return prompt, nil
}

// buildPromptContext assembles the rendering context for one variable's
// prompt: the fixed base keys, the declared inputs bound under their
// derived short names, then every previously generated variable. Inputs
// choose binding names; they are not an access boundary, since the prior
// variable overlay always exposes the whole history.
func (g *Generator) buildPromptContext(genCtx *Context, v spec.Variable) map[string]any {
	promptCtx := map[string]any{
		KeyBundle:   genCtx.values[KeyBundle],
		KeyStats:    genCtx.values[KeyStats],
		KeySamples:  genCtx.values[KeySamples],
		KeyMetadata: genCtx.values[KeyMetadata],
	}

	for _, ref := range v.Inputs {
		promptCtx[BindName(ref)] = Resolve(ref, genCtx)
	}

	for _, name := range genCtx.order {
		promptCtx[name] = genCtx.values[name]
	}

	return promptCtx
}

// renderReport loads and renders the final template, trimming the result.
func (g *Generator) renderReport(templatesDir, templateFile string, genCtx *Context) (string, error) {
	templatePath := filepath.Join(templatesDir, templateFile)
	templateText, err := os.ReadFile(templatePath)
	if err != nil {
		return "", errors.Wrapf(err, "reading report template %s", templateFile)
	}

	body, err := g.engine.RenderString(string(templateText), genCtx.Map())
	if err != nil {
		return "", errors.Wrap(err, "rendering report template")
	}
	return strings.TrimSpace(body), nil
}

func specIDs(p plugin.Plugin) []string {
	specs := p.Specifications()
	ids := make([]string, 0, len(specs))
	for id := range specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
