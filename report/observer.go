package report

import "time"

// StepKind identifies a stage in the generation sequence.
type StepKind string

const (
	// StepPluginResolved fires once the plugin and specification are
	// loaded, before any variable generation.
	StepPluginResolved StepKind = "plugin_resolved"
	// StepVariableStart fires before a variable's prompt is rendered.
	StepVariableStart StepKind = "variable_start"
	// StepVariableDone fires after a variable's response is coerced and
	// stored.
	StepVariableDone StepKind = "variable_done"
	// StepRenderDone fires after the final template renders.
	StepRenderDone StepKind = "render_done"
)

// StepEvent describes one generation step for progress reporting. The
// engine performs no terminal output itself; the CLI installs an observer
// that does.
type StepEvent struct {
	Kind     StepKind
	PluginID string
	SpecID   string

	// Variable fields, set for variable_start and variable_done.
	Variable string
	Index    int // zero-based position in the specification
	Total    int // number of declared variables

	// Done fields.
	Duration         time.Duration
	CoercionFallback bool // string_list parse failed, raw text wrapped
}

// StepObserver receives step events during generation. OnStep is called
// sequentially from the generation goroutine; implementations must not
// block for long.
type StepObserver interface {
	OnStep(event StepEvent)
}

// NopObserver ignores all events. The default when no observer is set.
type NopObserver struct{}

// OnStep implements StepObserver.
func (NopObserver) OnStep(StepEvent) {}
