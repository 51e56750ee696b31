package commands

import (
	"time"

	"github.com/pterm/pterm"

	"github.com/ledgewood/folio/report"
)

// ptermObserver renders generation progress for interactive runs.
type ptermObserver struct{}

var _ report.StepObserver = (*ptermObserver)(nil)

func (o *ptermObserver) OnStep(e report.StepEvent) {
	switch e.Kind {
	case report.StepPluginResolved:
		pterm.Info.Printf("Specification %s/%s: %d variables\n", e.PluginID, e.SpecID, e.Total)
	case report.StepVariableStart:
		pterm.Printf("🔄 [%d/%d] Generating %s...\n", e.Index+1, e.Total, pterm.LightCyan(e.Variable))
	case report.StepVariableDone:
		if e.CoercionFallback {
			pterm.Warning.Printf("[%d/%d] %s: response was not a well-formed list, kept as text\n",
				e.Index+1, e.Total, e.Variable)
			return
		}
		pterm.Printf("✅ [%d/%d] %s (%s)\n", e.Index+1, e.Total,
			pterm.Green(e.Variable), e.Duration.Round(time.Millisecond))
	case report.StepRenderDone:
		pterm.Success.Printf("Document rendered in %s\n", e.Duration.Round(time.Millisecond))
	}
}
