package stats

import (
	"fmt"
	"io"

	"stackgp/internal/interp"
	"stackgp/internal/model"
)

// ConsoleReporter prints one line per generation. It satisfies the evolution
// driver's Reporter interface.
type ConsoleReporter struct {
	W io.Writer
}

func (r ConsoleReporter) Report(diagnostics model.GenerationDiagnostics) {
	if r.W == nil {
		return
	}
	fmt.Fprintf(r.W, "gen %4d  best=%.0f  mean=%.1f  diversity=%.2f  avg_len=%.1f  best_genome=[%s]\n",
		diagnostics.Generation,
		diagnostics.BestError,
		diagnostics.MeanError,
		diagnostics.Diversity,
		diagnostics.AvgGenomeLength,
		interp.Format(diagnostics.BestGenome),
	)
}
