package stats

import (
	"strings"
	"testing"

	"stackgp/internal/model"
)

func TestConsoleReporterLine(t *testing.T) {
	var buf strings.Builder
	reporter := ConsoleReporter{W: &buf}

	reporter.Report(model.GenerationDiagnostics{
		Generation:      3,
		BestError:       42,
		MeanError:       100.25,
		Diversity:       0.5,
		AvgGenomeLength: 4.6,
		BestGenome: []model.Instruction{
			{Op: "x"}, {Op: "lit", Value: 1}, {Op: "add"},
		},
	})

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("report line must end with a newline")
	}
	for _, fragment := range []string{"gen    3", "best=42", "diversity=0.50", "best_genome=[x 1 add]"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("line %q missing %q", line, fragment)
		}
	}
}

func TestConsoleReporterNilWriter(t *testing.T) {
	// Must be a no-op rather than a panic.
	ConsoleReporter{}.Report(model.GenerationDiagnostics{Generation: 1})
}
