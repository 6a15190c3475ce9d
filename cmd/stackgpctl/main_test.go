package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stackgp/internal/stats"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func TestRunCommandCreatesArtifacts(t *testing.T) {
	chdirTemp(t)

	args := []string{
		"run",
		"--run-id", "run-cli-1",
		"--sequence", "identity",
		"--pop", "30",
		"--gens", "10",
		"--seed", "11",
		"--workers", "2",
		"--quiet",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run command: %v", err)
	}

	entries, err := stats.ListRunIndex(runsDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 || entries[0].RunID != "run-cli-1" {
		t.Fatalf("unexpected run index: %+v", entries)
	}

	for _, file := range []string{"config.json", "error_history.json", "diagnostics.json", "top_genomes.json", "error_series.csv"} {
		path := filepath.Join(runsDir, "run-cli-1", file)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}
}

func TestListingCommandsReadArtifacts(t *testing.T) {
	chdirTemp(t)

	runArgs := []string{
		"run",
		"--run-id", "run-cli-2",
		"--pop", "20",
		"--gens", "5",
		"--seed", "3",
		"--quiet",
	}
	if err := run(context.Background(), runArgs); err != nil {
		t.Fatalf("run command: %v", err)
	}

	// Each listing command below starts from a fresh memory store, so it
	// exercises the artifacts fallback path.
	for _, args := range [][]string{
		{"runs"},
		{"errors", "--latest"},
		{"errors", "--run-id", "run-cli-2", "--limit", "3"},
		{"diagnostics", "--latest"},
		{"top", "--latest"},
		{"sequences"},
		{"export", "--latest"},
	} {
		if err := run(context.Background(), args); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
	}

	if _, err := os.Stat(filepath.Join(exportsDir, "run-cli-2", "config.json")); err != nil {
		t.Fatalf("expected exported config: %v", err)
	}
}

func TestRunCommandConfigFile(t *testing.T) {
	workdir := chdirTemp(t)

	configPath := filepath.Join(workdir, "run.json")
	body := `{"run_id": "run-cli-cfg", "sequence": "identity", "population": 20, "generations": 5, "seed": 7}`
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	args := []string{
		"run",
		"--config", configPath,
		"--gens", "4", // explicit flag beats the config value
		"--quiet",
	}
	if err := run(context.Background(), args); err != nil {
		t.Fatalf("run command: %v", err)
	}

	cfg, ok, err := stats.ReadRunConfig(runsDir, "run-cli-cfg")
	if err != nil || !ok {
		t.Fatalf("read run config: ok=%v err=%v", ok, err)
	}
	if cfg.Generations != 4 || cfg.Seed != 7 || cfg.PopulationSize != 20 {
		t.Fatalf("flag override not applied: %+v", cfg)
	}
}

func TestRunDispatchErrors(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Fatalf("missing command: %v", err)
	}
	if err := run(context.Background(), []string{"evolve"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("unknown command: %v", err)
	}
	if err := run(context.Background(), []string{"errors"}); err == nil {
		t.Fatal("errors without run id must fail")
	}
	if err := run(context.Background(), []string{"top", "--run-id", "x", "--latest"}); err == nil {
		t.Fatal("run id plus latest must fail")
	}
}
