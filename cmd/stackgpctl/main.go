package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"stackgp/internal/interp"
	"stackgp/internal/storage"
	"stackgp/pkg/stackgp"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "errors":
		return runErrors(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "sequences":
		return runSequences(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newClient(storeKind, dbPath string) (*stackgp.Client, error) {
	return stackgp.New(stackgp.Options{
		StoreKind:  storeKind,
		DBPath:     dbPath,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("reset store=%s\n", *storeKind)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	sequenceName := fs.String("sequence", "identity", "target sequence name (see sequences command)")
	population := fs.Int("pop", 50, "population size")
	generations := fs.Int("gens", 50, "generation budget")
	startLength := fs.Int("start-length", 5, "initial genome length")
	selectionName := fs.String("selection", "tournament", "parent selection strategy: tournament|lexicase")
	crossover := fs.Bool("crossover", false, "enable crossover")
	crossoverStrategy := fs.String("crossover-strategy", "umad", "crossover strategy: umad|single_point|uniform")
	mutation := fs.Bool("mutation", true, "enable UMAD mutation")
	addRate := fs.Float64("add-rate", 0.3, "UMAD addition rate")
	delRate := fs.Float64("del-rate", 0.3, "UMAD deletion rate")
	elitism := fs.Bool("elitism", true, "carry the best genome unchanged into the next generation")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 4, "evaluation worker count")
	quiet := fs.Bool("quiet", false, "suppress per-generation progress lines")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = stackgp.RunRequest{
			Sequence:          *sequenceName,
			Population:        *population,
			Generations:       *generations,
			StartLength:       *startLength,
			Selection:         *selectionName,
			Crossover:         *crossover,
			CrossoverStrategy: *crossoverStrategy,
			Mutation:          *mutation,
			AddRate:           *addRate,
			DelRate:           *delRate,
			Elitism:           *elitism,
			Seed:              *seed,
			Workers:           *workers,
			RunID:             *runID,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"run-id":             *runID,
			"sequence":           *sequenceName,
			"pop":                *population,
			"gens":               *generations,
			"start-length":       *startLength,
			"selection":          *selectionName,
			"crossover":          *crossover,
			"crossover-strategy": *crossoverStrategy,
			"mutation":           *mutation,
			"add-rate":           *addRate,
			"del-rate":           *delRate,
			"elitism":            *elitism,
			"seed":               *seed,
			"workers":            *workers,
		})
	}
	if !*quiet {
		req.Progress = os.Stdout
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("run completed run_id=%s sequence=%s pop=%d gens=%d seed=%d\n",
		summary.RunID, summary.Sequence, req.Population, req.Generations, req.Seed)
	fmt.Printf("final_best_error=%.0f solved=%t best_genome=[%s]\n",
		summary.FinalBestError, summary.Solved, summary.BestGenome)
	fmt.Printf("artifacts_dir=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		type runsItem struct {
			RunID          string  `json:"run_id"`
			CreatedAtUTC   string  `json:"created_at_utc"`
			Sequence       string  `json:"sequence"`
			Seed           int64   `json:"seed"`
			PopulationSize int     `json:"population_size"`
			Generations    int     `json:"generations"`
			Selection      string  `json:"selection"`
			FinalBestError float64 `json:"final_best_error"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem{
				RunID:          r.RunID,
				CreatedAtUTC:   r.CreatedAtUTC,
				Sequence:       r.Sequence,
				Seed:           r.Seed,
				PopulationSize: r.Population,
				Generations:    r.Generations,
				Selection:      r.Selection,
				FinalBestError: r.FinalBestError,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for _, r := range runs {
		created := r.CreatedAtUTC
		if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAtUTC); err == nil {
			created = humanize.Time(ts)
		}
		fmt.Printf("run_id=%s created=%s sequence=%s seed=%d pop=%d gens=%d selection=%s final_best_error=%.0f\n",
			r.RunID,
			created,
			r.Sequence,
			r.Seed,
			r.Population,
			r.Generations,
			r.Selection,
			r.FinalBestError,
		)
	}
	return nil
}

func runErrors(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("errors", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show error history for the most recent run from run index")
	limit := fs.Int("limit", 0, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit error history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("errors requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.ErrorHistory(ctx, stackgp.HistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no error history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_error=%.0f\n", i, best)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 0, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, stackgp.HistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.0f mean=%.2f diversity=%.2f avg_len=%.2f best_genome=[%s]\n",
			d.Generation,
			d.BestError,
			d.MeanError,
			d.Diversity,
			d.AvgGenomeLength,
			interp.Format(d.BestGenome),
		)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show top genomes for the most recent run from run index")
	limit := fs.Int("limit", 5, "max top genomes to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit top genomes as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("top requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.Top(ctx, stackgp.HistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no top genomes")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(top)
	}

	for _, item := range top {
		fmt.Printf("rank=%d error=%.0f genome_id=%s len=%d code=[%s]\n",
			item.Rank,
			item.Error,
			item.Genome.ID,
			len(item.Genome.Code),
			interp.Format(item.Genome.Code),
		)
	}
	return nil
}

func runSequences(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sequences", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit sequence catalog as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Sequences(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		type sequenceItem struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			BestError   *float64 `json:"best_error,omitempty"`
		}
		out := make([]sequenceItem, 0, len(items))
		for _, item := range items {
			out = append(out, sequenceItem{
				Name:        item.Name,
				Description: item.Description,
				BestError:   item.BestError,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, item := range items {
		bestDisplay := "n/a"
		if item.BestError != nil {
			bestDisplay = fmt.Sprintf("%.0f", *item.BestError)
		}
		fmt.Printf("sequence=%s best_error=%s description=%q\n", item.Name, bestDisplay, item.Description)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out-dir", "", "destination directory (default: exports/)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "stackgp.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := newClient(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, stackgp.ExportRequest{
		RunID:  *runID,
		Latest: *latest,
		OutDir: *outDir,
	})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: stackgpctl <init|reset|run|runs|errors|diagnostics|top|sequences|export> [flags]", msg)
}
