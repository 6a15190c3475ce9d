// Package stackgp is the embedding API: it wires the sequence catalog, the
// evolution engine, the result store and the run artifacts together behind a
// single client.
package stackgp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"stackgp/internal/evo"
	"stackgp/internal/interp"
	"stackgp/internal/model"
	"stackgp/internal/sequence"
	"stackgp/internal/stats"
	"stackgp/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "stackgp.db"

	topGenomeCount = 5
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

type Client struct {
	store       storage.Store
	initialized bool

	runsDir    string
	exportsDir string
}

type RunRequest struct {
	Sequence          string
	Population        int
	Generations       int
	StartLength       int
	Selection         string
	Crossover         bool
	CrossoverStrategy string
	Mutation          bool
	AddRate           float64
	DelRate           float64
	Elitism           bool
	Seed              int64
	Workers           int
	RunID             string
	Progress          io.Writer // per-generation lines when non-nil
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Sequence         string
	BestByGeneration []float64
	FinalBestError   float64
	BestGenome       string
	Solved           bool
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Sequence       string
	Seed           int64
	Population     int
	Generations    int
	Selection      string
	FinalBestError float64
}

type HistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type SequenceItem struct {
	Name        string
	Description string
	BestError   *float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the backing store. Run calls it implicitly; standalone use
// covers the init subcommand.
func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Reset re-initializes the backing store, discarding archived results.
func (c *Client) Reset(ctx context.Context) error {
	c.initialized = false
	return c.Init(ctx)
}

// Run executes one evolution run and archives its results. The returned
// summary carries the final best genome and error.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Sequence == "" {
		req.Sequence = "identity"
	}
	if req.Population <= 0 {
		req.Population = 50
	}
	if req.Generations < 0 {
		return RunSummary{}, errors.New("generations must be >= 0")
	}
	if req.Generations == 0 {
		req.Generations = 50
	}
	if req.Workers <= 0 {
		req.Workers = 4
	}
	if req.Selection == "" {
		req.Selection = "tournament"
	}
	if req.Mutation && req.AddRate == 0 && req.DelRate == 0 {
		req.AddRate = 0.3
		req.DelRate = 0.3
	}
	if req.AddRate < 0 || req.AddRate > 1 || req.DelRate < 0 || req.DelRate > 1 {
		return RunSummary{}, errors.New("addition and deletion rates must be in [0, 1]")
	}
	if req.Crossover && req.CrossoverStrategy == "" {
		req.CrossoverStrategy = "umad"
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	pairs, err := sequence.Pairs(req.Sequence)
	if err != nil {
		return RunSummary{}, err
	}
	description, err := sequence.Describe(req.Sequence)
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := selectorFromName(req.Selection)
	if err != nil {
		return RunSummary{}, err
	}

	cfg := evo.MonitorConfig{
		Pairs:          pairs,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		StartLength:    req.StartLength,
		Selector:       selector,
		Elitism:        req.Elitism,
		Workers:        req.Workers,
		Seed:           req.Seed,
	}
	if req.Crossover {
		cfg.Crossover, err = crossoverFromName(req.CrossoverStrategy, req.Seed, req.AddRate, req.DelRate)
		if err != nil {
			return RunSummary{}, err
		}
	}
	if req.Mutation {
		cfg.Mutator = evo.UMADMutation{
			Rand:        rand.New(rand.NewSource(req.Seed + 2000)),
			AddRate:     req.AddRate,
			DelRate:     req.DelRate,
			Ingredients: interp.Ingredients(),
		}
	}
	if req.Progress != nil {
		cfg.Reporter = stats.ConsoleReporter{W: req.Progress}
	}

	monitor, err := evo.NewPopulationMonitor(cfg)
	if err != nil {
		return RunSummary{}, err
	}
	result, err := monitor.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	top := rankTopGenomes(result.FinalPopulation, topGenomeCount)

	runDir, err := c.persistRun(ctx, req, description, result, top, now)
	if err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            req.RunID,
		ArtifactsDir:     filepath.Clean(runDir),
		Sequence:         req.Sequence,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestError:   result.Best.Error,
		BestGenome:       interp.Format(result.Best.Genome.Code),
		Solved:           result.Best.Error == 0,
	}, nil
}

func (c *Client) persistRun(ctx context.Context, req RunRequest, description string, result evo.RunResult, top []model.TopGenomeRecord, now time.Time) (string, error) {
	if err := c.Init(ctx); err != nil {
		return "", err
	}

	best := result.Best.Genome
	best.VersionedRecord = currentVersion()
	if err := c.store.SaveGenome(ctx, best); err != nil {
		return "", err
	}

	run := model.RunRecord{
		VersionedRecord: currentVersion(),
		RunID:           req.RunID,
		Sequence:        req.Sequence,
		PopulationSize:  req.Population,
		Generations:     req.Generations,
		Seed:            req.Seed,
		Selection:       req.Selection,
		MutationEnabled: req.Mutation,
		ElitismEnabled:  req.Elitism,
		FinalBestError:  result.Best.Error,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}
	if req.Crossover {
		run.CrossoverStrategy = req.CrossoverStrategy
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return "", err
	}
	if err := c.store.SaveErrorHistory(ctx, req.RunID, result.BestByGeneration); err != nil {
		return "", err
	}
	if err := c.store.SaveDiagnostics(ctx, req.RunID, result.Diagnostics); err != nil {
		return "", err
	}
	if err := c.store.SaveTopGenomes(ctx, req.RunID, top); err != nil {
		return "", err
	}
	if err := c.updateSequenceSummary(ctx, req.Sequence, description, result.Best.Error); err != nil {
		return "", err
	}

	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:             req.RunID,
			Sequence:          req.Sequence,
			PopulationSize:    req.Population,
			Generations:       req.Generations,
			StartLength:       req.StartLength,
			Selection:         req.Selection,
			CrossoverEnabled:  req.Crossover,
			CrossoverStrategy: run.CrossoverStrategy,
			MutationEnabled:   req.Mutation,
			AddRate:           req.AddRate,
			DelRate:           req.DelRate,
			ElitismEnabled:    req.Elitism,
			Seed:              req.Seed,
			Workers:           req.Workers,
		},
		BestByGeneration: result.BestByGeneration,
		Diagnostics:      result.Diagnostics,
		FinalBestError:   result.Best.Error,
		TopGenomes:       top,
	})
	if err != nil {
		return "", err
	}

	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:          req.RunID,
		Sequence:       req.Sequence,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		Seed:           req.Seed,
		Selection:      req.Selection,
		FinalBestError: result.Best.Error,
		CreatedAtUTC:   now.Format(time.RFC3339Nano),
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

func (c *Client) updateSequenceSummary(ctx context.Context, name, description string, bestError float64) error {
	summary, ok, err := c.store.GetSequenceSummary(ctx, name)
	if err != nil {
		return err
	}
	if ok && summary.HasBest && summary.BestError <= bestError {
		return nil
	}
	return c.store.SaveSequenceSummary(ctx, model.SequenceSummary{
		VersionedRecord: currentVersion(),
		Name:            name,
		Description:     description,
		BestError:       bestError,
		HasBest:         true,
	})
}

// Runs lists archived runs from the run index, newest first.
func (c *Client) Runs(_ context.Context, limit int) ([]RunItem, error) {
	if limit <= 0 {
		limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:          e.RunID,
			CreatedAtUTC:   e.CreatedAtUTC,
			Sequence:       e.Sequence,
			Seed:           e.Seed,
			Population:     e.PopulationSize,
			Generations:    e.Generations,
			Selection:      e.Selection,
			FinalBestError: e.FinalBestError,
		})
	}
	return out, nil
}

// ErrorHistory returns the best error per generation for one run, preferring
// the store and falling back to the run's artifacts.
func (c *Client) ErrorHistory(ctx context.Context, req HistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetErrorHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		history, ok, err = stats.ReadErrorHistory(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("error history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req HistoryRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadDiagnostics(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) Top(ctx context.Context, req HistoryRequest) ([]model.TopGenomeRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	top, ok, err := c.store.GetTopGenomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		top, ok, err = stats.ReadTopGenomes(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("top genomes not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(top) > req.Limit {
		top = top[:req.Limit]
	}
	out := make([]model.TopGenomeRecord, len(top))
	copy(out, top)
	return out, nil
}

// Sequences lists the catalog with the best archived error per sequence.
func (c *Client) Sequences(ctx context.Context) ([]SequenceItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	names := sequence.Names()
	out := make([]SequenceItem, 0, len(names))
	for _, name := range names {
		description, err := sequence.Describe(name)
		if err != nil {
			return nil, err
		}
		item := SequenceItem{Name: name, Description: description}
		summary, ok, err := c.store.GetSequenceSummary(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok && summary.HasBest {
			bestError := summary.BestError
			item.BestError = &bestError
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func rankTopGenomes(population []evo.Individual, count int) []model.TopGenomeRecord {
	ranked := make([]evo.Individual, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Error < ranked[j].Error
	})
	if len(ranked) > count {
		ranked = ranked[:count]
	}

	out := make([]model.TopGenomeRecord, 0, len(ranked))
	for i, individual := range ranked {
		genome := individual.Genome
		genome.VersionedRecord = currentVersion()
		genome.Code = model.CloneCode(genome.Code)
		out = append(out, model.TopGenomeRecord{
			Rank:   i + 1,
			Error:  individual.Error,
			Genome: genome,
		})
	}
	return out
}

func selectorFromName(name string) (evo.Selector, error) {
	switch name {
	case "tournament":
		return evo.TournamentSelector{}, nil
	case "lexicase":
		return evo.LexicaseSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}

func crossoverFromName(name string, seed int64, addRate, delRate float64) (evo.Crossover, error) {
	switch name {
	case "umad":
		return evo.UMADCrossover{
			Rand:    rand.New(rand.NewSource(seed + 1000)),
			AddRate: addRate,
			DelRate: delRate,
		}, nil
	case "single_point", "single-point":
		return evo.SinglePointCrossover{Rand: rand.New(rand.NewSource(seed + 1000))}, nil
	case "uniform":
		return evo.UniformCrossover{Rand: rand.New(rand.NewSource(seed + 1000))}, nil
	default:
		return nil, fmt.Errorf("unsupported crossover strategy: %s", name)
	}
}

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		CodecVersion:  storage.CurrentCodecVersion,
	}
}
