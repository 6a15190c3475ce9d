package evo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"stackgp/internal/interp"
	"stackgp/internal/model"
)

// Reporter receives one diagnostics record per generation, generation zero
// included. Implementations must not retain the BestGenome slice.
type Reporter interface {
	Report(diagnostics model.GenerationDiagnostics)
}

// CollectingReporter accumulates every diagnostics record it receives.
type CollectingReporter struct {
	Records []model.GenerationDiagnostics
}

func (r *CollectingReporter) Report(diagnostics model.GenerationDiagnostics) {
	diagnostics.BestGenome = model.CloneCode(diagnostics.BestGenome)
	r.Records = append(r.Records, diagnostics)
}

type MonitorConfig struct {
	Pairs          []model.TestPair
	PopulationSize int
	Generations    int
	StartLength    int
	Selector       Selector
	Crossover      Crossover // nil disables crossover
	Mutator        Mutator   // nil disables mutation
	Elitism        bool
	Workers        int
	Seed           int64
	Ingredients    []model.Instruction
	Reporter       Reporter
}

type RunResult struct {
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Best             Individual
	FinalPopulation  []Individual
}

// PopulationMonitor drives the generational loop: initialization, evaluation,
// reporting, termination check and reproduction. All randomness flows through
// one seeded source held by the monitor; a given config and seed reproduce a
// run exactly.
type PopulationMonitor struct {
	cfg       MonitorConfig
	rng       *rand.Rand
	genomeSeq int
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if len(cfg.Pairs) == 0 {
		return nil, fmt.Errorf("test pairs are required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Generations < 0 {
		return nil, fmt.Errorf("generations must be >= 0")
	}
	if cfg.Selector == nil {
		return nil, fmt.Errorf("selector is required")
	}
	if cfg.Crossover != nil && cfg.Mutator != nil && cfg.Crossover.Name() == (UMADCrossover{}).Name() {
		return nil, fmt.Errorf("umad crossover performs its own addition and deletion; disable the mutation operator")
	}
	if cfg.StartLength < 0 {
		return nil, fmt.Errorf("start length must be >= 0")
	}
	if cfg.StartLength == 0 {
		cfg.StartLength = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if len(cfg.Ingredients) == 0 {
		cfg.Ingredients = interp.Ingredients()
	}

	return &PopulationMonitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run executes the evolutionary loop and returns the best individual found.
// It stops when the best error reaches exactly zero or the generation budget
// is exhausted, whichever comes first.
func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	population, err := m.initialPopulation(ctx)
	if err != nil {
		return RunResult{}, err
	}

	bestHistory := make([]float64, 0, m.cfg.Generations+1)
	diagnostics := make([]model.GenerationDiagnostics, 0, m.cfg.Generations+1)

	for gen := 0; ; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		best := bestOf(population)
		record := summarizeGeneration(gen, best, population)
		bestHistory = append(bestHistory, record.BestError)
		diagnostics = append(diagnostics, record)
		if m.cfg.Reporter != nil {
			m.cfg.Reporter.Report(record)
		}

		if best.Error == 0 || gen >= m.cfg.Generations {
			return RunResult{
				BestByGeneration: bestHistory,
				Diagnostics:      diagnostics,
				Best:             best,
				FinalPopulation:  population,
			}, nil
		}

		population, err = m.nextGeneration(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
	}
}

func (m *PopulationMonitor) initialPopulation(ctx context.Context) ([]Individual, error) {
	genomes := make([]model.Genome, 0, m.cfg.PopulationSize)
	for i := 0; i < m.cfg.PopulationSize; i++ {
		code := make([]model.Instruction, m.cfg.StartLength)
		for j := range code {
			code[j] = m.cfg.Ingredients[m.rng.Intn(len(m.cfg.Ingredients))]
		}
		genomes = append(genomes, m.newGenome(code))
	}
	return m.evaluatePopulation(ctx, genomes)
}

func (m *PopulationMonitor) nextGeneration(ctx context.Context, population []Individual) ([]Individual, error) {
	next := make([]Individual, 0, m.cfg.PopulationSize)
	childCount := m.cfg.PopulationSize
	if m.cfg.Elitism {
		// The elite carries over unchanged: same code, same error, no
		// re-evaluation.
		elite := bestOf(population)
		elite.Genome.Code = model.CloneCode(elite.Genome.Code)
		next = append(next, elite)
		childCount--
	}

	// Reproduction is single-threaded so the seeded source stays
	// deterministic; only the pure evaluation step fans out to workers.
	children := make([]model.Genome, 0, childCount)
	for i := 0; i < childCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		code, err := m.makeChild(population)
		if err != nil {
			return nil, err
		}
		children = append(children, m.newGenome(code))
	}

	scored, err := m.evaluatePopulation(ctx, children)
	if err != nil {
		return nil, err
	}
	return append(next, scored...), nil
}

// makeChild selects two parents, optionally crosses them over, optionally
// mutates the candidate, and returns the resulting code. Without crossover
// the candidate is the first parent's code; without mutation it passes
// through unchanged. The result is re-scored by the caller in every case.
func (m *PopulationMonitor) makeChild(population []Individual) ([]model.Instruction, error) {
	parent1, err := m.cfg.Selector.Pick(m.rng, population, m.cfg.Pairs)
	if err != nil {
		return nil, err
	}
	parent2, err := m.cfg.Selector.Pick(m.rng, population, m.cfg.Pairs)
	if err != nil {
		return nil, err
	}

	candidate := parent1.Genome.Code
	if m.cfg.Crossover != nil {
		candidate, err = m.cfg.Crossover.Combine(parent1.Genome.Code, parent2.Genome.Code)
		if err != nil {
			return nil, err
		}
	}
	if m.cfg.Mutator != nil {
		candidate, err = m.cfg.Mutator.Mutate(candidate)
		if err != nil {
			return nil, err
		}
	}
	return model.CloneCode(candidate), nil
}

// evaluatePopulation scores genomes through a worker pool. Scoring is a pure
// function of (code, pairs), so the fan-out never affects results.
func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, genomes []model.Genome) ([]Individual, error) {
	type job struct {
		idx    int
		genome model.Genome
	}
	type result struct {
		idx        int
		individual Individual
		err        error
	}

	jobs := make(chan job)
	results := make(chan result, len(genomes))

	workerCount := m.cfg.Workers
	if workerCount > len(genomes) {
		workerCount = len(genomes)
	}

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				results <- result{idx: j.idx, individual: Individual{
					Genome: j.genome,
					Error:  TotalError(j.genome.Code, m.cfg.Pairs),
				}}
			}
		}()
	}

	for i := range genomes {
		jobs <- job{idx: i, genome: genomes[i]}
	}
	close(jobs)

	wg.Wait()
	close(results)

	scored := make([]Individual, len(genomes))
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		scored[res.idx] = res.individual
	}
	return scored, nil
}

func (m *PopulationMonitor) newGenome(code []model.Instruction) model.Genome {
	m.genomeSeq++
	return model.Genome{
		ID:   fmt.Sprintf("genome-%06d", m.genomeSeq),
		Code: code,
	}
}

func bestOf(population []Individual) Individual {
	best := population[0]
	for _, individual := range population[1:] {
		if individual.Error < best.Error {
			best = individual
		}
	}
	return best
}

func summarizeGeneration(generation int, best Individual, population []Individual) model.GenerationDiagnostics {
	totalError := 0.0
	totalLength := 0
	distinct := make(map[string]struct{}, len(population))
	for _, individual := range population {
		totalError += individual.Error
		totalLength += len(individual.Genome.Code)
		distinct[interp.Format(individual.Genome.Code)] = struct{}{}
	}

	size := float64(len(population))
	return model.GenerationDiagnostics{
		Generation:      generation,
		BestError:       best.Error,
		MeanError:       totalError / size,
		Diversity:       float64(len(distinct)) / size,
		AvgGenomeLength: float64(totalLength) / size,
		BestGenome:      model.CloneCode(best.Genome.Code),
	}
}
