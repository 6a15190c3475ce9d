package evo

import (
	"fmt"
	"math/rand"

	"stackgp/internal/interp"
	"stackgp/internal/model"
)

// Selector chooses a parent from the current population. Selection is
// non-destructive: the chosen individual stays in the population and the
// same selector may be called any number of times per generation.
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, population []Individual, pairs []model.TestPair) (Individual, error)
}

// TournamentSelector draws two individuals uniformly at random with
// replacement and returns the one with strictly lower error. On an exact tie
// the first draw wins.
type TournamentSelector struct{}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (TournamentSelector) Pick(rng *rand.Rand, population []Individual, pairs []model.TestPair) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return Individual{}, fmt.Errorf("population is empty")
	}

	first := population[rng.Intn(len(population))]
	second := population[rng.Intn(len(population))]
	if second.Error < first.Error {
		return second, nil
	}
	return first, nil
}

// LexicaseSelector filters the distinct individuals of the population through
// the test pairs in random order, keeping only the per-case best performers at
// each step. Duplicate genomes collapse to one candidate so clones carry no
// extra selection weight.
type LexicaseSelector struct{}

func (LexicaseSelector) Name() string {
	return "lexicase"
}

func (LexicaseSelector) Pick(rng *rand.Rand, population []Individual, pairs []model.TestPair) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return Individual{}, fmt.Errorf("population is empty")
	}
	if len(pairs) == 0 {
		return Individual{}, fmt.Errorf("test pairs are required")
	}

	pool := distinctIndividuals(population)

	for _, caseIdx := range rng.Perm(len(pairs)) {
		if len(pool) == 1 {
			break
		}
		pair := pairs[caseIdx]

		caseErrors := make([]float64, len(pool))
		best := 0.0
		for i, candidate := range pool {
			caseErrors[i] = CaseError(candidate.Genome.Code, pair)
			if i == 0 || caseErrors[i] < best {
				best = caseErrors[i]
			}
		}

		kept := pool[:0]
		for i, candidate := range pool {
			if caseErrors[i] == best {
				kept = append(kept, candidate)
			}
		}
		pool = kept
	}

	return pool[rng.Intn(len(pool))], nil
}

// distinctIndividuals collapses duplicates by genome content, keeping the
// first occurrence of each distinct program in population order.
func distinctIndividuals(population []Individual) []Individual {
	seen := make(map[string]struct{}, len(population))
	out := make([]Individual, 0, len(population))
	for _, individual := range population {
		key := interp.Format(individual.Genome.Code)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, individual)
	}
	return out
}
