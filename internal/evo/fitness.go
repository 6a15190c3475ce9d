package evo

import (
	"stackgp/internal/interp"
	"stackgp/internal/model"
)

// Individual binds a genome to its total error over the run's test-pair set.
// The two fields never drift: every operation that changes a genome produces a
// freshly scored Individual.
type Individual struct {
	Genome model.Genome
	Error  float64
}

// TotalError sums the per-case error over every test pair.
func TotalError(code []model.Instruction, pairs []model.TestPair) float64 {
	total := 0.0
	for _, pair := range pairs {
		total += interp.Score(code, pair)
	}
	return total
}

// CaseError is the error on a single test pair. It goes through the same
// scoring function as TotalError so per-case and total figures always agree.
func CaseError(code []model.Instruction, pair model.TestPair) float64 {
	return interp.Score(code, pair)
}
