package evo

import (
	"fmt"
	"math/rand"

	"stackgp/internal/model"
)

// Mutator derives a new genome from one parent genome. The input slice is
// never modified; the result is always a fresh allocation.
type Mutator interface {
	Name() string
	Mutate(code []model.Instruction) ([]model.Instruction, error)
}

// Crossover derives a new genome from two parent genomes. Neither input is
// modified.
type Crossover interface {
	Name() string
	Combine(a, b []model.Instruction) ([]model.Instruction, error)
}

// UMADMutation is uniform mutation by addition and deletion: an addition pass
// over the original genome followed by a deletion pass over the addition
// pass's output, so freshly inserted genes are equally eligible for deletion.
type UMADMutation struct {
	Rand        *rand.Rand
	AddRate     float64
	DelRate     float64
	Ingredients []model.Instruction
}

func (UMADMutation) Name() string {
	return "umad"
}

func (m UMADMutation) Mutate(code []model.Instruction) ([]model.Instruction, error) {
	if m.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := checkRate("add rate", m.AddRate); err != nil {
		return nil, err
	}
	if err := checkRate("del rate", m.DelRate); err != nil {
		return nil, err
	}
	if len(m.Ingredients) == 0 {
		return nil, fmt.Errorf("ingredient pool is required")
	}

	added := make([]model.Instruction, 0, len(code)+len(code)/4+1)
	for _, gene := range code {
		if m.Rand.Float64() < m.AddRate {
			extra := m.Ingredients[m.Rand.Intn(len(m.Ingredients))]
			if m.Rand.Intn(2) == 0 {
				added = append(added, gene, extra)
			} else {
				added = append(added, extra, gene)
			}
			continue
		}
		added = append(added, gene)
	}

	return deletionPass(m.Rand, added, m.DelRate), nil
}

// UMADCrossover pairs the parents position by position up to the shorter
// parent's length; trailing genes of the longer parent are dropped. With
// probability AddRate a position emits both genes in random order, otherwise
// only the first parent's gene. The combined sequence then goes through the
// standard deletion pass. Callers must not apply a further mutation operator
// on top: this crossover performs addition and deletion itself.
type UMADCrossover struct {
	Rand    *rand.Rand
	AddRate float64
	DelRate float64
}

func (UMADCrossover) Name() string {
	return "umad"
}

func (c UMADCrossover) Combine(a, b []model.Instruction) ([]model.Instruction, error) {
	if c.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := checkRate("add rate", c.AddRate); err != nil {
		return nil, err
	}
	if err := checkRate("del rate", c.DelRate); err != nil {
		return nil, err
	}

	shared := len(a)
	if len(b) < shared {
		shared = len(b)
	}
	combined := make([]model.Instruction, 0, 2*shared)
	for i := 0; i < shared; i++ {
		if c.Rand.Float64() < c.AddRate {
			if c.Rand.Intn(2) == 0 {
				combined = append(combined, a[i], b[i])
			} else {
				combined = append(combined, b[i], a[i])
			}
			continue
		}
		combined = append(combined, a[i])
	}

	return deletionPass(c.Rand, combined, c.DelRate), nil
}

// SinglePointCrossover cuts both parents at one point drawn uniformly from
// [0, min(len(a), len(b))] and joins the first parent's prefix to the second
// parent's suffix.
type SinglePointCrossover struct {
	Rand *rand.Rand
}

func (SinglePointCrossover) Name() string {
	return "single_point"
}

func (c SinglePointCrossover) Combine(a, b []model.Instruction) ([]model.Instruction, error) {
	if c.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}

	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	cut := c.Rand.Intn(limit + 1)

	out := make([]model.Instruction, 0, len(b))
	out = append(out, a[:cut]...)
	out = append(out, b[cut:]...)
	return out, nil
}

// UniformCrossover picks each shared-position gene from either parent with
// equal probability, then appends a tail of random length taken from the
// start of the longer parent's extra segment.
type UniformCrossover struct {
	Rand *rand.Rand
}

func (UniformCrossover) Name() string {
	return "uniform"
}

func (c UniformCrossover) Combine(a, b []model.Instruction) ([]model.Instruction, error) {
	if c.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}

	shared := len(a)
	longer := b
	if len(b) < shared {
		shared = len(b)
		longer = a
	}

	out := make([]model.Instruction, 0, len(longer))
	for i := 0; i < shared; i++ {
		if c.Rand.Intn(2) == 0 {
			out = append(out, a[i])
		} else {
			out = append(out, b[i])
		}
	}

	extra := len(longer) - shared
	tail := c.Rand.Intn(extra + 1)
	out = append(out, longer[shared:shared+tail]...)
	return out, nil
}

func deletionPass(rng *rand.Rand, code []model.Instruction, delRate float64) []model.Instruction {
	out := make([]model.Instruction, 0, len(code))
	for _, gene := range code {
		if rng.Float64() < delRate {
			continue
		}
		out = append(out, gene)
	}
	return out
}

func checkRate(name string, rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("%s must be in [0, 1]: %v", name, rate)
	}
	return nil
}
