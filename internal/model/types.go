package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Instruction is one token of an evolved program. Op is either an operator
// opcode, the input-variable token "x", or "lit" with Value as the payload.
type Instruction struct {
	Op    string `json:"op"`
	Value int    `json:"value,omitempty"`
}

type Genome struct {
	VersionedRecord
	ID   string        `json:"id"`
	Code []Instruction `json:"code"`
}

// TestPair is one (input, expected-output) sample of the target sequence.
type TestPair struct {
	Input    int `json:"input"`
	Expected int `json:"expected"`
}

// GenerationDiagnostics is the per-generation report record emitted by the
// population monitor, including generation zero.
type GenerationDiagnostics struct {
	Generation      int           `json:"generation"`
	BestError       float64       `json:"best_error"`
	MeanError       float64       `json:"mean_error"`
	Diversity       float64       `json:"diversity"`
	AvgGenomeLength float64       `json:"avg_genome_length"`
	BestGenome      []Instruction `json:"best_genome"`
}

// RunRecord is the persisted summary of one completed evolution run.
type RunRecord struct {
	VersionedRecord
	RunID             string  `json:"run_id"`
	Sequence          string  `json:"sequence"`
	PopulationSize    int     `json:"population_size"`
	Generations       int     `json:"generations"`
	Seed              int64   `json:"seed"`
	Selection         string  `json:"selection"`
	CrossoverStrategy string  `json:"crossover_strategy,omitempty"`
	MutationEnabled   bool    `json:"mutation_enabled"`
	ElitismEnabled    bool    `json:"elitism_enabled"`
	FinalBestError    float64 `json:"final_best_error"`
	CreatedAtUTC      string  `json:"created_at_utc"`
}

type TopGenomeRecord struct {
	Rank   int     `json:"rank"`
	Error  float64 `json:"error"`
	Genome Genome  `json:"genome"`
}

// SequenceSummary tracks the best error ever observed on a named sequence.
type SequenceSummary struct {
	VersionedRecord
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestError   float64 `json:"best_error"`
	HasBest     bool    `json:"has_best"`
}

func CloneCode(code []Instruction) []Instruction {
	return append([]Instruction(nil), code...)
}
