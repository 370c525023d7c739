package store

import (
	"fmt"
	"time"
)

// JobConfig holds the configuration of one optimization job (checkpoint
// copy). This avoids an import cycle with the server package, which
// holds the canonical JobConfig as a type alias onto this one.
type JobConfig struct {
	ModelPath          string  `json:"modelPath"`
	Seed               uint64  `json:"seed"`
	ParentNumber       int     `json:"parentNumber"`
	PopulationSize     int     `json:"populationSize"`
	Sigma0             float64 `json:"sigma0"`
	AccuracyGoal       float64 `json:"accuracyGoal"`
	StopGeneration     uint64  `json:"stopGeneration"`
	TraceModulus       uint64  `json:"traceModulus,omitempty"`
	CheckpointInterval int     `json:"checkpointInterval,omitempty"` // checkpoint every N seconds (0 = disabled)
}

// Checkpoint represents a saved optimization state that can be resumed
// later. Unlike a checkpoint that only keeps the best parameters found
// so far, this one captures the full CMA-ES distribution state —
// mean, step sizes, rotation, covariance and both cumulation paths —
// because internal/cmaes.Optimizer owns that state directly and a
// resumed run should continue the actual search trajectory rather than
// restart a fresh population at the best point found so far.
type Checkpoint struct {
	// JobID is the unique identifier for this optimization job.
	JobID string `json:"jobId"`

	// X is the optimizer's mean vector (the free-parameter point) at
	// checkpoint time.
	X []float64 `json:"x"`

	// D holds the per-axis local step sizes.
	D []float64 `json:"d"`

	// S is the global step size sigma.
	S float64 `json:"s"`

	// B is the rotation matrix (orthonormal, n x n, row-major).
	B [][]float64 `json:"b"`

	// C is the covariance matrix (symmetric, n x n, row-major).
	C [][]float64 `json:"c"`

	// PC and PS are the distribution and step-size cumulation paths.
	PC []float64 `json:"pc"`
	PS []float64 `json:"ps"`

	// Generation is the generation count reached at checkpoint time.
	Generation uint64 `json:"generation"`

	// BestCost is the best fitness observed up to this generation.
	BestCost float64 `json:"bestCost"`

	// InitialCost is the fitness of the model's initial parameter
	// values, retained for reporting improvement.
	InitialCost float64 `json:"initialCost"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation during
	// resume: we ensure a resumed job uses a compatible model and
	// population shape.
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains metadata about a checkpoint without the full
// distribution state. ListCheckpoints returns it; FSStore builds each
// one by loading the full checkpoint file.
type CheckpointInfo struct {
	JobID       string    `json:"jobId"`
	Generation  uint64    `json:"generation"`
	BestCost    float64   `json:"bestCost"`
	Timestamp   time.Time `json:"timestamp"`
	ModelPath   string    `json:"modelPath"`
	Dimension   int       `json:"dimension"`
}

// NewCheckpoint creates a checkpoint from the optimizer's current
// distribution state.
func NewCheckpoint(jobID string, x, d []float64, s float64, b, c [][]float64, pc, ps []float64, generation uint64, bestCost, initialCost float64, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:       jobID,
		X:           x,
		D:           d,
		S:           s,
		B:           b,
		C:           c,
		PC:          pc,
		PS:          ps,
		Generation:  generation,
		BestCost:    bestCost,
		InitialCost: initialCost,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:      c.JobID,
		Generation: c.Generation,
		BestCost:   c.BestCost,
		Timestamp:  c.Timestamp,
		ModelPath:  c.Config.ModelPath,
		Dimension:  len(c.X),
	}
}

// Validate checks if the checkpoint has internally consistent data.
// Returns an error if any required field is missing or malformed.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.X) == 0 {
		return &ValidationError{Field: "X", Reason: "cannot be empty"}
	}
	n := len(c.X)
	if len(c.D) != n {
		return &ValidationError{Field: "D", Reason: fmt.Sprintf("length must match X: expected %d, got %d", n, len(c.D))}
	}
	if len(c.PC) != n || len(c.PS) != n {
		return &ValidationError{Field: "PC/PS", Reason: fmt.Sprintf("cumulation paths must have length %d", n)}
	}
	if len(c.B) != n || len(c.C) != n {
		return &ValidationError{Field: "B/C", Reason: fmt.Sprintf("rotation and covariance matrices must be %d x %d", n, n)}
	}
	for i, row := range c.B {
		if len(row) != n {
			return &ValidationError{Field: "B", Reason: fmt.Sprintf("row %d has length %d, want %d", i, len(row), n)}
		}
	}
	for i, row := range c.C {
		if len(row) != n {
			return &ValidationError{Field: "C", Reason: fmt.Sprintf("row %d has length %d, want %d", i, len(row), n)}
		}
	}
	if c.S <= 0 {
		return &ValidationError{Field: "S", Reason: "must be positive"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.ModelPath == "" {
		return &ValidationError{Field: "Config.ModelPath", Reason: "cannot be empty"}
	}
	if c.Config.ParentNumber <= 0 {
		return &ValidationError{Field: "Config.ParentNumber", Reason: "must be positive"}
	}
	if c.Config.PopulationSize <= 0 {
		return &ValidationError{Field: "Config.PopulationSize", Reason: "must be positive"}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// IsCompatible checks if this checkpoint can be resumed with the given
// config. Returns an error if the configs are incompatible.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.ModelPath != config.ModelPath {
		return &CompatibilityError{
			Field:    "ModelPath",
			Expected: c.Config.ModelPath,
			Actual:   config.ModelPath,
		}
	}
	if c.Config.PopulationSize != config.PopulationSize {
		return &CompatibilityError{
			Field:    "PopulationSize",
			Expected: fmt.Sprintf("%d", c.Config.PopulationSize),
			Actual:   fmt.Sprintf("%d", config.PopulationSize),
		}
	}
	if c.Config.ParentNumber != config.ParentNumber {
		return &CompatibilityError{
			Field:    "ParentNumber",
			Expected: fmt.Sprintf("%d", c.Config.ParentNumber),
			Actual:   fmt.Sprintf("%d", config.ParentNumber),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
