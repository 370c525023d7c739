package store

import (
	"encoding/json"
	"testing"
	"time"
)

func testCheckpointState(n int) (x, d, pc, ps []float64, b, c [][]float64) {
	x = make([]float64, n)
	d = make([]float64, n)
	pc = make([]float64, n)
	ps = make([]float64, n)
	b = make([][]float64, n)
	c = make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i) + 1
		d[i] = 1.0
		b[i] = make([]float64, n)
		c[i] = make([]float64, n)
		b[i][i] = 1.0
		c[i][i] = 1.0
	}
	return
}

func testJobConfig() JobConfig {
	return JobConfig{
		ModelPath:      "model.in",
		Seed:           42,
		ParentNumber:   4,
		PopulationSize: 8,
		Sigma0:         0.1,
		AccuracyGoal:   1e-4,
		StopGeneration: 1000,
	}
}

func TestCheckpoint_JSONSerialization(t *testing.T) {
	x, d, pc, ps, b, c := testCheckpointState(3)
	original := &Checkpoint{
		JobID:       "test-job-123",
		X:           x,
		D:           d,
		S:           0.5,
		B:           b,
		C:           c,
		PC:          pc,
		PS:          ps,
		Generation:  500,
		BestCost:    0.0234,
		InitialCost: 0.5621,
		Timestamp:   time.Date(2025, 10, 23, 10, 30, 0, 0, time.UTC),
		Config:      testJobConfig(),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal checkpoint: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshaled JSON is empty")
	}

	var restored Checkpoint
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal checkpoint: %v", err)
	}

	if restored.JobID != original.JobID {
		t.Errorf("JobID mismatch: expected %s, got %s", original.JobID, restored.JobID)
	}
	if restored.BestCost != original.BestCost {
		t.Errorf("BestCost mismatch: expected %f, got %f", original.BestCost, restored.BestCost)
	}
	if restored.InitialCost != original.InitialCost {
		t.Errorf("InitialCost mismatch: expected %f, got %f", original.InitialCost, restored.InitialCost)
	}
	if restored.Generation != original.Generation {
		t.Errorf("Generation mismatch: expected %d, got %d", original.Generation, restored.Generation)
	}
	if !restored.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp mismatch: expected %v, got %v", original.Timestamp, restored.Timestamp)
	}
	if len(restored.X) != len(original.X) {
		t.Fatalf("X length mismatch: expected %d, got %d", len(original.X), len(restored.X))
	}
	for i := range original.X {
		if restored.X[i] != original.X[i] {
			t.Errorf("X[%d] mismatch: expected %f, got %f", i, original.X[i], restored.X[i])
		}
	}
	if restored.Config.ModelPath != original.Config.ModelPath {
		t.Errorf("Config.ModelPath mismatch: expected %s, got %s", original.Config.ModelPath, restored.Config.ModelPath)
	}
	if restored.Config.ParentNumber != original.Config.ParentNumber {
		t.Errorf("Config.ParentNumber mismatch: expected %d, got %d", original.Config.ParentNumber, restored.Config.ParentNumber)
	}
}

func TestCheckpoint_JSONIndented(t *testing.T) {
	x, d, pc, ps, b, c := testCheckpointState(3)
	checkpoint := &Checkpoint{
		JobID:       "test-job",
		X:           x,
		D:           d,
		S:           1.0,
		B:           b,
		C:           c,
		PC:          pc,
		PS:          ps,
		Generation:  100,
		BestCost:    0.1,
		InitialCost: 0.5,
		Timestamp:   time.Now(),
		Config:      testJobConfig(),
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal with indent: %v", err)
	}

	var restored Checkpoint
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal indented JSON: %v", err)
	}

	if restored.JobID != checkpoint.JobID {
		t.Errorf("JobID mismatch after indented serialization")
	}
}

func TestCheckpoint_Validate_Valid(t *testing.T) {
	x, d, pc, ps, b, c := testCheckpointState(3)
	checkpoint := &Checkpoint{
		JobID:       "valid-job",
		X:           x,
		D:           d,
		S:           1.0,
		B:           b,
		C:           c,
		PC:          pc,
		PS:          ps,
		Generation:  100,
		BestCost:    0.1,
		InitialCost: 0.5,
		Timestamp:   time.Now(),
		Config:      testJobConfig(),
	}

	if err := checkpoint.Validate(); err != nil {
		t.Errorf("Valid checkpoint should not have validation error: %v", err)
	}
}

func TestCheckpoint_Validate_EmptyJobID(t *testing.T) {
	x, d, pc, ps, b, c := testCheckpointState(3)
	checkpoint := &Checkpoint{
		JobID:      "",
		X:          x,
		D:          d,
		S:          1.0,
		B:          b,
		C:          c,
		PC:         pc,
		PS:         ps,
		Generation: 100,
		Timestamp:  time.Now(),
		Config:     testJobConfig(),
	}

	err := checkpoint.Validate()
	if err == nil {
		t.Fatal("Expected validation error for empty JobID")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("Expected ValidationError, got %T", err)
	}
}

func TestCheckpoint_Validate_EmptyX(t *testing.T) {
	checkpoint := &Checkpoint{
		JobID:      "test",
		X:          nil,
		Timestamp:  time.Now(),
		Config:     testJobConfig(),
		S:          1.0,
	}

	if err := checkpoint.Validate(); err == nil {
		t.Fatal("Expected validation error for empty X")
	}
}

func TestCheckpoint_Validate_MismatchedLengths(t *testing.T) {
	x, _, pc, ps, b, c := testCheckpointState(3)
	checkpoint := &Checkpoint{
		JobID:      "test",
		X:          x,
		D:          []float64{1.0, 1.0}, // wrong length
		S:          1.0,
		B:          b,
		C:          c,
		PC:         pc,
		PS:         ps,
		Timestamp:  time.Now(),
		Config:     testJobConfig(),
	}

	if err := checkpoint.Validate(); err == nil {
		t.Fatal("Expected validation error for mismatched D length")
	}
}

func TestCheckpoint_Validate_NonPositiveSigma(t *testing.T) {
	x, d, pc, ps, b, c := testCheckpointState(3)
	checkpoint := &Checkpoint{
		JobID:      "test",
		X:          x,
		D:          d,
		S:          0,
		B:          b,
		C:          c,
		PC:         pc,
		PS:         ps,
		Timestamp:  time.Now(),
		Config:     testJobConfig(),
	}

	if err := checkpoint.Validate(); err == nil {
		t.Fatal("Expected validation error for non-positive S")
	}
}

func TestCheckpoint_Validate_ZeroTimestamp(t *testing.T) {
	x, d, pc, ps, b, c := testCheckpointState(3)
	checkpoint := &Checkpoint{
		JobID:     "test",
		X:         x,
		D:         d,
		S:         1.0,
		B:         b,
		C:         c,
		PC:        pc,
		PS:        ps,
		Timestamp: time.Time{},
		Config:    testJobConfig(),
	}

	if err := checkpoint.Validate(); err == nil {
		t.Fatal("Expected validation error for zero timestamp")
	}
}

func TestCheckpoint_Validate_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		config JobConfig
	}{
		{"empty modelPath", JobConfig{ModelPath: "", ParentNumber: 4, PopulationSize: 8}},
		{"zero parentNumber", JobConfig{ModelPath: "m.in", ParentNumber: 0, PopulationSize: 8}},
		{"zero populationSize", JobConfig{ModelPath: "m.in", ParentNumber: 4, PopulationSize: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x, d, pc, ps, b, c := testCheckpointState(3)
			checkpoint := &Checkpoint{
				JobID:     "test",
				X:         x,
				D:         d,
				S:         1.0,
				B:         b,
				C:         c,
				PC:        pc,
				PS:        ps,
				Timestamp: time.Now(),
				Config:    tc.config,
			}

			if err := checkpoint.Validate(); err == nil {
				t.Fatalf("Expected validation error for %s", tc.name)
			}
		})
	}
}

func TestCheckpoint_IsCompatible_Compatible(t *testing.T) {
	checkpoint := &Checkpoint{Config: testJobConfig()}
	if err := checkpoint.IsCompatible(testJobConfig()); err != nil {
		t.Errorf("Compatible configs should not return error: %v", err)
	}
}

func TestCheckpoint_IsCompatible_DifferentModelPath(t *testing.T) {
	checkpoint := &Checkpoint{Config: testJobConfig()}
	config := testJobConfig()
	config.ModelPath = "other.in"

	err := checkpoint.IsCompatible(config)
	if err == nil {
		t.Fatal("Expected compatibility error for different ModelPath")
	}
	if _, ok := err.(*CompatibilityError); !ok {
		t.Errorf("Expected CompatibilityError, got %T", err)
	}
}

func TestCheckpoint_IsCompatible_DifferentPopulationSize(t *testing.T) {
	checkpoint := &Checkpoint{Config: testJobConfig()}
	config := testJobConfig()
	config.PopulationSize = 20

	if err := checkpoint.IsCompatible(config); err == nil {
		t.Fatal("Expected compatibility error for different PopulationSize")
	}
}

func TestCheckpoint_IsCompatible_DifferentParentNumber(t *testing.T) {
	checkpoint := &Checkpoint{Config: testJobConfig()}
	config := testJobConfig()
	config.ParentNumber = 2

	if err := checkpoint.IsCompatible(config); err == nil {
		t.Fatal("Expected compatibility error for different ParentNumber")
	}
}

func TestCheckpointInfo_FromCheckpoint(t *testing.T) {
	x, _, _, _, _, _ := testCheckpointState(5)
	checkpoint := &Checkpoint{
		JobID:      "test-job",
		X:          x,
		BestCost:   0.123,
		Generation: 500,
		Timestamp:  time.Now(),
		Config:     testJobConfig(),
	}

	info := checkpoint.ToInfo()

	if info.JobID != checkpoint.JobID {
		t.Errorf("JobID mismatch: expected %s, got %s", checkpoint.JobID, info.JobID)
	}
	if info.BestCost != checkpoint.BestCost {
		t.Errorf("BestCost mismatch: expected %f, got %f", checkpoint.BestCost, info.BestCost)
	}
	if info.Generation != checkpoint.Generation {
		t.Errorf("Generation mismatch: expected %d, got %d", checkpoint.Generation, info.Generation)
	}
	if !info.Timestamp.Equal(checkpoint.Timestamp) {
		t.Errorf("Timestamp mismatch")
	}
	if info.ModelPath != checkpoint.Config.ModelPath {
		t.Errorf("ModelPath mismatch: expected %s, got %s", checkpoint.Config.ModelPath, info.ModelPath)
	}
	if info.Dimension != len(checkpoint.X) {
		t.Errorf("Dimension mismatch: expected %d, got %d", len(checkpoint.X), info.Dimension)
	}
}

func TestNewCheckpoint(t *testing.T) {
	jobID := "test-job"
	x, d, pc, ps, b, c := testCheckpointState(4)
	bestCost := 0.123
	initialCost := 0.5
	generation := uint64(500)
	config := testJobConfig()

	checkpoint := NewCheckpoint(jobID, x, d, 0.7, b, c, pc, ps, generation, bestCost, initialCost, config)

	if checkpoint.JobID != jobID {
		t.Errorf("JobID mismatch: expected %s, got %s", jobID, checkpoint.JobID)
	}
	if checkpoint.BestCost != bestCost {
		t.Errorf("BestCost mismatch: expected %f, got %f", bestCost, checkpoint.BestCost)
	}
	if checkpoint.Generation != generation {
		t.Errorf("Generation mismatch: expected %d, got %d", generation, checkpoint.Generation)
	}
	if checkpoint.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if len(checkpoint.X) != len(x) {
		t.Errorf("X length mismatch")
	}
}
