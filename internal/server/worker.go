package server

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rquast/especia/internal/cmaes"
	"github.com/rquast/especia/internal/model"
	"github.com/rquast/especia/internal/modelio"
	"github.com/rquast/especia/internal/report"
	"github.com/rquast/especia/internal/section"
	"github.com/rquast/especia/internal/store"
)

// runJob drives one optimization job from submission to a terminal
// state. If checkpointStore already holds a compatible checkpoint for
// jobID, the run resumes the saved distribution state instead of
// starting fresh.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		slog.Error("runJob: unknown job", "jobID", jobID)
		return
	}

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return
	default:
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		slog.Error("runJob: failed to mark job running", "jobID", jobID, "error", err)
		return
	}

	slog.Info("starting job", "jobID", jobID, "model", job.Config.ModelPath)

	doc, m, layout, err := loadModel(job.Config.ModelPath)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("loading model: %w", err))
		return
	}

	config, err := cmaes.NewBuilder().
		WithDimension(m.Table().FreeCount()).
		WithParentNumber(job.Config.ParentNumber).
		WithPopulationSize(job.Config.PopulationSize).
		WithAccuracyGoal(job.Config.AccuracyGoal).
		WithRandomSeed(job.Config.Seed).
		WithStopGeneration(job.Config.StopGeneration).
		Build()
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("configuring optimizer: %w", err))
		return
	}

	optimizer := cmaes.New(config)
	x0 := m.InitialValues()
	initialCost := m.Evaluate(x0)
	if err := jm.UpdateJob(jobID, func(j *Job) { j.InitialCost = initialCost }); err != nil {
		slog.Error("runJob: failed to record initial cost", "jobID", jobID, "error", err)
	}

	tracer := newJobTracer(jm, jobID, checkpointStore, job.Config)
	defer tracer.flush()

	var result cmaes.Result
	if checkpoint, loadErr := checkpointStore.LoadCheckpoint(jobID); loadErr == nil {
		if compatErr := checkpoint.IsCompatible(job.Config); compatErr != nil {
			slog.Warn("runJob: ignoring incompatible checkpoint, starting fresh", "jobID", jobID, "error", compatErr)
			result, err = optimizer.Minimize(m.Evaluate, x0, m.InitialStepSizes(), job.Config.Sigma0, m.Constraint(), tracer)
		} else {
			slog.Info("runJob: resuming from checkpoint", "jobID", jobID, "generation", checkpoint.Generation)
			state := cmaes.State{
				X: checkpoint.X, D: checkpoint.D, S: checkpoint.S,
				B: checkpoint.B, C: checkpoint.C,
				PC: checkpoint.PC, PS: checkpoint.PS,
				Generation: checkpoint.Generation,
			}
			result, err = optimizer.ResumeMinimize(m.Evaluate, state, m.Constraint(), tracer)
		}
	} else {
		result, err = optimizer.Minimize(m.Evaluate, x0, m.InitialStepSizes(), job.Config.Sigma0, m.Constraint(), tracer)
	}
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("optimizing: %w", err))
		return
	}

	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return
	default:
	}

	if result.Optimized {
		m.ApplyOptimum(result.X, result.Z)
	}

	reportDoc := report.Build(doc, layout, m, result, tracer.logText())
	var buf bytes.Buffer
	if err := report.Write(&buf, reportDoc); err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("rendering report: %w", err))
		return
	}

	now := time.Now()
	finalState := StateCompleted
	jobErr := ""
	if !result.Optimized {
		finalState = StateFailed
		if result.Underflow {
			jobErr = fmt.Sprintf("step-size underflow at generation %d", result.Generation)
		} else {
			jobErr = fmt.Sprintf("did not converge within %d generations", job.Config.StopGeneration)
		}
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = finalState
		j.BestParams = result.X
		j.BestCost = result.Y
		j.Generation = result.Generation
		j.Sigma = result.S
		j.EndTime = &now
		j.Error = jobErr
		j.ReportHTML = buf.String()
	}); err != nil {
		slog.Error("runJob: failed to record final state", "jobID", jobID, "error", err)
	}

	slog.Info("job finished", "jobID", jobID, "state", finalState, "generation", result.Generation, "bestCost", result.Y)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID: jobID, State: finalState, Generation: result.Generation,
		BestCost: result.Y, Sigma: result.S, Timestamp: now,
	})
}

// loadModel parses a model definition and wires it into an evaluable
// model.Model, resolving each section's data file relative to the model
// file's own directory.
func loadModel(modelPath string) (*modelio.Document, *model.Model, *modelio.Layout, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	doc, err := modelio.Parse(f)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing model file: %w", err)
	}

	baseDir := filepath.Dir(modelPath)
	m, layout, err := modelio.Build(doc, func(path string) ([]section.Sample, error) {
		data, err := os.Open(filepath.Join(baseDir, path))
		if err != nil {
			return nil, fmt.Errorf("opening data file %s: %w", path, err)
		}
		defer data.Close()
		return modelio.ReadSamples(data)
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return doc, m, layout, nil
}

// jobTracer bridges the optimizer's generation loop to the job server:
// it records the optimizer log text the report embeds, broadcasts SSE
// progress on every generation, and — implementing StateObserver —
// periodically persists the full distribution state so the run can be
// resumed after a restart.
type jobTracer struct {
	jm              *JobManager
	jobID           string
	checkpointStore store.Store
	config          JobConfig

	log            bytes.Buffer
	traceModulus   uint64
	checkpointEvery time.Duration
	lastCheckpoint time.Time
}

func newJobTracer(jm *JobManager, jobID string, checkpointStore store.Store, config JobConfig) *jobTracer {
	modulus := config.TraceModulus
	if modulus == 0 {
		modulus = 1
	}
	return &jobTracer{
		jm:              jm,
		jobID:           jobID,
		checkpointStore: checkpointStore,
		config:          config,
		traceModulus:    modulus,
		checkpointEvery: time.Duration(config.CheckpointInterval) * time.Second,
	}
}

func (t *jobTracer) IsEnabled(g uint64) bool { return true }

func (t *jobTracer) Trace(g uint64, y, minStep, maxStep float64) {
	if g%t.traceModulus == 0 {
		fmt.Fprintf(&t.log, "%8d%12.4e%12.4e%12.4e\n", g, y, minStep, maxStep)
	}

	if err := t.jm.UpdateJob(t.jobID, func(j *Job) {
		j.Generation = g
		j.BestCost = y
	}); err != nil {
		slog.Error("jobTracer: failed to record progress", "jobID", t.jobID, "error", err)
		return
	}

	t.jm.broadcaster.Broadcast(ProgressEvent{
		JobID: t.jobID, State: StateRunning, Generation: g,
		BestCost: y, Sigma: maxStep, Timestamp: time.Now(),
	})
}

// ObserveState implements cmaes.StateObserver, checkpointing the full
// distribution state at most once per CheckpointInterval.
func (t *jobTracer) ObserveState(g uint64, x, d []float64, s float64, B, C [][]float64, pc, ps []float64) {
	if t.checkpointStore == nil || t.checkpointEvery <= 0 {
		return
	}
	if !t.lastCheckpoint.IsZero() && time.Since(t.lastCheckpoint) < t.checkpointEvery {
		return
	}
	t.lastCheckpoint = time.Now()

	job, exists := t.jm.GetJob(t.jobID)
	if !exists {
		return
	}

	checkpoint := store.NewCheckpoint(t.jobID, x, d, s, B, C, pc, ps, g, job.BestCost, job.InitialCost, t.config)
	if err := t.checkpointStore.SaveCheckpoint(t.jobID, checkpoint); err != nil {
		slog.Error("jobTracer: failed to save checkpoint", "jobID", t.jobID, "error", err)
		return
	}
	slog.Debug("checkpoint saved", "jobID", t.jobID, "generation", g)
}

func (t *jobTracer) logText() string { return t.log.String() }

func (t *jobTracer) flush() {}

func markJobFailed(jm *JobManager, jobID string, err error) {
	now := time.Now()
	slog.Error("job failed", "jobID", jobID, "error", err)
	if updateErr := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &now
	}); updateErr != nil {
		slog.Error("markJobFailed: failed to record failure", "jobID", jobID, "error", updateErr)
		return
	}
	jm.broadcaster.Broadcast(ProgressEvent{JobID: jobID, State: StateFailed, Timestamp: now})
}

func markJobCancelled(jm *JobManager, jobID string) {
	now := time.Now()
	if updateErr := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &now
	}); updateErr != nil {
		slog.Error("markJobCancelled: failed to record cancellation", "jobID", jobID, "error", updateErr)
		return
	}
	jm.broadcaster.Broadcast(ProgressEvent{JobID: jobID, State: StateCancelled, Timestamp: now})
}
