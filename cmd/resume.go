package main

import (
	"fmt"
	"os"

	"github.com/rquast/especia/internal/cmaes"
	"github.com/rquast/especia/internal/especiaerr"
	"github.com/rquast/especia/internal/modelio"
	"github.com/rquast/especia/internal/report"
	"github.com/rquast/especia/internal/section"
	"github.com/rquast/especia/internal/store"
	"github.com/spf13/cobra"
)

var resumeDataDir string

var resumeCmd = &cobra.Command{
	Use:   "resume JOB_ID",
	Short: "Continue an optimization from its last checkpoint",
	Long: `Loads the checkpointed CMA-ES distribution state for JOB_ID, re-opens
its model definition, and continues the search from exactly the
generation the checkpoint recorded, writing the resulting HTML report to
standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	checkpointStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "opening checkpoint store", Cause: err})
	}

	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: fmt.Sprintf("no checkpoint for job %s", jobID), Cause: err})
	}

	f, err := os.Open(checkpoint.Config.ModelPath)
	if err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "opening model file", Cause: err})
	}
	defer f.Close()

	doc, err := modelio.Parse(f)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "parsing model definition", Cause: err})
	}

	m, layout, err := modelio.Build(doc, func(path string) ([]section.Sample, error) {
		data, openErr := os.Open(path)
		if openErr != nil {
			return nil, openErr
		}
		defer data.Close()
		return modelio.ReadSamples(data)
	})
	if err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "loading section data", Cause: err})
	}

	config, err := cmaes.NewBuilder().
		WithDimension(m.Table().FreeCount()).
		WithParentNumber(checkpoint.Config.ParentNumber).
		WithPopulationSize(checkpoint.Config.PopulationSize).
		WithAccuracyGoal(checkpoint.Config.AccuracyGoal).
		WithRandomSeed(checkpoint.Config.Seed).
		WithStopGeneration(checkpoint.Config.StopGeneration).
		Build()
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "configuring optimizer", Cause: err})
	}

	optimizer := cmaes.New(config)
	state := cmaes.State{
		X: checkpoint.X, D: checkpoint.D, S: checkpoint.S,
		B: checkpoint.B, C: checkpoint.C,
		PC: checkpoint.PC, PS: checkpoint.PS,
		Generation: checkpoint.Generation,
	}

	tracer := cmaes.NewWriterTracer(os.Stderr, checkpoint.Config.TraceModulus)
	result, err := optimizer.ResumeMinimize(m.Evaluate, state, m.Constraint(), tracer)
	if err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "optimizing", Cause: err})
	}

	if result.Optimized {
		m.ApplyOptimum(result.X, result.Z)
	}

	reportDoc := report.Build(doc, layout, m, result, "")
	if err := report.Write(os.Stdout, reportDoc); err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "writing report", Cause: err})
	}

	if !result.Optimized {
		if result.Underflow {
			exitWith(&especiaerr.RuntimeError{Reason: fmt.Sprintf("step-size underflow at generation %d", result.Generation)})
		}
		exitWith(&especiaerr.NotConverged{Generation: result.Generation})
	}

	return nil
}
