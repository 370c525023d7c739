package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/rquast/especia/internal/cmaes"
	"github.com/rquast/especia/internal/especiaerr"
	"github.com/rquast/especia/internal/modelio"
	"github.com/rquast/especia/internal/report"
	"github.com/rquast/especia/internal/section"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize SEED PARENTS POPULATION SIGMA0 EPSILON STOP_GEN TRACE_MOD",
	Short: "Fit a model definition read from stdin, writing an HTML report to stdout",
	Long: `optimize reads a model definition from standard input, fits it with a
derandomized evolution strategy, and writes the resulting HTML report to
standard output. Invoked with no arguments it prints usage and exits 0.`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	RunE:               runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stdout, cmd.UsageString())
		return nil
	}

	if len(args) != 7 {
		exitWith(&especiaerr.InvalidArgument{Reason: fmt.Sprintf("expected 7 positional arguments, got %d", len(args))})
	}

	seed, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "SEED must be an integer", Cause: err})
	}
	parents, err := strconv.Atoi(args[1])
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "PARENTS must be an integer", Cause: err})
	}
	population, err := strconv.Atoi(args[2])
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "POPULATION must be an integer", Cause: err})
	}
	sigma0, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "SIGMA0 must be a float", Cause: err})
	}
	epsilon, err := strconv.ParseFloat(args[4], 64)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "EPSILON must be a float", Cause: err})
	}
	stopGen, err := strconv.ParseUint(args[5], 10, 64)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "STOP_GEN must be an integer", Cause: err})
	}
	traceMod, err := strconv.ParseUint(args[6], 10, 64)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "TRACE_MOD must be an integer", Cause: err})
	}

	doc, err := modelio.Parse(os.Stdin)
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "parsing model definition", Cause: err})
	}

	m, layout, err := modelio.Build(doc, func(path string) ([]section.Sample, error) {
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, openErr
		}
		defer f.Close()
		return modelio.ReadSamples(f)
	})
	if err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "loading section data", Cause: err})
	}

	config, err := cmaes.NewBuilder().
		WithDimension(m.Table().FreeCount()).
		WithParentNumber(parents).
		WithPopulationSize(population).
		WithAccuracyGoal(epsilon).
		WithRandomSeed(seed).
		WithStopGeneration(stopGen).
		Build()
	if err != nil {
		exitWith(&especiaerr.InvalidArgument{Reason: "configuring optimizer", Cause: err})
	}

	optimizer := cmaes.New(config)
	x0 := m.InitialValues()

	var log bytes.Buffer
	tracer := cmaes.NewWriterTracer(&log, traceMod)

	result, err := optimizer.Minimize(m.Evaluate, x0, m.InitialStepSizes(), sigma0, m.Constraint(), tracer)
	if err != nil {
		exitWith(&especiaerr.RuntimeError{Reason: "optimizing", Cause: err})
	}

	if result.Optimized {
		m.ApplyOptimum(result.X, result.Z)
	}

	reportDoc := report.Build(doc, layout, m, result, log.String())
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

var exitFunc = os.Exit

// exitWith reports err to standard error and terminates the process with
// the exit code the command-line contract assigns to its kind.
func exitWith(err error) {
	fmt.Fprintln(os.Stderr, err)
	exitFunc(especiaerr.ExitCode(err))
}
