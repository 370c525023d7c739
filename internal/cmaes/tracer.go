package cmaes

import (
	"fmt"
	"io"
)

// Tracer receives per-generation progress reports. Grounded on the
// original especia core's Tracing_To_Output_Stream and No_Tracing
// (optimizer.h), generalized to an interface so the HTML report layer
// can redirect the trace into the <log> block instead of an ostream.
type Tracer interface {
	// IsEnabled reports whether generation g should be traced.
	IsEnabled(g uint64) bool
	// Trace reports the fitness and step size range of generation g.
	Trace(g uint64, y, minStep, maxStep float64)
}

// StateObserver is an optional extension a Tracer may also implement to
// receive the optimizer's full per-generation distribution state, beyond
// the fitness/step-size summary Trace receives. The generation loop
// checks for this interface once per generation via a type assertion, so
// a plain Tracer (NoTracing, WriterTracer) incurs no behavior change;
// it exists so long-running callers (the job server's checkpointing) can
// snapshot x, d, s, B, C and the cumulation paths without the optimizer
// itself knowing anything about checkpoints.
type StateObserver interface {
	ObserveState(g uint64, x, d []float64, s float64, B, C [][]float64, pc, ps []float64)
}

// NoTracing discards every generation report.
type NoTracing struct{}

func (NoTracing) IsEnabled(g uint64) bool                  { return false }
func (NoTracing) Trace(g uint64, y, minStep, maxStep float64) {}

// WriterTracer writes one fixed-width line per enabled generation to an
// io.Writer, in the column layout of the original
// Tracing_To_Output_Stream::trace: generation, fitness, minimum and
// maximum local step size, all in scientific notation.
type WriterTracer struct {
	w       io.Writer
	modulus uint64
}

// NewWriterTracer returns a tracer enabled every modulus-th generation.
// A modulus of zero disables tracing entirely, matching the original's
// "m > 0 and g % m == 0" contract.
func NewWriterTracer(w io.Writer, modulus uint64) *WriterTracer {
	return &WriterTracer{w: w, modulus: modulus}
}

func (t *WriterTracer) IsEnabled(g uint64) bool {
	return t.modulus > 0 && g%t.modulus == 0
}

func (t *WriterTracer) Trace(g uint64, y, minStep, maxStep float64) {
	fmt.Fprintf(t.w, "%8d%12.4e%12.4e%12.4e\n", g, y, minStep, maxStep)
}
