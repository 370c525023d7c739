package model

import (
	"math"
	"testing"

	"github.com/rquast/especia/internal/profile"
	"github.com/rquast/especia/internal/section"
)

func TestModel_EvaluateRecoversKnownLine(t *testing.T) {
	restWavelength := 5000.0
	trueZ := 0.0
	trueB := 10.0
	trueLogN := 13.0

	q := []float64{restWavelength, 0.4164, trueZ, 0.0, trueB, trueLogN}
	line := profile.NewDoppler(q)

	lo, hi := 4990.0, 5010.0
	samples := make([]section.Sample, 0, 400)
	for i := 0; i < 400; i++ {
		lambda := lo + (hi-lo)*float64(i)/399.0
		tau := line.At(lambda)
		samples = append(samples, section.Sample{Lambda: lambda, Flux: math.Exp(-tau), Sigma: 1.0})
	}
	sec := section.New(lo, hi, 0, samples)

	b := NewBuilder()
	b.Add("R", 1e9, 1e9, 1e9, false, "")
	b.Add("lambda0", restWavelength, restWavelength, restWavelength, false, "")
	b.Add("f", 0.4164, 0.4164, 0.4164, false, "")
	b.Add("z", 0.0, -0.01, 0.01, true, "")
	b.Add("v", 0.0, -50, 50, true, "")
	b.Add("bwidth", 8.0, 1.0, 30.0, true, "")
	b.Add("logN", 12.0, 10.0, 16.0, true, "")

	table, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	binding := SectionBinding{
		Section:   sec,
		Kind:      KindDoppler,
		RIndex:    0,
		LineIndex: 1,
		LineCount: 1,
	}
	m := New(table, []SectionBinding{binding})

	costAtTruth := m.Evaluate([]float64{trueZ, 0.0, trueB, trueLogN})
	costOffTruth := m.Evaluate([]float64{0.005, 0.0, trueB, trueLogN})

	if costAtTruth > 1e-6 {
		t.Errorf("expected near-zero cost at the true parameters, got %v", costAtTruth)
	}
	if costOffTruth <= costAtTruth {
		t.Errorf("expected cost to rise away from the true parameters: %v <= %v", costOffTruth, costAtTruth)
	}
}

func TestModel_InitialValuesAndConstraintDelegateToTable(t *testing.T) {
	b := NewBuilder()
	b.Add("a", 0.0, 2.0, 8.0, true, "")

	table, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := New(table, nil)

	if x0 := m.InitialValues(); x0[0] != 5.0 {
		t.Errorf("expected initial value 5.0, got %v", x0[0])
	}
	if d0 := m.InitialStepSizes(); d0[0] != 3.0 {
		t.Errorf("expected initial step size 3.0, got %v", d0[0])
	}

	c := m.Constraint()
	if c.IsViolated([]float64{5.0}) {
		t.Error("expected an in-bounds vector not to violate the constraint")
	}
}
