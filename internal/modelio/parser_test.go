package modelio

import (
	"strings"
	"testing"

	"github.com/rquast/especia/internal/model"
)

const sampleDoppler = `
% a minimal single-line section
@kind doppler
{ a spectrum.dat 4000.0 4010.0 2
30000.0 20000.0 40000.0 1
line1 4005.0 4004.0 4006.0 0
0.5 0.0 1.0 0
0.0 -0.001 0.001 1
15.0 1.0 30.0 1
5.0 1.0 20.0 1
13.5 12.0 15.0 1
}
`

func TestParse_SingleDopplerSection(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoppler))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Kind != model.KindDoppler {
		t.Fatalf("expected doppler kind, got %v", doc.Kind)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(doc.Sections))
	}

	s := doc.Sections[0]
	if s.ID != "a" || s.DataFile != "spectrum.dat" {
		t.Errorf("unexpected section head: %+v", s)
	}
	if s.Lo != 4000.0 || s.Hi != 4010.0 || s.Order != 2 {
		t.Errorf("unexpected window/order: %+v", s)
	}
	if s.Resolution.Value != 30000.0 || !s.Resolution.Free {
		t.Errorf("unexpected resolving power spec: %+v", s.Resolution)
	}
	if len(s.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(s.Lines))
	}
	line := s.Lines[0]
	if line.ID != "line1" {
		t.Errorf("expected line id line1, got %s", line.ID)
	}
	if len(line.Params) != 6 {
		t.Fatalf("expected 6 doppler parameters, got %d", len(line.Params))
	}
	if line.Params[0].Value != 4005.0 {
		t.Errorf("expected rest wavelength 4005.0, got %v", line.Params[0].Value)
	}
}

func TestParse_DefaultsToDopplerKind(t *testing.T) {
	doc, err := Parse(strings.NewReader(`{ a x.dat 1.0 2.0 1
100.0 50.0 200.0 0
l 1.5 1.0 2.0 0
0.5 0.0 1.0 0
0.0 -1.0 1.0 0
1.0 0.0 5.0 0
1.0 0.0 5.0 0
13.0 10.0 15.0 0
}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Kind != model.KindDoppler {
		t.Errorf("expected default kind doppler, got %v", doc.Kind)
	}
}

func TestParse_MaskedIntervals(t *testing.T) {
	doc, err := Parse(strings.NewReader(`{ a x.dat 1.0 10.0 1 3.0 4.0 6.0 7.0
100.0 50.0 200.0 0
l 5.0 4.0 6.0 0
0.5 0.0 1.0 0
0.0 -1.0 1.0 0
1.0 0.0 5.0 0
1.0 0.0 5.0 0
13.0 10.0 15.0 0
}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections[0].Masks) != 2 {
		t.Fatalf("expected 2 masked intervals, got %d", len(doc.Sections[0].Masks))
	}
	if doc.Sections[0].Masks[1] != [2]float64{6.0, 7.0} {
		t.Errorf("unexpected second mask: %v", doc.Sections[0].Masks[1])
	}
}

func TestParse_ParameterLinkByRef(t *testing.T) {
	doc, err := Parse(strings.NewReader(`{ a x.dat 1.0 10.0 1
100.0 50.0 200.0 0
l1 5.0 4.0 6.0 1
0.5 0.0 1.0 0
0.0 -1.0 1.0 0
1.0 0.0 5.0 0
1.0 0.0 5.0 0
13.0 10.0 15.0 0
l2 5.0 4.0 6.0 1 l1
0.5 0.0 1.0 0
0.0 -1.0 1.0 1
1.0 0.0 5.0 0
1.0 0.0 5.0 0
13.0 10.0 15.0 0
}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections[0].Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(doc.Sections[0].Lines))
	}
	if doc.Sections[0].Lines[1].Params[0].Ref != "l1" {
		t.Errorf("expected second line's first parameter to reference l1, got %q", doc.Sections[0].Lines[1].Params[0].Ref)
	}
}

func TestParse_UnterminatedSectionIsAnError(t *testing.T) {
	_, err := Parse(strings.NewReader(`{ a x.dat 1.0 10.0 1
100.0 50.0 200.0 0
`))
	if err == nil {
		t.Fatal("expected an unterminated-section error")
	}
}

func TestParse_WrongArityIsAnError(t *testing.T) {
	_, err := Parse(strings.NewReader(`{ a x.dat 1.0 10.0 1
100.0 50.0 200.0 0
l 5.0 4.0 6.0 0
0.5 0.0 1.0 0
}`))
	if err == nil {
		t.Fatal("expected a wrong-arity error")
	}
}

func TestParse_KindDirectiveAfterSectionIsAnError(t *testing.T) {
	_, err := Parse(strings.NewReader(`{ a x.dat 1.0 10.0 1
100.0 50.0 200.0 0
l 5.0 4.0 6.0 0
0.5 0.0 1.0 0
0.0 -1.0 1.0 0
1.0 0.0 5.0 0
1.0 0.0 5.0 0
13.0 10.0 15.0 0
}
@kind voigt
`))
	if err == nil {
		t.Fatal("expected @kind to be rejected after the first section")
	}
}
