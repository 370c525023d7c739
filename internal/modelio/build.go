package modelio

import (
	"fmt"
	"strconv"

	"github.com/rquast/especia/internal/model"
	"github.com/rquast/especia/internal/section"
)

// DataLoader resolves a section's data-file reference (as it appears in
// the model definition) to its samples. internal/server/worker.go
// supplies one that reads relative to the model file's directory;
// cmd/optimize.go and cmd/resume.go supply one that opens the path as
// given, relative to the working directory.
type DataLoader func(path string) ([]section.Sample, error)

// componentID returns the synthetic parameter-table identifier for the
// j-th parameter (0-based) of the named line lineID. Component-wise
// linking — a parameter of one line referring to the same-numbered
// parameter of another — is expressed in model.Builder's flat id/ref
// namespace by giving every line parameter a distinct id keyed by its
// line and its position within that line, grounded on the original
// core's per-component ref semantics in model.h.
func componentID(lineID string, j int) string {
	return lineID + "#" + strconv.Itoa(j)
}

// LineLayout locates one named line's parameters within the model's
// dense parameter vector, for report rendering.
type LineLayout struct {
	ID         string
	StartIndex int
}

// SectionLayout locates one section's resolving power and lines within
// the model's dense parameter vector, for report rendering.
type SectionLayout struct {
	ID      string
	Lo, Hi  float64
	Order   int
	RIndex  int
	Lines   []LineLayout
	Section *section.Section
}

// Layout is the reporting-time counterpart of the bindings wired into a
// model.Model: it names every section and line where Model only carries
// their dense-vector offsets.
type Layout struct {
	Kind     model.LineKind
	Sections []SectionLayout
}

// Build translates a parsed Document into a model.Model, loading each
// section's data file via load and wiring every parameter specification
// into a model.ParamTable through the synthetic component-id scheme. The
// returned Layout lets internal/report recover section and line
// identifiers that Model itself, being optimizer-facing, discards.
func Build(doc *Document, load DataLoader) (*model.Model, *Layout, error) {
	builder := model.NewBuilder()
	bindings := make([]model.SectionBinding, 0, len(doc.Sections))
	layout := &Layout{Kind: doc.Kind}

	for _, spec := range doc.Sections {
		samples, err := load(spec.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("section %s: %w", spec.ID, err)
		}
		sect := section.New(spec.Lo, spec.Hi, spec.Order, samples)
		for _, m := range spec.Masks {
			sect.Mask(m[0], m[1])
		}

		rIndex, err := builder.Add(spec.ID, spec.Resolution.Value, spec.Resolution.Lower, spec.Resolution.Upper, spec.Resolution.Free, spec.Resolution.Ref)
		if err != nil {
			return nil, nil, fmt.Errorf("section %s: resolving power: %w", spec.ID, err)
		}

		sectionLayout := SectionLayout{ID: spec.ID, Lo: spec.Lo, Hi: spec.Hi, Order: spec.Order, RIndex: rIndex, Section: sect}

		lineIndex := -1
		for _, line := range spec.Lines {
			lineStart := -1
			for j, p := range line.Params {
				ref := p.Ref
				if ref != "" {
					ref = componentID(ref, j)
				}
				idx, err := builder.Add(componentID(line.ID, j), p.Value, p.Lower, p.Upper, p.Free, ref)
				if err != nil {
					return nil, nil, fmt.Errorf("section %s: line %s: %w", spec.ID, line.ID, err)
				}
				if lineIndex < 0 {
					lineIndex = idx
				}
				if lineStart < 0 {
					lineStart = idx
				}
			}
			sectionLayout.Lines = append(sectionLayout.Lines, LineLayout{ID: line.ID, StartIndex: lineStart})
		}
		if lineIndex < 0 {
			return nil, nil, fmt.Errorf("section %s: has no absorption-line specifications", spec.ID)
		}

		bindings = append(bindings, model.SectionBinding{
			Section:   sect,
			Kind:      doc.Kind,
			RIndex:    rIndex,
			LineIndex: lineIndex,
			LineCount: len(spec.Lines),
		})
		layout.Sections = append(layout.Sections, sectionLayout)
	}

	table, err := builder.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving parameter references: %w", err)
	}

	return model.New(table, bindings), layout, nil
}
